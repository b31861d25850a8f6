package port

import (
	"fmt"
	"time"
)

// A ComponentRef identifies a test component.
type ComponentRef int32

// Reserved component references. The first parallel test component created
// gets FirstPTC.
const (
	UnboundComponent ComponentRef = -1
	NullComponent    ComponentRef = 0
	MTCComponent     ComponentRef = 1
	SystemComponent  ComponentRef = 2
	FirstPTC         ComponentRef = 3
)

func (r ComponentRef) String() string {
	switch r {
	case UnboundComponent:
		return "unbound"
	case NullComponent:
		return "null"
	case MTCComponent:
		return "mtc"
	case SystemComponent:
		return "system"
	default:
		return fmt.Sprintf("ptc%d", int32(r))
	}
}

// Bound reports whether r can be the destination of a peer operation.
func (r ComponentRef) Bound() bool {
	return r > NullComponent
}

// EnvelopeMeta holds the fields shared by every queued item.
type EnvelopeMeta struct {
	ID            string
	Sender        ComponentRef
	SenderAddress any
	HasAddress    bool
	Timestamp     time.Time
	HasTimestamp  bool
}

// An Envelope is an item waiting in one of the queues of a port. It is either
// a *MessageEnvelope or a *ProcedureEnvelope.
type Envelope interface {
	Meta() *EnvelopeMeta
	isEnvelope()
}

// A MessageEnvelope carries one message.
type MessageEnvelope struct {
	EnvelopeMeta

	TypeTag string
	Payload any
}

// Meta returns the meta data of the envelope.
func (e *MessageEnvelope) Meta() *EnvelopeMeta {
	return &e.EnvelopeMeta
}

func (e *MessageEnvelope) isEnvelope() {}

// ProcedureKind tells calls, replies and exceptions apart.
type ProcedureKind int

// The kinds of procedure items.
const (
	Call ProcedureKind = iota
	Reply
	Exception
)

func (k ProcedureKind) String() string {
	switch k {
	case Call:
		return "call"
	case Reply:
		return "reply"
	case Exception:
		return "exception"
	default:
		return fmt.Sprintf("ProcedureKind(%d)", int(k))
	}
}

// A ProcedureEnvelope carries one call, reply or exception.
type ProcedureEnvelope struct {
	EnvelopeMeta

	Kind      ProcedureKind
	Signature string

	// ExceptionType is only set for exceptions.
	ExceptionType string

	// Payload holds the call parameters, the return value, or the exception
	// value.
	Payload any
}

// Meta returns the meta data of the envelope.
func (e *ProcedureEnvelope) Meta() *EnvelopeMeta {
	return &e.EnvelopeMeta
}

func (e *ProcedureEnvelope) isEnvelope() {}

// PeerMessage is what a connection carries from one port to a peer port.
type PeerMessage struct {
	TypeTag string
	Value   any

	// Payload is the serialized value when the connection serializes.
	Payload []byte

	Sender ComponentRef
}

// PeerProcedure is a procedure item carried between peer ports.
type PeerProcedure struct {
	Kind          ProcedureKind
	Signature     string
	ExceptionType string
	Value         any
	Payload       []byte
	Sender        ComponentRef
}
