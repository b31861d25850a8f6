package port

import (
	"errors"
	"fmt"
)

var (
	// ErrPortNotStarted means that the port is stopped or halted.
	ErrPortNotStarted = errors.New("port not started")

	// ErrUnboundDestination means that the destination is not a valid
	// component reference.
	ErrUnboundDestination = errors.New("unbound destination")

	// ErrMissingSenderAddress means that an address-qualified probe met an
	// envelope that has no sender address.
	ErrMissingSenderAddress = errors.New("sender address missing")

	// ErrNotConnected means that the port has no connection to the
	// destination.
	ErrNotConnected = errors.New("not connected")

	// ErrNotMapped means that system traffic was sent on an unmapped port.
	ErrNotMapped = errors.New("not mapped")

	// ErrAmbiguousDestination means that no destination was given while the
	// port has more than one connection or mapping.
	ErrAmbiguousDestination = errors.New("ambiguous destination")

	// ErrAddressNotSupported means that an address was used on a port
	// without address support.
	ErrAddressNotSupported = errors.New("address not supported")

	// ErrAlreadyMapped means that the port is mapped to the system already.
	ErrAlreadyMapped = errors.New("already mapped")

	// ErrInternalPort means that an internal port was asked to be mapped.
	ErrInternalPort = errors.New("internal port cannot be mapped")

	// ErrTypeNotAllowed means that the message type is not declared on the
	// port in that direction.
	ErrTypeNotAllowed = errors.New("message type not allowed")

	// ErrUnknownSignature means that the signature is not declared on the
	// port, or does not allow the operation.
	ErrUnknownSignature = errors.New("unknown signature")
)

// Error reports a failed port operation.
type Error struct {
	Op      string
	Port    string
	TypeTag string
	Err     error
}

func (e *Error) Error() string {
	if e.TypeTag == "" {
		return fmt.Sprintf("port %s: %s: %v", e.Port, e.Op, e.Err)
	}

	return fmt.Sprintf("port %s: %s %s: %v", e.Port, e.Op, e.TypeTag, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (p *Port) fail(op, typeTag string, err error) error {
	return &Error{Op: op, Port: p.name, TypeTag: typeTag, Err: err}
}
