package port

import (
	"fmt"
	"time"

	"github.com/sarchlab/ttcnport/queueing"
	"github.com/sarchlab/ttcnport/template"
)

// ProbeResult is the outcome of a probe operation.
type ProbeResult int

// The probe results.
const (
	// NoMatch means that the head envelope does not match, or that the port
	// is not started and its queue is empty.
	NoMatch ProbeResult = iota

	// Matched means that the head envelope matched.
	Matched

	// WouldBlock means that the queue is empty and the caller should wait.
	WouldBlock

	// Repeat means that a trigger probe dropped a non-matching head and the
	// caller should evaluate its alternatives again.
	Repeat
)

func (r ProbeResult) String() string {
	switch r {
	case NoMatch:
		return "NoMatch"
	case Matched:
		return "Matched"
	case WouldBlock:
		return "WouldBlock"
	case Repeat:
		return "Repeat"
	default:
		return fmt.Sprintf("ProbeResult(%d)", int(r))
	}
}

// MessageTemplate restricts the type and the value of a message.
type MessageTemplate struct {
	// Type is the required type tag. Empty matches every type.
	Type string

	// Value is matched against the payload. Nil matches every payload.
	Value template.Template
}

func (t MessageTemplate) match(typeTag string, payload any) bool {
	if t.Type != "" && t.Type != typeTag {
		return false
	}

	return template.MatchOrAny(t.Value, payload)
}

// ProbeOptions holds the templates and redirects of a probe.
type ProbeOptions struct {
	Template MessageTemplate

	// From is matched against the sender component reference. Nil matches
	// every sender.
	From template.Template

	// FromAddress is matched against the sender address. An envelope without
	// an address is a fatal error for an address-qualified probe.
	FromAddress template.Template

	// Redirects. The matched envelope's fields are stored where they point.
	Value     *any
	Sender    *ComponentRef
	Address   *any
	Timestamp *time.Time
}

// From returns a sender template that matches one component.
func From(ref ComponentRef) template.Template {
	return template.Value(ref)
}

// ProcedureOptions holds the templates and redirects of a procedure probe.
// Template.Value is matched against the parameters of a call or the value of
// a reply.
type ProcedureOptions struct {
	ProbeOptions

	// Signature is the required signature. Empty matches every signature.
	Signature string

	// Exception restricts the type and value of caught exceptions.
	Exception MessageTemplate
}

type probeMode int

const (
	consume probeMode = iota
	check
	trigger
)

type headTest[E Envelope] struct {
	op      string
	shape   func(E) bool
	payload func(E) bool
	bind    func(E)
}

// probeHead runs the matching algorithm that every probe shares. Only the
// head of the queue is ever inspected.
func probeHead[E Envelope](
	p *Port,
	q *queueing.Queue[E],
	mode probeMode,
	opts *ProbeOptions,
	t headTest[E],
) (ProbeResult, error) {
	head, ok := q.Peek()
	if !ok {
		return p.emptyQueueResult(t.op), nil
	}

	meta := head.Meta()

	senderOK, err := senderMatches(meta, opts)
	if err != nil {
		return NoMatch, p.fail(t.op, "", err)
	}

	if !senderOK || !t.shape(head) || !t.payload(head) {
		if mode == trigger {
			q.Drop()
			return Repeat, nil
		}

		return NoMatch, nil
	}

	bindMeta(meta, opts)

	if t.bind != nil {
		t.bind(head)
	}

	if mode != check {
		q.Pop()
	}

	p.invoke(HookPosProbeMatched, head, t.op)

	return Matched, nil
}

func (p *Port) emptyQueueResult(op string) ProbeResult {
	if p.accepting() {
		return WouldBlock
	}

	p.invoke(HookPosProbeNotStarted, nil, p.fail(op, "", ErrPortNotStarted))

	return NoMatch
}

func senderMatches(meta *EnvelopeMeta, opts *ProbeOptions) (bool, error) {
	if !template.MatchOrAny(opts.From, meta.Sender) {
		return false, nil
	}

	if opts.FromAddress == nil {
		return true, nil
	}

	if !meta.HasAddress {
		return false, ErrMissingSenderAddress
	}

	return opts.FromAddress.Match(meta.SenderAddress), nil
}

func bindMeta(meta *EnvelopeMeta, opts *ProbeOptions) {
	if opts.Sender != nil {
		*opts.Sender = meta.Sender
	}

	if opts.Address != nil && meta.HasAddress {
		*opts.Address = meta.SenderAddress
	}

	if opts.Timestamp != nil && meta.HasTimestamp {
		*opts.Timestamp = meta.Timestamp
	}
}

func (p *Port) probeMessage(op string, mode probeMode, opts ProbeOptions) (ProbeResult, error) {
	return probeHead(p, p.msgQueue, mode, &opts, headTest[*MessageEnvelope]{
		op:    op,
		shape: func(*MessageEnvelope) bool { return true },
		payload: func(e *MessageEnvelope) bool {
			return opts.Template.match(e.TypeTag, e.Payload)
		},
		bind: func(e *MessageEnvelope) {
			if opts.Value != nil {
				*opts.Value = e.Payload
			}
		},
	})
}

// Receive consumes the head message if it matches.
func (p *Port) Receive(opts ProbeOptions) (ProbeResult, error) {
	return p.probeMessage("receive", consume, opts)
}

// CheckReceive matches the head message like Receive but leaves it in the
// queue.
func (p *Port) CheckReceive(opts ProbeOptions) (ProbeResult, error) {
	return p.probeMessage("check-receive", check, opts)
}

// Trigger consumes the head message if it matches and drops it otherwise.
func (p *Port) Trigger(opts ProbeOptions) (ProbeResult, error) {
	return p.probeMessage("trigger", trigger, opts)
}

func (p *Port) probeProcedure(
	op string,
	mode probeMode,
	kind ProcedureKind,
	opts ProcedureOptions,
) (ProbeResult, error) {
	return probeHead(p, p.procQueue, mode, &opts.ProbeOptions, headTest[*ProcedureEnvelope]{
		op: op,
		shape: func(e *ProcedureEnvelope) bool {
			if e.Kind != kind {
				return false
			}

			return opts.Signature == "" || opts.Signature == e.Signature
		},
		payload: func(e *ProcedureEnvelope) bool {
			if kind == Exception {
				return opts.Exception.match(e.ExceptionType, e.Payload)
			}

			return template.MatchOrAny(opts.Template.Value, e.Payload)
		},
		bind: func(e *ProcedureEnvelope) {
			if opts.Value != nil {
				*opts.Value = e.Payload
			}
		},
	})
}

// GetCall consumes the head call if it matches.
func (p *Port) GetCall(opts ProcedureOptions) (ProbeResult, error) {
	return p.probeProcedure("getcall", consume, Call, opts)
}

// CheckGetCall matches the head call without consuming it.
func (p *Port) CheckGetCall(opts ProcedureOptions) (ProbeResult, error) {
	return p.probeProcedure("check-getcall", check, Call, opts)
}

// TriggerGetCall consumes the head call if it matches and drops the head
// otherwise.
func (p *Port) TriggerGetCall(opts ProcedureOptions) (ProbeResult, error) {
	return p.probeProcedure("trigger-getcall", trigger, Call, opts)
}

// GetReply consumes the head reply if it matches.
func (p *Port) GetReply(opts ProcedureOptions) (ProbeResult, error) {
	return p.probeProcedure("getreply", consume, Reply, opts)
}

// CheckGetReply matches the head reply without consuming it.
func (p *Port) CheckGetReply(opts ProcedureOptions) (ProbeResult, error) {
	return p.probeProcedure("check-getreply", check, Reply, opts)
}

// TriggerGetReply consumes the head reply if it matches and drops the head
// otherwise.
func (p *Port) TriggerGetReply(opts ProcedureOptions) (ProbeResult, error) {
	return p.probeProcedure("trigger-getreply", trigger, Reply, opts)
}

// Catch consumes the head exception if it matches.
func (p *Port) Catch(opts ProcedureOptions) (ProbeResult, error) {
	return p.probeProcedure("catch", consume, Exception, opts)
}

// CheckCatch matches the head exception without consuming it.
func (p *Port) CheckCatch(opts ProcedureOptions) (ProbeResult, error) {
	return p.probeProcedure("check-catch", check, Exception, opts)
}

// TriggerCatch consumes the head exception if it matches and drops the head
// otherwise.
func (p *Port) TriggerCatch(opts ProcedureOptions) (ProbeResult, error) {
	return p.probeProcedure("trigger-catch", trigger, Exception, opts)
}

// Check matches the head of the message queue, and then the head of the
// procedure queue, against the sender and value templates. Nothing is
// consumed.
func (p *Port) Check(opts ProbeOptions) (ProbeResult, error) {
	msgs, procs := p.msgQueue.Size(), p.procQueue.Size()
	if msgs == 0 && procs == 0 {
		return p.emptyQueueResult("check"), nil
	}

	if msgs > 0 {
		res, err := p.probeMessage("check", check, opts)
		if err != nil || res == Matched {
			return res, err
		}
	}

	if procs == 0 {
		return NoMatch, nil
	}

	return probeHead(p, p.procQueue, check, &opts, headTest[*ProcedureEnvelope]{
		op:    "check",
		shape: func(*ProcedureEnvelope) bool { return true },
		payload: func(e *ProcedureEnvelope) bool {
			return template.MatchOrAny(opts.Template.Value, e.Payload)
		},
		bind: func(e *ProcedureEnvelope) {
			if opts.Value != nil {
				*opts.Value = e.Payload
			}
		},
	})
}
