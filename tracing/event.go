package tracing

import (
	"fmt"

	"github.com/sarchlab/ttcnport/hooking"
	"github.com/sarchlab/ttcnport/naming"
	"github.com/sarchlab/ttcnport/port"
	"github.com/sarchlab/ttcnport/translation"
)

// An Event is one traced decision of a port, a queue, a pipeline, or a
// connection. The db tags name the trace table columns.
type Event struct {
	ID      string `db:"id"`
	Where   string `db:"location"`
	Pos     string `db:"pos"`
	TypeTag string `db:"type_tag"`
	Sender  string `db:"sender"`
	Detail  string `db:"detail"`
}

// EventFromHookCtx extracts the traced fields from a hook context.
func EventFromHookCtx(ctx hooking.HookCtx) Event {
	e := Event{}

	if ctx.Pos != nil {
		e.Pos = ctx.Pos.Name
	}

	if named, ok := ctx.Domain.(naming.Named); ok {
		e.Where = named.Name()
	}

	fillItem(&e, ctx.Item)
	fillDetail(&e, ctx.Detail)

	return e
}

func fillItem(e *Event, item any) {
	switch item := item.(type) {
	case *port.MessageEnvelope:
		e.ID = item.ID
		e.Sender = item.Sender.String()
		e.TypeTag = item.TypeTag
	case *port.ProcedureEnvelope:
		e.ID = item.ID
		e.Sender = item.Sender.String()
		e.TypeTag = item.Kind.String() + " " + item.Signature
	case port.PeerMessage:
		e.Sender = item.Sender.String()
		e.TypeTag = item.TypeTag
	case port.PeerProcedure:
		e.Sender = item.Sender.String()
		e.TypeTag = item.Kind.String() + " " + item.Signature
	}
}

func fillDetail(e *Event, detail any) {
	switch d := detail.(type) {
	case nil:
	case translation.Decision:
		if e.TypeTag == "" {
			e.TypeTag = d.TypeTag
		}

		e.Detail = decisionDetail(d)
	case port.Dispatch:
		if e.TypeTag == "" {
			e.TypeTag = d.TypeTag
		}

		e.Detail = d.Route.String() + " " + d.Destination.String()
	case error:
		e.Detail = d.Error()
	default:
		e.Detail = fmt.Sprint(d)
	}
}

func decisionDetail(d translation.Decision) string {
	s := d.Direction.String()

	if d.Target != "" {
		s += " " + d.Target
	}

	s += " " + d.State.String()

	if d.Err != nil {
		s += ": " + d.Err.Error()
	}

	return s
}
