// Package tracing records what ports, queues, and translation pipelines
// decide, either as log lines or as rows in a trace database.
package tracing

import (
	"fmt"
	"reflect"

	"github.com/sarchlab/ttcnport/hooking"
	"github.com/sarchlab/ttcnport/naming"
)

// NamedHookable represent something both have a name and can be hooked
type NamedHookable interface {
	naming.Named
	hooking.Hookable
}

// A Tracer receives the events of the domains it collects from.
type Tracer interface {
	Record(e Event)
}

// CollectTrace let the tracer to collect trace from a domain. It panics if
// the tracer already collects from the domain.
func CollectTrace(domain NamedHookable, tracer Tracer) {
	for _, hook := range domain.Hooks() {
		hook, ok := hook.(*traceHook)
		if ok && hook.t == tracer {
			panic(fmt.Sprintf(
				"domain %s already has tracer %s",
				domain.Name(), reflect.TypeOf(tracer)))
		}
	}

	h := traceHook{t: tracer}
	domain.AcceptHook(&h)
}

// A traceHook turns hook invocations into events.
type traceHook struct {
	t Tracer
}

// Func records the event of the hook context.
func (h *traceHook) Func(ctx hooking.HookCtx) {
	h.t.Record(EventFromHookCtx(ctx))
}

// A TraceWriter is a Tracer that stores the events it records.
type TraceWriter interface {
	Tracer

	// Init creates the storage. It must be called before any event is
	// recorded.
	Init()

	// Flush writes the buffered events.
	Flush()

	// Close flushes and releases the storage.
	Close()
}
