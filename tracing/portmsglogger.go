package tracing

import (
	"log"

	"github.com/sarchlab/ttcnport/hooking"
)

// LogHookBase provides the common logic for all LogHooks.
type LogHookBase struct {
	*log.Logger
}

// PortMsgLogger is a hook for logging the decisions taken at a port.
type PortMsgLogger struct {
	LogHookBase

	positions map[*hooking.HookPos]bool
}

// NewPortMsgLogger returns a new PortMsgLogger which will write into the
// logger. When positions are given, only those are logged.
func NewPortMsgLogger(
	logger *log.Logger,
	positions ...*hooking.HookPos,
) *PortMsgLogger {
	h := new(PortMsgLogger)
	h.Logger = logger

	if len(positions) > 0 {
		h.positions = make(map[*hooking.HookPos]bool)
		for _, pos := range positions {
			h.positions[pos] = true
		}
	}

	return h
}

// Func writes the event information into the logger.
func (h *PortMsgLogger) Func(ctx hooking.HookCtx) {
	if h.positions != nil && !h.positions[ctx.Pos] {
		return
	}

	e := EventFromHookCtx(ctx)

	h.Logger.Printf("%s,%s,%s,%s,%s,%s\n",
		e.Pos, e.Where, e.TypeTag, e.Sender, e.ID, e.Detail)
}
