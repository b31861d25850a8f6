// Package translation implements the ordered, multi-strategy translation
// pipeline that lets a port present one message type while exchanging
// several concrete representations with the system under test.
package translation

import "fmt"

// State is the verdict a translation function leaves behind on a translating
// port. It is reset to Unset before every function call.
type State int

// Translation states.
const (
	Unset State = iota
	Translated
	NotTranslated
	PartiallyTranslated
	Fragmented
	Discarded
)

func (s State) String() string {
	switch s {
	case Unset:
		return "Unset"
	case Translated:
		return "Translated"
	case NotTranslated:
		return "NotTranslated"
	case PartiallyTranslated:
		return "PartiallyTranslated"
	case Fragmented:
		return "Fragmented"
	case Discarded:
		return "Discarded"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Direction tells whether a value leaves the port toward the system or
// arrives from it.
type Direction int

// Directions.
const (
	Outbound Direction = iota
	Inbound
)

func (d Direction) String() string {
	if d == Inbound {
		return "in"
	}

	return "out"
}

// SlidingResult is what a sliding function reports about the accumulated
// bytes.
type SlidingResult int

// Sliding results.
const (
	SlidingSuccess SlidingResult = iota
	SlidingFailure
	SlidingNeedMoreData
)

func (r SlidingResult) String() string {
	switch r {
	case SlidingSuccess:
		return "Success"
	case SlidingFailure:
		return "Failure"
	case SlidingNeedMoreData:
		return "NeedMoreData"
	default:
		return fmt.Sprintf("SlidingResult(%d)", int(r))
	}
}

// Ctx is handed to every translation function that may report a State.
type Ctx struct {
	port      string
	direction Direction
	state     State
}

// Port returns the name of the port that runs the translation.
func (c *Ctx) Port() string {
	return c.port
}

// Direction returns the direction of the running translation.
func (c *Ctx) Direction() Direction {
	return c.direction
}

// State returns the current translation state.
func (c *Ctx) State() State {
	return c.state
}

// SetState records the verdict of the translation function.
func (c *Ctx) SetState(s State) {
	c.state = s
}

// ConvertFunc is a total conversion. It always succeeds.
type ConvertFunc func(in any) any

// FastFunc writes its result into out. Whether it succeeded is decided by the
// port category: always on non-translating ports, by the State on translating
// ports.
type FastFunc func(ctx *Ctx, in any, out *any)

// BacktrackFunc reports explicitly whether it produced out.
type BacktrackFunc func(ctx *Ctx, in any, out *any) bool

// SlidingFunc decodes the front of buf. On success it reports how many bytes
// it consumed.
type SlidingFunc func(ctx *Ctx, buf []byte, out *any) (consumed int, res SlidingResult)
