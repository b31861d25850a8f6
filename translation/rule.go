package translation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sarchlab/ttcnport/codec"
)

// TargetKind selects how a mapping target produces its output.
type TargetKind int

// Target kinds.
const (
	Simple TargetKind = iota
	Function
	Encode
	Decode
	Discard
)

func (k TargetKind) String() string {
	switch k {
	case Simple:
		return "simple"
	case Function:
		return "function"
	case Encode:
		return "encode"
	case Decode:
		return "decode"
	case Discard:
		return "discard"
	default:
		return fmt.Sprintf("TargetKind(%d)", int(k))
	}
}

// ParseTargetKind parses the lower-case names printed by String.
func ParseTargetKind(s string) (TargetKind, error) {
	for k := Simple; k <= Discard; k++ {
		if strings.EqualFold(k.String(), s) {
			return k, nil
		}
	}

	return Simple, fmt.Errorf("invalid mapping target kind %q", s)
}

// Strategy selects the calling convention of a Function target.
type Strategy int

// Function strategies.
const (
	Convert Strategy = iota
	Fast
	Backtrack
	Sliding
)

func (s Strategy) String() string {
	switch s {
	case Convert:
		return "convert"
	case Fast:
		return "fast"
	case Backtrack:
		return "backtrack"
	case Sliding:
		return "sliding"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy parses the lower-case names printed by String.
func ParseStrategy(s string) (Strategy, error) {
	for st := Convert; st <= Sliding; st++ {
		if strings.EqualFold(st.String(), s) {
			return st, nil
		}
	}

	return Convert, fmt.Errorf("invalid function strategy %q", s)
}

// CodecParams configures an Encode or Decode target.
type CodecParams struct {
	// Descriptor identifies the type being encoded, or the type decoding
	// produces.
	Descriptor    string
	Encoding      string
	Options       codec.Options
	ErrorBehavior codec.ErrorBehavior
}

// A MappingTarget is one way of turning a value of the rule's type into a
// value of OutType.
type MappingTarget struct {
	Kind     TargetKind
	Strategy Strategy
	OutType  string

	// FuncName names the function for traces.
	FuncName string

	Convert   ConvertFunc
	Fast      FastFunc
	Backtrack BacktrackFunc
	Sliding   SlidingFunc

	Codec CodecParams
}

// SimpleTarget passes the value on unchanged as outType.
func SimpleTarget(outType string) MappingTarget {
	return MappingTarget{Kind: Simple, OutType: outType}
}

// ConvertTarget maps with a total conversion function.
func ConvertTarget(outType, name string, f ConvertFunc) MappingTarget {
	return MappingTarget{
		Kind: Function, Strategy: Convert, OutType: outType,
		FuncName: name, Convert: f,
	}
}

// FastTarget maps with a function that writes into an output value.
func FastTarget(outType, name string, f FastFunc) MappingTarget {
	return MappingTarget{
		Kind: Function, Strategy: Fast, OutType: outType,
		FuncName: name, Fast: f,
	}
}

// BacktrackTarget maps with a function that may refuse the value.
func BacktrackTarget(outType, name string, f BacktrackFunc) MappingTarget {
	return MappingTarget{
		Kind: Function, Strategy: Backtrack, OutType: outType,
		FuncName: name, Backtrack: f,
	}
}

// SlidingTarget maps with a stream decoder over the port's sliding buffer.
func SlidingTarget(outType, name string, f SlidingFunc) MappingTarget {
	return MappingTarget{
		Kind: Function, Strategy: Sliding, OutType: outType,
		FuncName: name, Sliding: f,
	}
}

// EncodeTarget maps by encoding the value with a built-in codec.
func EncodeTarget(outType string, params CodecParams) MappingTarget {
	return MappingTarget{Kind: Encode, OutType: outType, Codec: params}
}

// DecodeTarget maps by decoding bytes with a built-in codec.
func DecodeTarget(outType string, params CodecParams) MappingTarget {
	return MappingTarget{Kind: Decode, OutType: outType, Codec: params}
}

// DiscardTarget drops the value. It must be the last target of a rule.
func DiscardTarget() MappingTarget {
	return MappingTarget{Kind: Discard}
}

func (t MappingTarget) String() string {
	switch t.Kind {
	case Function:
		return fmt.Sprintf("%s/%s %s -> %s", t.Kind, t.Strategy, t.FuncName, t.OutType)
	case Encode, Decode:
		return fmt.Sprintf("%s(%s) -> %s", t.Kind, t.Codec.Encoding, t.OutType)
	case Discard:
		return t.Kind.String()
	default:
		return fmt.Sprintf("%s -> %s", t.Kind, t.OutType)
	}
}

func (t MappingTarget) validate() error {
	switch t.Kind {
	case Simple:
	case Function:
		if !t.hasFunc() {
			return fmt.Errorf("target %s: no %s function", t, t.Strategy)
		}
	case Encode, Decode:
		if t.Codec.Encoding == "" {
			return fmt.Errorf("target %s: encoding not set", t)
		}
	case Discard:
		return nil
	default:
		return fmt.Errorf("invalid target kind %d", int(t.Kind))
	}

	if t.OutType == "" {
		return fmt.Errorf("target %s: output type not set", t)
	}

	return nil
}

func (t MappingTarget) hasFunc() bool {
	switch t.Strategy {
	case Convert:
		return t.Convert != nil
	case Fast:
		return t.Fast != nil
	case Backtrack:
		return t.Backtrack != nil
	case Sliding:
		return t.Sliding != nil
	default:
		return false
	}
}

// A MappingRule lists, in priority order, the targets that values of InType
// are translated with.
type MappingRule struct {
	InType  string
	Targets []MappingTarget
}

// Validate checks the structure of the rule: it must have targets, at most
// one of them may be Discard, and a Discard target must be the last one.
func (r MappingRule) Validate() error {
	if r.InType == "" {
		return errors.New("mapping rule without type")
	}

	if len(r.Targets) == 0 {
		return fmt.Errorf("mapping rule for %s has no targets", r.InType)
	}

	for i, t := range r.Targets {
		if t.Kind == Discard && i != len(r.Targets)-1 {
			return fmt.Errorf(
				"mapping rule for %s: discard must be the last target", r.InType)
		}

		if err := t.validate(); err != nil {
			return fmt.Errorf("mapping rule for %s: %w", r.InType, err)
		}
	}

	return nil
}

// HasDiscard reports whether the rule ends with a Discard target.
func (r MappingRule) HasDiscard() bool {
	n := len(r.Targets)
	return n > 0 && r.Targets[n-1].Kind == Discard
}

// UsesSliding reports whether a target of the rule reassembles byte streams.
func (r MappingRule) UsesSliding() bool {
	for _, t := range r.Targets {
		if t.Kind == Function && t.Strategy == Sliding {
			return true
		}
	}

	return false
}
