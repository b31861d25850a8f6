// Package template provides the matching templates that the probe operations
// test queued values and senders against.
//
// The static checker that produces TTCN-3 templates is not part of this
// module; the types here are the runtime contract a generated template has to
// satisfy, plus the common matching mechanisms.
package template

import (
	"fmt"
	"reflect"

	"github.com/google/go-cmp/cmp"
)

// A Template decides whether a value matches.
type Template interface {
	Match(v any) bool
}

// Func adapts a predicate to the Template interface.
type Func func(v any) bool

// Match calls f(v).
func (f Func) Match(v any) bool {
	return f(v)
}

type anyValue struct{}

func (anyValue) Match(v any) bool { return v != nil }

func (anyValue) String() string { return "?" }

type anyOrOmit struct{}

func (anyOrOmit) Match(any) bool { return true }

func (anyOrOmit) String() string { return "*" }

type omit struct{}

func (omit) Match(v any) bool { return v == nil }

func (omit) String() string { return "omit" }

// Any matches every present value (TTCN-3 "?").
func Any() Template {
	return anyValue{}
}

// AnyOrOmit matches everything, including an absent value (TTCN-3 "*").
func AnyOrOmit() Template {
	return anyOrOmit{}
}

// Omit matches only an absent value.
func Omit() Template {
	return omit{}
}

type specificValue struct {
	want any
}

func (t specificValue) Match(v any) bool {
	return cmp.Equal(t.want, v, cmp.Exporter(func(reflect.Type) bool {
		return true
	}))
}

func (t specificValue) String() string {
	return fmt.Sprintf("%v", t.want)
}

// Value matches values that are deeply equal to want.
func Value(want any) Template {
	return specificValue{want: want}
}

type valueList []Template

func (l valueList) Match(v any) bool {
	for _, t := range l {
		if t.Match(v) {
			return true
		}
	}

	return false
}

// OneOf matches when any of the given templates matches.
func OneOf(templates ...Template) Template {
	return valueList(templates)
}

// Values is a shortcut for OneOf(Value(a), Value(b), ...).
func Values(values ...any) Template {
	l := make(valueList, len(values))
	for i, v := range values {
		l[i] = Value(v)
	}

	return l
}

type complement struct {
	t Template
}

func (c complement) Match(v any) bool {
	return !c.t.Match(v)
}

// Not matches the values that t does not match.
func Not(t Template) Template {
	return complement{t: t}
}

// MatchOrAny returns true when t is nil or t matches v. Probe options use a
// nil template to mean "no restriction".
func MatchOrAny(t Template, v any) bool {
	if t == nil {
		return true
	}

	return t.Match(v)
}
