package port

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/sarchlab/ttcnport/translation"
)

// Category selects how a port relates to the system under test.
type Category int

// The port categories.
const (
	// Regular ports send system traffic through their own mapping rules or
	// the native adapter path.
	Regular Category = iota

	// Provider ports talk to the system on behalf of user ports.
	Provider

	// User ports translate between their own types and the types of the
	// provider ports mapped to them.
	User

	// Internal ports only connect test components and cannot be mapped.
	Internal
)

var categoryNames = []string{"regular", "provider", "user", "internal"}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return fmt.Sprintf("Category(%d)", int(c))
	}

	return categoryNames[c]
}

// ParseCategory is the inverse of Category.String.
func ParseCategory(s string) (Category, error) {
	i := slices.Index(categoryNames, strings.ToLower(s))
	if i < 0 {
		return 0, fmt.Errorf("unknown port category %q", s)
	}

	return Category(i), nil
}

// Signature describes a procedure.
type Signature struct {
	Name         string
	NonBlocking  bool
	HasException bool
	HasReturn    bool
}

// Mapping holds the mapping rules of a port, by direction.
type Mapping struct {
	Out []translation.MappingRule
	In  []translation.MappingRule
}

// A Declaration is the validated description of a port type.
type Declaration struct {
	Name     string
	Category Category

	// InTypes and OutTypes list the message types the port accepts in each
	// direction. An empty list accepts every type.
	InTypes  []string
	OutTypes []string

	Procedures []Signature

	HasAddress bool
	Realtime   bool
	Sliding    bool

	Mapping Mapping
}

// Translating reports whether mapping functions of the port are judged by
// the translation state.
func (d Declaration) Translating() bool {
	return d.Category == User
}

// Validate checks the declaration for contradictions.
func (d Declaration) Validate() error {
	if d.Name == "" {
		return errors.New("port declaration without name")
	}

	if d.Category == Internal &&
		(len(d.Mapping.Out) > 0 || len(d.Mapping.In) > 0) {
		return fmt.Errorf("port type %s: internal ports cannot have mapping rules",
			d.Name)
	}

	seen := make(map[string]bool)
	for _, s := range d.Procedures {
		if s.Name == "" {
			return fmt.Errorf("port type %s: signature without name", d.Name)
		}

		if seen[s.Name] {
			return fmt.Errorf("port type %s: signature %s declared twice",
				d.Name, s.Name)
		}

		seen[s.Name] = true
	}

	for _, rules := range [][]translation.MappingRule{d.Mapping.Out, d.Mapping.In} {
		for _, r := range rules {
			if err := r.Validate(); err != nil {
				return fmt.Errorf("port type %s: %w", d.Name, err)
			}

			if !d.Sliding && r.UsesSliding() {
				return fmt.Errorf(
					"port type %s: rule for %s uses a sliding function "+
						"but the port is not declared sliding",
					d.Name, r.InType)
			}
		}
	}

	return nil
}

// AcceptsIn reports whether messages of typeTag can arrive at the port.
func (d Declaration) AcceptsIn(typeTag string) bool {
	return len(d.InTypes) == 0 || slices.Contains(d.InTypes, typeTag)
}

// AcceptsOut reports whether messages of typeTag can leave the port.
func (d Declaration) AcceptsOut(typeTag string) bool {
	return len(d.OutTypes) == 0 || slices.Contains(d.OutTypes, typeTag)
}

// Signature looks up a procedure signature. A declaration without
// procedures accepts every signature.
func (d Declaration) Signature(name string) (Signature, bool) {
	if len(d.Procedures) == 0 {
		return Signature{Name: name, HasException: true, HasReturn: true}, true
	}

	for _, s := range d.Procedures {
		if s.Name == name {
			return s, true
		}
	}

	return Signature{}, false
}
