// Package config loads port declarations from YAML files and process
// settings from the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/ttcnport/codec"
	"github.com/sarchlab/ttcnport/port"
	"github.com/sarchlab/ttcnport/translation"
)

// File is the content of a declaration file.
type File struct {
	Ports []PortSpec `yaml:"ports"`
}

// PortSpec declares one port type.
type PortSpec struct {
	Name       string          `yaml:"name"`
	Category   string          `yaml:"category"`
	In         []string        `yaml:"in"`
	Out        []string        `yaml:"out"`
	Procedures []SignatureSpec `yaml:"procedures"`
	Address    bool            `yaml:"address"`
	Realtime   bool            `yaml:"realtime"`
	Sliding    bool            `yaml:"sliding"`
	Map        MappingSpec     `yaml:"map"`
}

// SignatureSpec declares a procedure signature.
type SignatureSpec struct {
	Name        string `yaml:"name"`
	NonBlocking bool   `yaml:"nonblocking"`
	Exception   bool   `yaml:"exception"`
	Return      bool   `yaml:"return"`
}

// MappingSpec holds the mapping rules of a port.
type MappingSpec struct {
	Out []RuleSpec `yaml:"out"`
	In  []RuleSpec `yaml:"in"`
}

// RuleSpec is a mapping rule. Targets are tried in order.
type RuleSpec struct {
	Type    string       `yaml:"type"`
	Targets []TargetSpec `yaml:"targets"`
}

// TargetSpec is a mapping target. Function targets name a function
// registered under the strategy; encode and decode targets name a codec.
type TargetSpec struct {
	Kind          string            `yaml:"kind"`
	Out           string            `yaml:"out"`
	Strategy      string            `yaml:"strategy"`
	Function      string            `yaml:"function"`
	Descriptor    string            `yaml:"descriptor"`
	Encoding      string            `yaml:"encoding"`
	Options       map[string]string `yaml:"options"`
	ErrorBehavior string            `yaml:"errorbehavior"`
}

// Parse decodes a declaration file. Unknown fields are errors.
func Parse(data []byte) (*File, error) {
	f := &File{}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	err := dec.Decode(f)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing declarations: %w", err)
	}

	return f, nil
}

// Load reads and parses a declaration file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return f, nil
}

// Declarations resolves and validates every port of the file. Function
// names are looked up in funcs.
func (f *File) Declarations(
	funcs *translation.FuncRegistry,
) ([]port.Declaration, error) {
	seen := make(map[string]bool)
	decls := make([]port.Declaration, 0, len(f.Ports))

	for _, s := range f.Ports {
		if seen[s.Name] {
			return nil, fmt.Errorf("port type %s declared twice", s.Name)
		}

		seen[s.Name] = true

		d, err := s.Declaration(funcs)
		if err != nil {
			return nil, err
		}

		decls = append(decls, d)
	}

	return decls, nil
}

// Declaration resolves and validates the port type.
func (s PortSpec) Declaration(
	funcs *translation.FuncRegistry,
) (port.Declaration, error) {
	d := port.Declaration{
		Name:       s.Name,
		InTypes:    s.In,
		OutTypes:   s.Out,
		HasAddress: s.Address,
		Realtime:   s.Realtime,
		Sliding:    s.Sliding,
	}

	if s.Category != "" {
		c, err := port.ParseCategory(s.Category)
		if err != nil {
			return d, fmt.Errorf("port type %s: %w", s.Name, err)
		}

		d.Category = c
	}

	for _, sig := range s.Procedures {
		d.Procedures = append(d.Procedures, port.Signature{
			Name:         sig.Name,
			NonBlocking:  sig.NonBlocking,
			HasException: sig.Exception,
			HasReturn:    sig.Return,
		})
	}

	var err error

	d.Mapping.Out, err = resolveRules(s.Map.Out, funcs)
	if err != nil {
		return d, fmt.Errorf("port type %s: out: %w", s.Name, err)
	}

	d.Mapping.In, err = resolveRules(s.Map.In, funcs)
	if err != nil {
		return d, fmt.Errorf("port type %s: in: %w", s.Name, err)
	}

	if err := d.Validate(); err != nil {
		return d, err
	}

	return d, nil
}

func resolveRules(
	specs []RuleSpec,
	funcs *translation.FuncRegistry,
) ([]translation.MappingRule, error) {
	var rules []translation.MappingRule

	for _, rs := range specs {
		r := translation.MappingRule{InType: rs.Type}

		for i, ts := range rs.Targets {
			t, err := resolveTarget(ts, funcs)
			if err != nil {
				return nil, fmt.Errorf("rule for %s, target %d: %w",
					rs.Type, i, err)
			}

			r.Targets = append(r.Targets, t)
		}

		rules = append(rules, r)
	}

	return rules, nil
}

func resolveTarget(
	ts TargetSpec,
	funcs *translation.FuncRegistry,
) (translation.MappingTarget, error) {
	kind, err := translation.ParseTargetKind(ts.Kind)
	if err != nil {
		return translation.MappingTarget{}, err
	}

	switch kind {
	case translation.Simple:
		return translation.SimpleTarget(ts.Out), nil
	case translation.Discard:
		return translation.DiscardTarget(), nil
	case translation.Function:
		strategy, err := translation.ParseStrategy(ts.Strategy)
		if err != nil {
			return translation.MappingTarget{}, err
		}

		return funcs.Target(strategy, ts.Function, ts.Out)
	default:
		behavior, err := codec.ParseErrorBehavior(ts.ErrorBehavior)
		if err != nil {
			return translation.MappingTarget{}, err
		}

		params := translation.CodecParams{
			Descriptor:    ts.Descriptor,
			Encoding:      ts.Encoding,
			Options:       codec.Options(ts.Options),
			ErrorBehavior: behavior,
		}

		if kind == translation.Encode {
			return translation.EncodeTarget(ts.Out, params), nil
		}

		return translation.DecodeTarget(ts.Out, params), nil
	}
}
