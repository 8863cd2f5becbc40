// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package chain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/vulntor/forge/pkg/catalog"
	"github.com/vulntor/forge/pkg/template"
)

var requestNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,127}$`)

// Request is a declarative chain request: an ordered list of steps, each
// naming a module and binding its parameters.
type Request struct {
	Name     string           `yaml:"name" json:"name"`
	Platform catalog.Platform `yaml:"platform,omitempty" json:"platform,omitempty"`
	Language catalog.Language `yaml:"language,omitempty" json:"language,omitempty"`
	Steps    []Step           `yaml:"steps" json:"steps"`
}

// Step selects one module and binds its parameters.
type Step struct {
	Module string `yaml:"module" json:"module"`
	// Version is an optional semver constraint on the module version.
	Version string         `yaml:"version,omitempty" json:"version,omitempty"`
	Params  map[string]Arg `yaml:"params,omitempty" json:"params,omitempty"`
	// Outputs restricts the outputs the step publishes. Nil publishes every
	// declared output.
	Outputs []string `yaml:"outputs,omitempty" json:"outputs,omitempty"`
}

// Ref names an output of an earlier step.
type Ref struct {
	FromStep int    `yaml:"fromStep" json:"fromStep"`
	Output   string `yaml:"output" json:"output"`
}

// Arg is the value a request binds to one parameter: a scalar literal, a
// reference to an earlier step's output, or an explicitly kinded value.
type Arg struct {
	Literal any
	Ref     *Ref
	Buffer  string
	Path    string
	Symbol  string
}

// Literal returns a scalar argument. Strings bind as text and whole numbers
// as integers; a nil literal leaves the parameter unbound.
func Literal(v any) Arg { return Arg{Literal: v} }

// FromStep returns a reference to output of step.
func FromStep(step int, output string) Arg {
	return Arg{Ref: &Ref{FromStep: step, Output: output}}
}

// BufferArg returns a reference to a driver-owned buffer.
func BufferArg(name string) Arg { return Arg{Buffer: name} }

// PathArg returns an explicit path argument.
func PathArg(p string) Arg { return Arg{Path: p} }

// SymbolArg returns a bare identifier argument.
func SymbolArg(name string) Arg { return Arg{Symbol: name} }

// IsRef reports whether the argument refers to another step.
func (a Arg) IsRef() bool { return a.Ref != nil }

// value converts a non-reference argument into a template value. A scalar
// literal keeps the kind it was decoded with, so the renderer can reject it
// when the parameter declares another kind.
func (a Arg) value() template.Value {
	switch {
	case a.Buffer != "":
		return template.Buffer(a.Buffer)
	case a.Path != "":
		return template.Path(a.Path)
	case a.Symbol != "":
		return template.Symbol(a.Symbol)
	}
	return template.Literal(a.Literal)
}

// argForm is the mapping form of an argument.
type argForm struct {
	FromStep *int
	Output   string
	Buffer   string
	Path     string
	Symbol   string
	Value    any
}

func (f argForm) arg() (Arg, error) {
	forms := 0
	var a Arg
	if f.FromStep != nil {
		forms++
		if f.Output == "" {
			return Arg{}, fmt.Errorf("reference to step %d has no output", *f.FromStep)
		}
		a.Ref = &Ref{FromStep: *f.FromStep, Output: f.Output}
	} else if f.Output != "" {
		return Arg{}, fmt.Errorf("output %q given without fromStep", f.Output)
	}
	if f.Buffer != "" {
		forms++
		a.Buffer = f.Buffer
	}
	if f.Path != "" {
		forms++
		a.Path = f.Path
	}
	if f.Symbol != "" {
		forms++
		a.Symbol = f.Symbol
	}
	if f.Value != nil {
		forms++
		a.Literal = f.Value
	}
	if forms != 1 {
		return Arg{}, fmt.Errorf("argument must have exactly one of fromStep, buffer, path, symbol or value")
	}
	return a, nil
}

func argFromMap(m map[string]any) (Arg, error) {
	var f argForm
	for k, v := range m {
		switch k {
		case "fromStep", "from_step":
			n, err := cast.ToIntE(v)
			if err != nil {
				return Arg{}, fmt.Errorf("fromStep: %w", err)
			}
			f.FromStep = &n
		case "output":
			f.Output = cast.ToString(v)
		case "buffer":
			f.Buffer = cast.ToString(v)
		case "path":
			f.Path = cast.ToString(v)
		case "symbol":
			f.Symbol = cast.ToString(v)
		case "value":
			f.Value = v
		default:
			return Arg{}, fmt.Errorf("unknown argument field %q", k)
		}
	}
	return f.arg()
}

// UnmarshalYAML accepts a scalar literal or an argument mapping.
func (a *Arg) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v any
		if err := node.Decode(&v); err != nil {
			return err
		}
		*a = Arg{Literal: v}
		return nil
	case yaml.MappingNode:
		var m map[string]any
		if err := node.Decode(&m); err != nil {
			return err
		}
		arg, err := argFromMap(m)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*a = arg
		return nil
	default:
		return fmt.Errorf("line %d: argument must be a scalar or a mapping", node.Line)
	}
}

// MarshalYAML writes the argument back in the form UnmarshalYAML reads.
func (a Arg) MarshalYAML() (any, error) {
	return a.native(), nil
}

// UnmarshalJSON accepts a scalar literal or an argument object.
func (a *Arg) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	switch t := v.(type) {
	case map[string]any:
		arg, err := argFromMap(t)
		if err != nil {
			return err
		}
		*a = arg
	case []any:
		return fmt.Errorf("argument must be a scalar or an object")
	default:
		*a = Arg{Literal: t}
	}
	return nil
}

// MarshalJSON writes the argument back in the form UnmarshalJSON reads.
func (a Arg) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.native())
}

func (a Arg) native() any {
	switch {
	case a.Ref != nil:
		return map[string]any{"fromStep": a.Ref.FromStep, "output": a.Ref.Output}
	case a.Buffer != "":
		return map[string]any{"buffer": a.Buffer}
	case a.Path != "":
		return map[string]any{"path": a.Path}
	case a.Symbol != "":
		return map[string]any{"symbol": a.Symbol}
	default:
		return a.Literal
	}
}

func (a Arg) String() string {
	switch {
	case a.Ref != nil:
		return fmt.Sprintf("step[%d].%s", a.Ref.FromStep, a.Ref.Output)
	case a.Buffer != "":
		return "buffer:" + a.Buffer
	case a.Path != "":
		return "path:" + a.Path
	case a.Symbol != "":
		return "symbol:" + a.Symbol
	default:
		return cast.ToString(a.Literal)
	}
}

// Validate checks the request shape. Module ids and bindings are checked
// during assembly.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRequest)
	}
	if !requestNamePattern.MatchString(r.Name) {
		return fmt.Errorf("%w: name %q may only contain letters, digits, '.', '_' and '-'", ErrInvalidRequest, r.Name)
	}
	if len(r.Steps) == 0 {
		return fmt.Errorf("%w: %s: at least one step is required", ErrInvalidRequest, r.Name)
	}
	if r.Platform != "" && !r.Platform.IsValid() {
		return fmt.Errorf("%w: %s: unknown platform %q", ErrInvalidRequest, r.Name, r.Platform)
	}
	if r.Language != "" && !r.Language.IsValid() {
		return fmt.Errorf("%w: %s: unknown language %q", ErrInvalidRequest, r.Name, r.Language)
	}
	for i, s := range r.Steps {
		if strings.TrimSpace(s.Module) == "" {
			return fmt.Errorf("%w: %s: step %d has no module", ErrInvalidRequest, r.Name, i)
		}
	}
	return nil
}
