// Package template binds values to module placeholders and renders C source.
//
// Rendering is all-or-nothing: a binding is checked completely before any
// text is produced, in this order: unknown placeholders, missing bindings,
// kind mismatches, unsafe values.
package template

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/vulntor/forge/pkg/catalog"
	"github.com/vulntor/forge/pkg/placeholder"
)

// Rendered is the output of rendering one module instance.
type Rendered struct {
	// Entry is the renamed entry point.
	Entry string
	// Function is the rendered module source.
	Function string
	// Call is the rendered call site.
	Call string
	// Renames maps every renamed placeholder to its emitted name.
	Renames map[string]string
}

// Tokens lists the distinct placeholder tokens of source, sorted.
func Tokens(source string) ([]string, error) {
	return placeholder.Names(source)
}

// Render substitutes b into m's source and call templates. The entry point is
// emitted as entryName and every global gets suffix appended.
func Render(m *catalog.Module, b Binding, entryName, suffix string) (Rendered, error) {
	renames := make(map[string]string, 1+len(m.Globals))
	renames[m.EntryPoint] = entryName
	for _, g := range m.Globals {
		renames[g] = g + suffix
	}

	source, err := placeholder.Scan(m.Source)
	if err != nil {
		return Rendered{}, fmt.Errorf("%s: source template: %w", m.ID, err)
	}
	call, err := placeholder.Scan(m.CallTemplate())
	if err != nil {
		return Rendered{}, fmt.Errorf("%s: call template: %w", m.ID, err)
	}

	// Unknown names: bindings the schema does not declare and template tokens
	// that are neither parameters nor renamed symbols.
	var unknown []string
	for name := range b {
		if _, ok := m.Param(name); !ok {
			unknown = append(unknown, name)
		}
	}
	for _, segs := range [][]placeholder.Segment{source, call} {
		for _, s := range segs {
			if !s.IsPlaceholder() {
				continue
			}
			if _, ok := renames[s.Placeholder]; ok {
				continue
			}
			if _, ok := m.Param(s.Placeholder); !ok {
				unknown = append(unknown, s.Placeholder)
			}
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return Rendered{}, &UnknownPlaceholderError{Module: m.ID, Name: unknown[0]}
	}

	for _, p := range m.Params {
		if v, ok := b[p.Name]; !ok || v.IsZero() {
			return Rendered{}, &MissingBindingError{Module: m.ID, Name: p.Name}
		}
	}

	for _, p := range m.Params {
		v := b[p.Name]
		if !v.AssignableTo(p.Kind) {
			return Rendered{}, fmt.Errorf("%s: %w", m.ID, &catalog.KindMismatchError{Param: p.Name, Want: p.Kind, Got: v.Describe()})
		}
	}

	values := make(map[string]string, len(m.Params)+len(renames))
	for _, p := range m.Params {
		text, err := Format(b[p.Name])
		if err != nil {
			return Rendered{}, withContext(err, m.ID, p.Name)
		}
		values[p.Name] = text
	}
	for _, name := range m.Renamed() {
		emitted := renames[name]
		if err := checkIdentifier(emitted); err != nil {
			return Rendered{}, withContext(err, m.ID, name)
		}
		values[name] = emitted
	}

	lookup := func(name string) (string, error) {
		text, ok := values[name]
		if !ok {
			return "", &UnknownPlaceholderError{Module: m.ID, Name: name}
		}
		return text, nil
	}
	function, err := placeholder.Expand(source, lookup)
	if err != nil {
		return Rendered{}, fmt.Errorf("%s: source template: %w", m.ID, err)
	}
	callSite, err := placeholder.Expand(call, lookup)
	if err != nil {
		return Rendered{}, fmt.Errorf("%s: call template: %w", m.ID, err)
	}

	return Rendered{
		Entry:    entryName,
		Function: function,
		Call:     callSite,
		Renames:  renames,
	}, nil
}

func withContext(err error, module, name string) error {
	if uv, ok := err.(*UnsafeValueError); ok {
		return &UnsafeValueError{Module: module, Name: name, Reason: uv.Reason}
	}
	return err
}

// Format returns the C token for v: a string literal for text and paths, a
// decimal number for integers and a bare identifier otherwise.
func Format(v Value) (string, error) {
	switch v.kind {
	case ValueText, ValuePath:
		return Quote(v.text)
	case ValueInt:
		return strconv.FormatInt(v.num, 10), nil
	case ValueBuffer, ValueSymbol, ValueVar:
		if err := checkIdentifier(v.text); err != nil {
			return "", err
		}
		return v.text, nil
	default:
		return "", &UnsafeValueError{Reason: "value is unset"}
	}
}

// Quote returns s as a C string literal. NUL bytes, other control characters
// and invalid UTF-8 are rejected.
func Quote(s string) (string, error) {
	if !utf8.ValidString(s) {
		return "", &UnsafeValueError{Reason: "invalid UTF-8"}
	}

	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '?':
			// Breaks trigraph sequences.
			b.WriteString(`\?`)
		case 0:
			return "", &UnsafeValueError{Reason: "contains NUL byte"}
		default:
			if r < 0x20 || r == 0x7f {
				return "", &UnsafeValueError{Reason: fmt.Sprintf("contains control character %U", r)}
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String(), nil
}

func checkIdentifier(name string) error {
	if !placeholder.IsIdentifier(name) {
		return &UnsafeValueError{Name: name, Reason: fmt.Sprintf("%q is not a valid identifier", name)}
	}
	if placeholder.IsReserved(name) {
		return &UnsafeValueError{Name: name, Reason: fmt.Sprintf("%q is a reserved word", name)}
	}
	return nil
}
