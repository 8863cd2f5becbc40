package template

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/spf13/cast"

	"github.com/vulntor/forge/pkg/catalog"
)

// ValueKind is the runtime kind of a bound value.
type ValueKind string

const (
	ValueText   ValueKind = "text"
	ValuePath   ValueKind = "path"
	ValueInt    ValueKind = "integer"
	ValueBuffer ValueKind = "buffer"
	ValueSymbol ValueKind = "symbol"
	ValueVar    ValueKind = "var" // Driver-owned variable carrying a step output

	// ValueUnsupported is a request literal no parameter kind accepts.
	ValueUnsupported ValueKind = "unsupported"
)

// Value is a concrete value bound to a placeholder.
type Value struct {
	kind    ValueKind
	text    string
	num     int64
	varKind catalog.ParamKind
}

// Text returns a string value.
func Text(s string) Value { return Value{kind: ValueText, text: s} }

// Path returns a filesystem path value.
func Path(p string) Value { return Value{kind: ValuePath, text: p} }

// Int returns an integer value.
func Int(n int64) Value { return Value{kind: ValueInt, num: n} }

// Buffer returns a reference to the driver-owned buffer called name.
func Buffer(name string) Value { return Value{kind: ValueBuffer, text: name} }

// Symbol returns a bare identifier value.
func Symbol(name string) Value { return Value{kind: ValueSymbol, text: name} }

// Var returns a reference to a driver-owned variable holding a value of kind.
func Var(name string, kind catalog.ParamKind) Value {
	return Value{kind: ValueVar, text: name, varKind: kind}
}

// Kind returns the runtime kind of v.
func (v Value) Kind() ValueKind { return v.kind }

// IsZero reports whether v was never assigned.
func (v Value) IsZero() bool { return v.kind == "" }

// Raw returns the text of a text, path, buffer, symbol or var value.
func (v Value) Raw() string { return v.text }

// Int64 returns the integer of an integer value.
func (v Value) Int64() int64 { return v.num }

// VarKind returns the parameter kind carried by a var value.
func (v Value) VarKind() catalog.ParamKind { return v.varKind }

// Describe names the value kind for diagnostics.
func (v Value) Describe() string {
	switch v.kind {
	case ValueVar:
		return fmt.Sprintf("var(%s)", v.varKind)
	case ValueUnsupported:
		return v.text
	default:
		return string(v.kind)
	}
}

func (v Value) String() string {
	switch v.kind {
	case ValueInt:
		return strconv.FormatInt(v.num, 10)
	case ValueText, ValuePath:
		return strconv.Quote(v.text)
	case "":
		return "<unset>"
	default:
		return v.text
	}
}

// AssignableTo reports whether v may bind a parameter of kind k.
func (v Value) AssignableTo(k catalog.ParamKind) bool {
	switch v.kind {
	case ValueText, ValuePath:
		return k == catalog.KindString || k == catalog.KindPath
	case ValueInt:
		return k == catalog.KindInteger
	case ValueBuffer:
		return k == catalog.KindBuffer
	case ValueSymbol:
		return k == catalog.KindSymbol
	case ValueVar:
		return k == v.varKind
	default:
		return false
	}
}

// Literal returns the value a decoded request literal carries on its own.
// Strings are text and whole numbers are integers. A nil literal yields the
// zero Value so the parameter stays unbound. Anything else, such as a bool
// or a fractional number, yields a value that no parameter kind accepts.
func Literal(raw any) Value {
	switch x := raw.(type) {
	case nil:
		return Value{}
	case Value:
		return x
	case string:
		return Text(x)
	case bool:
		return unsupported("bool %t", x)
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return Int(n)
		}
		f, err := x.Float64()
		if err != nil {
			return unsupported("number %s", x)
		}
		return fromFloat(f)
	case float32:
		return fromFloat(float64(x))
	case float64:
		return fromFloat(x)
	case uint, uint64:
		n := cast.ToUint64(x)
		if n > math.MaxInt64 {
			return unsupported("number %d", n)
		}
		return Int(int64(n))
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return Int(cast.ToInt64(x))
	default:
		return unsupported("%T", raw)
	}
}

func fromFloat(f float64) Value {
	if f != math.Trunc(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return unsupported("number %v", f)
	}
	return Int(int64(f))
}

func unsupported(format string, args ...any) Value {
	return Value{kind: ValueUnsupported, text: fmt.Sprintf(format, args...)}
}

// ValueOf converts a module default into a value of the given parameter
// kind. Strings may default text, path, buffer and symbol parameters and
// whole numbers may default integers; nothing else converts.
func ValueOf(kind catalog.ParamKind, raw any) (Value, error) {
	lit := Literal(raw)
	switch {
	case lit.kind != ValueText && lit.AssignableTo(kind):
		return lit, nil
	case lit.kind == ValueText && kind == catalog.KindString:
		return lit, nil
	case lit.kind == ValueText && kind == catalog.KindPath:
		return Path(lit.text), nil
	case lit.kind == ValueText && kind == catalog.KindBuffer:
		return Buffer(lit.text), nil
	case lit.kind == ValueText && kind == catalog.KindSymbol:
		return Symbol(lit.text), nil
	case lit.IsZero():
		return Value{}, fmt.Errorf("no value for %s", kind)
	case !kind.IsValid():
		return Value{}, fmt.Errorf("unknown parameter kind %q", kind)
	default:
		return Value{}, fmt.Errorf("cannot use %s as %s: %w", lit.Describe(), kind, catalog.ErrKindMismatch)
	}
}

// Binding maps placeholder names to values.
type Binding map[string]Value

// Clone returns a copy of b.
func (b Binding) Clone() Binding {
	out := make(Binding, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// WithDefaults returns a copy of b in which every unbound parameter of m that
// declares a default is bound to it.
func WithDefaults(m *catalog.Module, b Binding) (Binding, error) {
	out := b.Clone()
	for _, p := range m.Params {
		if _, ok := out[p.Name]; ok || !p.HasDefault() {
			continue
		}
		v, err := ValueOf(p.Kind, p.Default)
		if err != nil {
			return nil, fmt.Errorf("%s: default for %q: %w", m.ID, p.Name, err)
		}
		out[p.Name] = v
	}
	return out, nil
}
