// Package placeholder tokenizes module templates.
//
// A template is plain text with `${name}` placeholders where name is a C
// identifier. `$$` stands for a literal dollar sign. Any other use of `$` is
// passed through unchanged. Tokenizing never evaluates anything.
package placeholder

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reserved holds C and C++ keywords that may not be used as generated names.
var reserved = map[string]struct{}{
	"auto": {}, "break": {}, "case": {}, "char": {}, "const": {}, "continue": {},
	"default": {}, "do": {}, "double": {}, "else": {}, "enum": {}, "extern": {},
	"float": {}, "for": {}, "goto": {}, "if": {}, "inline": {}, "int": {},
	"long": {}, "register": {}, "restrict": {}, "return": {}, "short": {},
	"signed": {}, "sizeof": {}, "static": {}, "struct": {}, "switch": {},
	"typedef": {}, "union": {}, "unsigned": {}, "void": {}, "volatile": {},
	"while": {}, "bool": {}, "class": {}, "delete": {}, "new": {}, "namespace": {},
	"operator": {}, "private": {}, "protected": {}, "public": {}, "template": {},
	"this": {}, "throw": {}, "try": {}, "catch": {}, "using": {}, "virtual": {},
	"main": {},
}

// IsIdentifier reports whether s is a C identifier.
func IsIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// IsReserved reports whether s is a keyword or otherwise reserved name.
func IsReserved(s string) bool {
	_, ok := reserved[s]
	return ok
}

// Segment is one piece of a tokenized template: literal text or a placeholder.
type Segment struct {
	Text        string
	Placeholder string // Non-empty for placeholder segments
}

// IsPlaceholder reports whether the segment is a placeholder.
func (s Segment) IsPlaceholder() bool {
	return s.Placeholder != ""
}

// Scan splits source into segments. It fails on an unterminated `${` or a
// placeholder whose name is not an identifier.
func Scan(source string) ([]Segment, error) {
	var (
		segments []Segment
		text     strings.Builder
	)

	flush := func() {
		if text.Len() > 0 {
			segments = append(segments, Segment{Text: text.String()})
			text.Reset()
		}
	}

	for i := 0; i < len(source); {
		c := source[i]
		if c != '$' || i+1 >= len(source) {
			text.WriteByte(c)
			i++
			continue
		}

		switch source[i+1] {
		case '$':
			text.WriteByte('$')
			i += 2
		case '{':
			end := strings.IndexByte(source[i+2:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unterminated placeholder at offset %d", i)
			}
			name := source[i+2 : i+2+end]
			if !IsIdentifier(name) {
				return nil, fmt.Errorf("invalid placeholder name %q at offset %d", name, i)
			}
			flush()
			segments = append(segments, Segment{Placeholder: name})
			i += 2 + end + 1
		default:
			text.WriteByte(c)
			i++
		}
	}
	flush()

	return segments, nil
}

// Names returns the distinct placeholder names in source, sorted.
func Names(source string) ([]string, error) {
	segments, err := Scan(source)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, s := range segments {
		if s.IsPlaceholder() {
			names = append(names, s.Placeholder)
		}
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}

// Expand joins segments, replacing each placeholder with the value returned
// by lookup. Replacement text is never rescanned.
func Expand(segments []Segment, lookup func(name string) (string, error)) (string, error) {
	var b strings.Builder
	for _, s := range segments {
		if !s.IsPlaceholder() {
			b.WriteString(s.Text)
			continue
		}
		v, err := lookup(s.Placeholder)
		if err != nil {
			return "", err
		}
		b.WriteString(v)
	}
	return b.String(), nil
}
