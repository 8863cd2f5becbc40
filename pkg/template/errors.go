package template

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingBinding is returned when a declared parameter has no value.
	ErrMissingBinding = errors.New("missing binding")

	// ErrUnknownPlaceholder is returned for a binding or template token the
	// module does not declare.
	ErrUnknownPlaceholder = errors.New("unknown placeholder")

	// ErrUnsafeValue is returned when a value cannot be emitted safely.
	ErrUnsafeValue = errors.New("unsafe value")
)

// MissingBindingError names the first unbound parameter in schema order.
type MissingBindingError struct {
	Module string
	Name   string
}

func (e *MissingBindingError) Error() string {
	return fmt.Sprintf("%s: %v: %q", e.Module, ErrMissingBinding, e.Name)
}

func (e *MissingBindingError) Unwrap() error { return ErrMissingBinding }

// UnknownPlaceholderError names the first unknown placeholder in sorted order.
type UnknownPlaceholderError struct {
	Module string
	Name   string
}

func (e *UnknownPlaceholderError) Error() string {
	return fmt.Sprintf("%s: %v: %q", e.Module, ErrUnknownPlaceholder, e.Name)
}

func (e *UnknownPlaceholderError) Unwrap() error { return ErrUnknownPlaceholder }

// UnsafeValueError describes a value that cannot be emitted.
type UnsafeValueError struct {
	Module string
	Name   string
	Reason string
}

func (e *UnsafeValueError) Error() string {
	if e.Module == "" {
		return fmt.Sprintf("%v %q: %s", ErrUnsafeValue, e.Name, e.Reason)
	}
	return fmt.Sprintf("%s: %v %q: %s", e.Module, ErrUnsafeValue, e.Name, e.Reason)
}

func (e *UnsafeValueError) Unwrap() error { return ErrUnsafeValue }
