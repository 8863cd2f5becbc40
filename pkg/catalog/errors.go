package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrModuleNotFound is returned when a module id is not registered.
	ErrModuleNotFound = errors.New("module not found")

	// ErrDuplicateModuleID is returned when registering an id that already exists.
	ErrDuplicateModuleID = errors.New("duplicate module id")

	// ErrRegistryFrozen is returned when registering after the registry froze.
	ErrRegistryFrozen = errors.New("registry frozen")

	// ErrInvalidModule is returned when a module fails validation.
	ErrInvalidModule = errors.New("invalid module")

	// ErrKindMismatch is returned when a value or data-flow edge disagrees
	// with the kind a parameter declares.
	ErrKindMismatch = errors.New("kind mismatch")
)

// KindMismatchError describes a kind disagreement for one parameter.
type KindMismatchError struct {
	Param string
	Want  ParamKind
	Got   string
}

func (e *KindMismatchError) Error() string {
	return fmt.Sprintf("%v: parameter %q expects %s, got %s", ErrKindMismatch, e.Param, e.Want, e.Got)
}

func (e *KindMismatchError) Unwrap() error {
	return ErrKindMismatch
}
