// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package chain

import (
	"errors"
	"fmt"
)

var (
	// ErrForwardReference is returned when a step references itself, a later
	// step or a step that does not exist.
	ErrForwardReference = errors.New("forward reference")

	// ErrUnknownOutput is returned when a reference names an output the source
	// step does not publish.
	ErrUnknownOutput = errors.New("unknown output")

	// ErrInvalidRequest is returned for malformed chain requests.
	ErrInvalidRequest = errors.New("invalid chain request")
)

// State is a point in the assembly lifecycle.
type State int

const (
	StateReceived State = iota
	StateValidated
	StateRendered
	StateResolved
	StateAssembled
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateValidated:
		return "validated"
	case StateRendered:
		return "rendered"
	case StateResolved:
		return "resolved"
	case StateAssembled:
		return "assembled"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// StageError reports the stage an assembly failed to reach.
type StageError struct {
	Request string
	Stage   State
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("chain %s: %s stage: %v", e.Request, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
