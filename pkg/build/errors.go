// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package build

import (
	"errors"
	"fmt"
)

var (
	// ErrToolchain is returned when the toolchain fails or cannot be started.
	ErrToolchain = errors.New("toolchain failed")

	// ErrCancelled is returned when the build context is cancelled or times out.
	ErrCancelled = errors.New("build cancelled")

	// ErrInvalidTarget is returned when a target spec fails validation.
	ErrInvalidTarget = errors.New("invalid build target")
)

// ToolchainError carries the exit status and verbatim output of a failed
// toolchain process.
type ToolchainError struct {
	Tool        string
	ExitCode    int
	Diagnostics string
}

func (e *ToolchainError) Error() string {
	return fmt.Sprintf("%v: %s exited with status %d", ErrToolchain, e.Tool, e.ExitCode)
}

func (e *ToolchainError) Unwrap() error { return ErrToolchain }
