// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
)

// run executes name in dir and returns its combined output. Cancelling ctx
// kills the whole process group and yields ErrCancelled.
func run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCancelled, err)
	}

	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	setProcessGroup(cmd)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed to start %s: %v", ErrToolchain, name, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case <-ctx.Done():
		killProcessGroup(cmd)
		<-done
		return out.Bytes(), fmt.Errorf("%w: %s: %v", ErrCancelled, filepath.Base(name), ctx.Err())
	case err := <-done:
		if err == nil {
			return out.Bytes(), nil
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return out.Bytes(), &ToolchainError{
				Tool:        filepath.Base(name),
				ExitCode:    exitErr.ExitCode(),
				Diagnostics: out.String(),
			}
		}
		return out.Bytes(), fmt.Errorf("%w: %s: %v", ErrToolchain, name, err)
	}
}
