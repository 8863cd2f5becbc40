// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package build writes assembled units to disk and drives an external
// toolchain over them.
package build

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/mod/sumdb/dirhash"

	"github.com/vulntor/forge/pkg/catalog"
	"github.com/vulntor/forge/pkg/chain"
	"github.com/vulntor/forge/pkg/deps"
	"github.com/vulntor/forge/pkg/workspace"
)

// Artifact is the result of a successful build.
type Artifact struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Path    string `json:"path"`
	WorkDir string `json:"workDir"`
	// SourceDigest is the dirhash of the work directory before compilation.
	SourceDigest string        `json:"sourceDigest"`
	UnitDigest   string        `json:"unitDigest"`
	Toolchain    ToolchainKind `json:"toolchain"`
	Output       string        `json:"output,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// buildManifest is written next to the source as manifest.json.
type buildManifest struct {
	Name      string           `json:"name"`
	Platform  catalog.Platform `json:"platform"`
	Language  catalog.Language `json:"language"`
	Source    string           `json:"source"`
	Digest    string           `json:"digest"`
	Includes  []string         `json:"includes"`
	Libraries []string         `json:"libraries"`
	Packages  []string         `json:"packages,omitempty"`
	Functions []chain.Function `json:"functions"`
	Notes     []string         `json:"notes,omitempty"`
	Toolchain ToolchainKind    `json:"toolchain"`
	Static    bool             `json:"static,omitempty"`
}

// Orchestrator builds units inside a workspace.
type Orchestrator struct {
	root       string
	toolchains map[ToolchainKind]Toolchain
	timeout    time.Duration
	lookPath   func(string) (string, error)
	logger     zerolog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTimeout bounds every build. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

// WithToolchain replaces the toolchain used for kind.
func WithToolchain(kind ToolchainKind, tc Toolchain) Option {
	return func(o *Orchestrator) { o.toolchains[kind] = tc }
}

// WithLogger sets the orchestrator logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// NewOrchestrator returns an orchestrator writing below the workspace root.
func NewOrchestrator(root string, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		root: root,
		toolchains: map[ToolchainKind]Toolchain{
			ToolchainCompiler: CompilerToolchain{},
			ToolchainCMake:    CMakeToolchain{},
		},
		lookPath: exec.LookPath,
		logger:   log.With().Str("component", "build").Logger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Build writes unit into a fresh work directory and compiles it. Everything
// is validated before the first write.
func (o *Orchestrator) Build(ctx context.Context, unit *chain.Unit, target TargetSpec) (*Artifact, error) {
	start := time.Now()

	if unit == nil {
		return nil, fmt.Errorf("%w: no unit", ErrInvalidTarget)
	}
	if err := target.Validate(); err != nil {
		return nil, err
	}
	if err := checkCompatible(unit, target); err != nil {
		return nil, err
	}

	target = target.withDefaults(unit.Language())
	tc, ok := o.toolchains[target.Toolchain]
	if !ok {
		return nil, fmt.Errorf("%w: unknown toolchain %q", ErrInvalidTarget, target.Toolchain)
	}
	tool := target.Compiler
	if target.Toolchain == ToolchainCMake {
		tool = target.CMake
	}
	if _, err := o.lookPath(tool); err != nil {
		return nil, fmt.Errorf("%w: %s not found: %v", ErrToolchain, tool, err)
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	builds := workspace.Builds(o.root)
	if err := os.MkdirAll(builds, 0o750); err != nil {
		return nil, fmt.Errorf("create build directory: %w", err)
	}

	// Builds of the same unit name share an output location.
	lock := flock.New(filepath.Join(builds, unit.Name()+".lock"))
	locked, err := lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: waiting for build lock: %v", ErrCancelled, ctx.Err())
		}
		return nil, fmt.Errorf("acquire build lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: build lock for %s not acquired", ErrCancelled, unit.Name())
	}
	defer func() { _ = lock.Unlock() }()

	id := uuid.NewString()
	job := &Job{
		Name:       unit.Name(),
		WorkDir:    filepath.Join(builds, unit.Name()+"-"+id),
		SourceFile: unit.FileName(),
		Manifest:   unit.Manifest(),
		Target:     target,
	}

	logger := o.logger.With().Str("unit", unit.Name()).Str("build_id", id).Str("toolchain", string(target.Toolchain)).Logger()
	logger.Info().Str("work_dir", job.WorkDir).Msg("Starting build")

	if err := writeWorkDir(job, unit); err != nil {
		return nil, err
	}
	if err := tc.Prepare(job); err != nil {
		return nil, err
	}

	digest, err := dirhash.HashDir(job.WorkDir, unit.Name(), dirhash.Hash1)
	if err != nil {
		return nil, fmt.Errorf("digest work directory: %w", err)
	}

	output, binary, err := tc.Run(ctx, job)
	if err != nil {
		var tcErr *ToolchainError
		if errors.As(err, &tcErr) {
			logger.Warn().Int("exit_code", tcErr.ExitCode).Msg("Toolchain failed")
		} else {
			logger.Warn().Err(err).Msg("Build aborted")
		}
		return nil, err
	}

	path := binary
	if target.OutputPath != "" {
		if err := moveFile(binary, target.OutputPath); err != nil {
			return nil, fmt.Errorf("move artifact: %w", err)
		}
		path = target.OutputPath
	}

	artifact := &Artifact{
		ID:           id,
		Name:         unit.Name(),
		Path:         path,
		WorkDir:      job.WorkDir,
		SourceDigest: digest,
		UnitDigest:   unit.Digest(),
		Toolchain:    target.Toolchain,
		Output:       string(output),
		Duration:     time.Since(start),
	}
	logger.Info().Str("artifact", path).Dur("duration", artifact.Duration).Msg("Build finished")
	return artifact, nil
}

func checkCompatible(unit *chain.Unit, target TargetSpec) error {
	if target.Platform != "" && !unit.Platform().CompatibleWith(target.Platform) {
		return fmt.Errorf("%w: unit targets %s, build targets %s", deps.ErrPlatformConflict, unit.Platform(), target.Platform)
	}
	if target.Language != "" && target.Language != unit.Language() {
		return fmt.Errorf("%w: unit is %s, target language is %s", ErrInvalidTarget, unit.Language(), target.Language)
	}
	return nil
}

func writeWorkDir(job *Job, unit *chain.Unit) error {
	if err := os.MkdirAll(job.WorkDir, 0o750); err != nil {
		return fmt.Errorf("create work directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(job.WorkDir, job.SourceFile), []byte(unit.Source()), 0o640); err != nil {
		return fmt.Errorf("write source: %w", err)
	}

	manifest := buildManifest{
		Name:      unit.Name(),
		Platform:  unit.Platform(),
		Language:  unit.Language(),
		Source:    job.SourceFile,
		Digest:    unit.Digest(),
		Includes:  unit.Includes(),
		Libraries: unit.Libraries(),
		Packages:  unit.Packages(),
		Functions: unit.Functions(),
		Notes:     unit.Notes(),
		Toolchain: job.Target.Toolchain,
		Static:    job.Target.Static,
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(job.WorkDir, "manifest.json"), append(data, '\n'), 0o640); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// moveFile renames src to dst, copying when they sit on different devices.
func moveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
