// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package engine runs chain requests end to end: assembly against a frozen
// catalog, then an optional build. Failures are reported as Diagnostics.
package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/vulntor/forge/pkg/build"
	"github.com/vulntor/forge/pkg/catalog"
	"github.com/vulntor/forge/pkg/chain"
)

// Engine ties the catalog, the assembler and the build orchestrator together.
// It is safe for concurrent use once the registry is populated.
type Engine struct {
	registry    *catalog.Registry
	builder     *build.Orchestrator
	concurrency int
	logger      zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithBuilder sets the orchestrator used by Build.
func WithBuilder(b *build.Orchestrator) Option {
	return func(e *Engine) { e.builder = b }
}

// WithConcurrency bounds the number of requests GenerateAll assembles at once.
// Values below one select GOMAXPROCS.
func WithConcurrency(n int) Option {
	return func(e *Engine) { e.concurrency = n }
}

// WithLogger sets the engine logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New returns an engine over reg. The registry is frozen immediately.
func New(reg *catalog.Registry, opts ...Option) *Engine {
	e := &Engine{
		registry: reg,
		logger:   log.With().Str("component", "engine").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.concurrency < 1 {
		e.concurrency = runtime.GOMAXPROCS(0)
	}
	reg.Freeze()
	return e
}

// Registry returns the engine's catalog.
func (e *Engine) Registry() *catalog.Registry { return e.registry }

// buildError marks a failure inside the build orchestrator.
type buildError struct {
	err error
}

func (e *buildError) Error() string { return e.err.Error() }

func (e *buildError) Unwrap() error { return e.err }

// Generate assembles req into a unit. A context that is already done fails
// the request at the received stage.
func (e *Engine) Generate(ctx context.Context, req *chain.Request) (*chain.Unit, error) {
	if err := ctx.Err(); err != nil {
		name := ""
		if req != nil {
			name = req.Name
		}
		return nil, &chain.StageError{Request: name, Stage: chain.StateReceived, Err: fmt.Errorf("%w: %v", build.ErrCancelled, err)}
	}
	assembler := chain.NewAssembler(e.registry, chain.WithLogger(e.logger))
	return assembler.Assemble(req)
}

// Build assembles req and compiles it for target. A request without a
// platform takes the target's. Every orchestrator failure is reported at the
// built stage.
func (e *Engine) Build(ctx context.Context, req *chain.Request, target build.TargetSpec) (*chain.Unit, *build.Artifact, error) {
	if e.builder == nil {
		return nil, nil, errors.New("engine has no build orchestrator")
	}
	if req != nil && req.Platform == "" && target.Platform != "" && target.Platform != catalog.PlatformAny {
		scoped := *req
		scoped.Platform = target.Platform
		req = &scoped
	}

	unit, err := e.Generate(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	artifact, err := e.builder.Build(ctx, unit, target)
	if err != nil {
		return unit, nil, &buildError{err: err}
	}
	return unit, artifact, nil
}

// Result is the outcome of one request of a batch.
type Result struct {
	Request *chain.Request
	Unit    *chain.Unit
	Err     error
}

// GenerateAll assembles independent requests concurrently. Each request
// fails on its own; results keep the input order.
func (e *Engine) GenerateAll(ctx context.Context, reqs []*chain.Request) []Result {
	results := make([]Result, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, req := range reqs {
		g.Go(func() error {
			unit, err := e.Generate(gctx, req)
			results[i] = Result{Request: req, Unit: unit, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	e.logger.Debug().Int("requests", len(reqs)).Int("failed", failed).Msg("Batch generation finished")
	return results
}
