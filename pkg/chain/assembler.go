// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package chain assembles chain requests into compilable program units.
//
// Assembly is a strictly sequential pipeline: modules are looked up and bound,
// data-flow edges are checked, every instance is rendered, dependencies are
// merged and finally a driver calling each instance in order is generated.
// Data flowing between steps lives in driver-owned variables; a producer and
// its consumers are both rendered against the same variable.
package chain

import (
	"fmt"
	"maps"
	"slices"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vulntor/forge/pkg/catalog"
	"github.com/vulntor/forge/pkg/deps"
	"github.com/vulntor/forge/pkg/template"
)

// Assembler turns requests into units against one registry. It is safe for
// concurrent use once the registry is frozen.
type Assembler struct {
	registry *catalog.Registry
	logger   zerolog.Logger
	observe  func(State, error)
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithLogger sets the assembler logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Assembler) { a.logger = l }
}

// WithObserver registers fn to be called on every state transition. On
// failure fn receives StateFailed and the *StageError.
func WithObserver(fn func(State, error)) Option {
	return func(a *Assembler) { a.observe = fn }
}

// NewAssembler returns an assembler reading modules from reg.
func NewAssembler(reg *catalog.Registry, opts ...Option) *Assembler {
	a := &Assembler{
		registry: reg,
		logger:   log.With().Str("component", "chain").Logger(),
		observe:  func(State, error) {},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble assembles req using the modules of reg.
func Assemble(reg *catalog.Registry, req *Request) (*Unit, error) {
	return NewAssembler(reg).Assemble(req)
}

type publication struct {
	name string
	kind catalog.ParamKind
}

type instance struct {
	step      int
	module    *catalog.Module
	suffix    string
	entry     string
	binding   template.Binding
	outputs   []catalog.Output
	published map[string]publication
	rendered  template.Rendered
}

type edge struct {
	step   int
	output string
}

type declaration struct {
	name string
	text string
}

type run struct {
	a         *Assembler
	req       *Request
	instances []*instance
	vars      []declaration
	consumed  map[edge]bool
	manifest  deps.Manifest
}

// Assemble runs the full pipeline for req. Every failure is a *StageError
// wrapping the underlying sentinel.
func (a *Assembler) Assemble(req *Request) (*Unit, error) {
	if req == nil {
		return nil, &StageError{Stage: StateValidated, Err: fmt.Errorf("%w: nil request", ErrInvalidRequest)}
	}

	r := &run{a: a, req: req, consumed: make(map[edge]bool)}
	r.advance(StateReceived)

	if err := r.validate(); err != nil {
		return nil, r.fail(StateValidated, err)
	}
	r.advance(StateValidated)

	if err := r.render(); err != nil {
		return nil, r.fail(StateRendered, err)
	}
	r.advance(StateRendered)

	if err := r.resolve(); err != nil {
		return nil, r.fail(StateResolved, err)
	}
	r.advance(StateResolved)

	unit, err := r.assemble()
	if err != nil {
		return nil, r.fail(StateAssembled, err)
	}
	r.advance(StateAssembled)

	r.advance(StateSucceeded)
	a.logger.Info().
		Str("request", req.Name).
		Int("steps", len(r.instances)).
		Str("platform", unit.Platform().String()).
		Str("digest", unit.Digest()).
		Msg("Chain assembled")

	return unit, nil
}

func (r *run) advance(s State) {
	r.a.logger.Debug().Str("request", r.req.Name).Str("state", s.String()).Msg("Chain state")
	r.a.observe(s, nil)
}

func (r *run) fail(stage State, err error) error {
	serr := &StageError{Request: r.req.Name, Stage: stage, Err: err}
	r.a.logger.Debug().Str("request", r.req.Name).Str("stage", stage.String()).Err(err).Msg("Chain failed")
	r.a.observe(StateFailed, serr)
	return serr
}

// validate looks up every module, binds parameters and checks data-flow edges.
func (r *run) validate() error {
	if err := r.req.Validate(); err != nil {
		return err
	}

	for i, step := range r.req.Steps {
		m, err := r.a.registry.LookupVersion(step.Module, step.Version)
		if err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}

		suffix := fmt.Sprintf("_s%d", i)
		inst := &instance{
			step:      i,
			module:    m,
			suffix:    suffix,
			entry:     m.EntryPoint + suffix,
			binding:   template.Binding{},
			published: make(map[string]publication),
		}

		inst.outputs, err = selectOutputs(m, step.Outputs)
		if err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}

		for _, name := range slices.Sorted(maps.Keys(step.Params)) {
			arg := step.Params[name]
			p, declared := m.Param(name)
			if !arg.IsRef() {
				inst.binding[name] = arg.value()
				continue
			}
			v, err := r.bindRef(i, name, p, declared, *arg.Ref)
			if err != nil {
				return err
			}
			inst.binding[name] = v
		}

		inst.binding, err = template.WithDefaults(m, inst.binding)
		if err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}

		r.publish(inst)
		r.instances = append(r.instances, inst)
	}
	return nil
}

func selectOutputs(m *catalog.Module, names []string) ([]catalog.Output, error) {
	if names == nil {
		return slices.Clone(m.Outputs), nil
	}
	outputs := make([]catalog.Output, 0, len(names))
	for _, name := range names {
		o, ok := m.Output(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s declares no output %q", ErrUnknownOutput, m.ID, name)
		}
		if !slices.ContainsFunc(outputs, func(x catalog.Output) bool { return x.Name == name }) {
			outputs = append(outputs, o)
		}
	}
	return outputs, nil
}

func (r *run) bindRef(step int, name string, p catalog.Parameter, declared bool, ref Ref) (template.Value, error) {
	if ref.FromStep < 0 || ref.FromStep >= step {
		return template.Value{}, fmt.Errorf("%w: step %d parameter %q references step %d", ErrForwardReference, step, name, ref.FromStep)
	}

	src := r.instances[ref.FromStep]
	out, ok := src.module.Output(ref.Output)
	if !ok {
		return template.Value{}, fmt.Errorf("%w: step %d (%s) has no output %q", ErrUnknownOutput, ref.FromStep, src.module.ID, ref.Output)
	}
	pub, ok := src.published[ref.Output]
	if !ok {
		return template.Value{}, fmt.Errorf("%w: step %d (%s) does not publish output %q", ErrUnknownOutput, ref.FromStep, src.module.ID, ref.Output)
	}
	if declared && out.Kind != p.Kind {
		return template.Value{}, fmt.Errorf("step %d: %w", step, &catalog.KindMismatchError{
			Param: name,
			Want:  p.Kind,
			Got:   fmt.Sprintf("%s output %q of step %d", out.Kind, ref.Output, ref.FromStep),
		})
	}

	r.consumed[edge{step: ref.FromStep, output: ref.Output}] = true
	return template.Var(pub.name, pub.kind), nil
}

// publish moves the values behind inst's published outputs into driver-owned
// variables so later steps can reference them.
func (r *run) publish(inst *instance) {
	for _, o := range inst.outputs {
		name := fmt.Sprintf("forge_s%d_%s", inst.step, o.Name)
		v, bound := inst.binding[o.Param]

		switch {
		case !bound || v.IsZero():
			// Buffers may be left for the driver to allocate. Other kinds stay
			// unbound and fail rendering.
			if o.Kind == catalog.KindBuffer {
				r.vars = append(r.vars, declaration{name: name, text: fmt.Sprintf("static forge_buffer %s;", name)})
				inst.binding[o.Param] = template.Var(name, o.Kind)
			}
		case v.Kind() == template.ValueVar || v.Kind() == template.ValueBuffer:
			name = v.Raw()
		default:
			if text, ok := literalDeclaration(name, o.Kind, v); ok {
				r.vars = append(r.vars, declaration{name: name, text: text})
				inst.binding[o.Param] = template.Var(name, o.Kind)
			}
		}

		inst.published[o.Name] = publication{name: name, kind: o.Kind}
	}
}

// literalDeclaration returns the driver declaration holding v. Values that
// would fail rendering are left in place so the renderer reports them.
func literalDeclaration(name string, kind catalog.ParamKind, v template.Value) (string, bool) {
	if !v.AssignableTo(kind) {
		return "", false
	}
	switch kind {
	case catalog.KindString, catalog.KindPath:
		q, err := template.Quote(v.Raw())
		if err != nil {
			return "", false
		}
		return fmt.Sprintf("static const char *%s = %s;", name, q), true
	case catalog.KindInteger:
		return fmt.Sprintf("static const long long %s = %d;", name, v.Int64()), true
	default:
		return "", false
	}
}

func (r *run) render() error {
	for _, inst := range r.instances {
		rendered, err := template.Render(inst.module, inst.binding, inst.entry, inst.suffix)
		if err != nil {
			return fmt.Errorf("step %d: %w", inst.step, err)
		}
		inst.rendered = rendered
	}
	return nil
}

func (r *run) resolve() error {
	modules := make([]*catalog.Module, 0, len(r.instances))
	for _, inst := range r.instances {
		modules = append(modules, inst.module)
	}

	manifest, err := deps.Resolve(modules, deps.Target{Platform: r.req.Platform, Language: r.req.Language})
	if err != nil {
		return err
	}
	if r.usesBuffers() && !slices.Contains(manifest.Includes, "stddef.h") {
		manifest.Includes = append(manifest.Includes, "stddef.h")
		slices.Sort(manifest.Includes)
	}
	r.manifest = manifest
	return nil
}

func (r *run) usesBuffers() bool {
	for _, inst := range r.instances {
		for _, v := range inst.binding {
			if v.Kind() == template.ValueBuffer || (v.Kind() == template.ValueVar && v.VarKind() == catalog.KindBuffer) {
				return true
			}
		}
	}
	return false
}

// namedBuffers returns the request-named buffers, sorted.
func (r *run) namedBuffers() []string {
	var names []string
	for _, inst := range r.instances {
		for _, v := range inst.binding {
			if v.Kind() == template.ValueBuffer {
				names = append(names, v.Raw())
			}
		}
	}
	slices.Sort(names)
	return slices.Compact(names)
}

func (r *run) assemble() (*Unit, error) {
	buffers := r.namedBuffers()

	defined := make(map[string]string)
	define := func(name, what string) error {
		if prev, ok := defined[name]; ok {
			return fmt.Errorf("%w: %s %q collides with %s", ErrInvalidRequest, what, name, prev)
		}
		defined[name] = what
		return nil
	}
	for _, name := range buffers {
		if err := define(name, "buffer"); err != nil {
			return nil, err
		}
	}
	for _, d := range r.vars {
		if err := define(d.name, "variable"); err != nil {
			return nil, err
		}
	}
	for _, inst := range r.instances {
		for _, placeholder := range inst.module.Renamed() {
			what := fmt.Sprintf("symbol of step %d", inst.step)
			if err := define(inst.rendered.Renames[placeholder], what); err != nil {
				return nil, err
			}
		}
	}

	decls := make([]string, 0, len(buffers)+len(r.vars))
	for _, name := range buffers {
		decls = append(decls, fmt.Sprintf("static forge_buffer %s;", name))
	}
	for _, d := range r.vars {
		decls = append(decls, d.text)
	}

	functions := make([]Function, 0, len(r.instances))
	for _, inst := range r.instances {
		functions = append(functions, Function{
			Step:    inst.step,
			Module:  inst.module.ID,
			Version: inst.module.Version,
			Entry:   inst.rendered.Entry,
			Source:  inst.rendered.Function,
			Call:    inst.rendered.Call,
		})
	}

	driver := renderDriver(functions)
	source := renderSource(r.req.Name, r.manifest, r.usesBuffers(), decls, functions, driver)

	return &Unit{
		name:      r.req.Name,
		manifest:  r.manifest,
		functions: functions,
		driver:    driver,
		source:    source,
		notes:     r.notes(),
		digest:    digest(source),
	}, nil
}

func (r *run) notes() []string {
	var notes []string
	for _, inst := range r.instances {
		for _, o := range inst.outputs {
			if !r.consumed[edge{step: inst.step, output: o.Name}] {
				notes = append(notes, fmt.Sprintf("step %d (%s): output %q is not consumed", inst.step, inst.module.ID, o.Name))
			}
		}
	}
	return notes
}
