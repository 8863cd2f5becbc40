// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package catalog

import (
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"
)

// Registry stores technique modules by id. Registration happens during
// startup; the first read freezes the registry and it is read-only after that.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]*Module
	frozen  bool
}

// NewRegistry returns an empty, unfrozen registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]*Module)}
}

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// Default returns the process-wide registry.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// Register validates m and adds a copy of it. A failed registration leaves
// the registry unchanged. Once frozen, every registration fails with
// ErrRegistryFrozen, valid or not.
func (r *Registry) Register(m *Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		id := "<nil>"
		if m != nil {
			id = m.ID
		}
		return fmt.Errorf("%w: cannot register %s", ErrRegistryFrozen, id)
	}
	if m == nil {
		return fmt.Errorf("%w: nil module", ErrInvalidModule)
	}
	if err := m.Validate(); err != nil {
		return err
	}
	if _, exists := r.modules[m.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateModuleID, m.ID)
	}

	r.modules[m.ID] = m.Clone()

	log.Debug().
		Str("component", "catalog").
		Str("module", m.ID).
		Str("version", m.Version).
		Str("platform", m.Platform.String()).
		Msg("Registered module")

	return nil
}

// MustRegister is like Register but panics on error. It is meant for
// package-level registration of built-in modules.
func (r *Registry) MustRegister(m *Module) {
	if err := r.Register(m); err != nil {
		panic(err)
	}
}

// Freeze makes the registry read-only. Freezing twice is a no-op.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen reports whether the registry is read-only.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Len returns the number of registered modules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.modules)
}

// freezeOnRead freezes the registry before the first read.
func (r *Registry) freezeOnRead() {
	r.mu.RLock()
	frozen := r.frozen
	r.mu.RUnlock()
	if !frozen {
		r.Freeze()
	}
}

// Lookup returns a copy of the module with the given id.
func (r *Registry) Lookup(id string) (*Module, error) {
	r.freezeOnRead()

	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.modules[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, id)
	}
	return m.Clone(), nil
}

// LookupVersion returns a copy of the module with the given id when its
// version satisfies constraint.
func (r *Registry) LookupVersion(id, constraint string) (*Module, error) {
	m, err := r.Lookup(id)
	if err != nil {
		return nil, err
	}
	ok, err := m.SatisfiesConstraint(constraint)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s@%s (have %s)", ErrModuleNotFound, id, constraint, m.Version)
	}
	return m, nil
}

// ListByPlatform yields the modules usable on platform, sorted by id.
// Platform-agnostic modules match every platform and listing with
// PlatformAny yields every module. The sequence may be ranged over repeatedly.
func (r *Registry) ListByPlatform(platform Platform) iter.Seq[*Module] {
	r.freezeOnRead()

	return func(yield func(*Module) bool) {
		r.mu.RLock()
		ids := make([]string, 0, len(r.modules))
		for id, m := range r.modules {
			if platform == PlatformAny || m.Platform.CompatibleWith(platform) {
				ids = append(ids, id)
			}
		}
		r.mu.RUnlock()
		slices.Sort(ids)

		for _, id := range ids {
			r.mu.RLock()
			m := r.modules[id]
			r.mu.RUnlock()
			if !yield(m.Clone()) {
				return
			}
		}
	}
}

// List returns every module sorted by id.
func (r *Registry) List() []*Module {
	return slices.Collect(r.ListByPlatform(PlatformAny))
}
