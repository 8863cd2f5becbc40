// Package appctx carries process-wide CLI state on a context.
package appctx

import (
	"context"

	"github.com/vulntor/forge/pkg/catalog"
	"github.com/vulntor/forge/pkg/config"
)

type key string

const (
	configKey   key = "forge.config.manager"
	registryKey key = "forge.catalog.registry"
)

func with(ctx context.Context, k key, v any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, k, v)
}

func get[T any](ctx context.Context, k key) (T, bool) {
	var zero T
	if ctx == nil {
		return zero, false
	}
	v, ok := ctx.Value(k).(T)
	return v, ok
}

// WithConfig stores the shared config manager on context.
func WithConfig(ctx context.Context, manager *config.Manager) context.Context {
	return with(ctx, configKey, manager)
}

// Config retrieves the shared config manager from context.
func Config(ctx context.Context) (*config.Manager, bool) {
	mgr, ok := get[*config.Manager](ctx, configKey)
	return mgr, ok && mgr != nil
}

// WithRegistry stores the loaded module catalog on context.
func WithRegistry(ctx context.Context, reg *catalog.Registry) context.Context {
	return with(ctx, registryKey, reg)
}

// Registry retrieves the module catalog from context.
func Registry(ctx context.Context) (*catalog.Registry, bool) {
	reg, ok := get[*catalog.Registry](ctx, registryKey)
	return reg, ok && reg != nil
}
