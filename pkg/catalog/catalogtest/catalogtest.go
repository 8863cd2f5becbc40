// Package catalogtest builds technique modules for tests.
package catalogtest

import (
	"fmt"
	"strings"

	"github.com/vulntor/forge/pkg/catalog"
)

// Option customizes a test module.
type Option func(*catalog.Module)

// New returns a valid module with the given id. The entry point is the id with
// dashes replaced by underscores. Unless overridden, the source defines a
// function taking every parameter in order and the call site passes them.
func New(id string, opts ...Option) *catalog.Module {
	m := &catalog.Module{
		ID:         id,
		Name:       id,
		Version:    "1.0.0",
		Platform:   catalog.PlatformAny,
		Category:   "test",
		Languages:  []catalog.Language{catalog.LanguageC, catalog.LanguageCpp},
		EntryPoint: strings.ReplaceAll(id, "-", "_"),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.Source == "" {
		m.Source = source(m)
	}
	if m.Call == "" && len(m.Params) > 0 {
		m.Call = call(m)
	}
	return m
}

func source(m *catalog.Module) string {
	args := make([]string, 0, len(m.Params))
	for _, p := range m.Params {
		switch p.Kind {
		case catalog.KindInteger:
			args = append(args, "long long "+p.Name)
		case catalog.KindBuffer:
			args = append(args, "forge_buffer *"+p.Name)
		case catalog.KindSymbol:
			args = append(args, "int "+p.Name)
		default:
			args = append(args, "const char *"+p.Name)
		}
	}
	if len(args) == 0 {
		args = append(args, "int argc", "char *argv[]")
	}
	return fmt.Sprintf("int ${%s}(%s)\n{\n    return 0;\n}\n", m.EntryPoint, strings.Join(args, ", "))
}

func call(m *catalog.Module) string {
	args := make([]string, 0, len(m.Params))
	for _, p := range m.Params {
		if p.Kind == catalog.KindBuffer {
			args = append(args, "&${"+p.Name+"}")
			continue
		}
		args = append(args, "${"+p.Name+"}")
	}
	return fmt.Sprintf("${%s}(%s);", m.EntryPoint, strings.Join(args, ", "))
}

// WithPlatform sets the module platform.
func WithPlatform(p catalog.Platform) Option {
	return func(m *catalog.Module) { m.Platform = p }
}

// WithVersion sets the module version.
func WithVersion(v string) Option {
	return func(m *catalog.Module) { m.Version = v }
}

// WithLanguages sets the supported languages.
func WithLanguages(langs ...catalog.Language) Option {
	return func(m *catalog.Module) { m.Languages = langs }
}

// WithParam appends a parameter without a default.
func WithParam(name string, kind catalog.ParamKind) Option {
	return func(m *catalog.Module) {
		m.Params = append(m.Params, catalog.Parameter{Name: name, Kind: kind})
	}
}

// WithDefault appends a parameter with a default value.
func WithDefault(name string, kind catalog.ParamKind, def any) Option {
	return func(m *catalog.Module) {
		m.Params = append(m.Params, catalog.Parameter{Name: name, Kind: kind, Default: def})
	}
}

// WithOutput declares an output backed by the named parameter, which must
// already be declared.
func WithOutput(name, param string) Option {
	return func(m *catalog.Module) {
		p, _ := m.Param(param)
		m.Outputs = append(m.Outputs, catalog.Output{Name: name, Kind: p.Kind, Param: param})
	}
}

// WithIncludes sets the include list.
func WithIncludes(includes ...string) Option {
	return func(m *catalog.Module) { m.Includes = includes }
}

// WithLibraries sets the library list.
func WithLibraries(libs ...string) Option {
	return func(m *catalog.Module) { m.Libraries = libs }
}

// WithPackages sets the system package list.
func WithPackages(pkgs ...string) Option {
	return func(m *catalog.Module) { m.Packages = pkgs }
}

// WithGlobals declares additional renamed placeholders.
func WithGlobals(globals ...string) Option {
	return func(m *catalog.Module) { m.Globals = globals }
}

// WithSource sets the template source.
func WithSource(src string) Option {
	return func(m *catalog.Module) { m.Source = src }
}

// WithCall sets the call-site template.
func WithCall(tmpl string) Option {
	return func(m *catalog.Module) { m.Call = tmpl }
}

// Registry returns a registry holding modules. It panics on registration
// failure.
func Registry(modules ...*catalog.Module) *catalog.Registry {
	reg := catalog.NewRegistry()
	for _, m := range modules {
		reg.MustRegister(m)
	}
	return reg
}
