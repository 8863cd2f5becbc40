// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package catalog holds the technique module catalog: module metadata, the
// process-wide registry and manifest loading.
package catalog

import (
	"fmt"
	"slices"
	"strings"
)

// Platform is the operating system a module targets.
type Platform string

const (
	PlatformLinux   Platform = "linux"
	PlatformWindows Platform = "windows"
	PlatformAny     Platform = "any" // Platform-agnostic module
)

// IsValid reports whether p is a known platform.
func (p Platform) IsValid() bool {
	switch p {
	case PlatformLinux, PlatformWindows, PlatformAny:
		return true
	default:
		return false
	}
}

// CompatibleWith reports whether modules of platform p may share a unit with
// modules of platform other.
func (p Platform) CompatibleWith(other Platform) bool {
	return p == PlatformAny || other == PlatformAny || p == other
}

func (p Platform) String() string { return string(p) }

// ParamKind is the expected kind of a placeholder value.
type ParamKind string

const (
	KindString  ParamKind = "string"  // String literal
	KindPath    ParamKind = "path"    // Filesystem path, rendered as a string literal
	KindInteger ParamKind = "integer" // Decimal integer
	KindBuffer  ParamKind = "buffer"  // Reference to a driver-owned byte buffer
	KindSymbol  ParamKind = "symbol"  // Bare target-language identifier
)

// IsValid reports whether k is a known parameter kind.
func (k ParamKind) IsValid() bool {
	switch k {
	case KindString, KindPath, KindInteger, KindBuffer, KindSymbol:
		return true
	default:
		return false
	}
}

func (k ParamKind) String() string { return string(k) }

// Language is a target source language supported by a module.
type Language string

const (
	LanguageC   Language = "c"
	LanguageCpp Language = "cpp"
)

// IsValid reports whether l is a known language.
func (l Language) IsValid() bool {
	return l == LanguageC || l == LanguageCpp
}

// Extension returns the source file extension for l.
func (l Language) Extension() string {
	return string(l)
}

// Parameter describes one placeholder of a module template.
type Parameter struct {
	Name        string    `yaml:"name" json:"name" validate:"required,identifier"`
	Kind        ParamKind `yaml:"kind" json:"kind" validate:"required,paramkind"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	// Default is used when a chain step leaves the parameter unbound.
	Default any `yaml:"default,omitempty" json:"default,omitempty"`
}

// HasDefault reports whether the parameter carries a default value.
func (p Parameter) HasDefault() bool {
	return p.Default != nil
}

// Output is a data-flow value a module publishes for later steps. The value of
// an output is the value bound to its backing parameter.
type Output struct {
	Name  string    `yaml:"name" json:"name" validate:"required,identifier"`
	Kind  ParamKind `yaml:"kind" json:"kind" validate:"required,paramkind"`
	Param string    `yaml:"param" json:"param" validate:"required,identifier"`
}

// Module is a registered technique module. Modules are immutable once
// registered; the registry hands out clones.
type Module struct {
	ID          string     `yaml:"id" json:"id" validate:"required,moduleid"`
	Name        string     `yaml:"name" json:"name"`
	Version     string     `yaml:"version" json:"version" validate:"required,semver"`
	Description string     `yaml:"description" json:"description"`
	Platform    Platform   `yaml:"platform" json:"platform" validate:"required,platform"`
	Category    string     `yaml:"category" json:"category" validate:"required"`
	Technique   string     `yaml:"technique,omitempty" json:"technique,omitempty"`
	Tags        []string   `yaml:"tags,omitempty" json:"tags,omitempty"`
	Languages   []Language `yaml:"languages" json:"languages" validate:"required,min=1,dive,language"`

	// EntryPoint is the implicit placeholder naming the module's function.
	EntryPoint string `yaml:"entry_point" json:"entry_point" validate:"required,identifier"`
	// Globals are further placeholders renamed per instance (global variables,
	// helper functions).
	Globals []string `yaml:"globals,omitempty" json:"globals,omitempty" validate:"dive,identifier"`

	Source string `yaml:"-" json:"source" validate:"required"`
	// SourceFile names the template file relative to the manifest.
	SourceFile string `yaml:"source" json:"-"`
	// Call is the call-site template placed in the driver. Empty means
	// "${<entry>}(argc, argv);".
	Call string `yaml:"call,omitempty" json:"call,omitempty"`

	Params    []Parameter `yaml:"params,omitempty" json:"params,omitempty" validate:"dive"`
	Outputs   []Output    `yaml:"outputs,omitempty" json:"outputs,omitempty" validate:"dive"`
	Includes  []string    `yaml:"includes,omitempty" json:"includes,omitempty" validate:"dive,include"`
	Libraries []string    `yaml:"libraries,omitempty" json:"libraries,omitempty" validate:"dive,library"`
	Packages  []string    `yaml:"packages,omitempty" json:"packages,omitempty"`
}

// CallTemplate returns the module's call-site template.
func (m *Module) CallTemplate() string {
	if strings.TrimSpace(m.Call) != "" {
		return m.Call
	}
	return fmt.Sprintf("${%s}(argc, argv);", m.EntryPoint)
}

// Param returns the named parameter definition.
func (m *Module) Param(name string) (Parameter, bool) {
	for _, p := range m.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// Output returns the named output definition.
func (m *Module) Output(name string) (Output, bool) {
	for _, o := range m.Outputs {
		if o.Name == name {
			return o, true
		}
	}
	return Output{}, false
}

// OutputForParam returns the output backed by the named parameter, if any.
func (m *Module) OutputForParam(param string) (Output, bool) {
	for _, o := range m.Outputs {
		if o.Param == param {
			return o, true
		}
	}
	return Output{}, false
}

// Supports reports whether the module can be emitted in language l.
func (m *Module) Supports(l Language) bool {
	return slices.Contains(m.Languages, l)
}

// Renamed returns the entry point and globals, the names that receive a
// per-instance suffix.
func (m *Module) Renamed() []string {
	names := make([]string, 0, 1+len(m.Globals))
	names = append(names, m.EntryPoint)
	return append(names, m.Globals...)
}

// Clone returns a deep copy of the module.
func (m *Module) Clone() *Module {
	c := *m
	c.Tags = slices.Clone(m.Tags)
	c.Languages = slices.Clone(m.Languages)
	c.Globals = slices.Clone(m.Globals)
	c.Params = slices.Clone(m.Params)
	c.Outputs = slices.Clone(m.Outputs)
	c.Includes = slices.Clone(m.Includes)
	c.Libraries = slices.Clone(m.Libraries)
	c.Packages = slices.Clone(m.Packages)
	return &c
}

func (m *Module) String() string {
	return fmt.Sprintf("%s (%s) [%s]", m.Name, m.Version, m.ID)
}
