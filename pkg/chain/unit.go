// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package chain

import (
	"slices"

	"github.com/vulntor/forge/pkg/catalog"
	"github.com/vulntor/forge/pkg/deps"
)

// Function is one rendered module instance of a unit.
type Function struct {
	Step    int    `json:"step"`
	Module  string `json:"module"`
	Version string `json:"version"`
	Entry   string `json:"entry"`
	Source  string `json:"-"`
	Call    string `json:"call"`
}

// Unit is an assembled, self-contained program. It is immutable; accessors
// return copies.
type Unit struct {
	name      string
	manifest  deps.Manifest
	functions []Function
	driver    string
	source    string
	notes     []string
	digest    string
}

// Name returns the request name the unit was assembled from.
func (u *Unit) Name() string { return u.name }

// Platform returns the resolved target platform.
func (u *Unit) Platform() catalog.Platform { return u.manifest.Platform }

// Language returns the source language of the unit.
func (u *Unit) Language() catalog.Language { return u.manifest.Language }

// Includes returns the sorted, deduplicated header list.
func (u *Unit) Includes() []string { return slices.Clone(u.manifest.Includes) }

// Libraries returns the sorted, deduplicated library list.
func (u *Unit) Libraries() []string { return slices.Clone(u.manifest.Libraries) }

// Packages returns the system packages the modules declare.
func (u *Unit) Packages() []string { return slices.Clone(u.manifest.Packages) }

// Manifest returns a copy of the dependency manifest.
func (u *Unit) Manifest() deps.Manifest {
	m := u.manifest
	m.Includes = slices.Clone(m.Includes)
	m.Libraries = slices.Clone(m.Libraries)
	m.Packages = slices.Clone(m.Packages)
	return m
}

// Functions returns the rendered instances in chain order.
func (u *Unit) Functions() []Function { return slices.Clone(u.functions) }

// Driver returns the generated main function.
func (u *Unit) Driver() string { return u.driver }

// Source returns the complete program text.
func (u *Unit) Source() string { return u.source }

// Notes returns informational messages, such as outputs no step consumed.
func (u *Unit) Notes() []string { return slices.Clone(u.notes) }

// Digest returns the hex SHA-256 of the program text.
func (u *Unit) Digest() string { return u.digest }

// FileName returns the conventional source file name for the unit.
func (u *Unit) FileName() string {
	return "main." + u.manifest.Language.Extension()
}
