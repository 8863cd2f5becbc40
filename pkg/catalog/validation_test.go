// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vulntor/forge/pkg/catalog"
	"github.com/vulntor/forge/pkg/catalog/catalogtest"
)

func TestModule_Validate(t *testing.T) {
	tests := []struct {
		name    string
		module  *catalog.Module
		wantErr string
	}{
		{
			name:   "valid with params and output",
			module: catalogtest.New("capture", catalogtest.WithParam("output", catalog.KindPath), catalogtest.WithOutput("image", "output")),
		},
		{
			name:    "bad id",
			module:  catalogtest.New("Bad_ID"),
			wantErr: "moduleid",
		},
		{
			name:    "bad version",
			module:  catalogtest.New("bad-version", catalogtest.WithVersion("one")),
			wantErr: "semver",
		},
		{
			name:    "bad platform",
			module:  catalogtest.New("bad-platform", catalogtest.WithPlatform("plan9")),
			wantErr: "platform",
		},
		{
			name:    "no languages",
			module:  catalogtest.New("no-langs", catalogtest.WithLanguages()),
			wantErr: "Languages",
		},
		{
			name:    "bad param kind",
			module:  catalogtest.New("bad-kind", catalogtest.WithParam("x", "float")),
			wantErr: "paramkind",
		},
		{
			name:    "bad include",
			module:  catalogtest.New("bad-include", catalogtest.WithIncludes("<stdio.h>")),
			wantErr: "include",
		},
		{
			name:    "bad library",
			module:  catalogtest.New("bad-lib", catalogtest.WithLibraries("-lz")),
			wantErr: "library",
		},
		{
			name:    "undeclared placeholder in source",
			module:  catalogtest.New("undeclared", catalogtest.WithSource("int ${undeclared}(void) { return ${mystery}; }")),
			wantErr: `undeclared placeholder "mystery"`,
		},
		{
			name:    "undeclared placeholder in call",
			module:  catalogtest.New("bad-call", catalogtest.WithCall("${bad_call}(${nothing});")),
			wantErr: `call template uses undeclared placeholder "nothing"`,
		},
		{
			name:    "malformed placeholder",
			module:  catalogtest.New("malformed", catalogtest.WithSource("int ${malformed}(void) { return ${1x}; }")),
			wantErr: "invalid placeholder name",
		},
		{
			name:    "entry point missing from source",
			module:  catalogtest.New("no-entry", catalogtest.WithSource("int helper(void) { return 0; }")),
			wantErr: "does not define entry point",
		},
		{
			name:    "param collides with entry point",
			module:  catalogtest.New("clash", catalogtest.WithParam("clash", catalog.KindString)),
			wantErr: "collides",
		},
		{
			name:    "reserved global",
			module:  catalogtest.New("reserved", catalogtest.WithGlobals("static")),
			wantErr: "reserved name",
		},
		{
			name: "output without backing param",
			module: catalogtest.New("orphan-output", func(m *catalog.Module) {
				m.Outputs = append(m.Outputs, catalog.Output{Name: "out", Kind: catalog.KindPath, Param: "missing"})
			}),
			wantErr: "undeclared parameter",
		},
		{
			name: "output kind differs from param",
			module: catalogtest.New("kind-clash", catalogtest.WithParam("size", catalog.KindInteger), func(m *catalog.Module) {
				m.Outputs = append(m.Outputs, catalog.Output{Name: "out", Kind: catalog.KindPath, Param: "size"})
			}),
			wantErr: "but parameter",
		},
		{
			name:    "symbol output",
			module:  catalogtest.New("sym-out", catalogtest.WithParam("fn", catalog.KindSymbol), catalogtest.WithOutput("fn", "fn")),
			wantErr: "symbol outputs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.module.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, catalog.ErrInvalidModule)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestModule_SatisfiesConstraint(t *testing.T) {
	m := catalogtest.New("semver-check", catalogtest.WithVersion("1.2.3"))

	ok, err := m.SatisfiesConstraint("~1.2")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = m.SatisfiesConstraint("<1.0")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestModule_CallTemplateDefault(t *testing.T) {
	m := catalogtest.New("no-params")
	require.Equal(t, "${no_params}(argc, argv);", m.CallTemplate())
}

func TestPlatform_CompatibleWith(t *testing.T) {
	require.True(t, catalog.PlatformAny.CompatibleWith(catalog.PlatformWindows))
	require.True(t, catalog.PlatformLinux.CompatibleWith(catalog.PlatformAny))
	require.True(t, catalog.PlatformLinux.CompatibleWith(catalog.PlatformLinux))
	require.False(t, catalog.PlatformLinux.CompatibleWith(catalog.PlatformWindows))
}
