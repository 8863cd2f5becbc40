// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package catalog_test

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/vulntor/forge/pkg/catalog"
)

const echoManifest = `
id: echo-text
name: Echo Text
version: 0.2.0
platform: linux
category: example
languages: [c]
entry_point: echo_text
source: echo.c
call: "${echo_text}(${text});"
params:
  - name: text
    kind: string
    default: hi
includes: [stdio.h, string.h]
packages: [libc6-dev]
`

const echoSource = "int ${echo_text}(const char *text)\n{\n    return puts(text);\n}\n"

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"echo/echo.yaml": {Data: []byte(echoManifest)},
		"echo/echo.c":    {Data: []byte(echoSource)},
		"README.md":      {Data: []byte("not a manifest")},
	}

	reg := catalog.NewRegistry()
	n, err := catalog.LoadFS(reg, fsys)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	m, err := reg.Lookup("echo-text")
	require.NoError(t, err)
	require.Equal(t, echoSource, m.Source)
	require.Equal(t, catalog.PlatformLinux, m.Platform)
	require.Equal(t, "${echo_text}(${text});", m.CallTemplate())
	require.Equal(t, []string{"stdio.h", "string.h"}, m.Includes)
	require.Equal(t, []string{"libc6-dev"}, m.Packages)

	p, ok := m.Param("text")
	require.True(t, ok)
	require.Equal(t, "hi", p.Default)
}

func TestLoadFS_MissingSource(t *testing.T) {
	fsys := fstest.MapFS{
		"echo.yaml": {Data: []byte(echoManifest)},
	}
	_, err := catalog.LoadFS(catalog.NewRegistry(), fsys)
	require.ErrorIs(t, err, catalog.ErrInvalidModule)
}

func TestLoadFS_SourceOutsideManifestDir(t *testing.T) {
	fsys := fstest.MapFS{
		"a/echo.yaml": {Data: []byte("id: escape\nsource: ../echo.c\n")},
		"echo.c":      {Data: []byte(echoSource)},
	}
	_, err := catalog.LoadFS(catalog.NewRegistry(), fsys)
	require.ErrorIs(t, err, catalog.ErrInvalidModule)
	require.Contains(t, err.Error(), "relative")
}

func TestLoadFS_InvalidYAML(t *testing.T) {
	fsys := fstest.MapFS{
		"broken.yaml": {Data: []byte("id: [unterminated")},
	}
	_, err := catalog.LoadFS(catalog.NewRegistry(), fsys)
	require.ErrorIs(t, err, catalog.ErrInvalidModule)
}

func TestLoadFS_UnknownManifestField(t *testing.T) {
	for _, typo := range []string{"librarys: [m]", "include: [math.h]"} {
		fsys := fstest.MapFS{
			"echo.yaml": {Data: []byte(echoManifest + typo + "\n")},
			"echo.c":    {Data: []byte(echoSource)},
		}
		reg := catalog.NewRegistry()
		_, err := catalog.LoadFS(reg, fsys)
		require.ErrorIs(t, err, catalog.ErrInvalidModule, typo)
		require.Contains(t, err.Error(), "not found in type")
		require.Equal(t, 0, reg.Len())
	}
}

func TestLoadDirs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "echo.yaml"), []byte(echoManifest), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "echo.c"), []byte(echoSource), 0o644))

	reg := catalog.NewRegistry()
	n, err := catalog.LoadDirs(reg, dir, filepath.Join(dir, "missing"), "")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestLoadEmbedded(t *testing.T) {
	reg := catalog.NewRegistry()
	n, err := catalog.LoadEmbedded(reg)
	require.NoError(t, err)
	require.Equal(t, 5, n)

	for _, id := range []string{"minimal-example", "configuration-example", "fibonacci", "write-file", "file-checksum"} {
		m, err := reg.Lookup(id)
		require.NoError(t, err, id)
		require.Equal(t, catalog.PlatformAny, m.Platform)
		require.NotEmpty(t, m.Source)
	}

	fib, err := reg.Lookup("fibonacci")
	require.NoError(t, err)
	require.Equal(t, "${fib}(${n});", fib.CallTemplate())

	write, err := reg.Lookup("write-file")
	require.NoError(t, err)
	out, ok := write.Output("file")
	require.True(t, ok)
	require.Equal(t, catalog.KindPath, out.Kind)
}
