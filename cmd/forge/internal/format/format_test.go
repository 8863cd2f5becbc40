// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package format

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/vulntor/forge/pkg/appctx"
	"github.com/vulntor/forge/pkg/config"
	"github.com/vulntor/forge/pkg/engine"
)

func TestPrintJSON(t *testing.T) {
	var stdout, stderr bytes.Buffer
	f := New(&stdout, &stderr, ModeJSON, false, false)

	require.NoError(t, f.PrintJSON(map[string]string{"id": "fibonacci", "version": "1.0.0"}))
	require.Equal(t, "{\n  \"id\": \"fibonacci\",\n  \"version\": \"1.0.0\"\n}\n", stdout.String())
	require.Empty(t, stderr.String())
}

func TestPrintTable(t *testing.T) {
	t.Run("table mode", func(t *testing.T) {
		var stdout bytes.Buffer
		f := New(&stdout, &bytes.Buffer{}, ModeTable, false, false)

		require.NoError(t, f.PrintTable([]string{"id", "platform"}, [][]string{{"write-file", "any"}, {"fibonacci", "any"}}))
		require.Equal(t, "ID          PLATFORM\nwrite-file  any\nfibonacci   any\n", stdout.String())
	})

	t.Run("json mode", func(t *testing.T) {
		var stdout bytes.Buffer
		f := New(&stdout, &bytes.Buffer{}, ModeJSON, false, false)

		require.NoError(t, f.PrintTable([]string{"id", "platform"}, [][]string{{"write-file", "any"}}))

		var items []map[string]string
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &items))
		require.Equal(t, []map[string]string{{"id": "write-file", "platform": "any"}}, items)
	})
}

func TestPrintSummary(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, New(&stdout, &stderr, ModeTable, false, false).PrintSummary("done"))
	require.Equal(t, "done\n", stdout.String())

	stdout.Reset()
	require.NoError(t, New(&stdout, &stderr, ModeJSON, false, false).PrintSummary("done"))
	require.Empty(t, stdout.String())
	require.Equal(t, "done\n", stderr.String())

	stdout.Reset()
	stderr.Reset()
	require.NoError(t, New(&stdout, &stderr, ModeTable, true, false).PrintSummary("done"))
	require.Empty(t, stdout.String())
	require.Empty(t, stderr.String())
}

func TestPrintDiagnostic(t *testing.T) {
	d := &engine.Diagnostic{
		Stage:       "built",
		Code:        "TOOLCHAIN_ERROR",
		Message:     "toolchain failed: cc exited with status 1",
		ExitCode:    5,
		ToolExit:    1,
		Output:      "main.c:3:1: error: boom\n",
		Suggestions: []string{"Inspect the compiler output"},
	}

	t.Run("table mode", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		require.NoError(t, New(&stdout, &stderr, ModeTable, false, false).PrintDiagnostic(d))

		require.Empty(t, stdout.String())
		require.Equal(t, "✗ stage built [TOOLCHAIN_ERROR]: toolchain failed: cc exited with status 1\n"+
			"main.c:3:1: error: boom\n"+
			"\n💡 Suggestions:\n"+
			"  → Inspect the compiler output\n", stderr.String())
	})

	t.Run("json mode", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		require.NoError(t, New(&stdout, &stderr, ModeJSON, false, false).PrintDiagnostic(d))

		var out struct {
			Success    bool              `json:"success"`
			Diagnostic engine.Diagnostic `json:"diagnostic"`
		}
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
		require.False(t, out.Success)
		require.Equal(t, *d, out.Diagnostic)
	})

	t.Run("without stage", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		nf := &engine.Diagnostic{Code: "MODULE_NOT_FOUND", Message: "module not found: x"}
		require.NoError(t, New(&stdout, &stderr, ModeTable, false, false).PrintDiagnostic(nf))
		require.Equal(t, "✗ [MODULE_NOT_FOUND]: module not found: x\n", stderr.String())
	})

	t.Run("nil", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		require.NoError(t, New(&stdout, &stderr, ModeTable, false, false).PrintDiagnostic(nil))
		require.Empty(t, stderr.String())
	})
}

func TestParseAndValidateMode(t *testing.T) {
	require.Equal(t, ModeJSON, ParseMode("JSON"))
	require.Equal(t, ModeTable, ParseMode("table"))
	require.Equal(t, ModeTable, ParseMode("yaml"))
	require.NoError(t, ValidateMode("json"))
	require.Error(t, ValidateMode("yaml"))
}

func TestFromCommand(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	config.BindFlags(cmd.Flags())
	require.NoError(t, cmd.Flags().Set("output", "json"))
	require.NoError(t, cmd.Flags().Set("quiet", "true"))

	var stdout bytes.Buffer
	cmd.SetOut(&stdout)

	f := FromCommand(cmd)
	require.Equal(t, ModeJSON, f.Mode())
	require.NoError(t, f.PrintJSON([]int{1}))
	require.Equal(t, "[\n  1\n]\n", stdout.String())
}

func TestFromCommand_WithoutOutputFlags(t *testing.T) {
	f := FromCommand(&cobra.Command{Use: "bare"})
	require.Equal(t, ModeTable, f.Mode())
}

func TestFromCommand_UsesLoadedConfig(t *testing.T) {
	t.Setenv("FORGE_OUTPUT_FORMAT", "json")
	t.Setenv("FORGE_OUTPUT_QUIET", "true")

	cmd := &cobra.Command{Use: "test"}
	config.BindFlags(cmd.Flags())
	require.NoError(t, cmd.Flags().Set("no-color", "true"))

	mgr := config.NewManager()
	require.NoError(t, mgr.Load(cmd.Flags(), filepath.Join(t.TempDir(), "missing.yaml")))
	cmd.SetContext(appctx.WithConfig(context.Background(), mgr))

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	f := FromCommand(cmd)
	require.Equal(t, ModeJSON, f.Mode())
	require.NoError(t, f.PrintSummary("done"))
	require.Empty(t, stdout.String())
	require.Empty(t, stderr.String())
}
