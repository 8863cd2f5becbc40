package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulntor/forge/pkg/build"
	"github.com/vulntor/forge/pkg/catalog"
	"github.com/vulntor/forge/pkg/catalog/catalogtest"
	"github.com/vulntor/forge/pkg/chain"
	"github.com/vulntor/forge/pkg/deps"
	"github.com/vulntor/forge/pkg/template"
)

func testEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	reg := catalogtest.Registry(
		catalogtest.New("capture",
			catalogtest.WithPlatform(catalog.PlatformLinux),
			catalogtest.WithParam("output", catalog.KindPath),
			catalogtest.WithOutput("output", "output"),
			catalogtest.WithIncludes("X11/Xlib.h"),
			catalogtest.WithLibraries("X11"),
		),
		catalogtest.New("compress",
			catalogtest.WithPlatform(catalog.PlatformLinux),
			catalogtest.WithParam("input", catalog.KindPath),
			catalogtest.WithIncludes("zlib.h"),
			catalogtest.WithLibraries("z"),
		),
		catalogtest.New("query",
			catalogtest.WithPlatform(catalog.PlatformWindows),
			catalogtest.WithIncludes("windows.h"),
		),
	)
	return New(reg, opts...)
}

func goodRequest(name string) *chain.Request {
	return &chain.Request{
		Name: name,
		Steps: []chain.Step{
			{Module: "capture", Params: map[string]chain.Arg{"output": chain.Literal("/tmp/a.png")}},
			{Module: "compress", Params: map[string]chain.Arg{"input": chain.FromStep(0, "output")}},
		},
	}
}

func conflictRequest() *chain.Request {
	return &chain.Request{
		Name: "mixed",
		Steps: []chain.Step{
			{Module: "query"},
			{Module: "compress", Params: map[string]chain.Arg{"input": chain.Literal("/tmp/x")}},
		},
	}
}

func TestNew_FreezesRegistry(t *testing.T) {
	e := testEngine(t)
	assert.True(t, e.Registry().Frozen())
	require.ErrorIs(t, e.Registry().Register(catalogtest.New("late")), catalog.ErrRegistryFrozen)
}

func TestGenerate_Deterministic(t *testing.T) {
	e := testEngine(t)

	first, err := e.Generate(context.Background(), goodRequest("exfil"))
	require.NoError(t, err)
	second, err := e.Generate(context.Background(), goodRequest("exfil"))
	require.NoError(t, err)

	assert.Equal(t, first.Source(), second.Source())
	assert.Equal(t, first.Digest(), second.Digest())
	assert.Equal(t, []string{"X11/Xlib.h", "zlib.h"}, first.Includes())
}

func TestGenerate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testEngine(t).Generate(ctx, goodRequest("exfil"))
	require.ErrorIs(t, err, build.ErrCancelled)
	assert.Equal(t, 130, ExitCode(err))

	var stage *chain.StageError
	require.ErrorAs(t, err, &stage)
	assert.Equal(t, chain.StateReceived, stage.Stage)

	d := Diagnose(err)
	assert.Equal(t, "received", d.Stage)
	assert.Equal(t, "CANCELLED", d.Code)
}

func TestGenerateAll_IndependentFailures(t *testing.T) {
	e := testEngine(t, WithConcurrency(2))

	reqs := []*chain.Request{goodRequest("a"), conflictRequest(), goodRequest("c"), goodRequest("d")}
	results := e.GenerateAll(context.Background(), reqs)
	require.Len(t, results, len(reqs))

	for i, r := range results {
		assert.Same(t, reqs[i], r.Request)
	}
	require.ErrorIs(t, results[1].Err, deps.ErrPlatformConflict)
	assert.Nil(t, results[1].Unit)

	for _, i := range []int{0, 2, 3} {
		require.NoError(t, results[i].Err)
		assert.Equal(t, reqs[i].Name, results[i].Unit.Name())
	}
}

func writeCompiler(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-script toolchains need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "cc")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
	return path
}

func TestBuild_Succeeds(t *testing.T) {
	cc := writeCompiler(t, "#!/bin/sh\nwhile [ $# -gt 0 ]; do\n  if [ \"$1\" = \"-o\" ]; then out=\"$2\"; fi\n  shift\ndone\n: > \"$out\"\n")
	e := testEngine(t, WithBuilder(build.NewOrchestrator(t.TempDir())))

	unit, artifact, err := e.Build(context.Background(), goodRequest("exfil"), build.TargetSpec{Compiler: cc})
	require.NoError(t, err)
	assert.Equal(t, unit.Digest(), artifact.UnitDigest)
	assert.FileExists(t, artifact.Path)
}

func TestBuild_TargetPlatformFiltersModules(t *testing.T) {
	e := testEngine(t, WithBuilder(build.NewOrchestrator(t.TempDir())))

	_, _, err := e.Build(context.Background(), goodRequest("exfil"), build.TargetSpec{Platform: catalog.PlatformWindows})
	require.ErrorIs(t, err, deps.ErrPlatformConflict)

	d := Diagnose(err)
	assert.Equal(t, "resolved", d.Stage)
	assert.Equal(t, "PLATFORM_CONFLICT", d.Code)
	assert.Equal(t, 2, d.ExitCode)
	assert.NotEmpty(t, d.Suggestions)
}

func TestBuild_PlatformConflictWithTarget(t *testing.T) {
	e := testEngine(t, WithBuilder(build.NewOrchestrator(t.TempDir())))
	req := goodRequest("exfil")
	req.Platform = catalog.PlatformLinux

	unit, _, err := e.Build(context.Background(), req, build.TargetSpec{Platform: catalog.PlatformWindows})
	require.ErrorIs(t, err, deps.ErrPlatformConflict)
	require.NotNil(t, unit)

	d := Diagnose(err)
	assert.Equal(t, StageBuilt, d.Stage)
	assert.Equal(t, "PLATFORM_CONFLICT", d.Code)
}

func TestBuild_InvalidTargetDiagnostic(t *testing.T) {
	e := testEngine(t, WithBuilder(build.NewOrchestrator(t.TempDir())))

	_, _, err := e.Build(context.Background(), goodRequest("exfil"), build.TargetSpec{Language: catalog.LanguageCpp})
	require.ErrorIs(t, err, build.ErrInvalidTarget)
	assert.Equal(t, StageBuilt, Diagnose(err).Stage)
}

func TestBuild_ToolchainDiagnostic(t *testing.T) {
	cc := writeCompiler(t, "#!/bin/sh\necho 'main.c:40:1: error: unknown type name' >&2\nexit 1\n")
	e := testEngine(t, WithBuilder(build.NewOrchestrator(t.TempDir())))

	unit, _, err := e.Build(context.Background(), goodRequest("exfil"), build.TargetSpec{Compiler: cc})
	require.Error(t, err)
	require.NotNil(t, unit)

	d := Diagnose(err)
	assert.Equal(t, StageBuilt, d.Stage)
	assert.Equal(t, "TOOLCHAIN_ERROR", d.Code)
	assert.Equal(t, 5, d.ExitCode)
	assert.Equal(t, 1, d.ToolExit)
	assert.Equal(t, "main.c:40:1: error: unknown type name\n", d.Output)
}

func TestBuild_WithoutBuilder(t *testing.T) {
	_, _, err := testEngine(t).Build(context.Background(), goodRequest("exfil"), build.TargetSpec{})
	require.Error(t, err)
}

func TestDiagnose_Nil(t *testing.T) {
	assert.Nil(t, Diagnose(nil))
}

func TestDiagnose_OutsidePipeline(t *testing.T) {
	_, err := testEngine(t).Registry().Lookup("missing")
	d := Diagnose(err)
	assert.Empty(t, d.Stage)
	assert.Equal(t, "MODULE_NOT_FOUND", d.Code)
	assert.Equal(t, 4, d.ExitCode)
}

func TestErrorCodeAndExitCode(t *testing.T) {
	tests := []struct {
		err  error
		code string
		exit int
	}{
		{catalog.ErrModuleNotFound, "MODULE_NOT_FOUND", 4},
		{catalog.ErrDuplicateModuleID, "DUPLICATE_MODULE_ID", 1},
		{catalog.ErrRegistryFrozen, "REGISTRY_FROZEN", 1},
		{catalog.ErrInvalidModule, "INVALID_MODULE", 2},
		{&template.MissingBindingError{Module: "m", Name: "p"}, "MISSING_BINDING", 2},
		{template.ErrUnknownPlaceholder, "UNKNOWN_PLACEHOLDER", 2},
		{&catalog.KindMismatchError{Param: "p", Want: catalog.KindPath, Got: "integer"}, "KIND_MISMATCH", 2},
		{template.ErrUnsafeValue, "UNSAFE_VALUE", 2},
		{chain.ErrForwardReference, "FORWARD_REFERENCE", 2},
		{chain.ErrUnknownOutput, "UNKNOWN_OUTPUT", 2},
		{deps.ErrPlatformConflict, "PLATFORM_CONFLICT", 2},
		{deps.ErrLanguageConflict, "LANGUAGE_CONFLICT", 2},
		{chain.ErrInvalidRequest, "INVALID_REQUEST", 2},
		{build.ErrInvalidTarget, "INVALID_TARGET", 2},
		{&build.ToolchainError{Tool: "cc", ExitCode: 1}, "TOOLCHAIN_ERROR", 5},
		{build.ErrCancelled, "CANCELLED", 130},
		{errors.New("boom"), "INTERNAL", 1},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			wrapped := &chain.StageError{Request: "r", Stage: chain.StateValidated, Err: fmt.Errorf("step 0: %w", tt.err)}
			assert.Equal(t, tt.code, ErrorCode(wrapped))
			assert.Equal(t, tt.exit, ExitCode(wrapped))
		})
	}

	assert.Equal(t, "", ErrorCode(nil))
	assert.Equal(t, 0, ExitCode(nil))
	assert.Nil(t, Suggestions(nil))
}

func TestWithErrorCode(t *testing.T) {
	assert.Nil(t, WithErrorCode(nil, "X"))

	base := errors.New("base")
	err := WithErrorCode(base, "CUSTOM")
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "CUSTOM", ErrorCode(err))
	assert.Equal(t, 2, ExitCode(err))
}
