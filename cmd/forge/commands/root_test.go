package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chainRequest = `name: checksum
steps:
  - module: write-file
    params:
      path: /tmp/forge-test.txt
      content: hello
  - module: file-checksum
    params:
      input: {fromStep: 0, output: file}
`

const conflictingRequest = `name: broken
steps:
  - module: file-checksum
    params:
      input: {fromStep: 1, output: file}
  - module: write-file
    params:
      path: /tmp/forge-test.txt
`

const fakeCompiler = `#!/bin/sh
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then out="$2"; shift; fi
  shift
done
printf 'binary' > "$out"
`

type result struct {
	code   int
	stdout string
	stderr string
}

// run executes the CLI with an isolated config file and workspace.
func run(t *testing.T, args ...string) result {
	t.Helper()
	t.Setenv("FORGE_WORKSPACE_DIR", filepath.Join(t.TempDir(), "ws"))

	base := []string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "--no-color"}

	var stdout, stderr bytes.Buffer
	cmd := NewCommand()
	cmd.SetArgs(append(base, args...))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	code := Execute(context.Background(), cmd)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func writeFile(t *testing.T, dir, name, content string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), mode))
	return path
}

func TestCatalogList(t *testing.T) {
	res := run(t, "catalog", "list")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "ID")
	assert.Contains(t, res.stdout, "write-file")
	assert.Contains(t, res.stdout, "fibonacci")
}

func TestCatalogList_JSON(t *testing.T) {
	res := run(t, "--output", "json", "catalog", "list", "--category", "example")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, `"write-file"`)
}

func TestCatalogList_OutputFromEnvironment(t *testing.T) {
	t.Setenv("FORGE_OUTPUT_FORMAT", "json")

	res := run(t, "catalog", "list", "--category", "example")
	require.Equal(t, 0, res.code, res.stderr)

	var items []map[string]string
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &items))
	assert.NotEmpty(t, items)
}

func TestCatalogList_InvalidPlatform(t *testing.T) {
	res := run(t, "catalog", "list", "--platform", "darwin")
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stderr, "[INVALID_USAGE]")
}

func TestCatalogShow(t *testing.T) {
	res := run(t, "catalog", "show", "write-file")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "write-file 1.0.0")
	assert.Contains(t, res.stdout, "PARAM")
	assert.Contains(t, res.stdout, "content")
}

func TestCatalogShow_NotFound(t *testing.T) {
	res := run(t, "catalog", "show", "no-such-module")
	assert.Equal(t, 4, res.code)
	assert.Contains(t, res.stderr, "[MODULE_NOT_FOUND]")
	assert.Contains(t, res.stderr, "forge catalog list")
}

func TestCatalogDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "noop.yaml", "id: noop\nname: Noop\nversion: 0.1.0\nplatform: any\ncategory: test\nlanguages: [c]\nentry_point: noop\nsource: noop.c\n", 0o644)
	writeFile(t, dir, "noop.c", "void ${noop}(int argc, char *argv[]) { (void)argc; (void)argv; }\n", 0o644)

	res := run(t, "--catalog-dir", dir, "--embedded=false", "catalog", "list")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "noop")
	assert.NotContains(t, res.stdout, "write-file")
}

func TestGenerate_Stdout(t *testing.T) {
	req := writeFile(t, t.TempDir(), "chain.yaml", chainRequest, 0o644)

	res := run(t, "generate", req)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "#include <stdio.h>")
	assert.Contains(t, res.stdout, "/* step 1: file-checksum */")
	assert.Contains(t, res.stdout, "int main(int argc, char *argv[])")
}

func TestGenerate_IsDeterministic(t *testing.T) {
	req := writeFile(t, t.TempDir(), "chain.yaml", chainRequest, 0o644)

	first := run(t, "generate", req)
	second := run(t, "generate", req)
	require.Equal(t, 0, first.code, first.stderr)
	assert.Equal(t, first.stdout, second.stdout)
}

func TestGenerate_OutFile(t *testing.T) {
	dir := t.TempDir()
	req := writeFile(t, dir, "chain.yaml", chainRequest, 0o644)
	out := filepath.Join(dir, "src", "main.c")

	res := run(t, "--output", "json", "generate", req, "-o", out)
	require.Equal(t, 0, res.code, res.stderr)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "int main(")

	var report unitReport
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &report))
	assert.Equal(t, "checksum", report.Name)
	assert.Equal(t, out, report.File)
	assert.Empty(t, report.Source)
	assert.Equal(t, []string{"stdio.h"}, report.Includes)
}

func TestGenerate_Failure(t *testing.T) {
	req := writeFile(t, t.TempDir(), "broken.yaml", conflictingRequest, 0o644)

	res := run(t, "generate", req)
	assert.Equal(t, 2, res.code)
	assert.Empty(t, res.stdout)
	assert.Contains(t, res.stderr, "[FORWARD_REFERENCE]")
	assert.Contains(t, res.stderr, "stage validated")
}

func TestGenerate_Batch(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "chain.yaml", chainRequest, 0o644)
	bad := writeFile(t, dir, "broken.yaml", conflictingRequest, 0o644)
	outDir := filepath.Join(dir, "out")

	res := run(t, "generate", good, bad, "--dir", outDir)
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stdout, "FORWARD_REFERENCE")
	assert.FileExists(t, filepath.Join(outDir, "checksum.c"))
	assert.NoFileExists(t, filepath.Join(outDir, "broken.c"))
}

func TestGenerate_OutWithSeveralRequests(t *testing.T) {
	dir := t.TempDir()
	req := writeFile(t, dir, "chain.yaml", chainRequest, 0o644)

	res := run(t, "generate", req, req, "-o", filepath.Join(dir, "main.c"))
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stderr, "[INVALID_USAGE]")
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "chain.yaml", chainRequest, 0o644)
	bad := writeFile(t, dir, "broken.yaml", conflictingRequest, 0o644)

	res := run(t, "validate", good)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "ok")

	res = run(t, "--output", "json", "validate", good, bad)
	assert.Equal(t, 2, res.code)

	var results []validationResult
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &results))
	require.Len(t, results, 2)
	assert.True(t, results[0].Valid)
	assert.NotEmpty(t, results[0].Digest)
	assert.False(t, results[1].Valid)
	require.NotNil(t, results[1].Diagnostic)
	assert.Equal(t, "FORWARD_REFERENCE", results[1].Diagnostic.Code)
	assert.Equal(t, "validated", results[1].Diagnostic.Stage)
}

func TestValidate_MissingFile(t *testing.T) {
	res := run(t, "validate", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.NotEqual(t, 0, res.code)
	assert.Contains(t, res.stdout, "failed")
}

func TestBuild(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell-script toolchains need a POSIX shell")
	}
	dir := t.TempDir()
	req := writeFile(t, dir, "chain.yaml", chainRequest, 0o644)
	cc := writeFile(t, dir, "cc", fakeCompiler, 0o755)
	out := filepath.Join(dir, "bin", "checksum")

	res := run(t, "build", req, "--compiler", cc, "--flag", "-O2", "-o", out)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "binary", string(data))
}

func TestBuild_DefaultArtifactPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell-script toolchains need a POSIX shell")
	}
	dir := t.TempDir()
	req := writeFile(t, dir, "chain.yaml", chainRequest, 0o644)
	cc := writeFile(t, dir, "cc", fakeCompiler, 0o755)
	ws := filepath.Join(dir, "ws")

	res := run(t, "--workspace", ws, "build", req, "--compiler", cc)
	require.Equal(t, 0, res.code, res.stderr)
	assert.FileExists(t, filepath.Join(ws, "artifacts", "checksum"))
}

func TestBuild_ToolchainFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell-script toolchains need a POSIX shell")
	}
	dir := t.TempDir()
	req := writeFile(t, dir, "chain.yaml", chainRequest, 0o644)
	cc := writeFile(t, dir, "cc", "#!/bin/sh\necho 'main.c:3:1: error: boom' >&2\nexit 1\n", 0o755)

	res := run(t, "build", req, "--compiler", cc)
	assert.Equal(t, 5, res.code)
	assert.Contains(t, res.stderr, "[TOOLCHAIN_ERROR]")
	assert.Contains(t, res.stderr, "main.c:3:1: error: boom")
}

func TestBuild_InvalidFlag(t *testing.T) {
	req := writeFile(t, t.TempDir(), "chain.yaml", chainRequest, 0o644)

	res := run(t, "build", req, "--flag", "O2")
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stderr, "[INVALID_TARGET]")
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		format string
	}{
		{"unknown flag", []string{"catalog", "list", "--bogus"}, ""},
		{"missing argument", []string{"generate"}, ""},
		{"invalid output mode", []string{"--output", "xml", "catalog", "list"}, ""},
		{"invalid output mode from environment", []string{"catalog", "list"}, "xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.format != "" {
				t.Setenv("FORGE_OUTPUT_FORMAT", tt.format)
			}
			res := run(t, tt.args...)
			assert.Equal(t, 2, res.code)
			assert.Contains(t, res.stderr, "[INVALID_USAGE]")
		})
	}
}

func TestVersion(t *testing.T) {
	res := run(t, "version", "--short")
	require.Equal(t, 0, res.code)
	assert.Equal(t, "dev\n", res.stdout)

	res = run(t, "--output", "json", "version")
	require.Equal(t, 0, res.code)
	assert.Contains(t, res.stdout, `"goVersion"`)
}
