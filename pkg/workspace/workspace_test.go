package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrepareCreatesStructure(t *testing.T) {
	root := filepath.Join(t.TempDir(), "ws")

	prepared, err := Prepare(root)
	require.NoError(t, err)
	require.Equal(t, root, prepared)

	for _, sub := range Subdirectories() {
		info, err := os.Stat(filepath.Join(root, sub))
		require.NoError(t, err, sub)
		require.True(t, info.IsDir(), sub)
	}
	require.Equal(t, filepath.Join(root, "builds"), Builds(root))
	require.Equal(t, filepath.Join(root, "artifacts"), Artifacts(root))
}

func TestPrepareUsesEnvOverride(t *testing.T) {
	want := filepath.Join(t.TempDir(), "forge-ws")
	t.Setenv(EnvVar, want)

	prepared, err := Prepare("")
	require.NoError(t, err)
	require.Equal(t, want, prepared)
	require.DirExists(t, filepath.Join(want, BuildsDir))
}

func TestPrepareUsesDataDir(t *testing.T) {
	data := t.TempDir()
	t.Setenv(EnvVar, "")
	t.Setenv("XDG_DATA_HOME", data)

	require.Equal(t, filepath.Join(data, "forge"), DefaultRoot())
}

func TestPrepare_ErrCreateWorkspaceSubdir(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, defaultSubdirs[0]), []byte("not a dir"), 0o600))

	_, err := Prepare(tmp)
	require.Error(t, err)
}
