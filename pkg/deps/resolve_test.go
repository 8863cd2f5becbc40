package deps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulntor/forge/pkg/catalog"
	"github.com/vulntor/forge/pkg/catalog/catalogtest"
)

func TestResolve_MergesAndSorts(t *testing.T) {
	modules := []*catalog.Module{
		catalogtest.New("screen",
			catalogtest.WithPlatform(catalog.PlatformLinux),
			catalogtest.WithIncludes("X11/Xlib.h", "stdio.h"),
			catalogtest.WithLibraries("X11", "png"),
			catalogtest.WithPackages("libx11-dev"),
		),
		catalogtest.New("compress",
			catalogtest.WithIncludes("zlib.h", "stdio.h"),
			catalogtest.WithLibraries("z"),
			catalogtest.WithPackages("zlib1g-dev", "libx11-dev"),
		),
	}

	got, err := Resolve(modules, Target{})
	require.NoError(t, err)
	assert.Equal(t, Manifest{
		Platform:  catalog.PlatformLinux,
		Language:  catalog.LanguageC,
		Includes:  []string{"X11/Xlib.h", "stdio.h", "zlib.h"},
		Libraries: []string{"X11", "png", "z"},
		Packages:  []string{"libx11-dev", "zlib1g-dev"},
	}, got)
}

func TestResolve_Empty(t *testing.T) {
	got, err := Resolve(nil, Target{})
	require.NoError(t, err)
	assert.Equal(t, catalog.PlatformAny, got.Platform)
	assert.Empty(t, got.Includes)
	assert.Empty(t, got.Libraries)
}

func TestResolve_PlatformConflict(t *testing.T) {
	modules := []*catalog.Module{
		catalogtest.New("linux-only", catalogtest.WithPlatform(catalog.PlatformLinux)),
		catalogtest.New("portable"),
		catalogtest.New("windows-only", catalogtest.WithPlatform(catalog.PlatformWindows)),
	}

	_, err := Resolve(modules, Target{})
	require.ErrorIs(t, err, ErrPlatformConflict)
	assert.Contains(t, err.Error(), "windows-only")
}

func TestResolve_TargetPlatform(t *testing.T) {
	modules := []*catalog.Module{
		catalogtest.New("linux-only", catalogtest.WithPlatform(catalog.PlatformLinux)),
	}

	_, err := Resolve(modules, Target{Platform: catalog.PlatformWindows})
	require.ErrorIs(t, err, ErrPlatformConflict)

	got, err := Resolve([]*catalog.Module{catalogtest.New("portable")}, Target{Platform: catalog.PlatformWindows})
	require.NoError(t, err)
	assert.Equal(t, catalog.PlatformWindows, got.Platform)
}

func TestResolve_Language(t *testing.T) {
	cOnly := catalogtest.New("c-only", catalogtest.WithLanguages(catalog.LanguageC))
	cppOnly := catalogtest.New("cpp-only", catalogtest.WithLanguages(catalog.LanguageCpp))
	both := catalogtest.New("both")

	got, err := Resolve([]*catalog.Module{both, cppOnly}, Target{})
	require.NoError(t, err)
	assert.Equal(t, catalog.LanguageCpp, got.Language)

	got, err = Resolve([]*catalog.Module{both}, Target{Language: catalog.LanguageCpp})
	require.NoError(t, err)
	assert.Equal(t, catalog.LanguageCpp, got.Language)

	_, err = Resolve([]*catalog.Module{cOnly, cppOnly}, Target{})
	require.ErrorIs(t, err, ErrLanguageConflict)

	_, err = Resolve([]*catalog.Module{cOnly}, Target{Language: catalog.LanguageCpp})
	require.ErrorIs(t, err, ErrLanguageConflict)
}
