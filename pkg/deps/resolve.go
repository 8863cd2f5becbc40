// Package deps merges the include, library and package requirements of the
// modules in a chain and checks that they can share one program.
package deps

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/vulntor/forge/pkg/catalog"
)

var (
	// ErrPlatformConflict is returned when modules target different platforms.
	ErrPlatformConflict = errors.New("platform conflict")

	// ErrLanguageConflict is returned when modules share no source language.
	ErrLanguageConflict = errors.New("language conflict")
)

// Target constrains resolution. Zero values leave the platform and language
// to be derived from the modules.
type Target struct {
	Platform catalog.Platform
	Language catalog.Language
}

// Manifest is the merged dependency set of a chain.
type Manifest struct {
	Platform  catalog.Platform `json:"platform" yaml:"platform"`
	Language  catalog.Language `json:"language" yaml:"language"`
	Includes  []string         `json:"includes" yaml:"includes"`
	Libraries []string         `json:"libraries" yaml:"libraries"`
	Packages  []string         `json:"packages,omitempty" yaml:"packages,omitempty"`
}

// Resolve merges the requirements of modules. Includes, libraries and
// packages are deduplicated and sorted lexically.
func Resolve(modules []*catalog.Module, target Target) (Manifest, error) {
	platform, err := resolvePlatform(modules, target.Platform)
	if err != nil {
		return Manifest{}, err
	}
	language, err := resolveLanguage(modules, target.Language)
	if err != nil {
		return Manifest{}, err
	}

	var includes, libraries, packages []string
	for _, m := range modules {
		includes = append(includes, m.Includes...)
		libraries = append(libraries, m.Libraries...)
		packages = append(packages, m.Packages...)
	}

	return Manifest{
		Platform:  platform,
		Language:  language,
		Includes:  sortedSet(includes),
		Libraries: sortedSet(libraries),
		Packages:  sortedSet(packages),
	}, nil
}

func resolvePlatform(modules []*catalog.Module, target catalog.Platform) (catalog.Platform, error) {
	resolved := catalog.PlatformAny
	owner := ""
	if target != "" && target != catalog.PlatformAny {
		resolved = target
		owner = "target"
	}

	for _, m := range modules {
		if m.Platform == catalog.PlatformAny {
			continue
		}
		if resolved == catalog.PlatformAny {
			resolved = m.Platform
			owner = m.ID
			continue
		}
		if m.Platform != resolved {
			return "", fmt.Errorf("%w: %s targets %s but %s targets %s", ErrPlatformConflict, m.ID, m.Platform, owner, resolved)
		}
	}
	return resolved, nil
}

func resolveLanguage(modules []*catalog.Module, target catalog.Language) (catalog.Language, error) {
	if target != "" {
		for _, m := range modules {
			if !m.Supports(target) {
				return "", fmt.Errorf("%w: %s does not support %s", ErrLanguageConflict, m.ID, target)
			}
		}
		return target, nil
	}

	common := []catalog.Language{catalog.LanguageC, catalog.LanguageCpp}
	for _, m := range modules {
		common = slices.DeleteFunc(common, func(l catalog.Language) bool {
			return !m.Supports(l)
		})
		if len(common) == 0 {
			return "", fmt.Errorf("%w: no language shared by all modules (at %s)", ErrLanguageConflict, m.ID)
		}
	}
	return common[0], nil
}

func sortedSet(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
