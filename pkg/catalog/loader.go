// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// LoadManifest reads the YAML manifest at name from fsys together with the
// template file it references. The module is not registered.
func LoadManifest(fsys fs.FS, name string) (*Module, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", name, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m Module
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: failed to parse manifest %s: %v", ErrInvalidModule, name, err)
	}

	if strings.TrimSpace(m.SourceFile) == "" {
		return nil, fmt.Errorf("%w: manifest %s has no source file", ErrInvalidModule, name)
	}
	if path.IsAbs(m.SourceFile) || strings.Contains(m.SourceFile, "..") {
		return nil, fmt.Errorf("%w: manifest %s: source %q must be relative to the manifest", ErrInvalidModule, name, m.SourceFile)
	}

	src, err := fs.ReadFile(fsys, path.Join(path.Dir(name), m.SourceFile))
	if err != nil {
		return nil, fmt.Errorf("%w: manifest %s: failed to read source: %v", ErrInvalidModule, name, err)
	}
	m.Source = string(src)

	return &m, nil
}

// LoadFS registers every module manifest (*.yaml, *.yml) found under fsys and
// returns how many were registered. Loading stops at the first failure.
func LoadFS(reg *Registry, fsys fs.FS) (int, error) {
	logger := log.With().Str("component", "catalog-loader").Logger()

	count := 0
	err := fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(path.Ext(name))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		m, err := LoadManifest(fsys, name)
		if err != nil {
			return err
		}
		if err := reg.Register(m); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		logger.Debug().Str("manifest", name).Str("module", m.ID).Msg("Loaded module manifest")
		count++
		return nil
	})
	if err != nil {
		return count, err
	}

	return count, nil
}

// LoadDirs registers the modules of every catalog directory. Missing
// directories are skipped with a warning.
func LoadDirs(reg *Registry, dirs ...string) (int, error) {
	total := 0
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
			log.Warn().Str("component", "catalog-loader").Str("dir", dir).Msg("Catalog directory does not exist, skipping")
			continue
		}

		n, err := LoadFS(reg, os.DirFS(dir))
		total += n
		if err != nil {
			return total, fmt.Errorf("catalog %s: %w", dir, err)
		}
		log.Info().Str("component", "catalog-loader").Str("dir", dir).Int("modules", n).Msg("Loaded catalog directory")
	}
	return total, nil
}
