// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package catalog

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/rs/zerolog/log"
)

//go:embed embedded
var embeddedCatalog embed.FS

// EmbeddedFS returns the catalog shipped with the binary.
func EmbeddedFS() fs.FS {
	sub, err := fs.Sub(embeddedCatalog, "embedded")
	if err != nil {
		// embedded is a fixed directory of this package
		panic(err)
	}
	return sub
}

// LoadEmbedded registers the built-in example modules.
func LoadEmbedded(reg *Registry) (int, error) {
	n, err := LoadFS(reg, EmbeddedFS())
	if err != nil {
		return n, fmt.Errorf("failed to load embedded catalog: %w", err)
	}
	log.Info().Str("component", "catalog-loader").Int("modules", n).Msg("Embedded catalog loaded")
	return n, nil
}
