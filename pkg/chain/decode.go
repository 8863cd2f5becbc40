// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package chain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a chain request encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatHCL  Format = "hcl"
)

// FormatFromPath picks the request format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".hcl":
		return FormatHCL, nil
	default:
		return "", fmt.Errorf("%w: unsupported request file extension %q (use .yaml, .yml, .json or .hcl)", ErrInvalidRequest, filepath.Ext(path))
	}
}

// LoadRequest reads and decodes the request file at path.
func LoadRequest(path string) (*Request, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read request file: %w", err)
	}
	return DecodeRequest(data, format, path)
}

// DecodeRequest decodes a request. filename is used in diagnostics only.
func DecodeRequest(data []byte, format Format, filename string) (*Request, error) {
	var (
		req *Request
		err error
	)
	switch format {
	case FormatYAML:
		req, err = decodeYAML(data)
	case FormatJSON:
		req, err = decodeJSON(data)
	case FormatHCL:
		req, err = decodeHCL(data, filename)
	default:
		return nil, fmt.Errorf("%w: unsupported request format %q", ErrInvalidRequest, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRequest, filename, err)
	}
	return req, nil
}

func decodeYAML(data []byte) (*Request, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var req Request
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty request")
		}
		return nil, err
	}
	return &req, nil
}

func decodeJSON(data []byte) (*Request, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var req Request
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty request")
		}
		return nil, err
	}
	return &req, nil
}
