// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package build

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/vulntor/forge/pkg/catalog"
)

// ToolchainKind selects how a unit is compiled.
type ToolchainKind string

const (
	ToolchainCompiler ToolchainKind = "cc"    // Single compiler invocation
	ToolchainCMake    ToolchainKind = "cmake" // Generated CMake project
)

// TargetSpec describes how and where to build a unit.
type TargetSpec struct {
	Platform  catalog.Platform `yaml:"platform" json:"platform" validate:"omitempty,oneof=linux windows any"`
	Language  catalog.Language `yaml:"language" json:"language" validate:"omitempty,oneof=c cpp"`
	Toolchain ToolchainKind    `yaml:"toolchain" json:"toolchain" validate:"omitempty,oneof=cc cmake"`

	// Compiler is the compiler executable. Empty selects cc for C and c++
	// for C++, or lets CMake pick one.
	Compiler string `yaml:"compiler" json:"compiler"`
	// CMake is the cmake executable used by the cmake toolchain.
	CMake string `yaml:"cmake" json:"cmake"`

	Flags        []string `yaml:"flags" json:"flags" validate:"dive,required,startswith=-"`
	LibraryPaths []string `yaml:"library_paths" json:"libraryPaths" validate:"dive,required"`
	IncludeDirs  []string `yaml:"include_dirs" json:"includeDirs" validate:"dive,required"`

	// OutputPath is where the binary is moved after a successful build.
	// Empty leaves it in the work directory.
	OutputPath string `yaml:"output_path" json:"outputPath"`
	// Static links statically; the cmake toolchain resolves .a archives.
	Static bool `yaml:"static" json:"static"`
}

var targetValidator = validator.New()

// Validate checks the target spec.
func (t TargetSpec) Validate() error {
	if err := targetValidator.Struct(t); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidTarget, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	return nil
}

// withDefaults fills the toolchain and executables for language.
func (t TargetSpec) withDefaults(language catalog.Language) TargetSpec {
	if t.Toolchain == "" {
		t.Toolchain = ToolchainCompiler
	}
	if t.Compiler == "" && t.Toolchain == ToolchainCompiler {
		if language == catalog.LanguageCpp {
			t.Compiler = "c++"
		} else {
			t.Compiler = "cc"
		}
	}
	if t.CMake == "" {
		t.CMake = "cmake"
	}
	return t
}
