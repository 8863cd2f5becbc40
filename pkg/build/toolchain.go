// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vulntor/forge/pkg/catalog"
	"github.com/vulntor/forge/pkg/deps"
)

// Job is one build handed to a toolchain.
type Job struct {
	Name       string
	WorkDir    string
	SourceFile string // Relative to WorkDir
	Manifest   deps.Manifest
	Target     TargetSpec
}

// Toolchain compiles a prepared work directory.
type Toolchain interface {
	// Prepare writes any toolchain files into the work directory. It runs
	// before the source tree is digested.
	Prepare(job *Job) error
	// Run compiles the job and returns the toolchain output and the path of
	// the produced binary.
	Run(ctx context.Context, job *Job) (output []byte, binary string, err error)
}

// binDir holds the produced binary, apart from the source and manifest, so a
// unit called main.c or manifest.json cannot overwrite them.
const binDir = "bin"

func binaryName(job *Job) string {
	if job.Manifest.Platform == catalog.PlatformWindows {
		return job.Name + ".exe"
	}
	return job.Name
}

// CompilerToolchain builds with a single compiler invocation.
type CompilerToolchain struct{}

// Prepare creates the binary directory.
func (CompilerToolchain) Prepare(job *Job) error {
	if err := os.MkdirAll(filepath.Join(job.WorkDir, binDir), 0o750); err != nil {
		return fmt.Errorf("create binary directory: %w", err)
	}
	return nil
}

// Args returns the compiler arguments for job.
func (CompilerToolchain) Args(job *Job) []string {
	args := make([]string, 0, 8+len(job.Target.Flags)+len(job.Target.IncludeDirs)+2*len(job.Manifest.Libraries))
	args = append(args, job.Target.Flags...)
	if job.Target.Static {
		args = append(args, "-static")
	}
	for _, dir := range job.Target.IncludeDirs {
		args = append(args, "-I"+dir)
	}
	args = append(args, "-o", filepath.Join(binDir, binaryName(job)), job.SourceFile)
	for _, dir := range job.Target.LibraryPaths {
		args = append(args, "-L"+dir)
	}
	for _, lib := range job.Manifest.Libraries {
		args = append(args, "-l"+lib)
	}
	return args
}

// Run implements Toolchain.
func (c CompilerToolchain) Run(ctx context.Context, job *Job) ([]byte, string, error) {
	out, err := run(ctx, job.WorkDir, job.Target.Compiler, c.Args(job)...)
	if err != nil {
		return out, "", err
	}
	return out, filepath.Join(job.WorkDir, binDir, binaryName(job)), nil
}

// CMakeToolchain generates a CMake project and builds it out of tree.
type CMakeToolchain struct{}

const cmakeBuildDir = "build"

// Prepare writes CMakeLists.txt.
func (CMakeToolchain) Prepare(job *Job) error {
	path := filepath.Join(job.WorkDir, "CMakeLists.txt")
	if err := os.WriteFile(path, []byte(CMakeLists(job)), 0o640); err != nil {
		return fmt.Errorf("write CMakeLists.txt: %w", err)
	}
	return nil
}

// Run implements Toolchain.
func (CMakeToolchain) Run(ctx context.Context, job *Job) ([]byte, string, error) {
	configure := []string{"-S", ".", "-B", cmakeBuildDir}
	if job.Target.Compiler != "" {
		if job.Manifest.Language == catalog.LanguageCpp {
			configure = append(configure, "-DCMAKE_CXX_COMPILER="+job.Target.Compiler)
		} else {
			configure = append(configure, "-DCMAKE_C_COMPILER="+job.Target.Compiler)
		}
	}

	out, err := run(ctx, job.WorkDir, job.Target.CMake, configure...)
	if err != nil {
		return out, "", err
	}

	more, err := run(ctx, job.WorkDir, job.Target.CMake, "--build", cmakeBuildDir)
	out = append(out, more...)
	if err != nil {
		return out, "", err
	}
	return out, filepath.Join(job.WorkDir, cmakeBuildDir, binDir, binaryName(job)), nil
}

// CMakeLists renders the CMake project for job. Static builds resolve every
// library to its .a archive with find_library.
func CMakeLists(job *Job) string {
	lang := "C"
	if job.Manifest.Language == catalog.LanguageCpp {
		lang = "CXX"
	}
	name := job.Name

	var b strings.Builder
	fmt.Fprintf(&b, "cmake_minimum_required(VERSION 3.13)\n")
	fmt.Fprintf(&b, "project(%s LANGUAGES %s)\n\n", name, lang)

	if job.Target.Static {
		b.WriteString("set(CMAKE_FIND_LIBRARY_SUFFIXES .a)\n")
	}
	fmt.Fprintf(&b, "add_executable(%s %s)\n", name, job.SourceFile)
	fmt.Fprintf(&b, "set_target_properties(%s PROPERTIES RUNTIME_OUTPUT_DIRECTORY \"${CMAKE_BINARY_DIR}/%s\")\n", name, binDir)

	if len(job.Target.Flags) > 0 {
		fmt.Fprintf(&b, "target_compile_options(%s PRIVATE %s)\n", name, strings.Join(job.Target.Flags, " "))
	}
	if len(job.Target.IncludeDirs) > 0 {
		fmt.Fprintf(&b, "target_include_directories(%s PRIVATE %s)\n", name, quoteAll(job.Target.IncludeDirs))
	}
	if len(job.Target.LibraryPaths) > 0 {
		fmt.Fprintf(&b, "target_link_directories(%s PRIVATE %s)\n", name, quoteAll(job.Target.LibraryPaths))
	}

	if len(job.Manifest.Libraries) > 0 {
		if job.Target.Static {
			vars := make([]string, 0, len(job.Manifest.Libraries))
			for i, lib := range job.Manifest.Libraries {
				v := fmt.Sprintf("FORGE_LIB_%d", i)
				hints := ""
				if len(job.Target.LibraryPaths) > 0 {
					hints = " PATHS " + quoteAll(job.Target.LibraryPaths)
				}
				fmt.Fprintf(&b, "find_library(%s NAMES %s%s REQUIRED)\n", v, lib, hints)
				vars = append(vars, "${"+v+"}")
			}
			fmt.Fprintf(&b, "target_link_libraries(%s PRIVATE %s)\n", name, strings.Join(vars, " "))
		} else {
			fmt.Fprintf(&b, "target_link_libraries(%s PRIVATE %s)\n", name, strings.Join(job.Manifest.Libraries, " "))
		}
	}
	if job.Target.Static {
		fmt.Fprintf(&b, "target_link_options(%s PRIVATE -static)\n", name)
	}
	return b.String()
}

func quoteAll(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = `"` + strings.ReplaceAll(item, `"`, `\"`) + `"`
	}
	return strings.Join(quoted, " ")
}
