// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package format renders command results as tables or JSON.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/vulntor/forge/pkg/engine"
)

// OutputMode defines the output format for CLI commands
type OutputMode string

const (
	// ModeJSON outputs data as JSON
	ModeJSON OutputMode = "json"
	// ModeTable outputs data as ASCII table
	ModeTable OutputMode = "table"
)

var (
	stageStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	codeStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	outputStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("250")).PaddingLeft(2)
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// Formatter provides consistent output formatting across CLI commands
type Formatter interface {
	// PrintJSON outputs data as JSON to stdout
	PrintJSON(data any) error

	// PrintTable outputs data as ASCII table to stdout
	PrintTable(headers []string, rows [][]string) error

	// PrintSummary outputs a summary message (unless quiet mode)
	PrintSummary(message string) error

	// PrintDiagnostic reports a failed request
	PrintDiagnostic(d *engine.Diagnostic) error

	// Mode returns the output mode
	Mode() OutputMode
}

type formatter struct {
	stdout io.Writer
	stderr io.Writer
	mode   OutputMode
	quiet  bool
	color  bool
}

// New creates a new Formatter
func New(stdout, stderr io.Writer, mode OutputMode, quiet, color bool) Formatter {
	return &formatter{
		stdout: stdout,
		stderr: stderr,
		mode:   mode,
		quiet:  quiet,
		color:  color,
	}
}

func (f *formatter) Mode() OutputMode { return f.mode }

// PrintJSON outputs data as JSON to stdout
func (f *formatter) PrintJSON(data any) error {
	enc := json.NewEncoder(f.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// PrintTable outputs data as ASCII table to stdout
func (f *formatter) PrintTable(headers []string, rows [][]string) error {
	if f.mode == ModeJSON {
		items := make([]map[string]string, 0, len(rows))
		for _, row := range rows {
			item := make(map[string]string)
			for i, header := range headers {
				if i < len(row) {
					item[header] = row[i]
				}
			}
			items = append(items, item)
		}
		return f.PrintJSON(items)
	}

	w := tabwriter.NewWriter(f.stdout, 0, 0, 2, ' ', 0)

	headerLine := make([]string, len(headers))
	for i, h := range headers {
		headerLine[i] = strings.ToUpper(h)
		if f.color {
			headerLine[i] = color.New(color.Bold).Sprint(headerLine[i])
		}
	}
	if _, err := fmt.Fprintln(w, strings.Join(headerLine, "\t")); err != nil {
		return err
	}

	for _, row := range rows {
		if _, err := fmt.Fprintln(w, strings.Join(row, "\t")); err != nil {
			return err
		}
	}

	return w.Flush()
}

// PrintSummary outputs a summary message. In JSON mode it goes to stderr so
// stdout stays machine-readable.
func (f *formatter) PrintSummary(message string) error {
	if f.quiet {
		return nil
	}

	out := f.stdout
	if f.mode == ModeJSON {
		out = f.stderr
	}
	if f.color {
		_, err := color.New(color.FgGreen).Fprintln(out, message)
		return err
	}
	_, err := fmt.Fprintln(out, message)
	return err
}

// PrintDiagnostic reports a failure. Toolchain output is printed verbatim.
//
//	✗ build failed at stage built [TOOLCHAIN_ERROR]: ...
//	    main.c:12:5: error: ...
//
//	💡 Suggestions:
//	  → ...
func (f *formatter) PrintDiagnostic(d *engine.Diagnostic) error {
	if d == nil {
		return nil
	}

	if f.mode == ModeJSON {
		return f.PrintJSON(map[string]any{
			"success":    false,
			"diagnostic": d,
		})
	}

	var sb strings.Builder
	code := fmt.Sprintf("[%s]", d.Code)
	if f.color {
		code = codeStyle.Render(code)
	}
	if d.Stage != "" {
		stage := fmt.Sprintf("stage %s", d.Stage)
		if f.color {
			stage = stageStyle.Render(stage)
		}
		fmt.Fprintf(&sb, "✗ %s %s: %s\n", stage, code, d.Message)
	} else {
		fmt.Fprintf(&sb, "✗ %s: %s\n", code, d.Message)
	}

	if d.Output != "" {
		if f.color {
			sb.WriteString(outputStyle.Render(strings.TrimRight(d.Output, "\n")))
			sb.WriteString("\n")
		} else {
			sb.WriteString(d.Output)
			if !strings.HasSuffix(d.Output, "\n") {
				sb.WriteString("\n")
			}
		}
	}

	if len(d.Suggestions) > 0 {
		sb.WriteString("\n💡 Suggestions:\n")
		for _, s := range d.Suggestions {
			line := "  → " + s
			if f.color {
				line = hintStyle.Render(line)
			}
			sb.WriteString(line + "\n")
		}
	}

	_, err := io.WriteString(f.stderr, sb.String())
	return err
}

// ValidateMode checks if the output mode is valid
func ValidateMode(mode string) error {
	switch OutputMode(mode) {
	case ModeJSON, ModeTable:
		return nil
	default:
		return fmt.Errorf("invalid output mode: %s (must be 'json' or 'table')", mode)
	}
}

// ParseMode converts a string to OutputMode
func ParseMode(mode string) OutputMode {
	switch strings.ToLower(mode) {
	case "json":
		return ModeJSON
	default:
		return ModeTable
	}
}
