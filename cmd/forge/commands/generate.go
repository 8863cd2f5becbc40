package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vulntor/forge/cmd/forge/internal/format"
	"github.com/vulntor/forge/pkg/catalog"
	"github.com/vulntor/forge/pkg/chain"
	"github.com/vulntor/forge/pkg/config"
	"github.com/vulntor/forge/pkg/engine"
	"github.com/vulntor/forge/pkg/watch"
)

type generateOptions struct {
	out   string
	dir   string
	watch bool
}

// unitReport is the JSON form of a generated unit.
type unitReport struct {
	Name      string   `json:"name"`
	Platform  string   `json:"platform"`
	Language  string   `json:"language"`
	File      string   `json:"file,omitempty"`
	Digest    string   `json:"digest"`
	Includes  []string `json:"includes"`
	Libraries []string `json:"libraries"`
	Packages  []string `json:"packages,omitempty"`
	Notes     []string `json:"notes,omitempty"`
	Source    string   `json:"source,omitempty"`
}

func newUnitReport(unit *chain.Unit, file string) unitReport {
	r := unitReport{
		Name:      unit.Name(),
		Platform:  string(unit.Platform()),
		Language:  string(unit.Language()),
		File:      file,
		Digest:    unit.Digest(),
		Includes:  unit.Includes(),
		Libraries: unit.Libraries(),
		Packages:  unit.Packages(),
		Notes:     unit.Notes(),
	}
	if file == "" {
		r.Source = unit.Source()
	}
	return r
}

func newGenerateCommand() *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate <request>...",
		Short: "Assemble chain requests into source units",
		Long: `Assemble one or more chain request files (YAML, JSON or HCL) into
compilable source units.

A single request is written to --out or printed to stdout. Several requests
are assembled concurrently and written to <dir>/<name>.<ext>; each request
fails on its own.`,
		Example: `  forge generate chain.yaml
  forge generate chain.yaml -o main.c
  forge generate a.yaml b.hcl --dir out/
  forge generate chain.yaml -o main.c --watch`,
		GroupID: "chain",
		Args:    usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.out != "" && len(args) > 1 {
				return engine.WithErrorCode(errors.New("--out takes a single request, use --dir for several"), errorCodeUsage)
			}
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			if opts.watch {
				return watchGenerate(cmd, cfg, args, opts)
			}
			reg, err := registryFrom(cmd)
			if err != nil {
				return err
			}
			return runGenerate(cmd, reg, cfg, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Write the source unit to this file instead of stdout")
	cmd.Flags().StringVar(&opts.dir, "dir", ".", "Directory for units when several requests are given")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Regenerate when the request or catalog changes")
	return cmd
}

func runGenerate(cmd *cobra.Command, reg *catalog.Registry, cfg config.Config, args []string, opts *generateOptions) error {
	eng := engine.New(reg, engine.WithConcurrency(cfg.Engine.Concurrency))
	f := format.FromCommand(cmd)

	if len(args) == 1 {
		req, err := chain.LoadRequest(args[0])
		if err != nil {
			return err
		}
		unit, err := eng.Generate(cmd.Context(), req)
		if err != nil {
			return err
		}
		return emitUnit(cmd, f, unit, opts.out)
	}

	reqs := make([]*chain.Request, 0, len(args))
	for _, path := range args {
		req, err := chain.LoadRequest(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		reqs = append(reqs, req)
	}
	return emitBatch(cmd, f, eng.GenerateAll(cmd.Context(), reqs), opts.dir)
}

// emitUnit writes one unit to path, or to stdout when path is empty.
func emitUnit(cmd *cobra.Command, f format.Formatter, unit *chain.Unit, path string) error {
	if path != "" {
		if err := writeSource(path, unit.Source()); err != nil {
			return err
		}
	}

	if f.Mode() == format.ModeJSON {
		return f.PrintJSON(newUnitReport(unit, path))
	}
	if path == "" {
		_, err := io.WriteString(cmd.OutOrStdout(), unit.Source())
		return err
	}
	for _, note := range unit.Notes() {
		log.Info().Str("unit", unit.Name()).Msg(note)
	}
	return f.PrintSummary(fmt.Sprintf("Wrote %s (%s)", path, shortDigest(unit.Digest())))
}

// emitBatch writes every successful unit to dir and reports each result.
// The first failure decides the exit code.
func emitBatch(cmd *cobra.Command, f format.Formatter, results []engine.Result, dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	var (
		firstErr error
		reports  []any
		rows     [][]string
	)
	for _, r := range results {
		if r.Err != nil {
			if firstErr == nil {
				firstErr = r.Err
			}
			d := engine.Diagnose(r.Err)
			rows = append(rows, []string{r.Request.Name, "failed", d.Stage, d.Code, ""})
			reports = append(reports, map[string]any{"name": r.Request.Name, "success": false, "diagnostic": d})
			continue
		}

		path := filepath.Join(dir, r.Unit.Name()+filepath.Ext(r.Unit.FileName()))
		if err := writeSource(path, r.Unit.Source()); err != nil {
			return err
		}
		rows = append(rows, []string{r.Unit.Name(), "ok", "", "", path})
		reports = append(reports, map[string]any{"name": r.Unit.Name(), "success": true, "unit": newUnitReport(r.Unit, path)})
	}

	if f.Mode() == format.ModeJSON {
		if err := f.PrintJSON(reports); err != nil {
			return err
		}
	} else if err := f.PrintTable([]string{"name", "status", "stage", "code", "file"}, rows); err != nil {
		return err
	}

	if firstErr != nil {
		return reported(firstErr)
	}
	return f.PrintSummary(fmt.Sprintf("Generated %d units", len(results)))
}

// watchGenerate regenerates on every change of the request files or the
// catalog directories. Failures are reported and watching continues.
func watchGenerate(cmd *cobra.Command, cfg config.Config, args []string, opts *generateOptions) error {
	f := format.FromCommand(cmd)

	var mu sync.Mutex
	regenerate := func() {
		mu.Lock()
		defer mu.Unlock()
		if err := regenerateOnce(cmd, cfg, args, opts); err != nil && !errors.Is(err, errReported) {
			_ = f.PrintDiagnostic(engine.Diagnose(err))
		}
	}

	regenerate()

	paths := append(append([]string{}, args...), cfg.Catalog.Dirs...)
	w, err := watch.New(paths, regenerate, log.Logger)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	if err := w.Start(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// regenerateOnce reloads the catalog so edited manifests take effect.
func regenerateOnce(cmd *cobra.Command, cfg config.Config, args []string, opts *generateOptions) error {
	reg, err := loadRegistry(cfg.Catalog)
	if err != nil {
		return err
	}
	return runGenerate(cmd, reg, cfg, args, opts)
}

func writeSource(path, source string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(source), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
