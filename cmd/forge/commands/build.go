package commands

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vulntor/forge/cmd/forge/internal/format"
	"github.com/vulntor/forge/pkg/build"
	"github.com/vulntor/forge/pkg/catalog"
	"github.com/vulntor/forge/pkg/chain"
	"github.com/vulntor/forge/pkg/config"
	"github.com/vulntor/forge/pkg/engine"
	"github.com/vulntor/forge/pkg/workspace"
)

type buildOptions struct {
	out      string
	platform string
	language string
}

func newBuildCommand() *cobra.Command {
	opts := &buildOptions{}

	cmd := &cobra.Command{
		Use:   "build <request>",
		Short: "Assemble a chain request and compile it",
		Long: `Assemble a chain request and compile the unit with the configured
toolchain. Sources, manifest.json and toolchain output are kept in the
workspace build directory; the binary is moved to --out, which defaults to
<workspace>/artifacts/<name>.`,
		Example: `  forge build chain.yaml
  forge build chain.yaml --platform linux --static -o ./hello
  forge build chain.yaml --toolchain cmake --lib-path /opt/lib`,
		GroupID: "chain",
		Args:    usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registryFrom(cmd)
			if err != nil {
				return err
			}
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}

			req, err := chain.LoadRequest(args[0])
			if err != nil {
				return err
			}

			root, err := workspace.Prepare(cfg.Workspace.Dir)
			if err != nil {
				return err
			}
			log.Debug().Str("workspace", root).Msg("Workspace prepared")

			target := targetFromConfig(cfg.Build, opts)
			if target.OutputPath == "" {
				target.OutputPath = filepath.Join(workspace.Artifacts(root), req.Name)
			}

			orchestrator := build.NewOrchestrator(root, build.WithTimeout(cfg.Build.Timeout))
			eng := engine.New(reg, engine.WithBuilder(orchestrator), engine.WithConcurrency(cfg.Engine.Concurrency))

			unit, artifact, err := eng.Build(cmd.Context(), req, target)
			if err != nil {
				return err
			}
			return printArtifact(format.FromCommand(cmd), unit, artifact)
		},
	}

	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Path the binary is moved to")
	cmd.Flags().StringVar(&opts.platform, "platform", "", "Target platform (linux, windows)")
	cmd.Flags().StringVar(&opts.language, "language", "", "Target language (c, cpp)")
	config.BindBuildFlags(cmd.Flags())
	return cmd
}

func targetFromConfig(cfg config.BuildConfig, opts *buildOptions) build.TargetSpec {
	return build.TargetSpec{
		Platform:     catalog.Platform(opts.platform),
		Language:     catalog.Language(opts.language),
		Toolchain:    build.ToolchainKind(cfg.Toolchain),
		Compiler:     cfg.Compiler,
		CMake:        cfg.CMake,
		Flags:        cfg.Flags,
		LibraryPaths: cfg.LibraryPaths,
		IncludeDirs:  cfg.IncludeDirs,
		OutputPath:   opts.out,
		Static:       cfg.Static,
	}
}

func printArtifact(f format.Formatter, unit *chain.Unit, a *build.Artifact) error {
	if a.Output != "" {
		log.Debug().Str("toolchain", string(a.Toolchain)).Msg(a.Output)
	}

	if f.Mode() == format.ModeJSON {
		return f.PrintJSON(map[string]any{
			"success":  true,
			"artifact": a,
			"unit":     newUnitReport(unit, unit.FileName()),
		})
	}

	rows := [][]string{
		{"name", a.Name},
		{"path", a.Path},
		{"toolchain", string(a.Toolchain)},
		{"platform", string(unit.Platform())},
		{"work dir", a.WorkDir},
		{"source digest", a.SourceDigest},
		{"duration", a.Duration.Round(time.Millisecond).String()},
	}
	if err := f.PrintTable([]string{"field", "value"}, rows); err != nil {
		return err
	}
	return f.PrintSummary(fmt.Sprintf("Built %s", a.Path))
}
