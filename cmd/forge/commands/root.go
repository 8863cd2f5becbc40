// Package commands implements the forge command line.
package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vulntor/forge/cmd/forge/internal/format"
	"github.com/vulntor/forge/pkg/appctx"
	"github.com/vulntor/forge/pkg/catalog"
	"github.com/vulntor/forge/pkg/config"
	"github.com/vulntor/forge/pkg/engine"
	"github.com/vulntor/forge/pkg/logging"
	"github.com/vulntor/forge/pkg/paths"
)

const cliExecutable = "forge"

const errorCodeUsage = "INVALID_USAGE"

// NewCommand constructs the top-level forge command, wiring global flags,
// configuration, logging and the module catalog.
func NewCommand() *cobra.Command {
	var (
		configFile     string
		verbosityCount int
	)

	cmd := &cobra.Command{
		Use:   cliExecutable,
		Short: "Compose technique modules into a single C program",
		Long: `forge assembles chain requests against a catalog of parameterized
technique modules: it binds parameters, threads data-flow values between
steps, merges dependencies and emits one compilable source unit.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFile == "" {
				configFile = paths.ConfigFile()
			}
			manager := config.NewManager()
			if err := manager.Load(cmd.Flags(), configFile); err != nil {
				return engine.WithErrorCode(fmt.Errorf("load configuration: %w", err), errorCodeUsage)
			}
			cfg := manager.Get()
			if err := format.ValidateMode(cfg.Output.Format); err != nil {
				return engine.WithErrorCode(err, errorCodeUsage)
			}

			logging.SetLogWriter(cmd.ErrOrStderr())
			level := logging.VerbosityLevel(verbosityCount, cfg.Log.Level)
			if err := logging.ConfigureGlobalLogging(level, cfg.Log.Format); err != nil {
				return err
			}

			reg, err := loadRegistry(cfg.Catalog)
			if err != nil {
				return err
			}
			log.Debug().Int("modules", reg.Len()).Msg("Catalog loaded")

			ctx := appctx.WithConfig(cmd.Context(), manager)
			ctx = appctx.WithRegistry(ctx, reg)
			cmd.SetContext(ctx)
			return nil
		},
	}

	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return engine.WithErrorCode(err, errorCodeUsage)
	})

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file path")
	cmd.PersistentFlags().CountVarP(&verbosityCount, "verbosity", "v", "Increase logging verbosity (repeatable)")
	config.BindFlags(cmd.PersistentFlags())

	cmd.AddGroup(&cobra.Group{ID: "chain", Title: "Chain Commands"})
	cmd.AddGroup(&cobra.Group{ID: "core", Title: "Core Commands"})

	cmd.AddCommand(newCatalogCommand())
	cmd.AddCommand(newGenerateCommand())
	cmd.AddCommand(newBuildCommand())
	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}

// loadRegistry builds the catalog from the embedded modules and the
// configured directories. Later sources cannot redefine an id.
func loadRegistry(cfg config.CatalogConfig) (*catalog.Registry, error) {
	reg := catalog.NewRegistry()
	if cfg.Embedded {
		if _, err := catalog.LoadEmbedded(reg); err != nil {
			return nil, fmt.Errorf("load embedded catalog: %w", err)
		}
	}
	if _, err := catalog.LoadDirs(reg, cfg.Dirs...); err != nil {
		return nil, err
	}
	return reg, nil
}

// Execute runs the command tree and reports a failure as a diagnostic. It
// returns the process exit code.
func Execute(ctx context.Context, cmd *cobra.Command) int {
	executed, err := cmd.ExecuteContextC(ctx)
	if err == nil {
		return 0
	}
	if errors.Is(err, errReported) {
		return engine.ExitCode(err)
	}
	if executed == nil {
		executed = cmd
	}
	d := engine.Diagnose(err)
	_ = format.FromCommand(executed).PrintDiagnostic(d)
	return d.ExitCode
}

// errReported marks errors whose diagnostics a command already printed.
var errReported = errors.New("reported")

type reportedError struct{ err error }

func (e *reportedError) Error() string   { return e.err.Error() }
func (e *reportedError) Unwrap() []error { return []error{e.err, errReported} }

func reported(err error) error {
	if err == nil {
		return nil
	}
	return &reportedError{err: err}
}

func registryFrom(cmd *cobra.Command) (*catalog.Registry, error) {
	reg, ok := appctx.Registry(cmd.Context())
	if !ok {
		return nil, errors.New("catalog not initialized")
	}
	return reg, nil
}

func configFrom(cmd *cobra.Command) (config.Config, error) {
	mgr, ok := appctx.Config(cmd.Context())
	if !ok {
		return config.Config{}, errors.New("configuration not initialized")
	}
	return mgr.Get(), nil
}

func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return engine.WithErrorCode(err, errorCodeUsage)
		}
		return nil
	}
}
