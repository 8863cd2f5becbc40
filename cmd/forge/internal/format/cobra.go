package format

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/vulntor/forge/pkg/appctx"
	"github.com/vulntor/forge/pkg/config"
)

// FromCommand builds a Formatter on cmd's writers. Settings come from the
// configuration loaded for the command, so FORGE_OUTPUT_* variables and the
// config file apply as well as --output, --quiet and --no-color. Before the
// configuration is loaded (a usage error, for instance) the flags are read
// directly.
func FromCommand(cmd *cobra.Command) Formatter {
	out := outputFromFlags(cmd.Flags())
	if ctx := cmd.Context(); ctx != nil {
		if mgr, ok := appctx.Config(ctx); ok {
			out = mgr.Get().Output
		}
	}
	return FromConfig(cmd, out)
}

// FromConfig builds a Formatter on cmd's writers with explicit settings.
func FromConfig(cmd *cobra.Command, out config.OutputConfig) Formatter {
	return New(cmd.OutOrStdout(), cmd.ErrOrStderr(), ParseMode(out.Format), out.Quiet, !out.NoColor)
}

// outputFromFlags reads the output flags, keeping defaults for flags the
// command does not define.
func outputFromFlags(flags *pflag.FlagSet) config.OutputConfig {
	out := config.DefaultConfig().Output
	if mode, err := flags.GetString("output"); err == nil {
		out.Format = mode
	}
	if quiet, err := flags.GetBool("quiet"); err == nil {
		out.Quiet = quiet
	}
	if noColor, err := flags.GetBool("no-color"); err == nil {
		out.NoColor = noColor
	}
	return out
}
