package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vulntor/forge/cmd/forge/internal/format"
	"github.com/vulntor/forge/pkg/version"
)

func newVersionCommand() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:     "version",
		Short:   "Print version information",
		GroupID: "core",
		Args:    usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if short {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Version)
				return err
			}

			f := format.FromCommand(cmd)
			if f.Mode() == format.ModeJSON {
				return f.PrintJSON(version.Get())
			}

			info := version.Get()
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\n  go:       %s\n  platform: %s\n",
				version.Info(), info.GoVersion, info.Platform)
			return err
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "Print only the version number")
	return cmd
}
