package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vulntor/forge/cmd/forge/internal/format"
	"github.com/vulntor/forge/pkg/catalog"
	"github.com/vulntor/forge/pkg/engine"
)

func newCatalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "catalog",
		Short:   "Inspect the module catalog",
		GroupID: "core",
	}
	cmd.AddCommand(newCatalogListCommand())
	cmd.AddCommand(newCatalogShowCommand())
	return cmd
}

func newCatalogListCommand() *cobra.Command {
	var (
		platform string
		category string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List modules, optionally filtered by platform",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := registryFrom(cmd)
			if err != nil {
				return err
			}

			p := catalog.Platform(platform)
			if !p.IsValid() {
				return engine.WithErrorCode(fmt.Errorf("unknown platform %q", platform), errorCodeUsage)
			}

			rows := [][]string{}
			for m := range reg.ListByPlatform(p) {
				if category != "" && m.Category != category {
					continue
				}
				rows = append(rows, []string{
					m.ID,
					m.Version,
					string(m.Platform),
					m.Category,
					languages(m.Languages),
					m.Description,
				})
			}

			f := format.FromCommand(cmd)
			if err := f.PrintTable([]string{"id", "version", "platform", "category", "languages", "description"}, rows); err != nil {
				return err
			}
			return f.PrintSummary(fmt.Sprintf("%d modules", len(rows)))
		},
	}

	cmd.Flags().StringVar(&platform, "platform", string(catalog.PlatformAny), "Platform filter (linux, windows, any)")
	cmd.Flags().StringVar(&category, "category", "", "Category filter")
	return cmd
}

func newCatalogShowCommand() *cobra.Command {
	var showSource bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a module's schema",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registryFrom(cmd)
			if err != nil {
				return err
			}
			m, err := reg.Lookup(args[0])
			if err != nil {
				return err
			}

			f := format.FromCommand(cmd)
			if f.Mode() == format.ModeJSON {
				view := m.Clone()
				if !showSource {
					view.Source = ""
				}
				return f.PrintJSON(view)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s (%s, %s)\n", m.ID, m.Version, m.Platform, m.Category)
			if m.Description != "" {
				fmt.Fprintf(out, "%s\n", m.Description)
			}
			fmt.Fprintf(out, "entry point: %s\nlanguages:   %s\n", m.EntryPoint, languages(m.Languages))
			if len(m.Includes) > 0 {
				fmt.Fprintf(out, "includes:    %s\n", strings.Join(m.Includes, ", "))
			}
			if len(m.Libraries) > 0 {
				fmt.Fprintf(out, "libraries:   %s\n", strings.Join(m.Libraries, ", "))
			}
			fmt.Fprintln(out)

			rows := make([][]string, 0, len(m.Params))
			for _, p := range m.Params {
				def := ""
				if p.HasDefault() {
					def = fmt.Sprint(p.Default)
				}
				output := ""
				if o, ok := m.OutputForParam(p.Name); ok {
					output = o.Name
				}
				rows = append(rows, []string{p.Name, string(p.Kind), def, output, p.Description})
			}
			if err := f.PrintTable([]string{"param", "kind", "default", "output", "description"}, rows); err != nil {
				return err
			}

			if showSource {
				fmt.Fprintf(out, "\n%s", m.Source)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showSource, "source", false, "Print the template source")
	return cmd
}

func languages(langs []catalog.Language) string {
	names := make([]string, len(langs))
	for i, l := range langs {
		names[i] = string(l)
	}
	return strings.Join(names, ",")
}
