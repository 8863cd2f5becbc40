package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vulntor/forge/cmd/forge/internal/format"
	"github.com/vulntor/forge/pkg/chain"
	"github.com/vulntor/forge/pkg/engine"
)

type validationResult struct {
	File       string             `json:"file"`
	Name       string             `json:"name,omitempty"`
	Valid      bool               `json:"valid"`
	Digest     string             `json:"digest,omitempty"`
	Diagnostic *engine.Diagnostic `json:"diagnostic,omitempty"`
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <request>...",
		Short: "Check chain requests without writing any source",
		Long: `Run every request through assembly and report the stage and error code
of the first failure. Nothing is written. The exit code is that of the
first failing request.`,
		GroupID: "chain",
		Args:    usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registryFrom(cmd)
			if err != nil {
				return err
			}
			eng := engine.New(reg)

			var (
				firstErr error
				results  = make([]validationResult, 0, len(args))
			)
			for _, path := range args {
				res := validationResult{File: path}

				req, err := chain.LoadRequest(path)
				if err == nil {
					res.Name = req.Name
					var unit *chain.Unit
					if unit, err = eng.Generate(cmd.Context(), req); err == nil {
						res.Digest = unit.Digest()
					}
				}
				if err != nil {
					if firstErr == nil {
						firstErr = err
					}
					res.Diagnostic = engine.Diagnose(err)
				} else {
					res.Valid = true
				}
				results = append(results, res)
			}

			f := format.FromCommand(cmd)
			if f.Mode() == format.ModeJSON {
				if err := f.PrintJSON(results); err != nil {
					return err
				}
			} else {
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					status, stage, code, message := "ok", "", "", ""
					if r.Diagnostic != nil {
						status, stage, code, message = "failed", r.Diagnostic.Stage, r.Diagnostic.Code, r.Diagnostic.Message
					}
					rows = append(rows, []string{r.File, r.Name, status, stage, code, message})
				}
				if err := f.PrintTable([]string{"file", "name", "status", "stage", "code", "message"}, rows); err != nil {
					return err
				}
			}

			if firstErr != nil {
				return reported(firstErr)
			}
			return f.PrintSummary(fmt.Sprintf("%d requests valid", len(results)))
		},
	}
}
