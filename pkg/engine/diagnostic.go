package engine

import (
	"errors"

	"github.com/vulntor/forge/pkg/build"
	"github.com/vulntor/forge/pkg/chain"
)

// StageBuilt is the stage reported for failures inside the build orchestrator.
const StageBuilt = "built"

// Diagnostic is the structured form of a failed request.
type Diagnostic struct {
	Stage       string   `json:"stage,omitempty"`
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	ExitCode    int      `json:"exitCode"`
	ToolExit    int      `json:"toolExitCode,omitempty"`
	Output      string   `json:"output,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// Diagnose converts err into a Diagnostic. Stage is empty for failures
// outside the pipeline. It returns nil for a nil error.
func Diagnose(err error) *Diagnostic {
	if err == nil {
		return nil
	}

	d := &Diagnostic{
		Code:        ErrorCode(err),
		Message:     err.Error(),
		ExitCode:    ExitCode(err),
		Suggestions: Suggestions(err),
	}

	var (
		stageErr *chain.StageError
		buildErr *buildError
	)
	switch {
	case errors.As(err, &stageErr):
		d.Stage = stageErr.Stage.String()
	case errors.As(err, &buildErr):
		d.Stage = StageBuilt
	}

	var tcErr *build.ToolchainError
	if errors.As(err, &tcErr) {
		d.ToolExit = tcErr.ExitCode
		d.Output = tcErr.Diagnostics
	}
	return d
}
