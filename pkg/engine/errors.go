package engine

import (
	"errors"

	"github.com/vulntor/forge/pkg/build"
	"github.com/vulntor/forge/pkg/catalog"
	"github.com/vulntor/forge/pkg/chain"
	"github.com/vulntor/forge/pkg/deps"
	"github.com/vulntor/forge/pkg/template"
)

const (
	errorCodeModuleNotFound     = "MODULE_NOT_FOUND"
	errorCodeDuplicateModule    = "DUPLICATE_MODULE_ID"
	errorCodeRegistryFrozen     = "REGISTRY_FROZEN"
	errorCodeInvalidModule      = "INVALID_MODULE"
	errorCodeMissingBinding     = "MISSING_BINDING"
	errorCodeUnknownPlaceholder = "UNKNOWN_PLACEHOLDER"
	errorCodeKindMismatch       = "KIND_MISMATCH"
	errorCodeUnsafeValue        = "UNSAFE_VALUE"
	errorCodeForwardReference   = "FORWARD_REFERENCE"
	errorCodeUnknownOutput      = "UNKNOWN_OUTPUT"
	errorCodePlatformConflict   = "PLATFORM_CONFLICT"
	errorCodeLanguageConflict   = "LANGUAGE_CONFLICT"
	errorCodeInvalidRequest     = "INVALID_REQUEST"
	errorCodeInvalidTarget      = "INVALID_TARGET"
	errorCodeToolchain          = "TOOLCHAIN_ERROR"
	errorCodeCancelled          = "CANCELLED"
	errorCodeInternal           = "INTERNAL"
)

type errorCoder interface {
	error
	Code() string
}

type withCodeError struct {
	error
	code string
}

func (e *withCodeError) Code() string {
	return e.code
}

func (e *withCodeError) Unwrap() error {
	return e.error
}

// WithErrorCode annotates err with an explicit error code.
func WithErrorCode(err error, code string) error {
	if err == nil {
		return nil
	}
	return &withCodeError{error: err, code: code}
}

// ErrorCode resolves an error to its machine-readable code.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var coded errorCoder
	if errors.As(err, &coded) {
		if code := coded.Code(); code != "" {
			return code
		}
	}

	switch {
	case errors.Is(err, catalog.ErrModuleNotFound):
		return errorCodeModuleNotFound
	case errors.Is(err, catalog.ErrDuplicateModuleID):
		return errorCodeDuplicateModule
	case errors.Is(err, catalog.ErrRegistryFrozen):
		return errorCodeRegistryFrozen
	case errors.Is(err, catalog.ErrInvalidModule):
		return errorCodeInvalidModule
	case errors.Is(err, template.ErrMissingBinding):
		return errorCodeMissingBinding
	case errors.Is(err, template.ErrUnknownPlaceholder):
		return errorCodeUnknownPlaceholder
	case errors.Is(err, catalog.ErrKindMismatch):
		return errorCodeKindMismatch
	case errors.Is(err, template.ErrUnsafeValue):
		return errorCodeUnsafeValue
	case errors.Is(err, chain.ErrForwardReference):
		return errorCodeForwardReference
	case errors.Is(err, chain.ErrUnknownOutput):
		return errorCodeUnknownOutput
	case errors.Is(err, deps.ErrPlatformConflict):
		return errorCodePlatformConflict
	case errors.Is(err, deps.ErrLanguageConflict):
		return errorCodeLanguageConflict
	case errors.Is(err, chain.ErrInvalidRequest):
		return errorCodeInvalidRequest
	case errors.Is(err, build.ErrInvalidTarget):
		return errorCodeInvalidTarget
	case errors.Is(err, build.ErrToolchain):
		return errorCodeToolchain
	case errors.Is(err, build.ErrCancelled):
		return errorCodeCancelled
	default:
		return errorCodeInternal
	}
}

// ExitCode maps errors to CLI exit codes:
//   - 0: success
//   - 1: general error
//   - 2: invalid request, module, binding or target
//   - 4: module not found
//   - 5: toolchain failure
//   - 130: cancelled
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	switch ErrorCode(err) {
	case errorCodeModuleNotFound:
		return 4
	case errorCodeToolchain:
		return 5
	case errorCodeCancelled:
		return 130
	case errorCodeInternal, errorCodeDuplicateModule, errorCodeRegistryFrozen:
		return 1
	default:
		return 2
	}
}

// Suggestions provides human readable guidance for CLI usage.
func Suggestions(err error) []string {
	if err == nil {
		return nil
	}

	switch ErrorCode(err) {
	case errorCodeModuleNotFound:
		return []string{
			"List available modules with: forge catalog list",
			"Check the step's version constraint against the module version",
		}
	case errorCodeMissingBinding:
		return []string{
			"Bind every parameter without a default in the step's params",
			"Inspect the module schema with: forge catalog show <id>",
		}
	case errorCodeUnknownPlaceholder:
		return []string{
			"Remove parameters the module does not declare",
		}
	case errorCodeKindMismatch:
		return []string{
			"Use {path: ...}, {buffer: ...} or {symbol: ...} to give a value an explicit kind",
			"Reference outputs whose kind matches the consuming parameter",
		}
	case errorCodeUnsafeValue:
		return []string{
			"Remove control characters and NUL bytes from string values",
			"Buffer and symbol values must be C identifiers",
		}
	case errorCodeForwardReference, errorCodeUnknownOutput:
		return []string{
			"A step may only reference outputs of earlier steps",
			"List a module's outputs with: forge catalog show <id>",
		}
	case errorCodePlatformConflict:
		return []string{
			"Do not mix linux and windows modules in one chain",
			"Set platform on the request to filter modules",
		}
	case errorCodeInvalidRequest:
		return []string{
			"Validate the request with: forge validate <file>",
		}
	case errorCodeInvalidTarget:
		return []string{
			"Check build.* settings and the --toolchain and --flag options",
		}
	case errorCodeToolchain:
		return []string{
			"Inspect the compiler output above; line numbers refer to the generated source",
			"Regenerate the source with: forge generate <file> -o main.c",
		}
	case errorCodeCancelled:
		return []string{
			"Increase build.timeout if the toolchain needs more time",
		}
	default:
		return nil
	}
}
