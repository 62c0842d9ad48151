package diag

import (
	"context"
	"errors"
	"fmt"
)

// Fatal error classes. Every error returned by the analysis pipeline wraps
// exactly one of these.
var (
	ErrConfiguration    = errors.New("configuration error")
	ErrMaterialNotFound = fmt.Errorf("%w: material not found", ErrConfiguration)
	ErrNumericalFailure = errors.New("numerical failure")
	ErrMeshing          = errors.New("mesh generation failed")
)

// Code is a coarse classification of a pipeline error.
type Code string

const (
	CodeOK            Code = "ok"
	CodeConfiguration Code = "configuration"
	CodeMaterial      Code = "material_not_found"
	CodeNumerical     Code = "numerical_failure"
	CodeMeshing       Code = "meshing"
	CodeCanceled      Code = "canceled"
	CodeUnknown       Code = "unknown"
)

// Classify maps an error onto its Code. The most specific class wins.
func Classify(err error) Code {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCanceled
	case errors.Is(err, ErrMaterialNotFound):
		return CodeMaterial
	case errors.Is(err, ErrConfiguration):
		return CodeConfiguration
	case errors.Is(err, ErrNumericalFailure):
		return CodeNumerical
	case errors.Is(err, ErrMeshing):
		return CodeMeshing
	default:
		return CodeUnknown
	}
}

// Configurationf returns a configuration error with a formatted detail.
func Configurationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// Numericalf returns a numerical failure with a formatted detail.
func Numericalf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNumericalFailure, fmt.Sprintf(format, args...))
}

// MaterialNotFound reports a region tag that names no material.
func MaterialNotFound(tag string) error {
	return fmt.Errorf("%w: %q", ErrMaterialNotFound, tag)
}
