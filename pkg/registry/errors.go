package registry

import "errors"

// Sentinel errors for registry and dispatch failures.
var (
	ErrNotFound              = errors.New("tool not found")
	ErrAlreadyExists         = errors.New("tool already registered")
	ErrValidation            = errors.New("validation failed")
	ErrArgsTooLarge          = errors.New("arguments too large")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

// ErrorCode classifies an ExecutionResult error.
type ErrorCode string

const (
	CodeNone          ErrorCode = ""
	CodeNotFound      ErrorCode = "not_found"
	CodeValidation    ErrorCode = "validation_error"
	CodeAlreadyExists ErrorCode = "already_exists"
	CodeExecution     ErrorCode = "execution_error"
	CodeArgsTooLarge  ErrorCode = "args_too_large"
	CodeTimeout       ErrorCode = "timeout"
	CodeDependency    ErrorCode = "dependency_unavailable"
)
