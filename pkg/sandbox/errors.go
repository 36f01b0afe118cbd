package sandbox

import "errors"

var (
	// ErrNoInterpreter is returned when no interpreter is configured
	ErrNoInterpreter = errors.New("no sandbox interpreter configured")

	// ErrExecutionTimeout is returned when execution times out
	ErrExecutionTimeout = errors.New("execution timed out")
)
