package tools

import "errors"

var (
	// ErrToolNameEmpty rejects registration of an unnamed tool.
	ErrToolNameEmpty = errors.New("tool name is empty")

	// ErrToolExecuteNil rejects registration of a tool with no executor.
	ErrToolExecuteNil = errors.New("tool execute function is nil")

	// ErrToolNotFound signals a lookup for a name nothing is registered
	// under. The dispatch loop converts it into an observation listing the
	// names that do exist.
	ErrToolNotFound = errors.New("tool not found")

	// ErrInvalidArgs signals arguments that failed schema validation.
	ErrInvalidArgs = errors.New("invalid tool arguments")
)
