package lua

import "errors"

// Errors for Lua state operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrExecutionTimeout is returned when a run exceeds its deadline.
	ErrExecutionTimeout = errors.New("lua execution timeout")

	// ErrLoopClosed is returned when using a closed loop.
	ErrLoopClosed = errors.New("lua loop is closed")

	// ErrNotFunction is returned when calling a value that is not a function.
	ErrNotFunction = errors.New("value is not a function")
)
