package runtime

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("runtime closed")

	// ErrUnknownLifecycleEvent is returned for events other than load,
	// ready and destroy.
	ErrUnknownLifecycleEvent = errors.New("unknown lifecycle event")

	// ErrTooManyTimers is returned when a script exceeds its timer limit.
	ErrTooManyTimers = errors.New("too many active timers")

	// ErrNilWatch is returned for a watch without a producer.
	ErrNilWatch = errors.New("watch producer cannot be nil")
)

// Error phases.
const (
	PhaseExecute   = "execute"
	PhaseCallback  = "callback"
	PhaseLifecycle = "lifecycle"
	PhaseTimer     = "timer"
	PhaseAsync     = "async"
)

// ScriptError is a failure inside user script code. It is reported through
// the console callback and never stops the runtime.
type ScriptError struct {
	Phase     string
	WidgetID  string
	EventName string
	Err       error
}

// Error implements the error interface.
func (e *ScriptError) Error() string {
	switch {
	case e.WidgetID != "" && e.EventName != "":
		return fmt.Sprintf("script %s error (%s/%s): %v", e.Phase, e.WidgetID, e.EventName, e.Err)
	case e.WidgetID != "":
		return fmt.Sprintf("script %s error (%s): %v", e.Phase, e.WidgetID, e.Err)
	default:
		return fmt.Sprintf("script %s error: %v", e.Phase, e.Err)
	}
}

// Unwrap returns the underlying error.
func (e *ScriptError) Unwrap() error {
	return e.Err
}
