package api

import (
	"context"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// Console levels passed to Host.Log.
const (
	LevelLog   = "log"
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// WatchFunc produces values for a watch until ctx is done. emit may be called
// from any goroutine. A non-nil return is delivered to the callback as an
// error.
type WatchFunc func(ctx context.Context, emit func(value any, err error)) error

// Host is the runtime surface modules build on. Every method is called on
// the script loop.
type Host interface {
	// Context is cancelled when the current execution is cleaned up.
	Context() context.Context

	// Invoke calls fn now with args converted to Lua. Errors are reported,
	// never raised.
	Invoke(fn *lua.LFunction, args ...any)

	// Async runs work on its own goroutine and calls cb(result, err) on the
	// loop. The callback is dropped if the execution is cleaned up first.
	// With a nil cb a failure is reported as a console warning.
	Async(cb *lua.LFunction, work func(ctx context.Context) (any, error))

	// Watch starts start on its own goroutine and calls cb(value, err) on the
	// loop for every emitted value until ClearWatch or cleanup.
	Watch(cb *lua.LFunction, start WatchFunc) (string, error)

	// ClearWatch stops a watch. Returns false for unknown ids.
	ClearWatch(id string) bool

	// SetTimer schedules fn after delay, repeating when repeat is set.
	SetTimer(fn *lua.LFunction, delay time.Duration, repeat bool, args []lua.LValue) (string, error)

	// ClearTimer cancels a timer. Returns false for unknown ids.
	ClearTimer(id string) bool

	// Listen subscribes fn to a widget event and returns the unsubscribe.
	Listen(widgetID, eventName string, fn *lua.LFunction) (func(), error)

	// Emit delivers a widget event to its listeners synchronously.
	Emit(widgetID, eventName string, value any)

	// Log reports script console output.
	Log(level, message string, args []any)
}
