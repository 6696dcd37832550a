// Package lua hosts dashboard scripts on gopher-lua.
//
// A State wraps one sandboxed *lua.LState. The state is not goroutine-safe;
// every operation on it runs on the goroutine that drives the Loop. Code on
// other goroutines reaches the state only through Loop.Execute (synchronous)
// or Loop.Post (queued, never dropped).
//
// Each top-level run is bounded by a deadline installed with
// LState.SetContext, so a runaway script is interrupted and reported as
// ErrExecutionTimeout.
package lua
