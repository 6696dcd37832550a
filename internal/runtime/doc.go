// Package runtime hosts one dashboard script per session.
//
// A Runtime owns the widget registry, the event bus and a sandboxed Lua
// state. Every script callback runs on a single loop goroutine, so script
// code never runs in parallel with itself. Timers, watches and asynchronous
// I/O complete on their own goroutines and post their callbacks back to the
// loop.
//
// Each execution carries a generation number. Cleanup bumps the generation
// and cancels everything the execution started; callbacks that were already
// queued compare their generation on arrival and are dropped when stale.
//
// Public methods block on the loop and must not be called from a script
// callback.
package runtime
