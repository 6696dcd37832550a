// Package event provides the per-widget event bus used by the dashboard
// runtime.
//
// Subscribers register a handler for a (widget id, event name) pair and
// receive every value emitted for that pair. Emit is synchronous: handlers
// run in the caller's goroutine, in registration order, and each handler
// completes before the next one starts.
//
// # Isolation
//
// A handler that returns an error or panics is recorded in its Result and
// reported to the bus ErrorHandler; the remaining handlers still run.
//
// # Unsubscribing
//
// On returns an unsubscribe function. Unsubscribing during an Emit takes
// effect immediately: a handler removed by an earlier handler in the same
// emit is skipped.
package event
