package event

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"
)

// Result is the outcome of one handler execution.
type Result struct {
	SubscriptionID string

	// Error is the error returned by the handler or built from its panic.
	Error error

	// Panicked is true if the handler panicked.
	Panicked bool

	// PanicStack is the stack trace at the point of panic.
	PanicStack []byte

	// Duration is how long the handler took to execute.
	Duration time.Duration

	// Skipped is true if the handler was not executed.
	Skipped bool
}

// IsSuccess returns true if the handler ran without error or panic.
func (r Result) IsSuccess() bool {
	return !r.Skipped && !r.Panicked && r.Error == nil
}

// execute runs one handler with panic recovery and timing.
func execute(ctx context.Context, sub *subscription, ev Event) (result Result) {
	result.SubscriptionID = sub.id

	select {
	case <-ctx.Done():
		result.Error = ctx.Err()
		result.Skipped = true
		return result
	default:
	}

	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)
		if r := recover(); r != nil {
			result.Panicked = true
			result.PanicStack = debug.Stack()
			result.Error = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()

	result.Error = sub.handler.Handle(ctx, ev)
	return result
}
