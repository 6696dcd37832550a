package event

import "errors"

// Sentinel errors for the event bus.
var (
	// ErrNilHandler is returned when a nil handler is provided.
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrEmptyWidgetID is returned when subscribing without a widget id.
	ErrEmptyWidgetID = errors.New("widget id cannot be empty")

	// ErrEmptyEventName is returned when subscribing without an event name.
	ErrEmptyEventName = errors.New("event name cannot be empty")

	// ErrHandlerPanic is wrapped into results of handlers that panicked.
	ErrHandlerPanic = errors.New("handler panicked")
)

// HandlerError wraps an error from a handler with the event it was handling.
type HandlerError struct {
	// SubscriptionID is the ID of the subscription whose handler failed.
	SubscriptionID string

	WidgetID  string
	EventName string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return "handler error for subscription " + e.SubscriptionID + " on " + e.WidgetID + "/" + e.EventName + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *HandlerError) Unwrap() error {
	return e.Err
}
