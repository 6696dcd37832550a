package event

import "context"

// Event is one delivery on the bus.
type Event struct {
	WidgetID string
	Name     string
	Value    any
}

// Handler receives events for a subscribed pair.
type Handler interface {
	Handle(ctx context.Context, ev Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev Event) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// ErrorHandler is called for every handler that failed or panicked.
type ErrorHandler func(ev Event, err error)
