package event

import (
	"context"
	"sync"
)

// Bus holds ordered subscriber lists per (widget id, event name) pair.
// It is safe for concurrent use; handlers are never called under the lock.
type Bus struct {
	mu   sync.RWMutex
	subs map[pairKey][]*subscription

	onError ErrorHandler
}

// Option configures a Bus.
type Option func(*Bus)

// WithErrorHandler sets the callback for failed handlers.
func WithErrorHandler(h ErrorHandler) Option {
	return func(b *Bus) {
		b.onError = h
	}
}

// NewBus creates an empty bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		subs: make(map[pairKey][]*subscription),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// On registers h for the pair and returns its unsubscribe function.
// Several handlers may share a pair; they are invoked in registration order.
// The unsubscribe function is idempotent.
func (b *Bus) On(widgetID, name string, h Handler) (func(), error) {
	switch {
	case widgetID == "":
		return nil, ErrEmptyWidgetID
	case name == "":
		return nil, ErrEmptyEventName
	case h == nil:
		return nil, ErrNilHandler
	}

	key := pairKey{widgetID: widgetID, name: name}
	sub := newSubscription(key, h)

	b.mu.Lock()
	b.subs[key] = append(b.subs[key], sub)
	b.mu.Unlock()

	return func() { b.remove(sub) }, nil
}

// Emit delivers value to every handler of the pair, synchronously and in
// registration order. It returns one Result per handler that was registered
// when the emit began. Emitting to a pair with no handlers is a no-op.
func (b *Bus) Emit(ctx context.Context, widgetID, name string, value any) []Result {
	key := pairKey{widgetID: widgetID, name: name}

	b.mu.RLock()
	list := b.subs[key]
	if len(list) == 0 {
		b.mu.RUnlock()
		return nil
	}
	snapshot := make([]*subscription, len(list))
	copy(snapshot, list)
	b.mu.RUnlock()

	ev := Event{WidgetID: widgetID, Name: name, Value: value}
	results := make([]Result, 0, len(snapshot))
	for _, sub := range snapshot {
		if !sub.isActive() {
			results = append(results, Result{SubscriptionID: sub.id, Skipped: true})
			continue
		}
		res := execute(ctx, sub, ev)
		if res.Error != nil && !res.Skipped && b.onError != nil {
			b.onError(ev, &HandlerError{
				SubscriptionID: sub.id,
				WidgetID:       widgetID,
				EventName:      name,
				Err:            res.Error,
			})
		}
		results = append(results, res)
	}
	return results
}

// Count returns the number of handlers for the pair.
func (b *Bus) Count(widgetID, name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[pairKey{widgetID: widgetID, name: name}])
}

// Len returns the total number of handlers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, list := range b.subs {
		n += len(list)
	}
	return n
}

// ClearWidget removes every handler registered for widgetID.
func (b *Bus) ClearWidget(widgetID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for key, list := range b.subs {
		if key.widgetID != widgetID {
			continue
		}
		for _, sub := range list {
			sub.cancel()
		}
		delete(b.subs, key)
	}
}

// Clear removes every handler.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, list := range b.subs {
		for _, sub := range list {
			sub.cancel()
		}
	}
	b.subs = make(map[pairKey][]*subscription)
}

func (b *Bus) remove(sub *subscription) {
	if !sub.cancel() {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[sub.key]
	for i, s := range list {
		if s == sub {
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(b.subs, sub.key)
		return
	}
	b.subs[sub.key] = list
}
