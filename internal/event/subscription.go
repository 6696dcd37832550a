package event

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// SubscriptionState represents the state of a subscription.
type SubscriptionState int32

const (
	// SubscriptionStateActive means the subscription is receiving events.
	SubscriptionStateActive SubscriptionState = iota

	// SubscriptionStateCancelled means the subscription has been permanently cancelled.
	SubscriptionStateCancelled
)

// String returns a human-readable state name.
func (s SubscriptionState) String() string {
	switch s {
	case SubscriptionStateActive:
		return "active"
	case SubscriptionStateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

type pairKey struct {
	widgetID string
	name     string
}

type subscription struct {
	id      string
	key     pairKey
	handler Handler
	state   atomic.Int32
}

func newSubscription(key pairKey, h Handler) *subscription {
	return &subscription{
		id:      uuid.NewString(),
		key:     key,
		handler: h,
	}
}

func (s *subscription) isActive() bool {
	return SubscriptionState(s.state.Load()) == SubscriptionStateActive
}

// cancel returns true on the first call.
func (s *subscription) cancel() bool {
	return s.state.CompareAndSwap(int32(SubscriptionStateActive), int32(SubscriptionStateCancelled))
}
