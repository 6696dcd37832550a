package lua

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// DefaultQueueSize is the loop queue capacity used when none is given.
const DefaultQueueSize = 256

// Call is one unit of work for the loop goroutine.
type Call struct {
	// Fn runs on the loop goroutine with exclusive access to the state.
	Fn func(s *State) error

	// Result receives the outcome; nil for posted calls.
	Result chan error
}

// Loop serializes every operation on a State through one goroutine. It is
// the single logical thread that script callbacks run on: calls execute one
// at a time in FIFO order.
//
// Usage:
//
//	loop := NewLoop(state, 0)
//	go loop.Run(ctx)
//	defer loop.Close()
//
//	err := loop.Execute(ctx, func(s *State) error {
//	    return s.DoString(ctx, "main", src)
//	})
//
// Execute and Post must not be called from the loop goroutine itself.
type Loop struct {
	state  *State
	queue  chan *Call
	closed atomic.Bool
	done   chan struct{}

	closeOnce sync.Once
}

// NewLoop creates a loop for the given state.
func NewLoop(state *State, queueSize int) *Loop {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Loop{
		state: state,
		queue: make(chan *Call, queueSize),
		done:  make(chan struct{}),
	}
}

// Run processes calls until the context is cancelled or Close is called.
func (l *Loop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			l.drain(ctx.Err())
			return
		case <-l.done:
			l.drain(ErrLoopClosed)
			return
		case call := <-l.queue:
			err := l.run(call)
			if call.Result != nil {
				call.Result <- err
				close(call.Result)
			}
		}
	}
}

// run executes a single call with panic recovery.
func (l *Loop) run(call *Call) (err error) {
	defer func() {
		if r := recover(); r != nil {
			switch v := r.(type) {
			case error:
				err = v
			case string:
				err = errors.New(v)
			default:
				err = fmt.Errorf("lua loop panic: %v", v)
			}
		}
	}()
	return call.Fn(l.state)
}

// drain fails queued calls with err.
func (l *Loop) drain(err error) {
	for {
		select {
		case call := <-l.queue:
			if call.Result != nil {
				call.Result <- err
				close(call.Result)
			}
		default:
			return
		}
	}
}

// Execute runs fn on the loop and waits for it to finish.
func (l *Loop) Execute(ctx context.Context, fn func(s *State) error) error {
	if l.closed.Load() {
		return ErrLoopClosed
	}

	call := &Call{
		Fn:     fn,
		Result: make(chan error, 1),
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopClosed
	case l.queue <- call:
	}

	select {
	case <-ctx.Done():
		// The call stays queued and will still run.
		return ctx.Err()
	case err, ok := <-call.Result:
		if !ok {
			return ErrLoopClosed
		}
		return err
	}
}

// Post queues fn without waiting for it. Post blocks while the queue is full
// and never drops work; it only fails once the loop is closed.
func (l *Loop) Post(fn func(s *State) error) error {
	if l.closed.Load() {
		return ErrLoopClosed
	}

	select {
	case <-l.done:
		return ErrLoopClosed
	case l.queue <- &Call{Fn: fn}:
		return nil
	}
}

// Close stops the loop. Queued calls fail with ErrLoopClosed.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.done)
	})
}

// IsClosed returns true if the loop has been closed.
func (l *Loop) IsClosed() bool {
	return l.closed.Load()
}
