package transport

import (
	"context"
	"sync"
)

// Recorder keeps every sent command in memory and lets callers inject
// inbound messages. It backs tests and embedding hosts.
type Recorder struct {
	mu       sync.Mutex
	commands []Command
	fail     map[string]error

	in     chan Message
	closed bool
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		fail: make(map[string]error),
		in:   make(chan Message, 64),
	}
}

// Send records the command, or returns the error configured with FailTarget.
func (r *Recorder) Send(_ context.Context, targetID string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	if targetID == "" {
		return ErrEmptyTarget
	}
	if err := r.fail[targetID]; err != nil {
		return err
	}
	r.commands = append(r.commands, Command{
		TargetID: targetID,
		Payload:  append([]byte(nil), payload...),
	})
	return nil
}

// FailTarget makes every send to targetID return err.
func (r *Recorder) FailTarget(targetID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[targetID] = err
}

// Commands returns the recorded commands in send order.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Command(nil), r.commands...)
}

// Reset forgets the recorded commands.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = nil
}

// Inject queues an inbound message.
func (r *Recorder) Inject(m Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.in <- m
	}
}

// Receive returns the injected message stream.
func (r *Recorder) Receive(ctx context.Context) (<-chan Message, error) {
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			select {
			case m, ok := <-r.in:
				if !ok {
					return
				}
				select {
				case out <- m:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Close stops the inbound stream.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.closed = true
		close(r.in)
	}
	return nil
}
