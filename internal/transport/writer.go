package transport

import (
	"context"
	"io"
	"sync"
)

// Writer writes one JSON command per line. It has no inbound side.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter creates a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Send writes the command line.
func (w *Writer) Send(_ context.Context, targetID string, payload []byte) error {
	if targetID == "" {
		return ErrEmptyTarget
	}
	line, err := Command{TargetID: targetID, Payload: payload}.Encode()
	if err != nil {
		return err
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = w.w.Write(line)
	return err
}

// Receive implements Receiver.
func (w *Writer) Receive(context.Context) (<-chan Message, error) {
	return nil, ErrReceiveUnsupported
}

// Close implements Transport.
func (w *Writer) Close() error {
	return nil
}
