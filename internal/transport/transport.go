// Package transport delivers resolved command payloads to remote devices and
// receives inbound device messages.
//
// Every dispatch is a Command: a target id plus the finalized JSON payload.
// Implementations wrap watermill publishers (in-process channel, NATS), a
// gorilla websocket connection, or a plain writer.
package transport

import (
	"context"
	"encoding/json"
	"errors"

	jsoniter "github.com/json-iterator/go"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// ErrClosed is returned by operations on a closed transport.
	ErrClosed = errors.New("transport closed")

	// ErrEmptyTarget is returned when sending without a target id.
	ErrEmptyTarget = errors.New("target id cannot be empty")

	// ErrReceiveUnsupported is returned by transports without an inbound side.
	ErrReceiveUnsupported = errors.New("transport does not receive messages")

	// ErrUnknownKind is returned by Build for an unrecognized transport kind.
	ErrUnknownKind = errors.New("unknown transport kind")
)

// Command is the wire envelope of one dispatch.
type Command struct {
	TargetID string          `json:"targetId"`
	Payload  json.RawMessage `json:"payload"`
}

// Encode returns the JSON form of the command.
func (c Command) Encode() ([]byte, error) {
	if len(c.Payload) == 0 {
		c.Payload = json.RawMessage("null")
	}
	return codec.Marshal(c)
}

// Message is one inbound message.
type Message struct {
	ID      string
	Topic   string
	Payload []byte
}

// Sender is the outbound contract consumed by the action resolver and the
// script ws module.
type Sender interface {
	Send(ctx context.Context, targetID string, payload []byte) error
}

// Receiver streams inbound messages until ctx is done or the transport
// closes.
type Receiver interface {
	Receive(ctx context.Context) (<-chan Message, error)
}

// Transport is a bidirectional session transport.
type Transport interface {
	Sender
	Receiver
	Close() error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, targetID string, payload []byte) error

// Send implements Sender.
func (f SenderFunc) Send(ctx context.Context, targetID string, payload []byte) error {
	return f(ctx, targetID, payload)
}
