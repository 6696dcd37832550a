package transport

import (
	"context"
	"fmt"
	"io"

	"github.com/ThreeDotsLabs/watermill"
)

// Transport kinds accepted by Build.
const (
	KindChannel   = "channel"
	KindNATS      = "nats"
	KindWebSocket = "websocket"
	KindStdout    = "stdout"
)

// Options configures a transport.
type Options struct {
	Kind string

	// URL is the NATS server or websocket endpoint.
	URL string

	// TopicPrefix is prepended to the target id to form the publish topic.
	TopicPrefix string

	// InboundTopic is the topic inbound device messages arrive on.
	InboundTopic string

	// Persistent keeps gochannel messages for late subscribers.
	Persistent bool

	// Output is used by the stdout kind.
	Output io.Writer
}

// Build creates the transport named by opts.Kind.
func Build(ctx context.Context, opts Options, logger watermill.LoggerAdapter) (Transport, error) {
	switch opts.Kind {
	case KindChannel, "":
		return NewChannel(opts, logger), nil
	case KindNATS:
		t, err := NewNATS(opts, logger)
		if err != nil {
			return nil, err
		}
		return t, nil
	case KindWebSocket:
		t, err := DialWebSocket(ctx, opts.URL, nil)
		if err != nil {
			return nil, err
		}
		return t, nil
	case KindStdout:
		if opts.Output == nil {
			return nil, fmt.Errorf("%w: stdout transport needs an output", ErrUnknownKind)
		}
		return NewWriter(opts.Output), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, opts.Kind)
	}
}
