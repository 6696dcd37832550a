package transport

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	nc "github.com/nats-io/nats.go"
)

// MetadataTarget is the message metadata key carrying the target id.
const MetadataTarget = "targetId"

var (
	// GoChannelFactory allows overriding the in-process pub/sub creation.
	GoChannelFactory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber) {
		pubSub := gochannel.NewGoChannel(cfg, logger)
		return pubSub, pubSub
	}

	// NATSPublisherFactory allows overriding the NATS publisher creation.
	NATSPublisherFactory = func(cfg nats.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
		return nats.NewPublisher(cfg, logger)
	}

	// NATSSubscriberFactory allows overriding the NATS subscriber creation.
	NATSSubscriberFactory = func(cfg nats.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
		return nats.NewSubscriber(cfg, logger)
	}
)

// PubSub publishes commands to "<prefix>.<targetId>" topics and receives
// from one inbound topic.
type PubSub struct {
	pub     message.Publisher
	sub     message.Subscriber
	prefix  string
	inbound string
	logger  watermill.LoggerAdapter
	closed  atomic.Bool
}

// NewPubSub wraps a watermill publisher/subscriber pair. sub may be nil.
func NewPubSub(pub message.Publisher, sub message.Subscriber, opts Options, logger watermill.LoggerAdapter) *PubSub {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &PubSub{
		pub:     pub,
		sub:     sub,
		prefix:  opts.TopicPrefix,
		inbound: opts.InboundTopic,
		logger:  logger,
	}
}

// NewChannel creates an in-process transport backed by gochannel.
func NewChannel(opts Options, logger watermill.LoggerAdapter) *PubSub {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	pub, sub := GoChannelFactory(gochannel.Config{
		OutputChannelBuffer: 64,
		Persistent:          opts.Persistent,
	}, logger)
	return NewPubSub(pub, sub, opts, logger)
}

// natsOptions keeps the session connected across server restarts.
func natsOptions(name string) []nc.Option {
	return []nc.Option{
		nc.Name(name),
		nc.MaxReconnects(-1),
		nc.ReconnectWait(2 * time.Second),
		nc.RetryOnFailedConnect(true),
	}
}

// NewNATS creates a transport over NATS core subjects.
func NewNATS(opts Options, logger watermill.LoggerAdapter) (*PubSub, error) {
	marshaler := &nats.NATSMarshaler{}

	pub, err := NATSPublisherFactory(nats.PublisherConfig{
		URL:         opts.URL,
		NatsOptions: natsOptions("dashwire-publisher"),
		Marshaler:   marshaler,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("nats publisher: %w", err)
	}

	var sub message.Subscriber
	if opts.InboundTopic != "" {
		sub, err = NATSSubscriberFactory(nats.SubscriberConfig{
			URL:         opts.URL,
			NatsOptions: natsOptions("dashwire-subscriber"),
			Unmarshaler: marshaler,
		}, logger)
		if err != nil {
			_ = pub.Close()
			return nil, fmt.Errorf("nats subscriber: %w", err)
		}
	}
	return NewPubSub(pub, sub, opts, logger), nil
}

// Topic returns the publish topic for targetID.
func (p *PubSub) Topic(targetID string) string {
	if p.prefix == "" {
		return targetID
	}
	return p.prefix + "." + targetID
}

// Send publishes the command envelope for targetID.
func (p *PubSub) Send(ctx context.Context, targetID string, payload []byte) error {
	if p.closed.Load() {
		return ErrClosed
	}
	if targetID == "" {
		return ErrEmptyTarget
	}

	body, err := Command{TargetID: targetID, Payload: payload}.Encode()
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), body)
	msg.Metadata.Set(MetadataTarget, targetID)
	msg.SetContext(ctx)

	topic := p.Topic(targetID)
	if err := p.pub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	p.logger.Trace("command published", watermill.LogFields{"topic": topic, "uuid": msg.UUID})
	return nil
}

// Subscribe returns messages published on an arbitrary topic. Messages are
// acked once forwarded.
func (p *PubSub) Subscribe(ctx context.Context, topic string) (<-chan Message, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}
	if p.sub == nil {
		return nil, ErrReceiveUnsupported
	}

	in, err := p.sub.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	out := make(chan Message)
	go func() {
		defer close(out)
		for msg := range in {
			m := Message{ID: msg.UUID, Topic: topic, Payload: msg.Payload}
			select {
			case out <- m:
				msg.Ack()
			case <-ctx.Done():
				msg.Nack()
				return
			}
		}
	}()
	return out, nil
}

// Receive subscribes to the configured inbound topic.
func (p *PubSub) Receive(ctx context.Context) (<-chan Message, error) {
	if p.inbound == "" {
		return nil, ErrReceiveUnsupported
	}
	return p.Subscribe(ctx, p.inbound)
}

// Close closes the publisher and subscriber.
func (p *PubSub) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := p.pub.Close()
	if p.sub != nil {
		if serr := p.sub.Close(); serr != nil && err == nil {
			err = serr
		}
	}
	return err
}
