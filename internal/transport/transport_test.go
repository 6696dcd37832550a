package transport

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandEncode(t *testing.T) {
	body, err := Command{TargetID: "dev1", Payload: []byte(`{"value":1}`)}.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"targetId":"dev1","payload":{"value":1}}`, string(body))

	body, err = Command{TargetID: "dev1"}.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"targetId":"dev1","payload":null}`, string(body))
}

func TestChannelSendAndSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ps := NewChannel(Options{TopicPrefix: "dashwire.commands"}, watermill.NopLogger{})
	defer ps.Close()

	msgs, err := ps.Subscribe(ctx, "dashwire.commands.motor")
	require.NoError(t, err)

	require.NoError(t, ps.Send(ctx, "motor", []byte(`{"speed":3}`)))

	select {
	case m := <-msgs:
		assert.Equal(t, "dashwire.commands.motor", m.Topic)
		assert.JSONEq(t, `{"targetId":"motor","payload":{"speed":3}}`, string(m.Payload))
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestChannelReceiveInbound(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ps := NewChannel(Options{InboundTopic: "inbox"}, nil)
	defer ps.Close()

	msgs, err := ps.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, ps.pub.Publish("inbox", message.NewMessage("m1", []byte("hello"))))

	select {
	case m := <-msgs:
		assert.Equal(t, "m1", m.ID)
		assert.Equal(t, "hello", string(m.Payload))
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestPubSubErrors(t *testing.T) {
	ps := NewChannel(Options{}, nil)

	_, err := ps.Receive(context.Background())
	assert.ErrorIs(t, err, ErrReceiveUnsupported)

	assert.ErrorIs(t, ps.Send(context.Background(), "", nil), ErrEmptyTarget)
	assert.Equal(t, "motor", ps.Topic("motor"))

	require.NoError(t, ps.Close())
	require.NoError(t, ps.Close())
	assert.ErrorIs(t, ps.Send(context.Background(), "motor", nil), ErrClosed)
}

type mockPublisher struct {
	published []string
	closed    bool
}

func (m *mockPublisher) Publish(topic string, messages ...*message.Message) error {
	m.published = append(m.published, topic)
	return nil
}

func (m *mockPublisher) Close() error {
	m.closed = true
	return nil
}

type mockSubscriber struct{}

func (m *mockSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return make(chan *message.Message), nil
}

func (m *mockSubscriber) Close() error { return nil }

func TestNewNATS(t *testing.T) {
	originalPub := NATSPublisherFactory
	originalSub := NATSSubscriberFactory
	defer func() {
		NATSPublisherFactory = originalPub
		NATSSubscriberFactory = originalSub
	}()

	t.Run("uses factories", func(t *testing.T) {
		pub := &mockPublisher{}
		var gotURL string
		var gotOptions int
		NATSPublisherFactory = func(cfg nats.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
			gotURL = cfg.URL
			gotOptions = len(cfg.NatsOptions)
			return pub, nil
		}
		NATSSubscriberFactory = func(cfg nats.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
			return &mockSubscriber{}, nil
		}

		ps, err := NewNATS(Options{URL: "nats://localhost:4222", TopicPrefix: "cmd", InboundTopic: "in"}, watermill.NopLogger{})
		require.NoError(t, err)
		require.NoError(t, ps.Send(context.Background(), "pump", []byte(`{}`)))

		assert.Equal(t, "nats://localhost:4222", gotURL)
		assert.Len(t, natsOptions("test"), gotOptions)
		assert.Equal(t, []string{"cmd.pump"}, pub.published)

		require.NoError(t, ps.Close())
		assert.True(t, pub.closed)
	})

	t.Run("publisher error", func(t *testing.T) {
		NATSPublisherFactory = func(cfg nats.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
			return nil, errors.New("publisher error")
		}

		_, err := NewNATS(Options{URL: "nats://localhost:4222"}, watermill.NopLogger{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "publisher error")
	})

	t.Run("subscriber error closes publisher", func(t *testing.T) {
		pub := &mockPublisher{}
		NATSPublisherFactory = func(cfg nats.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
			return pub, nil
		}
		NATSSubscriberFactory = func(cfg nats.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
			return nil, errors.New("subscriber error")
		}

		_, err := NewNATS(Options{URL: "nats://x", InboundTopic: "in"}, watermill.NopLogger{})
		require.Error(t, err)
		assert.True(t, pub.closed)
	})
}

func newEchoServer(t *testing.T) (*httptest.Server, chan []byte) {
	t.Helper()
	received := make(chan []byte, 8)
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			received <- data
			if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"ack":true}`)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv, received
}

func TestWebSocketSendReceive(t *testing.T) {
	srv, received := newEchoServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ws, err := DialWebSocket(ctx, url, nil)
	require.NoError(t, err)
	defer ws.Close()

	inbound, err := ws.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, ws.Send(ctx, "lamp", []byte(`{"on":true}`)))

	select {
	case data := <-received:
		assert.JSONEq(t, `{"targetId":"lamp","payload":{"on":true}}`, string(data))
	case <-time.After(2 * time.Second):
		t.Fatal("server did not receive command")
	}

	select {
	case m := <-inbound:
		assert.JSONEq(t, `{"ack":true}`, string(m.Payload))
		assert.Equal(t, url, m.Topic)
	case <-time.After(2 * time.Second):
		t.Fatal("client did not receive reply")
	}

	require.NoError(t, ws.Close())
	assert.ErrorIs(t, ws.Send(ctx, "lamp", nil), ErrClosed)
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.Send(context.Background(), "a", []byte(`{"x":1}`)))
	require.NoError(t, w.Send(context.Background(), "b", []byte(`{"x":2}`)))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"targetId":"b","payload":{"x":2}}`, lines[1])

	_, err := w.Receive(context.Background())
	assert.ErrorIs(t, err, ErrReceiveUnsupported)
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	boom := errors.New("offline")
	r.FailTarget("dead", boom)

	require.NoError(t, r.Send(context.Background(), "a", []byte(`1`)))
	assert.ErrorIs(t, r.Send(context.Background(), "dead", []byte(`2`)), boom)

	cmds := r.Commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, "a", cmds[0].TargetID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	in, err := r.Receive(ctx)
	require.NoError(t, err)
	r.Inject(Message{ID: "1", Payload: []byte("x")})
	m := <-in
	assert.Equal(t, "1", m.ID)

	require.NoError(t, r.Close())
	assert.ErrorIs(t, r.Send(context.Background(), "a", nil), ErrClosed)
}

func TestBuild(t *testing.T) {
	tr, err := Build(context.Background(), Options{Kind: KindChannel}, nil)
	require.NoError(t, err)
	require.NoError(t, tr.Close())

	tr, err = Build(context.Background(), Options{Kind: KindStdout, Output: &bytes.Buffer{}}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Writer{}, tr)

	_, err = Build(context.Background(), Options{Kind: "carrier-pigeon"}, nil)
	assert.ErrorIs(t, err, ErrUnknownKind)
}
