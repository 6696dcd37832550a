package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	maxMessage      = int64(10485760) // 10 M
	readBufferSize  = 1024
	writeBufferSize = 1024
	handshakeWait   = 5 * time.Second
	writeWait       = time.Second
)

// WebSocket is a client connection that sends commands as JSON text frames
// and surfaces every inbound text frame as a Message.
type WebSocket struct {
	url  string
	conn *websocket.Conn

	writeMu sync.Mutex
	in      chan Message
	done    chan struct{}
	once    sync.Once
	err     error
}

// DialWebSocket connects to url.
func DialWebSocket(ctx context.Context, url string, header http.Header) (*WebSocket, error) {
	dialer := websocket.Dialer{
		ReadBufferSize:   readBufferSize,
		WriteBufferSize:  writeBufferSize,
		HandshakeTimeout: handshakeWait,
	}

	conn, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	conn.SetReadLimit(maxMessage)

	ws := &WebSocket{
		url:  url,
		conn: conn,
		in:   make(chan Message, 64),
		done: make(chan struct{}),
	}
	go ws.readLoop()
	return ws, nil
}

// URL returns the dialed url.
func (w *WebSocket) URL() string {
	return w.url
}

func (w *WebSocket) readLoop() {
	defer close(w.in)
	for {
		kind, data, err := w.conn.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.TextMessage && kind != websocket.BinaryMessage {
			continue
		}
		select {
		case w.in <- Message{ID: uuid.NewString(), Topic: w.url, Payload: data}:
		case <-w.done:
			return
		}
	}
}

// Send writes the command envelope as one text frame.
func (w *WebSocket) Send(ctx context.Context, targetID string, payload []byte) error {
	if targetID == "" {
		return ErrEmptyTarget
	}
	body, err := Command{TargetID: targetID, Payload: payload}.Encode()
	if err != nil {
		return err
	}
	return w.WriteRaw(ctx, body)
}

// WriteRaw writes data as one text frame.
func (w *WebSocket) WriteRaw(ctx context.Context, data []byte) error {
	select {
	case <-w.done:
		return ErrClosed
	default:
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := w.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// Receive returns the inbound message stream. It can be consumed once.
func (w *WebSocket) Receive(ctx context.Context) (<-chan Message, error) {
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			select {
			case m, ok := <-w.in:
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

// Close sends a close frame and closes the connection.
func (w *WebSocket) Close() error {
	w.once.Do(func() {
		close(w.done)
		w.writeMu.Lock()
		_ = w.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		w.writeMu.Unlock()
		w.err = w.conn.Close()
	})
	return w.err
}
