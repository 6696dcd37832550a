package api

import (
	"context"
	"errors"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/dashwire/internal/script/security"
	"github.com/dshills/dashwire/internal/transport"
)

// ErrNoTransport is reported when ws.send is used without a transport.
var ErrNoTransport = errors.New("no transport configured")

// MessageSink receives inbound transport messages for script handlers.
type MessageSink interface {
	Deliver(msg transport.Message)
}

// WSModule implements the ws API module: outbound commands on the session
// transport, inbound message handlers, and custom sockets.
type WSModule struct {
	host   Host
	sender transport.Sender
	dial   DialFunc

	handlers []*wsHandler
	nextID   int

	mu    sync.Mutex
	conns map[string]*wsConn
}

type wsHandler struct {
	id int
	fn *lua.LFunction
}

type wsConn struct {
	watchID string
	conn    Conn
}

// NewWSModule creates a new ws module. A nil dial uses DialWebSocket.
func NewWSModule(host Host, sender transport.Sender, dial DialFunc) *WSModule {
	if dial == nil {
		dial = DialWebSocket
	}
	return &WSModule{
		host:   host,
		sender: sender,
		dial:   dial,
		conns:  make(map[string]*wsConn),
	}
}

// Name returns the module name.
func (m *WSModule) Name() string {
	return "ws"
}

// RequiredCapability returns the capability required for this module.
func (m *WSModule) RequiredCapability() security.Capability {
	return security.CapabilityTransport
}

// Register registers the module into the Lua state.
func (m *WSModule) Register(L *lua.LState) error {
	mod := L.NewTable()
	setFuncs(L, mod, map[string]lua.LGFunction{
		"send":       m.send,
		"onMessage":  m.onMessage,
		"connect":    m.connect,
		"disconnect": m.disconnect,
	})
	L.SetGlobal("ws", mod)
	return nil
}

// Cleanup drops handlers and closes custom sockets.
func (m *WSModule) Cleanup() {
	m.handlers = nil

	m.mu.Lock()
	var open []Conn
	for _, c := range m.conns {
		if c.conn != nil {
			open = append(open, c.conn)
		}
	}
	m.conns = make(map[string]*wsConn)
	m.mu.Unlock()

	for _, c := range open {
		_ = c.Close()
	}
}

// Deliver calls every onMessage handler with (payload, topic). It must run
// on the script loop.
func (m *WSModule) Deliver(msg transport.Message) {
	payload := decodeJSON(msg.Payload)
	handlers := append([]*wsHandler(nil), m.handlers...)
	for _, h := range handlers {
		m.host.Invoke(h.fn, payload, msg.Topic)
	}
}

// send(targetId, payload) -> bool
// A target naming an open custom socket writes to that socket.
func (m *WSModule) send(L *lua.LState) int {
	target := L.CheckString(1)
	payload, err := encodeJSON(L, L.Get(2))
	if err != nil {
		warnf(m.host, "ws.send %s: %v", target, err)
		L.Push(lua.LFalse)
		return 1
	}

	m.mu.Lock()
	var custom Conn
	if c, ok := m.conns[target]; ok {
		custom = c.conn
	}
	m.mu.Unlock()
	if custom != nil {
		if err := custom.WriteRaw(m.host.Context(), payload); err != nil {
			warnf(m.host, "ws.send %s: %v", target, err)
			L.Push(lua.LFalse)
			return 1
		}
		L.Push(lua.LTrue)
		return 1
	}

	if m.sender == nil {
		warnf(m.host, "ws.send %s: %v", target, ErrNoTransport)
		L.Push(lua.LFalse)
		return 1
	}
	if err := m.sender.Send(m.host.Context(), target, payload); err != nil {
		warnf(m.host, "ws.send %s: %v", target, err)
		L.Push(lua.LFalse)
		return 1
	}
	L.Push(lua.LTrue)
	return 1
}

// onMessage(cb) -> unregister()
func (m *WSModule) onMessage(L *lua.LState) int {
	fn := L.CheckFunction(1)
	m.nextID++
	id := m.nextID
	m.handlers = append(m.handlers, &wsHandler{id: id, fn: fn})

	L.Push(L.NewFunction(func(L *lua.LState) int {
		for i, h := range m.handlers {
			if h.id == id {
				m.handlers = append(m.handlers[:i:i], m.handlers[i+1:]...)
				break
			}
		}
		return 0
	}))
	return 1
}

// connect(url, onMessage) -> bool
// Messages arrive as onMessage(payload, nil); failures as onMessage(nil, err).
func (m *WSModule) connect(L *lua.LState) int {
	url := L.CheckString(1)
	cb := L.CheckFunction(2)

	m.mu.Lock()
	if _, exists := m.conns[url]; exists {
		m.mu.Unlock()
		warnf(m.host, "ws.connect: %s is already connected", url)
		L.Push(lua.LFalse)
		return 1
	}
	entry := &wsConn{}
	m.conns[url] = entry
	m.mu.Unlock()

	watchID, err := m.host.Watch(cb, func(ctx context.Context, emit func(any, error)) error {
		conn, err := m.dial(ctx, url)
		if err != nil {
			m.forget(url, entry)
			return err
		}
		m.mu.Lock()
		if m.conns[url] != entry {
			m.mu.Unlock()
			return conn.Close()
		}
		entry.conn = conn
		m.mu.Unlock()

		msgs, err := conn.Receive(ctx)
		if err != nil {
			return err
		}
		for {
			select {
			case <-ctx.Done():
				return nil
			case msg, ok := <-msgs:
				if !ok {
					return nil
				}
				emit(decodeJSON(msg.Payload), nil)
			}
		}
	})
	if err != nil {
		m.forget(url, entry)
		warnf(m.host, "ws.connect %s: %v", url, err)
		L.Push(lua.LFalse)
		return 1
	}

	m.mu.Lock()
	entry.watchID = watchID
	m.mu.Unlock()
	L.Push(lua.LTrue)
	return 1
}

// disconnect(url) -> bool
func (m *WSModule) disconnect(L *lua.LState) int {
	url := L.CheckString(1)

	m.mu.Lock()
	entry, ok := m.conns[url]
	var conn Conn
	var watchID string
	if ok {
		conn, watchID = entry.conn, entry.watchID
		delete(m.conns, url)
	}
	m.mu.Unlock()
	if !ok {
		L.Push(lua.LFalse)
		return 1
	}

	m.host.ClearWatch(watchID)
	if conn != nil {
		if err := conn.Close(); err != nil {
			warnf(m.host, "ws.disconnect %s: %v", url, err)
		}
	}
	L.Push(lua.LTrue)
	return 1
}

func (m *WSModule) forget(url string, entry *wsConn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conns[url] == entry {
		delete(m.conns, url)
	}
}
