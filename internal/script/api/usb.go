package api

import (
	"context"
	"errors"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"golang.org/x/time/rate"

	"github.com/dshills/dashwire/internal/script/security"
)

// ErrPortNotConnected is reported for operations on a port that is not open.
var ErrPortNotConnected = errors.New("port not connected")

// USBModule implements the usb API module with serial-port semantics.
type USBModule struct {
	host    Host
	driver  SerialDriver
	limiter *rate.Limiter

	mu      sync.Mutex
	gen     uint64
	ports   map[string]SerialPort
	readers map[string]string // port id -> watch id
}

// NewUSBModule creates a new usb module. driver may be nil.
func NewUSBModule(host Host, driver SerialDriver, limits security.ResourceLimits) *USBModule {
	return &USBModule{
		host:    host,
		driver:  driver,
		limiter: limits.SerialLimiter(),
		ports:   make(map[string]SerialPort),
		readers: make(map[string]string),
	}
}

// Name returns the module name.
func (m *USBModule) Name() string {
	return "usb"
}

// RequiredCapability returns the capability required for this module.
func (m *USBModule) RequiredCapability() security.Capability {
	return security.CapabilitySerial
}

// Register registers the module into the Lua state.
func (m *USBModule) Register(L *lua.LState) error {
	mod := L.NewTable()
	setFuncs(L, mod, map[string]lua.LGFunction{
		"isSupported":  m.isSupported,
		"requestPort":  m.requestPort,
		"getPorts":     m.getPorts,
		"connect":      m.connect,
		"disconnect":   m.disconnect,
		"send":         m.send,
		"read":         m.read,
		"startReading": m.startReading,
		"stopReading":  m.stopReading,
	})
	L.SetGlobal("usb", mod)
	return nil
}

// Cleanup closes every open port.
func (m *USBModule) Cleanup() {
	m.mu.Lock()
	m.gen++
	ports := m.ports
	m.ports = make(map[string]SerialPort)
	m.readers = make(map[string]string)
	m.mu.Unlock()

	for _, p := range ports {
		_ = p.Close()
	}
}

func (m *USBModule) supported() bool {
	return m.driver != nil && m.driver.Supported()
}

func (m *USBModule) port(id string) (SerialPort, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.ports[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPortNotConnected, id)
	}
	return p, nil
}

// isSupported() -> bool
func (m *USBModule) isSupported(L *lua.LState) int {
	L.Push(lua.LBool(m.supported()))
	return 1
}

// requestPort(filters?, cb)
func (m *USBModule) requestPort(L *lua.LState) int {
	cb, nargs := trailingFunc(L)
	var filters map[string]any
	if nargs >= 1 {
		filters = optMap(L, 1)
	}
	if !m.supported() {
		callback(m.host, cb, "usb.requestPort", nil, notSupported("usb"))
		return 0
	}
	asyncCall(m.host, cb, "usb.requestPort", func(ctx context.Context) (any, error) {
		return m.driver.RequestPort(ctx, filters)
	})
	return 0
}

// getPorts(cb)
func (m *USBModule) getPorts(L *lua.LState) int {
	cb, _ := trailingFunc(L)
	if !m.supported() {
		callback(m.host, cb, "usb.getPorts", nil, notSupported("usb"))
		return 0
	}
	asyncCall(m.host, cb, "usb.getPorts", func(ctx context.Context) (any, error) {
		return m.driver.Ports(ctx)
	})
	return 0
}

// connect(portId, opts?, cb?)
// opts: {baudRate = 9600, dataBits = 8, stopBits = 1, parity = "none"}
func (m *USBModule) connect(L *lua.LState) int {
	cb, nargs := trailingFunc(L)
	id := L.CheckString(1)
	opts := SerialOptions{BaudRate: 9600, DataBits: 8, StopBits: 1, Parity: "none"}
	if nargs >= 2 {
		applySerialOptions(&opts, optMap(L, 2))
	}
	if !m.supported() {
		callback(m.host, cb, "usb.connect", nil, notSupported("usb"))
		return 0
	}

	m.mu.Lock()
	gen := m.gen
	m.mu.Unlock()

	asyncCall(m.host, cb, "usb.connect", func(ctx context.Context) (any, error) {
		p, err := m.driver.Open(ctx, id, opts)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		if gen != m.gen {
			// Opened for an execution that has been cleaned up.
			m.mu.Unlock()
			_ = p.Close()
			return nil, ErrPortNotConnected
		}
		old := m.ports[id]
		m.ports[id] = p
		m.mu.Unlock()
		if old != nil {
			_ = old.Close()
		}
		return true, nil
	})
	return 0
}

// disconnect(portId) -> bool
func (m *USBModule) disconnect(L *lua.LState) int {
	id := L.CheckString(1)

	m.mu.Lock()
	p, ok := m.ports[id]
	delete(m.ports, id)
	watchID, reading := m.readers[id]
	delete(m.readers, id)
	m.mu.Unlock()

	if reading {
		m.host.ClearWatch(watchID)
	}
	if !ok {
		L.Push(lua.LFalse)
		return 1
	}
	if err := p.Close(); err != nil {
		warnf(m.host, "usb.disconnect %s: %v", id, err)
	}
	L.Push(lua.LTrue)
	return 1
}

// send(portId, data, cb?) where data is a string or an array of bytes.
func (m *USBModule) send(L *lua.LState) int {
	cb, _ := trailingFunc(L)
	id := L.CheckString(1)
	data, err := serialBytes(L, L.Get(2))
	if err != nil {
		callback(m.host, cb, "usb.send", nil, err)
		return 0
	}
	p, err := m.port(id)
	if err != nil {
		callback(m.host, cb, "usb.send", nil, err)
		return 0
	}
	asyncCall(m.host, cb, "usb.send", func(ctx context.Context) (any, error) {
		if err := m.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		if err := p.Write(ctx, data); err != nil {
			return nil, err
		}
		return len(data), nil
	})
	return 0
}

// read(portId, cb)
func (m *USBModule) read(L *lua.LState) int {
	id := L.CheckString(1)
	cb := L.CheckFunction(2)
	p, err := m.port(id)
	if err != nil {
		m.host.Invoke(cb, nil, err.Error())
		return 0
	}
	m.host.Async(cb, func(ctx context.Context) (any, error) {
		data, err := p.Read(ctx)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	})
	return 0
}

// startReading(portId, cb) -> bool
func (m *USBModule) startReading(L *lua.LState) int {
	id := L.CheckString(1)
	cb := L.CheckFunction(2)
	p, err := m.port(id)
	if err != nil {
		warnf(m.host, "usb.startReading: %v", err)
		L.Push(lua.LFalse)
		return 1
	}

	watchID, err := m.host.Watch(cb, func(ctx context.Context, emit func(any, error)) error {
		for ctx.Err() == nil {
			data, err := p.Read(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			if len(data) > 0 {
				emit(string(data), nil)
			}
		}
		return nil
	})
	if err != nil {
		warnf(m.host, "usb.startReading: %v", err)
		L.Push(lua.LFalse)
		return 1
	}

	m.mu.Lock()
	previous, had := m.readers[id]
	m.readers[id] = watchID
	m.mu.Unlock()
	if had {
		m.host.ClearWatch(previous)
	}
	L.Push(lua.LTrue)
	return 1
}

// stopReading(portId) -> bool
func (m *USBModule) stopReading(L *lua.LState) int {
	id := L.CheckString(1)
	m.mu.Lock()
	watchID, ok := m.readers[id]
	delete(m.readers, id)
	m.mu.Unlock()
	if ok {
		m.host.ClearWatch(watchID)
	}
	L.Push(lua.LBool(ok))
	return 1
}

func applySerialOptions(opts *SerialOptions, raw map[string]any) {
	if n, ok := raw["baudRate"].(int64); ok {
		opts.BaudRate = int(n)
	}
	if n, ok := raw["dataBits"].(int64); ok {
		opts.DataBits = int(n)
	}
	if n, ok := raw["stopBits"].(int64); ok {
		opts.StopBits = int(n)
	}
	if s, ok := raw["parity"].(string); ok {
		opts.Parity = s
	}
}

// serialBytes accepts a string or an array of byte values.
func serialBytes(L *lua.LState, lv lua.LValue) ([]byte, error) {
	switch v := lv.(type) {
	case lua.LString:
		return []byte(v), nil
	case *lua.LTable:
		items, ok := toGo(L, v).([]any)
		if !ok {
			return nil, fmt.Errorf("data must be a string or byte array")
		}
		out := make([]byte, len(items))
		for i, item := range items {
			n, ok := item.(int64)
			if !ok || n < 0 || n > 255 {
				return nil, fmt.Errorf("byte %d out of range", i+1)
			}
			out[i] = byte(n)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("data must be a string or byte array")
	}
}
