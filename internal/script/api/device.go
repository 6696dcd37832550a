package api

import (
	"context"
	"errors"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/dashwire/internal/script/security"
	"github.com/dshills/dashwire/internal/transport"
)

// ErrNoDeviceDriver is reported when device listing is used without a driver.
var ErrNoDeviceDriver = errors.New("no device driver configured")

// DeviceModule implements the device API module. Without a driver,
// sendCommand falls back to the session transport with the device id as
// target.
type DeviceModule struct {
	host   Host
	driver DeviceDriver
	sender transport.Sender
}

// NewDeviceModule creates a new device module. driver and sender may be nil.
func NewDeviceModule(host Host, driver DeviceDriver, sender transport.Sender) *DeviceModule {
	return &DeviceModule{host: host, driver: driver, sender: sender}
}

// Name returns the module name.
func (m *DeviceModule) Name() string {
	return "device"
}

// RequiredCapability returns the capability required for this module.
func (m *DeviceModule) RequiredCapability() security.Capability {
	return security.CapabilityRemote
}

// Register registers the module into the Lua state.
func (m *DeviceModule) Register(L *lua.LState) error {
	mod := L.NewTable()
	setFuncs(L, mod, map[string]lua.LGFunction{
		"getDevices":    m.getDevices,
		"getDeviceData": m.getDeviceData,
		"sendCommand":   m.sendCommand,
	})
	L.SetGlobal("device", mod)
	return nil
}

// getDevices(cb)
func (m *DeviceModule) getDevices(L *lua.LState) int {
	cb := L.CheckFunction(1)
	m.host.Async(cb, func(ctx context.Context) (any, error) {
		if m.driver == nil {
			return []any{}, ErrNoDeviceDriver
		}
		devices, err := m.driver.Devices(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(devices))
		for i, d := range devices {
			out[i] = d
		}
		return out, nil
	})
	return 0
}

// getDeviceData(deviceId, cb)
func (m *DeviceModule) getDeviceData(L *lua.LState) int {
	id := L.CheckString(1)
	cb := L.CheckFunction(2)
	m.host.Async(cb, func(ctx context.Context) (any, error) {
		if m.driver == nil {
			return nil, ErrNoDeviceDriver
		}
		return m.driver.DeviceData(ctx, id)
	})
	return 0
}

// sendCommand(deviceId, command, cb?)
func (m *DeviceModule) sendCommand(L *lua.LState) int {
	cb, _ := trailingFunc(L)
	id := L.CheckString(1)
	command := toGo(L, L.Get(2))

	if m.driver != nil {
		asyncCall(m.host, cb, "device.sendCommand", func(ctx context.Context) (any, error) {
			return m.driver.SendCommand(ctx, id, command)
		})
		return 0
	}

	payload, err := encodeJSON(L, L.Get(2))
	if err != nil {
		callback(m.host, cb, "device.sendCommand", nil, err)
		return 0
	}
	if m.sender == nil {
		callback(m.host, cb, "device.sendCommand", nil, ErrNoDeviceDriver)
		return 0
	}
	asyncCall(m.host, cb, "device.sendCommand", func(ctx context.Context) (any, error) {
		if err := m.sender.Send(ctx, id, payload); err != nil {
			return nil, err
		}
		return true, nil
	})
	return 0
}
