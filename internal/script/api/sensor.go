package api

import (
	"context"
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/dashwire/internal/script/security"
)

// Sensors routed to the driver.
var implementedSensors = []string{
	"accelerometer",
	"gyroscope",
	"magnetometer",
	"ambientLight",
	"microphone",
	"camera",
	"biometric",
	"nfc",
}

// Sensors with no native capability; they always report unsupported.
var unsupportedSensors = []string{
	"proximity",
	"barometer",
	"temperature",
	"humidity",
	"heartRate",
	"bloodOxygen",
	"lidar",
}

// SensorModule implements the sensor API module.
type SensorModule struct {
	host     Host
	driver   SensorDriver
	platform Platform
}

// NewSensorModule creates a new sensor module. driver may be nil.
func NewSensorModule(host Host, driver SensorDriver, platform Platform) *SensorModule {
	return &SensorModule{host: host, driver: driver, platform: platform}
}

// Name returns the module name.
func (m *SensorModule) Name() string {
	return "sensor"
}

// RequiredCapability returns the capability required for this module.
func (m *SensorModule) RequiredCapability() security.Capability {
	return security.CapabilitySensor
}

// Register registers the module into the Lua state.
func (m *SensorModule) Register(L *lua.LState) error {
	mod := L.NewTable()
	L.SetField(mod, "platform", lua.LString(m.platform.OS))
	L.SetField(mod, "isNative", lua.LBool(m.platform.Native))
	L.SetField(mod, "isMobile", lua.LBool(m.platform.Mobile))
	L.SetField(mod, "isSupported", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(m.supported(L.CheckString(1))))
		return 1
	}))
	L.SetField(mod, "clearWatch", L.NewFunction(m.clearWatch))

	for _, kind := range implementedSensors {
		L.SetField(mod, kind, m.sensorTable(L, kind, true))
	}
	for _, kind := range unsupportedSensors {
		L.SetField(mod, kind, m.sensorTable(L, kind, false))
	}

	L.SetGlobal("sensor", mod)
	return nil
}

func (m *SensorModule) supported(kind string) bool {
	for _, k := range implementedSensors {
		if k == kind {
			return m.driver != nil && m.driver.Supported(kind)
		}
	}
	return false
}

func (m *SensorModule) sensorTable(L *lua.LState, kind string, implemented bool) *lua.LTable {
	tbl := L.NewTable()
	isSupported := func() bool { return implemented && m.supported(kind) }

	L.SetField(tbl, "isSupported", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(isSupported()))
		return 1
	}))

	// read(opts?, cb)
	L.SetField(tbl, "read", L.NewFunction(func(L *lua.LState) int {
		cb, nargs := trailingFunc(L)
		var opts map[string]any
		if nargs >= 1 {
			opts = optMap(L, 1)
		}
		if !isSupported() {
			callback(m.host, cb, "sensor."+kind+".read", nil, notSupported(kind))
			return 0
		}
		asyncCall(m.host, cb, "sensor."+kind+".read", func(ctx context.Context) (any, error) {
			return m.driver.Read(ctx, kind, opts)
		})
		return 0
	}))

	// watch(opts?, cb) -> id | nil
	L.SetField(tbl, "watch", L.NewFunction(func(L *lua.LState) int {
		cb, nargs := trailingFunc(L)
		if cb == nil {
			L.ArgError(L.GetTop()+1, "callback expected")
			return 0
		}
		var opts map[string]any
		if nargs >= 1 {
			opts = optMap(L, 1)
		}
		if !isSupported() {
			m.host.Invoke(cb, nil, notSupported(kind).Error())
			L.Push(lua.LNil)
			return 1
		}
		id, err := m.host.Watch(cb, func(ctx context.Context, emit func(any, error)) error {
			return m.driver.Watch(ctx, kind, opts, emit)
		})
		if err != nil {
			warnf(m.host, "sensor.%s.watch: %v", kind, err)
			L.Push(lua.LNil)
			return 1
		}
		L.Push(lua.LString(id))
		return 1
	}))

	L.SetField(tbl, "clearWatch", L.NewFunction(m.clearWatch))
	return tbl
}

// clearWatch(id) -> bool
func (m *SensorModule) clearWatch(L *lua.LState) int {
	id := L.ToStringMeta(L.Get(1)).String()
	L.Push(lua.LBool(m.host.ClearWatch(id)))
	return 1
}

func notSupported(what string) error {
	return fmt.Errorf("%s is not supported on this device", what)
}
