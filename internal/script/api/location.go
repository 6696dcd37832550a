package api

import (
	"context"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/dashwire/internal/script/security"
)

// LocationModule implements the location API module.
type LocationModule struct {
	host   Host
	driver LocationDriver
}

// NewLocationModule creates a new location module. driver may be nil.
func NewLocationModule(host Host, driver LocationDriver) *LocationModule {
	return &LocationModule{host: host, driver: driver}
}

// Name returns the module name.
func (m *LocationModule) Name() string {
	return "location"
}

// RequiredCapability returns the capability required for this module.
func (m *LocationModule) RequiredCapability() security.Capability {
	return security.CapabilityLocation
}

// Register registers the module into the Lua state.
func (m *LocationModule) Register(L *lua.LState) error {
	mod := L.NewTable()
	setFuncs(L, mod, map[string]lua.LGFunction{
		"isSupported":        m.isSupported,
		"getCurrentPosition": m.getCurrentPosition,
		"watchPosition":      m.watchPosition,
		"clearWatch":         m.clearWatch,
	})
	L.SetGlobal("location", mod)
	return nil
}

func (m *LocationModule) supported() bool {
	return m.driver != nil && m.driver.Supported()
}

// isSupported() -> bool
func (m *LocationModule) isSupported(L *lua.LState) int {
	L.Push(lua.LBool(m.supported()))
	return 1
}

// getCurrentPosition(cb, opts?)
func (m *LocationModule) getCurrentPosition(L *lua.LState) int {
	cb := L.CheckFunction(1)
	opts := optMap(L, 2)
	if !m.supported() {
		m.host.Invoke(cb, nil, notSupported("location").Error())
		return 0
	}
	m.host.Async(cb, func(ctx context.Context) (any, error) {
		pos, err := m.driver.CurrentPosition(ctx, opts)
		if err != nil {
			return nil, err
		}
		return positionValue(pos), nil
	})
	return 0
}

// watchPosition(cb, opts?) -> id | nil
func (m *LocationModule) watchPosition(L *lua.LState) int {
	cb := L.CheckFunction(1)
	opts := optMap(L, 2)
	if !m.supported() {
		m.host.Invoke(cb, nil, notSupported("location").Error())
		L.Push(lua.LNil)
		return 1
	}
	id, err := m.host.Watch(cb, func(ctx context.Context, emit func(any, error)) error {
		return m.driver.WatchPosition(ctx, opts, func(pos Position, err error) {
			if err != nil {
				emit(nil, err)
				return
			}
			emit(positionValue(pos), nil)
		})
	})
	if err != nil {
		warnf(m.host, "location.watchPosition: %v", err)
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(id))
	return 1
}

// clearWatch(id) -> bool
func (m *LocationModule) clearWatch(L *lua.LState) int {
	id := L.ToStringMeta(L.Get(1)).String()
	L.Push(lua.LBool(m.host.ClearWatch(id)))
	return 1
}

// positionValue shapes a fix as {coords = {...}, timestamp = ms}.
func positionValue(p Position) map[string]any {
	coords := map[string]any{
		"latitude":  p.Latitude,
		"longitude": p.Longitude,
		"accuracy":  p.Accuracy,
	}
	if p.Altitude != nil {
		coords["altitude"] = *p.Altitude
	}
	if p.Heading != nil {
		coords["heading"] = *p.Heading
	}
	if p.Speed != nil {
		coords["speed"] = *p.Speed
	}
	ts := p.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return map[string]any{
		"coords":    coords,
		"timestamp": ts.UnixMilli(),
	}
}
