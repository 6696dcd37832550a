package api

import (
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/dashwire/internal/script/security"
)

// TimerModule installs setTimeout, setInterval, clearTimeout and
// clearInterval as globals.
type TimerModule struct {
	host Host
}

// NewTimerModule creates a new timer module.
func NewTimerModule(host Host) *TimerModule {
	return &TimerModule{host: host}
}

// Name returns the module name.
func (m *TimerModule) Name() string {
	return "timers"
}

// RequiredCapability returns the capability required for this module.
func (m *TimerModule) RequiredCapability() security.Capability {
	return ""
}

// Register registers the module into the Lua state.
func (m *TimerModule) Register(L *lua.LState) error {
	L.SetGlobal("setTimeout", L.NewFunction(m.schedule(false)))
	L.SetGlobal("setInterval", L.NewFunction(m.schedule(true)))
	L.SetGlobal("clearTimeout", L.NewFunction(m.clear))
	L.SetGlobal("clearInterval", L.NewFunction(m.clear))
	return nil
}

// schedule returns setTimeout(fn, ms, ...) or setInterval(fn, ms, ...).
// Extra arguments are passed to fn.
func (m *TimerModule) schedule(repeat bool) lua.LGFunction {
	return func(L *lua.LState) int {
		fn := L.CheckFunction(1)
		ms := L.OptNumber(2, 0)
		if ms < 0 {
			ms = 0
		}

		var args []lua.LValue
		for i := 3; i <= L.GetTop(); i++ {
			args = append(args, L.Get(i))
		}

		id, err := m.host.SetTimer(fn, time.Duration(float64(ms)*float64(time.Millisecond)), repeat, args)
		if err != nil {
			warnf(m.host, "timer: %v", err)
			L.Push(lua.LNil)
			return 1
		}
		L.Push(lua.LString(id))
		return 1
	}
}

// clear(id) -> bool
func (m *TimerModule) clear(L *lua.LState) int {
	id := L.ToStringMeta(L.Get(1)).String()
	L.Push(lua.LBool(m.host.ClearTimer(id)))
	return 1
}
