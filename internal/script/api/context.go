package api

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/dashwire/internal/script/security"
)

// ContextModule exposes session information as the context global.
type ContextModule struct {
	info SessionInfo
}

// NewContextModule creates a new context module.
func NewContextModule(info SessionInfo) *ContextModule {
	return &ContextModule{info: info}
}

// Name returns the module name.
func (m *ContextModule) Name() string {
	return "context"
}

// RequiredCapability returns the capability required for this module.
func (m *ContextModule) RequiredCapability() security.Capability {
	return ""
}

// Register registers the module into the Lua state.
func (m *ContextModule) Register(L *lua.LState) error {
	mod := L.NewTable()
	L.SetField(mod, "user", toLua(L, orEmpty(m.info.User)))
	L.SetField(mod, "device", toLua(L, orEmpty(m.info.Device)))
	L.SetField(mod, "dashboardId", lua.LString(m.info.DashboardID))
	L.SetGlobal("context", mod)
	return nil
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
