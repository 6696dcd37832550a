package api

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/dashwire/internal/script/security"
)

// StorageModule implements the storage API module. Values live in the
// session store and survive script re-execution.
type StorageModule struct {
	host  Host
	store Storage
}

// NewStorageModule creates a new storage module.
func NewStorageModule(host Host, store Storage) *StorageModule {
	return &StorageModule{host: host, store: store}
}

// Name returns the module name.
func (m *StorageModule) Name() string {
	return "storage"
}

// RequiredCapability returns the capability required for this module.
func (m *StorageModule) RequiredCapability() security.Capability {
	return security.CapabilityStorage
}

// Register registers the module into the Lua state.
func (m *StorageModule) Register(L *lua.LState) error {
	mod := L.NewTable()
	setFuncs(L, mod, map[string]lua.LGFunction{
		"set":    m.set,
		"get":    m.get,
		"remove": m.remove,
		"clear":  m.clear,
	})
	L.SetGlobal("storage", mod)
	return nil
}

// set(key, value) -> bool
func (m *StorageModule) set(L *lua.LState) int {
	key := L.CheckString(1)
	if m.store == nil {
		return m.unavailable(L, "storage.set")
	}
	if err := m.store.Set(m.host.Context(), key, toGo(L, L.Get(2))); err != nil {
		warnf(m.host, "storage.set %q: %v", key, err)
		L.Push(lua.LFalse)
		return 1
	}
	L.Push(lua.LTrue)
	return 1
}

// get(key [, default]) -> value
func (m *StorageModule) get(L *lua.LState) int {
	key := L.CheckString(1)
	def := L.Get(2)
	if m.store == nil {
		warnf(m.host, "storage.get: no storage configured")
		L.Push(def)
		return 1
	}
	v, ok, err := m.store.Get(m.host.Context(), key)
	if err != nil {
		warnf(m.host, "storage.get %q: %v", key, err)
	}
	if !ok || err != nil {
		L.Push(def)
		return 1
	}
	L.Push(toLua(L, v))
	return 1
}

// remove(key) -> bool
func (m *StorageModule) remove(L *lua.LState) int {
	key := L.CheckString(1)
	if m.store == nil {
		return m.unavailable(L, "storage.remove")
	}
	if err := m.store.Delete(m.host.Context(), key); err != nil {
		warnf(m.host, "storage.remove %q: %v", key, err)
		L.Push(lua.LFalse)
		return 1
	}
	L.Push(lua.LTrue)
	return 1
}

// clear() -> bool
func (m *StorageModule) clear(L *lua.LState) int {
	if m.store == nil {
		return m.unavailable(L, "storage.clear")
	}
	if err := m.store.Clear(m.host.Context()); err != nil {
		warnf(m.host, "storage.clear: %v", err)
		L.Push(lua.LFalse)
		return 1
	}
	L.Push(lua.LTrue)
	return 1
}

func (m *StorageModule) unavailable(L *lua.LState, op string) int {
	warnf(m.host, "%s: no storage configured", op)
	L.Push(lua.LFalse)
	return 1
}
