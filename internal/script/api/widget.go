package api

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/dashwire/internal/script/security"
	"github.com/dshills/dashwire/internal/widget"
)

// WidgetModule implements the widget API module.
type WidgetModule struct {
	host    Host
	widgets *widget.Registry
}

// NewWidgetModule creates a new widget module.
func NewWidgetModule(host Host, widgets *widget.Registry) *WidgetModule {
	return &WidgetModule{host: host, widgets: widgets}
}

// Name returns the module name.
func (m *WidgetModule) Name() string {
	return "widget"
}

// RequiredCapability returns the capability required for this module.
func (m *WidgetModule) RequiredCapability() security.Capability {
	return security.CapabilityWidget
}

// Register registers the module into the Lua state.
func (m *WidgetModule) Register(L *lua.LState) error {
	mod := L.NewTable()
	setFuncs(L, mod, map[string]lua.LGFunction{
		"get":         m.get,
		"getValue":    m.getValue,
		"setValue":    m.setValue,
		"getText":     m.getText,
		"setText":     m.setText,
		"show":        m.show,
		"hide":        m.hide,
		"setConfig":   m.setConfig,
		"getConfig":   m.getConfig,
		"on":          m.on,
		"emit":        m.emit,
		"list":        m.list,
		"setPosition": m.setPosition,
		"setSize":     m.setSize,
		"setRotation": m.setRotation,
	})
	L.SetGlobal("widget", mod)
	return nil
}

// get(id) -> {id, type, value, text, visible, state, config, ...} | nil
func (m *WidgetModule) get(L *lua.LState) int {
	id := L.CheckString(1)
	w, ok := m.widgets.Get(id)
	if !ok {
		warnf(m.host, "widget.get: unknown widget %q", id)
		L.Push(lua.LNil)
		return 1
	}

	snapshot := map[string]any{
		"id":      w.ID,
		"type":    string(w.Type),
		"value":   w.Value,
		"text":    w.Text,
		"visible": w.Visible,
		"state":   w.State.String(),
		"config":  widget.EncodeConfig(w.Config),
	}
	if w.Transform.Position != nil {
		snapshot["position"] = map[string]any{"x": w.Transform.Position.X, "y": w.Transform.Position.Y}
	}
	if w.Transform.Size != nil {
		snapshot["size"] = map[string]any{"width": w.Transform.Size.Width, "height": w.Transform.Size.Height}
	}
	if w.Transform.Rotation != nil {
		snapshot["rotation"] = *w.Transform.Rotation
	}
	L.Push(toLua(L, snapshot))
	return 1
}

// getValue(id) -> value
func (m *WidgetModule) getValue(L *lua.LState) int {
	id := L.CheckString(1)
	v, err := m.widgets.Value(id)
	if err != nil {
		warnf(m.host, "widget.getValue: %v", err)
	}
	L.Push(toLua(L, v))
	return 1
}

// setValue(id, value) -> bool
func (m *WidgetModule) setValue(L *lua.LState) int {
	id := L.CheckString(1)
	return m.result(L, "widget.setValue", m.widgets.SetValue(id, toGo(L, L.Get(2))))
}

// getText(id) -> string
func (m *WidgetModule) getText(L *lua.LState) int {
	id := L.CheckString(1)
	text, err := m.widgets.Text(id)
	if err != nil {
		warnf(m.host, "widget.getText: %v", err)
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(text))
	return 1
}

// setText(id, text) -> bool
func (m *WidgetModule) setText(L *lua.LState) int {
	id := L.CheckString(1)
	text := L.ToStringMeta(L.Get(2)).String()
	return m.result(L, "widget.setText", m.widgets.SetText(id, text))
}

// show(id) -> bool
func (m *WidgetModule) show(L *lua.LState) int {
	return m.result(L, "widget.show", m.widgets.SetVisible(L.CheckString(1), true))
}

// hide(id) -> bool
func (m *WidgetModule) hide(L *lua.LState) int {
	return m.result(L, "widget.hide", m.widgets.SetVisible(L.CheckString(1), false))
}

// setConfig(id, partial) -> bool
func (m *WidgetModule) setConfig(L *lua.LState) int {
	id := L.CheckString(1)
	partial := optMap(L, 2)
	if partial == nil {
		warnf(m.host, "widget.setConfig: config for %q must be a table", id)
		L.Push(lua.LFalse)
		return 1
	}
	return m.result(L, "widget.setConfig", m.widgets.SetConfig(id, partial))
}

// getConfig(id) -> table | nil
func (m *WidgetModule) getConfig(L *lua.LState) int {
	id := L.CheckString(1)
	cfg, err := m.widgets.Config(id)
	if err != nil {
		warnf(m.host, "widget.getConfig: %v", err)
		L.Push(lua.LNil)
		return 1
	}
	L.Push(toLua(L, widget.EncodeConfig(cfg)))
	return 1
}

// on(id, eventName, fn) -> unregister()
func (m *WidgetModule) on(L *lua.LState) int {
	id := L.CheckString(1)
	name := L.CheckString(2)
	fn := L.CheckFunction(3)

	unsubscribe, err := m.host.Listen(id, name, fn)
	if err != nil {
		warnf(m.host, "widget.on: %v", err)
		unsubscribe = func() {}
	}
	L.Push(L.NewFunction(func(L *lua.LState) int {
		unsubscribe()
		return 0
	}))
	return 1
}

// emit(id, eventName, value)
func (m *WidgetModule) emit(L *lua.LState) int {
	id := L.CheckString(1)
	name := L.CheckString(2)
	m.host.Emit(id, name, toGo(L, L.Get(3)))
	return 0
}

// list() -> {ids}
func (m *WidgetModule) list(L *lua.LState) int {
	L.Push(toLua(L, m.widgets.IDs()))
	return 1
}

// setPosition(id, x, y) -> bool
func (m *WidgetModule) setPosition(L *lua.LState) int {
	id := L.CheckString(1)
	p := widget.Point{X: float64(L.CheckNumber(2)), Y: float64(L.CheckNumber(3))}
	return m.result(L, "widget.setPosition", m.widgets.SetTransform(id, widget.Transform{Position: &p}))
}

// setSize(id, width, height) -> bool
func (m *WidgetModule) setSize(L *lua.LState) int {
	id := L.CheckString(1)
	s := widget.Size{Width: float64(L.CheckNumber(2)), Height: float64(L.CheckNumber(3))}
	return m.result(L, "widget.setSize", m.widgets.SetTransform(id, widget.Transform{Size: &s}))
}

// setRotation(id, degrees) -> bool
func (m *WidgetModule) setRotation(L *lua.LState) int {
	id := L.CheckString(1)
	r := float64(L.CheckNumber(2))
	return m.result(L, "widget.setRotation", m.widgets.SetTransform(id, widget.Transform{Rotation: &r}))
}

func (m *WidgetModule) result(L *lua.LState, op string, err error) int {
	if err != nil {
		warnf(m.host, "%s: %v", op, err)
		L.Push(lua.LFalse)
		return 1
	}
	L.Push(lua.LTrue)
	return 1
}
