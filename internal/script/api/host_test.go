package api

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/dashwire/internal/event"
	slua "github.com/dshills/dashwire/internal/script/lua"
)

type logLine struct {
	level   string
	message string
}

// fakeHost runs everything synchronously on the calling goroutine.
type fakeHost struct {
	t      *testing.T
	L      *lua.LState
	bridge *slua.Bridge
	bus    *event.Bus
	logs   []logLine
	timers map[string]*lua.LFunction
	nextID int
}

func newFakeHost(t *testing.T) *fakeHost {
	t.Helper()
	L := lua.NewState()
	t.Cleanup(L.Close)
	return &fakeHost{
		t:      t,
		L:      L,
		bridge: slua.NewBridge(L),
		bus:    event.NewBus(),
		timers: make(map[string]*lua.LFunction),
	}
}

func (h *fakeHost) Context() context.Context { return context.Background() }

func (h *fakeHost) Invoke(fn *lua.LFunction, args ...any) {
	largs := make([]lua.LValue, len(args))
	for i, a := range args {
		largs[i] = h.bridge.ToLuaValue(a)
	}
	if err := h.L.CallByParam(lua.P{Fn: fn, Protect: true}, largs...); err != nil {
		h.logs = append(h.logs, logLine{LevelError, err.Error()})
	}
}

func (h *fakeHost) Async(cb *lua.LFunction, work func(ctx context.Context) (any, error)) {
	v, err := work(context.Background())
	if cb == nil {
		if err != nil {
			h.Log(LevelWarn, err.Error(), nil)
		}
		return
	}
	h.Invoke(cb, v, errValue(err))
}

func (h *fakeHost) Watch(cb *lua.LFunction, start WatchFunc) (string, error) {
	h.nextID++
	id := "watch-" + strconv.Itoa(h.nextID)
	err := start(context.Background(), func(v any, err error) {
		h.Invoke(cb, v, errValue(err))
	})
	if err != nil {
		h.Invoke(cb, nil, err.Error())
	}
	return id, nil
}

func (h *fakeHost) ClearWatch(id string) bool { return id != "" }

func (h *fakeHost) SetTimer(fn *lua.LFunction, _ time.Duration, _ bool, _ []lua.LValue) (string, error) {
	h.nextID++
	id := fmt.Sprintf("timer-%d", h.nextID)
	h.timers[id] = fn
	return id, nil
}

func (h *fakeHost) ClearTimer(id string) bool {
	_, ok := h.timers[id]
	delete(h.timers, id)
	return ok
}

func (h *fakeHost) Listen(widgetID, eventName string, fn *lua.LFunction) (func(), error) {
	return h.bus.On(widgetID, eventName, event.HandlerFunc(func(_ context.Context, ev event.Event) error {
		return h.L.CallByParam(lua.P{Fn: fn, Protect: true}, h.bridge.ToLuaValue(ev.Value))
	}))
}

func (h *fakeHost) Emit(widgetID, eventName string, value any) {
	h.bus.Emit(context.Background(), widgetID, eventName, value)
}

func (h *fakeHost) Log(level, message string, _ []any) {
	h.logs = append(h.logs, logLine{level, message})
}

func (h *fakeHost) messages(level string) []string {
	var out []string
	for _, l := range h.logs {
		if l.level == level {
			out = append(out, l.message)
		}
	}
	return out
}

func (h *fakeHost) run(code string) {
	h.t.Helper()
	if err := h.L.DoString(code); err != nil {
		h.t.Fatalf("DoString failed: %v", err)
	}
}

func (h *fakeHost) register(mods ...Module) {
	h.t.Helper()
	for _, m := range mods {
		if err := m.Register(h.L); err != nil {
			h.t.Fatalf("Register(%s) failed: %v", m.Name(), err)
		}
	}
}
