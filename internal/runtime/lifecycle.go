package runtime

import (
	"context"
	"fmt"
	"time"

	slua "github.com/dshills/dashwire/internal/script/lua"
	"github.com/dshills/dashwire/internal/widget"
)

// Lifecycle event names as seen by widget.on.
const (
	EventLoad    = "load"
	EventReady   = "ready"
	EventDestroy = "destroy"
)

type lifecycleKey struct {
	widgetID string
	event    string
}

// TriggerLifecycleEvent fires a lifecycle event for a widget. Each event
// fires at most once per widget and execution; repeats are no-ops. Load
// schedules ready after the ready delay. Destroy does not remove the
// widget; see RemoveWidget.
func (r *Runtime) TriggerLifecycleEvent(ctx context.Context, widgetID, name string) error {
	switch name {
	case EventLoad, EventReady, EventDestroy:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownLifecycleEvent, name)
	}
	if !r.widgets.Has(widgetID) {
		return fmt.Errorf("%w: %s", widget.ErrWidgetNotFound, widgetID)
	}

	err := r.loop.Execute(ctx, func(*slua.State) error {
		switch name {
		case EventLoad:
			r.fireLoad(widgetID)
		case EventReady:
			r.fireReady(widgetID)
		case EventDestroy:
			r.fireDestroy(widgetID)
		}
		return nil
	})
	return r.loopErr(err)
}

// AddWidget registers a widget. Once a script has run, load fires for it
// immediately and ready follows after the delay.
func (r *Runtime) AddWidget(ctx context.Context, w widget.Widget) error {
	if err := r.widgets.Add(w); err != nil {
		return err
	}
	err := r.loop.Execute(ctx, func(*slua.State) error {
		if r.executed {
			r.fireLoad(w.ID)
		}
		return nil
	})
	return r.loopErr(err)
}

// RemoveWidget fires destroy and then drops the widget and its listeners.
func (r *Runtime) RemoveWidget(ctx context.Context, widgetID string) error {
	if !r.widgets.Has(widgetID) {
		return fmt.Errorf("%w: %s", widget.ErrWidgetNotFound, widgetID)
	}
	err := r.loop.Execute(ctx, func(*slua.State) error {
		if r.executed {
			r.fireDestroy(widgetID)
		}
		r.bus.ClearWidget(widgetID)
		r.widgets.Remove(widgetID)
		for _, ev := range []string{EventLoad, EventReady, EventDestroy} {
			delete(r.delivered, lifecycleKey{widgetID, ev})
		}
		return nil
	})
	return r.loopErr(err)
}

func (r *Runtime) fireLoad(id string) {
	if !r.mark(id, EventLoad) {
		return
	}
	r.widgets.Advance(id, widget.StateLoaded)
	r.emitLifecycle(id, EventLoad)
	r.scheduleReady(id)
}

func (r *Runtime) scheduleReady(id string) {
	if _, ok := r.ready[id]; ok || r.delivered[lifecycleKey{id, EventReady}] {
		return
	}
	gen := r.gen
	var t *time.Timer
	t = time.AfterFunc(r.opts.ReadyDelay, func() {
		_ = r.loop.Post(func(*slua.State) error {
			if gen != r.gen || r.ready[id] != t {
				return nil
			}
			delete(r.ready, id)
			r.fireReady(id)
			return nil
		})
	})
	r.ready[id] = t
}

func (r *Runtime) fireReady(id string) {
	if t, ok := r.ready[id]; ok {
		t.Stop()
		delete(r.ready, id)
	}
	if !r.mark(id, EventReady) {
		return
	}
	r.widgets.Advance(id, widget.StateReady)
	r.emitLifecycle(id, EventReady)
}

func (r *Runtime) fireDestroy(id string) {
	if t, ok := r.ready[id]; ok {
		t.Stop()
		delete(r.ready, id)
	}
	if !r.mark(id, EventDestroy) {
		return
	}
	r.widgets.Advance(id, widget.StateDestroyed)
	r.emitLifecycle(id, EventDestroy)
}

// mark records a delivery. It returns false when the event already fired
// or the widget is gone or destroyed.
func (r *Runtime) mark(id, name string) bool {
	key := lifecycleKey{id, name}
	if r.delivered[key] {
		return false
	}
	state, ok := r.widgets.State(id)
	if !ok {
		return false
	}
	if !state.IsAlive() {
		return false
	}
	r.delivered[key] = true
	return true
}

func (r *Runtime) emitLifecycle(id, name string) {
	w, ok := r.widgets.Get(id)
	if !ok {
		return
	}
	r.Emit(id, name, w.Value)
}
