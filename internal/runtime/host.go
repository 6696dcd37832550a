package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/dashwire/internal/event"
	"github.com/dshills/dashwire/internal/script/api"
	slua "github.com/dshills/dashwire/internal/script/lua"
)

// Runtime is the api.Host of its modules. These methods run on the loop.
var _ api.Host = (*Runtime)(nil)

// minInterval keeps a zero-delay setInterval from spinning the loop.
const minInterval = time.Millisecond

type timer struct {
	id     string
	fn     *lua.LFunction
	args   []lua.LValue
	delay  time.Duration
	repeat bool
	t      *time.Timer
}

func (t *timer) stop() {
	if t.t != nil {
		t.t.Stop()
	}
}

// Context is cancelled by Cleanup.
func (r *Runtime) Context() context.Context {
	return r.execCtx
}

// Invoke calls fn now.
func (r *Runtime) Invoke(fn *lua.LFunction, args ...any) {
	if fn == nil {
		return
	}
	r.call(PhaseCallback, fn, args...)
}

// Async runs work off the loop and delivers cb(result, err) back on it,
// unless the execution was cleaned up in the meantime.
func (r *Runtime) Async(cb *lua.LFunction, work func(ctx context.Context) (any, error)) {
	gen := r.gen
	ctx := r.execCtx

	go func() {
		result, err := runWork(ctx, work)
		if ctx.Err() != nil {
			return
		}
		_ = r.loop.Post(func(*slua.State) error {
			if gen != r.gen {
				return nil
			}
			if cb == nil {
				if err != nil {
					r.Log(api.LevelWarn, err.Error(), nil)
				}
				return nil
			}
			r.call(PhaseAsync, cb, result, errString(err))
			return nil
		})
	}()
}

func runWork(ctx context.Context, work func(ctx context.Context) (any, error)) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("async panic: %v", rec)
		}
	}()
	return work(ctx)
}

// Watch runs start until ClearWatch or cleanup, delivering each emitted
// value to cb on the loop.
func (r *Runtime) Watch(cb *lua.LFunction, start api.WatchFunc) (string, error) {
	if start == nil {
		return "", ErrNilWatch
	}

	id := uuid.NewString()
	gen := r.gen
	ctx, cancel := context.WithCancel(r.execCtx)
	r.watches[id] = cancel

	emit := func(value any, err error) {
		if ctx.Err() != nil {
			return
		}
		_ = r.loop.Post(func(*slua.State) error {
			if gen != r.gen || r.watches[id] == nil {
				return nil
			}
			if cb == nil {
				if err != nil {
					r.Log(api.LevelWarn, err.Error(), nil)
				}
				return nil
			}
			r.call(PhaseAsync, cb, value, errString(err))
			return nil
		})
	}

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				emit(nil, fmt.Errorf("watch panic: %v", rec))
			}
		}()
		if err := start(ctx, emit); err != nil {
			emit(nil, err)
		}
	}()
	return id, nil
}

// ClearWatch stops a watch.
func (r *Runtime) ClearWatch(id string) bool {
	cancel, ok := r.watches[id]
	if !ok {
		return false
	}
	cancel()
	delete(r.watches, id)
	return true
}

// SetTimer schedules fn. Intervals re-arm after each run, so a slow
// callback delays the next tick instead of queueing a backlog.
func (r *Runtime) SetTimer(fn *lua.LFunction, delay time.Duration, repeat bool, args []lua.LValue) (string, error) {
	if limit := r.opts.Providers.Limits.MaxTimers; limit > 0 && len(r.timers) >= limit {
		return "", fmt.Errorf("%w (%d)", ErrTooManyTimers, limit)
	}
	if repeat && delay < minInterval {
		delay = minInterval
	}

	t := &timer{
		id:     uuid.NewString(),
		fn:     fn,
		args:   args,
		delay:  delay,
		repeat: repeat,
	}
	r.timers[t.id] = t
	r.arm(t)
	return t.id, nil
}

func (r *Runtime) arm(t *timer) {
	gen := r.gen
	t.t = time.AfterFunc(t.delay, func() {
		_ = r.loop.Post(func(*slua.State) error {
			r.fire(gen, t)
			return nil
		})
	})
}

func (r *Runtime) fire(gen uint64, t *timer) {
	if gen != r.gen || r.timers[t.id] != t {
		return
	}
	if !t.repeat {
		delete(r.timers, t.id)
	}

	args := make([]any, len(t.args))
	for i, a := range t.args {
		args[i] = a
	}
	r.call(PhaseTimer, t.fn, args...)

	if t.repeat && gen == r.gen && r.timers[t.id] == t {
		r.arm(t)
	}
}

// ClearTimer cancels a timer or interval.
func (r *Runtime) ClearTimer(id string) bool {
	t, ok := r.timers[id]
	if !ok {
		return false
	}
	t.stop()
	delete(r.timers, id)
	return true
}

// Listen subscribes fn to a widget event. fn receives the event value.
func (r *Runtime) Listen(widgetID, eventName string, fn *lua.LFunction) (func(), error) {
	h := event.HandlerFunc(func(ctx context.Context, ev event.Event) error {
		if r.opts.Observer != nil {
			r.opts.Observer.ObserveCallback()
		}
		_, err := r.state.Call(ctx, fn, r.bridge.ToLuaValue(ev.Value))
		return err
	})
	return r.bus.On(widgetID, eventName, h)
}

// Emit delivers an event to its listeners in registration order.
func (r *Runtime) Emit(widgetID, eventName string, value any) {
	r.bus.Emit(r.execCtx, widgetID, eventName, value)
}

// Log forwards script console output to the host and mirrors it at debug.
func (r *Runtime) Log(level, message string, args []any) {
	r.logger.Debug("console.%s: %s", level, message)
	if r.opts.OnConsoleLog != nil {
		r.opts.OnConsoleLog(level, message, args)
	}
}

func errString(err error) any {
	if err == nil {
		return nil
	}
	return err.Error()
}
