package runtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/dashwire/internal/event"
	"github.com/dshills/dashwire/internal/logging"
	"github.com/dshills/dashwire/internal/script/api"
	slua "github.com/dshills/dashwire/internal/script/lua"
	"github.com/dshills/dashwire/internal/transport"
	"github.com/dshills/dashwire/internal/widget"
)

// Runtime is the script host for one dashboard session.
type Runtime struct {
	opts   Options
	logger *logging.Logger

	widgets *widget.Registry
	bus     *event.Bus

	state   *slua.State
	bridge  *slua.Bridge
	loop    *slua.Loop
	modules *api.Registry
	sink    api.MessageSink

	runCancel context.CancelFunc
	runDone   chan struct{}

	// Loop owned.
	gen        uint64
	execCtx    context.Context
	execCancel context.CancelFunc
	script     string
	executed   bool
	timers     map[string]*timer
	watches    map[string]context.CancelFunc
	ready      map[string]*time.Timer
	delivered  map[lifecycleKey]bool

	closeOnce sync.Once
}

// New creates a runtime, registers the initial widgets and starts the loop.
// No script runs until Execute.
func New(opts Options) (*Runtime, error) {
	opts.applyDefaults()

	r := &Runtime{
		opts:      opts,
		logger:    logging.OrNull(opts.Logger).WithComponent("runtime"),
		timers:    make(map[string]*timer),
		watches:   make(map[string]context.CancelFunc),
		ready:     make(map[string]*time.Timer),
		delivered: make(map[lifecycleKey]bool),
		runDone:   make(chan struct{}),
	}
	r.execCtx, r.execCancel = context.WithCancel(context.Background())

	r.widgets = widget.NewRegistry(
		widget.WithUpdateFunc(opts.OnWidgetUpdate),
		widget.WithTransformFunc(opts.OnTransformUpdate),
	)
	for _, w := range opts.Widgets {
		if err := r.widgets.Add(w); err != nil {
			return nil, fmt.Errorf("register widget %q: %w", w.ID, err)
		}
	}

	r.bus = event.NewBus(event.WithErrorHandler(func(ev event.Event, err error) {
		r.report(&ScriptError{Phase: PhaseCallback, WidgetID: ev.WidgetID, EventName: ev.Name, Err: err})
	}))

	state, err := slua.NewState(
		slua.WithExecutionTimeout(opts.Providers.Limits.ExecutionTimeout),
		slua.WithPrintFunc(func(args []string) {
			r.Log(api.LevelLog, api.PrintMessage(args), nil)
		}),
	)
	if err != nil {
		return nil, err
	}
	r.state = state
	r.bridge = slua.NewBridge(state.L)

	modules, err := api.NewStandardRegistry(r, r.widgets, opts.Providers)
	if err != nil {
		_ = state.Close()
		return nil, err
	}
	injected, err := modules.InjectAll(state.L, opts.Checker)
	if err != nil {
		_ = state.Close()
		return nil, err
	}
	state.MarkBaseline()
	r.modules = modules
	if mod, ok := modules.Get("ws"); ok {
		r.sink, _ = mod.(api.MessageSink)
	}
	r.logger.Debug("modules injected: %v", injected)

	r.loop = slua.NewLoop(state, opts.QueueSize)
	runCtx, cancel := context.WithCancel(context.Background())
	r.runCancel = cancel
	go func() {
		defer close(r.runDone)
		r.loop.Run(runCtx)
	}()

	return r, nil
}

// Widgets returns the registry. The host reads it; scripts and the
// runtime write it.
func (r *Runtime) Widgets() *widget.Registry {
	return r.widgets
}

// Execute runs script. Running the text that is already active is a no-op;
// new text first tears down the previous execution. Load then fires for
// every live widget, followed by ready after the ready delay.
//
// A failing script is reported and returned as a *ScriptError; the runtime
// stays usable.
func (r *Runtime) Execute(ctx context.Context, script string) error {
	var scriptErr error
	err := r.loop.Execute(ctx, func(s *slua.State) error {
		if r.executed && script == r.script {
			return nil
		}
		if r.executed {
			r.cleanup()
		}
		if err := s.Reset(); err != nil {
			return err
		}
		r.script = script
		r.executed = true

		r.logger.Info("executing script (%d bytes, generation %d)", len(script), r.gen)
		if err := s.DoString(r.execCtx, "dashboard", script); err != nil {
			se := &ScriptError{Phase: PhaseExecute, Err: err}
			r.report(se)
			scriptErr = se
		}

		for _, id := range r.widgets.IDs() {
			r.fireLoad(id)
		}
		return nil
	})
	if err != nil {
		return r.loopErr(err)
	}
	return scriptErr
}

// Script returns the active script text.
func (r *Runtime) Script(ctx context.Context) (string, bool) {
	var (
		text string
		ok   bool
	)
	_ = r.loop.Execute(ctx, func(*slua.State) error {
		text, ok = r.script, r.executed
		return nil
	})
	return text, ok
}

// TriggerWidgetEvent delivers an interaction to the script listeners of the
// pair. It never fails; callback errors are reported.
func (r *Runtime) TriggerWidgetEvent(widgetID, eventName string, value any) {
	err := r.loop.Execute(context.Background(), func(*slua.State) error {
		r.Emit(widgetID, eventName, value)
		return nil
	})
	if err != nil {
		r.logger.Debug("event %s/%s dropped: %v", widgetID, eventName, err)
	}
}

// DeliverMessage hands an inbound transport message to ws.onMessage
// handlers. It does not wait for the handlers to run.
func (r *Runtime) DeliverMessage(msg transport.Message) error {
	if r.sink == nil {
		return nil
	}
	err := r.loop.Post(func(*slua.State) error {
		r.sink.Deliver(msg)
		return nil
	})
	return r.loopErr(err)
}

// Cleanup tears down the current execution: timers, watches, pending I/O
// callbacks, listeners and custom connections. It returns once all of them
// are cancelled. The active script text is forgotten, so the next Execute
// runs even for the same text.
func (r *Runtime) Cleanup(ctx context.Context) error {
	err := r.loop.Execute(ctx, func(*slua.State) error {
		r.cleanup()
		r.executed = false
		r.script = ""
		return nil
	})
	return r.loopErr(err)
}

// cleanup runs on the loop.
func (r *Runtime) cleanup() {
	r.gen++

	for id, t := range r.timers {
		t.stop()
		delete(r.timers, id)
	}
	for id, cancel := range r.watches {
		cancel()
		delete(r.watches, id)
	}
	for id, t := range r.ready {
		t.Stop()
		delete(r.ready, id)
	}

	r.execCancel()
	r.modules.Cleanup()
	r.bus.Clear()
	r.delivered = make(map[lifecycleKey]bool)

	r.execCtx, r.execCancel = context.WithCancel(context.Background())
	r.logger.Debug("cleanup complete, generation %d", r.gen)
}

// Close unmounts the dashboard and stops the loop. When a script has run,
// destroy fires for every live widget before the execution is cleaned up.
// It is safe to call more than once.
func (r *Runtime) Close() error {
	var err error
	r.closeOnce.Do(func() {
		err = r.loopErr(r.loop.Execute(context.Background(), func(*slua.State) error {
			r.unmount()
			return nil
		}))
		r.loop.Close()
		r.runCancel()
		<-r.runDone
		if cerr := r.state.Close(); err == nil {
			err = cerr
		}
	})
	return err
}

// unmount runs on the loop. Widgets stay registered in the destroyed state.
func (r *Runtime) unmount() {
	if r.executed {
		for _, id := range r.widgets.IDs() {
			r.fireDestroy(id)
		}
	}
	r.cleanup()
	r.executed = false
	r.script = ""
}

func (r *Runtime) loopErr(err error) error {
	if err == slua.ErrLoopClosed {
		return ErrClosed
	}
	return err
}

// report surfaces a script failure on the console and the process log.
func (r *Runtime) report(e *ScriptError) {
	r.logger.Warn("%v", e)
	if r.opts.Observer != nil {
		r.opts.Observer.ObserveScriptError(e.Phase)
	}
	if r.opts.OnConsoleLog != nil {
		r.opts.OnConsoleLog(api.LevelError, e.Error(), nil)
	}
}

// call runs fn on the loop with converted args and reports failures.
func (r *Runtime) call(phase string, fn *lua.LFunction, args ...any) {
	largs := make([]lua.LValue, len(args))
	for i, a := range args {
		largs[i] = r.bridge.ToLuaValue(a)
	}
	if r.opts.Observer != nil {
		r.opts.Observer.ObserveCallback()
	}
	if _, err := r.state.Call(r.execCtx, fn, largs...); err != nil {
		r.report(&ScriptError{Phase: phase, Err: err})
	}
}
