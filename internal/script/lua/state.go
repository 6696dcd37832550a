package lua

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultExecutionTimeout bounds each top-level run.
const DefaultExecutionTimeout = 5 * time.Second

// State wraps gopher-lua with a sandbox and per-run deadlines.
//
// gopher-lua's LState is not goroutine-safe. A State must only be used from
// the goroutine running its Loop.
type State struct {
	L *lua.LState

	executionTimeout time.Duration
	sandbox          *Sandbox

	// depth counts nested runs; only the outermost installs a deadline.
	depth int

	// baseline holds the globals that survive Reset.
	baseline map[string]bool

	closed bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithExecutionTimeout sets the deadline for each top-level run.
// Zero disables the deadline.
func WithExecutionTimeout(d time.Duration) StateOption {
	return func(s *State) {
		s.executionTimeout = d
	}
}

// WithPrintFunc routes the script's print output.
func WithPrintFunc(fn PrintFunc) StateOption {
	return func(s *State) {
		s.sandbox.print = fn
	}
}

// NewState creates a new sandboxed Lua state.
func NewState(opts ...StateOption) (*State, error) {
	L := lua.NewState(lua.Options{
		SkipOpenLibs: true,
	})
	openSafeLibraries(L)

	state := &State{
		L:                L,
		executionTimeout: DefaultExecutionTimeout,
		sandbox:          NewSandbox(L),
	}
	for _, opt := range opts {
		opt(state)
	}

	state.sandbox.Install()
	state.MarkBaseline()
	return state, nil
}

// openSafeLibraries opens only safe Lua standard libraries.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// Not opened: io, os, debug, package, channel, coroutine.
}

// DoString compiles code under the given chunk name and runs it.
func (s *State) DoString(ctx context.Context, name, code string) error {
	if s.closed {
		return ErrStateClosed
	}
	fn, err := s.L.Load(strings.NewReader(code), name)
	if err != nil {
		return err
	}
	_, err = s.Call(ctx, fn)
	return err
}

// Call invokes fn with args and returns its results. Panics raised by Go
// functions called from Lua are recovered into errors.
func (s *State) Call(ctx context.Context, fn lua.LValue, args ...lua.LValue) ([]lua.LValue, error) {
	if s.closed {
		return nil, ErrStateClosed
	}
	if fn == nil || fn.Type() != lua.LTFunction {
		return nil, ErrNotFunction
	}

	var runCtx context.Context
	if s.depth == 0 {
		var cancel context.CancelFunc
		runCtx, cancel = s.runContext(ctx)
		defer cancel()
		if runCtx.Done() != nil {
			s.L.SetContext(runCtx)
			defer s.L.RemoveContext()
		}
	}
	s.depth++
	defer func() { s.depth-- }()

	stackTop := s.L.GetTop()
	s.L.Push(fn)
	for _, arg := range args {
		s.L.Push(arg)
	}

	callErr := s.pcall(len(args))
	if callErr != nil {
		s.L.SetTop(stackTop)
		if runCtx != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrExecutionTimeout, callErr)
		}
		return nil, callErr
	}

	nRet := s.L.GetTop() - stackTop
	if nRet <= 0 {
		return []lua.LValue{}, nil
	}
	results := make([]lua.LValue, nRet)
	for i := 0; i < nRet; i++ {
		results[i] = s.L.Get(stackTop + i + 1)
	}
	s.L.Pop(nRet)
	return results, nil
}

func (s *State) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.executionTimeout > 0 {
		return context.WithTimeout(ctx, s.executionTimeout)
	}
	return context.WithCancel(ctx)
}

// pcall runs a protected call with panic recovery.
func (s *State) pcall(nargs int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return s.L.PCall(nargs, lua.MultRet, nil)
}

// GetGlobal returns a global variable value.
func (s *State) GetGlobal(name string) lua.LValue {
	if s.closed {
		return lua.LNil
	}
	return s.L.GetGlobal(name)
}

// SetGlobal sets a global variable.
func (s *State) SetGlobal(name string, value lua.LValue) {
	if s.closed {
		return
	}
	s.L.SetGlobal(name, value)
}

// MarkBaseline records the current globals as the set preserved by Reset.
// Call it after injecting host modules.
func (s *State) MarkBaseline() {
	s.baseline = make(map[string]bool)
	s.L.G.Global.ForEach(func(k, _ lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			s.baseline[string(ks)] = true
		}
	})
}

// Reset removes every global defined since MarkBaseline.
func (s *State) Reset() error {
	if s.closed {
		return ErrStateClosed
	}

	var keysToRemove []string
	s.L.G.Global.ForEach(func(k, _ lua.LValue) {
		if ks, ok := k.(lua.LString); ok && !s.baseline[string(ks)] {
			keysToRemove = append(keysToRemove, string(ks))
		}
	})
	for _, k := range keysToRemove {
		s.L.SetGlobal(k, lua.LNil)
	}
	return nil
}

// Sandbox returns the installed sandbox.
func (s *State) Sandbox() *Sandbox {
	return s.sandbox
}

// IsClosed returns true if the state has been closed.
func (s *State) IsClosed() bool {
	return s.closed
}

// Close releases the Lua state. Further calls return ErrStateClosed.
func (s *State) Close() error {
	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}
