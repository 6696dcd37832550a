package lua

import (
	lua "github.com/yuin/gopher-lua"
)

// PrintFunc receives the stringified arguments of a print call.
type PrintFunc func(args []string)

// Sandbox strips the globals a dashboard script must not reach.
type Sandbox struct {
	L *lua.LState

	print PrintFunc
}

// NewSandbox creates a sandbox for the Lua state.
func NewSandbox(L *lua.LState) *Sandbox {
	return &Sandbox{L: L}
}

// Install removes code loading and module access and replaces print.
func (s *Sandbox) Install() {
	dangerousFuncs := []string{
		"dofile",
		"loadfile",
		"load",
		"loadstring",
		"require",
		"module",
		"_printregs",
	}
	for _, name := range dangerousFuncs {
		s.L.SetGlobal(name, lua.LNil)
	}

	s.installPrint()
}

// installPrint replaces print so output reaches the host instead of stdout.
func (s *Sandbox) installPrint() {
	s.L.SetGlobal("print", s.L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		args := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			args = append(args, L.ToStringMeta(L.Get(i)).String())
		}
		if s.print != nil {
			s.print(args)
		}
		return 0
	}))
}

// SetPrintFunc replaces the print sink.
func (s *Sandbox) SetPrintFunc(fn PrintFunc) {
	s.print = fn
}
