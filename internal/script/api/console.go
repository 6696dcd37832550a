package api

import (
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/dashwire/internal/script/security"
)

// ConsoleModule implements console.log and its leveled variants.
type ConsoleModule struct {
	host Host
}

// NewConsoleModule creates a new console module.
func NewConsoleModule(host Host) *ConsoleModule {
	return &ConsoleModule{host: host}
}

// Name returns the module name.
func (m *ConsoleModule) Name() string {
	return "console"
}

// RequiredCapability returns the capability required for this module.
func (m *ConsoleModule) RequiredCapability() security.Capability {
	return ""
}

// Register registers the module into the Lua state.
func (m *ConsoleModule) Register(L *lua.LState) error {
	mod := L.NewTable()
	for _, level := range []string{LevelLog, LevelDebug, LevelInfo, LevelWarn, LevelError} {
		L.SetField(mod, level, L.NewFunction(m.logAt(level)))
	}
	L.SetGlobal("console", mod)
	return nil
}

// logAt returns a function that reports its first argument as the message
// and the rest as structured args.
func (m *ConsoleModule) logAt(level string) lua.LGFunction {
	return func(L *lua.LState) int {
		n := L.GetTop()
		if n == 0 {
			m.host.Log(level, "", nil)
			return 0
		}
		message := L.ToStringMeta(L.Get(1)).String()
		var args []any
		for i := 2; i <= n; i++ {
			args = append(args, toGo(L, L.Get(i)))
		}
		m.host.Log(level, message, args)
		return 0
	}
}

// PrintMessage joins print arguments the way console output shows them.
func PrintMessage(args []string) string {
	return strings.Join(args, "\t")
}
