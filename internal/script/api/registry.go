package api

import (
	"fmt"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/dashwire/internal/script/security"
)

// Module represents a Lua API module.
type Module interface {
	// Name returns the module name, which is also its global.
	Name() string

	// RequiredCapability returns the capability required to use this module.
	// Returns empty string if no capability is required.
	RequiredCapability() security.Capability

	// Register installs the module into the Lua state.
	Register(L *lua.LState) error
}

// Cleaner is implemented by modules holding per-execution state.
type Cleaner interface {
	// Cleanup releases everything created by the current script execution.
	Cleanup()
}

// Registry manages API modules and their injection.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]Module
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		modules: make(map[string]Module),
	}
}

// Register adds a module to the registry.
func (r *Registry) Register(mod Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.modules[mod.Name()]; exists {
		return fmt.Errorf("module %q already registered", mod.Name())
	}
	r.modules[mod.Name()] = mod
	return nil
}

// Get returns a module by name.
func (r *Registry) Get(name string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mod, ok := r.modules[name]
	return mod, ok
}

// List returns all registered module names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InjectAll registers every module the checker allows and returns the names
// injected. A nil checker injects only modules that need no capability.
func (r *Registry) InjectAll(L *lua.LState, checker *security.PermissionChecker) ([]string, error) {
	var injected []string
	for _, name := range r.List() {
		mod, _ := r.Get(name)

		if reqCap := mod.RequiredCapability(); reqCap != "" {
			if checker == nil || !checker.HasCapability(reqCap) {
				continue
			}
		}

		if err := mod.Register(L); err != nil {
			return injected, fmt.Errorf("failed to register module %q: %w", name, err)
		}
		injected = append(injected, name)
	}
	return injected, nil
}

// Cleanup calls Cleanup on every module that implements Cleaner.
func (r *Registry) Cleanup() {
	for _, name := range r.List() {
		mod, _ := r.Get(name)
		if c, ok := mod.(Cleaner); ok {
			c.Cleanup()
		}
	}
}
