package security

import (
	"sort"
	"sync"
)

// PermissionChecker holds the capabilities granted to one script session.
type PermissionChecker struct {
	mu           sync.RWMutex
	capabilities map[Capability]bool
	owner        string
}

// NewPermissionChecker creates a checker with nothing granted.
func NewPermissionChecker(owner string) *PermissionChecker {
	return &PermissionChecker{
		capabilities: make(map[Capability]bool),
		owner:        owner,
	}
}

// NewTrustedChecker grants every top-level capability.
func NewTrustedChecker(owner string) *PermissionChecker {
	pc := NewPermissionChecker(owner)
	pc.GrantAll([]Capability{CapabilityWidget, CapabilityStorage, CapabilityIO, CapabilityDevice})
	return pc
}

// Owner returns the name the checker was created for.
func (pc *PermissionChecker) Owner() string {
	return pc.owner
}

// Grant grants a capability.
func (pc *PermissionChecker) Grant(c Capability) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.capabilities[c] = true
}

// Revoke revokes a capability.
func (pc *PermissionChecker) Revoke(c Capability) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	delete(pc.capabilities, c)
}

// GrantAll grants multiple capabilities.
func (pc *PermissionChecker) GrantAll(caps []Capability) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	for _, c := range caps {
		pc.capabilities[c] = true
	}
}

// HasCapability returns true if c or one of its parents is granted.
func (pc *PermissionChecker) HasCapability(c Capability) bool {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	if pc.capabilities[c] {
		return true
	}
	for granted := range pc.capabilities {
		if ImpliesCapability(granted, c) {
			return true
		}
	}
	return false
}

// CheckCapability returns an error if the capability is not granted.
func (pc *PermissionChecker) CheckCapability(c Capability) error {
	if !pc.HasCapability(c) {
		return NewCapabilityError(c, "", "not granted")
	}
	return nil
}

// Capabilities returns the granted capabilities, sorted.
func (pc *PermissionChecker) Capabilities() []Capability {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	caps := make([]Capability, 0, len(pc.capabilities))
	for c := range pc.capabilities {
		caps = append(caps, c)
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i] < caps[j] })
	return caps
}
