package security

import (
	"fmt"
	"sort"
	"strings"
)

// Capability represents a permission a script needs to use a module.
type Capability string

// Capabilities for the bridging modules.
const (
	// CapabilityWidget allows reading and writing widget state.
	CapabilityWidget Capability = "widget"

	// CapabilityStorage allows the session key/value store.
	CapabilityStorage Capability = "storage"

	// CapabilityIO is the parent of every external I/O capability.
	CapabilityIO Capability = "io"

	// CapabilityTransport allows sending commands and opening sockets.
	CapabilityTransport Capability = "io.transport"

	// CapabilityHTTP allows outbound HTTP requests.
	CapabilityHTTP Capability = "io.http"

	// CapabilityDatabase allows the external data client.
	CapabilityDatabase Capability = "io.db"

	// CapabilityDevice is the parent of hardware access.
	CapabilityDevice Capability = "device"

	// CapabilitySensor allows sensor reads and watches.
	CapabilitySensor Capability = "device.sensor"

	// CapabilityLocation allows position reads and watches.
	CapabilityLocation Capability = "device.location"

	// CapabilitySerial allows USB serial ports.
	CapabilitySerial Capability = "device.serial"

	// CapabilityRemote allows remote device listing and commands.
	CapabilityRemote Capability = "device.remote"
)

// RiskLevel indicates how dangerous a capability is.
type RiskLevel int

// Risk levels.
const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
)

// String returns the risk level name.
func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	default:
		return "unknown"
	}
}

// CapabilityInfo provides metadata about a capability.
type CapabilityInfo struct {
	Name        Capability
	Description string
	Parent      Capability
	RiskLevel   RiskLevel
}

var capabilityRegistry = map[Capability]CapabilityInfo{
	CapabilityWidget:    {Name: CapabilityWidget, Description: "Read and write widget state", RiskLevel: RiskLow},
	CapabilityStorage:   {Name: CapabilityStorage, Description: "Session key/value storage", RiskLevel: RiskLow},
	CapabilityIO:        {Name: CapabilityIO, Description: "All external I/O", RiskLevel: RiskHigh},
	CapabilityTransport: {Name: CapabilityTransport, Description: "Send commands and open sockets", Parent: CapabilityIO, RiskLevel: RiskMedium},
	CapabilityHTTP:      {Name: CapabilityHTTP, Description: "Outbound HTTP requests", Parent: CapabilityIO, RiskLevel: RiskMedium},
	CapabilityDatabase:  {Name: CapabilityDatabase, Description: "External data client", Parent: CapabilityIO, RiskLevel: RiskMedium},
	CapabilityDevice:    {Name: CapabilityDevice, Description: "All hardware access", RiskLevel: RiskHigh},
	CapabilitySensor:    {Name: CapabilitySensor, Description: "Sensor reads and watches", Parent: CapabilityDevice, RiskLevel: RiskMedium},
	CapabilityLocation:  {Name: CapabilityLocation, Description: "Position reads and watches", Parent: CapabilityDevice, RiskLevel: RiskMedium},
	CapabilitySerial:    {Name: CapabilitySerial, Description: "USB serial ports", Parent: CapabilityDevice, RiskLevel: RiskHigh},
	CapabilityRemote:    {Name: CapabilityRemote, Description: "Remote device commands", Parent: CapabilityDevice, RiskLevel: RiskMedium},
}

// GetCapabilityInfo returns information about a capability.
func GetCapabilityInfo(c Capability) (CapabilityInfo, bool) {
	info, ok := capabilityRegistry[c]
	return info, ok
}

// IsValidCapability returns true if the capability is known.
func IsValidCapability(c Capability) bool {
	_, ok := capabilityRegistry[c]
	return ok
}

// AllCapabilities returns every known capability, sorted.
func AllCapabilities() []Capability {
	caps := make([]Capability, 0, len(capabilityRegistry))
	for c := range capabilityRegistry {
		caps = append(caps, c)
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i] < caps[j] })
	return caps
}

// ParseCapabilities converts names to capabilities, rejecting unknown ones.
func ParseCapabilities(names []string) ([]Capability, error) {
	caps := make([]Capability, 0, len(names))
	for _, name := range names {
		c := Capability(strings.TrimSpace(name))
		if !IsValidCapability(c) {
			return nil, fmt.Errorf("unknown capability %q", name)
		}
		caps = append(caps, c)
	}
	return caps, nil
}

// IsChildOf returns true if child is a child of parent.
func IsChildOf(child, parent Capability) bool {
	return strings.HasPrefix(string(child), string(parent)+".")
}

// ImpliesCapability returns true if having granted implies having required.
func ImpliesCapability(granted, required Capability) bool {
	return granted == required || IsChildOf(required, granted)
}

// CapabilityError represents a capability-related error.
type CapabilityError struct {
	Capability Capability
	Operation  string
	Message    string
}

// Error implements the error interface.
func (e *CapabilityError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("capability %q required for %s: %s", e.Capability, e.Operation, e.Message)
	}
	return fmt.Sprintf("capability %q: %s", e.Capability, e.Message)
}

// NewCapabilityError creates a new capability error.
func NewCapabilityError(c Capability, operation, message string) *CapabilityError {
	return &CapabilityError{
		Capability: c,
		Operation:  operation,
		Message:    message,
	}
}
