package api

import (
	"net/http"

	"github.com/dshills/dashwire/internal/script/security"
	"github.com/dshills/dashwire/internal/transport"
	"github.com/dshills/dashwire/internal/widget"
)

// Providers are the host collaborators behind the standard modules. Any of
// them may be nil; the matching module then reports itself unsupported.
type Providers struct {
	Sender     transport.Sender
	Dial       DialFunc
	Storage    Storage
	Data       DataClient
	Sensors    SensorDriver
	Location   LocationDriver
	Serial     SerialDriver
	Devices    DeviceDriver
	HTTPClient *http.Client
	Session    SessionInfo
	Platform   Platform
	Limits     security.ResourceLimits
}

// NewStandardRegistry registers every built-in module.
func NewStandardRegistry(host Host, widgets *widget.Registry, p Providers) (*Registry, error) {
	r := NewRegistry()
	modules := []Module{
		NewConsoleModule(host),
		NewContextModule(p.Session),
		NewTimerModule(host),
		NewWidgetModule(host, widgets),
		NewWSModule(host, p.Sender, p.Dial),
		NewStorageModule(host, p.Storage),
		NewDBModule(host, p.Data),
		NewSensorModule(host, p.Sensors, p.Platform),
		NewLocationModule(host, p.Location),
		NewHTTPModule(host, p.HTTPClient, p.Limits),
		NewUSBModule(host, p.Serial, p.Limits),
		NewDeviceModule(host, p.Devices, p.Sender),
	}
	for _, mod := range modules {
		if err := r.Register(mod); err != nil {
			return nil, err
		}
	}
	return r, nil
}
