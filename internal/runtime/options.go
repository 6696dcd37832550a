package runtime

import (
	"time"

	"github.com/dshills/dashwire/internal/logging"
	"github.com/dshills/dashwire/internal/script/api"
	"github.com/dshills/dashwire/internal/script/security"
	"github.com/dshills/dashwire/internal/widget"
)

// DefaultReadyDelay is the pause between load and ready.
const DefaultReadyDelay = 100 * time.Millisecond

// ConsoleFunc receives script console output.
type ConsoleFunc func(level, message string, args []any)

// Observer receives runtime counters.
type Observer interface {
	ObserveScriptError(phase string)
	ObserveCallback()
}

// Options configures a Runtime.
type Options struct {
	// Widgets are registered before the first execution.
	Widgets []widget.Widget

	OnWidgetUpdate    widget.UpdateFunc
	OnTransformUpdate widget.TransformFunc
	OnConsoleLog      ConsoleFunc

	// Providers back the script modules. Providers.Session becomes the
	// script's context global.
	Providers api.Providers

	// Checker grants module capabilities; nil grants every standard one.
	Checker *security.PermissionChecker

	Logger   *logging.Logger
	Observer Observer

	// ReadyDelay defaults to DefaultReadyDelay.
	ReadyDelay time.Duration

	// QueueSize bounds the loop queue; zero uses the loop default.
	QueueSize int
}

func (o *Options) applyDefaults() {
	if o.ReadyDelay <= 0 {
		o.ReadyDelay = DefaultReadyDelay
	}
	if o.Providers.Limits == (security.ResourceLimits{}) {
		o.Providers.Limits = security.DefaultResourceLimits()
	}
	if o.Checker == nil {
		o.Checker = security.NewTrustedChecker(o.Providers.Session.DashboardID)
	}
}
