package security

import (
	"time"

	"golang.org/x/time/rate"
)

// ResourceLimits bounds what one script session may consume.
type ResourceLimits struct {
	// ExecutionTimeout bounds each top-level run and each callback.
	ExecutionTimeout time.Duration

	// HTTPRequestsPerSecond limits http.* calls. Zero means unlimited.
	HTTPRequestsPerSecond float64

	// HTTPBurst is the burst size for HTTP requests.
	HTTPBurst int

	// HTTPTimeout bounds a single HTTP request.
	HTTPTimeout time.Duration

	// SerialWritesPerSecond limits usb.send calls. Zero means unlimited.
	SerialWritesPerSecond float64

	// MaxTimers caps live timers and intervals. Zero means unlimited.
	MaxTimers int

	// MaxResponseBytes caps HTTP response bodies.
	MaxResponseBytes int64
}

// DefaultResourceLimits returns the limits used when none are configured.
func DefaultResourceLimits() ResourceLimits {
	return ResourceLimits{
		ExecutionTimeout:      5 * time.Second,
		HTTPRequestsPerSecond: 10,
		HTTPBurst:             10,
		HTTPTimeout:           10 * time.Second,
		SerialWritesPerSecond: 100,
		MaxTimers:             1000,
		MaxResponseBytes:      1 << 20,
	}
}

// StrictResourceLimits returns tighter limits for untrusted dashboards.
func StrictResourceLimits() ResourceLimits {
	return ResourceLimits{
		ExecutionTimeout:      time.Second,
		HTTPRequestsPerSecond: 1,
		HTTPBurst:             2,
		HTTPTimeout:           5 * time.Second,
		SerialWritesPerSecond: 10,
		MaxTimers:             50,
		MaxResponseBytes:      256 * 1024,
	}
}

// HTTPLimiter returns a limiter for http.* calls.
func (l ResourceLimits) HTTPLimiter() *rate.Limiter {
	return newLimiter(l.HTTPRequestsPerSecond, l.HTTPBurst)
}

// SerialLimiter returns a limiter for serial writes.
func (l ResourceLimits) SerialLimiter() *rate.Limiter {
	return newLimiter(l.SerialWritesPerSecond, int(l.SerialWritesPerSecond))
}

func newLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}
