// Package app wires the dashwire components into a running dashboard
// session: transport, storage, data source, script runtime and action
// resolver, all built from one config.Config.
package app

import (
	"context"
	"io"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dshills/dashwire/internal/action"
	"github.com/dshills/dashwire/internal/config"
	"github.com/dshills/dashwire/internal/datasource"
	"github.com/dshills/dashwire/internal/logging"
	"github.com/dshills/dashwire/internal/runtime"
	"github.com/dshills/dashwire/internal/storage"
	"github.com/dshills/dashwire/internal/transport"
	"github.com/dshills/dashwire/internal/widget"
)

// Options configures a Session beyond what config.Config carries.
type Options struct {
	Logger *logging.Logger

	// Transport replaces the one built from the transport config section.
	// The session takes ownership and closes it.
	Transport transport.Transport

	// Output backs the stdout transport kind.
	Output io.Writer

	// Registerer receives the session metrics; nil leaves them unregistered.
	Registerer prometheus.Registerer

	OnWidgetUpdate    widget.UpdateFunc
	OnTransformUpdate widget.TransformFunc

	// OnConsoleLog receives script console output after it is logged.
	OnConsoleLog runtime.ConsoleFunc
}

// Session is one running dashboard.
type Session struct {
	mu sync.Mutex

	cfg    config.Config
	opts   Options
	logger *logging.Logger

	transport transport.Transport
	store     storage.Store
	data      *datasource.Client
	metrics   *Metrics
	runtime   *runtime.Runtime
	resolver  *action.Resolver

	loadMu sync.Mutex
	closed bool

	inboundCancel context.CancelFunc
	inboundDone   chan struct{}
}

// NewSession builds every component from cfg. On failure the components
// already started are closed again.
func NewSession(ctx context.Context, cfg config.Config, opts Options) (*Session, error) {
	if opts.Logger == nil {
		opts.Logger = logging.New(logging.Config{
			Level: cfg.LogLevel(),
			Name:  "dashwire",
			JSON:  cfg.Logging.JSON,
		})
	}
	s := &Session{
		cfg:    cfg,
		opts:   opts,
		logger: opts.Logger.WithComponent("session"),
	}

	b := newBootstrapper(s)
	if err := b.bootstrap(ctx); err != nil {
		return nil, err
	}
	s.startInbound()
	return s, nil
}

// Runtime returns the script runtime.
func (s *Session) Runtime() *runtime.Runtime {
	return s.runtime
}

// Widgets returns the live widget registry.
func (s *Session) Widgets() *widget.Registry {
	return s.runtime.Widgets()
}

// Transport returns the session transport.
func (s *Session) Transport() transport.Transport {
	return s.transport
}

// Metrics returns the session counters.
func (s *Session) Metrics() *Metrics {
	return s.metrics
}

// Close stops the inbound loop, unmounts the dashboard so destroy fires
// for every live widget, and closes every component in reverse start order.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.stopInbound()

	var errs ErrorList
	if s.runtime != nil {
		if err := s.runtime.Close(); err != nil {
			errs.Add(NewComponentError("runtime", "close", err))
		}
	}
	if s.data != nil {
		if err := s.data.Close(); err != nil {
			errs.Add(NewComponentError("database", "close", err))
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs.Add(NewComponentError("storage", "close", err))
		}
	}
	if s.transport != nil {
		if err := s.transport.Close(); err != nil {
			errs.Add(NewComponentError("transport", "close", err))
		}
	}
	s.logger.Info("session closed")
	return errs.AsError()
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
