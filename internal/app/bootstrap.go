package app

import (
	"context"
	"fmt"
	goruntime "runtime"

	"github.com/dshills/dashwire/internal/action"
	"github.com/dshills/dashwire/internal/datasource"
	"github.com/dshills/dashwire/internal/runtime"
	"github.com/dshills/dashwire/internal/script/api"
	"github.com/dshills/dashwire/internal/storage"
	"github.com/dshills/dashwire/internal/transport"
)

// bootstrapper starts the session components in dependency order and
// closes the started ones again when a later step fails.
type bootstrapper struct {
	s         *Session
	initOrder []string
}

func newBootstrapper(s *Session) *bootstrapper {
	return &bootstrapper{s: s, initOrder: make([]string, 0, 6)}
}

func (b *bootstrapper) bootstrap(ctx context.Context) error {
	steps := []struct {
		name string
		init func(context.Context) error
	}{
		{"metrics", b.initMetrics},
		{"transport", b.initTransport},
		{"storage", b.initStorage},
		{"database", b.initDatabase},
		{"runtime", b.initRuntime},
		{"resolver", b.initResolver},
	}
	for _, step := range steps {
		if err := step.init(ctx); err != nil {
			b.cleanup()
			return fmt.Errorf("%w: %w", ErrInitialization, NewComponentError(step.name, "start", err))
		}
		b.initOrder = append(b.initOrder, step.name)
		b.s.logger.Debug("%s started", step.name)
	}
	return nil
}

func (b *bootstrapper) initMetrics(context.Context) error {
	m, err := NewMetrics(b.s.opts.Registerer)
	if err != nil {
		return err
	}
	b.s.metrics = m
	return nil
}

func (b *bootstrapper) initTransport(ctx context.Context) error {
	if b.s.opts.Transport != nil {
		b.s.transport = b.s.opts.Transport
		return nil
	}
	opts := b.s.cfg.TransportOptions()
	opts.Output = b.s.opts.Output
	t, err := transport.Build(ctx, opts, b.s.opts.Logger.WithComponent("transport").Watermill())
	if err != nil {
		return err
	}
	b.s.transport = t
	return nil
}

func (b *bootstrapper) initStorage(ctx context.Context) error {
	st, err := storage.Open(ctx, b.s.cfg.StorageOptions())
	if err != nil {
		return err
	}
	b.s.store = st
	return nil
}

// initDatabase leaves the db module unsupported when no dsn is set.
func (b *bootstrapper) initDatabase(context.Context) error {
	db := b.s.cfg.Database
	if db.DSN == "" {
		return nil
	}
	c, err := datasource.Open(db.Driver, db.DSN)
	if err != nil {
		return err
	}
	b.s.data = c
	return nil
}

func (b *bootstrapper) initRuntime(context.Context) error {
	s := b.s
	checker, err := s.cfg.Checker()
	if err != nil {
		return err
	}

	providers := api.Providers{
		Sender:  s.transport,
		Dial:    api.DialWebSocket,
		Storage: s.store,
		Session: api.SessionInfo{
			User:        s.cfg.Session.User,
			Device:      s.cfg.Session.Device,
			DashboardID: s.cfg.Session.DashboardID,
		},
		Platform: api.Platform{OS: goruntime.GOOS, Native: true},
		Limits:   s.cfg.Limits(),
	}
	// A nil *datasource.Client must stay a nil interface.
	if s.data != nil {
		providers.Data = s.data
	}

	rt, err := runtime.New(runtime.Options{
		OnWidgetUpdate:    s.opts.OnWidgetUpdate,
		OnTransformUpdate: s.opts.OnTransformUpdate,
		OnConsoleLog:      s.console,
		Providers:         providers,
		Checker:           checker,
		Logger:            s.opts.Logger,
		Observer:          s.metrics,
		ReadyDelay:        s.cfg.Runtime.ReadyDelay.Std(),
		QueueSize:         s.cfg.Runtime.QueueSize,
	})
	if err != nil {
		return err
	}
	s.runtime = rt
	return nil
}

func (b *bootstrapper) initResolver(context.Context) error {
	s := b.s
	s.resolver = action.NewResolver(action.Options{
		Widgets:  s.runtime.Widgets(),
		Sender:   s.transport,
		Trigger:  valueTrigger{s},
		Observer: s.metrics,
		Logger:   s.opts.Logger,
	})
	return nil
}

// cleanup closes the started components in reverse order.
func (b *bootstrapper) cleanup() {
	for i := len(b.initOrder) - 1; i >= 0; i-- {
		b.cleanupComponent(b.initOrder[i])
	}
}

func (b *bootstrapper) cleanupComponent(component string) {
	s := b.s
	var err error
	switch component {
	case "transport":
		// A caller supplied transport is closed too; the session owns it.
		err = s.transport.Close()
		s.transport = nil
	case "storage":
		err = s.store.Close()
		s.store = nil
	case "database":
		if s.data != nil {
			err = s.data.Close()
			s.data = nil
		}
	case "runtime":
		err = s.runtime.Close()
		s.runtime = nil
	}
	if err != nil {
		s.logger.Warn("cleanup %s: %v", component, err)
	}
}

// console mirrors script console output to the session logger before
// handing it to the caller.
func (s *Session) console(level, message string, args []any) {
	l := s.opts.Logger.WithComponent("script")
	switch level {
	case "error":
		l.Error("%s", message)
	case "warn":
		l.Warn("%s", message)
	case "debug":
		l.Debug("%s", message)
	default:
		l.Info("%s", message)
	}
	if s.opts.OnConsoleLog != nil {
		s.opts.OnConsoleLog(level, message, args)
	}
}
