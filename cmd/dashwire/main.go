// Package main is the entry point for the dashwire runtime.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dshills/dashwire/internal/action"
	"github.com/dshills/dashwire/internal/app"
	"github.com/dshills/dashwire/internal/config"
	"github.com/dshills/dashwire/internal/dashboard"
	"github.com/dshills/dashwire/internal/logging"
	"github.com/dshills/dashwire/internal/transport"
	"github.com/dshills/dashwire/internal/widget"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type options struct {
	configPath    string
	dashboardPath string
	logLevel      string
	watch         bool
	dryRun        bool
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}

	logger := logging.New(logging.Config{
		Level:  cfg.LogLevel(),
		Output: os.Stderr,
		Name:   "dashwire",
		JSON:   cfg.Logging.JSON,
	})

	def, err := dashboard.LoadFile(opts.dashboardPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	// The dashboard id namespaces storage unless the config pins one.
	if def.ID != "" && (cfg.Session.DashboardID == "" || cfg.Session.DashboardID == "default") {
		cfg.Session.DashboardID = def.ID
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	sessionOpts := app.Options{
		Logger:     logger,
		Output:     os.Stdout,
		Registerer: registry,
		OnWidgetUpdate: func(id string, u widget.Update) {
			logger.Debug("widget %s updated: %v", id, map[string]any(u))
		},
	}
	if opts.dryRun {
		sessionOpts.Transport = transport.NewWriter(os.Stdout)
	}

	session, err := app.NewSession(ctx, cfg, sessionOpts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("close: %v", err)
		}
	}()

	if err := session.Load(ctx, def); err != nil {
		// Script errors are already reported; keep running so a fixed
		// script can be picked up by the watcher.
		logger.Error("load %s: %v", opts.dashboardPath, err)
		if !opts.watch {
			return 1
		}
	}

	if opts.watch {
		w, err := dashboard.NewWatcher(opts.dashboardPath, func(def *dashboard.Definition, err error) {
			if err != nil {
				logger.Error("reload %s: %v", opts.dashboardPath, err)
				return
			}
			if err := session.Load(ctx, def); err != nil {
				logger.Error("reload %s: %v", opts.dashboardPath, err)
			}
		}, dashboard.WithLogger(logger))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: watch: %v\n", err)
			return 1
		}
		defer w.Close()
	}

	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr, registry, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	go readInteractions(ctx, os.Stdin, session, logger)

	logger.Info("dashboard %s running", def.ID)
	<-ctx.Done()
	logger.Info("shutting down")
	return 0
}

// readInteractions handles one JSON interaction per input line, for
// example {"widgetId":"s1","action":"valueChange","params":{"value":3}}.
func readInteractions(ctx context.Context, r io.Reader, session *app.Session, logger *logging.Logger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var in action.Interaction
		if err := jsoniter.Unmarshal(line, &in); err != nil {
			logger.Warn("bad interaction %q: %v", line, err)
			continue
		}
		out, err := session.HandleInteraction(ctx, in)
		if err != nil {
			if errors.Is(err, app.ErrClosed) {
				return
			}
			logger.Warn("%v", err)
			continue
		}
		logger.Debug("%s/%s: matched %v, %d dispatches", in.WidgetID, in.Action, out.Matched, len(out.Dispatches))
	}
	if err := scanner.Err(); err != nil {
		logger.Warn("read interactions: %v", err)
	}
}

func serveMetrics(addr string, registry *prometheus.Registry, logger *logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("metrics listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server: %v", err)
		}
	}()
	return srv
}

func parseFlags() options {
	var opts options
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.configPath, "config", "", "Path to TOML configuration file")
	flag.StringVar(&opts.configPath, "c", "", "Path to TOML configuration file (shorthand)")
	flag.StringVar(&opts.dashboardPath, "dashboard", "", "Dashboard definition (YAML or JSON)")
	flag.StringVar(&opts.dashboardPath, "d", "", "Dashboard definition (shorthand)")
	flag.BoolVar(&opts.watch, "watch", false, "Reload the dashboard when its files change")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "Print dispatched commands to stdout instead of sending them")
	flag.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "dashwire - dashboard widget automation runtime\n\n")
		fmt.Fprintf(os.Stderr, "Usage: dashwire [options] -dashboard <file>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nInteractions are read from stdin, one JSON object per line.\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  dashwire -d home.yaml                 Run a dashboard\n")
		fmt.Fprintf(os.Stderr, "  dashwire -c dashwire.toml -d home.yaml -watch\n")
		fmt.Fprintf(os.Stderr, "  dashwire -d home.yaml -dry-run        Print commands instead of sending\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("dashwire %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	switch opts.logLevel {
	case "", "debug", "info", "warn", "error":
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", opts.logLevel)
		os.Exit(1)
	}

	if opts.dashboardPath == "" && flag.NArg() > 0 {
		opts.dashboardPath = flag.Arg(0)
	}
	if opts.dashboardPath == "" {
		flag.Usage()
		os.Exit(2)
	}
	return opts
}
