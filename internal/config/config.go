package config

import (
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/dshills/dashwire/internal/datasource"
	"github.com/dshills/dashwire/internal/logging"
	"github.com/dshills/dashwire/internal/script/security"
	"github.com/dshills/dashwire/internal/storage"
	"github.com/dshills/dashwire/internal/transport"
)

// Duration is a time.Duration that decodes from "250ms" style strings or
// from integer nanoseconds.
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := jsoniter.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
	case float64:
		*d = Duration(time.Duration(v))
	default:
		return fmt.Errorf("invalid duration %s", string(data))
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return jsoniter.Marshal(time.Duration(d).String())
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the complete session configuration.
type Config struct {
	Runtime   RuntimeConfig   `json:"runtime"`
	Transport TransportConfig `json:"transport"`
	Storage   StorageConfig   `json:"storage"`
	Database  DatabaseConfig  `json:"database"`
	HTTP      HTTPConfig      `json:"http"`
	Logging   LoggingConfig   `json:"logging"`
	Session   SessionConfig   `json:"session"`
	Metrics   MetricsConfig   `json:"metrics"`
}

// RuntimeConfig configures the script runtime.
type RuntimeConfig struct {
	ReadyDelay       Duration `json:"readyDelay"`
	ExecutionTimeout Duration `json:"executionTimeout"`
	QueueSize        int      `json:"queueSize"`
	MaxTimers        int      `json:"maxTimers"`
}

// TransportConfig selects the outbound command transport.
type TransportConfig struct {
	Kind         string `json:"kind"`
	URL          string `json:"url"`
	TopicPrefix  string `json:"topicPrefix"`
	InboundTopic string `json:"inboundTopic"`
}

// StorageConfig selects the storage.* backend.
type StorageConfig struct {
	Backend       string `json:"backend"`
	Path          string `json:"path"`
	RedisAddr     string `json:"redisAddr"`
	RedisPassword string `json:"redisPassword"`
	RedisDB       int    `json:"redisDb"`
	Prefix        string `json:"prefix"`
}

// DatabaseConfig configures the db.* data client. An empty DSN with the
// sqlite3 driver uses an in-memory database.
type DatabaseConfig struct {
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
}

// HTTPConfig bounds script HTTP calls.
type HTTPConfig struct {
	Timeout           Duration `json:"timeout"`
	RequestsPerSecond float64  `json:"requestsPerSecond"`
	Burst             int      `json:"burst"`
	MaxResponseBytes  int64    `json:"maxResponseBytes"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level string `json:"level"`
	JSON  bool   `json:"json"`
}

// SessionConfig is the script-visible session context.
type SessionConfig struct {
	DashboardID string         `json:"dashboardId"`
	User        map[string]any `json:"user"`
	Device      map[string]any `json:"device"`

	// Capabilities granted to the script; empty grants the standard set.
	Capabilities []string `json:"capabilities"`
}

// MetricsConfig exposes prometheus metrics when Addr is set.
type MetricsConfig struct {
	Addr string `json:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	limits := security.DefaultResourceLimits()
	return Config{
		Runtime: RuntimeConfig{
			ReadyDelay:       Duration(100 * time.Millisecond),
			ExecutionTimeout: Duration(limits.ExecutionTimeout),
			QueueSize:        256,
			MaxTimers:        limits.MaxTimers,
		},
		Transport: TransportConfig{
			Kind:         transport.KindChannel,
			TopicPrefix:  "dashwire.commands",
			InboundTopic: "dashwire.inbound",
		},
		Storage: StorageConfig{
			Backend: storage.BackendMemory,
			Path:    ":memory:",
		},
		Database: DatabaseConfig{
			Driver: datasource.DriverSQLite,
		},
		HTTP: HTTPConfig{
			Timeout:           Duration(limits.HTTPTimeout),
			RequestsPerSecond: limits.HTTPRequestsPerSecond,
			Burst:             limits.HTTPBurst,
			MaxResponseBytes:  limits.MaxResponseBytes,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Session: SessionConfig{
			DashboardID: "default",
		},
	}
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Runtime.ReadyDelay <= 0 {
		add("runtime.readyDelay must be positive")
	}
	if c.Runtime.ExecutionTimeout <= 0 {
		add("runtime.executionTimeout must be positive")
	}
	if c.Runtime.QueueSize <= 0 {
		add("runtime.queueSize must be positive")
	}
	if c.Runtime.MaxTimers < 0 {
		add("runtime.maxTimers cannot be negative")
	}

	switch c.Transport.Kind {
	case transport.KindChannel, transport.KindStdout:
	case transport.KindNATS, transport.KindWebSocket:
		if c.Transport.URL == "" {
			add("transport.url is required for %s", c.Transport.Kind)
		}
	default:
		add("transport.kind %q is not one of channel, nats, websocket, stdout", c.Transport.Kind)
	}

	switch c.Storage.Backend {
	case storage.BackendMemory, storage.BackendRedis:
	default:
		add("storage.backend %q is not one of memory, redis", c.Storage.Backend)
	}

	switch c.Database.Driver {
	case datasource.DriverSQLite:
	case datasource.DriverPostgres:
		if c.Database.DSN == "" {
			add("database.dsn is required for postgres")
		}
	default:
		add("database.driver %q is not one of sqlite3, postgres", c.Database.Driver)
	}

	if c.HTTP.Timeout <= 0 {
		add("http.timeout must be positive")
	}
	if c.HTTP.RequestsPerSecond < 0 {
		add("http.requestsPerSecond cannot be negative")
	}
	if c.HTTP.Burst < 0 {
		add("http.burst cannot be negative")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		add("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}

	if _, err := security.ParseCapabilities(c.Session.Capabilities); err != nil {
		add("session.capabilities: %v", err)
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Limits converts the runtime and http sections to script resource limits.
func (c Config) Limits() security.ResourceLimits {
	limits := security.DefaultResourceLimits()
	limits.ExecutionTimeout = c.Runtime.ExecutionTimeout.Std()
	limits.MaxTimers = c.Runtime.MaxTimers
	limits.HTTPTimeout = c.HTTP.Timeout.Std()
	limits.HTTPRequestsPerSecond = c.HTTP.RequestsPerSecond
	limits.HTTPBurst = c.HTTP.Burst
	if c.HTTP.MaxResponseBytes > 0 {
		limits.MaxResponseBytes = c.HTTP.MaxResponseBytes
	}
	return limits
}

// Checker builds the script permission checker for the session.
func (c Config) Checker() (*security.PermissionChecker, error) {
	if len(c.Session.Capabilities) == 0 {
		return security.NewTrustedChecker(c.Session.DashboardID), nil
	}
	caps, err := security.ParseCapabilities(c.Session.Capabilities)
	if err != nil {
		return nil, err
	}
	checker := security.NewPermissionChecker(c.Session.DashboardID)
	checker.GrantAll(caps)
	return checker, nil
}

// LogLevel returns the parsed logging level.
func (c Config) LogLevel() logging.LogLevel {
	return logging.ParseLogLevel(c.Logging.Level)
}

// StorageOptions returns the storage.Open options for the session. An
// empty prefix is namespaced by dashboard id.
func (c Config) StorageOptions() storage.Options {
	prefix := c.Storage.Prefix
	if prefix == "" {
		prefix = storage.SessionPrefix(c.Session.DashboardID)
	}
	return storage.Options{
		Backend:       c.Storage.Backend,
		Path:          c.Storage.Path,
		RedisAddr:     c.Storage.RedisAddr,
		RedisPassword: c.Storage.RedisPassword,
		RedisDB:       c.Storage.RedisDB,
		Prefix:        prefix,
	}
}

// TransportOptions returns the transport.Build options.
func (c Config) TransportOptions() transport.Options {
	return transport.Options{
		Kind:         c.Transport.Kind,
		URL:          c.Transport.URL,
		TopicPrefix:  c.Transport.TopicPrefix,
		InboundTopic: c.Transport.InboundTopic,
	}
}
