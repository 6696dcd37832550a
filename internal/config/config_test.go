package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/dashwire/internal/logging"
	"github.com/dshills/dashwire/internal/script/security"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dashwire.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 100*time.Millisecond, cfg.Runtime.ReadyDelay.Std())
	assert.Equal(t, 5*time.Second, cfg.Runtime.ExecutionTimeout.Std())
	assert.Equal(t, 256, cfg.Runtime.QueueSize)
	assert.Equal(t, "dashwire.commands", cfg.Transport.TopicPrefix)
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("", WithEnv(false))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeFile(t, `
[runtime]
readyDelay = "250ms"
queueSize = 32

[transport]
kind = "nats"
url = "nats://localhost:4222"

[session]
dashboardId = "greenhouse"
capabilities = ["widget", "io.transport"]

[session.user]
name = "ada"
`)
	t.Setenv("DASHWIRE_LOG_LEVEL", "debug")
	t.Setenv("DASHWIRE_RUNTIME_QUEUE_SIZE", "64")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.Runtime.ReadyDelay.Std())
	assert.Equal(t, 64, cfg.Runtime.QueueSize)
	assert.Equal(t, "nats", cfg.Transport.Kind)
	assert.Equal(t, "dashwire.commands", cfg.Transport.TopicPrefix)
	assert.Equal(t, "greenhouse", cfg.Session.DashboardID)
	assert.Equal(t, "ada", cfg.Session.User["name"])
	assert.Equal(t, logging.LogLevelDebug, cfg.LogLevel())

	checker, err := cfg.Checker()
	require.NoError(t, err)
	assert.True(t, checker.HasCapability(security.CapabilityWidget))
	assert.True(t, checker.HasCapability(security.CapabilityTransport))
	assert.False(t, checker.HasCapability(security.CapabilityHTTP))

	assert.Equal(t, "dashwire:greenhouse:", cfg.StorageOptions().Prefix)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"), WithEnv(false))
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := writeFile(t, `
[transport]
kind = "carrier-pigeon"

[runtime]
readyDelay = "0s"
`)
	_, err := Load(path, WithEnv(false))
	require.ErrorIs(t, err, ErrValidationFailed)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Problems, 2)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"nats without url", func(c *Config) { c.Transport.Kind = "nats" }},
		{"unknown storage", func(c *Config) { c.Storage.Backend = "etcd" }},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = "postgres" }},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"negative timers", func(c *Config) { c.Runtime.MaxTimers = -1 }},
		{"zero http timeout", func(c *Config) { c.HTTP.Timeout = 0 }},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad capability", func(c *Config) { c.Session.Capabilities = []string{"root"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrValidationFailed)
		})
	}
}

func TestLimits(t *testing.T) {
	cfg := Default()
	cfg.Runtime.ExecutionTimeout = Duration(time.Second)
	cfg.HTTP.RequestsPerSecond = 2
	cfg.HTTP.Burst = 3

	limits := cfg.Limits()
	assert.Equal(t, time.Second, limits.ExecutionTimeout)
	assert.Equal(t, 2.0, limits.HTTPRequestsPerSecond)
	assert.Equal(t, 3, limits.HTTPBurst)
}

func TestDefaultCheckerIsTrusted(t *testing.T) {
	checker, err := Default().Checker()
	require.NoError(t, err)
	assert.True(t, checker.HasCapability(security.CapabilityStorage))
	assert.True(t, checker.HasCapability(security.CapabilityHTTP))
}
