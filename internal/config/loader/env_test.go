package loader

import (
	"testing"
)

func testEnv(vars ...string) *Env {
	e := NewEnv("DASHWIRE_")
	e.environ = func() []string { return vars }
	return e
}

func TestEnvLoad(t *testing.T) {
	settings, err := testEnv(
		"DASHWIRE_LOG_LEVEL=debug",
		"DASHWIRE_NATS_URL=nats://broker:4222",
		"DASHWIRE_RUNTIME_READY_DELAY=250ms",
		"DASHWIRE_STORAGE_REDIS_DB=1",
		"DASHWIRE_HTTP_REQUESTS_PER_SECOND=2.5",
		"HOME=/root",
	).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	tests := []struct {
		path string
		want any
	}{
		{"logging.level", "debug"},
		{"transport.url", "nats://broker:4222"},
		{"runtime.readyDelay", "250ms"},
		{"storage.redisDb", int64(1)},
		{"http.requestsPerSecond", 2.5},
	}
	for _, tt := range tests {
		got, ok := GetByPath(settings, tt.path)
		if !ok || got != tt.want {
			t.Errorf("%s = %v (%T), want %v", tt.path, got, got, tt.want)
		}
	}
	if _, ok := settings["home"]; ok {
		t.Error("unprefixed variable leaked into settings")
	}
}

func TestEnvAliasWins(t *testing.T) {
	for _, order := range [][]string{
		{"DASHWIRE_TRANSPORT_URL=nats://generic", "DASHWIRE_NATS_URL=nats://alias"},
		{"DASHWIRE_NATS_URL=nats://alias", "DASHWIRE_TRANSPORT_URL=nats://generic"},
	} {
		settings, err := testEnv(order...).Load()
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if got, _ := GetByPath(settings, "transport.url"); got != "nats://alias" {
			t.Errorf("%v: transport.url = %v, want alias", order, got)
		}
	}
}

func TestSettingPath(t *testing.T) {
	tests := map[string]string{
		"RUNTIME_QUEUE_SIZE":   "runtime.queueSize",
		"TRANSPORT_KIND":       "transport.kind",
		"SESSION_DASHBOARD_ID": "session.dashboardId",
		"VERBOSE":              "verbose",
	}
	for key, want := range tests {
		if got := settingPath(key); got != want {
			t.Errorf("settingPath(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"true", true},
		{"off", false},
		{"0", int64(0)},
		{"42", int64(42)},
		{"1.5", 1.5},
		{"2s", "2s"},
		{"plain", "plain"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := coerce(tt.in); got != tt.want {
			t.Errorf("coerce(%q) = %v (%T), want %v", tt.in, got, got, tt.want)
		}
	}

	list, ok := coerce(`["io.http","widget"]`).([]any)
	if !ok || len(list) != 2 {
		t.Errorf("coerce(json list) = %v", list)
	}
}
