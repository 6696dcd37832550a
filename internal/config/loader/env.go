package loader

import (
	"os"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// Aliases are the short variable names that do not follow the
// PREFIX_SECTION_SETTING_NAME scheme, keyed without the prefix.
var Aliases = map[string]string{
	"LOG_LEVEL":      "logging.level",
	"TRANSPORT":      "transport.kind",
	"NATS_URL":       "transport.url",
	"REDIS_ADDR":     "storage.redisAddr",
	"REDIS_PASSWORD": "storage.redisPassword",
	"DATABASE_URL":   "database.dsn",
	"DASHBOARD_ID":   "session.dashboardId",
	"METRICS_ADDR":   "metrics.addr",
}

// Env is the environment variable layer. DASHWIRE_STORAGE_REDIS_ADDR sets
// storage.redisAddr; aliases win over the generic form.
type Env struct {
	prefix  string
	aliases map[string]string
	environ func() []string
}

// NewEnv creates the layer for variables starting with prefix, which
// includes its trailing underscore.
func NewEnv(prefix string) *Env {
	return &Env{prefix: prefix, aliases: Aliases, environ: os.Environ}
}

// Name implements Source.
func (e *Env) Name() string {
	return "environment (" + e.prefix + "*)"
}

// Load implements Source. An empty value is a value, not an unset variable.
func (e *Env) Load() (map[string]any, error) {
	settings := make(map[string]any)
	aliased := make(map[string]bool)

	for _, kv := range e.environ() {
		name, raw, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, e.prefix) {
			continue
		}
		key := strings.TrimPrefix(name, e.prefix)
		if path, ok := e.aliases[key]; ok {
			setByPath(settings, path, coerce(raw))
			aliased[path] = true
			continue
		}
		path := settingPath(key)
		if aliased[path] {
			continue
		}
		setByPath(settings, path, coerce(raw))
	}
	return settings, nil
}

// settingPath turns RUNTIME_READY_DELAY into runtime.readyDelay. A name
// without a section maps to a top level key.
func settingPath(key string) string {
	section, rest, ok := strings.Cut(strings.ToLower(key), "_")
	if !ok {
		return section
	}
	words := strings.Split(rest, "_")
	var b strings.Builder
	b.WriteString(section)
	b.WriteByte('.')
	for i, w := range words {
		if w == "" {
			continue
		}
		if i > 0 {
			b.WriteString(strings.ToUpper(w[:1]))
			w = w[1:]
		}
		b.WriteString(w)
	}
	return b.String()
}

// coerce types a raw variable. Whole numbers stay integers, so "1" is a
// redis db index rather than true; durations stay strings for the config
// Duration decoder.
func coerce(raw string) any {
	switch strings.ToLower(raw) {
	case "":
		return raw
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && strings.Contains(raw, ".") {
		return f
	}
	if _, err := time.ParseDuration(raw); err == nil {
		return raw
	}
	if raw[0] == '[' || raw[0] == '{' {
		var v any
		if err := jsoniter.UnmarshalFromString(raw, &v); err == nil {
			return v
		}
	}
	return raw
}

func setByPath(settings map[string]any, path string, value any) {
	keys := strings.Split(path, ".")
	table := settings
	for _, k := range keys[:len(keys)-1] {
		next, ok := table[k].(map[string]any)
		if !ok {
			next = make(map[string]any)
			table[k] = next
		}
		table = next
	}
	table[keys[len(keys)-1]] = value
}

// GetByPath reads a dotted path such as "runtime.queueSize".
func GetByPath(settings map[string]any, path string) (any, bool) {
	var cur any = settings
	for _, k := range strings.Split(path, ".") {
		table, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = table[k]; !ok {
			return nil, false
		}
	}
	return cur, true
}
