package template

import (
	"strconv"
	"strings"
)

// escape quotes gjson/sjson path metacharacters in a user supplied key.
func escape(key string) string {
	if !strings.ContainsAny(key, `.*?|#@\!=<>%`) {
		return key
	}
	var b strings.Builder
	b.Grow(len(key) * 2)
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func join(parts ...string) string {
	return strings.Join(parts, ".")
}

func paramsPath(cmd, action int) string {
	return join("commands", strconv.Itoa(cmd), "actions", strconv.Itoa(action), "params")
}
