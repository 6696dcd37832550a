package datasource

import (
	"strings"
)

// QueryOptions shape a query.
type QueryOptions struct {
	// Columns to select; empty selects every column.
	Columns []string

	// OrderBy names the sort column.
	OrderBy string

	// Descending reverses the sort.
	Descending bool

	// Limit caps the row count when positive.
	Limit int

	// Offset skips rows when positive.
	Offset int
}

// ParseQueryOptions reads options from a script table:
// {select = "a,b" | {"a","b"}, orderBy = "col", ascending = false, limit = n, offset = n}.
func ParseQueryOptions(raw map[string]any) QueryOptions {
	var opts QueryOptions
	if raw == nil {
		return opts
	}

	sel := raw["select"]
	if sel == nil {
		sel = raw["columns"]
	}
	switch v := sel.(type) {
	case string:
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" && c != "*" {
				opts.Columns = append(opts.Columns, c)
			}
		}
	case []any:
		for _, c := range v {
			if s, ok := c.(string); ok && s != "" {
				opts.Columns = append(opts.Columns, s)
			}
		}
	}

	if s, ok := raw["orderBy"].(string); ok {
		opts.OrderBy = s
	}
	if asc, ok := raw["ascending"].(bool); ok {
		opts.Descending = !asc
	}
	if desc, ok := raw["descending"].(bool); ok {
		opts.Descending = desc
	}
	opts.Limit = intOption(raw["limit"])
	opts.Offset = intOption(raw["offset"])
	return opts
}

func intOption(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
