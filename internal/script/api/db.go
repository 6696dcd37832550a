package api

import (
	"context"
	"errors"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/dashwire/internal/datasource"
	"github.com/dshills/dashwire/internal/script/security"
)

// ErrNoDataClient is reported when db.* is used without a data client.
var ErrNoDataClient = errors.New("no data client configured")

// DBModule implements the db API module over a DataClient.
type DBModule struct {
	host   Host
	client DataClient
}

// NewDBModule creates a new db module.
func NewDBModule(host Host, client DataClient) *DBModule {
	return &DBModule{host: host, client: client}
}

// Name returns the module name.
func (m *DBModule) Name() string {
	return "db"
}

// RequiredCapability returns the capability required for this module.
func (m *DBModule) RequiredCapability() security.Capability {
	return security.CapabilityDatabase
}

// Register registers the module into the Lua state.
func (m *DBModule) Register(L *lua.LState) error {
	mod := L.NewTable()
	setFuncs(L, mod, map[string]lua.LGFunction{
		"query":  m.query,
		"insert": m.insert,
	})
	L.SetGlobal("db", mod)
	return nil
}

// query(table, filters?, options?, cb)
// options: {select = {...}, orderBy = "col", ascending = bool, limit = n, offset = n}
func (m *DBModule) query(L *lua.LState) int {
	cb, nargs := trailingFunc(L)
	table := L.CheckString(1)
	var filters, rawOpts map[string]any
	if nargs >= 2 {
		filters = optMap(L, 2)
	}
	if nargs >= 3 {
		rawOpts = optMap(L, 3)
	}
	opts := datasource.ParseQueryOptions(rawOpts)

	asyncCall(m.host, cb, "db.query", func(ctx context.Context) (any, error) {
		if m.client == nil {
			return nil, ErrNoDataClient
		}
		rows, err := m.client.Query(ctx, table, filters, opts)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(rows))
		for i, r := range rows {
			out[i] = r
		}
		return out, nil
	})
	return 0
}

// insert(table, data, cb?)
func (m *DBModule) insert(L *lua.LState) int {
	cb, _ := trailingFunc(L)
	table := L.CheckString(1)
	data := optMap(L, 2)
	if data == nil {
		warnf(m.host, "db.insert: data for %q must be a table", table)
		return 0
	}

	asyncCall(m.host, cb, "db.insert", func(ctx context.Context) (any, error) {
		if m.client == nil {
			return nil, ErrNoDataClient
		}
		return m.client.Insert(ctx, table, data)
	})
	return 0
}
