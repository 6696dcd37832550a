package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Client runs script queries against a database/sql handle.
type Client struct {
	db     *sql.DB
	driver string
}

// Open connects to the database. An empty sqlite3 dsn opens an in-memory
// database.
func Open(driver, dsn string) (*Client, error) {
	switch driver {
	case DriverSQLite:
		if dsn == "" {
			dsn = ":memory:"
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if driver == DriverSQLite {
		// A single connection keeps :memory: databases shared.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}
	return New(db, driver)
}

// New wraps an existing handle.
func New(db *sql.DB, driver string) (*Client, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	return &Client{db: db, driver: driver}, nil
}

// DB returns the underlying handle.
func (c *Client) DB() *sql.DB {
	return c.db
}

// Close closes the database.
func (c *Client) Close() error {
	return c.db.Close()
}

// Query selects rows from table matching filters. Filter values that are nil
// match NULL; slices match any of their elements.
func (c *Client) Query(ctx context.Context, table string, filters map[string]any, opts QueryOptions) ([]map[string]any, error) {
	if err := checkIdent(table); err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	if len(opts.Columns) == 0 {
		b.WriteString("*")
	} else {
		for i, col := range opts.Columns {
			if err := checkIdent(col); err != nil {
				return nil, err
			}
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(quote(col))
		}
	}
	b.WriteString(" FROM ")
	b.WriteString(quote(table))

	var args []any
	if len(filters) > 0 {
		b.WriteString(" WHERE ")
		for i, key := range sortedKeys(filters) {
			if err := checkIdent(key); err != nil {
				return nil, err
			}
			if i > 0 {
				b.WriteString(" AND ")
			}
			args = c.writeFilter(&b, key, filters[key], args)
		}
	}

	if opts.OrderBy != "" {
		if err := checkIdent(opts.OrderBy); err != nil {
			return nil, err
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(quote(opts.OrderBy))
		if opts.Descending {
			b.WriteString(" DESC")
		} else {
			b.WriteString(" ASC")
		}
	}
	if opts.Limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		if opts.Limit <= 0 && c.driver == DriverSQLite {
			b.WriteString(" LIMIT -1")
		}
		b.WriteString(" OFFSET ")
		b.WriteString(strconv.Itoa(opts.Offset))
	}

	rows, err := c.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()
	return scanRows(rows)
}

func (c *Client) writeFilter(b *strings.Builder, key string, value any, args []any) []any {
	if set, ok := value.([]any); ok && len(set) == 0 {
		// An empty set matches nothing.
		b.WriteString("1 = 0")
		return args
	}

	b.WriteString(quote(key))
	switch v := value.(type) {
	case nil:
		b.WriteString(" IS NULL")
	case []any:
		b.WriteString(" IN (")
		for i, item := range v {
			if i > 0 {
				b.WriteString(", ")
			}
			args = append(args, item)
			b.WriteString(c.placeholder(len(args)))
		}
		b.WriteString(")")
	default:
		args = append(args, v)
		b.WriteString(" = ")
		b.WriteString(c.placeholder(len(args)))
	}
	return args
}

// Insert adds a row and returns it. On postgres the stored row is returned;
// on sqlite the input gains an "id" from the last insert id when absent.
func (c *Client) Insert(ctx context.Context, table string, data map[string]any) (map[string]any, error) {
	if err := checkIdent(table); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyInsert
	}

	cols := sortedKeys(data)
	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		if err := checkIdent(col); err != nil {
			return nil, err
		}
		quoted[i] = quote(col)
		marks[i] = c.placeholder(i + 1)
		args[i] = sqlValue(data[col])
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quote(table), strings.Join(quoted, ", "), strings.Join(marks, ", "))

	if c.driver == DriverPostgres {
		rows, err := c.db.QueryContext(ctx, stmt+" RETURNING *", args...)
		if err != nil {
			return nil, fmt.Errorf("insert %s: %w", table, err)
		}
		defer rows.Close()
		out, err := scanRows(rows)
		if err != nil {
			return nil, err
		}
		if len(out) == 0 {
			return data, nil
		}
		return out[0], nil
	}

	res, err := c.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}
	out := make(map[string]any, len(data)+1)
	for k, v := range data {
		out[k] = v
	}
	if _, ok := out["id"]; !ok {
		if id, err := res.LastInsertId(); err == nil {
			out["id"] = id
		}
	}
	return out, nil
}

func (c *Client) placeholder(n int) string {
	if c.driver == DriverPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// sqlValue stores nested values as JSON text.
func sqlValue(v any) any {
	switch v.(type) {
	case map[string]any, []any:
		data, err := codec.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	default:
		return v
	}
}

func checkIdent(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return nil
}

func quote(ident string) string {
	return `"` + ident + `"`
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
