package datasource

import "errors"

var (
	// ErrInvalidIdentifier is returned for table or column names that are
	// not plain identifiers.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrUnsupportedDriver is returned for drivers other than sqlite3 and postgres.
	ErrUnsupportedDriver = errors.New("unsupported database driver")

	// ErrEmptyInsert is returned when inserting a row with no columns.
	ErrEmptyInsert = errors.New("insert requires at least one column")
)
