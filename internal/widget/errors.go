package widget

import "errors"

// Registry errors.
var (
	// ErrWidgetNotFound is returned when a widget id is not registered.
	ErrWidgetNotFound = errors.New("widget not found")

	// ErrDuplicateWidget is returned when adding a widget whose id is taken.
	ErrDuplicateWidget = errors.New("duplicate widget id")

	// ErrEmptyID is returned when a widget has no id.
	ErrEmptyID = errors.New("widget id is empty")

	// ErrInvalidConfig is returned when a config bag cannot be decoded
	// into the variant for its widget type.
	ErrInvalidConfig = errors.New("invalid widget config")
)
