package action

import "errors"

var (
	// ErrWidgetNotFound is returned when the interaction names an unknown widget.
	ErrWidgetNotFound = errors.New("widget not found")

	// ErrEmptyAction is returned when the interaction has no action id.
	ErrEmptyAction = errors.New("action id cannot be empty")
)
