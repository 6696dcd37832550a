package template

import "errors"

var (
	// ErrInvalidTemplate is returned when a template is not valid JSON.
	ErrInvalidTemplate = errors.New("invalid payload template")

	// ErrNotObject is returned when a template is valid JSON but not an object.
	ErrNotObject = errors.New("payload template is not an object")
)
