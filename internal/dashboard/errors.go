package dashboard

import "errors"

var (
	// ErrUnknownFormat is returned for files that are neither YAML nor JSON.
	ErrUnknownFormat = errors.New("unknown dashboard file format")

	// ErrNoWidgetType is returned for widgets without a type.
	ErrNoWidgetType = errors.New("widget type is required")

	// ErrWatcherClosed is returned when using a closed watcher.
	ErrWatcherClosed = errors.New("watcher is closed")
)
