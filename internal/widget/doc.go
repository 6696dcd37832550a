// Package widget holds the live state of dashboard widgets.
//
// A Registry owns every widget of one dashboard session: its current value,
// display text, visibility, transform, typed configuration and lifecycle
// state. Reads are served from the registry cache and always reflect the most
// recent write. Writes update the cache synchronously and then notify the host
// through the UpdateFunc / TransformFunc callbacks so the renderer can
// re-render asynchronously.
//
// # Configuration
//
// Widget configuration is a tagged union keyed by Type. Each variant carries
// only the fields its widget type needs plus the common Base (legacy target
// and declarative widgetEvents). Keys a variant does not know about are kept
// in Base.Props so scripts can round-trip arbitrary settings:
//
//	cfg, err := widget.DecodeConfig(widget.TypeSlider, map[string]any{
//	    "min": 0, "max": 100,
//	    "widgetEvents": []any{...},
//	})
//
// # Lifecycle
//
// LifecycleState only moves forward:
//
//	Uninitialized -> Loaded -> Ready -> Destroyed
//
// Destroyed is terminal; a destroyed widget never re-enters Loaded.
package widget
