// Package action turns raw widget interactions into transport dispatches.
//
// An interaction names a widget, an action id and its parameters. The
// resolver maps the action id to a fixed set of event types, dispatches
// every declarative widget event whose type is in that set (in declaration
// order, targets in array order), and falls back to a per-widget-type
// legacy payload when nothing matches. The interaction is always re-emitted
// to script listeners afterwards, whatever the dispatch outcome.
package action
