// Package template fills dashboard command payload templates with live
// interaction values.
//
// A template is a JSON document authored at design time. Apply never mutates
// it: the bytes are cloned and values are written into the clone at four
// structural locations:
//
//   - top-level fields
//   - fields of the "parameters" object
//   - fields of every "commands[].actions[].params" object
//   - the "actionParameters" object
//
// The first three locations are overwrite-only: a field is written only if
// the template already has it. The actionParameters object is the only place
// new keys are created, and only when the template declares that object.
//
// Which bag values go to which field names is decided by a Rule, looked up
// per widget type and action in a declarative table.
package template
