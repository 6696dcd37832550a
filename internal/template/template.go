package template

import (
	"bytes"
	"fmt"
	"sort"

	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Values is the per-interaction value bag.
type Values map[string]any

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Apply returns a filled copy of tmpl. The input slice is never modified.
// An empty or null template is treated as an empty object.
func Apply(tmpl []byte, rule Rule, values Values) ([]byte, error) {
	if t := bytes.TrimSpace(tmpl); len(t) == 0 || bytes.Equal(t, []byte("null")) {
		tmpl = []byte("{}")
	}
	if !gjson.ValidBytes(tmpl) {
		return nil, ErrInvalidTemplate
	}
	if !gjson.ParseBytes(tmpl).IsObject() {
		return nil, ErrNotObject
	}

	f := &filler{
		out:    append([]byte(nil), tmpl...),
		params: commandParams(tmpl),
	}

	for _, b := range rule.Bindings {
		v, ok := values[b.From]
		if !ok {
			continue
		}
		raw, err := codec.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", b.From, err)
		}
		for _, name := range b.Names {
			if err := f.overwrite(escape(name), raw, true); err != nil {
				return nil, err
			}
		}
	}

	if rule.FormFields != "" {
		if fields, ok := values[rule.FormFields].(map[string]any); ok {
			for _, k := range sortedKeys(fields) {
				raw, err := codec.Marshal(fields[k])
				if err != nil {
					return nil, fmt.Errorf("encode form field %s: %w", k, err)
				}
				if err := f.overwrite(escape(k), raw, false); err != nil {
					return nil, err
				}
			}
		}
	}

	if rule.ActionParameters && gjson.GetBytes(f.out, "actionParameters").IsObject() {
		for _, k := range sortedKeys(values) {
			raw, err := codec.Marshal(values[k])
			if err != nil {
				return nil, fmt.Errorf("encode %s: %w", k, err)
			}
			if err := f.set(join("actionParameters", escape(k)), raw); err != nil {
				return nil, err
			}
		}
	}

	return f.out, nil
}

type filler struct {
	out []byte

	// params are the commands[].actions[].params object paths of the template.
	params []string
}

// overwrite writes raw at every existing occurrence of field. The top-level
// location is skipped when top is false.
func (f *filler) overwrite(field string, raw []byte, top bool) error {
	if top {
		if err := f.setIfExists(field, raw); err != nil {
			return err
		}
	}
	if err := f.setIfExists(join("parameters", field), raw); err != nil {
		return err
	}
	for _, p := range f.params {
		if err := f.setIfExists(join(p, field), raw); err != nil {
			return err
		}
	}
	return nil
}

func (f *filler) setIfExists(path string, raw []byte) error {
	if !gjson.GetBytes(f.out, path).Exists() {
		return nil
	}
	return f.set(path, raw)
}

func (f *filler) set(path string, raw []byte) error {
	out, err := sjson.SetRawBytes(f.out, path, raw)
	if err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	f.out = out
	return nil
}

// commandParams lists the paths of every params object under
// commands[].actions[].
func commandParams(tmpl []byte) []string {
	commands := gjson.GetBytes(tmpl, "commands")
	if !commands.IsArray() {
		return nil
	}
	var paths []string
	for i, cmd := range commands.Array() {
		actions := cmd.Get("actions")
		if !actions.IsArray() {
			continue
		}
		for j, action := range actions.Array() {
			if action.Get("params").IsObject() {
				paths = append(paths, paramsPath(i, j))
			}
		}
	}
	return paths
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
