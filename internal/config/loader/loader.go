// Package loader reads configuration layers into generic maps: TOML files
// and DASHWIRE_* environment variables. The config package stacks them over
// its defaults and decodes the result.
package loader

import (
	"fmt"
	"os"
)

// Source is one configuration layer.
type Source interface {
	// Name identifies the layer in errors, e.g. a file path.
	Name() string

	// Load returns the layer's settings. A layer with nothing to
	// contribute returns an empty or nil map.
	Load() (map[string]any, error)
}

// FileSystem reads config files.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
}

type osFS struct{}

func (osFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// DefaultFS reads from the operating system.
func DefaultFS() FileSystem {
	return osFS{}
}

// Stack applies sources over base in order, later layers winning. It
// returns the merged map and the names of the layers that set anything.
func Stack(base map[string]any, sources ...Source) (map[string]any, []string, error) {
	merged := Overlay(base, nil)
	var applied []string
	for _, src := range sources {
		layer, err := src.Load()
		if err != nil {
			return nil, applied, fmt.Errorf("config layer %s: %w", src.Name(), err)
		}
		if len(layer) == 0 {
			continue
		}
		merged = Overlay(merged, layer)
		applied = append(applied, src.Name())
	}
	return merged, applied, nil
}

// Overlay returns a copy of base with over applied on top. Tables merge key
// by key; any other value in over replaces what base holds. Neither input
// is modified.
func Overlay(base, over map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(over))
	for k, v := range base {
		if table, ok := v.(map[string]any); ok {
			v = Overlay(table, nil)
		}
		out[k] = v
	}
	for k, v := range over {
		overTable, overIsTable := v.(map[string]any)
		if !overIsTable {
			out[k] = v
			continue
		}
		if baseTable, ok := out[k].(map[string]any); ok {
			out[k] = Overlay(baseTable, overTable)
		} else {
			out[k] = Overlay(overTable, nil)
		}
	}
	return out
}
