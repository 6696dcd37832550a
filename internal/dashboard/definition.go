package dashboard

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/dshills/dashwire/internal/widget"
)

// Format is a definition file encoding.
type Format string

// Formats.
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// Definition is a dashboard as authored.
type Definition struct {
	ID         string       `yaml:"id" json:"id"`
	Name       string       `yaml:"name" json:"name"`
	Script     string       `yaml:"script" json:"script"`
	ScriptFile string       `yaml:"scriptFile" json:"scriptFile"`
	Widgets    []WidgetSpec `yaml:"widgets" json:"widgets"`

	// Path is the file the definition was read from, if any.
	Path string `yaml:"-" json:"-"`
}

// WidgetSpec is one authored widget.
type WidgetSpec struct {
	ID     string         `yaml:"id" json:"id"`
	Type   string         `yaml:"type" json:"type"`
	Value  any            `yaml:"value" json:"value"`
	Text   string         `yaml:"text" json:"text"`
	Hidden bool           `yaml:"hidden" json:"hidden"`
	Config map[string]any `yaml:"config" json:"config"`
}

// Parse decodes a definition.
func Parse(data []byte, format Format) (*Definition, error) {
	var def Definition
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case FormatJSON:
		if err := jsoniter.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return &def, nil
}

// LoadFile reads a definition and, when it names a scriptFile, the script
// next to it.
func LoadFile(path string) (*Definition, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	def, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	def.Path = path

	if def.ScriptFile != "" {
		script, err := os.ReadFile(def.ScriptPath())
		if err != nil {
			return nil, fmt.Errorf("read script: %w", err)
		}
		def.Script = string(script)
	}
	return def, nil
}

// ScriptPath resolves ScriptFile relative to the definition file.
func (d *Definition) ScriptPath() string {
	if d.ScriptFile == "" || filepath.IsAbs(d.ScriptFile) || d.Path == "" {
		return d.ScriptFile
	}
	return filepath.Join(filepath.Dir(d.Path), d.ScriptFile)
}

// Build converts the authored widgets into registry widgets.
func (d *Definition) Build() ([]widget.Widget, error) {
	out := make([]widget.Widget, 0, len(d.Widgets))
	seen := make(map[string]bool, len(d.Widgets))
	for i, spec := range d.Widgets {
		w, err := spec.Build()
		if err != nil {
			return nil, fmt.Errorf("widget %d (%q): %w", i, spec.ID, err)
		}
		if seen[w.ID] {
			return nil, fmt.Errorf("%w: %s", widget.ErrDuplicateWidget, w.ID)
		}
		seen[w.ID] = true
		out = append(out, w)
	}
	return out, nil
}

// Build converts the spec into a widget.
func (s WidgetSpec) Build() (widget.Widget, error) {
	if s.ID == "" {
		return widget.Widget{}, widget.ErrEmptyID
	}
	if s.Type == "" {
		return widget.Widget{}, ErrNoWidgetType
	}
	t := widget.Type(s.Type)
	cfg, err := widget.DecodeConfig(t, s.Config)
	if err != nil {
		return widget.Widget{}, err
	}
	w := widget.New(s.ID, t, cfg)
	w.Value = s.Value
	w.Text = s.Text
	w.Visible = !s.Hidden
	return w, nil
}
