package widget

import (
	"encoding/json"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Target is one dispatch destination of a declarative event. Payload is the
// JSON template; it is never mutated at dispatch time.
type Target struct {
	TargetID string          `json:"targetId"`
	Payload  json.RawMessage `json:"payload"`
}

// Event is a declarative widget event authored at design time.
type Event struct {
	ID        string   `json:"id"`
	EventType string   `json:"eventType"`
	Targets   []Target `json:"targets"`
}

// Config is the tagged union of per-type widget configurations.
// Only the variants declared in this package implement it.
type Config interface {
	// WidgetType returns the type tag this variant belongs to.
	WidgetType() Type

	base() *Base
}

// Base carries the fields shared by every variant.
type Base struct {
	// TargetID is the destination used by legacy fallback dispatch when no
	// declarative event matches.
	TargetID string `json:"targetId"`

	// Events are the declarative widget events, in declaration order.
	Events []Event `json:"widgetEvents"`

	// Props holds keys the variant does not define.
	Props map[string]any `json:"-"`
}

func (b *Base) base() *Base { return b }

// ButtonConfig configures a button. ButtonType is "push", "toggle" or "normal".
type ButtonConfig struct {
	Base
	Label      string `json:"label"`
	ButtonType string `json:"buttonType"`
	Value      any    `json:"value"`
}

// WidgetType implements Config.
func (*ButtonConfig) WidgetType() Type { return TypeButton }

// IsPush reports whether the button is a momentary push button.
func (c *ButtonConfig) IsPush() bool { return c.ButtonType == "push" }

// SwitchConfig configures an on/off switch.
type SwitchConfig struct {
	Base
	Label    string `json:"label"`
	OnValue  any    `json:"onValue"`
	OffValue any    `json:"offValue"`
}

// WidgetType implements Config.
func (*SwitchConfig) WidgetType() Type { return TypeSwitch }

// SliderConfig configures a slider.
type SliderConfig struct {
	Base
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

// WidgetType implements Config.
func (*SliderConfig) WidgetType() Type { return TypeSlider }

// TextInputConfig configures a text input.
type TextInputConfig struct {
	Base
	Placeholder string `json:"placeholder"`
	Multiline   bool   `json:"multiline"`
}

// WidgetType implements Config.
func (*TextInputConfig) WidgetType() Type { return TypeTextInput }

// ColorPickerConfig configures a color picker. Format is "hex", "rgb" or "hsl".
type ColorPickerConfig struct {
	Base
	Format string `json:"format"`
}

// WidgetType implements Config.
func (*ColorPickerConfig) WidgetType() Type { return TypeColorPicker }

// JoystickConfig configures a joystick.
type JoystickConfig struct {
	Base
	Mode string `json:"mode"`
}

// WidgetType implements Config.
func (*JoystickConfig) WidgetType() Type { return TypeJoystick }

// CountdownTimerConfig configures a countdown timer.
type CountdownTimerConfig struct {
	Base
	InitialSeconds int  `json:"initialSeconds"`
	AutoStart      bool `json:"autoStart"`
}

// WidgetType implements Config.
func (*CountdownTimerConfig) WidgetType() Type { return TypeCountdownTimer }

// VoiceToTextConfig configures a speech recognizer widget.
type VoiceToTextConfig struct {
	Base
	Language   string `json:"language"`
	Continuous bool   `json:"continuous"`
}

// WidgetType implements Config.
func (*VoiceToTextConfig) WidgetType() Type { return TypeVoiceToText }

// FormField describes one form input.
type FormField struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// FormConfig configures a form.
type FormConfig struct {
	Base
	Fields      []FormField `json:"fields"`
	SubmitLabel string      `json:"submitLabel"`
}

// WidgetType implements Config.
func (*FormConfig) WidgetType() Type { return TypeForm }

// DatabaseFormConfig configures a form whose submissions are also stored
// in a table.
type DatabaseFormConfig struct {
	FormConfig
	Table string `json:"table"`
}

// WidgetType implements Config.
func (*DatabaseFormConfig) WidgetType() Type { return TypeDatabaseForm }

// PaymentConfig configures a payment widget.
type PaymentConfig struct {
	Base
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Provider string  `json:"provider"`
}

// WidgetType implements Config.
func (*PaymentConfig) WidgetType() Type { return TypePayment }

// GenericConfig is used for display-only and unknown widget types. All keys
// other than targetId and widgetEvents live in Props.
type GenericConfig struct {
	Base
	Kind Type `json:"-"`
}

// WidgetType implements Config.
func (c *GenericConfig) WidgetType() Type { return c.Kind }

// NewConfig returns an empty variant for the given type.
func NewConfig(t Type) Config {
	switch t {
	case TypeButton:
		return &ButtonConfig{}
	case TypeSwitch:
		return &SwitchConfig{}
	case TypeSlider:
		return &SliderConfig{}
	case TypeTextInput:
		return &TextInputConfig{}
	case TypeColorPicker:
		return &ColorPickerConfig{}
	case TypeJoystick:
		return &JoystickConfig{}
	case TypeCountdownTimer:
		return &CountdownTimerConfig{}
	case TypeVoiceToText:
		return &VoiceToTextConfig{}
	case TypeForm:
		return &FormConfig{}
	case TypeDatabaseForm:
		return &DatabaseFormConfig{}
	case TypePayment:
		return &PaymentConfig{}
	default:
		return &GenericConfig{Kind: t}
	}
}

// DecodeConfig converts an untyped config bag into the variant for t.
// Keys the variant does not define are preserved in Props.
func DecodeConfig(t Type, raw map[string]any) (Config, error) {
	cfg := NewConfig(t)
	if len(raw) > 0 {
		data, err := codec.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		if err := codec.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, t, err)
		}
	}

	known, err := fieldMap(cfg)
	if err != nil {
		return nil, err
	}
	props := make(map[string]any)
	for k, v := range raw {
		if _, ok := known[k]; !ok {
			props[k] = v
		}
	}
	cfg.base().Props = props
	return cfg, nil
}

// EncodeConfig flattens a variant back into an untyped bag, including Props.
func EncodeConfig(cfg Config) map[string]any {
	if cfg == nil {
		return map[string]any{}
	}
	out, err := fieldMap(cfg)
	if err != nil {
		out = make(map[string]any)
	}
	for k, v := range cfg.base().Props {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return out
}

// MergeConfig applies a partial bag on top of cfg and returns a new variant of
// the same type. cfg itself is left untouched.
func MergeConfig(cfg Config, partial map[string]any) (Config, error) {
	t := TypeLabel
	if cfg != nil {
		t = cfg.WidgetType()
	}
	merged := EncodeConfig(cfg)
	for k, v := range partial {
		merged[k] = v
	}
	return DecodeConfig(t, merged)
}

// EventsOf returns the declarative events of cfg.
func EventsOf(cfg Config) []Event {
	if cfg == nil {
		return nil
	}
	return cfg.base().Events
}

// TargetOf returns the legacy fallback target of cfg.
func TargetOf(cfg Config) string {
	if cfg == nil {
		return ""
	}
	return cfg.base().TargetID
}

// PropsOf returns the untyped extra keys of cfg.
func PropsOf(cfg Config) map[string]any {
	if cfg == nil {
		return nil
	}
	return cfg.base().Props
}

// fieldMap marshals the typed fields of cfg into a map.
func fieldMap(cfg Config) (map[string]any, error) {
	data, err := codec.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	out := make(map[string]any)
	if err := codec.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return out, nil
}
