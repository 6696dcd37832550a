package template

import "github.com/dshills/dashwire/internal/widget"

// Binding copies one bag value into every field named in Names.
type Binding struct {
	// Names are the candidate field names, tried at each overwrite location.
	Names []string

	// From is the value bag key. A binding whose key is absent is skipped.
	From string
}

// Rule is the injection rule for one (widget type, action) pair.
type Rule struct {
	Bindings []Binding

	// FormFields names a bag key holding a map whose entries are merged into
	// parameters and commands params, again only where the field exists.
	FormFields string

	// ActionParameters merges the whole bag into the template's
	// actionParameters object.
	ActionParameters bool
}

func bind(from string, names ...string) Binding {
	if len(names) == 0 {
		names = []string{from}
	}
	return Binding{Names: names, From: from}
}

type ruleKey struct {
	typ    widget.Type
	action string
}

var (
	switchRule = Rule{
		Bindings:         []Binding{bind("checked", "value", "state", "checked", "on")},
		ActionParameters: true,
	}

	buttonRule = Rule{
		Bindings: []Binding{
			bind("value"),
			bind("pressed"),
			bind("buttonType"),
		},
		ActionParameters: true,
	}

	sliderRule = Rule{
		Bindings:         []Binding{bind("value", "value", "speed", "level", "intensity")},
		ActionParameters: true,
	}

	textRule = Rule{
		Bindings:         []Binding{bind("text", "value", "message", "text")},
		ActionParameters: true,
	}

	colorRule = Rule{
		Bindings: []Binding{
			bind("hex", "color", "hex"),
			bind("rgb"),
			bind("hsl"),
			bind("r"),
			bind("g"),
			bind("b"),
		},
		ActionParameters: true,
	}

	joystickRule = Rule{
		Bindings: []Binding{
			bind("position"),
			bind("x", "x", "horizontal"),
			bind("y", "y", "vertical"),
		},
		ActionParameters: true,
	}

	timerRule = Rule{
		Bindings: []Binding{
			bind("widgetId"),
			bind("initialSeconds"),
			bind("timeLeft"),
			bind("completedAt"),
			bind("event"),
		},
		ActionParameters: true,
	}

	voiceRule = Rule{
		Bindings: []Binding{
			bind("text", "text", "value", "message", "command", "data"),
			bind("widgetId"),
		},
		ActionParameters: true,
	}

	formRule = Rule{
		Bindings:         []Binding{bind("formData", "formData", "data")},
		FormFields:       "formData",
		ActionParameters: true,
	}

	paymentRule = Rule{
		Bindings: []Binding{
			bind("transactionId"),
			bind("amount"),
			bind("currency"),
			bind("status"),
			bind("error"),
		},
		ActionParameters: true,
	}

	// DefaultRule applies to pairs with no dedicated entry.
	DefaultRule = Rule{
		Bindings:         []Binding{bind("value")},
		ActionParameters: true,
	}
)

var rules = map[ruleKey]Rule{
	{widget.TypeSwitch, "toggle"}: switchRule,
	{widget.TypeSwitch, "on"}:     switchRule,
	{widget.TypeSwitch, "off"}:    switchRule,

	{widget.TypeButton, "press"}:   buttonRule,
	{widget.TypeButton, "release"}: buttonRule,
	{widget.TypeButton, "click"}:   buttonRule,

	{widget.TypeSlider, "valueChange"}: sliderRule,

	{widget.TypeTextInput, "submit"}: textRule,
	{widget.TypeTextInput, "clear"}:  textRule,

	{widget.TypeColorPicker, "colorChange"}: colorRule,

	{widget.TypeJoystick, "positionChange"}: joystickRule,

	{widget.TypeCountdownTimer, "start"}:    timerRule,
	{widget.TypeCountdownTimer, "pause"}:    timerRule,
	{widget.TypeCountdownTimer, "reset"}:    timerRule,
	{widget.TypeCountdownTimer, "complete"}: timerRule,

	{widget.TypeVoiceToText, "speechStart"}:  voiceRule,
	{widget.TypeVoiceToText, "speechEnd"}:    voiceRule,
	{widget.TypeVoiceToText, "speechResult"}: voiceRule,

	{widget.TypeForm, "submit"}:         formRule,
	{widget.TypeDatabaseForm, "submit"}: formRule,

	{widget.TypePayment, "paymentSuccess"}: paymentRule,
	{widget.TypePayment, "paymentFailed"}:  paymentRule,
}

// Lookup returns the rule for the pair, or DefaultRule.
func Lookup(t widget.Type, action string) Rule {
	if r, ok := rules[ruleKey{typ: t, action: action}]; ok {
		return r
	}
	return DefaultRule
}
