package action

import (
	"github.com/dshills/dashwire/internal/template"
	"github.com/dshills/dashwire/internal/widget"
)

// legacyRule builds the fallback payload sent to the widget's configured
// target when no declarative event matches. A nil result sends nothing.
type legacyRule func(w widget.Widget, action string, bag template.Values) map[string]any

var legacyRules = map[widget.Type]legacyRule{
	widget.TypeButton:         legacyButton,
	widget.TypeSwitch:         legacySwitch,
	widget.TypeSlider:         legacySlider,
	widget.TypeTextInput:      legacyTextInput,
	widget.TypeColorPicker:    legacyColor,
	widget.TypeJoystick:       legacyJoystick,
	widget.TypeCountdownTimer: legacyTimer,
	widget.TypeVoiceToText:    legacyVoice,
	widget.TypeForm:           legacyForm,
	widget.TypeDatabaseForm:   legacyForm,
	widget.TypePayment:        legacyPayment,
}

// LegacyPayload returns the fallback payload for an interaction.
func LegacyPayload(w widget.Widget, action string, bag template.Values) map[string]any {
	if rule, ok := legacyRules[w.Type]; ok {
		return rule(w, action, bag)
	}
	return legacyGeneric(w, action, bag)
}

func base(action, widgetID string) map[string]any {
	return map[string]any{"action": action, "widgetId": widgetID}
}

func legacyButton(w widget.Widget, action string, bag template.Values) map[string]any {
	cfg, _ := w.Config.(*widget.ButtonConfig)
	switch {
	case cfg != nil && cfg.IsPush() && (action == Press || action == Release):
		p := base(action, w.ID)
		p["buttonType"] = "push"
		p["pressed"] = action == Press
		return p
	case cfg != nil && cfg.ButtonType == "toggle" && (action == Click || action == Toggle):
		p := base(Toggle, w.ID)
		p["buttonType"] = "toggle"
		state, _ := w.Value.(bool)
		if v, ok := bag["value"].(bool); ok {
			state = v
		}
		p["state"] = state
		return p
	default:
		p := base(Click, w.ID)
		if v, ok := bag["value"]; ok {
			p["value"] = v
		}
		return p
	}
}

func legacySwitch(w widget.Widget, action string, bag template.Values) map[string]any {
	p := base(action, w.ID)
	checked, _ := bag["checked"].(bool)
	p["state"] = checked
	if cfg, ok := w.Config.(*widget.SwitchConfig); ok {
		if checked && cfg.OnValue != nil {
			p["value"] = cfg.OnValue
		}
		if !checked && cfg.OffValue != nil {
			p["value"] = cfg.OffValue
		}
	}
	return p
}

func legacySlider(w widget.Widget, _ string, bag template.Values) map[string]any {
	p := base("setValue", w.ID)
	p["value"] = bag["value"]
	return p
}

func legacyTextInput(w widget.Widget, action string, bag template.Values) map[string]any {
	p := base(action, w.ID)
	if action != Clear {
		p["text"] = bag["text"]
	}
	return p
}

func legacyColor(w widget.Widget, _ string, bag template.Values) map[string]any {
	p := base("setColor", w.ID)
	if v, ok := bag["hex"]; ok {
		p["color"] = v
	}
	if v, ok := bag["rgb"]; ok {
		p["rgb"] = v
	}
	return p
}

func legacyJoystick(w widget.Widget, _ string, bag template.Values) map[string]any {
	p := base("move", w.ID)
	p["x"] = bag["x"]
	p["y"] = bag["y"]
	return p
}

func legacyTimer(w widget.Widget, action string, bag template.Values) map[string]any {
	p := base(action, w.ID)
	for _, k := range []string{"timeLeft", "initialSeconds", "completedAt"} {
		if v, ok := bag[k]; ok {
			p[k] = v
		}
	}
	return p
}

func legacyVoice(w widget.Widget, action string, bag template.Values) map[string]any {
	p := base(action, w.ID)
	if v, ok := bag["text"]; ok {
		p["text"] = v
	}
	return p
}

func legacyForm(w widget.Widget, action string, bag template.Values) map[string]any {
	if action != Submit {
		return nil
	}
	p := base(Submit, w.ID)
	p["formData"] = bag["formData"]
	if cfg, ok := w.Config.(*widget.DatabaseFormConfig); ok && cfg.Table != "" {
		p["table"] = cfg.Table
	}
	return p
}

func legacyPayment(w widget.Widget, action string, bag template.Values) map[string]any {
	p := base(action, w.ID)
	for _, k := range []string{"transactionId", "amount", "currency", "status", "error"} {
		if v, ok := bag[k]; ok {
			p[k] = v
		}
	}
	return p
}

func legacyGeneric(w widget.Widget, action string, bag template.Values) map[string]any {
	p := base(action, w.ID)
	if v, ok := bag["value"]; ok {
		p["value"] = v
	}
	return p
}
