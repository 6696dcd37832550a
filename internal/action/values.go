package action

import (
	"github.com/dshills/dashwire/internal/template"
	"github.com/dshills/dashwire/internal/widget"
)

// Values derives the template value bag for an interaction.
func Values(w widget.Widget, action string, params map[string]any) template.Values {
	bag := template.Values{"widgetId": w.ID}

	switch w.Type {
	case widget.TypeSwitch:
		bag["checked"] = switchChecked(w, action, params)

	case widget.TypeButton:
		cfg, _ := w.Config.(*widget.ButtonConfig)
		if cfg != nil {
			bag["buttonType"] = cfg.ButtonType
		}
		switch {
		case has(params, "value"):
			bag["value"] = params["value"]
		case cfg != nil && cfg.Value != nil:
			bag["value"] = cfg.Value
		}
		switch action {
		case Press:
			bag["pressed"] = true
		case Release:
			bag["pressed"] = false
		}

	case widget.TypeSlider:
		copyKey(bag, params, "value")

	case widget.TypeTextInput:
		if action == Clear {
			bag["text"] = ""
			break
		}
		if v, ok := first(params, "text", "value", "message"); ok {
			bag["text"] = v
		}

	case widget.TypeColorPicker:
		colorValues(bag, params)

	case widget.TypeJoystick:
		joystickValues(bag, params)

	case widget.TypeCountdownTimer:
		bag["event"] = action
		copyKey(bag, params, "timeLeft")
		copyKey(bag, params, "completedAt")
		if has(params, "initialSeconds") {
			bag["initialSeconds"] = params["initialSeconds"]
		} else if cfg, ok := w.Config.(*widget.CountdownTimerConfig); ok {
			bag["initialSeconds"] = cfg.InitialSeconds
		}

	case widget.TypeVoiceToText:
		bag["event"] = action
		if v, ok := first(params, "text", "transcript", "value"); ok {
			bag["text"] = v
		}

	case widget.TypeForm, widget.TypeDatabaseForm:
		if data, ok := params["formData"].(map[string]any); ok {
			bag["formData"] = data
		} else if len(params) > 0 {
			bag["formData"] = params
		}

	case widget.TypePayment:
		for _, k := range []string{"transactionId", "amount", "currency", "error"} {
			copyKey(bag, params, k)
		}
		if action == PaymentSuccess {
			bag["status"] = "success"
		} else {
			bag["status"] = "failed"
		}

	default:
		copyKey(bag, params, "value")
	}
	return bag
}

// primaryKey is the bag key re-emitted to script listeners per widget type.
var primaryKey = map[widget.Type]string{
	widget.TypeSwitch:       "checked",
	widget.TypeButton:       "value",
	widget.TypeSlider:       "value",
	widget.TypeTextInput:    "text",
	widget.TypeColorPicker:  "hex",
	widget.TypeJoystick:     "position",
	widget.TypeVoiceToText:  "text",
	widget.TypeForm:         "formData",
	widget.TypeDatabaseForm: "formData",
}

// EventValue returns the value re-emitted to script listeners. Types without
// a primary value get the raw parameters.
func EventValue(t widget.Type, bag template.Values, params map[string]any) any {
	if key, ok := primaryKey[t]; ok {
		if v, ok := bag[key]; ok {
			return v
		}
	}
	if len(params) == 0 {
		return nil
	}
	return params
}

func switchChecked(w widget.Widget, action string, params map[string]any) bool {
	if v, ok := params["checked"].(bool); ok {
		return v
	}
	if v, ok := params["value"].(bool); ok {
		return v
	}
	switch action {
	case On:
		return true
	case Off:
		return false
	}
	current, _ := w.Value.(bool)
	return !current
}

func colorValues(bag template.Values, params map[string]any) {
	src := params
	switch c := params["color"].(type) {
	case string:
		bag["hex"] = c
	case map[string]any:
		src = c
	}
	copyKey(bag, src, "hex")
	copyKey(bag, src, "hsl")
	if rgb, ok := src["rgb"].(map[string]any); ok {
		bag["rgb"] = rgb
		copyKey(bag, rgb, "r")
		copyKey(bag, rgb, "g")
		copyKey(bag, rgb, "b")
	}
}

func joystickValues(bag template.Values, params map[string]any) {
	src := params
	if pos, ok := params["position"].(map[string]any); ok {
		src = pos
	}
	copyKey(bag, src, "x")
	copyKey(bag, src, "y")
	if has(bag, "x") || has(bag, "y") {
		bag["position"] = map[string]any{"x": bag["x"], "y": bag["y"]}
	}
}

func has[M ~map[string]any](m M, key string) bool {
	_, ok := m[key]
	return ok
}

func copyKey(dst template.Values, src map[string]any, key string) {
	if v, ok := src[key]; ok {
		dst[key] = v
	}
}

func first(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v, true
		}
	}
	return nil, false
}
