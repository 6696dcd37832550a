package action

// Action ids.
const (
	Press          = "press"
	Release        = "release"
	Click          = "click"
	Toggle         = "toggle"
	ValueChange    = "valueChange"
	ColorChange    = "colorChange"
	PositionChange = "positionChange"
	On             = "on"
	Off            = "off"
	Submit         = "submit"
	Clear          = "clear"
	Complete       = "complete"
	Start          = "start"
	Pause          = "pause"
	Reset          = "reset"
	SpeechStart    = "speechStart"
	SpeechEnd      = "speechEnd"
	SpeechResult   = "speechResult"
	PaymentSuccess = "paymentSuccess"
	PaymentFailed  = "paymentFailed"
)

// TaxonomyVersion identifies the action to event type table below.
const TaxonomyVersion = 1

var taxonomy = map[string][]string{
	Press:          {"push", "click"},
	Release:        {"release"},
	Click:          {"click"},
	Toggle:         {"toggle", "change"},
	ValueChange:    {"change", "slide", "slideEnd"},
	ColorChange:    {"change"},
	PositionChange: {"change"},
	On:             {"on"},
	Off:            {"off"},
	Submit:         {"submit", "change"},
	Clear:          {"clear"},
	Complete:       {"complete"},
	Start:          {"start"},
	Pause:          {"pause"},
	Reset:          {"reset"},
	SpeechStart:    {"speechStart"},
	SpeechEnd:      {"speechEnd", "submit"},
	SpeechResult:   {"speechResult", "change"},
	PaymentSuccess: {"paymentSuccess", "payment.success"},
	PaymentFailed:  {"paymentFailed", "payment.failure"},
}

// EventTypes returns the event types an action matches. An action missing
// from the table matches only an event type of the same name.
func EventTypes(action string) []string {
	if types, ok := taxonomy[action]; ok {
		return append([]string(nil), types...)
	}
	return []string{action}
}

// Known reports whether the action is in the taxonomy.
func Known(action string) bool {
	_, ok := taxonomy[action]
	return ok
}

// EventName returns the event bus name an interaction is re-emitted under.
func EventName(action string) string {
	switch action {
	case ValueChange, ColorChange, PositionChange:
		return "change"
	default:
		return action
	}
}

func matches(action, eventType string) bool {
	for _, t := range EventTypes(action) {
		if t == eventType {
			return true
		}
	}
	return false
}
