package widget

// Type is the widget type tag. It selects the Config variant and the
// templating and fallback rules used for the widget's interactions.
type Type string

// Widget types with dedicated configuration or dispatch behavior.
const (
	TypeButton         Type = "button"
	TypeSwitch         Type = "switch"
	TypeSlider         Type = "slider"
	TypeTextInput      Type = "text-input"
	TypeColorPicker    Type = "color-picker"
	TypeJoystick       Type = "joystick"
	TypeCountdownTimer Type = "countdown-timer"
	TypeVoiceToText    Type = "voice-to-text"
	TypeForm           Type = "form"
	TypeDatabaseForm   Type = "database-form"
	TypePayment        Type = "payment"
)

// Display-only widget types. They use GenericConfig.
const (
	TypeLabel    Type = "label"
	TypeGauge    Type = "gauge"
	TypeChart    Type = "chart"
	TypeLED      Type = "led"
	TypeImage    Type = "image"
	TypeProgress Type = "progress"
	TypeMap      Type = "map"
)

// String returns the type tag.
func (t Type) String() string {
	return string(t)
}

// IsInteractive reports whether the type produces user interactions with
// dedicated dispatch rules.
func (t Type) IsInteractive() bool {
	switch t {
	case TypeButton, TypeSwitch, TypeSlider, TypeTextInput, TypeColorPicker,
		TypeJoystick, TypeCountdownTimer, TypeVoiceToText, TypeForm,
		TypeDatabaseForm, TypePayment:
		return true
	default:
		return false
	}
}

// LifecycleState is the lifecycle position of a widget.
type LifecycleState int

// Lifecycle states, in order.
const (
	// StateUninitialized - registered but load has not fired.
	StateUninitialized LifecycleState = iota

	// StateLoaded - load fired.
	StateLoaded

	// StateReady - ready fired after sibling registration settled.
	StateReady

	// StateDestroyed - destroy fired; terminal.
	StateDestroyed
)

// String returns a string representation of the state.
func (s LifecycleState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoaded:
		return "loaded"
	case StateReady:
		return "ready"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// CanAdvanceTo reports whether moving from s to next keeps the state
// monotonic. Skipping states is allowed (Loaded -> Destroyed).
func (s LifecycleState) CanAdvanceTo(next LifecycleState) bool {
	return next > s && next <= StateDestroyed
}

// IsAlive reports whether the widget has not been destroyed.
func (s LifecycleState) IsAlive() bool {
	return s != StateDestroyed
}
