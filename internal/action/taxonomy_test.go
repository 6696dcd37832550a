package action

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/dashwire/internal/widget"
)

func TestEventTypes(t *testing.T) {
	tests := []struct {
		action string
		want   []string
	}{
		{Press, []string{"push", "click"}},
		{ValueChange, []string{"change", "slide", "slideEnd"}},
		{SpeechEnd, []string{"speechEnd", "submit"}},
		{PaymentFailed, []string{"paymentFailed", "payment.failure"}},
		{"custom", []string{"custom"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EventTypes(tt.action), tt.action)
	}
	assert.True(t, Known(Toggle))
	assert.False(t, Known("custom"))
}

func TestEventTypesReturnsCopy(t *testing.T) {
	types := EventTypes(Toggle)
	types[0] = "mutated"
	assert.Equal(t, []string{"toggle", "change"}, EventTypes(Toggle))
}

func TestEventName(t *testing.T) {
	assert.Equal(t, "change", EventName(ValueChange))
	assert.Equal(t, "change", EventName(ColorChange))
	assert.Equal(t, "change", EventName(PositionChange))
	assert.Equal(t, "on", EventName(On))
	assert.Equal(t, "speechResult", EventName(SpeechResult))
}

func TestValues(t *testing.T) {
	t.Run("color object", func(t *testing.T) {
		w := widget.New("c", widget.TypeColorPicker, nil)
		bag := Values(w, ColorChange, map[string]any{
			"color": map[string]any{"hex": "#fff", "rgb": map[string]any{"r": 255, "g": 255, "b": 255}},
		})
		assert.Equal(t, "#fff", bag["hex"])
		assert.Equal(t, 255, bag["r"])
		assert.Equal(t, "#fff", EventValue(w.Type, bag, nil))
	})

	t.Run("joystick", func(t *testing.T) {
		w := widget.New("j", widget.TypeJoystick, nil)
		bag := Values(w, PositionChange, map[string]any{"x": 0.5, "y": -1})
		assert.Equal(t, map[string]any{"x": 0.5, "y": -1}, bag["position"])
	})

	t.Run("switch toggle flips cached value", func(t *testing.T) {
		w := widget.New("s", widget.TypeSwitch, nil)
		w.Value = true
		bag := Values(w, Toggle, nil)
		assert.Equal(t, false, bag["checked"])
	})

	t.Run("timer uses configured seconds", func(t *testing.T) {
		cfg, _ := widget.DecodeConfig(widget.TypeCountdownTimer, map[string]any{"initialSeconds": 90})
		w := widget.New("t", widget.TypeCountdownTimer, cfg)
		bag := Values(w, Complete, map[string]any{"timeLeft": 0, "completedAt": "2024-05-01T10:00:00Z"})
		assert.Equal(t, 90, bag["initialSeconds"])
		assert.Equal(t, "complete", bag["event"])
		assert.Equal(t, "2024-05-01T10:00:00Z", bag["completedAt"])
	})

	t.Run("payment status", func(t *testing.T) {
		w := widget.New("p", widget.TypePayment, nil)
		bag := Values(w, PaymentFailed, map[string]any{"error": "declined"})
		assert.Equal(t, "failed", bag["status"])
		assert.Equal(t, map[string]any{"error": "declined"}, EventValue(w.Type, bag, map[string]any{"error": "declined"}))
	})
}
