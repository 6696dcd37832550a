package app

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports session counters to prometheus. It implements both
// runtime.Observer and action.Observer.
type Metrics struct {
	scriptErrors *prometheus.CounterVec
	callbacks    prometheus.Counter
	interactions *prometheus.CounterVec
	dispatches   *prometheus.CounterVec
	inbound      prometheus.Counter
}

func newCounterVec(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dashwire",
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

func newCounter(subsystem, name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dashwire",
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	})
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		scriptErrors: newCounterVec("runtime", "script_errors_total", "Script errors by phase.", "phase"),
		callbacks:    newCounter("runtime", "callbacks_total", "Script callbacks invoked."),
		interactions: newCounterVec("action", "interactions_total", "Widget interactions handled.", "action"),
		dispatches:   newCounterVec("action", "dispatches_total", "Payload dispatches by target and outcome.", "target", "outcome"),
		inbound:      newCounter("transport", "inbound_messages_total", "Inbound transport messages delivered to scripts."),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.scriptErrors, m.callbacks, m.interactions, m.dispatches, m.inbound} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveScriptError counts one script error.
func (m *Metrics) ObserveScriptError(phase string) {
	m.scriptErrors.WithLabelValues(phase).Inc()
}

// ObserveCallback counts one callback invocation.
func (m *Metrics) ObserveCallback() {
	m.callbacks.Inc()
}

// ObserveInteraction counts one interaction.
func (m *Metrics) ObserveInteraction(action string) {
	m.interactions.WithLabelValues(action).Inc()
}

// ObserveDispatch counts one dispatch attempt.
func (m *Metrics) ObserveDispatch(targetID, outcome string) {
	m.dispatches.WithLabelValues(targetID, outcome).Inc()
}

func (m *Metrics) observeInbound() {
	m.inbound.Inc()
}
