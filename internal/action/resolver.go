package action

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/dshills/dashwire/internal/logging"
	"github.com/dshills/dashwire/internal/template"
	"github.com/dshills/dashwire/internal/transport"
	"github.com/dshills/dashwire/internal/widget"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Dispatch outcomes reported to the Observer.
const (
	OutcomeSent          = "sent"
	OutcomeFailed        = "failed"
	OutcomeTemplateError = "template_error"
	OutcomeNoTarget      = "no_target"
)

// Interaction is one UI originated widget interaction.
type Interaction struct {
	WidgetID string         `json:"widgetId"`
	Action   string         `json:"action"`
	Params   map[string]any `json:"params"`
}

// Widgets looks up live widgets.
type Widgets interface {
	Get(id string) (widget.Widget, bool)
}

// EventTrigger receives the re-emitted interaction.
type EventTrigger interface {
	TriggerWidgetEvent(widgetID, eventName string, value any)
}

// Observer receives counters for interactions and dispatches.
type Observer interface {
	ObserveInteraction(action string)
	ObserveDispatch(targetID, outcome string)
}

// Dispatch is one attempted send.
type Dispatch struct {
	EventID  string
	TargetID string
	Payload  []byte
	Legacy   bool
	Outcome  string
	Err      error
}

// Outcome describes everything Handle did for one interaction.
type Outcome struct {
	Matched    []string
	Dispatches []Dispatch
	Fallback   bool
	EventName  string
	EventValue any
}

// Options configures a Resolver.
type Options struct {
	Widgets Widgets
	Sender  transport.Sender
	Trigger EventTrigger

	// Observer is optional.
	Observer Observer

	// Logger is optional.
	Logger *logging.Logger
}

// Resolver maps interactions to dispatches.
type Resolver struct {
	widgets  Widgets
	sender   transport.Sender
	trigger  EventTrigger
	observer Observer
	logger   *logging.Logger
}

// NewResolver creates a resolver.
func NewResolver(opts Options) *Resolver {
	return &Resolver{
		widgets:  opts.Widgets,
		sender:   opts.Sender,
		trigger:  opts.Trigger,
		observer: opts.Observer,
		logger:   logging.OrNull(opts.Logger).WithComponent("action"),
	}
}

// Handle resolves and dispatches one interaction. Dispatch failures are
// recorded in the Outcome and logged; the only errors returned are for
// interactions that cannot be resolved at all.
func (r *Resolver) Handle(ctx context.Context, in Interaction) (*Outcome, error) {
	if in.Action == "" {
		return nil, ErrEmptyAction
	}
	w, ok := r.widgets.Get(in.WidgetID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWidgetNotFound, in.WidgetID)
	}
	if r.observer != nil {
		r.observer.ObserveInteraction(in.Action)
	}

	bag := Values(w, in.Action, in.Params)
	out := &Outcome{
		EventName:  EventName(in.Action),
		EventValue: EventValue(w.Type, bag, in.Params),
	}

	rule := template.Lookup(w.Type, in.Action)
	for _, ev := range widget.EventsOf(w.Config) {
		if !matches(in.Action, ev.EventType) {
			continue
		}
		out.Matched = append(out.Matched, ev.ID)
		for _, target := range ev.Targets {
			out.Dispatches = append(out.Dispatches, r.dispatchTemplate(ctx, ev.ID, target, rule, bag))
		}
	}

	if len(out.Matched) == 0 {
		out.Fallback = true
		if d, ok := r.dispatchLegacy(ctx, w, in.Action, bag); ok {
			out.Dispatches = append(out.Dispatches, d)
		}
	}

	if r.trigger != nil {
		r.trigger.TriggerWidgetEvent(w.ID, out.EventName, out.EventValue)
	}
	return out, nil
}

func (r *Resolver) dispatchTemplate(ctx context.Context, eventID string, target widget.Target, rule template.Rule, bag template.Values) Dispatch {
	d := Dispatch{EventID: eventID, TargetID: target.TargetID}

	payload, err := template.Apply(target.Payload, rule, bag)
	if err != nil {
		d.Outcome = OutcomeTemplateError
		d.Err = err
		r.logger.Warn("event %s target %s: %v", eventID, target.TargetID, err)
		r.observe(d)
		return d
	}
	d.Payload = payload
	return r.send(ctx, d)
}

func (r *Resolver) dispatchLegacy(ctx context.Context, w widget.Widget, action string, bag template.Values) (Dispatch, bool) {
	payload := LegacyPayload(w, action, bag)
	if payload == nil {
		return Dispatch{}, false
	}

	d := Dispatch{TargetID: widget.TargetOf(w.Config), Legacy: true}
	if d.TargetID == "" {
		d.Outcome = OutcomeNoTarget
		r.logger.Debug("widget %s has no target for %s fallback", w.ID, action)
		r.observe(d)
		return d, true
	}

	body, err := codec.Marshal(payload)
	if err != nil {
		d.Outcome = OutcomeTemplateError
		d.Err = err
		r.logger.Warn("widget %s fallback payload: %v", w.ID, err)
		r.observe(d)
		return d, true
	}
	d.Payload = body
	return r.send(ctx, d), true
}

func (r *Resolver) send(ctx context.Context, d Dispatch) Dispatch {
	if r.sender == nil {
		d.Outcome = OutcomeFailed
		d.Err = transport.ErrClosed
	} else if err := r.sender.Send(ctx, d.TargetID, d.Payload); err != nil {
		d.Outcome = OutcomeFailed
		d.Err = err
	} else {
		d.Outcome = OutcomeSent
	}
	if d.Err != nil {
		r.logger.Warn("send to %s failed: %v", d.TargetID, d.Err)
	}
	r.observe(d)
	return d
}

func (r *Resolver) observe(d Dispatch) {
	if r.observer != nil {
		r.observer.ObserveDispatch(d.TargetID, d.Outcome)
	}
}
