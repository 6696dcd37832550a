package app

import (
	"context"

	"github.com/dshills/dashwire/internal/action"
	"github.com/dshills/dashwire/internal/dashboard"
	"github.com/dshills/dashwire/internal/widget"
)

// Load applies a dashboard definition. A definition whose script matches
// the running one only reconciles the widget set: removed widgets get
// destroy, new ones get load and ready. Any other script tears the previous
// execution down and runs from scratch.
//
// A failing script is returned as a *runtime.ScriptError wrapped in an
// OperationError; the session stays usable.
func (s *Session) Load(ctx context.Context, def *dashboard.Definition) error {
	if def == nil {
		return ErrNoDefinition
	}
	if s.isClosed() {
		return ErrClosed
	}
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	widgets, err := def.Build()
	if err != nil {
		return NewOperationError("load", def.ID, err)
	}

	current, executed := s.runtime.Script(ctx)
	if executed && current == def.Script {
		s.logger.Info("dashboard %s: script unchanged, reconciling %d widgets", def.ID, len(widgets))
		return s.reconcile(ctx, def.ID, widgets)
	}

	if executed {
		if err := s.runtime.Cleanup(ctx); err != nil {
			return NewOperationError("load", def.ID, err)
		}
	}
	if err := s.reconcile(ctx, def.ID, widgets); err != nil {
		return err
	}
	s.logger.Info("dashboard %s: executing script with %d widgets", def.ID, len(widgets))
	if err := s.runtime.Execute(ctx, def.Script); err != nil {
		return NewOperationError("load", def.ID, err)
	}
	return nil
}

// reconcile makes the registry hold exactly widgets. Widgets whose type
// changed are replaced; the rest keep their state.
func (s *Session) reconcile(ctx context.Context, dashboardID string, widgets []widget.Widget) error {
	reg := s.runtime.Widgets()
	want := make(map[string]widget.Widget, len(widgets))
	for _, w := range widgets {
		want[w.ID] = w
	}

	var errs ErrorList
	for _, id := range reg.IDs() {
		next, keep := want[id]
		if keep {
			if cur, ok := reg.Get(id); ok && cur.Type == next.Type {
				continue
			}
		}
		if err := s.runtime.RemoveWidget(ctx, id); err != nil {
			errs.Add(err)
		}
	}
	for _, w := range widgets {
		if reg.Has(w.ID) {
			continue
		}
		if err := s.runtime.AddWidget(ctx, w); err != nil {
			errs.Add(err)
		}
	}
	if errs.Len() > 0 {
		return NewOperationError("load", dashboardID, errs.AsError())
	}
	return nil
}

// HandleInteraction resolves one UI interaction into payload dispatches and
// re-emits it to script listeners.
func (s *Session) HandleInteraction(ctx context.Context, in action.Interaction) (*action.Outcome, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	out, err := s.resolver.Handle(ctx, in)
	if err != nil {
		return nil, NewOperationError("interaction", in.WidgetID, err)
	}
	return out, nil
}

// valueTrigger records the value of value-carrying interactions on the
// widget before script listeners run, so widget.getValue sees it.
type valueTrigger struct {
	s *Session
}

func (t valueTrigger) TriggerWidgetEvent(widgetID, eventName string, value any) {
	if value != nil && carriesValue(eventName) {
		if err := t.s.runtime.Widgets().StoreValue(widgetID, value); err != nil {
			t.s.logger.Debug("store value for %s: %v", widgetID, err)
		}
	}
	t.s.runtime.TriggerWidgetEvent(widgetID, eventName, value)
}

func carriesValue(eventName string) bool {
	switch eventName {
	case "change", action.Toggle, action.On, action.Off, action.Submit, action.SpeechResult:
		return true
	}
	return false
}
