package widget

import (
	"fmt"
	"sync"
)

// Registry owns the live widget set of one dashboard session.
// It is safe for concurrent use; host callbacks run outside the lock.
type Registry struct {
	mu      sync.RWMutex
	widgets map[string]*Widget
	order   []string

	onUpdate    UpdateFunc
	onTransform TransformFunc
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithUpdateFunc sets the host callback for state changes.
func WithUpdateFunc(fn UpdateFunc) RegistryOption {
	return func(r *Registry) {
		r.onUpdate = fn
	}
}

// WithTransformFunc sets the host callback for geometry changes.
func WithTransformFunc(fn TransformFunc) RegistryOption {
	return func(r *Registry) {
		r.onTransform = fn
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		widgets: make(map[string]*Widget),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add registers a widget. The id must be non-empty and unique.
func (r *Registry) Add(w Widget) error {
	if w.ID == "" {
		return ErrEmptyID
	}
	if w.Config == nil {
		w.Config = NewConfig(w.Type)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.widgets[w.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateWidget, w.ID)
	}
	stored := w
	r.widgets[w.ID] = &stored
	r.order = append(r.order, w.ID)
	return nil
}

// Remove unregisters a widget and returns its final snapshot.
func (r *Registry) Remove(id string) (Widget, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, exists := r.widgets[id]
	if !exists {
		return Widget{}, false
	}
	delete(r.widgets, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return *w, true
}

// Get returns a snapshot of the widget.
func (r *Registry) Get(id string) (Widget, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, exists := r.widgets[id]
	if !exists {
		return Widget{}, false
	}
	return *w, true
}

// Has returns true if the widget is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.widgets[id]
	return exists
}

// IDs returns widget ids in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of registered widgets.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.widgets)
}

// Value returns the cached value.
func (r *Registry) Value(id string) (any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.widgets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWidgetNotFound, id)
	}
	return w.Value, nil
}

// SetValue updates the cached value and notifies the host.
func (r *Registry) SetValue(id string, value any) error {
	if err := r.mutate(id, func(w *Widget) { w.Value = value }); err != nil {
		return err
	}
	r.notify(id, Update{UpdateValue: value})
	return nil
}

// StoreValue updates the cached value without notifying the host. It is
// used for values that originate from the renderer itself.
func (r *Registry) StoreValue(id string, value any) error {
	return r.mutate(id, func(w *Widget) { w.Value = value })
}

// Text returns the display text.
func (r *Registry) Text(id string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.widgets[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrWidgetNotFound, id)
	}
	return w.Text, nil
}

// SetText updates the display text and notifies the host.
func (r *Registry) SetText(id, text string) error {
	if err := r.mutate(id, func(w *Widget) { w.Text = text }); err != nil {
		return err
	}
	r.notify(id, Update{UpdateText: text})
	return nil
}

// SetVisible shows or hides the widget.
func (r *Registry) SetVisible(id string, visible bool) error {
	if err := r.mutate(id, func(w *Widget) { w.Visible = visible }); err != nil {
		return err
	}
	r.notify(id, Update{UpdateVisible: visible})
	return nil
}

// Config returns the typed configuration.
func (r *Registry) Config(id string) (Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.widgets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWidgetNotFound, id)
	}
	return w.Config, nil
}

// SetConfig merges partial into the widget's configuration and notifies the
// host with the full resulting bag.
func (r *Registry) SetConfig(id string, partial map[string]any) error {
	r.mu.Lock()
	w, ok := r.widgets[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrWidgetNotFound, id)
	}
	merged, err := MergeConfig(w.Config, partial)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	w.Config = merged
	r.mu.Unlock()

	r.notify(id, Update{UpdateConfig: EncodeConfig(merged)})
	return nil
}

// SetTransform merges t into the widget geometry and notifies the host.
func (r *Registry) SetTransform(id string, t Transform) error {
	if t.IsEmpty() {
		return nil
	}
	if err := r.mutate(id, func(w *Widget) { w.Transform = w.Transform.merge(t) }); err != nil {
		return err
	}
	if r.onTransform != nil {
		r.onTransform(id, t)
	}
	return nil
}

// State returns the lifecycle state.
func (r *Registry) State(id string) (LifecycleState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.widgets[id]
	if !ok {
		return StateUninitialized, false
	}
	return w.State, true
}

// Advance moves the widget to next if that keeps the state monotonic.
// Returns false when the transition is not allowed.
func (r *Registry) Advance(id string, next LifecycleState) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.widgets[id]
	if !ok || !w.State.CanAdvanceTo(next) {
		return false
	}
	w.State = next
	return true
}

func (r *Registry) mutate(id string, fn func(w *Widget)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.widgets[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrWidgetNotFound, id)
	}
	fn(w)
	return nil
}

func (r *Registry) notify(id string, u Update) {
	if r.onUpdate != nil {
		r.onUpdate(id, u)
	}
}
