package widget

// Widget is a live dashboard element.
type Widget struct {
	ID        string
	Type      Type
	Config    Config
	Value     any
	Text      string
	Visible   bool
	Transform Transform
	State     LifecycleState
}

// New creates a visible, uninitialized widget. A nil cfg is replaced by the
// empty variant for t.
func New(id string, t Type, cfg Config) Widget {
	if cfg == nil {
		cfg = NewConfig(t)
	}
	return Widget{
		ID:      id,
		Type:    t,
		Config:  cfg,
		Visible: true,
		State:   StateUninitialized,
	}
}

// Point is a 2D position in dashboard units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height pair in dashboard units.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Transform is a partial geometry update. Nil fields are unchanged.
type Transform struct {
	Position *Point   `json:"position,omitempty"`
	Size     *Size    `json:"size,omitempty"`
	Rotation *float64 `json:"rotation,omitempty"`
}

// IsEmpty reports whether the transform changes nothing.
func (t Transform) IsEmpty() bool {
	return t.Position == nil && t.Size == nil && t.Rotation == nil
}

// merge applies the non-nil fields of u onto t.
func (t Transform) merge(u Transform) Transform {
	if u.Position != nil {
		p := *u.Position
		t.Position = &p
	}
	if u.Size != nil {
		s := *u.Size
		t.Size = &s
	}
	if u.Rotation != nil {
		r := *u.Rotation
		t.Rotation = &r
	}
	return t
}

// Update is the partial state change reported to the host. Keys are
// "value", "text", "visible" and "config".
type Update map[string]any

// Update keys.
const (
	UpdateValue   = "value"
	UpdateText    = "text"
	UpdateVisible = "visible"
	UpdateConfig  = "config"
)

// UpdateFunc receives widget state changes for re-rendering.
type UpdateFunc func(widgetID string, update Update)

// TransformFunc receives widget geometry changes.
type TransformFunc func(widgetID string, t Transform)
