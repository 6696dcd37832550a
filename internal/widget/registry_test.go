package widget

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type updateRecord struct {
	id     string
	update Update
}

func newTestRegistry(t *testing.T) (*Registry, *[]updateRecord) {
	t.Helper()
	var updates []updateRecord
	r := NewRegistry(WithUpdateFunc(func(id string, u Update) {
		updates = append(updates, updateRecord{id: id, update: u})
	}))
	require.NoError(t, r.Add(New("slider1", TypeSlider, nil)))
	require.NoError(t, r.Add(New("label1", TypeLabel, nil)))
	return r, &updates
}

func TestRegistryAdd(t *testing.T) {
	r, _ := newTestRegistry(t)

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []string{"slider1", "label1"}, r.IDs())

	err := r.Add(New("slider1", TypeSlider, nil))
	assert.ErrorIs(t, err, ErrDuplicateWidget)

	err = r.Add(New("", TypeButton, nil))
	assert.ErrorIs(t, err, ErrEmptyID)
}

func TestRegistryRemove(t *testing.T) {
	r, _ := newTestRegistry(t)

	w, ok := r.Remove("slider1")
	require.True(t, ok)
	assert.Equal(t, TypeSlider, w.Type)
	assert.False(t, r.Has("slider1"))
	assert.Equal(t, []string{"label1"}, r.IDs())

	_, ok = r.Remove("slider1")
	assert.False(t, ok)
}

func TestRegistryValueReadsLatestWrite(t *testing.T) {
	r, updates := newTestRegistry(t)

	require.NoError(t, r.SetValue("slider1", 42.0))
	v, err := r.Value("slider1")
	require.NoError(t, err)
	assert.Equal(t, 42.0, v)

	require.Len(t, *updates, 1)
	assert.Equal(t, "slider1", (*updates)[0].id)
	assert.Equal(t, Update{UpdateValue: 42.0}, (*updates)[0].update)
}

func TestRegistryTextAndVisibility(t *testing.T) {
	r, updates := newTestRegistry(t)

	require.NoError(t, r.SetText("label1", "hello"))
	text, err := r.Text("label1")
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	require.NoError(t, r.SetVisible("label1", false))
	w, ok := r.Get("label1")
	require.True(t, ok)
	assert.False(t, w.Visible)

	require.Len(t, *updates, 2)
	assert.Equal(t, Update{UpdateVisible: false}, (*updates)[1].update)
}

func TestRegistryUnknownWidget(t *testing.T) {
	r, updates := newTestRegistry(t)

	assert.ErrorIs(t, r.SetValue("nope", 1), ErrWidgetNotFound)
	assert.ErrorIs(t, r.SetText("nope", "x"), ErrWidgetNotFound)
	assert.ErrorIs(t, r.SetConfig("nope", map[string]any{"a": 1}), ErrWidgetNotFound)
	_, err := r.Value("nope")
	assert.ErrorIs(t, err, ErrWidgetNotFound)
	assert.Empty(t, *updates)
}

func TestRegistrySetConfigMerges(t *testing.T) {
	r, updates := newTestRegistry(t)

	require.NoError(t, r.SetConfig("slider1", map[string]any{"min": 0, "max": 10}))
	require.NoError(t, r.SetConfig("slider1", map[string]any{"max": 20, "color": "red"}))

	cfg, err := r.Config("slider1")
	require.NoError(t, err)
	slider, ok := cfg.(*SliderConfig)
	require.True(t, ok)
	assert.Equal(t, 20.0, slider.Max)
	assert.Equal(t, "red", PropsOf(cfg)["color"])

	require.Len(t, *updates, 2)
	bag, ok := (*updates)[1].update[UpdateConfig].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "red", bag["color"])
}

func TestRegistrySetTransform(t *testing.T) {
	var got []Transform
	r := NewRegistry(WithTransformFunc(func(id string, tr Transform) {
		got = append(got, tr)
	}))
	require.NoError(t, r.Add(New("w1", TypeGauge, nil)))

	rot := 90.0
	require.NoError(t, r.SetTransform("w1", Transform{Position: &Point{X: 1, Y: 2}}))
	require.NoError(t, r.SetTransform("w1", Transform{Rotation: &rot}))
	require.NoError(t, r.SetTransform("w1", Transform{}))

	w, _ := r.Get("w1")
	require.NotNil(t, w.Transform.Position)
	assert.Equal(t, Point{X: 1, Y: 2}, *w.Transform.Position)
	require.NotNil(t, w.Transform.Rotation)
	assert.Equal(t, 90.0, *w.Transform.Rotation)
	assert.Len(t, got, 2)
}

func TestRegistryAdvanceIsMonotonic(t *testing.T) {
	r, _ := newTestRegistry(t)

	assert.True(t, r.Advance("slider1", StateLoaded))
	assert.False(t, r.Advance("slider1", StateLoaded))
	assert.True(t, r.Advance("slider1", StateReady))
	assert.True(t, r.Advance("slider1", StateDestroyed))
	assert.False(t, r.Advance("slider1", StateLoaded))

	state, ok := r.State("slider1")
	require.True(t, ok)
	assert.Equal(t, StateDestroyed, state)

	assert.False(t, r.Advance("missing", StateLoaded))
}

func TestRegistryGetReturnsSnapshot(t *testing.T) {
	r, _ := newTestRegistry(t)

	w, _ := r.Get("slider1")
	w.Value = "mutated"

	v, err := r.Value("slider1")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestRegistryStoreValueIsSilent(t *testing.T) {
	r, updates := newTestRegistry(t)

	require.NoError(t, r.StoreValue("slider1", 3.0))
	v, _ := r.Value("slider1")
	assert.Equal(t, 3.0, v)
	assert.Empty(t, *updates)
}
