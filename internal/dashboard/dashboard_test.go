package dashboard

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/dashwire/internal/widget"
)

const yamlDef = `
id: greenhouse
name: Greenhouse
scriptFile: greenhouse.lua
widgets:
  - id: fan
    type: switch
    value: false
    config:
      targetId: fan-relay
  - id: temp
    type: label
    text: "--"
    hidden: true
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFileYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "greenhouse.lua", `console.log("hi")`)
	path := writeFile(t, dir, "greenhouse.yaml", yamlDef)

	def, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "greenhouse", def.ID)
	assert.Equal(t, `console.log("hi")`, def.Script)
	assert.Equal(t, filepath.Join(dir, "greenhouse.lua"), def.ScriptPath())

	widgets, err := def.Build()
	require.NoError(t, err)
	require.Len(t, widgets, 2)

	assert.Equal(t, widget.TypeSwitch, widgets[0].Type)
	assert.Equal(t, false, widgets[0].Value)
	assert.Equal(t, "fan-relay", widget.TargetOf(widgets[0].Config))
	assert.True(t, widgets[0].Visible)

	assert.Equal(t, "--", widgets[1].Text)
	assert.False(t, widgets[1].Visible)
}

func TestLoadFileJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "d.json", `{
		"id": "d1",
		"script": "x = 1",
		"widgets": [{"id": "s", "type": "slider", "value": 10}]
	}`)

	def, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x = 1", def.Script)

	widgets, err := def.Build()
	require.NoError(t, err)
	assert.EqualValues(t, 10, widgets[0].Value)
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(writeFile(t, dir, "d.txt", "id: x"))
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = LoadFile(writeFile(t, dir, "missing-script.yaml", "id: x\nscriptFile: nope.lua\n"))
	assert.Error(t, err)

	_, err = LoadFile(writeFile(t, dir, "broken.json", "{"))
	assert.Error(t, err)
}

func TestBuildValidation(t *testing.T) {
	tests := []struct {
		name string
		def  Definition
		want error
	}{
		{"missing id", Definition{Widgets: []WidgetSpec{{Type: "button"}}}, widget.ErrEmptyID},
		{"missing type", Definition{Widgets: []WidgetSpec{{ID: "a"}}}, ErrNoWidgetType},
		{"duplicate", Definition{Widgets: []WidgetSpec{{ID: "a", Type: "label"}, {ID: "a", Type: "label"}}}, widget.ErrDuplicateWidget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.def.Build()
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestWatcherReloadsOnScriptChange(t *testing.T) {
	dir := t.TempDir()
	scriptPath := writeFile(t, dir, "greenhouse.lua", `console.log("v1")`)
	path := writeFile(t, dir, "greenhouse.yaml", yamlDef)

	var (
		mu      sync.Mutex
		scripts []string
	)
	w, err := NewWatcher(path, func(def *Definition, err error) {
		if err != nil {
			return
		}
		mu.Lock()
		scripts = append(scripts, def.Script)
		mu.Unlock()
	}, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	defer w.Close()

	assert.Len(t, w.Files(), 2)

	require.NoError(t, os.WriteFile(scriptPath, []byte(`console.log("v2")`), 0o600))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(scripts) > 0 && scripts[len(scripts)-1] == `console.log("v2")`
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "greenhouse.lua", `x = 1`)
	path := writeFile(t, dir, "greenhouse.yaml", yamlDef)

	calls := make(chan struct{}, 10)
	w, err := NewWatcher(path, func(*Definition, error) { calls <- struct{}{} }, WithDebounce(10*time.Millisecond))
	require.NoError(t, err)

	writeFile(t, dir, "notes.txt", "unrelated")
	select {
	case <-calls:
		t.Fatal("unexpected reload")
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}
