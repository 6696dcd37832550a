package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/dshills/dashwire/internal/datasource"
	"github.com/dshills/dashwire/internal/script/security"
	"github.com/dshills/dashwire/internal/transport"
	"github.com/dshills/dashwire/internal/widget"
)

func TestRegistryRejectsDuplicates(t *testing.T) {
	h := newFakeHost(t)
	r := NewRegistry()
	if err := r.Register(NewConsoleModule(h)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(NewConsoleModule(h)); err == nil {
		t.Error("duplicate Register should fail")
	}
}

func TestInjectAllFiltersByCapability(t *testing.T) {
	h := newFakeHost(t)
	r, err := NewStandardRegistry(h, widget.NewRegistry(), Providers{Limits: security.DefaultResourceLimits()})
	if err != nil {
		t.Fatalf("NewStandardRegistry failed: %v", err)
	}

	checker := security.NewPermissionChecker("test")
	checker.Grant(security.CapabilityWidget)

	injected, err := r.InjectAll(h.L, checker)
	if err != nil {
		t.Fatalf("InjectAll failed: %v", err)
	}
	want := []string{"console", "context", "timers", "widget"}
	if !reflect.DeepEqual(injected, want) {
		t.Errorf("injected = %v, want %v", injected, want)
	}
	if h.L.GetGlobal("storage").Type().String() != "nil" {
		t.Error("storage should not be injected without the storage capability")
	}
}

func TestWidgetModule(t *testing.T) {
	h := newFakeHost(t)
	var updates []widget.Update
	reg := widget.NewRegistry(widget.WithUpdateFunc(func(_ string, u widget.Update) {
		updates = append(updates, u)
	}))
	if err := reg.Add(widget.New("s1", widget.TypeSlider, nil)); err != nil {
		t.Fatal(err)
	}
	h.register(NewConsoleModule(h), NewWidgetModule(h, reg))

	h.run(`
		assert(widget.setValue("s1", 42))
		console.log(tostring(widget.getValue("s1")))
		widget.setText("s1", "hello")
		console.log(widget.getText("s1"))
		widget.hide("s1")
		local w = widget.get("s1")
		console.log(w.type .. " " .. tostring(w.visible))
		console.log(tostring(widget.setValue("missing", 1)))
	`)

	want := []string{"42", "hello", "slider false", "false"}
	if got := h.messages(LevelLog); !reflect.DeepEqual(got, want) {
		t.Errorf("log = %v, want %v", got, want)
	}
	if len(updates) != 3 {
		t.Errorf("updates = %d, want 3", len(updates))
	}
	if len(h.messages(LevelWarn)) != 1 {
		t.Errorf("expected one warning for the missing widget, got %v", h.logs)
	}
}

func TestWidgetOnAndEmit(t *testing.T) {
	h := newFakeHost(t)
	reg := widget.NewRegistry()
	h.register(NewConsoleModule(h), NewWidgetModule(h, reg))

	h.run(`
		local off = widget.on("b1", "press", function(v) console.log("first " .. tostring(v)) end)
		widget.on("b1", "press", function(v) console.log("second " .. tostring(v)) end)
		widget.emit("b1", "press", 1)
		off()
		widget.emit("b1", "press", 2)
	`)

	want := []string{"first 1", "second 1", "second 2"}
	if got := h.messages(LevelLog); !reflect.DeepEqual(got, want) {
		t.Errorf("log = %v, want %v", got, want)
	}
}

type mapStore map[string]any

func (m mapStore) Get(_ context.Context, key string) (any, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m mapStore) Set(_ context.Context, key string, value any) error {
	m[key] = value
	return nil
}

func (m mapStore) Delete(_ context.Context, key string) error {
	delete(m, key)
	return nil
}

func (m mapStore) Clear(context.Context) error {
	for k := range m {
		delete(m, k)
	}
	return nil
}

func TestStorageModule(t *testing.T) {
	h := newFakeHost(t)
	store := mapStore{}
	h.register(NewConsoleModule(h), NewStorageModule(h, store))

	h.run(`
		storage.set("count", 3)
		console.log(tostring(storage.get("count")))
		console.log(storage.get("missing", "fallback"))
		storage.remove("count")
		console.log(tostring(storage.get("count")))
		storage.set("a", {x = 1})
		storage.clear()
	`)

	want := []string{"3", "fallback", "nil"}
	if got := h.messages(LevelLog); !reflect.DeepEqual(got, want) {
		t.Errorf("log = %v, want %v", got, want)
	}
	if len(store) != 0 {
		t.Errorf("store not cleared: %v", store)
	}
}

func TestStorageModuleWithoutStore(t *testing.T) {
	h := newFakeHost(t)
	h.register(NewConsoleModule(h), NewStorageModule(h, nil))

	h.run(`console.log(tostring(storage.set("k", 1)) .. " " .. storage.get("k", "d"))`)

	if got := h.messages(LevelLog); !reflect.DeepEqual(got, []string{"false d"}) {
		t.Errorf("log = %v", got)
	}
	if len(h.messages(LevelWarn)) != 2 {
		t.Errorf("expected two warnings, got %v", h.logs)
	}
}

type fakeSensors struct{}

func (fakeSensors) Supported(kind string) bool { return kind == "accelerometer" }

func (fakeSensors) Read(_ context.Context, kind string, _ map[string]any) (any, error) {
	return map[string]any{"x": 1.5, "kind": kind}, nil
}

func (fakeSensors) Watch(_ context.Context, _ string, _ map[string]any, emit func(any, error)) error {
	emit(map[string]any{"x": 2}, nil)
	return nil
}

func TestSensorModule(t *testing.T) {
	h := newFakeHost(t)
	h.register(NewConsoleModule(h), NewSensorModule(h, fakeSensors{}, Platform{OS: "linux"}))

	h.run(`
		console.log(tostring(sensor.accelerometer.isSupported()))
		console.log(tostring(sensor.gyroscope.isSupported()))
		console.log(tostring(sensor.proximity.isSupported()))
		console.log(tostring(sensor.isSupported("lidar")))
		sensor.accelerometer.read(function(r, err) console.log(r.kind .. " " .. r.x) end)
		local id = sensor.accelerometer.watch(function(r) console.log("watch " .. r.x) end)
		console.log(tostring(id ~= nil))
		sensor.barometer.read(function(r, err) console.log(err) end)
		console.log(sensor.platform)
	`)

	want := []string{
		"true", "false", "false", "false",
		"accelerometer 1.5",
		"watch 2",
		"true",
		"barometer is not supported on this device",
		"linux",
	}
	if got := h.messages(LevelLog); !reflect.DeepEqual(got, want) {
		t.Errorf("log = %v, want %v", got, want)
	}
}

type fakeData struct {
	table   string
	filters map[string]any
	opts    datasource.QueryOptions
}

func (f *fakeData) Query(_ context.Context, table string, filters map[string]any, opts datasource.QueryOptions) ([]map[string]any, error) {
	f.table, f.filters, f.opts = table, filters, opts
	return []map[string]any{{"id": 1, "name": "a"}, {"id": 2, "name": "b"}}, nil
}

func (f *fakeData) Insert(_ context.Context, table string, data map[string]any) (map[string]any, error) {
	if table == "bad" {
		return nil, errors.New("no such table")
	}
	out := map[string]any{"id": 9}
	for k, v := range data {
		out[k] = v
	}
	return out, nil
}

func TestDBModule(t *testing.T) {
	h := newFakeHost(t)
	data := &fakeData{}
	h.register(NewConsoleModule(h), NewDBModule(h, data))

	h.run(`
		db.query("items", {name = "a"}, {orderBy = "id", ascending = false, limit = 5}, function(rows, err)
			console.log(#rows .. " " .. rows[2].name)
		end)
		db.insert("items", {name = "c"}, function(row, err) console.log(row.id .. " " .. row.name) end)
		db.insert("bad", {name = "c"}, function(row, err) console.log(err) end)
		db.insert("bad", {name = "c"})
	`)

	want := []string{"2 b", "9 c", "no such table"}
	if got := h.messages(LevelLog); !reflect.DeepEqual(got, want) {
		t.Errorf("log = %v, want %v", got, want)
	}
	if data.table != "items" || data.filters["name"] != "a" {
		t.Errorf("query args = %q %v", data.table, data.filters)
	}
	if data.opts.OrderBy != "id" || !data.opts.Descending || data.opts.Limit != 5 {
		t.Errorf("query options = %+v", data.opts)
	}
	if len(h.messages(LevelWarn)) != 1 {
		t.Errorf("expected a warning for the failed insert without callback, got %v", h.logs)
	}
}

func TestDBModuleWithoutClient(t *testing.T) {
	h := newFakeHost(t)
	h.register(NewConsoleModule(h), NewDBModule(h, nil))

	h.run(`db.query("items", function(rows, err) console.log(err) end)`)

	if got := h.messages(LevelLog); len(got) != 1 || got[0] != ErrNoDataClient.Error() {
		t.Errorf("log = %v", got)
	}
}

func TestHTTPModule(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
		}
		_, _ = w.Write([]byte(`{"method":"` + r.Method + `","type":"` + r.Header.Get("Content-Type") + `"}`))
	}))
	defer srv.Close()

	h := newFakeHost(t)
	h.register(NewConsoleModule(h), NewHTTPModule(h, srv.Client(), security.DefaultResourceLimits()))
	h.L.SetGlobal("URL", h.bridge.ToLuaValue(srv.URL))

	h.run(`
		http.get(URL, function(res, err)
			console.log(res.status .. " " .. tostring(res.ok) .. " " .. res.json.method)
		end)
		http.post(URL, {a = 1}, function(res, err)
			console.log(res.status .. " " .. res.json.type)
		end)
		http.request({method = "put", url = URL, body = "raw"}, function(res, err)
			console.log(res.json.method .. " " .. res.json.type:sub(1, 10))
		end)
		http.request({}, function(res, err) console.log(err) end)
	`)

	want := []string{
		"200 true GET",
		"201 application/json",
		"PUT text/plain",
		"url is required",
	}
	if got := h.messages(LevelLog); !reflect.DeepEqual(got, want) {
		t.Errorf("log = %v, want %v", got, want)
	}
}

func TestWSModuleSendAndDeliver(t *testing.T) {
	h := newFakeHost(t)
	type sent struct {
		target  string
		payload string
	}
	var out []sent
	sender := transport.SenderFunc(func(_ context.Context, target string, payload []byte) error {
		if target == "down" {
			return errors.New("unreachable")
		}
		out = append(out, sent{target, string(payload)})
		return nil
	})
	ws := NewWSModule(h, sender, nil)
	h.register(NewConsoleModule(h), ws)

	h.run(`
		console.log(tostring(ws.send("lamp", {on = true})))
		console.log(tostring(ws.send("lamp", '{"raw":1}')))
		console.log(tostring(ws.send("down", "x")))
		ws.onMessage(function(payload, topic) console.log(topic .. " " .. payload.level) end)
	`)
	ws.Deliver(transport.Message{Topic: "status", Payload: []byte(`{"level":3}`)})
	ws.Cleanup()
	ws.Deliver(transport.Message{Topic: "status", Payload: []byte(`{"level":4}`)})

	want := []string{"true", "true", "false", "status 3"}
	if got := h.messages(LevelLog); !reflect.DeepEqual(got, want) {
		t.Errorf("log = %v, want %v", got, want)
	}
	wantSent := []sent{{"lamp", `{"on":true}`}, {"lamp", `{"raw":1}`}}
	if !reflect.DeepEqual(out, wantSent) {
		t.Errorf("sent = %v, want %v", out, wantSent)
	}
}

func TestWSModuleSendEncodesPlainStrings(t *testing.T) {
	h := newFakeHost(t)
	var out []string
	sender := transport.SenderFunc(func(_ context.Context, _ string, payload []byte) error {
		out = append(out, string(payload))
		return nil
	})
	h.register(NewWSModule(h, sender, nil))

	h.run(`
		ws.send("t", "42")
		ws.send("t", "true")
		ws.send("t", "hello")
		ws.send("t", ' [1, 2]')
		ws.send("t", "{broken")
	`)

	want := []string{`"42"`, `"true"`, `"hello"`, ` [1, 2]`, `"{broken"`}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("sent = %v, want %v", out, want)
	}
}

func TestTimerModule(t *testing.T) {
	h := newFakeHost(t)
	h.register(NewConsoleModule(h), NewTimerModule(h))

	h.run(`
		local id = setTimeout(function() end, 100)
		console.log(tostring(clearTimeout(id)))
		console.log(tostring(clearTimeout(id)))
	`)

	if got := h.messages(LevelLog); !reflect.DeepEqual(got, []string{"true", "false"}) {
		t.Errorf("log = %v", got)
	}
}

func TestContextModule(t *testing.T) {
	h := newFakeHost(t)
	h.register(NewConsoleModule(h), NewContextModule(SessionInfo{
		User:        map[string]any{"name": "ada"},
		DashboardID: "d1",
	}))

	h.run(`console.log(context.dashboardId .. " " .. context.user.name)`)

	if got := h.messages(LevelLog); !reflect.DeepEqual(got, []string{"d1 ada"}) {
		t.Errorf("log = %v", got)
	}
}

func TestConsoleLevels(t *testing.T) {
	h := newFakeHost(t)
	h.register(NewConsoleModule(h))

	h.run(`
		console.info("i")
		console.warn("w", 1)
		console.error("e")
		console.debug("d")
	`)

	for level, want := range map[string]string{LevelInfo: "i", LevelWarn: "w", LevelError: "e", LevelDebug: "d"} {
		if got := h.messages(level); len(got) != 1 || got[0] != want {
			t.Errorf("%s messages = %v", level, got)
		}
	}
}
