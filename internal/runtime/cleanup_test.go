package runtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/dashwire/internal/script/api"
	"github.com/dshills/dashwire/internal/transport"
	"github.com/dshills/dashwire/internal/widget"
)

// gate lets a test hold a driver call until the execution has moved on.
type gate struct {
	startOnce sync.Once
	started   chan struct{}
	release   chan struct{}
}

func newGate() *gate {
	return &gate{started: make(chan struct{}), release: make(chan struct{})}
}

func (g *gate) enter() {
	g.startOnce.Do(func() { close(g.started) })
}

func (g *gate) waitStarted(t *testing.T) {
	t.Helper()
	select {
	case <-g.started:
	case <-time.After(time.Second):
		t.Fatal("driver was never called")
	}
}

type gatedSensors struct {
	*gate
	mu      sync.Mutex
	emit    func(any, error)
	stopped chan struct{}
}

func (d *gatedSensors) Supported(string) bool { return true }

func (d *gatedSensors) Read(context.Context, string, map[string]any) (any, error) {
	d.enter()
	<-d.release
	return map[string]any{"x": 9}, nil
}

func (d *gatedSensors) Watch(ctx context.Context, _ string, _ map[string]any, emit func(any, error)) error {
	d.mu.Lock()
	d.emit = emit
	d.mu.Unlock()
	d.enter()
	<-ctx.Done()
	close(d.stopped)
	return nil
}

func (d *gatedSensors) send(v any) {
	d.mu.Lock()
	emit := d.emit
	d.mu.Unlock()
	emit(v, nil)
}

func TestCleanupDropsPendingAsyncCallback(t *testing.T) {
	sensors := &gatedSensors{gate: newGate()}
	rt, rec := newRuntime(t, func(o *Options) { o.Providers.Sensors = sensors })
	ctx := context.Background()

	require.NoError(t, rt.Execute(ctx, `
		sensor.accelerometer.read(function(r) widget.setValue("w1", r.x) end)
	`))
	sensors.waitStarted(t)
	require.NoError(t, rt.Cleanup(ctx))
	close(sensors.release)

	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, rec.updateCount())
	v, err := rt.Widgets().Value("w1")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestCleanupStopsWatch(t *testing.T) {
	sensors := &gatedSensors{gate: newGate(), stopped: make(chan struct{})}
	rt, rec := newRuntime(t, func(o *Options) { o.Providers.Sensors = sensors })
	ctx := context.Background()

	require.NoError(t, rt.Execute(ctx, `
		sensor.gyroscope.watch(function(r) widget.setValue("w1", r) end)
	`))
	sensors.waitStarted(t)

	sensors.send(1)
	require.Eventually(t, func() bool { return rec.updateCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, rt.Cleanup(ctx))
	select {
	case <-sensors.stopped:
	case <-time.After(time.Second):
		t.Fatal("watch still running after cleanup")
	}

	sensors.send(2)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, rec.updateCount())
	v, err := rt.Widgets().Value("w1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, v)
}

type fakeConn struct {
	receiving chan struct{}
	once      sync.Once

	mu     sync.Mutex
	closed bool
}

func (c *fakeConn) Receive(context.Context) (<-chan transport.Message, error) {
	c.once.Do(func() { close(c.receiving) })
	return make(chan transport.Message), nil
}

func (c *fakeConn) WriteRaw(context.Context, []byte) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func TestCleanupClosesCustomSockets(t *testing.T) {
	conn := &fakeConn{receiving: make(chan struct{})}
	var dialed []string
	rt, _ := newRuntime(t, func(o *Options) {
		o.Providers.Dial = func(_ context.Context, url string) (api.Conn, error) {
			dialed = append(dialed, url)
			return conn, nil
		}
	})
	ctx := context.Background()

	require.NoError(t, rt.Execute(ctx, `
		assert(ws.connect("ws://feed", function(msg) end))
	`))
	select {
	case <-conn.receiving:
	case <-time.After(time.Second):
		t.Fatal("socket never opened")
	}
	assert.False(t, conn.isClosed())

	require.NoError(t, rt.Cleanup(ctx))
	assert.True(t, conn.isClosed())
	assert.Equal(t, []string{"ws://feed"}, dialed)
}

type fakePort struct {
	mu     sync.Mutex
	closed bool
}

func (p *fakePort) Write(context.Context, []byte) error { return nil }

func (p *fakePort) Read(ctx context.Context) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePort) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

type gatedSerial struct {
	*gate
	port *fakePort
}

func (d *gatedSerial) Supported() bool { return true }

func (d *gatedSerial) RequestPort(context.Context, map[string]any) (api.PortInfo, error) {
	return api.PortInfo{ID: "p1"}, nil
}

func (d *gatedSerial) Ports(context.Context) ([]api.PortInfo, error) { return nil, nil }

func (d *gatedSerial) Open(context.Context, string, api.SerialOptions) (api.SerialPort, error) {
	d.enter()
	<-d.release
	return d.port, nil
}

func TestCleanupClosesPortOpenedLate(t *testing.T) {
	serial := &gatedSerial{gate: newGate(), port: &fakePort{}}
	rt, rec := newRuntime(t, func(o *Options) { o.Providers.Serial = serial })
	ctx := context.Background()

	require.NoError(t, rt.Execute(ctx, `
		usb.connect("p1", function(ok, err) widget.setValue("w1", ok) end)
	`))
	serial.waitStarted(t)
	require.NoError(t, rt.Cleanup(ctx))
	close(serial.release)

	require.Eventually(t, serial.port.isClosed, time.Second, 5*time.Millisecond)
	assert.Zero(t, rec.updateCount())

	// The next execution cannot reach the stale port.
	require.NoError(t, rt.Execute(ctx, `
		usb.send("p1", "x", function(n, err) console.log(err) end)
	`))
	assert.Equal(t, []string{"port not connected: p1"}, rec.messages("log"))
}

func TestCloseFiresDestroyForLiveWidgets(t *testing.T) {
	rt, rec := newRuntime(t, nil)

	require.NoError(t, rt.Execute(context.Background(), `
		for _, id in ipairs(widget.list()) do
			widget.on(id, "destroy", function() console.log("destroy " .. id) end)
		end
	`))
	require.NoError(t, rt.Close())
	require.NoError(t, rt.Close())

	assert.Equal(t, []string{"destroy w1", "destroy w2"}, rec.messages("log"))
	for _, id := range []string{"w1", "w2"} {
		state, ok := rt.Widgets().State(id)
		require.True(t, ok)
		assert.Equal(t, widget.StateDestroyed, state)
	}
}

func TestCloseWithoutExecutionSkipsDestroy(t *testing.T) {
	rt, rec := newRuntime(t, nil)

	require.NoError(t, rt.Close())

	assert.Empty(t, rec.messages("log"))
	state, ok := rt.Widgets().State("w1")
	require.True(t, ok)
	assert.NotEqual(t, widget.StateDestroyed, state)
}
