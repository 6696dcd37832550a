package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"testing"
	"time"

	"github.com/dshills/dashwire/internal/script/security"
	"github.com/dshills/dashwire/internal/transport"
)

type memPort struct {
	reads  [][]byte
	writes [][]byte
	closed bool
}

func (p *memPort) Write(_ context.Context, data []byte) error {
	p.writes = append(p.writes, append([]byte(nil), data...))
	return nil
}

// Read drains the queued chunks, then reports io.EOF.
func (p *memPort) Read(context.Context) ([]byte, error) {
	if len(p.reads) == 0 {
		return nil, io.EOF
	}
	data := p.reads[0]
	p.reads = p.reads[1:]
	return data, nil
}

func (p *memPort) Close() error {
	p.closed = true
	return nil
}

type memSerial struct {
	port   *memPort
	opened SerialOptions
	onOpen func()
}

func (d *memSerial) Supported() bool { return true }

func (d *memSerial) RequestPort(_ context.Context, filters map[string]any) (PortInfo, error) {
	return PortInfo{ID: "p1", Name: "Arduino", VendorID: fmt.Sprint(filters["vendorId"])}, nil
}

func (d *memSerial) Ports(context.Context) ([]PortInfo, error) {
	return []PortInfo{{ID: "p1"}, {ID: "p2"}}, nil
}

func (d *memSerial) Open(_ context.Context, id string, opts SerialOptions) (SerialPort, error) {
	if id != "p1" {
		return nil, errors.New("no such port")
	}
	d.opened = opts
	if d.onOpen != nil {
		d.onOpen()
	}
	return d.port, nil
}

func TestUSBModule(t *testing.T) {
	h := newFakeHost(t)
	port := &memPort{reads: [][]byte{[]byte("hello"), []byte("a"), []byte("b")}}
	serial := &memSerial{port: port}
	h.register(NewConsoleModule(h), NewUSBModule(h, serial, security.DefaultResourceLimits()))

	h.run(`
		console.log(tostring(usb.isSupported()))
		usb.requestPort({vendorId = "2341"}, function(p, err) console.log(p.id .. " " .. p.vendorId) end)
		usb.getPorts(function(ports) console.log(tostring(#ports)) end)
		usb.connect("p9", function(ok, err) console.log(err) end)
		usb.connect("p1", {baudRate = 115200, parity = "even"}, function(ok, err) console.log(tostring(ok)) end)
		usb.send("p1", "hi", function(n, err) console.log(tostring(n)) end)
		usb.send("p1", {1, 2, 3}, function(n, err) console.log(tostring(n)) end)
		usb.send("p1", {1, 256}, function(n, err) console.log(err) end)
		usb.read("p1", function(data, err) console.log(data) end)
		console.log(tostring(usb.startReading("p1", function(data, err)
			console.log(data or ("end " .. err))
		end)))
		console.log(tostring(usb.stopReading("p1")))
		console.log(tostring(usb.stopReading("p1")))
		console.log(tostring(usb.disconnect("p1")))
		console.log(tostring(usb.disconnect("p1")))
		usb.send("p1", "x", function(n, err) console.log(err) end)
	`)

	want := []string{
		"true",
		"p1 2341",
		"2",
		"no such port",
		"true",
		"2",
		"3",
		"byte 2 out of range",
		"hello",
		"a",
		"b",
		"end EOF",
		"true",
		"true",
		"false",
		"true",
		"false",
		"port not connected: p1",
	}
	if got := h.messages(LevelLog); !reflect.DeepEqual(got, want) {
		t.Errorf("log = %v, want %v", got, want)
	}

	wantOpts := SerialOptions{BaudRate: 115200, DataBits: 8, StopBits: 1, Parity: "even"}
	if serial.opened != wantOpts {
		t.Errorf("opened with %+v, want %+v", serial.opened, wantOpts)
	}
	wantWrites := [][]byte{[]byte("hi"), {1, 2, 3}}
	if !reflect.DeepEqual(port.writes, wantWrites) {
		t.Errorf("writes = %v, want %v", port.writes, wantWrites)
	}
	if !port.closed {
		t.Error("disconnect should close the port")
	}
}

func TestUSBModuleUnsupported(t *testing.T) {
	h := newFakeHost(t)
	h.register(NewConsoleModule(h), NewUSBModule(h, nil, security.DefaultResourceLimits()))

	h.run(`
		console.log(tostring(usb.isSupported()))
		usb.getPorts(function(ports, err) console.log(err) end)
		usb.connect("p1")
		console.log(tostring(usb.startReading("p1", function() end)))
	`)

	want := []string{"false", "usb is not supported on this device", "false"}
	if got := h.messages(LevelLog); !reflect.DeepEqual(got, want) {
		t.Errorf("log = %v, want %v", got, want)
	}
	if got := h.messages(LevelWarn); len(got) != 2 {
		t.Errorf("expected warnings for connect and startReading, got %v", got)
	}
}

func TestUSBModuleCleanupDuringOpen(t *testing.T) {
	h := newFakeHost(t)
	port := &memPort{}
	serial := &memSerial{port: port}
	usb := NewUSBModule(h, serial, security.DefaultResourceLimits())
	serial.onOpen = usb.Cleanup
	h.register(NewConsoleModule(h), usb)

	h.run(`
		usb.connect("p1", function(ok, err) console.log(tostring(ok) .. " " .. err) end)
		usb.send("p1", "x", function(n, err) console.log(err) end)
	`)

	want := []string{"nil port not connected", "port not connected: p1"}
	if got := h.messages(LevelLog); !reflect.DeepEqual(got, want) {
		t.Errorf("log = %v, want %v", got, want)
	}
	if !port.closed {
		t.Error("a port opened for a cleaned up execution must be closed")
	}
}

func TestUSBModuleCleanupClosesPorts(t *testing.T) {
	h := newFakeHost(t)
	port := &memPort{}
	usb := NewUSBModule(h, &memSerial{port: port}, security.DefaultResourceLimits())
	h.register(NewConsoleModule(h), usb)

	h.run(`usb.connect("p1")`)
	usb.Cleanup()

	if !port.closed {
		t.Error("Cleanup should close open ports")
	}
	h.run(`console.log(tostring(usb.disconnect("p1")))`)
	if got := h.messages(LevelLog); !reflect.DeepEqual(got, []string{"false"}) {
		t.Errorf("log = %v", got)
	}
}

type fixedLocation struct{}

func (fixedLocation) Supported() bool { return true }

func (fixedLocation) CurrentPosition(context.Context, map[string]any) (Position, error) {
	alt := 12.0
	return Position{
		Latitude:  51.5,
		Longitude: 0.1,
		Accuracy:  5,
		Altitude:  &alt,
		Timestamp: time.UnixMilli(1000),
	}, nil
}

func (fixedLocation) WatchPosition(_ context.Context, _ map[string]any, emit func(Position, error)) error {
	emit(Position{Latitude: 1, Longitude: 2}, nil)
	emit(Position{}, errors.New("signal lost"))
	return nil
}

func TestLocationModule(t *testing.T) {
	h := newFakeHost(t)
	h.register(NewConsoleModule(h), NewLocationModule(h, fixedLocation{}))

	h.run(`
		console.log(tostring(location.isSupported()))
		location.getCurrentPosition(function(pos, err)
			local c = pos.coords
			console.log(c.latitude .. " " .. c.altitude .. " " .. pos.timestamp .. " " .. tostring(c.speed))
		end)
		local id = location.watchPosition(function(pos, err)
			if err then console.log("error " .. err) else console.log("fix " .. pos.coords.latitude) end
		end)
		console.log(tostring(location.clearWatch(id)))
	`)

	want := []string{"true", "51.5 12 1000 nil", "fix 1", "error signal lost", "true"}
	if got := h.messages(LevelLog); !reflect.DeepEqual(got, want) {
		t.Errorf("log = %v, want %v", got, want)
	}
}

func TestLocationModuleUnsupported(t *testing.T) {
	h := newFakeHost(t)
	h.register(NewConsoleModule(h), NewLocationModule(h, nil))

	h.run(`
		console.log(tostring(location.isSupported()))
		location.getCurrentPosition(function(pos, err) console.log(err) end)
		console.log(tostring(location.watchPosition(function(pos, err) console.log(err) end)))
	`)

	want := []string{
		"false",
		"location is not supported on this device",
		"location is not supported on this device",
		"nil",
	}
	if got := h.messages(LevelLog); !reflect.DeepEqual(got, want) {
		t.Errorf("log = %v, want %v", got, want)
	}
}

type memDevices struct {
	commands []any
}

func (d *memDevices) Devices(context.Context) ([]map[string]any, error) {
	return []map[string]any{{"id": "d1", "name": "lamp"}}, nil
}

func (d *memDevices) DeviceData(_ context.Context, id string) (any, error) {
	if id == "gone" {
		return nil, errors.New("device offline")
	}
	return map[string]any{"temp": 21}, nil
}

func (d *memDevices) SendCommand(_ context.Context, _ string, command any) (any, error) {
	d.commands = append(d.commands, command)
	return "ack", nil
}

func TestDeviceModule(t *testing.T) {
	h := newFakeHost(t)
	devices := &memDevices{}
	h.register(NewConsoleModule(h), NewDeviceModule(h, devices, nil))

	h.run(`
		device.getDevices(function(list, err) console.log(#list .. " " .. list[1].name) end)
		device.getDeviceData("d1", function(data, err) console.log(tostring(data.temp)) end)
		device.getDeviceData("gone", function(data, err) console.log(err) end)
		device.sendCommand("d1", {power = "on"}, function(res, err) console.log(res) end)
	`)

	want := []string{"1 lamp", "21", "device offline", "ack"}
	if got := h.messages(LevelLog); !reflect.DeepEqual(got, want) {
		t.Errorf("log = %v, want %v", got, want)
	}
	wantCmds := []any{map[string]any{"power": "on"}}
	if !reflect.DeepEqual(devices.commands, wantCmds) {
		t.Errorf("commands = %v, want %v", devices.commands, wantCmds)
	}
}

func TestDeviceModuleFallsBackToTransport(t *testing.T) {
	h := newFakeHost(t)
	var sent []string
	sender := transport.SenderFunc(func(_ context.Context, target string, payload []byte) error {
		sent = append(sent, target+" "+string(payload))
		return nil
	})
	h.register(NewConsoleModule(h), NewDeviceModule(h, nil, sender))

	h.run(`
		device.getDevices(function(list, err) console.log(#list .. " " .. err) end)
		device.sendCommand("lamp", {on = true}, function(ok, err) console.log(tostring(ok)) end)
		device.sendCommand("lamp", "42")
		device.sendCommand("lamp", '{"level":3}')
	`)

	want := []string{"0 " + ErrNoDeviceDriver.Error(), "true"}
	if got := h.messages(LevelLog); !reflect.DeepEqual(got, want) {
		t.Errorf("log = %v, want %v", got, want)
	}
	wantSent := []string{`lamp {"on":true}`, `lamp "42"`, `lamp {"level":3}`}
	if !reflect.DeepEqual(sent, wantSent) {
		t.Errorf("sent = %v, want %v", sent, wantSent)
	}
}

func TestDeviceModuleWithoutBackend(t *testing.T) {
	h := newFakeHost(t)
	h.register(NewConsoleModule(h), NewDeviceModule(h, nil, nil))

	h.run(`device.sendCommand("lamp", 1, function(ok, err) console.log(err) end)`)

	if got := h.messages(LevelLog); !reflect.DeepEqual(got, []string{ErrNoDeviceDriver.Error()}) {
		t.Errorf("log = %v", got)
	}
}
