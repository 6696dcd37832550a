package api

import (
	"context"
	"time"

	"github.com/dshills/dashwire/internal/datasource"
	"github.com/dshills/dashwire/internal/transport"
)

// Storage is the session key/value store behind storage.*.
type Storage interface {
	Get(ctx context.Context, key string) (any, bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// DataClient is the external data client behind db.*.
type DataClient interface {
	Query(ctx context.Context, table string, filters map[string]any, opts datasource.QueryOptions) ([]map[string]any, error)
	Insert(ctx context.Context, table string, data map[string]any) (map[string]any, error)
}

// SensorDriver reads device sensors. kind is one of the sensor names such as
// "accelerometer" or "ambientLight".
type SensorDriver interface {
	Supported(kind string) bool
	Read(ctx context.Context, kind string, opts map[string]any) (any, error)

	// Watch emits readings until ctx is done.
	Watch(ctx context.Context, kind string, opts map[string]any, emit func(any, error)) error
}

// Position is one location fix.
type Position struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
	Altitude  *float64
	Heading   *float64
	Speed     *float64
	Timestamp time.Time
}

// LocationDriver provides device positions.
type LocationDriver interface {
	Supported() bool
	CurrentPosition(ctx context.Context, opts map[string]any) (Position, error)

	// WatchPosition emits fixes until ctx is done.
	WatchPosition(ctx context.Context, opts map[string]any, emit func(Position, error)) error
}

// PortInfo describes a serial port.
type PortInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	VendorID  string `json:"vendorId"`
	ProductID string `json:"productId"`
}

// SerialOptions configures an opened port.
type SerialOptions struct {
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
}

// SerialPort is an open serial connection.
type SerialPort interface {
	Write(ctx context.Context, data []byte) error
	Read(ctx context.Context) ([]byte, error)
	Close() error
}

// SerialDriver enumerates and opens USB serial ports.
type SerialDriver interface {
	Supported() bool
	RequestPort(ctx context.Context, filters map[string]any) (PortInfo, error)
	Ports(ctx context.Context) ([]PortInfo, error)
	Open(ctx context.Context, portID string, opts SerialOptions) (SerialPort, error)
}

// DeviceDriver talks to remote devices.
type DeviceDriver interface {
	Devices(ctx context.Context) ([]map[string]any, error)
	DeviceData(ctx context.Context, deviceID string) (any, error)
	SendCommand(ctx context.Context, deviceID string, command any) (any, error)
}

// Conn is a custom socket opened by ws.connect.
type Conn interface {
	transport.Receiver
	WriteRaw(ctx context.Context, data []byte) error
	Close() error
}

// DialFunc opens a custom socket.
type DialFunc func(ctx context.Context, url string) (Conn, error)

// DialWebSocket is the default DialFunc.
func DialWebSocket(ctx context.Context, url string) (Conn, error) {
	ws, err := transport.DialWebSocket(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return ws, nil
}

// SessionInfo is exposed to scripts as the context global.
type SessionInfo struct {
	User        map[string]any
	Device      map[string]any
	DashboardID string
}

// Platform is exposed as sensor platform flags.
type Platform struct {
	OS     string
	Native bool
	Mobile bool
}
