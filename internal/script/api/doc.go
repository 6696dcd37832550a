// Package api provides the Lua modules exposed to dashboard scripts.
//
// Each capability is one Module registering a global table:
//
//   - widget: read and write widget state, listen and emit widget events
//   - ws: send commands, receive inbound messages, open custom sockets
//   - storage: session key/value store
//   - db: external data client
//   - sensor, location, usb, device: façades over host drivers
//   - http: outbound requests
//   - console, context, timers: logging, session info, setTimeout and friends
//
// # Architecture
//
// Modules implement:
//
//	type Module interface {
//	    Name() string
//	    RequiredCapability() security.Capability
//	    Register(L *lua.LState) error
//	}
//
// A Registry injects the modules a PermissionChecker allows. Modules never
// touch the loop directly: timers, watches, asynchronous I/O and listener
// registration go through the Host implemented by the runtime, which owns
// teardown of everything a script created.
//
// # Calling conventions
//
// Functions that perform I/O take a trailing callback function(result, err)
// and return immediately; the callback runs later on the script loop. err is
// nil or a message string. Misuse such as an unknown widget id is reported
// through the console as a warning and never raises a Lua error.
package api
