// Package config holds the explicit session configuration for dashwire.
//
// Settings are layered, lowest priority first:
//
//	built-in defaults
//	TOML file (-config)
//	DASHWIRE_* environment variables
//
// The merged result is decoded into Config and validated. A Config is
// threaded through app.NewSession; nothing reads settings from globals.
package config
