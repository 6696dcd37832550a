// Package storage provides the session key/value stores behind the script
// storage module. Values are stored as JSON under a per-session prefix, so a
// store survives script re-execution and is shared by nothing else.
//
// Memory is backed by buntdb (in memory or a data file); Redis by go-redis.
package storage
