package api

import (
	"context"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	lua "github.com/yuin/gopher-lua"

	slua "github.com/dshills/dashwire/internal/script/lua"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// trailingFunc returns the last argument when it is a function, along with
// the number of arguments before it.
func trailingFunc(L *lua.LState) (*lua.LFunction, int) {
	n := L.GetTop()
	if n == 0 {
		return nil, 0
	}
	if fn, ok := L.Get(n).(*lua.LFunction); ok {
		return fn, n - 1
	}
	return nil, n
}

// optMap converts argument n to a map when it is a table.
func optMap(L *lua.LState, n int) map[string]any {
	if n > L.GetTop() {
		return nil
	}
	return slua.NewBridge(L).ToGoMap(L.Get(n))
}

// toGo converts a Lua value to Go.
func toGo(L *lua.LState, lv lua.LValue) any {
	return slua.NewBridge(L).ToGoValue(lv)
}

// toLua converts a Go value to Lua.
func toLua(L *lua.LState, v any) lua.LValue {
	return slua.NewBridge(L).ToLuaValue(v)
}

// encodeJSON renders a Lua value as JSON. Strings holding a JSON object or
// array are sent as-is; any other string is encoded as a JSON string.
func encodeJSON(L *lua.LState, lv lua.LValue) ([]byte, error) {
	if s, ok := lv.(lua.LString); ok && isRawJSON(string(s)) {
		return []byte(s), nil
	}
	return codec.Marshal(toGo(L, lv))
}

func isRawJSON(s string) bool {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || (trimmed[0] != '{' && trimmed[0] != '[') {
		return false
	}
	return codec.Valid([]byte(trimmed))
}

// decodeJSON parses data, falling back to the raw string.
func decodeJSON(data []byte) any {
	var v any
	if err := codec.Unmarshal(data, &v); err != nil {
		return string(data)
	}
	return v
}

func errValue(err error) any {
	if err == nil {
		return nil
	}
	return err.Error()
}

func warnf(h Host, format string, args ...any) {
	h.Log(LevelWarn, fmt.Sprintf(format, args...), nil)
}

// callback reports result to cb, or warns when there is no callback and the
// call failed.
func callback(h Host, cb *lua.LFunction, what string, result any, err error) {
	if cb != nil {
		h.Invoke(cb, result, errValue(err))
		return
	}
	if err != nil {
		warnf(h, "%s: %v", what, err)
	}
}

// asyncCall runs work and reports to cb. With no callback, failures are
// logged as warnings.
func asyncCall(h Host, cb *lua.LFunction, what string, work func(ctx context.Context) (any, error)) {
	if cb != nil {
		h.Async(cb, work)
		return
	}
	h.Async(nil, func(ctx context.Context) (any, error) {
		v, err := work(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", what, err)
		}
		return v, nil
	})
}

func setFuncs(L *lua.LState, tbl *lua.LTable, funcs map[string]lua.LGFunction) {
	for name, fn := range funcs {
		L.SetField(tbl, name, L.NewFunction(fn))
	}
}
