package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
	"golang.org/x/time/rate"

	"github.com/dshills/dashwire/internal/script/security"
)

// HTTPModule implements the http API module.
type HTTPModule struct {
	host    Host
	client  *http.Client
	limiter *rate.Limiter
	limits  security.ResourceLimits
}

// NewHTTPModule creates a new http module. A nil client uses one with the
// configured timeout.
func NewHTTPModule(host Host, client *http.Client, limits security.ResourceLimits) *HTTPModule {
	if client == nil {
		client = &http.Client{Timeout: limits.HTTPTimeout}
	}
	return &HTTPModule{
		host:    host,
		client:  client,
		limiter: limits.HTTPLimiter(),
		limits:  limits,
	}
}

// Name returns the module name.
func (m *HTTPModule) Name() string {
	return "http"
}

// RequiredCapability returns the capability required for this module.
func (m *HTTPModule) RequiredCapability() security.Capability {
	return security.CapabilityHTTP
}

// Register registers the module into the Lua state.
func (m *HTTPModule) Register(L *lua.LState) error {
	mod := L.NewTable()
	setFuncs(L, mod, map[string]lua.LGFunction{
		"get":     m.withoutBody(http.MethodGet),
		"delete":  m.withoutBody(http.MethodDelete),
		"post":    m.withBody(http.MethodPost),
		"put":     m.withBody(http.MethodPut),
		"request": m.request,
	})
	L.SetGlobal("http", mod)
	return nil
}

// request describes one outbound call.
type request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
	Timeout time.Duration
}

// get(url, opts?, cb) and delete(url, opts?, cb)
func (m *HTTPModule) withoutBody(method string) lua.LGFunction {
	return func(L *lua.LState) int {
		cb, nargs := trailingFunc(L)
		req := request{Method: method, URL: L.CheckString(1)}
		if nargs >= 2 {
			applyOptions(&req, optMap(L, 2))
		}
		m.do(cb, req)
		return 0
	}
}

// post(url, body, opts?, cb) and put(url, body, opts?, cb)
func (m *HTTPModule) withBody(method string) lua.LGFunction {
	return func(L *lua.LState) int {
		cb, nargs := trailingFunc(L)
		req := request{Method: method, URL: L.CheckString(1)}
		if nargs >= 2 {
			body, contentType, err := encodeBody(L, L.Get(2))
			if err != nil {
				callback(m.host, cb, "http."+strings.ToLower(method), nil, err)
				return 0
			}
			req.Body = body
			req.Headers = map[string]string{"Content-Type": contentType}
		}
		if nargs >= 3 {
			applyOptions(&req, optMap(L, 3))
		}
		m.do(cb, req)
		return 0
	}
}

// request({method, url, headers, body, timeout}, cb)
func (m *HTTPModule) request(L *lua.LState) int {
	cb, _ := trailingFunc(L)
	tbl := L.CheckTable(1)

	req := request{Method: http.MethodGet}
	if v, ok := tbl.RawGetString("method").(lua.LString); ok {
		req.Method = strings.ToUpper(string(v))
	}
	if v, ok := tbl.RawGetString("url").(lua.LString); ok {
		req.URL = string(v)
	}
	if body := tbl.RawGetString("body"); body != lua.LNil {
		data, contentType, err := encodeBody(L, body)
		if err != nil {
			callback(m.host, cb, "http.request", nil, err)
			return 0
		}
		req.Body = data
		req.Headers = map[string]string{"Content-Type": contentType}
	}
	applyOptions(&req, optMap(L, 1))

	if req.URL == "" {
		callback(m.host, cb, "http.request", nil, fmt.Errorf("url is required"))
		return 0
	}
	m.do(cb, req)
	return 0
}

func (m *HTTPModule) do(cb *lua.LFunction, req request) {
	asyncCall(m.host, cb, "http."+strings.ToLower(req.Method), func(ctx context.Context) (any, error) {
		if err := m.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		if req.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, req.Timeout)
			defer cancel()
		}
		return m.send(ctx, req)
	})
}

func (m *HTTPModule) send(ctx context.Context, req request) (map[string]any, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, err
	}
	for k, v := range req.Headers {
		hreq.Header.Set(k, v)
	}

	resp, err := m.client.Do(hreq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if m.limits.MaxResponseBytes > 0 {
		reader = io.LimitReader(resp.Body, m.limits.MaxResponseBytes)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	headers := make(map[string]any, len(resp.Header))
	for k := range resp.Header {
		headers[strings.ToLower(k)] = resp.Header.Get(k)
	}
	result := map[string]any{
		"status":     resp.StatusCode,
		"statusText": http.StatusText(resp.StatusCode),
		"ok":         resp.StatusCode >= 200 && resp.StatusCode < 300,
		"headers":    headers,
		"body":       string(data),
	}
	if strings.Contains(resp.Header.Get("Content-Type"), "json") && codec.Valid(data) {
		result["json"] = decodeJSON(data)
	}
	return result, nil
}

// applyOptions reads headers and timeout (ms) from an options table.
func applyOptions(req *request, opts map[string]any) {
	if opts == nil {
		return
	}
	if headers, ok := opts["headers"].(map[string]any); ok {
		if req.Headers == nil {
			req.Headers = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			req.Headers[k] = fmt.Sprint(v)
		}
	}
	switch v := opts["timeout"].(type) {
	case int64:
		req.Timeout = time.Duration(v) * time.Millisecond
	case float64:
		req.Timeout = time.Duration(v * float64(time.Millisecond))
	}
}

// encodeBody sends strings verbatim and everything else as JSON.
func encodeBody(L *lua.LState, lv lua.LValue) ([]byte, string, error) {
	if s, ok := lv.(lua.LString); ok {
		return []byte(s), "text/plain; charset=utf-8", nil
	}
	data, err := codec.Marshal(toGo(L, lv))
	if err != nil {
		return nil, "", err
	}
	return data, "application/json", nil
}
