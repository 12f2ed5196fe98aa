package lebai

import (
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// recordedRequest is one request seen by fakeDevice.
type recordedRequest struct {
	Method    string
	Path      string
	Query     string
	RequestID string
	Cmd       string
	Body      json.RawMessage // full body for /public/task, data for actions
}

// fakeDevice is an httptest-backed robot controller. Handlers return the
// envelope code and data; unset commands answer {code:0, data:null}.
type fakeDevice struct {
	server *httptest.Server

	mu        sync.Mutex
	requests  []recordedRequest
	actions   map[string]func(data json.RawMessage) (int, any)
	startTask func(body json.RawMessage) (int, any)
	getTask   func(id string) (int, any)
}

func newFakeDevice(t *testing.T) *fakeDevice {
	t.Helper()
	d := &fakeDevice{actions: make(map[string]func(json.RawMessage) (int, any))}
	d.server = httptest.NewServer(http.HandlerFunc(d.serve))
	t.Cleanup(d.server.Close)
	return d
}

func (d *fakeDevice) serve(w http.ResponseWriter, r *http.Request) {
	rec := recordedRequest{
		Method:    r.Method,
		Path:      r.URL.Path,
		Query:     r.URL.RawQuery,
		RequestID: r.Header.Get("X-Request-ID"),
	}

	var code int
	var data any

	switch {
	case r.URL.Path == actionPath && r.Method == http.MethodPost:
		var req struct {
			Cmd  string          `json:"cmd"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rec.Cmd, rec.Body = req.Cmd, req.Data
		d.mu.Lock()
		h := d.actions[req.Cmd]
		d.mu.Unlock()
		if h != nil {
			code, data = h(req.Data)
		}

	case r.URL.Path == taskPath && r.Method == http.MethodPost:
		var body json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rec.Body = body
		d.mu.Lock()
		h := d.startTask
		d.mu.Unlock()
		if h != nil {
			code, data = h(body)
		}

	case r.URL.Path == taskPath && r.Method == http.MethodGet:
		d.mu.Lock()
		h := d.getTask
		d.mu.Unlock()
		if h != nil {
			code, data = h(r.URL.Query().Get("id"))
		}

	default:
		http.NotFound(w, r)
		return
	}

	d.mu.Lock()
	d.requests = append(d.requests, rec)
	d.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"code": code, "data": data})
}

func (d *fakeDevice) handle(cmd string, h func(data json.RawMessage) (int, any)) {
	d.mu.Lock()
	d.actions[cmd] = h
	d.mu.Unlock()
}

func (d *fakeDevice) onStart(h func(body json.RawMessage) (int, any)) {
	d.mu.Lock()
	d.startTask = h
	d.mu.Unlock()
}

func (d *fakeDevice) onGet(h func(id string) (int, any)) {
	d.mu.Lock()
	d.getTask = h
	d.mu.Unlock()
}

// store makes set/get command pairs round-trip the way the controller does.
func (d *fakeDevice) store(setCmd, getCmd string, wrap func(json.RawMessage) any) {
	var mu sync.Mutex
	var last json.RawMessage
	d.handle(setCmd, func(data json.RawMessage) (int, any) {
		mu.Lock()
		last = data
		mu.Unlock()
		return 0, nil
	})
	d.handle(getCmd, func(json.RawMessage) (int, any) {
		mu.Lock()
		defer mu.Unlock()
		return 0, wrap(last)
	})
}

func (d *fakeDevice) recorded() []recordedRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]recordedRequest(nil), d.requests...)
}

func (d *fakeDevice) last() recordedRequest {
	reqs := d.recorded()
	if len(reqs) == 0 {
		return recordedRequest{}
	}
	return reqs[len(reqs)-1]
}

func (d *fakeDevice) addr() string {
	return strings.TrimPrefix(d.server.URL, "http://")
}

func (d *fakeDevice) robot(opts ...Option) *Robot {
	base := []Option{
		WithSettleDelay(0),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	return NewRobot(d.addr(), append(base, opts...)...)
}

// decodeMap unmarshals raw JSON into a generic map for assertions.
func decodeMap(t *testing.T, raw json.RawMessage) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return m
}

// newLogServer starts a TCP listener standing in for the log stream port.
// handle runs once per accepted connection.
func newLogServer(t *testing.T, handle func(conn net.Conn)) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go handle(conn)
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port
}
