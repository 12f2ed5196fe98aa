package lebai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-lebai/internal/httpc"
	"github.com/teslashibe/go-lebai/internal/log"
)

// API paths on the robot controller.
const (
	actionPath = "/public/robot/action"
	taskPath   = "/public/task"
)

// maxErrorBody caps how much of a non-2xx body is kept in a TransportError.
const maxErrorBody = 512

// envelope is the response wrapper used by every endpoint.
type envelope struct {
	Code      int             `json:"code"`
	Data      json.RawMessage `json:"data"`
	MsgParams []any           `json:"msg_params,omitempty"`
}

type actionRequest struct {
	Cmd  string `json:"cmd"`
	Data any    `json:"data"`
}

// Robot is a client for one Lebai arm. It is safe for concurrent use,
// but the device executes commands in arrival order and concurrent motion
// commands from several callers interleave on the arm.
type Robot struct {
	addr    string
	baseURL string
	cfg     *Config
	http    *http.Client
	log     *slog.Logger

	host   *IODevice
	flange *IODevice

	extMu     sync.Mutex
	externals map[int]*IODevice
}

// NewRobot creates a client for the robot at addr. addr is an IP or
// host name, optionally with an HTTP port ("192.168.3.218", "sim:8080").
func NewRobot(addr string, opts ...Option) *Robot {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	r := &Robot{
		addr:      addr,
		baseURL:   "http://" + addr,
		cfg:       cfg,
		http:      cfg.HTTPClient,
		log:       cfg.Logger,
		externals: make(map[int]*IODevice),
	}
	if r.http == nil {
		r.http = httpc.Client
	}
	if r.log == nil {
		r.log = log.With("component", "lebai", "robot", addr)
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}

	r.host = &IODevice{robot: r, kind: IOHost, cmds: ioCommandTable[IOHost]}
	r.flange = &IODevice{robot: r, kind: IOFlange, cmds: ioCommandTable[IOFlange]}
	return r
}

// Addr returns the address the robot was created with.
func (r *Robot) Addr() string { return r.addr }

// logStreamAddr is the TCP address of the task log stream.
func (r *Robot) logStreamAddr() string {
	host := r.addr
	if h, _, err := net.SplitHostPort(r.addr); err == nil {
		host = h
	}
	return net.JoinHostPort(host, strconv.Itoa(r.cfg.LogPort))
}

// Action sends one command to the action endpoint and returns the data
// field of a successful response verbatim.
func (r *Robot) Action(ctx context.Context, cmd string, data any) (json.RawMessage, error) {
	return r.do(ctx, http.MethodPost, actionPath, nil, actionRequest{Cmd: cmd, Data: data}, cmd)
}

// ActionSettled is Action followed by the settle delay, for commands whose
// physical effect takes a moment to become observable.
func (r *Robot) ActionSettled(ctx context.Context, cmd string, data any) (json.RawMessage, error) {
	res, err := r.Action(ctx, cmd, data)
	if err != nil {
		return nil, err
	}
	if err := sleep(ctx, r.cfg.SettleDelay); err != nil {
		return res, err
	}
	return res, nil
}

// actionInto runs Action and decodes the data field into out.
func (r *Robot) actionInto(ctx context.Context, cmd string, data any, out any) error {
	raw, err := r.Action(ctx, cmd, data)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("lebai [%s]: decode response data: %w", cmd, err)
	}
	return nil
}

// do performs one request and unwraps the response envelope.
func (r *Robot) do(ctx context.Context, method, path string, query url.Values, body any, op string) (json.RawMessage, error) {
	u := r.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("lebai [%s]: marshal request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("lebai [%s]: create request: %w", op, err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	env, err := r.roundTrip(req)
	elapsed := time.Since(start)

	if err != nil {
		r.cfg.Metrics.observe(op, outcomeTransport, elapsed)
		r.log.Debug("request failed", "op", op, "request_id", reqID, "error", err)
		return nil, err
	}
	if env.Code != 0 {
		r.cfg.Metrics.observe(op, outcomeDevice, elapsed)
		r.log.Warn("device rejected request", "op", op, "request_id", reqID, "code", env.Code)
		return nil, &Error{Code: env.Code, Params: env.MsgParams, Data: env.Data, Op: op}
	}

	r.cfg.Metrics.observe(op, outcomeOK, elapsed)
	r.log.Debug("request ok", "op", op, "request_id", reqID, "latency", elapsed)
	return env.Data, nil
}

func (r *Robot) roundTrip(req *http.Request) (*envelope, error) {
	fail := func(status int, err error) error {
		return &TransportError{Method: req.Method, URL: req.URL.String(), StatusCode: status, Err: err}
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fail(0, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fail(resp.StatusCode, fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return nil, fail(resp.StatusCode, fmt.Errorf("unexpected status: %s", bytes.TrimSpace(data)))
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fail(resp.StatusCode, fmt.Errorf("decode envelope: %w", err))
	}
	return &env, nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
