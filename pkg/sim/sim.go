// Package sim provides an in-process Lebai controller for tests, demos and
// development without an arm. It serves the action and task endpoints over
// HTTP and task logs over TCP, with the same envelopes as the device.
package sim

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-lebai/internal/log"
	"github.com/teslashibe/go-lebai/pkg/lebai"
)

// Default simulator timings.
const (
	DefaultTaskDuration = 2 * time.Second
	DefaultLogInterval  = 200 * time.Millisecond
)

// Device error codes returned in the envelope.
const (
	CodeUnknownCommand = 404
	CodeBadRequest     = 400
	CodeNotReady       = 2001
	CodeTaskBusy       = 3001
	CodeNoSuchTask     = 3004
)

// Config holds simulator configuration.
type Config struct {
	TaskDuration time.Duration // run time of one loop of a scene
	LogInterval  time.Duration // period of task log lines
	Logger       *slog.Logger
}

// Option is a functional option for configuring a Simulator.
type Option func(*Config)

// WithTaskDuration sets how long one loop of a task runs.
func WithTaskDuration(d time.Duration) Option {
	return func(c *Config) { c.TaskDuration = d }
}

// WithLogInterval sets the period of task log lines.
func WithLogInterval(d time.Duration) Option {
	return func(c *Config) { c.LogInterval = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns the default simulator configuration.
func DefaultConfig() *Config {
	return &Config{
		TaskDuration: DefaultTaskDuration,
		LogInterval:  DefaultLogInterval,
	}
}

// deviceError is a non-zero envelope code.
type deviceError struct {
	code   int
	params []any
}

func (e *deviceError) Error() string { return "device error" }

func fail(code int, params ...any) error {
	return &deviceError{code: code, params: params}
}

type handlerFunc func(data json.RawMessage) (any, error)

// Simulator is a fake robot controller. It is safe for concurrent use.
type Simulator struct {
	cfg *Config
	log *slog.Logger
	app *fiber.App

	actions map[string]handlerFunc

	mu    sync.Mutex
	arm   armState
	tasks taskTable
}

// New creates a simulator with the arm powered off.
func New(opts ...Option) *Simulator {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	s := &Simulator{
		cfg:   cfg,
		log:   cfg.Logger,
		arm:   newArmState(),
		tasks: newTaskTable(),
	}
	if s.log == nil {
		s.log = log.With("component", "sim")
	}
	s.actions = s.actionTable()

	app := fiber.New(fiber.Config{
		AppName:               "Lebai Simulator",
		DisableStartupMessage: true,
	})
	app.Post("/public/robot/action", s.handleAction)
	app.Post("/public/task", s.handleStartTask)
	app.Get("/public/task", s.handleGetTask)
	s.app = app

	return s
}

// App returns the fiber app serving the HTTP API.
func (s *Simulator) App() *fiber.App { return s.app }

// Listen serves the HTTP API on httpLn and the log stream on logLn until
// ctx is done.
func (s *Simulator) Listen(ctx context.Context, httpLn, logLn net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.app.Listener(httpLn)
	})
	g.Go(func() error {
		return s.ServeLogs(gctx, logLn)
	})
	g.Go(func() error {
		<-gctx.Done()
		return s.app.ShutdownWithTimeout(5 * time.Second)
	})

	s.log.Info("simulator listening", "http", httpLn.Addr().String(), "logs", logLn.Addr().String())
	err := g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (s *Simulator) handleAction(c *fiber.Ctx) error {
	var req struct {
		Cmd  string          `json:"cmd"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(err.Error())
	}

	h, ok := s.actions[req.Cmd]
	if !ok {
		s.log.Debug("unknown command", "cmd", req.Cmd)
		return reply(c, nil, fail(CodeUnknownCommand, req.Cmd))
	}
	data, err := h(req.Data)
	s.log.Debug("action", "cmd", req.Cmd, "ok", err == nil)
	return reply(c, data, err)
}

// reply writes the device envelope.
func reply(c *fiber.Ctx, data any, err error) error {
	var de *deviceError
	if errors.As(err, &de) {
		return c.JSON(fiber.Map{"code": de.code, "msg_params": de.params, "data": nil})
	}
	if err != nil {
		return c.JSON(fiber.Map{"code": CodeBadRequest, "msg_params": []any{err.Error()}, "data": nil})
	}
	return c.JSON(fiber.Map{"code": 0, "data": data})
}

// decode unmarshals a command payload, mapping failures to CodeBadRequest.
func decode(data json.RawMessage, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return fail(CodeBadRequest, "missing data")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fail(CodeBadRequest, err.Error())
	}
	return nil
}

// Mode returns the simulated robot state.
func (s *Simulator) Mode() lebai.RobotState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.arm.mode
}
