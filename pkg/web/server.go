// Package web provides the HTTP gateway in front of one robot: a small
// REST API, Prometheus metrics and a websocket feed of task logs.
package web

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-lebai/internal/log"
	"github.com/teslashibe/go-lebai/pkg/lebai"
)

// Robot is the part of the client the gateway uses.
type Robot interface {
	RobotData(ctx context.Context) (*lebai.RobotData, error)
	SystemCommands() map[string]func(context.Context) error
	Scene(sceneID int) *lebai.Scene
	Task(taskID int) *lebai.Scene
}

// Config holds gateway configuration.
type Config struct {
	// Gatherer serves /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer

	// RequestTimeout bounds robot calls made while serving a request.
	RequestTimeout time.Duration

	Logger *slog.Logger
}

// Option is a functional option for configuring a Server.
type Option func(*Config)

// WithGatherer enables /metrics for the given registry.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(c *Config) { c.Gatherer = g }
}

// WithRequestTimeout bounds robot calls made while serving a request.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Config) { c.RequestTimeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// Server is the gateway server.
type Server struct {
	app    *fiber.App
	cfg    *Config
	log    *slog.Logger
	robot  Robot
	events *Events

	// Background scene runs outlive the request that started them.
	runCtx    context.Context
	runCancel context.CancelFunc
	runs      sync.WaitGroup
}

// NewServer creates a gateway for robot publishing to events.
func NewServer(robot Robot, events *Events, opts ...Option) *Server {
	cfg := &Config{RequestTimeout: 30 * time.Second}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &Server{
		cfg:    cfg,
		log:    cfg.Logger,
		robot:  robot,
		events: events,
	}
	if s.log == nil {
		s.log = log.With("component", "web")
	}
	s.runCtx, s.runCancel = context.WithCancel(context.Background())

	app := fiber.New(fiber.Config{
		AppName:               "Lebai Gateway",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	// CORS for local dashboards
	app.Use(cors.New())

	// API routes
	api := app.Group("/api")
	api.Get("/robot", s.handleRobot)
	api.Post("/robot/:cmd", s.handleSystemCommand)
	api.Post("/scenes/:id/run", s.handleRunScene)
	api.Get("/tasks/:id", s.handleGetTask)
	api.Post("/tasks/:id/:action", s.handleTaskAction)
	api.Get("/events", s.handleGetEvents)

	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/logs", websocket.New(s.handleLogsWS))

	s.app = app
	return s
}

// App returns the fiber app.
func (s *Server) App() *fiber.App { return s.app }

// Serve runs the hub and serves on ln until ctx is done. Background scene
// runs are cancelled and awaited before it returns.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.events.Hub().Run(gctx)
		return nil
	})
	g.Go(func() error {
		return s.app.Listener(ln)
	})
	g.Go(func() error {
		<-gctx.Done()
		s.runCancel()
		err := s.app.ShutdownWithTimeout(5 * time.Second)
		s.runs.Wait()
		return err
	})

	s.log.Info("gateway listening", "addr", ln.Addr().String())
	return g.Wait()
}

// Listen serves on addr until ctx is done.
func (s *Server) Listen(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}
