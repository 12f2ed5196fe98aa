package lebai

import (
	"log/slog"
	"net/http"
	"time"
)

// Default values for Config.
const (
	DefaultLogPort      = 5180
	DefaultSettleDelay  = 1 * time.Second
	DefaultPollInterval = 500 * time.Millisecond
	DefaultIdleTimeout  = 5 * time.Minute
	DefaultChunkSize    = 1024
)

// Config holds client configuration.
type Config struct {
	// Transport
	HTTPClient *http.Client
	LogPort    int // TCP port of the task log stream

	// SettleDelay is the pause after commands whose effect is not
	// immediately observable (motors, velocity factor, settings).
	SettleDelay time.Duration

	// Log stream
	PollInterval time.Duration // status poll period while the stream is quiet
	IdleTimeout  time.Duration // 0 disables
	MaxWait      time.Duration // bound on a whole stream; 0 disables
	ChunkSize    int
	OnChunk      func(taskID int, chunk []byte)

	// Observability
	Logger  *slog.Logger
	Metrics *Metrics
}

// Option is a functional option for configuring a Robot.
type Option func(*Config)

// WithHTTPClient sets the HTTP client used for action and task requests.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *Config) { cfg.HTTPClient = c }
}

// WithLogPort sets the TCP port of the task log stream.
func WithLogPort(port int) Option {
	return func(c *Config) { c.LogPort = port }
}

// WithSettleDelay sets the pause applied after settled commands.
func WithSettleDelay(d time.Duration) Option {
	return func(c *Config) { c.SettleDelay = d }
}

// WithPollInterval sets how often task status is polled while the log stream is quiet.
func WithPollInterval(d time.Duration) Option {
	return func(c *Config) { c.PollInterval = d }
}

// WithIdleTimeout bounds how long a stream may go without data or a terminal status.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Config) { c.IdleTimeout = d }
}

// WithMaxWait bounds the total duration of a stream.
func WithMaxWait(d time.Duration) Option {
	return func(c *Config) { c.MaxWait = d }
}

// WithChunkHandler registers a callback invoked for every log chunk received.
// It runs on the streaming goroutine and must not block.
func WithChunkHandler(fn func(taskID int, chunk []byte)) Option {
	return func(c *Config) { c.OnChunk = fn }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Config) { c.Metrics = m }
}

// DefaultConfig returns defaults matching the device firmware.
func DefaultConfig() *Config {
	return &Config{
		LogPort:      DefaultLogPort,
		SettleDelay:  DefaultSettleDelay,
		PollInterval: DefaultPollInterval,
		IdleTimeout:  DefaultIdleTimeout,
		ChunkSize:    DefaultChunkSize,
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}
