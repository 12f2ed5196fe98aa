// Package config loads go-lebai configuration from a YAML file, a .env
// file and LEBAI_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-lebai/pkg/lebai"
)

// Default configuration values.
const (
	DefaultGatePort   = 8090
	DefaultMQTTPrefix = "lebai"
	DefaultLogLevel   = "info"
)

// Config is the full configuration of the go-lebai commands.
type Config struct {
	Robot RobotConfig `yaml:"robot"`
	Log   LogConfig   `yaml:"log"`
	Gate  GateConfig  `yaml:"gate"`
	MQTT  MQTTConfig  `yaml:"mqtt"`
}

// RobotConfig describes the arm connection.
type RobotConfig struct {
	Addr         string        `yaml:"addr"`
	LogPort      int           `yaml:"log_port"`
	Settle       time.Duration `yaml:"settle"`
	PollInterval time.Duration `yaml:"poll_interval"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	MaxWait      time.Duration `yaml:"max_wait"`
}

// LogConfig configures internal/log.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// GateConfig configures the HTTP gateway.
type GateConfig struct {
	Port int `yaml:"port"`
}

// MQTTConfig configures the MQTT bridge. An empty broker disables it.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Prefix   string `yaml:"prefix"`
	ClientID string `yaml:"client_id"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Robot: RobotConfig{
			LogPort:      lebai.DefaultLogPort,
			Settle:       lebai.DefaultSettleDelay,
			PollInterval: lebai.DefaultPollInterval,
			IdleTimeout:  lebai.DefaultIdleTimeout,
		},
		Log:  LogConfig{Level: DefaultLogLevel},
		Gate: GateConfig{Port: DefaultGatePort},
		MQTT: MQTTConfig{Prefix: DefaultMQTTPrefix},
	}
}

// Load builds the configuration. path names an optional YAML file; a
// missing .env file in the working directory is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "go-lebai-" + uuid.NewString()
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("LEBAI_IP"); v != "" {
		c.Robot.Addr = v
	}
	if v := os.Getenv("LEBAI_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LEBAI_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("LEBAI_MQTT_BROKER"); v != "" {
		c.MQTT.Broker = v
	}

	ints := map[string]*int{
		"LEBAI_LOG_PORT":  &c.Robot.LogPort,
		"LEBAI_GATE_PORT": &c.Gate.Port,
	}
	for key, dst := range ints {
		if err := envInt(key, dst); err != nil {
			return err
		}
	}

	durations := map[string]*time.Duration{
		"LEBAI_SETTLE":        &c.Robot.Settle,
		"LEBAI_POLL_INTERVAL": &c.Robot.PollInterval,
		"LEBAI_IDLE_TIMEOUT":  &c.Robot.IdleTimeout,
		"LEBAI_MAX_WAIT":      &c.Robot.MaxWait,
	}
	for key, dst := range durations {
		if err := envDuration(key, dst); err != nil {
			return err
		}
	}
	return nil
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = n
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = d
	return nil
}

// Validate checks the settings needed to talk to a robot.
func (c *Config) Validate() error {
	if c.Robot.Addr == "" {
		return errors.New("config: robot address is required (set LEBAI_IP)")
	}
	if c.Robot.LogPort <= 0 || c.Robot.LogPort > 65535 {
		return fmt.Errorf("config: invalid log port %d", c.Robot.LogPort)
	}
	if c.Robot.PollInterval <= 0 {
		return fmt.Errorf("config: poll interval must be positive, got %v", c.Robot.PollInterval)
	}
	if c.Robot.Settle < 0 || c.Robot.IdleTimeout < 0 || c.Robot.MaxWait < 0 {
		return errors.New("config: durations must not be negative")
	}
	return nil
}

// RobotOptions maps the robot settings onto client options.
func (c *Config) RobotOptions() []lebai.Option {
	return []lebai.Option{
		lebai.WithLogPort(c.Robot.LogPort),
		lebai.WithSettleDelay(c.Robot.Settle),
		lebai.WithPollInterval(c.Robot.PollInterval),
		lebai.WithIdleTimeout(c.Robot.IdleTimeout),
		lebai.WithMaxWait(c.Robot.MaxWait),
	}
}
