// lebai-gate - HTTP gateway for one Lebai robot
//
// Exposes a REST API, Prometheus metrics and a websocket feed of task
// logs, and optionally republishes task events on MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-lebai/internal/config"
	"github.com/teslashibe/go-lebai/internal/log"
	"github.com/teslashibe/go-lebai/pkg/bridge"
	"github.com/teslashibe/go-lebai/pkg/lebai"
	"github.com/teslashibe/go-lebai/pkg/web"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
	log.Init(cfg.Log.Level, cfg.Log.Format)
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		log.Error("gateway stopped", "error", err)
		os.Exit(1)
	}
	log.Info("gateway stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := lebai.NewMetrics(reg)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	var observers []web.Observer
	if cfg.MQTT.Broker != "" {
		pub, err := bridge.Connect(bridge.MQTTConfig{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
		})
		if err != nil {
			return err
		}
		defer pub.Close()

		b := bridge.New(pub, cfg.MQTT.Prefix)
		observers = append(observers, b)
		g.Go(func() error {
			b.Run(gctx)
			return nil
		})
		log.Info("mqtt bridge enabled", "broker", cfg.MQTT.Broker, "prefix", cfg.MQTT.Prefix)
	}

	events := web.NewEvents(observers...)
	opts := append(cfg.RobotOptions(),
		lebai.WithChunkHandler(events.TaskLog),
		lebai.WithMetrics(metrics),
	)
	robot := lebai.NewRobot(cfg.Robot.Addr, opts...)

	srv := web.NewServer(robot, events, web.WithGatherer(reg))
	addr := fmt.Sprintf(":%d", cfg.Gate.Port)
	fmt.Printf("🌐 Lebai gateway: http://localhost%s (robot %s)\n", addr, cfg.Robot.Addr)

	g.Go(func() error {
		return srv.Listen(gctx, addr)
	})
	return g.Wait()
}
