// lebai-sim - simulated Lebai controller
//
// Serves the robot action and task API over HTTP and task logs over TCP so
// the client, CLI and gateway can run without an arm:
//
//	lebai-sim -http 127.0.0.1:8080 -logs 127.0.0.1:5180
//	LEBAI_IP=127.0.0.1:8080 lebai status
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-lebai/internal/log"
	"github.com/teslashibe/go-lebai/pkg/lebai"
	"github.com/teslashibe/go-lebai/pkg/sim"
)

func main() {
	httpAddr := flag.String("http", "127.0.0.1:8080", "HTTP API listen address")
	logAddr := flag.String("logs", fmt.Sprintf("127.0.0.1:%d", lebai.DefaultLogPort), "Task log listen address")
	taskDuration := flag.Duration("task-duration", sim.DefaultTaskDuration, "Run time of one scene loop")
	logInterval := flag.Duration("log-interval", sim.DefaultLogInterval, "Period of task log lines")
	level := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	log.Init(*level, "")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	httpLn, err := net.Listen("tcp", *httpAddr)
	if err != nil {
		log.Error("listen http", "addr", *httpAddr, "error", err)
		os.Exit(1)
	}
	logLn, err := net.Listen("tcp", *logAddr)
	if err != nil {
		log.Error("listen logs", "addr", *logAddr, "error", err)
		os.Exit(1)
	}

	fmt.Println("🤖 Lebai simulator")
	fmt.Printf("   API:  http://%s\n", httpLn.Addr())
	fmt.Printf("   Logs: tcp://%s\n", logLn.Addr())

	s := sim.New(
		sim.WithTaskDuration(*taskDuration),
		sim.WithLogInterval(*logInterval),
	)
	if err := s.Listen(ctx, httpLn, logLn); err != nil {
		log.Error("simulator stopped", "error", err)
		os.Exit(1)
	}
	fmt.Println("👋 Goodbye!")
}
