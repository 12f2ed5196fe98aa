// lebai - command line client for Lebai robot arms
//
// Usage:
//
//	lebai [flags] status
//	lebai [flags] sys <start_sys|stop_sys|estop|pause|resume|...>
//	lebai [flags] demo
//	lebai [flags] run-scene [-loop N] <scene-id>
//	lebai [flags] rerun-task [-loop N] <task-id>
//	lebai [flags] task <task-id> <status|pause|resume|stop>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-lebai/internal/config"
	"github.com/teslashibe/go-lebai/internal/log"
	"github.com/teslashibe/go-lebai/pkg/lebai"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	robotAddr := flag.String("robot", "", "Robot address (overrides LEBAI_IP)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Usage = usage
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}
	if *robotAddr != "" {
		cfg.Robot.Addr = *robotAddr
	}
	if *debug {
		cfg.Log.Level = "debug"
	}
	log.Init(cfg.Log.Level, cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		fatal(err)
	}
	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	// Create context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	robot := lebai.NewRobot(cfg.Robot.Addr, cfg.RobotOptions()...)

	if err := run(ctx, robot, flag.Arg(0), flag.Args()[1:]); err != nil {
		if errors.Is(err, errUsage) {
			usage()
			os.Exit(2)
		}
		fatal(err)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: lebai [flags] <command> [args]

Commands:
  status                       robot mode, joints and TCP pose
  sys <command>                system command (start_sys, stop_sys, estop, ...)
  demo                         power on, move and read back (needs a clear workspace)
  run-scene [-loop N] <id>     run a stored scene and print its log
  rerun-task [-loop N] <id>    rerun a previous task and print its log
  task <id> <action>           status, pause, resume or stop a task

Flags:
`)
	flag.PrintDefaults()
}

func fatal(err error) {
	log.Error("lebai failed", "error", err)
	var devErr *lebai.Error
	if errors.As(err, &devErr) {
		fmt.Fprintf(os.Stderr, "❌ robot rejected %s: code %d %v\n", devErr.Op, devErr.Code, devErr.Params)
	} else {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
	}
	os.Exit(1)
}
