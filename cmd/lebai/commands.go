package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/teslashibe/go-lebai/internal/log"
	"github.com/teslashibe/go-lebai/pkg/lebai"
	"github.com/teslashibe/go-lebai/pkg/pose"
)

var errUsage = errors.New("usage")

func run(ctx context.Context, r *lebai.Robot, cmd string, args []string) error {
	switch cmd {
	case "status":
		return status(ctx, r)
	case "sys":
		return system(ctx, r, args)
	case "demo":
		return demo(ctx, r)
	case "run-scene":
		return runScene(ctx, r, args, false)
	case "rerun-task":
		return runScene(ctx, r, args, true)
	case "task":
		return task(ctx, r, args)
	default:
		return errUsage
	}
}

func status(ctx context.Context, r *lebai.Robot) error {
	d, err := r.RobotData(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("🤖 Robot %s\n", r.Addr())
	fmt.Printf("   Mode:   %s (%d)\n", d.RobotMode, int(d.RobotMode))
	if j, err := pose.ParseJoint(d.ActualJoint); err == nil {
		fmt.Printf("   Joints: %s\n", j)
	}
	if p, err := pose.ParseCartesian(d.ActualTCPPose); err == nil {
		fmt.Printf("   TCP:    %s\n", p)
	}
	return nil
}

func system(ctx context.Context, r *lebai.Robot, args []string) error {
	cmds := r.SystemCommands()
	if len(args) != 1 {
		names := make([]string, 0, len(cmds))
		for name := range cmds {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Printf("system commands: %v\n", names)
		return errUsage
	}
	op, ok := cmds[args[0]]
	if !ok {
		return fmt.Errorf("unknown system command %q", args[0])
	}
	if err := op(ctx); err != nil {
		return err
	}
	fmt.Printf("✅ %s\n", args[0])
	return nil
}

// demo powers the arm, exercises settings and a short motion, then
// reports where the arm ended up.
func demo(ctx context.Context, r *lebai.Robot) error {
	step := func(name string, fn func() error) error {
		fmt.Printf("%s... ", name)
		if err := fn(); err != nil {
			fmt.Println("❌")
			return fmt.Errorf("%s: %w", name, err)
		}
		fmt.Println("✅")
		return nil
	}

	if err := step("Starting system", func() error { return r.StartSys(ctx) }); err != nil {
		return err
	}
	mode, err := r.RobotMode(ctx)
	if err != nil {
		return err
	}
	log.Info("robot mode", "mode", mode.String())

	if err := step("Setting velocity factor", func() error { return r.SetVelocityFactor(ctx, 60) }); err != nil {
		return err
	}

	g, err := r.Gravity(ctx)
	if err != nil {
		return err
	}
	if err := step("Re-applying gravity", func() error { return r.SetGravity(ctx, g) }); err != nil {
		return err
	}

	payload := lebai.NewPayload(0.12, lebai.Vec3(0.1, 0.2, 0.3))
	if err := step("Setting payload", func() error { return r.SetPayload(ctx, payload) }); err != nil {
		return err
	}

	home := pose.NewJoint(0, -0.5, math.Pi/6, 0, 0, 0)
	if err := step("Moving to home", func() error {
		return r.MoveJ(ctx, home, lebai.MoveParams{Time: 1})
	}); err != nil {
		return err
	}

	tcp, err := r.ActualTCPPose(ctx)
	if err != nil {
		return err
	}
	if err := step("Moving linearly to the same pose", func() error {
		return r.MoveL(ctx, tcp, lebai.MoveParams{Time: 1})
	}); err != nil {
		return err
	}

	if err := step("Cycling gripper", func() error {
		if err := r.SetClawAO(ctx, "Amplitude", 100); err != nil {
			return err
		}
		time.Sleep(time.Second)
		return r.SetClawAO(ctx, "Amplitude", 0)
	}); err != nil {
		return err
	}

	return status(ctx, r)
}

func runScene(ctx context.Context, r *lebai.Robot, args []string, rerun bool) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	loop := fs.Int("loop", 1, "number of times to run")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		return errUsage
	}
	id, err := strconv.Atoi(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("invalid id %q", fs.Arg(0))
	}

	var out string
	if rerun {
		fmt.Printf("🔁 Rerunning task %d (loop=%d)\n", id, *loop)
		out, err = r.RerunTask(ctx, id, *loop)
	} else {
		fmt.Printf("▶️  Running scene %d (loop=%d)\n", id, *loop)
		out, err = r.RunScene(ctx, id, *loop)
	}
	fmt.Print(out)
	return err
}

func task(ctx context.Context, r *lebai.Robot, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid task id %q", args[0])
	}
	t := r.Task(id)

	switch args[1] {
	case "status":
	case "pause":
		err = t.Pause(ctx)
	case "resume":
		err = t.Resume(ctx)
	case "stop":
		err = t.Stop(ctx)
	default:
		return errUsage
	}
	if err != nil {
		return err
	}

	st, err := t.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Task %d: %s\n", id, st)
	return nil
}
