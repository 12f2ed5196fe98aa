// Package lebai is a client for Lebai robot arms over the controller's
// local HTTP action API and its TCP task log stream.
//
// Like the device, the package is organised around a single primitive:
// Robot.Action sends one named command and returns the response data.
// Every system, settings, motion, telemetry and IO operation is a thin
// variant of it. Scene drives pre-programmed scenes through /public/task
// and follows their log stream until a terminal status is reported.
//
// Small interfaces are defined here so consumers can depend only on what
// they use.
package lebai

import (
	"context"
	"encoding/json"

	"github.com/teslashibe/go-lebai/pkg/pose"
)

// Actioner sends a single named command to the robot.
type Actioner interface {
	Action(ctx context.Context, cmd string, data any) (json.RawMessage, error)
}

// SystemController toggles power, program state and teach mode.
type SystemController interface {
	StartSys(ctx context.Context) error
	StopSys(ctx context.Context) error
	EStop(ctx context.Context) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
}

// MotionController sends motion targets.
type MotionController interface {
	MoveJ(ctx context.Context, p pose.Pose, mp MoveParams) error
	MoveL(ctx context.Context, p pose.Pose, mp MoveParams) error
	StopMove(ctx context.Context) error
}

// StateReader reads telemetry.
type StateReader interface {
	RobotData(ctx context.Context) (*RobotData, error)
	RobotMode(ctx context.Context) (RobotState, error)
}

// IOPort is the uniform contract of every IO bank.
type IOPort interface {
	SetDO(ctx context.Context, pin, value int) error
	SetAO(ctx context.Context, pin int, value float64) error
	DI(ctx context.Context, pin int) (int, error)
	AI(ctx context.Context, pin int) (float64, error)
}

// TaskController drives one task instance.
type TaskController interface {
	Start(ctx context.Context, loop int, force bool) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Stop(ctx context.Context) error
	Status(ctx context.Context) (TaskStatus, error)
	Done(ctx context.Context) (bool, error)
}

// Controller is the composite interface for full robot control.
type Controller interface {
	Actioner
	SystemController
	MotionController
	StateReader
}

// Ensure implementations satisfy the interfaces
var (
	_ Controller     = (*Robot)(nil)
	_ IOPort         = (*IODevice)(nil)
	_ TaskController = (*Scene)(nil)
)
