package lebai

import (
	"fmt"
	"strings"
)

// RobotState is the device-level state reported in robot_data.robot_mode.
// The device is authoritative; no transitions are checked client-side.
type RobotState int

const (
	RobotDisconnected RobotState = 0
	RobotEStop        RobotState = 1
	RobotBooting      RobotState = 2
	RobotOff          RobotState = 3
	RobotOn           RobotState = 4
	RobotIdle         RobotState = 5
	RobotPaused       RobotState = 6
	RobotRunning      RobotState = 7
	RobotUpdating     RobotState = 8
	RobotStarting     RobotState = 9
	RobotStopping     RobotState = 10
	RobotTeaching     RobotState = 11
	RobotStop         RobotState = 12
	RobotFinetuning   RobotState = 13
)

var robotStateNames = [...]string{
	"disconnected", "estop", "booting", "robot_off", "robot_on", "idle", "paused",
	"running", "updating", "starting", "stopping", "teaching", "stop", "finetuning",
}

// String returns the state name.
func (s RobotState) String() string {
	if s < 0 || int(s) >= len(robotStateNames) {
		return fmt.Sprintf("robot_state(%d)", int(s))
	}
	return robotStateNames[s]
}

// TaskStatus is the state of a scene or task instance.
type TaskStatus int

const (
	TaskIdle    TaskStatus = 0
	TaskRunning TaskStatus = 1
	TaskPaused  TaskStatus = 2
	TaskSuccess TaskStatus = 3
	TaskStopped TaskStatus = 4
	TaskAborted TaskStatus = 5
)

var taskStatusNames = [...]string{"idle", "running", "paused", "success", "stopped", "aborted"}

// ParseTaskStatus converts a device status code. Codes outside 0-5 fail.
func ParseTaskStatus(code int) (TaskStatus, error) {
	if code < 0 || code >= len(taskStatusNames) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidStatus, code)
	}
	return TaskStatus(code), nil
}

// Terminal reports whether no further progress happens without a new start.
func (s TaskStatus) Terminal() bool {
	return s == TaskSuccess || s == TaskStopped || s == TaskAborted
}

// String returns the status name.
func (s TaskStatus) String() string {
	if s < 0 || int(s) >= len(taskStatusNames) {
		return fmt.Sprintf("task_status(%d)", int(s))
	}
	return taskStatusNames[s]
}

// IODeviceType selects which IO bank a port addresses.
type IODeviceType int

const (
	IOHost      IODeviceType = 0 // controller chassis
	IOFlange    IODeviceType = 1 // tool flange
	IOGripper   IODeviceType = 2 // reserved
	IOModbusTCP IODeviceType = 3 // external Modbus-TCP module
)

// String returns the device class name.
func (t IODeviceType) String() string {
	switch t {
	case IOHost:
		return "host"
	case IOFlange:
		return "flange"
	case IOGripper:
		return "gripper"
	case IOModbusTCP:
		return "modbus_tcp"
	default:
		return fmt.Sprintf("io_device(%d)", int(t))
	}
}

// ioCommands is the remote command quadruple for one device class.
type ioCommands struct {
	setDO, setAO, getDI, getAI string
}

var ioCommandTable = map[IODeviceType]ioCommands{
	IOHost:      {"set_do", "set_ao", "get_di", "get_ai"},
	IOFlange:    {"set_flange_do", "set_flange_ao", "get_flange_di", "get_flange_ai"},
	IOModbusTCP: {"set_external_do", "set_external_ao", "get_external_di", "get_external_ai"},
}

// ClawChannel names an analog channel of the gripper.
type ClawChannel string

const (
	ClawAmplitude ClawChannel = "Amplitude"
	ClawForce     ClawChannel = "Force"
	ClawWeight    ClawChannel = "Weight"
)

// ParseClawChannel matches name case-insensitively. Anything unrecognised
// maps to ClawAmplitude.
func ParseClawChannel(name string) ClawChannel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "force":
		return ClawForce
	case "weight":
		return ClawWeight
	default:
		return ClawAmplitude
	}
}
