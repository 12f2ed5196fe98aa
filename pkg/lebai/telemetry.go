package lebai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/teslashibe/go-lebai/pkg/pose"
)

// RobotData is the robot_data snapshot. Only the fields this client
// decodes are listed; the full payload is kept in Raw.
type RobotData struct {
	RobotMode     RobotState `json:"robot_mode"`
	ActualJoint   []float64  `json:"actual_joint"`
	TargetJoint   []float64  `json:"target_joint"`
	ActualTCPPose []float64  `json:"actual_tcp_pose"`
	TargetTCPPose []float64  `json:"target_tcp_pose"`

	Raw json.RawMessage `json:"-"`
}

// RobotData fetches a telemetry snapshot.
func (r *Robot) RobotData(ctx context.Context) (*RobotData, error) {
	raw, err := r.Action(ctx, "robot_data", nil)
	if err != nil {
		return nil, err
	}
	var d RobotData
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("lebai [robot_data]: decode: %w", err)
	}
	d.Raw = raw
	return &d, nil
}

// RobotMode returns the device state.
func (r *Robot) RobotMode(ctx context.Context) (RobotState, error) {
	d, err := r.RobotData(ctx)
	if err != nil {
		return RobotDisconnected, err
	}
	return d.RobotMode, nil
}

// ActualJointPositions returns the measured joint angles.
func (r *Robot) ActualJointPositions(ctx context.Context) (pose.JointPose, error) {
	d, err := r.RobotData(ctx)
	if err != nil {
		return pose.JointPose{}, err
	}
	return pose.ParseJoint(d.ActualJoint)
}

// TargetJointPositions returns the commanded joint angles.
func (r *Robot) TargetJointPositions(ctx context.Context) (pose.JointPose, error) {
	d, err := r.RobotData(ctx)
	if err != nil {
		return pose.JointPose{}, err
	}
	return pose.ParseJoint(d.TargetJoint)
}

// ActualTCPPose returns the measured tool pose.
func (r *Robot) ActualTCPPose(ctx context.Context) (pose.CartesianPose, error) {
	d, err := r.RobotData(ctx)
	if err != nil {
		return pose.CartesianPose{}, err
	}
	return pose.ParseCartesian(d.ActualTCPPose)
}

// TargetTCPPose returns the commanded tool pose.
func (r *Robot) TargetTCPPose(ctx context.Context) (pose.CartesianPose, error) {
	d, err := r.RobotData(ctx)
	if err != nil {
		return pose.CartesianPose{}, err
	}
	return pose.ParseCartesian(d.TargetTCPPose)
}
