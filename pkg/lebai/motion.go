package lebai

import (
	"context"

	"github.com/teslashibe/go-lebai/pkg/pose"
)

// moveRequest is the body of movej and movel.
type moveRequest struct {
	PoseTo       []float64   `json:"pose_to"`
	IsJointAngle bool        `json:"is_joint_angle"`
	Base         *pose.Frame `json:"base,omitempty"`
	Acceleration float64     `json:"acceleration"`
	Velocity     float64     `json:"velocity"`
	Time         float64     `json:"time"`
	SmoothToNext int         `json:"smooth_move_to_next"`
}

func newMoveRequest(p pose.Pose, mp MoveParams) moveRequest {
	req := moveRequest{
		PoseTo:       p.Values(),
		IsJointAngle: p.Space() == pose.JointSpace,
		Acceleration: mp.Acceleration,
		Velocity:     mp.Velocity,
		Time:         mp.Time,
	}
	if mp.SmoothToNext {
		req.SmoothToNext = 1
	}
	if cp, ok := p.(pose.CartesianPose); ok {
		if base, ok := cp.Base(); ok {
			req.Base = &base
		}
	}
	return req
}

// MoveJ moves to p with joint interpolation. Feasibility is checked by the
// device, not here.
func (r *Robot) MoveJ(ctx context.Context, p pose.Pose, mp MoveParams) error {
	_, err := r.Action(ctx, "movej", newMoveRequest(p, mp))
	return err
}

// MoveL moves to p along a straight line in Cartesian space.
func (r *Robot) MoveL(ctx context.Context, p pose.Pose, mp MoveParams) error {
	_, err := r.Action(ctx, "movel", newMoveRequest(p, mp))
	return err
}

// StopMove aborts the current motion.
func (r *Robot) StopMove(ctx context.Context) error {
	_, err := r.Action(ctx, "stop_move", nil)
	return err
}
