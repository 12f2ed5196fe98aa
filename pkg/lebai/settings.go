package lebai

import (
	"context"
	"fmt"

	"github.com/teslashibe/go-lebai/pkg/pose"
)

type valueData[T any] struct {
	Value T `json:"value"`
}

type payloadData struct {
	Mass float64   `json:"mass"`
	CoG  []float64 `json:"cog"`
}

// SetGravity sets the gravity vector used for dynamics compensation.
func (r *Robot) SetGravity(ctx context.Context, g Vector3) error {
	_, err := r.ActionSettled(ctx, "set_gravity", valueData[[]float64]{Value: g.Slice()})
	return err
}

// Gravity returns the configured gravity vector.
func (r *Robot) Gravity(ctx context.Context) (Vector3, error) {
	var res struct {
		Gravity []float64 `json:"gravity"`
	}
	if err := r.actionInto(ctx, "get_gravity", nil, &res); err != nil {
		return Vector3{}, err
	}
	v, err := Vec3FromSlice(res.Gravity)
	if err != nil {
		return Vector3{}, fmt.Errorf("lebai [get_gravity]: %w", err)
	}
	return v, nil
}

// SetPayload sets the tool payload.
func (r *Robot) SetPayload(ctx context.Context, p Payload) error {
	_, err := r.ActionSettled(ctx, "set_payload", payloadData{Mass: p.Mass, CoG: p.CoG.Slice()})
	return err
}

// Payload returns the configured tool payload.
func (r *Robot) Payload(ctx context.Context) (Payload, error) {
	var res payloadData
	if err := r.actionInto(ctx, "get_payload", nil, &res); err != nil {
		return Payload{}, err
	}
	cog, err := Vec3FromSlice(res.CoG)
	if err != nil {
		return Payload{}, fmt.Errorf("lebai [get_payload]: %w", err)
	}
	return NewPayload(res.Mass, cog), nil
}

// SetTCP sets the tool centre point offset from the flange. Any base frame
// on tcp is ignored.
func (r *Robot) SetTCP(ctx context.Context, tcp pose.CartesianPose) error {
	_, err := r.ActionSettled(ctx, "set_tcp", valueData[[]float64]{Value: tcp.Values()})
	return err
}

// TCP returns the tool centre point offset.
func (r *Robot) TCP(ctx context.Context) (pose.CartesianPose, error) {
	var res valueData[[]float64]
	if err := r.actionInto(ctx, "get_tcp", nil, &res); err != nil {
		return pose.CartesianPose{}, err
	}
	p, err := pose.ParseCartesian(res.Value)
	if err != nil {
		return pose.CartesianPose{}, fmt.Errorf("lebai [get_tcp]: %w", err)
	}
	return p, nil
}

// VelocityFactor returns the global speed override in percent.
func (r *Robot) VelocityFactor(ctx context.Context) (int, error) {
	var res valueData[int]
	if err := r.actionInto(ctx, "get_velocity_factor", nil, &res); err != nil {
		return 0, err
	}
	return res.Value, nil
}

// SetVelocityFactor sets the global speed override in percent.
func (r *Robot) SetVelocityFactor(ctx context.Context, factor int) error {
	_, err := r.ActionSettled(ctx, "set_velocity_factor", valueData[int]{Value: factor})
	return err
}
