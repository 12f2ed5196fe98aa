package lebai

import "fmt"

// DefaultGravity is the gravity vector of an upright mounted arm.
var DefaultGravity = Vector3{0, 0, -9.8}

// Vector3 is a 3-component physical vector (gravity, centre of gravity).
type Vector3 struct {
	X, Y, Z float64
}

// Vec3 creates a vector from components.
func Vec3(x, y, z float64) Vector3 {
	return Vector3{X: x, Y: y, Z: z}
}

// Vec3FromSlice creates a vector from the first three values of v.
func Vec3FromSlice(v []float64) (Vector3, error) {
	if len(v) < 3 {
		return Vector3{}, fmt.Errorf("lebai: need 3 values for a vector, got %d", len(v))
	}
	return Vector3{X: v[0], Y: v[1], Z: v[2]}, nil
}

// Slice returns [x, y, z].
func (v Vector3) Slice() []float64 {
	return []float64{v.X, v.Y, v.Z}
}

// Payload is the tool load: mass in kg and centre of gravity in metres.
type Payload struct {
	Mass float64
	CoG  Vector3
}

// NewPayload creates a payload description.
func NewPayload(mass float64, cog Vector3) Payload {
	return Payload{Mass: mass, CoG: cog}
}

// MoveParams are the motion parameters shared by movej and movel.
// Zero values leave the choice to the device.
type MoveParams struct {
	Acceleration float64
	Velocity     float64
	Time         float64 // seconds; overrides velocity when non-zero
	SmoothToNext bool    // blend into the next queued motion
}
