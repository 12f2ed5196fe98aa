// Package pose provides the robot configuration value types used by the
// lebai client: Cartesian poses with an optional base frame, and joint poses.
//
// Poses are plain values. Nothing in this package resolves frames or does
// kinematics; a base is carried alongside a pose and serialized separately.
package pose

import (
	"fmt"
	"strconv"
	"strings"
)

// Space tags which representation a pose uses.
type Space int

const (
	// JointSpace poses are joint angles in radians.
	JointSpace Space = iota
	// CartesianSpace poses are a position plus ZYX rotation.
	CartesianSpace
)

// String returns the space name.
func (s Space) String() string {
	switch s {
	case JointSpace:
		return "joint"
	case CartesianSpace:
		return "cartesian"
	default:
		return "unknown"
	}
}

// Pose is anything that can be sent as a motion target.
type Pose interface {
	// Space reports whether the values are joint angles or a Cartesian pose.
	Space() Space
	// Values returns the canonical ordered values. The slice is a copy.
	Values() []float64
}

// Ensure both pose kinds satisfy Pose
var (
	_ Pose = CartesianPose{}
	_ Pose = JointPose{}
)

// formatFloats renders values the way the device SDKs print tuples.
func formatFloats(vals []float64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// JointPose is a robot configuration given as joint angles (radians).
type JointPose struct {
	angles []float64
}

// NewJoint creates a joint pose. The input is copied.
func NewJoint(angles ...float64) JointPose {
	return JointPose{angles: append([]float64(nil), angles...)}
}

// Space implements Pose.
func (j JointPose) Space() Space { return JointSpace }

// Values implements Pose.
func (j JointPose) Values() []float64 { return j.Angles() }

// Angles returns a copy of the joint angles.
func (j JointPose) Angles() []float64 {
	return append([]float64(nil), j.angles...)
}

// Len returns the number of joints.
func (j JointPose) Len() int { return len(j.angles) }

// Joint returns the i-th joint angle.
func (j JointPose) Joint(i int) float64 { return j.angles[i] }

// Equal reports exact structural equality.
func (j JointPose) Equal(other JointPose) bool {
	if len(j.angles) != len(other.angles) {
		return false
	}
	for i := range j.angles {
		if j.angles[i] != other.angles[i] {
			return false
		}
	}
	return true
}

func (j JointPose) String() string {
	return "JointPose" + formatFloats(j.angles)
}

// ParseJoint decodes joint angles reported by the device.
func ParseJoint(vals []float64) (JointPose, error) {
	if len(vals) == 0 {
		return JointPose{}, fmt.Errorf("pose: empty joint vector")
	}
	return NewJoint(vals...), nil
}
