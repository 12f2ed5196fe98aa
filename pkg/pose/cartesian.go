package pose

import (
	"fmt"
	"strconv"
	"strings"
)

// CartesianLen is the number of values in a Cartesian pose or frame.
const CartesianLen = 6

// Frame is a reference frame given as (x, y, z, rz, ry, rx).
// It is a plain tuple, never another pose.
type Frame [CartesianLen]float64

// CartesianPose is a spatial pose: position in metres and ZYX rotation in
// radians, optionally expressed relative to a base frame.
type CartesianPose struct {
	X, Y, Z    float64
	RZ, RY, RX float64

	base    Frame
	hasBase bool
}

// NewCartesian creates a pose from six components.
func NewCartesian(x, y, z, rz, ry, rx float64) CartesianPose {
	return CartesianPose{X: x, Y: y, Z: z, RZ: rz, RY: ry, RX: rx}
}

// CartesianFromSlice creates a pose from the first six values of v.
// It panics if v has fewer than six values.
func CartesianFromSlice(v []float64) CartesianPose {
	if len(v) < CartesianLen {
		panic(fmt.Sprintf("pose: need %d values for a cartesian pose, got %d", CartesianLen, len(v)))
	}
	return NewCartesian(v[0], v[1], v[2], v[3], v[4], v[5])
}

// ParseCartesian is CartesianFromSlice for untrusted input such as device
// responses.
func ParseCartesian(v []float64) (CartesianPose, error) {
	if len(v) < CartesianLen {
		return CartesianPose{}, fmt.Errorf("pose: need %d values for a cartesian pose, got %d", CartesianLen, len(v))
	}
	return CartesianFromSlice(v), nil
}

// CopyCartesian returns a copy of p, base included.
func CopyCartesian(p CartesianPose) CartesianPose {
	return p
}

// FrameOf returns the tuple of p for use as a base frame. Any base p itself
// carries is dropped.
func FrameOf(p CartesianPose) Frame {
	return Frame(p.Tuple())
}

// WithBase returns a copy of p expressed relative to base.
func (p CartesianPose) WithBase(base Frame) CartesianPose {
	out := p
	out.base, out.hasBase = base, true
	return out
}

// WithoutBase returns a copy of p with no base frame.
func (p CartesianPose) WithoutBase() CartesianPose {
	out := p
	out.base, out.hasBase = Frame{}, false
	return out
}

// Base returns the base frame and whether one is set.
func (p CartesianPose) Base() (Frame, bool) {
	return p.base, p.hasBase
}

// HasBase reports whether p carries a base frame.
func (p CartesianPose) HasBase() bool { return p.hasBase }

// Tuple returns (x, y, z, rz, ry, rx).
func (p CartesianPose) Tuple() [CartesianLen]float64 {
	return [CartesianLen]float64{p.X, p.Y, p.Z, p.RZ, p.RY, p.RX}
}

// Space implements Pose.
func (p CartesianPose) Space() Space { return CartesianSpace }

// Values implements Pose.
func (p CartesianPose) Values() []float64 {
	t := p.Tuple()
	return t[:]
}

// Equal reports exact equality of the tuple and the base. A pose with no
// base never equals one with a base, even an all-zero one. It agrees with ==.
func (p CartesianPose) Equal(other CartesianPose) bool {
	return p == other
}

func (p CartesianPose) String() string {
	t := p.Tuple()
	if !p.hasBase {
		return "CartesianPose" + formatFloats(t[:])
	}
	var b strings.Builder
	b.WriteString("CartesianPose(")
	for _, v := range t {
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		b.WriteString(", ")
	}
	b.WriteString("base=")
	b.WriteString(formatFloats(p.base[:]))
	b.WriteString(")")
	return b.String()
}
