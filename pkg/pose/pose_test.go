package pose

import (
	"math"
	"testing"
)

func TestCartesianFromSlice_Lossless(t *testing.T) {
	cases := [][]float64{
		{0, 0, 0, 0, 0, 0},
		{-0.54, -0.2, 0.117, 0, math.Pi / 2, math.Pi / 2},
		{1e-12, -1e12, 3.5, -math.Pi, math.Pi, 0.25},
	}

	for _, in := range cases {
		p := CartesianFromSlice(in)
		got := p.Values()
		for i := range in {
			if got[i] != in[i] {
				t.Errorf("value %d: got %v, want %v", i, got[i], in[i])
			}
		}
		if p.HasBase() {
			t.Errorf("pose built from slice should have no base")
		}
	}
}

func TestCartesianFromSlice_UsesFirstSix(t *testing.T) {
	p := CartesianFromSlice([]float64{1, 2, 3, 4, 5, 6, 7, 8})
	if p.Tuple() != [6]float64{1, 2, 3, 4, 5, 6} {
		t.Errorf("got %v", p.Tuple())
	}
}

func TestCartesianFromSlice_PanicsOnShortInput(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for a 5-element slice")
		}
	}()
	CartesianFromSlice([]float64{1, 2, 3, 4, 5})
}

func TestParseCartesian_ShortInput(t *testing.T) {
	if _, err := ParseCartesian([]float64{1, 2}); err == nil {
		t.Error("expected error for short input")
	}
	p, err := ParseCartesian([]float64{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatalf("ParseCartesian failed: %v", err)
	}
	if p.X != 1 || p.RX != 6 {
		t.Errorf("unexpected pose %v", p)
	}
}

func TestCartesianNamedFields(t *testing.T) {
	p := NewCartesian(1, 2, 3, 4, 5, 6)
	if p.X != 1 || p.Y != 2 || p.Z != 3 || p.RZ != 4 || p.RY != 5 || p.RX != 6 {
		t.Errorf("named fields do not follow (x, y, z, rz, ry, rx): %+v", p)
	}
}

func TestCartesianEqual(t *testing.T) {
	v := NewCartesian(0.1, 0.2, 0.3, 0, 0, 0)
	zero := Frame{}

	if !v.Equal(v) {
		t.Error("equality should be reflexive")
	}

	w := NewCartesian(0.1, 0.2, 0.3, 0, 0, 0)
	if !v.Equal(w) || !w.Equal(v) {
		t.Error("equality should be symmetric")
	}

	withZero := v.WithBase(zero)
	if v.Equal(withZero) || withZero.Equal(v) {
		t.Error("nil base must not equal an all-zero base")
	}

	if !withZero.Equal(w.WithBase(Frame{})) {
		t.Error("identical bases should compare equal")
	}

	if withZero.Equal(v.WithBase(Frame{0, 0, 0.001, 0, 0, 0})) {
		t.Error("different bases should not compare equal")
	}

	if v.Equal(NewCartesian(0.1, 0.2, 0.3000000001, 0, 0, 0)) {
		t.Error("equality must be exact")
	}
}

func TestCopyCartesian_DoesNotAliasBase(t *testing.T) {
	base := Frame{1, 1, 1, 0, 0, 0}
	p := NewCartesian(0, 0.1, 0, 0, 0, 0).WithBase(base)
	c := CopyCartesian(p)

	if !c.Equal(p) {
		t.Fatal("copy should equal original")
	}

	base[0] = 99
	got, _ := c.Base()
	if got[0] != 1 {
		t.Error("copy's base changed with caller's frame")
	}
}

func TestCartesianEqualMatchesOperator(t *testing.T) {
	a := NewCartesian(0.1, 0.2, 0.3, 0, 0, 0).WithBase(Frame{1, 0, 0, 0, 0, 0})
	b := NewCartesian(0.1, 0.2, 0.3, 0, 0, 0).WithBase(Frame{1, 0, 0, 0, 0, 0})
	if a != b || !a.Equal(b) {
		t.Error("poses with equal tuples and bases should compare equal")
	}

	noBase := a.WithoutBase()
	zeroBase := a.WithBase(Frame{})
	if noBase == zeroBase || noBase.Equal(zeroBase) {
		t.Error("a missing base must differ from an all-zero base")
	}
	if noBase != NewCartesian(0.1, 0.2, 0.3, 0, 0, 0) {
		t.Error("WithoutBase should compare equal to a pose built without one")
	}
}

func TestWithoutBase(t *testing.T) {
	p := NewCartesian(1, 2, 3, 0, 0, 0).WithBase(Frame{1})
	q := p.WithoutBase()
	if q.HasBase() {
		t.Error("WithoutBase should drop the base")
	}
	if !p.HasBase() {
		t.Error("WithoutBase should not modify the receiver")
	}
}

func TestFrameOf(t *testing.T) {
	p := NewCartesian(1, 2, 3, 4, 5, 6).WithBase(Frame{9, 9, 9, 9, 9, 9})
	if FrameOf(p) != (Frame{1, 2, 3, 4, 5, 6}) {
		t.Errorf("FrameOf = %v", FrameOf(p))
	}
}

func TestCartesianString(t *testing.T) {
	p := NewCartesian(1, 2, 3, 0, 0, 0.5)
	if got, want := p.String(), "CartesianPose(1, 2, 3, 0, 0, 0.5)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	b := p.WithBase(Frame{0, 0, 1, 0, 0, 0})
	if got, want := b.String(), "CartesianPose(1, 2, 3, 0, 0, 0.5, base=(0, 0, 1, 0, 0, 0))"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestJointPose(t *testing.T) {
	in := []float64{0, -0.5, math.Pi / 6, 0, 0, 0}
	j := NewJoint(in...)

	in[1] = 42
	if j.Joint(1) != -0.5 {
		t.Error("NewJoint must copy its input")
	}

	out := j.Angles()
	out[0] = 42
	if j.Joint(0) != 0 {
		t.Error("Angles must return a copy")
	}

	if j.Space() != JointSpace {
		t.Errorf("Space() = %v, want joint", j.Space())
	}
	if j.Len() != 6 {
		t.Errorf("Len() = %d, want 6", j.Len())
	}
	if !j.Equal(NewJoint(0, -0.5, math.Pi/6, 0, 0, 0)) {
		t.Error("structurally identical joint poses should be equal")
	}
	if j.Equal(NewJoint(0, -0.5)) {
		t.Error("joint poses of different length should not be equal")
	}
	if got, want := NewJoint(0, 1.5).String(), "JointPose(0, 1.5)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestSpaceTags(t *testing.T) {
	var p Pose = NewCartesian(0, 0, 0, 0, 0, 0)
	if p.Space() != CartesianSpace {
		t.Error("cartesian pose should report cartesian space")
	}
	if CartesianSpace.String() != "cartesian" || JointSpace.String() != "joint" {
		t.Error("unexpected space names")
	}
}

func TestParseJoint(t *testing.T) {
	if _, err := ParseJoint(nil); err == nil {
		t.Error("expected error for empty joint vector")
	}
	j, err := ParseJoint([]float64{1, 2, 3})
	if err != nil || j.Len() != 3 {
		t.Errorf("ParseJoint = %v, %v", j, err)
	}
}
