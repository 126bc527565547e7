// Package robot provides the data model shared by the console packages:
// poses, axes, gains and configuration.
package robot

// MoveType selects joint space or Cartesian space.
type MoveType int

const (
	Joint MoveType = iota
	Line
)

func (m MoveType) String() string {
	switch m {
	case Joint:
		return "joint"
	case Line:
		return "line"
	default:
		return "unknown"
	}
}

// AxisName identifies one component of a pose.
type AxisName string

// Joint axes, in pose order.
const (
	J1 AxisName = "j1"
	J2 AxisName = "j2"
	J3 AxisName = "j3"
	J4 AxisName = "j4"
	J5 AxisName = "j5"
	J6 AxisName = "j6"
)

// Cartesian axes, in pose order: position then orientation.
const (
	X AxisName = "x"
	Y AxisName = "y"
	Z AxisName = "z"
	A AxisName = "a"
	B AxisName = "b"
	C AxisName = "c"
)

// AllJoints returns the joint axes in pose order (matching joint numbers 1-6).
func AllJoints() []AxisName {
	return []AxisName{J1, J2, J3, J4, J5, J6}
}

// AllCartesian returns the Cartesian axes in pose order.
func AllCartesian() []AxisName {
	return []AxisName{X, Y, Z, A, B, C}
}

// Axes returns the axis names for a move type.
func Axes(m MoveType) []AxisName {
	if m == Line {
		return AllCartesian()
	}
	return AllJoints()
}

// JointNumber returns the 1-based joint number the device uses for name.
func JointNumber(name AxisName) (int, bool) {
	for i, j := range AllJoints() {
		if j == name {
			return i + 1, true
		}
	}
	return 0, false
}
