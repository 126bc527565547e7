package robot

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// PoseSize is the number of components in a pose.
const PoseSize = 6

// DefaultSpeed is the console speed before the operator changes it.
const DefaultSpeed = 100.0

// ErrInvalidSpeed is returned for a speed that is not a positive number.
var ErrInvalidSpeed = errors.New("speed must be a positive number")

// Pose is six joint angles, or x, y, z, a, b, c in Cartesian space.
// Values are passed through without unit conversion.
type Pose [PoseSize]float64

// RestPose is the joint pose the arm is parked in.
var RestPose = Pose{0, -75, 180, 0, 0, 0}

// Vector is a pose plus the speed it should be reached at.
type Vector struct {
	Pose  Pose
	Speed float64
}

// ValidateSpeed checks that speed is usable as a timer divisor and a wire value.
func ValidateSpeed(speed float64) error {
	if speed <= 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidSpeed, speed)
	}
	return nil
}

// FormatFloat renders f as plain decimal text with at most six decimals.
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}

// ParsePose parses exactly six decimal tokens.
func ParsePose(tokens []string) (Pose, error) {
	var p Pose
	if len(tokens) < PoseSize {
		return p, fmt.Errorf("need %d values, got %d", PoseSize, len(tokens))
	}
	for i := 0; i < PoseSize; i++ {
		v, err := strconv.ParseFloat(tokens[i], 64)
		if err != nil {
			return p, fmt.Errorf("value %d: %w", i+1, err)
		}
		p[i] = v
	}
	return p, nil
}

// Strings returns the six components as decimal text.
func (p Pose) Strings() []string {
	out := make([]string, PoseSize)
	for i, v := range p {
		out[i] = FormatFloat(v)
	}
	return out
}

// TraceLine renders the pose the way trace files store it:
// a leading space followed by space-separated components.
func (p Pose) TraceLine() string {
	return " " + strings.Join(p.Strings(), " ")
}

// Position returns the x, y, z components.
func (p Pose) Position() (x, y, z float64) {
	return p[0], p[1], p[2]
}

// WithPosition returns p with its first three components replaced.
func (p Pose) WithPosition(x, y, z float64) Pose {
	p[0], p[1], p[2] = x, y, z
	return p
}

// WithOrientation returns p with components 3-5 copied from src.
func (p Pose) WithOrientation(src Pose) Pose {
	p[3], p[4], p[5] = src[3], src[4], src[5]
	return p
}

// Params returns the seven wire parameters: six pose values then speed.
func (v Vector) Params() []string {
	return append(v.Pose.Strings(), FormatFloat(v.Speed))
}
