// Package trajectory generates pose sequences for straight lines and
// circles through taught waypoints.
package trajectory

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/gwillem/armconsole/pkg/robot"
)

// ErrDegenerateGeometry is returned when the circle points are collinear.
var ErrDegenerateGeometry = errors.New("degenerate geometry: points are collinear")

// DefaultCirclePoints is the number of points CircleArc samples when the
// caller passes zero or less.
const DefaultCirclePoints = 100

// collinearEpsilon bounds |v1 x v2| below which the circle has no plane.
const collinearEpsilon = 1e-6

// LineOptions configures Line.
type LineOptions struct {
	// SegmentLength samples the line every SegmentLength units of
	// distance. Zero emits only the two endpoints.
	SegmentLength float64
}

// LineSegment returns start and end. The end pose keeps its position and
// takes its orientation from start.
func LineSegment(start, end robot.Pose) []robot.Pose {
	return []robot.Pose{start, end.WithOrientation(start)}
}

// Line returns a straight line from start to end. With a positive segment
// length the position is sampled at equal distances along the line, the
// last sample clamped to end; every sample carries start's orientation.
func Line(start, end robot.Pose, opts LineOptions) []robot.Pose {
	if opts.SegmentLength <= 0 {
		return LineSegment(start, end)
	}

	from, to := position(start), position(end)
	dist := r3.Norm(r3.Sub(to, from))
	if dist == 0 {
		return LineSegment(start, end)
	}

	dir := r3.Unit(r3.Sub(to, from))
	count := int(math.Ceil(dist / opts.SegmentLength))
	out := make([]robot.Pose, 0, count+1)
	for i := 0; i <= count; i++ {
		d := math.Min(float64(i)*opts.SegmentLength, dist)
		p := r3.Add(from, r3.Scale(d, dir))
		out = append(out, start.WithPosition(p.X, p.Y, p.Z))
	}
	return out
}

// CircleArc samples the full circle through p1 and p2 around center.
// Point 0 is p1; the circle is not closed, so the last point stops one
// step short of p1. Every point carries the orientation of orientation.
func CircleArc(center, p1, p2 robot.Pose, numPoints int, orientation robot.Pose) ([]robot.Pose, error) {
	if numPoints <= 0 {
		numPoints = DefaultCirclePoints
	}

	c := position(center)
	v1 := r3.Sub(position(p1), c)
	v2 := r3.Sub(position(p2), c)

	normal := r3.Cross(v1, v2)
	if r3.Norm(normal) < collinearEpsilon {
		return nil, ErrDegenerateGeometry
	}
	normal = r3.Unit(normal)

	radius := r3.Norm(v1)
	u := r3.Unit(v1)
	v := r3.Unit(r3.Cross(normal, u))

	out := make([]robot.Pose, numPoints)
	for i := range out {
		theta := 2 * math.Pi * float64(i) / float64(numPoints)
		offset := r3.Add(r3.Scale(math.Cos(theta), u), r3.Scale(math.Sin(theta), v))
		p := r3.Add(c, r3.Scale(radius, offset))
		out[i] = orientation.WithPosition(p.X, p.Y, p.Z)
	}
	return out, nil
}

func position(p robot.Pose) r3.Vec {
	x, y, z := p.Position()
	return r3.Vec{X: x, Y: y, Z: z}
}
