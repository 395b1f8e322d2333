package vision

import (
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/spatial/r2"
)

// FingerRule selects how convexity defects are counted as gaps between fingers.
type FingerRule string

const (
	// RuleAngle counts defects whose angle at the far point is at most MaxAngle degrees.
	RuleAngle FingerRule = "angle"
	// RuleDepth counts defects deeper than MinDepth.
	RuleDepth FingerRule = "depth"
)

// Default counting thresholds.
const (
	DefaultMaxAngle = 90.0
	// DefaultMinDepth is in OpenCV fixed-point depth units (1/256 pixel).
	DefaultMinDepth = 1000
)

// depthScale converts OpenCV fixed-point defect depth to pixels.
const depthScale = 256.0

// minHullIndices is the smallest hull able to produce usable defects.
const minHullIndices = 4

// Defect is a concavity between two consecutive hull vertices of a contour.
type Defect struct {
	Start image.Point
	End   image.Point
	Far   image.Point
	// RawDepth is the distance from Far to the hull edge in 1/256 pixel units.
	RawDepth int
	// Depth is RawDepth in pixels.
	Depth float64
}

// CountParams configures finger gap counting.
type CountParams struct {
	Rule     FingerRule
	MaxAngle float64
	MinDepth float64
}

// Validate checks the rule and its threshold.
func (p CountParams) Validate() error {
	switch p.Rule {
	case RuleAngle:
		if p.MaxAngle <= 0 || p.MaxAngle > 180 {
			return fmt.Errorf("max angle must be in (0, 180], got %v", p.MaxAngle)
		}
	case RuleDepth:
		if p.MinDepth < 0 {
			return fmt.Errorf("min depth must not be negative, got %v", p.MinDepth)
		}
	default:
		return fmt.Errorf("unknown finger rule %q", p.Rule)
	}
	return nil
}

// ConvexityDefects computes the convex hull of the contour as indices into its
// points and returns the defects between consecutive hull vertices. Contours
// whose hull has fewer than four vertices have no usable defects.
func ConvexityDefects(c *Contour) []Defect {
	if c == nil || len(c.Points) < minHullIndices {
		return nil
	}

	points := gocv.NewPointVectorFromPoints(c.Points)
	defer points.Close()

	hull := gocv.NewMat()
	defer hull.Close()
	gocv.ConvexHull(points, &hull, false, false)
	if hull.Total() < minHullIndices {
		return nil
	}

	// OpenCV aborts on hull indices that wind around the contour more than
	// once, which self-intersecting contours produce.
	indices := make([]int, hull.Total())
	for i := range indices {
		indices[i] = int(hull.GetIntAt(i, 0))
	}
	if !cyclicMonotonic(indices) {
		return nil
	}

	raw := gocv.NewMat()
	defer raw.Close()
	gocv.ConvexityDefects(points, hull, &raw)
	if raw.Empty() {
		return nil
	}

	n := len(c.Points)
	defects := make([]Defect, 0, raw.Rows())
	for i := 0; i < raw.Rows(); i++ {
		v := raw.GetVeciAt(i, 0)
		if len(v) < 4 {
			continue
		}
		s, e, f := int(v[0]), int(v[1]), int(v[2])
		if s >= n || e >= n || f >= n || s < 0 || e < 0 || f < 0 {
			continue
		}
		defects = append(defects, Defect{
			Start:    c.Points[s],
			End:      c.Points[e],
			Far:      c.Points[f],
			RawDepth: int(v[3]),
			Depth:    float64(v[3]) / depthScale,
		})
	}
	return defects
}

// cyclicMonotonic reports whether idx, read as a ring, strictly increases or
// strictly decreases with at most one wrap.
func cyclicMonotonic(idx []int) bool {
	ascents, descents := 0, 0
	for i, v := range idx {
		next := idx[(i+1)%len(idx)]
		switch {
		case next > v:
			ascents++
		case next < v:
			descents++
		default:
			return false
		}
	}
	return ascents <= 1 || descents <= 1
}

// CountFingerGaps returns the number of defects of the contour that qualify
// as gaps between fingers under the configured rule.
func CountFingerGaps(c *Contour, p CountParams) int {
	return p.Count(ConvexityDefects(c))
}

// Count applies the counting rule to already computed defects.
func (p CountParams) Count(defects []Defect) int {
	count := 0
	for _, d := range defects {
		switch p.Rule {
		case RuleAngle:
			angle, ok := DefectAngle(d)
			if ok && angle <= p.MaxAngle {
				count++
			}
		case RuleDepth:
			if float64(d.RawDepth) > p.MinDepth {
				count++
			}
		}
	}
	return count
}

// DefectAngle returns the angle in degrees at the far point of the triangle
// formed by the defect, using the law of cosines. It returns false when the
// far point coincides with the start or end point.
func DefectAngle(d Defect) (float64, bool) {
	start, end, far := vec(d.Start), vec(d.End), vec(d.Far)
	a := r2.Norm(r2.Sub(start, end))
	b := r2.Norm(r2.Sub(far, start))
	c := r2.Norm(r2.Sub(far, end))
	if b*c == 0 {
		return 0, false
	}

	cos := (b*b + c*c - a*a) / (2 * b * c)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi, true
}

func vec(p image.Point) r2.Vec {
	return r2.Vec{X: float64(p.X), Y: float64(p.Y)}
}
