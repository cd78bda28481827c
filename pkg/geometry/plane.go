package geometry

import (
	"math"

	"github.com/df07/go-spectral-pathtracer/pkg/core"
)

// AxisPlane is the infinite plane {p : p[Axis] = Offset}. Its outward side
// is the positive side of the axis. It has no bounds.
type AxisPlane struct {
	core.RefCount
	Axis   int // 0=X, 1=Y, 2=Z
	Offset float64
}

// NewAxisPlane creates a plane perpendicular to axis at offset
func NewAxisPlane(axis int, offset float64) (*AxisPlane, error) {
	if axis < 0 || axis > 2 {
		return nil, core.NewError(core.StatusInvalidArgument, "plane.new", "axis must be 0, 1 or 2")
	}
	if math.IsNaN(offset) || math.IsInf(offset, 0) {
		return nil, core.NewError(core.StatusInvalidArgument, "plane.new", "non-finite offset")
	}
	return &AxisPlane{Axis: axis, Offset: offset}, nil
}

// Trace reports the single crossing of the plane, if the ray is not parallel
func (p *AxisPlane) Trace(ray core.Ray, hits *ShapeHitList) error {
	denominator := ray.Direction.Axis(p.Axis)

	// Parallel rays never cross
	if core.NearZero(denominator, ray.Direction.Length()) {
		return nil
	}

	t := (p.Offset - ray.Origin.Axis(p.Axis)) / denominator
	if tMin, tMax := hits.Range(); t < tMin || t >= tMax {
		return nil
	}

	face := FaceFront
	if denominator > 0 {
		face = FaceBack
	}
	_, err := hits.Add(t, face, 0)
	return err
}

// Normal returns the positive axis direction
func (p *AxisPlane) Normal(point core.Vec3, faceHit int, data []byte) core.Vec3 {
	var n core.Vec3
	switch p.Axis {
	case 0:
		n.X = 1
	case 1:
		n.Y = 1
	default:
		n.Z = 1
	}
	return n
}
