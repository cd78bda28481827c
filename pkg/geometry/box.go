package geometry

import (
	"math"

	"github.com/df07/go-spectral-pathtracer/pkg/core"
)

// Box is an axis-aligned box in model space. Rotated boxes are placed with
// a Geometry transform.
type Box struct {
	core.RefCount
	Center core.Vec3 // Center point of the box
	Size   core.Vec3 // Half-extents along each axis
	bbox   core.AABB
}

// NewBox creates a box around center. Size holds half-extents, so a size of
// (1,1,1) creates a 2x2x2 box.
func NewBox(center, size core.Vec3) (*Box, error) {
	if !center.IsFinite() || !size.IsFinite() || size.X <= 0 || size.Y <= 0 || size.Z <= 0 {
		return nil, core.NewError(core.StatusInvalidArgument, "box.new", "half-extents must be positive and finite")
	}
	return &Box{
		Center: center,
		Size:   size,
		bbox:   core.NewAABB(center.Subtract(size), center.Add(size)),
	}, nil
}

// Trace reports the entry as FaceFront and the exit as FaceBack. Crossings
// too far away to represent are skipped.
func (b *Box) Trace(ray core.Ray, hits *ShapeHitList) error {
	tNear, tFar, ok := b.bbox.Intersect(ray, math.Inf(-1), math.Inf(1))
	if !ok {
		return nil
	}
	if !math.IsInf(tNear, 0) {
		if _, err := hits.Add(tNear, FaceFront, 0); err != nil {
			return err
		}
	}
	if math.IsInf(tFar, 0) {
		return nil
	}
	_, err := hits.Add(tFar, FaceBack, 0)
	return err
}

// Normal returns the outward normal of the face closest to point
func (b *Box) Normal(point core.Vec3, faceHit int, data []byte) core.Vec3 {
	local := point.Subtract(b.Center)
	axis, best := 0, -1.0
	for i := 0; i < 3; i++ {
		if d := math.Abs(local.Axis(i)) / b.Size.Axis(i); d > best {
			axis, best = i, d
		}
	}

	var n core.Vec3
	sign := math.Copysign(1, local.Axis(axis))
	switch axis {
	case 0:
		n.X = sign
	case 1:
		n.Y = sign
	default:
		n.Z = sign
	}
	return n
}

// BoundingBox returns the box itself
func (b *Box) BoundingBox() core.AABB {
	return b.bbox
}
