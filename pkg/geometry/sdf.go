package geometry

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/df07/go-spectral-pathtracer/pkg/core"
)

// Sphere tracing limits
const (
	sdfMaxSteps      = 256
	sdfHitTolerance  = 1e-6
	sdfNormalEpsilon = 1e-5
	sdfBoundsPadding = 1e-4
	sdfMinStep       = 1e-7
)

// SDFShape renders an sdfx signed distance field by sphere tracing inside
// its bounding box. Only the first surface crossing along the ray is
// reported: FaceFront when entering the solid, FaceBack when leaving it.
type SDFShape struct {
	core.RefCount
	field sdf.SDF3
	bbox  core.AABB
}

// NewSDFShape wraps an sdfx solid
func NewSDFShape(field sdf.SDF3) (*SDFShape, error) {
	if field == nil {
		return nil, core.NewError(core.StatusInvalidArgument, "sdf.new", "nil field")
	}
	bb := field.BoundingBox()
	box := core.NewAABB(fromV3(bb.Min), fromV3(bb.Max)).Expand(sdfBoundsPadding)
	if !box.IsValid() || !box.Min.IsFinite() || !box.Max.IsFinite() {
		return nil, core.NewError(core.StatusInvalidArgument, "sdf.new", "field has no finite bounds")
	}
	return &SDFShape{field: field, bbox: box}, nil
}

// Field returns the wrapped sdfx solid
func (s *SDFShape) Field() sdf.SDF3 {
	return s.field
}

// Trace marches the ray through the field within its bounding box and the
// hit list's range
func (s *SDFShape) Trace(ray core.Ray, hits *ShapeHitList) error {
	tMin, tMax := hits.Range()
	tNear, tFar, ok := s.bbox.Intersect(ray, tMin, tMax)
	if !ok {
		return nil
	}

	speed := ray.Direction.Length()
	t := tNear
	inside := s.distance(ray.At(t)) < 0

	for i := 0; i < sdfMaxSteps && t <= tFar; i++ {
		d := s.distance(ray.At(t))
		if (d < 0) != inside || math.Abs(d) < sdfHitTolerance {
			return s.report(hits, t, inside)
		}
		t += math.Max(math.Abs(d), sdfMinStep) / speed
	}
	return nil
}

func (s *SDFShape) report(hits *ShapeHitList, t float64, inside bool) error {
	face := FaceFront
	if inside {
		face = FaceBack
	}
	_, err := hits.Add(t, face, 0)
	return err
}

func (s *SDFShape) distance(p core.Vec3) float64 {
	return s.field.Evaluate(toV3(p))
}

// Normal estimates the field gradient by central differences
func (s *SDFShape) Normal(point core.Vec3, faceHit int, data []byte) core.Vec3 {
	const e = sdfNormalEpsilon
	return core.NewVec3(
		s.distance(point.Add(core.NewVec3(e, 0, 0)))-s.distance(point.Subtract(core.NewVec3(e, 0, 0))),
		s.distance(point.Add(core.NewVec3(0, e, 0)))-s.distance(point.Subtract(core.NewVec3(0, e, 0))),
		s.distance(point.Add(core.NewVec3(0, 0, e)))-s.distance(point.Subtract(core.NewVec3(0, 0, e))),
	).Normalize()
}

// BoundingBox returns the padded bounds of the field
func (s *SDFShape) BoundingBox() core.AABB {
	return s.bbox
}

func toV3(p core.Vec3) v3.Vec {
	return v3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

func fromV3(p v3.Vec) core.Vec3 {
	return core.NewVec3(p.X, p.Y, p.Z)
}

// SDFBox creates a box solid of the given full size centred at the origin
func SDFBox(size core.Vec3, round float64) (sdf.SDF3, error) {
	field, err := sdf.Box3D(toV3(size), round)
	if err != nil {
		return nil, core.WrapError(core.StatusInvalidArgument, "sdf.box", err)
	}
	return field, nil
}

// SDFSphere creates a sphere solid centred at the origin
func SDFSphere(radius float64) (sdf.SDF3, error) {
	field, err := sdf.Sphere3D(radius)
	if err != nil {
		return nil, core.WrapError(core.StatusInvalidArgument, "sdf.sphere", err)
	}
	return field, nil
}

// SDFUnion combines solids
func SDFUnion(fields ...sdf.SDF3) (sdf.SDF3, error) {
	if len(fields) == 0 {
		return nil, core.NewError(core.StatusInvalidArgument, "sdf.union", "no solids")
	}
	return sdf.Union3D(fields...), nil
}

// SDFTranslate moves a solid by offset
func SDFTranslate(field sdf.SDF3, offset core.Vec3) sdf.SDF3 {
	return sdf.Transform3D(field, sdf.Translate3d(toV3(offset)))
}

// SDFCylinder creates a cylinder along the z axis centred at the origin
func SDFCylinder(height, radius, round float64) (sdf.SDF3, error) {
	field, err := sdf.Cylinder3D(height, radius, round)
	if err != nil {
		return nil, core.WrapError(core.StatusInvalidArgument, "sdf.cylinder", err)
	}
	return field, nil
}
