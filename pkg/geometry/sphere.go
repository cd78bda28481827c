package geometry

import (
	"math"

	"github.com/df07/go-spectral-pathtracer/pkg/core"
)

// Sphere represents a sphere shape
type Sphere struct {
	core.RefCount
	Center core.Vec3
	Radius float64
}

// NewSphere creates a new sphere
func NewSphere(center core.Vec3, radius float64) (*Sphere, error) {
	if !center.IsFinite() || !(radius > 0) || math.IsInf(radius, 0) {
		return nil, core.NewError(core.StatusInvalidArgument, "sphere.new", "radius must be positive and finite")
	}
	return &Sphere{Center: center, Radius: radius}, nil
}

// Trace reports both crossings of the sphere: the entry as FaceFront and
// the exit as FaceBack
func (s *Sphere) Trace(ray core.Ray, hits *ShapeHitList) error {
	// Vector from ray origin to sphere center
	oc := ray.Origin.Subtract(s.Center)

	// Quadratic equation coefficients: at² + 2bt + c = 0
	a := ray.Direction.Dot(ray.Direction)
	halfB := oc.Dot(ray.Direction)
	c := oc.Dot(oc) - s.Radius*s.Radius

	discriminant := halfB*halfB - a*c
	if discriminant < 0 {
		return nil
	}
	sqrtD := math.Sqrt(discriminant)

	if _, err := hits.Add((-halfB-sqrtD)/a, FaceFront, 0); err != nil {
		return err
	}
	_, err := hits.Add((-halfB+sqrtD)/a, FaceBack, 0)
	return err
}

// Normal returns the outward normal at point
func (s *Sphere) Normal(point core.Vec3, faceHit int, data []byte) core.Vec3 {
	return point.Subtract(s.Center).Multiply(1.0 / s.Radius)
}

// BoundingBox returns the axis-aligned bounding box for this sphere
func (s *Sphere) BoundingBox() core.AABB {
	radius := core.NewVec3(s.Radius, s.Radius, s.Radius)
	return core.NewAABB(
		s.Center.Subtract(radius),
		s.Center.Add(radius),
	)
}
