package geometry

import (
	"encoding/binary"
	"math"

	"github.com/df07/go-spectral-pathtracer/pkg/core"
)

// triangleBlobSize holds the barycentric coordinates (u, v) of a hit
const triangleBlobSize = 16

// Triangle represents a single triangle defined by three vertices. With
// vertex normals set, Normal interpolates them using the barycentric
// coordinates stored in each hit's blob.
type Triangle struct {
	core.RefCount
	V0, V1, V2 core.Vec3
	normals    *[3]core.Vec3 // Optional per-vertex normals
	normal     core.Vec3     // Cached geometric normal
	bbox       core.AABB
}

// NewTriangle creates a new triangle from three vertices
func NewTriangle(v0, v1, v2 core.Vec3) (*Triangle, error) {
	t := &Triangle{V0: v0, V1: v1, V2: v2}
	t.normal = v1.Subtract(v0).Cross(v2.Subtract(v0)).Normalize()
	if t.normal.LengthSquared() == 0 || !t.normal.IsFinite() {
		return nil, core.NewError(core.StatusArithmeticDegenerate, "triangle.new", "zero-area triangle")
	}
	t.bbox = core.NewAABBFromPoints(v0, v1, v2)
	return t, nil
}

// NewSmoothTriangle creates a triangle with per-vertex shading normals
func NewSmoothTriangle(v0, v1, v2, n0, n1, n2 core.Vec3) (*Triangle, error) {
	t, err := NewTriangle(v0, v1, v2)
	if err != nil {
		return nil, err
	}
	t.normals = &[3]core.Vec3{n0.Normalize(), n1.Normalize(), n2.Normalize()}
	return t, nil
}

// Trace intersects the triangle using the Möller-Trumbore algorithm. The
// face is FaceFront when the ray sees the vertices counter-clockwise.
func (t *Triangle) Trace(ray core.Ray, hits *ShapeHitList) error {
	edge1 := t.V1.Subtract(t.V0)
	edge2 := t.V2.Subtract(t.V0)

	h := ray.Direction.Cross(edge2)
	a := edge1.Dot(h)

	// If determinant is near zero, ray lies in plane of triangle
	if core.NearZero(a, ray.Direction.Length()*edge1.Length()*edge2.Length()) {
		return nil
	}

	f := 1.0 / a
	s := ray.Origin.Subtract(t.V0)
	u := f * s.Dot(h)
	if u < 0.0 || u > 1.0 {
		return nil
	}

	q := s.Cross(edge1)
	v := f * ray.Direction.Dot(q)
	if v < 0.0 || u+v > 1.0 {
		return nil
	}

	distance := f * edge2.Dot(q)
	if tMin, tMax := hits.Range(); distance < tMin || distance >= tMax {
		return nil
	}

	face := FaceFront
	if a < 0 {
		face = FaceBack
	}
	data, err := hits.Add(distance, face, triangleBlobSize)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(data[0:8], math.Float64bits(u))
	binary.LittleEndian.PutUint64(data[8:16], math.Float64bits(v))
	return nil
}

// Barycentrics decodes the (u, v) coordinates stored by Trace
func Barycentrics(data []byte) (u, v float64, ok bool) {
	if len(data) < triangleBlobSize {
		return 0, 0, false
	}
	u = math.Float64frombits(binary.LittleEndian.Uint64(data[0:8]))
	v = math.Float64frombits(binary.LittleEndian.Uint64(data[8:16]))
	return u, v, true
}

// Normal returns the interpolated vertex normal when available, otherwise
// the geometric normal
func (t *Triangle) Normal(point core.Vec3, faceHit int, data []byte) core.Vec3 {
	if t.normals == nil {
		return t.normal
	}
	u, v, ok := Barycentrics(data)
	if !ok {
		return t.normal
	}
	n := t.normals
	return n[0].Multiply(1 - u - v).Add(n[1].Multiply(u)).Add(n[2].Multiply(v))
}

// BoundingBox returns the axis-aligned bounding box for this triangle
func (t *Triangle) BoundingBox() core.AABB {
	return t.bbox
}
