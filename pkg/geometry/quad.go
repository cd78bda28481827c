package geometry

import (
	"encoding/binary"
	"math"

	"github.com/df07/go-spectral-pathtracer/pkg/core"
)

// quadBlobSize holds the (alpha, beta) edge coordinates of a hit
const quadBlobSize = 16

// Quad is the parallelogram spanned by two edge vectors from a corner. Its
// outward side is the direction of U × V.
type Quad struct {
	core.RefCount
	Corner core.Vec3 // One corner of the quad
	U      core.Vec3 // First edge vector
	V      core.Vec3 // Second edge vector
	normal core.Vec3 // Unit U × V
	d      float64   // Plane equation constant: normal · p = d
	w      core.Vec3 // Cached normal / |U × V|² for edge coordinates
	bbox   core.AABB
}

// NewQuad creates a new quad from a corner point and two edge vectors
func NewQuad(corner, u, v core.Vec3) (*Quad, error) {
	cross := u.Cross(v)
	if !corner.IsFinite() || !cross.IsFinite() || cross.LengthSquared() == 0 {
		return nil, core.NewError(core.StatusArithmeticDegenerate, "quad.new", "edges must span a parallelogram")
	}
	normal := cross.Normalize()
	return &Quad{
		Corner: corner,
		U:      u,
		V:      v,
		normal: normal,
		d:      normal.Dot(corner),
		w:      cross.Multiply(1.0 / cross.Dot(cross)),
		bbox:   core.NewAABBFromPoints(corner, corner.Add(u), corner.Add(v), corner.Add(u).Add(v)),
	}, nil
}

// Trace reports the crossing of the quad's plane when it lies inside the
// parallelogram
func (q *Quad) Trace(ray core.Ray, hits *ShapeHitList) error {
	denominator := ray.Direction.Dot(q.normal)

	// Parallel rays never cross
	if core.NearZero(denominator, ray.Direction.Length()) {
		return nil
	}

	t := (q.d - ray.Origin.Dot(q.normal)) / denominator
	if tMin, tMax := hits.Range(); t < tMin || t >= tMax {
		return nil
	}

	hitVector := ray.At(t).Subtract(q.Corner)
	alpha := q.w.Dot(hitVector.Cross(q.V))
	beta := q.w.Dot(q.U.Cross(hitVector))
	if alpha < 0 || alpha > 1 || beta < 0 || beta > 1 {
		return nil
	}

	face := FaceFront
	if denominator > 0 {
		face = FaceBack
	}
	data, err := hits.Add(t, face, quadBlobSize)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(data[0:8], math.Float64bits(alpha))
	binary.LittleEndian.PutUint64(data[8:16], math.Float64bits(beta))
	return nil
}

// QuadCoordinates decodes the edge coordinates stored by Quad.Trace
func QuadCoordinates(data []byte) (alpha, beta float64, ok bool) {
	if len(data) < quadBlobSize {
		return 0, 0, false
	}
	alpha = math.Float64frombits(binary.LittleEndian.Uint64(data[0:8]))
	beta = math.Float64frombits(binary.LittleEndian.Uint64(data[8:16]))
	return alpha, beta, true
}

// Normal returns the unit U × V direction
func (q *Quad) Normal(point core.Vec3, faceHit int, data []byte) core.Vec3 {
	return q.normal
}

// BoundingBox returns the bounds of the four corners
func (q *Quad) BoundingBox() core.AABB {
	return q.bbox
}
