package geometry

import (
	"github.com/df07/go-spectral-pathtracer/pkg/core"
)

// Placement describes how a Geometry maps its shape into world space
type Placement int

const (
	// PlacementIdentity: the shape is used as is
	PlacementIdentity Placement = iota
	// PlacementPremultiplied: the shape's coordinates already include the
	// transform, which is kept only for reference
	PlacementPremultiplied
	// PlacementTransformed: rays are moved into model space before tracing
	PlacementTransformed
)

// String returns the placement name
func (p Placement) String() string {
	switch p {
	case PlacementIdentity:
		return "identity"
	case PlacementPremultiplied:
		return "premultiplied"
	case PlacementTransformed:
		return "transformed"
	default:
		return "unknown"
	}
}

// Geometry places a Shape in world space and attaches its Surface. It is
// reference-counted and may be shared by several scenes; it holds a
// reference to its shape and matrix until destroyed.
type Geometry struct {
	ref           core.RefCount
	shape         Shape
	matrix        *core.InvertibleMatrix
	premultiplied bool
	surface       Surface
}

// NewGeometry places shape in world space without a transform
func NewGeometry(shape Shape, surface Surface) (*Geometry, error) {
	return NewTransformedGeometry(shape, nil, false, surface)
}

// NewTransformedGeometry places shape with matrix. When premultiplied is
// set the shape is assumed to be authored in world space already. A nil
// matrix yields an identity placement.
func NewTransformedGeometry(shape Shape, matrix *core.InvertibleMatrix, premultiplied bool, surface Surface) (*Geometry, error) {
	if shape == nil {
		return nil, core.NewError(core.StatusInvalidArgument, "geometry.new", "nil shape")
	}
	if matrix == nil {
		premultiplied = false
	}

	core.Retain(shape)
	matrix.Retain()

	g := &Geometry{
		shape:         shape,
		matrix:        matrix,
		premultiplied: premultiplied,
		surface:       surface,
	}
	g.ref.OnDestroy(func() {
		core.Release(g.shape)
		g.matrix.Release()
		g.shape = nil
		g.matrix = nil
		g.surface = nil
	})
	return g, nil
}

// Placement reports which of the three placements applies
func (g *Geometry) Placement() Placement {
	switch {
	case g == nil || g.matrix == nil:
		return PlacementIdentity
	case g.premultiplied:
		return PlacementPremultiplied
	default:
		return PlacementTransformed
	}
}

// Shape returns the placed shape
func (g *Geometry) Shape() Shape {
	if g == nil {
		return nil
	}
	g.ref.MustBeAlive("geometry")
	return g.shape
}

// Matrix returns the placement transform, or nil
func (g *Geometry) Matrix() *core.InvertibleMatrix {
	if g == nil {
		return nil
	}
	g.ref.MustBeAlive("geometry")
	return g.matrix
}

// Surface returns the attached surface, or nil
func (g *Geometry) Surface() Surface {
	if g == nil {
		return nil
	}
	g.ref.MustBeAlive("geometry")
	return g.surface
}

// Retain adds a reference. Nil is a no-op.
func (g *Geometry) Retain() {
	if g == nil {
		return
	}
	g.ref.Retain()
}

// Release drops a reference and reports whether the geometry was destroyed.
// Nil is a no-op.
func (g *Geometry) Release() bool {
	if g == nil {
		return false
	}
	return g.ref.Release()
}

// RefCount returns the number of live references
func (g *Geometry) RefCount() int64 {
	if g == nil {
		return 0
	}
	return g.ref.Count()
}

// BoundingBox returns the world-space bounds. ok is false for shapes
// without a finite extent.
func (g *Geometry) BoundingBox() (box core.AABB, ok bool) {
	if g == nil {
		return core.AABB{}, false
	}
	g.ref.MustBeAlive("geometry")
	bounded, ok := g.shape.(Bounded)
	if !ok {
		return core.AABB{}, false
	}
	box = bounded.BoundingBox()
	if g.Placement() == PlacementTransformed {
		box = g.matrix.Forward().ApplyBox(box)
	}
	return box, true
}

// ModelRay moves a world ray into the shape's model space. The direction is
// not renormalized, so ray parameters are the same in both spaces.
func (g *Geometry) ModelRay(ray core.Ray) core.Ray {
	if g.Placement() != PlacementTransformed {
		return ray
	}
	return g.matrix.Inverse().ApplyRay(ray)
}

// TestRay traces ray against the shape and reports every local hit to the
// tester. On failure the tester is restored to its state before the call.
func (g *Geometry) TestRay(ray core.Ray, tester *HitTester) error {
	if g == nil {
		return nil
	}
	if tester == nil {
		return core.NewError(core.StatusInvalidArgument, "geometry.testray", "nil hit tester")
	}
	g.ref.MustBeAlive("geometry")

	state := tester.snapshot()
	hits := tester.shapeList()
	if err := g.shape.Trace(g.ModelRay(ray), hits); err != nil {
		tester.restore(state)
		return err
	}

	for i := 0; i < hits.Len(); i++ {
		hit := hits.At(i)
		tester.ReportHit(ray, hit.Distance, g, hit.FaceHit, hit.Data)
	}
	return nil
}

// WorldNormal recomputes the outward world-space unit normal for a hit at
// distance along the world ray. Shapes without a Normaler report
// ErrNotSupported.
func (g *Geometry) WorldNormal(ray core.Ray, distance float64, faceHit int, data []byte) (core.Vec3, error) {
	g.ref.MustBeAlive("geometry")
	normaler, ok := g.shape.(Normaler)
	if !ok {
		return core.Vec3{}, core.NewError(core.StatusNotSupported, "geometry.normal", "shape has no normal capability")
	}

	local := normaler.Normal(g.ModelRay(ray).At(distance), faceHit, data)
	if g.Placement() == PlacementTransformed {
		// Normals transform with the inverse transpose
		local = g.matrix.Inverse().ApplyTransposeVector(local)
	}

	normal := local.Normalize()
	if normal.LengthSquared() == 0 || !normal.IsFinite() {
		return core.Vec3{}, core.NewError(core.StatusArithmeticDegenerate, "geometry.normal", "degenerate normal")
	}
	return normal, nil
}
