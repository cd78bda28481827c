package core

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// Matrix is an immutable 4x4 affine transform (row-major) with a lazily
// computed, memoized inverse. Matrices are safe for concurrent use.
type Matrix struct {
	m [4][4]float64

	once    sync.Once
	inverse *Matrix
	invErr  error
}

// NewMatrix creates a matrix from row-major elements
func NewMatrix(rows [4][4]float64) *Matrix {
	return &Matrix{m: rows}
}

// Identity returns the identity transform
func Identity() *Matrix {
	return NewMatrix([4][4]float64{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	})
}

// Translate returns a translation by offset
func Translate(offset Vec3) *Matrix {
	return NewMatrix([4][4]float64{
		{1, 0, 0, offset.X},
		{0, 1, 0, offset.Y},
		{0, 0, 1, offset.Z},
		{0, 0, 0, 1},
	})
}

// Scale returns a non-uniform scale about the origin
func Scale(factors Vec3) *Matrix {
	return NewMatrix([4][4]float64{
		{factors.X, 0, 0, 0},
		{0, factors.Y, 0, 0},
		{0, 0, factors.Z, 0},
		{0, 0, 0, 1},
	})
}

// Rotate returns a right-handed rotation of angle radians about axis
func Rotate(axis Vec3, angle float64) *Matrix {
	a := axis.Normalize()
	s, c := math.Sincos(angle)
	t := 1 - c
	return NewMatrix([4][4]float64{
		{t*a.X*a.X + c, t*a.X*a.Y - s*a.Z, t*a.X*a.Z + s*a.Y, 0},
		{t*a.X*a.Y + s*a.Z, t*a.Y*a.Y + c, t*a.Y*a.Z - s*a.X, 0},
		{t*a.X*a.Z - s*a.Y, t*a.Y*a.Z + s*a.X, t*a.Z*a.Z + c, 0},
		{0, 0, 0, 1},
	})
}

// At returns the element at row r, column c
func (m *Matrix) At(r, c int) float64 {
	return m.m[r][c]
}

// Mul returns m*other, i.e. other is applied first
func (m *Matrix) Mul(other *Matrix) *Matrix {
	var out [4][4]float64
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			sum := 0.0
			for k := 0; k < 4; k++ {
				sum += m.m[r][k] * other.m[k][c]
			}
			out[r][c] = sum
		}
	}
	return NewMatrix(out)
}

// Transpose returns the transposed matrix
func (m *Matrix) Transpose() *Matrix {
	var out [4][4]float64
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out[r][c] = m.m[c][r]
		}
	}
	return NewMatrix(out)
}

// ApplyPoint transforms a point (w=1)
func (m *Matrix) ApplyPoint(p Vec3) Vec3 {
	return Vec3{
		X: m.m[0][0]*p.X + m.m[0][1]*p.Y + m.m[0][2]*p.Z + m.m[0][3],
		Y: m.m[1][0]*p.X + m.m[1][1]*p.Y + m.m[1][2]*p.Z + m.m[1][3],
		Z: m.m[2][0]*p.X + m.m[2][1]*p.Y + m.m[2][2]*p.Z + m.m[2][3],
	}
}

// ApplyVector transforms a direction (w=0); translation is ignored
func (m *Matrix) ApplyVector(v Vec3) Vec3 {
	return Vec3{
		X: m.m[0][0]*v.X + m.m[0][1]*v.Y + m.m[0][2]*v.Z,
		Y: m.m[1][0]*v.X + m.m[1][1]*v.Y + m.m[1][2]*v.Z,
		Z: m.m[2][0]*v.X + m.m[2][1]*v.Y + m.m[2][2]*v.Z,
	}
}

// ApplyTransposeVector multiplies v by the transpose of the linear part.
// Called on an inverse matrix this maps normals into the forward space.
func (m *Matrix) ApplyTransposeVector(v Vec3) Vec3 {
	return Vec3{
		X: m.m[0][0]*v.X + m.m[1][0]*v.Y + m.m[2][0]*v.Z,
		Y: m.m[0][1]*v.X + m.m[1][1]*v.Y + m.m[2][1]*v.Z,
		Z: m.m[0][2]*v.X + m.m[1][2]*v.Y + m.m[2][2]*v.Z,
	}
}

// ApplyRay transforms a ray. The direction is not renormalized, so ray
// parameters are identical before and after the transform.
func (m *Matrix) ApplyRay(r Ray) Ray {
	return Ray{Origin: m.ApplyPoint(r.Origin), Direction: m.ApplyVector(r.Direction)}
}

// ApplyBox returns the axis-aligned box bounding the transformed corners of box
func (m *Matrix) ApplyBox(box AABB) AABB {
	corners := make([]Vec3, 0, 8)
	for i := 0; i < 8; i++ {
		corner := box.Min
		if i&1 != 0 {
			corner.X = box.Max.X
		}
		if i&2 != 0 {
			corner.Y = box.Max.Y
		}
		if i&4 != 0 {
			corner.Z = box.Max.Z
		}
		corners = append(corners, m.ApplyPoint(corner))
	}
	return NewAABBFromPoints(corners...)
}

// Determinant returns the determinant of the full 4x4 matrix
func (m *Matrix) Determinant() float64 {
	return mat.Det(m.dense())
}

// Inverse returns the memoized inverse. The inverse of the returned matrix
// is m itself. A singular matrix yields ErrArithmeticDegenerate.
func (m *Matrix) Inverse() (*Matrix, error) {
	m.once.Do(func() {
		inv, err := m.invert()
		if err != nil {
			m.invErr = err
			return
		}
		// inv is not published yet, so pairing it back is race free
		inv.once.Do(func() { inv.inverse = m })
		m.inverse = inv
	})
	return m.inverse, m.invErr
}

func (m *Matrix) invert() (*Matrix, error) {
	a := m.dense()
	if det := mat.Det(a); det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		return nil, NewError(StatusArithmeticDegenerate, "matrix.inverse", "matrix is singular")
	}
	var inv mat.Dense
	if err := inv.Inverse(a); err != nil {
		return nil, WrapError(StatusArithmeticDegenerate, "matrix.inverse", err)
	}
	var out [4][4]float64
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out[r][c] = inv.At(r, c)
		}
	}
	return NewMatrix(out), nil
}

func (m *Matrix) dense() *mat.Dense {
	data := make([]float64, 0, 16)
	for r := 0; r < 4; r++ {
		data = append(data, m.m[r][:]...)
	}
	return mat.NewDense(4, 4, data)
}

// Equals reports whether two matrices match element-wise within tolerance
func (m *Matrix) Equals(other *Matrix, tolerance float64) bool {
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			if math.Abs(m.m[r][c]-other.m[r][c]) > tolerance {
				return false
			}
		}
	}
	return true
}

// InvertibleMatrix owns a forward transform together with its inverse so
// the pair can never be separated. It is reference-counted and shared by
// every Geometry placed with it.
type InvertibleMatrix struct {
	ref     RefCount
	forward *Matrix
	inverse *Matrix
}

// NewInvertibleMatrix pairs m with its inverse, failing with
// ErrArithmeticDegenerate when m is singular.
func NewInvertibleMatrix(m *Matrix) (*InvertibleMatrix, error) {
	if m == nil {
		return nil, NewError(StatusInvalidArgument, "matrix.invertible", "nil matrix")
	}
	inv, err := m.Inverse()
	if err != nil {
		return nil, err
	}
	im := &InvertibleMatrix{forward: m, inverse: inv}
	im.ref.OnDestroy(func() {
		im.forward = nil
		im.inverse = nil
	})
	return im, nil
}

// Forward returns the model-to-world matrix
func (im *InvertibleMatrix) Forward() *Matrix {
	if im == nil {
		return nil
	}
	im.ref.MustBeAlive("matrix")
	return im.forward
}

// Inverse returns the world-to-model matrix
func (im *InvertibleMatrix) Inverse() *Matrix {
	if im == nil {
		return nil
	}
	im.ref.MustBeAlive("matrix")
	return im.inverse
}

// Retain adds a reference. Nil is a no-op.
func (im *InvertibleMatrix) Retain() {
	if im == nil {
		return
	}
	im.ref.Retain()
}

// Release drops a reference; the last release drops both matrices. Nil is a no-op.
func (im *InvertibleMatrix) Release() bool {
	if im == nil {
		return false
	}
	return im.ref.Release()
}

// RefCount returns the number of live references
func (im *InvertibleMatrix) RefCount() int64 {
	if im == nil {
		return 0
	}
	return im.ref.Count()
}
