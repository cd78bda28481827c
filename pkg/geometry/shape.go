package geometry

import (
	"math"

	"github.com/df07/go-spectral-pathtracer/pkg/core"
)

// Shape is a primitive defined in its own model space. Trace reports every
// intersection of the model-space ray into hits; distances are ray
// parameters along the ray it was given.
type Shape interface {
	Trace(ray core.Ray, hits *ShapeHitList) error
}

// Normaler is implemented by shapes that can recover a model-space surface
// normal for one of their own hits
type Normaler interface {
	Normal(point core.Vec3, faceHit int, data []byte) core.Vec3
}

// Bounded is implemented by shapes with a finite model-space extent.
// Shapes without bounds are tested against every ray.
type Bounded interface {
	BoundingBox() core.AABB
}

// Face ids shared by the built-in shapes
const (
	FaceFront = 0 // Ray arrives from the outside / positive side
	FaceBack  = 1 // Ray arrives from the inside / negative side
)

// LocalHit is one intersection reported by a shape
type LocalHit struct {
	Distance float64
	FaceHit  int
	Data     []byte // Owned by the tester's scratch arena
}

// ShapeHitList collects the hits of a single Shape.Trace call. Its storage
// is reused across calls, so shapes must not keep it.
type ShapeHitList struct {
	hits  []LocalHit
	arena *arena
	tMin  float64
	tMax  float64
}

// reset prepares the list for a new Trace call
func (l *ShapeHitList) reset(a *arena, tMin, tMax float64) {
	l.hits = l.hits[:0]
	l.arena = a
	l.tMin = tMin
	l.tMax = tMax
}

// Add appends a hit and returns a zeroed buffer of blobSize bytes for the
// shape's auxiliary data. Any finite distance is accepted, negative ones
// included; the HitTester filters them against [tMin, tMax). Non-finite
// distances and negative sizes are rejected without modifying the list.
func (l *ShapeHitList) Add(distance float64, faceHit int, blobSize int) ([]byte, error) {
	if math.IsNaN(distance) || math.IsInf(distance, 0) {
		return nil, core.NewError(core.StatusInvalidArgument, "hitlist.add", "non-finite distance")
	}
	if blobSize < 0 {
		return nil, core.NewError(core.StatusInvalidArgument, "hitlist.add", "negative blob size")
	}

	var data []byte
	if blobSize > 0 {
		if l.arena == nil {
			l.arena = &arena{}
		}
		var err error
		if data, err = l.arena.alloc(blobSize); err != nil {
			return nil, err
		}
	}

	l.hits = append(l.hits, LocalHit{Distance: distance, FaceHit: faceHit, Data: data})
	return data, nil
}

// Range returns the interval [min, max) in which a hit could still become
// the closest one. Shapes may use it to stop searching early; hits outside
// it are accepted by Add but never win.
func (l *ShapeHitList) Range() (min, max float64) {
	return l.tMin, l.tMax
}

// Len returns the number of hits reported so far
func (l *ShapeHitList) Len() int {
	return len(l.hits)
}

// At returns the i-th reported hit
func (l *ShapeHitList) At(i int) LocalHit {
	return l.hits[i]
}
