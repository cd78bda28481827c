package geometry

import (
	"math"

	"github.com/df07/go-spectral-pathtracer/pkg/core"
)

// Hit is the closest intersection resolved by a traversal. Data points into
// the tester's scratch arena and is only valid until the tester is reset.
type Hit struct {
	Geometry *Geometry
	Distance float64 // Ray parameter along Ray, identical in world and model space
	FaceHit  int
	Data     []byte
	Ray      core.Ray // World-space ray that was traced
}

// Interaction computes world-space shading data for the hit. This is done
// lazily so only the winning hit pays for the transforms.
func (h Hit) Interaction() (*Interaction, error) {
	if h.Geometry == nil {
		return nil, core.NewError(core.StatusInvalidArgument, "hit.interaction", "hit has no geometry")
	}
	point := h.Ray.At(h.Distance)
	normal, err := h.Geometry.WorldNormal(h.Ray, h.Distance, h.FaceHit, h.Data)
	if err != nil {
		return nil, err
	}

	in := &Interaction{
		Point:    point,
		Geometry: h.Geometry,
		FaceHit:  h.FaceHit,
		Data:     h.Data,
		Ray:      h.Ray,
		Distance: h.Distance,
	}
	in.SetFaceNormal(h.Ray, normal)
	return in, nil
}

// HitTester accumulates candidate hits during one traversal and keeps the
// closest one in the range [min, max). It owns the scratch arena for hit
// blobs. A tester belongs to one worker and is reused across traversals.
type HitTester struct {
	arena arena
	list  ShapeHitList

	ray   core.Ray
	tMin  float64
	tMax  float64
	best  Hit
	found bool

	candidates []int
}

// NewHitTester creates a tester with an unlimited scratch arena
func NewHitTester() *HitTester {
	return &HitTester{tMax: math.Inf(1)}
}

// SetScratchLimit caps the blob bytes a single traversal may allocate.
// Zero removes the cap.
func (h *HitTester) SetScratchLimit(bytes int) {
	h.arena.limit = max(0, bytes)
}

// Reset starts a new traversal of ray over [tMin, tMax). Blobs from the
// previous traversal are invalidated.
func (h *HitTester) Reset(ray core.Ray, tMin, tMax float64) error {
	if err := ray.Validate(); err != nil {
		return err
	}
	if math.IsNaN(tMin) || math.IsNaN(tMax) || tMin > tMax {
		return core.NewError(core.StatusInvalidArgument, "tester.reset", "invalid distance range")
	}
	h.arena.reset()
	h.ray = ray
	h.tMin = tMin
	h.tMax = tMax
	h.best = Hit{}
	h.found = false
	return nil
}

// Ray returns the world-space ray of the current traversal
func (h *HitTester) Ray() core.Ray {
	return h.ray
}

// Range returns the valid distance range [min, max) of the traversal
func (h *HitTester) Range() (min, max float64) {
	return h.tMin, h.tMax
}

// Closest returns the distance a new hit has to beat: the best distance so
// far, or the range maximum when nothing was accepted yet
func (h *HitTester) Closest() float64 {
	if h.found {
		return h.best.Distance
	}
	return h.tMax
}

// ReportHit offers a hit at distance along the world ray. It is accepted
// when it lies in [min, max) and is strictly closer than the current best,
// so the first of several equally distant hits wins.
func (h *HitTester) ReportHit(ray core.Ray, distance float64, geometry *Geometry, faceHit int, data []byte) bool {
	if !(distance >= h.tMin && distance < h.tMax) {
		return false
	}
	if h.found && !(distance < h.best.Distance) {
		return false
	}
	h.best = Hit{Geometry: geometry, Distance: distance, FaceHit: faceHit, Data: data, Ray: ray}
	h.found = true
	return true
}

// Resolve returns the closest accepted hit, if any
func (h *HitTester) Resolve() (Hit, bool) {
	return h.best, h.found
}

// Abort drops the best hit after a failed traversal
func (h *HitTester) Abort() {
	h.best = Hit{}
	h.found = false
}

// Candidates returns the tester's reusable index buffer, emptied, for
// scenes that collect candidate geometries before testing them
func (h *HitTester) Candidates() []int {
	return h.candidates[:0]
}

// StoreCandidates hands a possibly grown candidate buffer back for reuse
func (h *HitTester) StoreCandidates(candidates []int) {
	h.candidates = candidates
}

// testerState is everything a failed TestRay must restore
type testerState struct {
	best  Hit
	found bool
	mark  arenaMark
}

func (h *HitTester) snapshot() testerState {
	return testerState{best: h.best, found: h.found, mark: h.arena.mark()}
}

func (h *HitTester) restore(s testerState) {
	h.best = s.best
	h.found = s.found
	h.arena.rollback(s.mark)
}

// shapeList returns the shared hit list prepared for one Shape.Trace call
func (h *HitTester) shapeList() *ShapeHitList {
	h.list.reset(&h.arena, h.tMin, h.Closest())
	return &h.list
}
