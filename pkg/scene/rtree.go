package scene

import (
	"math"

	"github.com/dhconnelly/rtreego"

	"github.com/df07/go-spectral-pathtracer/pkg/core"
	"github.com/df07/go-spectral-pathtracer/pkg/geometry"
)

// R-tree node fan-out and the number of slabs a ray is cut into for
// box queries
const (
	rtreeMinChildren = 4
	rtreeMaxChildren = 16
	rtreeSegments    = 8
	rtreeMinLength   = 1e-9
)

// rtreeEntry adapts a bounded geometry to rtreego.Spatial
type rtreeEntry struct {
	index  int
	bounds rtreego.Rect
}

// Bounds implements rtreego.Spatial
func (e *rtreeEntry) Bounds() rtreego.Rect {
	return e.bounds
}

// RTreeScene answers rays through an R-tree over its bounded geometries.
// A ray is clipped to the tree bounds and cut into a few segments, each
// queried with its own bounding box. Unbounded geometries are tested
// against every ray.
type RTreeScene struct {
	collection
	tree      *rtreego.Rtree
	bounds    core.AABB
	boxes     []core.AABB
	unbounded []int
}

// NewRTreeScene bulk-loads the R-tree
func NewRTreeScene(geometries []*geometry.Geometry) (*RTreeScene, error) {
	s := &RTreeScene{}
	if err := s.init(geometries); err != nil {
		return nil, err
	}

	bounded, unbounded := partition(s.geometries)
	s.unbounded = unbounded
	s.boxes = boxTable(len(s.geometries), bounded)

	entries := make([]rtreego.Spatial, 0, len(bounded))
	for i, item := range bounded {
		rect, err := toRect(item.box)
		if err != nil {
			s.Release()
			return nil, err
		}
		entries = append(entries, &rtreeEntry{index: item.index, bounds: rect})
		if i == 0 {
			s.bounds = item.box
		} else {
			s.bounds = s.bounds.Union(item.box)
		}
	}
	if len(entries) > 0 {
		s.tree = rtreego.NewTree(3, rtreeMinChildren, rtreeMaxChildren, entries...)
	}
	return s, nil
}

// toRect converts a box to an rtreego rectangle, giving flat boxes a
// minimal thickness
func toRect(box core.AABB) (rtreego.Rect, error) {
	size := box.Size()
	rect, err := rtreego.NewRect(
		rtreego.Point{box.Min.X, box.Min.Y, box.Min.Z},
		[]float64{
			math.Max(size.X, rtreeMinLength),
			math.Max(size.Y, rtreeMinLength),
			math.Max(size.Z, rtreeMinLength),
		},
	)
	if err != nil {
		return rtreego.Rect{}, core.WrapError(core.StatusInvalidArgument, "rtree.rect", err)
	}
	return rect, nil
}

// Size returns the number of geometries stored in the tree
func (s *RTreeScene) Size() int {
	if s.tree == nil {
		return 0
	}
	return s.tree.Size()
}

// Trace gathers candidates from the R-tree and tests them in insertion order
func (s *RTreeScene) Trace(ray core.Ray, tester *geometry.HitTester) error {
	if s == nil {
		return nil
	}
	s.ref.MustBeAlive("scene")

	candidates := append(tester.Candidates(), s.unbounded...)
	if s.tree != nil {
		tMin, tMax := tester.Range()
		var err error
		if candidates, err = s.collect(ray, tMin, tMax, candidates); err != nil {
			return err
		}
	}
	defer tester.StoreCandidates(candidates)

	return testCandidates(s.geometries, s.boxes, candidates, ray, tester)
}

// collect queries the tree with the bounding boxes of consecutive pieces of
// the ray segment inside the tree bounds
func (s *RTreeScene) collect(ray core.Ray, tMin, tMax float64, out []int) ([]int, error) {
	t0, t1, ok := s.bounds.Intersect(ray, tMin, tMax)
	if !ok {
		return out, nil
	}

	step := (t1 - t0) / rtreeSegments
	for i := 0; i < rtreeSegments; i++ {
		a := ray.At(t0 + step*float64(i))
		b := ray.At(t0 + step*float64(i+1))
		if i == rtreeSegments-1 {
			b = ray.At(t1)
		}

		query, err := toRect(core.NewAABBFromPoints(a, b).Expand(boxPadding))
		if err != nil {
			return out, err
		}
		for _, found := range s.tree.SearchIntersect(query) {
			out = append(out, found.(*rtreeEntry).index)
		}

		// A zero-length segment (ray grazing a corner) needs only one query
		if step == 0 {
			break
		}
	}
	return out, nil
}
