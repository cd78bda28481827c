package scene

import (
	"slices"

	"github.com/df07/go-spectral-pathtracer/pkg/core"
	"github.com/df07/go-spectral-pathtracer/pkg/geometry"
)

// boxPadding widens stored bounds so rounding in transformed shapes can
// never place a hit just outside its box
const boxPadding = 1e-7

// boundedItem is one geometry with finite world bounds
type boundedItem struct {
	index int
	box   core.AABB
}

// partition splits geometries into bounded items and always-tested indices
func partition(geometries []*geometry.Geometry) (bounded []boundedItem, unbounded []int) {
	for i, g := range geometries {
		box, ok := g.BoundingBox()
		if !ok || !box.Min.IsFinite() || !box.Max.IsFinite() {
			unbounded = append(unbounded, i)
			continue
		}
		bounded = append(bounded, boundedItem{index: i, box: box.Expand(boxPadding)})
	}
	return bounded, unbounded
}

// testCandidates tests the candidate geometries in insertion order, so the
// result including exact ties matches a linear scan. Candidates whose box
// is entered no earlier than the current best are skipped.
func testCandidates(geometries []*geometry.Geometry, boxes []core.AABB, candidates []int, ray core.Ray, tester *geometry.HitTester) error {
	slices.Sort(candidates)
	candidates = slices.Compact(candidates)

	tMin, _ := tester.Range()
	for _, i := range candidates {
		if boxes[i].IsValid() {
			if _, _, ok := boxes[i].Intersect(ray, tMin, tester.Closest()); !ok {
				continue
			}
		}
		if err := geometries[i].TestRay(ray, tester); err != nil {
			return err
		}
	}
	return nil
}

// boxTable returns per-geometry bounds, with an invalid (inverted) box for
// unbounded geometries
func boxTable(count int, bounded []boundedItem) []core.AABB {
	inverted := core.NewAABB(core.NewVec3(1, 1, 1), core.NewVec3(-1, -1, -1))
	boxes := make([]core.AABB, count)
	for i := range boxes {
		boxes[i] = inverted
	}
	for _, item := range bounded {
		boxes[item.index] = item.box
	}
	return boxes
}
