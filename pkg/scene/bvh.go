package scene

import (
	"github.com/df07/go-spectral-pathtracer/pkg/core"
	"github.com/df07/go-spectral-pathtracer/pkg/geometry"
)

// Leaf threshold: if we have this many or fewer geometries, store them in a leaf node
const leafThreshold = 8

// bvhNode represents a node in the Bounding Volume Hierarchy
type bvhNode struct {
	box   core.AABB
	left  *bvhNode
	right *bvhNode
	items []int // Geometry indices for leaf nodes (nil for internal nodes)
}

// BVHScene answers rays through a bounding volume hierarchy over its
// bounded geometries. Unbounded geometries (infinite planes) are tested
// against every ray.
type BVHScene struct {
	collection
	root      *bvhNode
	boxes     []core.AABB
	unbounded []int
}

// NewBVHScene builds the hierarchy using midpoint splits along the longest axis
func NewBVHScene(geometries []*geometry.Geometry) (*BVHScene, error) {
	s := &BVHScene{}
	if err := s.init(geometries); err != nil {
		return nil, err
	}

	bounded, unbounded := partition(s.geometries)
	s.unbounded = unbounded
	s.boxes = boxTable(len(s.geometries), bounded)
	if len(bounded) > 0 {
		s.root = buildBVH(bounded)
	}
	return s, nil
}

// buildBVH recursively builds the BVH using fast midpoint splitting
func buildBVH(items []boundedItem) *bvhNode {
	box := items[0].box
	for _, item := range items[1:] {
		box = box.Union(item.box)
	}

	if len(items) <= leafThreshold {
		return newLeaf(box, items)
	}

	axis, splitPos, ok := findSplit(items)
	if !ok {
		return newLeaf(box, items)
	}

	left, right := partitionItems(items, axis, splitPos)

	// Ensure we don't create empty partitions
	if len(left) == 0 || len(right) == 0 {
		return newLeaf(box, items)
	}

	return &bvhNode{
		box:   box,
		left:  buildBVH(left),
		right: buildBVH(right),
	}
}

func newLeaf(box core.AABB, items []boundedItem) *bvhNode {
	indices := make([]int, len(items))
	for i, item := range items {
		indices[i] = item.index
	}
	return &bvhNode{box: box, items: indices}
}

// findSplit picks the longest axis of the centroid bounds and splits at its middle
func findSplit(items []boundedItem) (axis int, splitPos float64, ok bool) {
	centroids := core.NewAABB(items[0].box.Center(), items[0].box.Center())
	for _, item := range items[1:] {
		c := item.box.Center()
		centroids = centroids.Union(core.NewAABB(c, c))
	}

	axis = centroids.LongestAxis()
	minVal, maxVal := centroids.Min.Axis(axis), centroids.Max.Axis(axis)

	// Skip if no extent along this axis
	if maxVal <= minVal {
		return 0, 0, false
	}
	return axis, (minVal + maxVal) * 0.5, true
}

// partitionItems partitions items based on the chosen axis and split position
func partitionItems(items []boundedItem, axis int, splitPos float64) (left, right []boundedItem) {
	for _, item := range items {
		if item.box.Center().Axis(axis) < splitPos {
			left = append(left, item)
		} else {
			right = append(right, item)
		}
	}
	return left, right
}

// Trace collects every geometry whose node boxes the ray crosses, then
// tests them in insertion order
func (s *BVHScene) Trace(ray core.Ray, tester *geometry.HitTester) error {
	if s == nil {
		return nil
	}
	s.ref.MustBeAlive("scene")

	candidates := append(tester.Candidates(), s.unbounded...)
	if s.root != nil {
		tMin, tMax := tester.Range()
		candidates = s.root.collect(ray, tMin, tMax, candidates)
	}
	defer tester.StoreCandidates(candidates)

	return testCandidates(s.geometries, s.boxes, candidates, ray, tester)
}

// collect appends the leaf items of every node the ray segment crosses
func (n *bvhNode) collect(ray core.Ray, tMin, tMax float64, out []int) []int {
	if _, _, ok := n.box.Intersect(ray, tMin, tMax); !ok {
		return out
	}
	if n.items != nil {
		return append(out, n.items...)
	}
	if n.left != nil {
		out = n.left.collect(ray, tMin, tMax, out)
	}
	if n.right != nil {
		out = n.right.collect(ray, tMin, tMax, out)
	}
	return out
}

// Stats summarizes the hierarchy shape
type Stats struct {
	TotalNodes int
	LeafNodes  int
	MaxDepth   int
	AvgDepth   float64
	MaxLeaf    int // Largest number of geometries in one leaf
	Bounded    int
	Unbounded  int
}

// Stats walks the hierarchy
func (s *BVHScene) Stats() Stats {
	stats := Stats{Unbounded: len(s.unbounded)}
	if s.root == nil {
		return stats
	}
	s.root.collectStats(0, &stats)
	if stats.LeafNodes > 0 {
		stats.AvgDepth /= float64(stats.LeafNodes)
	}
	return stats
}

// collectStats recursively collects statistics about the BVH
func (n *bvhNode) collectStats(depth int, stats *Stats) {
	stats.TotalNodes++
	stats.MaxDepth = max(stats.MaxDepth, depth)

	if n.items != nil {
		stats.LeafNodes++
		stats.Bounded += len(n.items)
		stats.MaxLeaf = max(stats.MaxLeaf, len(n.items))
		stats.AvgDepth += float64(depth) // Accumulate depth for average calculation
		return
	}
	if n.left != nil {
		n.left.collectStats(depth+1, stats)
	}
	if n.right != nil {
		n.right.collectStats(depth+1, stats)
	}
}
