package scene

import (
	"fmt"

	"github.com/df07/go-spectral-pathtracer/pkg/core"
	"github.com/df07/go-spectral-pathtracer/pkg/geometry"
)

// Scene is an immutable container of geometries with a single trace entry
// point. Trace reports every relevant candidate hit for ray into tester;
// implementations differ only in how they pick candidates, never in the
// closest hit they produce.
type Scene interface {
	Trace(ray core.Ray, tester *geometry.HitTester) error
	Geometries() []*geometry.Geometry
	Retain()
	Release() bool
}

// Accelerator selects a Scene implementation
type Accelerator string

const (
	AcceleratorList  Accelerator = "list"
	AcceleratorBVH   Accelerator = "bvh"
	AcceleratorRTree Accelerator = "rtree"
)

// ParseAccelerator validates an accelerator name; the empty name selects the list
func ParseAccelerator(name string) (Accelerator, error) {
	switch kind := Accelerator(name); kind {
	case AcceleratorList, AcceleratorBVH, AcceleratorRTree:
		return kind, nil
	case "":
		return AcceleratorList, nil
	default:
		return "", core.NewError(core.StatusNotSupported, "scene.accelerator", fmt.Sprintf("unknown accelerator %q", name))
	}
}

// New builds a scene of the requested kind over geometries. The scene
// retains every geometry; the caller keeps its own references.
func New(kind Accelerator, geometries []*geometry.Geometry) (Scene, error) {
	var (
		s   Scene
		err error
	)
	switch kind {
	case AcceleratorList, "":
		s, err = NewListScene(geometries)
	case AcceleratorBVH:
		s, err = NewBVHScene(geometries)
	case AcceleratorRTree:
		s, err = NewRTreeScene(geometries)
	default:
		return nil, core.NewError(core.StatusNotSupported, "scene.new", fmt.Sprintf("unknown accelerator %q", kind))
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Intersect runs one complete traversal: it resets tester to ray over
// [tMin, tMax), lets the scene report its candidates and resolves the
// closest hit. A failed traversal reports no hit. A nil scene never hits.
func Intersect(s Scene, ray core.Ray, tester *geometry.HitTester, tMin, tMax float64) (geometry.Hit, bool, error) {
	if tester == nil {
		return geometry.Hit{}, false, core.NewError(core.StatusInvalidArgument, "scene.intersect", "nil hit tester")
	}
	if err := tester.Reset(ray, tMin, tMax); err != nil {
		return geometry.Hit{}, false, err
	}
	if s == nil {
		return geometry.Hit{}, false, nil
	}
	if err := s.Trace(ray, tester); err != nil {
		tester.Abort()
		return geometry.Hit{}, false, err
	}
	hit, ok := tester.Resolve()
	return hit, ok, nil
}

// collection is the reference-counted geometry list shared by every scene
// kind. Geometries are kept in insertion order.
type collection struct {
	ref        core.RefCount
	geometries []*geometry.Geometry
}

func (c *collection) init(geometries []*geometry.Geometry) error {
	for i, g := range geometries {
		if g == nil {
			return core.NewError(core.StatusInvalidArgument, "scene.new", fmt.Sprintf("geometry %d is nil", i))
		}
		if g.RefCount() == 0 {
			return core.NewError(core.StatusInvalidArgument, "scene.new", fmt.Sprintf("geometry %d was released", i))
		}
	}

	c.geometries = make([]*geometry.Geometry, len(geometries))
	copy(c.geometries, geometries)
	for _, g := range c.geometries {
		g.Retain()
	}
	c.ref.OnDestroy(func() {
		for _, g := range c.geometries {
			g.Release()
		}
		c.geometries = nil
	})
	return nil
}

// Geometries returns the scene's geometries in insertion order. The slice
// must not be modified.
func (c *collection) Geometries() []*geometry.Geometry {
	if c == nil {
		return nil
	}
	c.ref.MustBeAlive("scene")
	return c.geometries
}

// Retain adds a reference. Nil is a no-op.
func (c *collection) Retain() {
	if c == nil {
		return
	}
	c.ref.Retain()
}

// Release drops a reference; the last one releases every geometry. Nil is
// a no-op.
func (c *collection) Release() bool {
	if c == nil {
		return false
	}
	return c.ref.Release()
}

// RefCount returns the number of live references
func (c *collection) RefCount() int64 {
	if c == nil {
		return 0
	}
	return c.ref.Count()
}
