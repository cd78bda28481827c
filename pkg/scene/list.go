package scene

import (
	"github.com/df07/go-spectral-pathtracer/pkg/core"
	"github.com/df07/go-spectral-pathtracer/pkg/geometry"
)

// ListScene tests every geometry against every ray, in insertion order
type ListScene struct {
	collection
}

// NewListScene creates a linear-scan scene
func NewListScene(geometries []*geometry.Geometry) (*ListScene, error) {
	s := &ListScene{}
	if err := s.init(geometries); err != nil {
		return nil, err
	}
	return s, nil
}

// Trace tests each geometry in turn and stops at the first failure
func (s *ListScene) Trace(ray core.Ray, tester *geometry.HitTester) error {
	if s == nil {
		return nil
	}
	s.ref.MustBeAlive("scene")
	for _, g := range s.geometries {
		if err := g.TestRay(ray, tester); err != nil {
			return err
		}
	}
	return nil
}
