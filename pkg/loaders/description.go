// Package loaders builds in-memory scene descriptions from scene scripts and
// built-in presets.
package loaders

import (
	"github.com/df07/go-spectral-pathtracer/pkg/core"
	"github.com/df07/go-spectral-pathtracer/pkg/geometry"
	"github.com/df07/go-spectral-pathtracer/pkg/integrator"
	"github.com/df07/go-spectral-pathtracer/pkg/renderer"
	"github.com/df07/go-spectral-pathtracer/pkg/scene"
)

// Description is everything needed to render a scene: the geometries, where
// the camera sits and what rays see when they leave the scene. It owns one
// reference to each geometry until Release.
type Description struct {
	Name       string
	Geometries []*geometry.Geometry
	Camera     renderer.CameraConfig
	Background integrator.Background
}

// NewDescription returns an empty description with the default camera and a
// black background
func NewDescription(name string) *Description {
	return &Description{
		Name:       name,
		Camera:     renderer.DefaultCameraConfig(),
		Background: integrator.UniformBackground{},
	}
}

// AddObject places shape with an optional transform and attaches surface.
// The description takes its own references; the caller keeps theirs.
func (d *Description) AddObject(shape geometry.Shape, transform *core.InvertibleMatrix, surface geometry.Surface) error {
	g, err := geometry.NewTransformedGeometry(shape, transform, false, surface)
	if err != nil {
		return err
	}
	d.Geometries = append(d.Geometries, g)
	return nil
}

// Build creates a scene of the requested kind. The scene holds its own
// references, so the description may be released afterwards.
func (d *Description) Build(kind scene.Accelerator) (scene.Scene, error) {
	return scene.New(kind, d.Geometries)
}

// Release drops the description's geometry references
func (d *Description) Release() {
	for _, g := range d.Geometries {
		g.Release()
	}
	d.Geometries = nil
}
