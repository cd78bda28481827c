package loaders

import (
	"fmt"
	"math"

	"github.com/df07/go-spectral-pathtracer/pkg/core"
	"github.com/df07/go-spectral-pathtracer/pkg/geometry"
	"github.com/df07/go-spectral-pathtracer/pkg/integrator"
	"github.com/df07/go-spectral-pathtracer/pkg/material"
	"github.com/df07/go-spectral-pathtracer/pkg/renderer"
	"github.com/df07/go-spectral-pathtracer/pkg/spectrum"
)

// Preset is a scene built in code
type Preset struct {
	Name        string
	Description string
	Build       func() (*Description, error)
}

// Presets returns the built-in scenes
func Presets() []Preset {
	return []Preset{
		{"cornell", "Cornell box with a mirror sphere, a glass sphere and a ceiling light", NewCornellScene},
		{"furnace", "Camera inside a glowing diffuse sphere; converges to emission / (1 - albedo)", NewFurnaceScene},
		{"plane", "Grey diffuse ground plane under a uniform sky", NewPlaneScene},
		{"spheres", "Diffuse, metal and glass spheres on a ground plane under a gradient sky", NewSpheresScene},
	}
}

// LoadPreset builds the built-in scene called name
func LoadPreset(name string) (*Description, error) {
	for _, p := range Presets() {
		if p.Name == name {
			return p.Build()
		}
	}
	return nil, core.NewError(core.StatusNotSupported, "loaders.preset", fmt.Sprintf("unknown built-in scene %q", name))
}

// presetBuilder adds objects to a description and keeps the first error
type presetBuilder struct {
	d   *Description
	err error
}

func newPresetBuilder(name string) *presetBuilder {
	return &presetBuilder{d: NewDescription(name)}
}

// with returns a function that places a freshly created shape with surface,
// so shape constructors can be passed straight through
func (p *presetBuilder) with(surface geometry.Surface) func(geometry.Shape, error) {
	return func(shape geometry.Shape, err error) {
		if err != nil {
			if p.err == nil {
				p.err = err
			}
			return
		}
		defer core.Release(shape)
		if p.err == nil {
			p.err = p.d.AddObject(shape, nil, surface)
		}
	}
}

func (p *presetBuilder) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

func (p *presetBuilder) finish() (*Description, error) {
	if p.err != nil {
		p.d.Release()
		return nil, fmt.Errorf("building %s: %w", p.d.Name, p.err)
	}
	return p.d, nil
}

// Reflectance spectra shared by the presets
var (
	white = spectrum.Constant(0.73)
	red   = spectrum.Sum{spectrum.Constant(0.05), spectrum.Gaussian{Peak: 0.6, Mean: 630, Sigma: 40}}
	green = spectrum.Sum{spectrum.Constant(0.05), spectrum.Gaussian{Peak: 0.4, Mean: 540, Sigma: 35}}
	gold  = spectrum.Sum{spectrum.Constant(0.2), spectrum.Gaussian{Peak: 0.6, Mean: 610, Sigma: 80}}
	sky   = spectrum.Sum{spectrum.Constant(0.5), spectrum.Gaussian{Peak: 0.5, Mean: 460, Sigma: 40}}
)

// NewCornellScene creates a classic Cornell box with quad walls and a quad
// light in the ceiling
func NewCornellScene() (*Description, error) {
	p := newPresetBuilder("cornell")
	p.d.Camera = renderer.CameraConfig{
		Center: core.NewVec3(278, 278, -800), // Outside the open front of the box
		LookAt: core.NewVec3(278, 278, 0),
		Up:     core.NewVec3(0, 1, 0),
		VFov:   40.0,
	}

	whiteWall := material.NewLambertian(white)
	redWall := material.NewLambertian(red)
	greenWall := material.NewLambertian(green)

	// Standard 555x555x555 box
	const boxSize = 555.0

	// Floor, ceiling and back wall
	p.with(whiteWall)(geometry.NewQuad(core.NewVec3(0, 0, 0), core.NewVec3(boxSize, 0, 0), core.NewVec3(0, 0, boxSize)))
	p.with(whiteWall)(geometry.NewQuad(core.NewVec3(0, boxSize, 0), core.NewVec3(boxSize, 0, 0), core.NewVec3(0, 0, boxSize)))
	p.with(whiteWall)(geometry.NewQuad(core.NewVec3(0, 0, boxSize), core.NewVec3(boxSize, 0, 0), core.NewVec3(0, boxSize, 0)))

	// Left wall (red) at x=0, right wall (green) at x=boxSize
	p.with(redWall)(geometry.NewQuad(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, boxSize), core.NewVec3(0, boxSize, 0)))
	p.with(greenWall)(geometry.NewQuad(core.NewVec3(boxSize, 0, 0), core.NewVec3(0, boxSize, 0), core.NewVec3(0, 0, boxSize)))

	// Ceiling light just below the ceiling, facing down (U × V = -y)
	lightSpectrum, err := spectrum.NewBlackbody(5500, 15)
	p.fail(err)
	const lightSize = 130.0
	lightOffset := (boxSize - lightSize) / 2.0
	p.with(material.NewEmissive(lightSpectrum))(geometry.NewQuad(
		core.NewVec3(lightOffset, boxSize-1, lightOffset),
		core.NewVec3(lightSize, 0, 0),
		core.NewVec3(0, 0, lightSize),
	))

	p.with(material.NewMirror(spectrum.Constant(0.85)))(geometry.NewSphere(core.NewVec3(185, 82.5, 169), 82.5))
	p.with(material.NewDielectric(1.5))(geometry.NewSphere(core.NewVec3(370, 90, 351), 90))

	return p.finish()
}

// FurnaceAlbedo and FurnaceEmission parameterize the furnace preset. Every
// camera ray converges to FurnaceEmission / (1 - FurnaceAlbedo) as the
// recursion bound grows.
const (
	FurnaceAlbedo   = 0.5
	FurnaceEmission = 1.0
)

// NewFurnaceScene places the camera inside a closed sphere whose inner
// surface is diffuse and glowing on both sides
func NewFurnaceScene() (*Description, error) {
	p := newPresetBuilder("furnace")
	p.d.Camera = renderer.DefaultCameraConfig()
	surface := material.NewGlowingLambertian(spectrum.Constant(FurnaceAlbedo), spectrum.Constant(FurnaceEmission), true)
	p.with(surface)(geometry.NewSphere(core.NewVec3(0, 0, 0), 1))
	return p.finish()
}

// NewPlaneScene is a diffuse ground plane y=0 lit only by a uniform sky
func NewPlaneScene() (*Description, error) {
	p := newPresetBuilder("plane")
	p.d.Camera = renderer.CameraConfig{
		Center: core.NewVec3(0, 1, 3),
		LookAt: core.NewVec3(0, 0, 0),
		Up:     core.NewVec3(0, 1, 0),
		VFov:   60.0,
	}
	p.d.Background = integrator.UniformBackground{Spectrum: spectrum.Constant(1)}
	p.with(material.NewLambertian(spectrum.Constant(0.5)))(geometry.NewAxisPlane(1, 0))
	return p.finish()
}

// NewSpheresScene arranges spheres of each material on a ground plane
func NewSpheresScene() (*Description, error) {
	p := newPresetBuilder("spheres")
	p.d.Camera = renderer.CameraConfig{
		Center:   core.NewVec3(0, 0.75, 2),
		LookAt:   core.NewVec3(0, 0.5, -1),
		Up:       core.NewVec3(0, 1, 0),
		VFov:     40.0,
		Aperture: 0.02,
	}
	p.d.Background = integrator.GradientBackground{Top: sky, Bottom: spectrum.Constant(1)}

	p.with(material.NewLambertian(spectrum.Constant(0.5)))(geometry.NewAxisPlane(1, 0))
	p.with(material.NewLambertian(red))(geometry.NewSphere(core.NewVec3(0, 0.5, -1), 0.5))
	p.with(material.NewMirror(spectrum.Constant(0.8)))(geometry.NewSphere(core.NewVec3(-1, 0.5, -1), 0.5))
	p.with(material.NewMetal(gold, 0.3))(geometry.NewSphere(core.NewVec3(1, 0.5, -1), 0.5))
	p.with(material.NewDielectric(1.5))(geometry.NewSphere(core.NewVec3(0.5, 0.25, -0.5), 0.25))

	// A small box turned 30 degrees about y, placed with a transform
	box, err := geometry.NewBox(core.Vec3{}, core.NewVec3(0.15, 0.15, 0.15))
	if err != nil {
		p.fail(err)
		return p.finish()
	}
	defer box.Release()
	placement, err := core.NewInvertibleMatrix(
		core.Translate(core.NewVec3(-0.5, 0.15, -0.4)).Mul(core.Rotate(core.NewVec3(0, 1, 0), math.Pi/6)),
	)
	if err != nil {
		p.fail(err)
		return p.finish()
	}
	defer placement.Release()
	if p.err == nil {
		p.fail(p.d.AddObject(box, placement, material.NewLambertian(green)))
	}

	return p.finish()
}
