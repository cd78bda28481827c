package material

import (
	"github.com/df07/go-spectral-pathtracer/pkg/core"
	"github.com/df07/go-spectral-pathtracer/pkg/geometry"
	"github.com/df07/go-spectral-pathtracer/pkg/spectrum"
)

// Lambertian represents a perfectly diffuse material, optionally glowing
type Lambertian struct {
	Albedo   spectrum.Reference // Reflectance per wavelength, in [0, 1]
	Emission spectrum.Reference // Emitted radiance, zero reference for none
	TwoSided bool               // Emit from back faces as well
}

// NewLambertian creates a new lambertian material
func NewLambertian(albedo spectrum.Spectrum) *Lambertian {
	return &Lambertian{Albedo: spectrum.Ref(albedo)}
}

// NewGlowingLambertian creates a diffuse material that also emits
func NewGlowingLambertian(albedo, emission spectrum.Spectrum, twoSided bool) *Lambertian {
	return &Lambertian{Albedo: spectrum.Ref(albedo), Emission: spectrum.Ref(emission), TwoSided: twoSided}
}

// Emitted implements geometry.Surface
func (l *Lambertian) Emitted(in *geometry.Interaction, wavelength float64) float64 {
	return emitted(l.Emission, l.TwoSided, in, wavelength)
}

// Scatter implements geometry.Surface with cosine-weighted sampling. The
// BRDF albedo/π times cos/pdf leaves just the albedo as weight.
func (l *Lambertian) Scatter(in *geometry.Interaction, wavelength float64, sampler core.Sampler) (geometry.Scatter, bool) {
	direction := core.SampleCosineHemisphere(in.Normal, sampler.Get2D())

	// Catch degenerate samples right at the horizon
	if direction.LengthSquared() < 1e-16 {
		direction = in.Normal
	}

	albedo := l.Albedo.Sample(wavelength)
	return geometry.Scatter{Direction: direction, Weight: albedo}, albedo > 0
}

// emitted returns emission for front faces, or both faces when twoSided
func emitted(emission spectrum.Reference, twoSided bool, in *geometry.Interaction, wavelength float64) float64 {
	if !emission.Valid() || (!in.FrontFace && !twoSided) {
		return 0
	}
	return emission.Sample(wavelength)
}
