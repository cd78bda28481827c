package material

import (
	"math"

	"github.com/df07/go-spectral-pathtracer/pkg/core"
	"github.com/df07/go-spectral-pathtracer/pkg/geometry"
	"github.com/df07/go-spectral-pathtracer/pkg/spectrum"
)

// Metal represents a metallic material with specular reflection
type Metal struct {
	Reflectance spectrum.Reference
	Fuzzness    float64 // 0.0 = perfect mirror, 1.0 = very fuzzy
}

// NewMetal creates a new metal material
func NewMetal(reflectance spectrum.Spectrum, fuzzness float64) *Metal {
	return &Metal{Reflectance: spectrum.Ref(reflectance), Fuzzness: math.Max(0, math.Min(fuzzness, 1))}
}

// NewCoatedMetal creates a metal under a thin tinted coating. Light is
// filtered by the coating on top of the metal's own reflectance.
func NewCoatedMetal(reflectance, coating spectrum.Spectrum, fuzzness float64) *Metal {
	m := NewMetal(reflectance, fuzzness)
	if coating != nil {
		m.Reflectance = spectrum.Ref(m.Reflectance.Reflect(coating))
	}
	return m
}

// NewMirror creates a perfect mirror
func NewMirror(reflectance spectrum.Spectrum) *Metal {
	return NewMetal(reflectance, 0)
}

// Emitted implements geometry.Surface
func (m *Metal) Emitted(in *geometry.Interaction, wavelength float64) float64 {
	return 0
}

// Scatter implements geometry.Surface
func (m *Metal) Scatter(in *geometry.Interaction, wavelength float64, sampler core.Sampler) (geometry.Scatter, bool) {
	reflected := reflect(in.Ray.Direction.Normalize(), in.Normal)

	// Add fuzziness by perturbing the reflection direction inside a ball
	if m.Fuzzness > 0 {
		radius := m.Fuzzness * math.Cbrt(sampler.Get1D())
		reflected = reflected.Add(core.SampleOnUnitSphere(sampler.Get2D()).Multiply(radius))
	}

	// Only scatter if the ray is above the surface (not absorbed)
	if reflected.Dot(in.Normal) <= 0 {
		return geometry.Scatter{}, false
	}

	weight := m.Reflectance.Sample(wavelength)
	return geometry.Scatter{Direction: reflected, Weight: weight}, weight > 0
}

// reflect calculates the reflection of a vector v off a surface with normal n
func reflect(v, n core.Vec3) core.Vec3 {
	// r = v - 2*dot(v,n)*n
	return v.Subtract(n.Multiply(2 * v.Dot(n)))
}
