package material

import (
	"github.com/df07/go-spectral-pathtracer/pkg/core"
	"github.com/df07/go-spectral-pathtracer/pkg/geometry"
	"github.com/df07/go-spectral-pathtracer/pkg/spectrum"
)

// Emissive represents a light-emitting material
type Emissive struct {
	Emission spectrum.Reference // Emitted radiance per wavelength
	TwoSided bool
}

// NewEmissive creates a new emissive material that emits from its front face
func NewEmissive(emission spectrum.Spectrum) *Emissive {
	return &Emissive{Emission: spectrum.Ref(emission)}
}

// Emitted implements geometry.Surface
func (e *Emissive) Emitted(in *geometry.Interaction, wavelength float64) float64 {
	return emitted(e.Emission, e.TwoSided, in, wavelength)
}

// Scatter implements geometry.Surface
// Emissive materials don't scatter rays - they only emit light
func (e *Emissive) Scatter(in *geometry.Interaction, wavelength float64, sampler core.Sampler) (geometry.Scatter, bool) {
	return geometry.Scatter{}, false
}
