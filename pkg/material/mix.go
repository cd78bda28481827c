package material

import (
	"math"

	"github.com/df07/go-spectral-pathtracer/pkg/core"
	"github.com/df07/go-spectral-pathtracer/pkg/geometry"
)

// Mix represents a material that probabilistically chooses between two materials
type Mix struct {
	Material1 geometry.Surface
	Material2 geometry.Surface
	Ratio     float64 // 0.0 = all material1, 1.0 = all material2
}

// NewMix creates a new mix material
func NewMix(material1, material2 geometry.Surface, ratio float64) *Mix {
	return &Mix{
		Material1: material1,
		Material2: material2,
		Ratio:     math.Max(0.0, math.Min(ratio, 1.0)),
	}
}

// Emitted implements geometry.Surface as the weighted sum of both emissions
func (m *Mix) Emitted(in *geometry.Interaction, wavelength float64) float64 {
	return (1-m.Ratio)*m.Material1.Emitted(in, wavelength) + m.Ratio*m.Material2.Emitted(in, wavelength)
}

// Scatter implements geometry.Surface by picking one material per sample
func (m *Mix) Scatter(in *geometry.Interaction, wavelength float64, sampler core.Sampler) (geometry.Scatter, bool) {
	if sampler.Get1D() < m.Ratio {
		return m.Material2.Scatter(in, wavelength, sampler)
	}
	return m.Material1.Scatter(in, wavelength, sampler)
}
