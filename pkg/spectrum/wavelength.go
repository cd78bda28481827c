package spectrum

import (
	"fmt"
	"math"

	"github.com/df07/go-spectral-pathtracer/pkg/core"
)

// Sampling describes how camera rays pick wavelengths. With Count 1 every
// ray carries one uniformly chosen wavelength. With Count > 1 a hero
// wavelength is chosen uniformly and the others are spread at equal
// offsets across the range, wrapping around at Max.
type Sampling struct {
	Min   float64 // nm
	Max   float64 // nm
	Count int
}

// DefaultSampling is hero-wavelength sampling with four wavelengths over
// the visible range
func DefaultSampling() Sampling {
	return Sampling{Min: MinVisibleWavelength, Max: MaxVisibleWavelength, Count: 4}
}

// Validate checks the range and count
func (s Sampling) Validate() error {
	if math.IsNaN(s.Min) || math.IsNaN(s.Max) || math.IsInf(s.Min, 0) || math.IsInf(s.Max, 0) {
		return core.NewError(core.StatusInvalidArgument, "spectrum.sampling", "non-finite wavelength range")
	}
	if !(s.Min > 0) || !(s.Max > s.Min) {
		return core.NewError(core.StatusInvalidArgument, "spectrum.sampling",
			fmt.Sprintf("invalid wavelength range [%g, %g]", s.Min, s.Max))
	}
	if s.Count < 1 {
		return core.NewError(core.StatusInvalidArgument, "spectrum.sampling", "at least one wavelength per sample is required")
	}
	return nil
}

// PDF returns the probability density of each individual wavelength
func (s Sampling) PDF() float64 {
	return 1.0 / (s.Max - s.Min)
}

// Sample fills out with Count wavelengths derived from one uniform number
// u in [0, 1). out is reused when it has enough capacity.
func (s Sampling) Sample(u float64, out []float64) []float64 {
	out = out[:0]
	width := s.Max - s.Min
	hero := u * width
	for j := 0; j < s.Count; j++ {
		offset := math.Mod(hero+float64(j)*width/float64(s.Count), width)
		out = append(out, s.Min+offset)
	}
	return out
}
