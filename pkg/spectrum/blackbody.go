package spectrum

import (
	"math"

	"github.com/df07/go-spectral-pathtracer/pkg/core"
)

// Physical constants for Planck's law (SI units)
const (
	planckConstant   = 6.62607015e-34
	speedOfLight     = 2.99792458e8
	boltzmann        = 1.380649e-23
	wienDisplacement = 2.897771955e-3
)

// Blackbody is the emission of an ideal radiator at a temperature, scaled
// so the peak of the curve equals Scale
type Blackbody struct {
	Temperature float64 // Kelvin
	Scale       float64
	peak        float64
}

// NewBlackbody creates a peak-normalized blackbody spectrum
func NewBlackbody(temperature, scale float64) (Blackbody, error) {
	if !(temperature > 0) || math.IsInf(temperature, 0) {
		return Blackbody{}, core.NewError(core.StatusInvalidArgument, "spectrum.blackbody", "temperature must be positive and finite")
	}
	peakWavelength := wienDisplacement / temperature * 1e9
	return Blackbody{
		Temperature: temperature,
		Scale:       scale,
		peak:        planck(peakWavelength, temperature),
	}, nil
}

// Sample implements Spectrum
func (b Blackbody) Sample(wavelength float64) float64 {
	if b.peak == 0 {
		return 0
	}
	return b.Scale * planck(wavelength, b.Temperature) / b.peak
}

// planck returns spectral radiance at wavelength nm and temperature K
func planck(wavelength, temperature float64) float64 {
	if wavelength <= 0 {
		return 0
	}
	l := wavelength * 1e-9
	return 2 * planckConstant * speedOfLight * speedOfLight /
		(math.Pow(l, 5) * (math.Exp(planckConstant*speedOfLight/(l*boltzmann*temperature)) - 1))
}
