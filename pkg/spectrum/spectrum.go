// Package spectrum models radiance and reflectance as functions of
// wavelength. Spectra are sampled one wavelength at a time and never
// stored as dense tables; colour is only produced at the very end by
// projecting accumulated samples onto the CIE observer.
package spectrum

import (
	"math"

	"github.com/df07/go-spectral-pathtracer/pkg/core"
)

// Visible range used by default, in nanometres
const (
	MinVisibleWavelength = 380.0
	MaxVisibleWavelength = 720.0
)

// Spectrum maps a wavelength in nanometres to an intensity. Sample must be
// a pure function so spectra can be shared between render workers.
type Spectrum interface {
	Sample(wavelength float64) float64
}

// Constant is a flat spectrum
type Constant float64

// Sample implements Spectrum
func (c Constant) Sample(wavelength float64) float64 {
	return float64(c)
}

// Func adapts a plain function to Spectrum
type Func func(wavelength float64) float64

// Sample implements Spectrum
func (f Func) Sample(wavelength float64) float64 {
	return f(wavelength)
}

// Gaussian is a bell-shaped spectrum, e.g. a coloured reflectance or a
// narrow-band emitter
type Gaussian struct {
	Peak  float64 // Value at the centre
	Mean  float64 // Centre wavelength in nm
	Sigma float64 // Standard deviation in nm
}

// NewGaussian validates and creates a Gaussian spectrum
func NewGaussian(peak, mean, sigma float64) (Gaussian, error) {
	if !(sigma > 0) || math.IsInf(sigma, 0) || math.IsNaN(peak) || math.IsNaN(mean) {
		return Gaussian{}, core.NewError(core.StatusInvalidArgument, "spectrum.gaussian", "sigma must be positive and finite")
	}
	return Gaussian{Peak: peak, Mean: mean, Sigma: sigma}, nil
}

// Sample implements Spectrum
func (g Gaussian) Sample(wavelength float64) float64 {
	d := (wavelength - g.Mean) / g.Sigma
	return g.Peak * math.Exp(-0.5*d*d)
}

// Scaled multiplies a spectrum by a constant factor
type Scaled struct {
	Factor   float64
	Spectrum Spectrum
}

// Sample implements Spectrum
func (s Scaled) Sample(wavelength float64) float64 {
	return s.Factor * s.Spectrum.Sample(wavelength)
}

// Product is the wavelength-wise product of two spectra
type Product struct {
	A, B Spectrum
}

// Sample implements Spectrum
func (p Product) Sample(wavelength float64) float64 {
	return p.A.Sample(wavelength) * p.B.Sample(wavelength)
}

// Sum is the wavelength-wise sum of several spectra
type Sum []Spectrum

// Sample implements Spectrum
func (s Sum) Sample(wavelength float64) float64 {
	total := 0.0
	for _, spectrum := range s {
		total += spectrum.Sample(wavelength)
	}
	return total
}
