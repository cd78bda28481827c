package spectrum

import (
	"math"

	"github.com/df07/go-spectral-pathtracer/pkg/core"
)

// CIEYIntegral is the integral of the CIE 1931 y-bar function in nm. XYZ
// values are divided by it so a flat spectrum of 1 has luminance 1.
const CIEYIntegral = 106.856895

// lobe is an asymmetric Gaussian term of the multi-lobe CIE fit
func lobe(wavelength, mean, sigmaLow, sigmaHigh float64) float64 {
	sigma := sigmaHigh
	if wavelength < mean {
		sigma = sigmaLow
	}
	t := (wavelength - mean) / sigma
	return math.Exp(-0.5 * t * t)
}

// MatchingFunctions evaluates the CIE 1931 2° colour matching functions
// using the multi-lobe analytic fit of Wyman, Sloan and Shirley (2013)
func MatchingFunctions(wavelength float64) (x, y, z float64) {
	x = 1.056*lobe(wavelength, 599.8, 37.9, 31.0) +
		0.362*lobe(wavelength, 442.0, 16.0, 26.7) -
		0.065*lobe(wavelength, 501.1, 20.4, 26.2)
	y = 0.821*lobe(wavelength, 568.8, 46.9, 40.5) +
		0.286*lobe(wavelength, 530.9, 16.3, 31.1)
	z = 1.217*lobe(wavelength, 437.0, 11.8, 36.0) +
		0.681*lobe(wavelength, 459.0, 26.0, 13.8)
	return x, y, z
}

// XYZ is a CIE 1931 tristimulus value
type XYZ struct {
	X, Y, Z float64
}

// FromSample projects one radiance sample taken at wavelength with the
// given pdf. Averaging many of these estimates the XYZ of the spectrum.
func FromSample(wavelength, radiance, pdf float64) XYZ {
	if pdf <= 0 || radiance == 0 {
		return XYZ{}
	}
	x, y, z := MatchingFunctions(wavelength)
	w := radiance / (pdf * CIEYIntegral)
	return XYZ{X: x * w, Y: y * w, Z: z * w}
}

// FromSpectrum integrates s against the matching functions with the
// midpoint rule over [min, max]
func FromSpectrum(s Spectrum, min, max float64, steps int) XYZ {
	if steps < 1 || max <= min {
		return XYZ{}
	}
	var sum XYZ
	dl := (max - min) / float64(steps)
	for i := 0; i < steps; i++ {
		l := min + (float64(i)+0.5)*dl
		sum = sum.Add(FromSample(l, s.Sample(l), 1/dl))
	}
	return sum
}

// Add returns the component-wise sum
func (c XYZ) Add(other XYZ) XYZ {
	return XYZ{X: c.X + other.X, Y: c.Y + other.Y, Z: c.Z + other.Z}
}

// Scale multiplies every component by f
func (c XYZ) Scale(f float64) XYZ {
	return XYZ{X: c.X * f, Y: c.Y * f, Z: c.Z * f}
}

// RGB converts to linear sRGB (D65 white point)
func (c XYZ) RGB() core.Vec3 {
	return core.NewVec3(
		3.2404542*c.X-1.5371385*c.Y-0.4985314*c.Z,
		-0.9692660*c.X+1.8760108*c.Y+0.0415560*c.Z,
		0.0556434*c.X-0.2040259*c.Y+1.0572252*c.Z,
	)
}
