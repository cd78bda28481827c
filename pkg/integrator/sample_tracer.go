package integrator

import (
	"fmt"
	"math"

	"github.com/df07/go-spectral-pathtracer/pkg/core"
	"github.com/df07/go-spectral-pathtracer/pkg/spectrum"
)

// SampleTracer turns camera rays into color samples: it picks the
// wavelengths for each ray, asks an Integrator for their radiance and
// projects the result to CIE XYZ.
type SampleTracer struct {
	integrator  Integrator
	sampling    spectrum.Sampling
	sampler     core.Sampler
	wavelengths []float64
}

// NewSampleTracer creates a sample tracer. The sampler picks the hero
// wavelength of every sample.
func NewSampleTracer(integrator Integrator, sampling spectrum.Sampling, sampler core.Sampler) (*SampleTracer, error) {
	if integrator == nil {
		return nil, core.NewError(core.StatusInvalidArgument, "integrator.sample_tracer", "nil integrator")
	}
	if sampler == nil {
		return nil, core.NewError(core.StatusInvalidArgument, "integrator.sample_tracer", "nil sampler")
	}
	if err := sampling.Validate(); err != nil {
		return nil, err
	}
	return &SampleTracer{
		integrator:  integrator,
		sampling:    sampling,
		sampler:     sampler,
		wavelengths: make([]float64, 0, sampling.Count),
	}, nil
}

// Sampling returns the wavelength sampling scheme
func (st *SampleTracer) Sampling() spectrum.Sampling {
	return st.sampling
}

// Trace estimates the color seen along ray. A failure at any wavelength
// fails the whole sample.
func (st *SampleTracer) Trace(ray core.Ray) (spectrum.XYZ, error) {
	st.wavelengths = st.sampling.Sample(st.sampler.Get1D(), st.wavelengths)
	pdf := st.sampling.PDF()

	var sum spectrum.XYZ
	for _, wavelength := range st.wavelengths {
		radiance, err := st.integrator.Radiance(ray, wavelength)
		if err != nil {
			return spectrum.XYZ{}, err
		}
		if math.IsNaN(radiance) || math.IsInf(radiance, 0) {
			return spectrum.XYZ{}, core.NewError(core.StatusArithmeticDegenerate, "integrator.trace",
				fmt.Sprintf("non-finite radiance %g at %g nm", radiance, wavelength))
		}
		sum = sum.Add(spectrum.FromSample(wavelength, radiance, pdf))
	}
	return sum.Scale(1.0 / float64(len(st.wavelengths))), nil
}
