package integrator

import (
	"errors"
	"math"
	"testing"

	"github.com/df07/go-spectral-pathtracer/pkg/core"
	"github.com/df07/go-spectral-pathtracer/pkg/spectrum"
)

// integratorFunc adapts a function to the Integrator interface
type integratorFunc func(ray core.Ray, wavelength float64) (float64, error)

func (f integratorFunc) Radiance(ray core.Ray, wavelength float64) (float64, error) {
	return f(ray, wavelength)
}

func TestNewSampleTracer_Validation(t *testing.T) {
	constant := integratorFunc(func(core.Ray, float64) (float64, error) { return 1, nil })
	sampler := core.NewSeededSampler(1)

	tests := []struct {
		name       string
		integrator Integrator
		sampling   spectrum.Sampling
		sampler    core.Sampler
	}{
		{"nil integrator", nil, spectrum.DefaultSampling(), sampler},
		{"nil sampler", constant, spectrum.DefaultSampling(), nil},
		{"empty range", constant, spectrum.Sampling{Min: 500, Max: 500, Count: 1}, sampler},
		{"no wavelengths", constant, spectrum.Sampling{Min: 380, Max: 720, Count: 0}, sampler},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSampleTracer(tt.integrator, tt.sampling, tt.sampler); !errors.Is(err, core.ErrInvalidArgument) {
				t.Errorf("Expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestSampleTracer_ConstantRadianceProjectsToReference(t *testing.T) {
	const radiance = 2.0
	var seen []float64
	constant := integratorFunc(func(ray core.Ray, wavelength float64) (float64, error) {
		seen = append(seen, wavelength)
		return radiance, nil
	})

	sampling := spectrum.DefaultSampling()
	st, err := NewSampleTracer(constant, sampling, core.NewSeededSampler(42))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	const samples = 4000
	ray := core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, -1))
	var sum spectrum.XYZ
	for i := 0; i < samples; i++ {
		xyz, err := st.Trace(ray)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		sum = sum.Add(xyz)
	}
	got := sum.Scale(1.0 / samples)
	want := spectrum.FromSpectrum(spectrum.Constant(radiance), sampling.Min, sampling.Max, 2000)

	for _, c := range []struct {
		name      string
		got, want float64
	}{
		{"X", got.X, want.X},
		{"Y", got.Y, want.Y},
		{"Z", got.Z, want.Z},
	} {
		if math.Abs(c.got-c.want) > 0.03*c.want {
			t.Errorf("%s: expected %v, got %v", c.name, c.want, c.got)
		}
	}

	if len(seen) != samples*sampling.Count {
		t.Errorf("Expected %d radiance queries, got %d", samples*sampling.Count, len(seen))
	}
	for _, wavelength := range seen {
		if wavelength < sampling.Min || wavelength >= sampling.Max {
			t.Fatalf("Wavelength %v outside [%v, %v)", wavelength, sampling.Min, sampling.Max)
		}
	}
}

func TestSampleTracer_Failures(t *testing.T) {
	tests := []struct {
		name   string
		result float64
		err    error
		status core.Status
	}{
		{"integrator error", 0, core.NewError(core.StatusAllocationFailure, "test", "arena"), core.StatusAllocationFailure},
		{"nan radiance", math.NaN(), nil, core.StatusArithmeticDegenerate},
		{"infinite radiance", math.Inf(1), nil, core.StatusArithmeticDegenerate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failing := integratorFunc(func(core.Ray, float64) (float64, error) { return tt.result, tt.err })
			st, err := NewSampleTracer(failing, spectrum.DefaultSampling(), core.NewSeededSampler(1))
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			xyz, err := st.Trace(core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(1, 0, 0)))
			if core.StatusOf(err) != tt.status {
				t.Errorf("Expected status %v, got %v", tt.status, err)
			}
			if xyz != (spectrum.XYZ{}) {
				t.Errorf("Expected zero color on failure, got %+v", xyz)
			}
		})
	}
}

// TestSampleTracer_Furnace runs the full pipeline on the furnace scene
func TestSampleTracer_Furnace(t *testing.T) {
	const albedo = 0.5
	s := createFurnaceScene(t, albedo)
	defer s.Release()

	config := DefaultConfig()
	config.MaximumRecursionDepth = 4
	config.RussianRouletteStartDepth = 5
	pt, err := NewPathTracer(s, config, core.NewSeededSampler(3))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer pt.Release()

	sampling := spectrum.Sampling{Min: 550, Max: 560, Count: 1}
	st, err := NewSampleTracer(pt, sampling, core.NewSeededSampler(4))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	xyz, err := st.Trace(core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 1, 0)))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if xyz.Y <= 0 {
		t.Errorf("Expected positive luminance, got %+v", xyz)
	}
	if pt.Stats().RaysTraced != int64(config.MaximumRecursionDepth+1) {
		t.Errorf("Expected %d rays, got %d", config.MaximumRecursionDepth+1, pt.Stats().RaysTraced)
	}
}
