package integrator

import (
	"fmt"
	"math"

	"github.com/df07/go-spectral-pathtracer/pkg/core"
	"github.com/df07/go-spectral-pathtracer/pkg/spectrum"
)

// Integrator defines the interface for light transport algorithms
type Integrator interface {
	// Radiance estimates the radiance arriving along ray at one wavelength.
	// An error fails this ray only.
	Radiance(ray core.Ray, wavelength float64) (float64, error)
}

// Config holds the path termination parameters
type Config struct {
	Epsilon                    float64 // Offset of continuation origins along the geometric normal
	MinimumContinueProbability float64 // Lower clamp of the Russian roulette probability
	MaximumContinueProbability float64 // Upper clamp of the Russian roulette probability
	RussianRouletteStartDepth  int     // Depth at which Russian roulette starts
	MaximumRecursionDepth      int     // Hard bound on path depth
}

// DefaultConfig returns the settings used when nothing else is configured
func DefaultConfig() Config {
	return Config{
		Epsilon:                    1e-4,
		MinimumContinueProbability: 0.5,
		MaximumContinueProbability: 0.95,
		RussianRouletteStartDepth:  3,
		MaximumRecursionDepth:      16,
	}
}

// Validate checks that the configuration describes a usable estimator
func (c Config) Validate() error {
	if math.IsNaN(c.Epsilon) || math.IsInf(c.Epsilon, 0) || c.Epsilon < 0 {
		return core.NewError(core.StatusInvalidArgument, "integrator.config", fmt.Sprintf("invalid epsilon %g", c.Epsilon))
	}
	if !(c.MinimumContinueProbability > 0) || !(c.MaximumContinueProbability <= 1) ||
		!(c.MinimumContinueProbability <= c.MaximumContinueProbability) {
		return core.NewError(core.StatusInvalidArgument, "integrator.config",
			fmt.Sprintf("continue probabilities must satisfy 0 < min <= max <= 1, got [%g, %g]",
				c.MinimumContinueProbability, c.MaximumContinueProbability))
	}
	if c.RussianRouletteStartDepth < 0 {
		return core.NewError(core.StatusInvalidArgument, "integrator.config", "negative russian roulette start depth")
	}
	if c.MaximumRecursionDepth < 0 {
		return core.NewError(core.StatusInvalidArgument, "integrator.config", "negative maximum recursion depth")
	}
	return nil
}

// ContinuePolicy maps the current path throughput to an unclamped
// continuation probability
type ContinuePolicy func(throughput float64) float64

// ThroughputPolicy continues with probability equal to the throughput
func ThroughputPolicy(throughput float64) float64 {
	return throughput
}

// Background supplies radiance for rays that leave the scene
type Background interface {
	Radiance(direction core.Vec3, wavelength float64) float64
}

// UniformBackground returns the same spectrum in every direction
type UniformBackground struct {
	Spectrum spectrum.Spectrum
}

// Radiance implements Background
func (b UniformBackground) Radiance(direction core.Vec3, wavelength float64) float64 {
	if b.Spectrum == nil {
		return 0
	}
	return b.Spectrum.Sample(wavelength)
}

// GradientBackground blends from Bottom to Top with the direction's height
type GradientBackground struct {
	Top    spectrum.Spectrum
	Bottom spectrum.Spectrum
}

// Radiance implements Background
func (b GradientBackground) Radiance(direction core.Vec3, wavelength float64) float64 {
	// Map y from [-1, 1] to [0, 1]
	t := 0.5 * (direction.Normalize().Y + 1.0)

	top, bottom := 0.0, 0.0
	if b.Top != nil {
		top = b.Top.Sample(wavelength)
	}
	if b.Bottom != nil {
		bottom = b.Bottom.Sample(wavelength)
	}
	return (1.0-t)*bottom + t*top
}
