package renderer

import (
	"fmt"
	"image/color"
	"math"

	"github.com/df07/go-spectral-pathtracer/pkg/core"
	"github.com/df07/go-spectral-pathtracer/pkg/integrator"
	"github.com/df07/go-spectral-pathtracer/pkg/spectrum"
)

// Config contains configuration for progressive rendering
type Config struct {
	Width, Height      int
	TileSize           int     // Size of each tile (64x64 recommended)
	InitialSamples     int     // Samples for first pass (1 recommended)
	MaxSamplesPerPixel int     // Maximum total samples per pixel
	MaxPasses          int     // Maximum number of passes
	NumWorkers         int     // Number of parallel workers (0 = use CPU count)
	Seed               int64   // Base seed; tiles derive their own streams from it
	Gamma              float64 // Display gamma applied when writing 8-bit images
	AdaptiveMinSamples float64 // Fraction of the pass target taken before convergence checks
	AdaptiveThreshold  float64 // Relative luminance error at which a pixel stops; 0 disables
	ScratchLimit       int     // Hit data arena budget per worker in bytes, 0 for unlimited

	Sampling   spectrum.Sampling
	Integrator integrator.Config
}

// DefaultConfig returns sensible default values
func DefaultConfig() Config {
	return Config{
		Width:              400,
		Height:             300,
		TileSize:           64,
		InitialSamples:     1,
		MaxSamplesPerPixel: 64,
		MaxPasses:          7,
		NumWorkers:         0,
		Seed:               42,
		Gamma:              2.2,
		AdaptiveMinSamples: 0.25,
		AdaptiveThreshold:  0.02,
		Sampling:           spectrum.DefaultSampling(),
		Integrator:         integrator.DefaultConfig(),
	}
}

// Validate checks the image, pass and sampling settings
func (c Config) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return core.NewError(core.StatusInvalidArgument, "renderer.config", fmt.Sprintf("invalid image size %dx%d", c.Width, c.Height))
	case c.TileSize <= 0:
		return core.NewError(core.StatusInvalidArgument, "renderer.config", "tile size must be positive")
	case c.InitialSamples <= 0 || c.MaxSamplesPerPixel < c.InitialSamples:
		return core.NewError(core.StatusInvalidArgument, "renderer.config",
			fmt.Sprintf("need 0 < initial samples (%d) <= max samples (%d)", c.InitialSamples, c.MaxSamplesPerPixel))
	case c.MaxPasses <= 0:
		return core.NewError(core.StatusInvalidArgument, "renderer.config", "at least one pass is required")
	case c.NumWorkers < 0:
		return core.NewError(core.StatusInvalidArgument, "renderer.config", "negative worker count")
	case !(c.Gamma > 0):
		return core.NewError(core.StatusInvalidArgument, "renderer.config", "gamma must be positive")
	case c.AdaptiveMinSamples < 0 || c.AdaptiveMinSamples > 1 || c.AdaptiveThreshold < 0:
		return core.NewError(core.StatusInvalidArgument, "renderer.config", "invalid adaptive sampling settings")
	case c.ScratchLimit < 0:
		return core.NewError(core.StatusInvalidArgument, "renderer.config", "negative scratch limit")
	}
	if err := c.Sampling.Validate(); err != nil {
		return err
	}
	return c.Integrator.Validate()
}

// AspectRatio returns width/height
func (c Config) AspectRatio() float64 {
	return float64(c.Width) / float64(c.Height)
}

// xyzToColor converts an XYZ color to RGBA with clamping and gamma correction
func xyzToColor(xyz spectrum.XYZ, gamma float64) color.RGBA {
	rgb := xyz.RGB()
	return color.RGBA{
		R: toByte(rgb.X, gamma),
		G: toByte(rgb.Y, gamma),
		B: toByte(rgb.Z, gamma),
		A: 255,
	}
}

func toByte(linear, gamma float64) uint8 {
	if !(linear > 0) {
		return 0
	}
	v := math.Min(1.0, math.Pow(linear, 1.0/gamma))
	return uint8(255 * v)
}
