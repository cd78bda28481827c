package renderer

import (
	"image"
	"time"

	"github.com/df07/go-spectral-pathtracer/pkg/integrator"
	"github.com/df07/go-spectral-pathtracer/pkg/spectrum"
)

// RenderStats contains statistics about the rendering process
type RenderStats struct {
	TotalPixels    int     // Total number of pixels rendered
	TotalSamples   int     // Total number of samples taken
	FailedSamples  int     // Samples whose path failed and contributed nothing
	AverageSamples float64 // Average samples per pixel
	MaxSamples     int     // Maximum samples allowed per pixel
	MinSamples     int     // Minimum samples taken per pixel
	MaxSamplesUsed int     // Maximum samples actually used by any pixel

	Paths    integrator.Stats // Path tracer counters summed over workers
	Duration time.Duration
}

// merge adds the counters of another tile to s
func (s *RenderStats) merge(other RenderStats) {
	s.TotalSamples += other.TotalSamples
	s.FailedSamples += other.FailedSamples
	s.Paths.RaysTraced += other.Paths.RaysTraced
	s.Paths.RouletteTerminations += other.Paths.RouletteTerminations
	s.Paths.DepthTerminations += other.Paths.DepthTerminations
	s.Paths.Failures += other.Paths.Failures
	s.Paths.MaxDepth = max(s.Paths.MaxDepth, other.Paths.MaxDepth)
}

// PixelStats tracks sampling statistics for a single pixel. Colors are
// accumulated as CIE XYZ and only converted to RGB for display.
type PixelStats struct {
	ColorAccum       spectrum.XYZ // XYZ accumulator for final result
	LuminanceAccum   float64      // Luminance accumulator for convergence
	LuminanceSqAccum float64      // Luminance squared for variance
	SampleCount      int          // Number of samples taken, failed ones included
	FailedCount      int          // Number of samples that failed
}

// AddSample adds a new color sample to the pixel statistics
func (ps *PixelStats) AddSample(color spectrum.XYZ) {
	ps.ColorAccum = ps.ColorAccum.Add(color)
	ps.LuminanceAccum += color.Y
	ps.LuminanceSqAccum += color.Y * color.Y
	ps.SampleCount++
}

// AddFailure records a sample whose path could not be traced
func (ps *PixelStats) AddFailure() {
	ps.SampleCount++
	ps.FailedCount++
}

// GetColor returns the current average color over the successful samples
func (ps *PixelStats) GetColor() spectrum.XYZ {
	good := ps.SampleCount - ps.FailedCount
	if good <= 0 {
		return spectrum.XYZ{}
	}
	return ps.ColorAccum.Scale(1.0 / float64(good))
}

// CalculateAverageLuminance returns the mean Rec. 709 luminance of an
// 8-bit image in [0, 1]
func CalculateAverageLuminance(img *image.RGBA) float64 {
	bounds := img.Bounds()
	pixels := bounds.Dx() * bounds.Dy()
	if pixels == 0 {
		return 0
	}

	total := 0.0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := img.RGBAAt(x, y)
			total += 0.2126*float64(c.R)/255 + 0.7152*float64(c.G)/255 + 0.0722*float64(c.B)/255
		}
	}
	return total / float64(pixels)
}
