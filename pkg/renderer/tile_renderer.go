package renderer

import (
	"image"
	"math"

	"github.com/df07/go-spectral-pathtracer/pkg/core"
	"github.com/df07/go-spectral-pathtracer/pkg/integrator"
	"github.com/df07/go-spectral-pathtracer/pkg/spectrum"
)

// SampleTracer is the part of integrator.SampleTracer the tile renderer uses
type SampleTracer interface {
	Trace(ray core.Ray) (spectrum.XYZ, error)
}

// TileRenderer handles the actual rendering of individual tiles
type TileRenderer struct {
	camera        *Camera
	tracer        SampleTracer
	width, height int
	config        Config
}

// NewTileRenderer creates a new tile renderer for a width x height image
func NewTileRenderer(camera *Camera, tracer SampleTracer, config Config) *TileRenderer {
	return &TileRenderer{
		camera: camera,
		tracer: tracer,
		width:  config.Width,
		height: config.Height,
		config: config,
	}
}

// RenderTileBounds brings every pixel within bounds up to targetSamples,
// stopping early where adaptive sampling finds the pixel converged. Failed
// samples are counted and skipped.
func (tr *TileRenderer) RenderTileBounds(bounds image.Rectangle, pixelStats [][]PixelStats, sampler core.Sampler, targetSamples int) RenderStats {
	stats := tr.initRenderStatsForBounds(bounds, targetSamples)

	for j := bounds.Min.Y; j < bounds.Max.Y; j++ {
		for i := bounds.Min.X; i < bounds.Max.X; i++ {
			ps := &pixelStats[j][i]
			failedBefore := ps.FailedCount
			samplesUsed := tr.adaptiveSamplePixel(i, j, ps, sampler, targetSamples)
			stats.FailedSamples += ps.FailedCount - failedBefore
			tr.updateStats(&stats, samplesUsed)
		}
	}

	tr.finalizeStats(&stats)
	return stats
}

// adaptiveSamplePixel samples until convergence or maxSamples
func (tr *TileRenderer) adaptiveSamplePixel(i, j int, ps *PixelStats, sampler core.Sampler, maxSamples int) int {
	initialSampleCount := ps.SampleCount

	for ps.SampleCount < maxSamples && !tr.shouldStopSampling(ps, maxSamples) {
		ray := tr.camera.GetPixelRay(i, j, tr.width, tr.height, sampler)
		xyz, err := tr.tracer.Trace(ray)
		if err != nil {
			ps.AddFailure()
			continue
		}
		ps.AddSample(xyz)
	}

	return ps.SampleCount - initialSampleCount
}

// shouldStopSampling determines if adaptive sampling should stop based on perceptual relative error
func (tr *TileRenderer) shouldStopSampling(ps *PixelStats, maxSamples int) bool {
	if tr.config.AdaptiveThreshold <= 0 {
		return false
	}

	// Don't stop before minimum samples, and never on failures alone
	minSamples := max(1, int(float64(maxSamples)*tr.config.AdaptiveMinSamples))
	good := ps.SampleCount - ps.FailedCount
	if ps.SampleCount < minSamples || good < 2 {
		return false
	}

	mean := ps.LuminanceAccum / float64(good)
	meanSq := ps.LuminanceSqAccum / float64(good)
	variance := math.Max(0, meanSq-mean*mean)

	// Avoid division by zero for black pixels
	if mean <= 1e-8 {
		return variance < 1e-6
	}

	relativeError := math.Sqrt(variance/float64(good)) / mean
	return relativeError < tr.config.AdaptiveThreshold
}

// initRenderStatsForBounds initializes the render statistics tracking for specific bounds
func (tr *TileRenderer) initRenderStatsForBounds(bounds image.Rectangle, maxSamples int) RenderStats {
	return RenderStats{
		TotalPixels: bounds.Dx() * bounds.Dy(),
		MaxSamples:  maxSamples,
		MinSamples:  maxSamples, // Start with max, will be reduced
	}
}

// updateStats updates the render statistics with data from a single pixel
func (tr *TileRenderer) updateStats(stats *RenderStats, samplesUsed int) {
	stats.TotalSamples += samplesUsed
	stats.MinSamples = min(stats.MinSamples, samplesUsed)
	stats.MaxSamplesUsed = max(stats.MaxSamplesUsed, samplesUsed)
}

// finalizeStats calculates final statistics after all pixels are rendered
func (tr *TileRenderer) finalizeStats(stats *RenderStats) {
	if stats.TotalPixels > 0 {
		stats.AverageSamples = float64(stats.TotalSamples) / float64(stats.TotalPixels)
	}
}

var _ SampleTracer = (*integrator.SampleTracer)(nil)
