package integrator

import (
	"math"

	"github.com/df07/go-spectral-pathtracer/pkg/core"
	"github.com/df07/go-spectral-pathtracer/pkg/geometry"
	"github.com/df07/go-spectral-pathtracer/pkg/scene"
)

// Stats counts what a PathTracer did since creation or the last ResetStats
type Stats struct {
	RaysTraced           int64
	MaxDepth             int // Deepest recursion depth reached
	RouletteTerminations int64
	DepthTerminations    int64
	Failures             int64
}

// PathTracer implements unidirectional spectral path tracing. A PathTracer
// owns its hit tester and sampler and must not be shared between goroutines;
// the scene it traces may be.
type PathTracer struct {
	scene      scene.Scene
	config     Config
	sampler    core.Sampler
	tester     *geometry.HitTester
	background Background
	policy     ContinuePolicy
	stats      Stats
}

// Option customizes a PathTracer
type Option func(*PathTracer)

// WithBackground sets the radiance returned for escaping rays
func WithBackground(background Background) Option {
	return func(pt *PathTracer) { pt.background = background }
}

// WithContinuePolicy replaces the throughput-based Russian roulette policy
func WithContinuePolicy(policy ContinuePolicy) Option {
	return func(pt *PathTracer) {
		if policy != nil {
			pt.policy = policy
		}
	}
}

// WithScratchLimit bounds the hit data arena of the tracer's hit tester
func WithScratchLimit(bytes int) Option {
	return func(pt *PathTracer) { pt.tester.SetScratchLimit(bytes) }
}

// NewPathTracer creates a path tracer over s. The tracer retains the scene
// until Release.
func NewPathTracer(s scene.Scene, config Config, sampler core.Sampler, opts ...Option) (*PathTracer, error) {
	if s == nil {
		return nil, core.NewError(core.StatusInvalidArgument, "integrator.new", "nil scene")
	}
	if sampler == nil {
		return nil, core.NewError(core.StatusInvalidArgument, "integrator.new", "nil sampler")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	pt := &PathTracer{
		scene:   s,
		config:  config,
		sampler: sampler,
		tester:  geometry.NewHitTester(),
		policy:  ThroughputPolicy,
	}
	for _, opt := range opts {
		opt(pt)
	}
	s.Retain()
	return pt, nil
}

// Release drops the tracer's scene reference
func (pt *PathTracer) Release() {
	if pt.scene != nil {
		pt.scene.Release()
		pt.scene = nil
	}
}

// Config returns the termination parameters
func (pt *PathTracer) Config() Config {
	return pt.config
}

// Stats returns the counters accumulated so far
func (pt *PathTracer) Stats() Stats {
	return pt.stats
}

// ResetStats zeroes the counters
func (pt *PathTracer) ResetStats() {
	pt.stats = Stats{}
}

// Radiance implements Integrator
func (pt *PathTracer) Radiance(ray core.Ray, wavelength float64) (float64, error) {
	if pt.scene == nil {
		return 0, core.NewError(core.StatusInvalidArgument, "integrator.radiance", "path tracer has been released")
	}
	if math.IsNaN(wavelength) || !(wavelength > 0) {
		return 0, core.NewError(core.StatusInvalidArgument, "integrator.radiance", "wavelength must be positive")
	}
	radiance, err := pt.radiance(ray, wavelength, 0, 1.0)
	if err != nil {
		pt.stats.Failures++
		return 0, err
	}
	return radiance, nil
}

// radiance estimates the light along ray at recursion depth, where
// throughput is the product of the path weights so far
func (pt *PathTracer) radiance(ray core.Ray, wavelength float64, depth int, throughput float64) (float64, error) {
	pt.stats.RaysTraced++
	pt.stats.MaxDepth = max(pt.stats.MaxDepth, depth)

	hit, isHit, err := scene.Intersect(pt.scene, ray, pt.tester, 0, math.Inf(1))
	if err != nil {
		return 0, err
	}
	if !isHit {
		if pt.background == nil {
			return 0, nil
		}
		return pt.background.Radiance(ray.Direction, wavelength), nil
	}

	// Everything needed from the hit is read before the next trace resets the arena
	in, err := hit.Interaction()
	if err != nil {
		return 0, err
	}
	surface := in.Geometry.Surface()
	if surface == nil {
		return 0, nil
	}

	emitted := surface.Emitted(in, wavelength)

	if depth >= pt.config.MaximumRecursionDepth {
		pt.stats.DepthTerminations++
		return emitted, nil
	}

	terminate, compensation := pt.applyRussianRoulette(depth, throughput)
	if terminate {
		return emitted, nil
	}

	scatter, didScatter := surface.Scatter(in, wavelength, pt.sampler)
	if !didScatter || scatter.Weight == 0 {
		return emitted, nil
	}

	next := core.NewRay(pt.offsetOrigin(in, scatter.Direction), scatter.Direction)
	weight := scatter.Weight * compensation
	incoming, err := pt.radiance(next, wavelength, depth+1, throughput*weight)
	if err != nil {
		return 0, err
	}
	return emitted + weight*incoming, nil
}

// applyRussianRoulette determines if a path should be terminated and returns
// the compensation factor for surviving paths
func (pt *PathTracer) applyRussianRoulette(depth int, throughput float64) (bool, float64) {
	if depth < pt.config.RussianRouletteStartDepth {
		return false, 1.0
	}

	survivalProb := pt.policy(throughput)
	if math.IsNaN(survivalProb) {
		survivalProb = pt.config.MinimumContinueProbability
	}
	survivalProb = math.Min(pt.config.MaximumContinueProbability,
		math.Max(pt.config.MinimumContinueProbability, survivalProb))

	if pt.sampler.Get1D() > survivalProb {
		pt.stats.RouletteTerminations++
		return true, 0.0
	}
	return false, 1.0 / survivalProb
}

// offsetOrigin moves the hit point off the surface on the side direction leaves through
func (pt *PathTracer) offsetOrigin(in *geometry.Interaction, direction core.Vec3) core.Vec3 {
	normal := in.Normal
	if direction.Dot(normal) < 0 {
		normal = normal.Negate()
	}
	return in.Point.Add(normal.Multiply(pt.config.Epsilon))
}
