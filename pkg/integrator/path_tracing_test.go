package integrator

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/df07/go-spectral-pathtracer/pkg/core"
	"github.com/df07/go-spectral-pathtracer/pkg/geometry"
	"github.com/df07/go-spectral-pathtracer/pkg/material"
	"github.com/df07/go-spectral-pathtracer/pkg/scene"
	"github.com/df07/go-spectral-pathtracer/pkg/spectrum"
)

// MockShape reports whatever traceFn adds; it has no normal capability
type MockShape struct {
	traceFn func(ray core.Ray, hits *geometry.ShapeHitList) error
}

func (m MockShape) Trace(ray core.Ray, hits *geometry.ShapeHitList) error {
	return m.traceFn(ray, hits)
}

func newListScene(t *testing.T, geometries ...*geometry.Geometry) *scene.ListScene {
	t.Helper()
	s, err := scene.NewListScene(geometries)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for _, g := range geometries {
		g.Release()
	}
	return s
}

func newGeometry(t *testing.T, shape geometry.Shape, surface geometry.Surface) *geometry.Geometry {
	t.Helper()
	g, err := geometry.NewGeometry(shape, surface)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return g
}

// createFurnaceScene encloses the origin in a unit sphere that glows with
// radiance 1 on both sides and reflects diffusely with the given albedo
func createFurnaceScene(t *testing.T, albedo float64) *scene.ListScene {
	t.Helper()
	sphere, err := geometry.NewSphere(core.NewVec3(0, 0, 0), 1)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	surface := material.NewGlowingLambertian(spectrum.Constant(albedo), spectrum.Constant(1), true)
	return newListScene(t, newGeometry(t, sphere, surface))
}

// createMirrorCorridor builds two facing perfect mirrors at y=0 and y=1
func createMirrorCorridor(t *testing.T) *scene.ListScene {
	t.Helper()
	mirror := material.NewMirror(spectrum.Constant(1))
	floor, err := geometry.NewAxisPlane(1, 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	ceiling, err := geometry.NewAxisPlane(1, 1)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return newListScene(t, newGeometry(t, floor, mirror), newGeometry(t, ceiling, mirror))
}

// truncatedSeries returns sum_{k=0..depth} albedo^k, the exact furnace radiance
func truncatedSeries(albedo float64, depth int) float64 {
	sum, term := 0.0, 1.0
	for k := 0; k <= depth; k++ {
		sum += term
		term *= albedo
	}
	return sum
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		valid  bool
	}{
		{"default", func(c *Config) {}, true},
		{"zero epsilon", func(c *Config) { c.Epsilon = 0 }, true},
		{"negative epsilon", func(c *Config) { c.Epsilon = -1e-4 }, false},
		{"nan epsilon", func(c *Config) { c.Epsilon = math.NaN() }, false},
		{"zero min probability", func(c *Config) { c.MinimumContinueProbability = 0 }, false},
		{"max above one", func(c *Config) { c.MaximumContinueProbability = 1.5 }, false},
		{"min above max", func(c *Config) { c.MinimumContinueProbability, c.MaximumContinueProbability = 0.9, 0.5 }, false},
		{"equal bounds", func(c *Config) { c.MinimumContinueProbability, c.MaximumContinueProbability = 0.7, 0.7 }, true},
		{"negative rr start", func(c *Config) { c.RussianRouletteStartDepth = -1 }, false},
		{"negative max depth", func(c *Config) { c.MaximumRecursionDepth = -1 }, false},
		{"zero max depth", func(c *Config) { c.MaximumRecursionDepth = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(&config)
			err := config.Validate()
			if tt.valid && err != nil {
				t.Errorf("Expected valid config, got %v", err)
			}
			if !tt.valid && !errors.Is(err, core.ErrInvalidArgument) {
				t.Errorf("Expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestNewPathTracer_Validation(t *testing.T) {
	s := createFurnaceScene(t, 0.5)
	defer s.Release()
	sampler := core.NewSeededSampler(1)

	if _, err := NewPathTracer(nil, DefaultConfig(), sampler); !errors.Is(err, core.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for nil scene, got %v", err)
	}
	if _, err := NewPathTracer(s, DefaultConfig(), nil); !errors.Is(err, core.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for nil sampler, got %v", err)
	}
	bad := DefaultConfig()
	bad.MaximumRecursionDepth = -3
	if _, err := NewPathTracer(s, bad, sampler); !errors.Is(err, core.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for bad config, got %v", err)
	}
	if s.RefCount() != 1 {
		t.Errorf("Failed constructions must not retain the scene, refcount %d", s.RefCount())
	}
}

func TestPathTracer_RetainsScene(t *testing.T) {
	s := createFurnaceScene(t, 0.5)
	defer s.Release()

	pt, err := NewPathTracer(s, DefaultConfig(), core.NewSeededSampler(1))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if s.RefCount() != 2 {
		t.Errorf("Expected refcount 2 while tracer is alive, got %d", s.RefCount())
	}

	pt.Release()
	pt.Release()
	if s.RefCount() != 1 {
		t.Errorf("Expected refcount 1 after release, got %d", s.RefCount())
	}

	ray := core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(1, 0, 0))
	if _, err := pt.Radiance(ray, 550); !errors.Is(err, core.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument from released tracer, got %v", err)
	}
}

// TestPathTracer_FurnaceWithoutRoulette checks the deterministic case: every
// path bounces exactly MaximumRecursionDepth times inside the furnace
func TestPathTracer_FurnaceWithoutRoulette(t *testing.T) {
	const albedo = 0.6
	s := createFurnaceScene(t, albedo)
	defer s.Release()

	for _, depth := range []int{0, 1, 4, 10} {
		config := DefaultConfig()
		config.MaximumRecursionDepth = depth
		config.RussianRouletteStartDepth = depth + 1

		pt, err := NewPathTracer(s, config, core.NewSeededSampler(42))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		ray := core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0.3, -0.2, 1))
		got, err := pt.Radiance(ray, 550)
		pt.Release()
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		want := truncatedSeries(albedo, depth)
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("depth %d: expected radiance %v, got %v", depth, want, got)
		}
	}
}

// TestPathTracer_RussianRouletteUnbiased compares the furnace estimate under
// several roulette settings against the analytic truncated series
func TestPathTracer_RussianRouletteUnbiased(t *testing.T) {
	tests := []struct {
		name   string
		albedo float64
		config Config
	}{
		{
			name:   "throughput policy from first bounce",
			albedo: 0.7,
			config: Config{Epsilon: 1e-4, MinimumContinueProbability: 0.5, MaximumContinueProbability: 0.95, RussianRouletteStartDepth: 0, MaximumRecursionDepth: 8},
		},
		{
			name:   "late start wide clamp",
			albedo: 0.5,
			config: Config{Epsilon: 1e-4, MinimumContinueProbability: 0.1, MaximumContinueProbability: 0.9, RussianRouletteStartDepth: 3, MaximumRecursionDepth: 10},
		},
		{
			name:   "fixed probability",
			albedo: 0.5,
			config: Config{Epsilon: 1e-4, MinimumContinueProbability: 0.4, MaximumContinueProbability: 0.4, RussianRouletteStartDepth: 1, MaximumRecursionDepth: 6},
		},
	}

	const samples = 20000
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := createFurnaceScene(t, tt.albedo)
			defer s.Release()

			pt, err := NewPathTracer(s, tt.config, core.NewRandomSampler(rand.New(rand.NewSource(42))))
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			defer pt.Release()

			random := rand.New(rand.NewSource(7))
			sum, sumSq := 0.0, 0.0
			for i := 0; i < samples; i++ {
				direction := core.SampleOnUnitSphere(core.NewVec2(random.Float64(), random.Float64()))
				value, err := pt.Radiance(core.NewRay(core.NewVec3(0, 0, 0), direction), 550)
				if err != nil {
					t.Fatalf("Unexpected error: %v", err)
				}
				sum += value
				sumSq += value * value
			}

			mean := sum / samples
			variance := sumSq/samples - mean*mean
			stdErr := math.Sqrt(math.Max(variance, 0) / samples)
			want := truncatedSeries(tt.albedo, tt.config.MaximumRecursionDepth)

			if math.Abs(mean-want) > 5*stdErr+1e-9 {
				t.Errorf("Expected mean %v, got %v (stderr %v)", want, mean, stdErr)
			}
			if pt.Stats().RouletteTerminations == 0 {
				t.Error("Expected some paths to be terminated by Russian roulette")
			}
		})
	}
}

func TestPathTracer_RecursionBound(t *testing.T) {
	s := createMirrorCorridor(t)
	defer s.Release()

	for _, depth := range []int{0, 1, 7, 25} {
		config := DefaultConfig()
		config.MaximumRecursionDepth = depth
		config.RussianRouletteStartDepth = 1000

		pt, err := NewPathTracer(s, config, core.NewSeededSampler(3))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		ray := core.NewRay(core.NewVec3(0, 0.5, 0), core.NewVec3(0.3, 1, 0.1))
		if _, err := pt.Radiance(ray, 600); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		stats := pt.Stats()
		pt.Release()
		if stats.MaxDepth != depth {
			t.Errorf("depth %d: expected max depth reached %d, got %d", depth, depth, stats.MaxDepth)
		}
		if stats.RaysTraced != int64(depth+1) {
			t.Errorf("depth %d: expected %d rays traced, got %d", depth, depth+1, stats.RaysTraced)
		}
		if stats.DepthTerminations != 1 {
			t.Errorf("depth %d: expected a single depth termination, got %d", depth, stats.DepthTerminations)
		}
	}
}

func TestPathTracer_RouletteNeverExceedsDepth(t *testing.T) {
	s := createMirrorCorridor(t)
	defer s.Release()

	config := DefaultConfig()
	config.MaximumRecursionDepth = 12
	config.RussianRouletteStartDepth = 0
	config.MinimumContinueProbability = 0.99
	config.MaximumContinueProbability = 1

	pt, err := NewPathTracer(s, config, core.NewSeededSampler(11))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer pt.Release()

	for i := 0; i < 200; i++ {
		ray := core.NewRay(core.NewVec3(0, 0.5, 0), core.NewVec3(float64(i%7)-3, 1, 0.5))
		if _, err := pt.Radiance(ray, 500); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}
	if got := pt.Stats().MaxDepth; got > config.MaximumRecursionDepth {
		t.Errorf("Recursion went to depth %d, bound is %d", got, config.MaximumRecursionDepth)
	}
}

func TestPathTracer_Background(t *testing.T) {
	s := newListScene(t)
	defer s.Release()

	tests := []struct {
		name       string
		background Background
		direction  core.Vec3
		expected   float64
	}{
		{"no background", nil, core.NewVec3(0, 1, 0), 0},
		{"uniform", UniformBackground{Spectrum: spectrum.Constant(0.25)}, core.NewVec3(1, 2, 3), 0.25},
		{"gradient up", GradientBackground{Top: spectrum.Constant(2), Bottom: spectrum.Constant(1)}, core.NewVec3(0, 5, 0), 2},
		{"gradient down", GradientBackground{Top: spectrum.Constant(2), Bottom: spectrum.Constant(1)}, core.NewVec3(0, -1, 0), 1},
		{"gradient horizon", GradientBackground{Top: spectrum.Constant(2), Bottom: spectrum.Constant(1)}, core.NewVec3(1, 0, 0), 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pt, err := NewPathTracer(s, DefaultConfig(), core.NewSeededSampler(5), WithBackground(tt.background))
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			defer pt.Release()

			got, err := pt.Radiance(core.NewRay(core.NewVec3(0, 0, 0), tt.direction), 550)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if math.Abs(got-tt.expected) > 1e-12 {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

// TestPathTracer_PlaneScenario looks straight down at an emitting plane y=0
func TestPathTracer_PlaneScenario(t *testing.T) {
	plane, err := geometry.NewAxisPlane(1, 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	s := newListScene(t, newGeometry(t, plane, material.NewEmissive(spectrum.Constant(3))))
	defer s.Release()

	pt, err := NewPathTracer(s, DefaultConfig(), core.NewSeededSampler(5),
		WithBackground(UniformBackground{Spectrum: spectrum.Constant(0.5)}))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer pt.Release()

	down, err := pt.Radiance(core.NewRay(core.NewVec3(0, 1, 0), core.NewVec3(0, -1, 0)), 550)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if down != 3 {
		t.Errorf("Expected plane emission 3, got %v", down)
	}

	up, err := pt.Radiance(core.NewRay(core.NewVec3(0, 1, 0), core.NewVec3(0, 1, 0)), 550)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if up != 0.5 {
		t.Errorf("Expected background 0.5 looking away from the plane, got %v", up)
	}
}

func TestPathTracer_FailuresAreRayScoped(t *testing.T) {
	// Fails for rays going towards +x, misses everything else
	failing := MockShape{traceFn: func(ray core.Ray, hits *geometry.ShapeHitList) error {
		if ray.Direction.X > 0 {
			_, err := hits.Add(math.NaN(), geometry.FaceFront, 0)
			return err
		}
		return nil
	}}
	s := newListScene(t, newGeometry(t, failing, material.NewEmissive(spectrum.Constant(1))))
	defer s.Release()

	pt, err := NewPathTracer(s, DefaultConfig(), core.NewSeededSampler(5),
		WithBackground(UniformBackground{Spectrum: spectrum.Constant(0.75)}))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer pt.Release()

	_, err = pt.Radiance(core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(1, 0, 0)), 550)
	if !errors.Is(err, core.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}

	got, err := pt.Radiance(core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(-1, 0, 0)), 550)
	if err != nil {
		t.Fatalf("Expected the next ray to succeed, got %v", err)
	}
	if got != 0.75 {
		t.Errorf("Expected background 0.75, got %v", got)
	}
	if pt.Stats().Failures != 1 {
		t.Errorf("Expected 1 failure, got %d", pt.Stats().Failures)
	}
}

func TestPathTracer_MissingNormalCapability(t *testing.T) {
	shape := MockShape{traceFn: func(ray core.Ray, hits *geometry.ShapeHitList) error {
		_, err := hits.Add(1, geometry.FaceFront, 0)
		return err
	}}
	s := newListScene(t, newGeometry(t, shape, material.NewEmissive(spectrum.Constant(1))))
	defer s.Release()

	pt, err := NewPathTracer(s, DefaultConfig(), core.NewSeededSampler(5))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer pt.Release()

	_, err = pt.Radiance(core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, 1)), 550)
	if core.StatusOf(err) != core.StatusNotSupported {
		t.Errorf("Expected not supported, got %v", err)
	}
}

func TestPathTracer_InvalidWavelength(t *testing.T) {
	s := newListScene(t)
	defer s.Release()
	pt, err := NewPathTracer(s, DefaultConfig(), core.NewSeededSampler(5))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer pt.Release()

	for _, wavelength := range []float64{0, -500, math.NaN()} {
		if _, err := pt.Radiance(core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, 1)), wavelength); !errors.Is(err, core.ErrInvalidArgument) {
			t.Errorf("wavelength %v: expected ErrInvalidArgument, got %v", wavelength, err)
		}
	}
}

func TestPathTracer_ContinuePolicy(t *testing.T) {
	s := createFurnaceScene(t, 0.9)
	defer s.Release()

	config := DefaultConfig()
	config.RussianRouletteStartDepth = 0
	config.MinimumContinueProbability = 0.05
	config.MaximumContinueProbability = 1

	// A policy asking for certain termination is still clamped to the minimum
	never := func(throughput float64) float64 { return 0 }
	pt, err := NewPathTracer(s, config, core.NewSeededSampler(9), WithContinuePolicy(never))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer pt.Release()

	const rays = 500
	for i := 0; i < rays; i++ {
		if _, err := pt.Radiance(core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, 1)), 550); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}
	stats := pt.Stats()
	if stats.RouletteTerminations < rays*8/10 {
		t.Errorf("Expected most paths to end by roulette, got %d of %d", stats.RouletteTerminations, rays)
	}
	if stats.MaxDepth == 0 {
		t.Error("Expected the minimum continue probability to let some paths survive")
	}

	pt.ResetStats()
	if pt.Stats() != (Stats{}) {
		t.Errorf("Expected zero stats after reset, got %+v", pt.Stats())
	}
}
