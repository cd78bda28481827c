// Package config loads render configurations written in TOML.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/df07/go-spectral-pathtracer/pkg/core"
	"github.com/df07/go-spectral-pathtracer/pkg/integrator"
	"github.com/df07/go-spectral-pathtracer/pkg/renderer"
	"github.com/df07/go-spectral-pathtracer/pkg/scene"
	"github.com/df07/go-spectral-pathtracer/pkg/spectrum"
)

const Help = `
The configuration format is TOML with five optional tables. Missing keys keep
their defaults.

[render]
  width, height          image size in pixels
  samples_per_pixel      maximum samples per pixel
  passes                 number of progressive passes
  tile_size              tile edge in pixels
  workers                render goroutines (0 = one per CPU)
  seed                   base random seed; output is reproducible per seed
  gamma                  display gamma of the written image
  adaptive_threshold     relative error at which a pixel stops early (0 = off)
  adaptive_min_samples   fraction of a pass taken before the check applies
  scratch_limit          hit data budget per worker in bytes (0 = unlimited)

[integrator]
  epsilon                        continuation ray offset along the normal
  min_continue_probability       lower Russian roulette clamp
  max_continue_probability       upper Russian roulette clamp
  russian_roulette_start_depth   first depth at which roulette applies
  max_recursion_depth            hard path depth bound

[spectrum]
  min_wavelength, max_wavelength sampled range in nanometres
  wavelengths_per_sample         1 = uniform, more = hero wavelength rotation

[scene]
  script        path of a scene script; overrides builtin
  builtin       name of a built-in scene
  accelerator   list, bvh or rtree

[output]
  path          PNG file to write

A small example:

[render]
  width = 320
  height = 240
  samples_per_pixel = 32

[scene]
  builtin = "cornell"
  accelerator = "bvh"
`

// File is the top-level configuration document
type File struct {
	Render     Render     `toml:"render"`
	Integrator Integrator `toml:"integrator"`
	Spectrum   Spectrum   `toml:"spectrum"`
	Scene      Scene      `toml:"scene"`
	Output     Output     `toml:"output"`
}

// Render holds image and scheduling settings
type Render struct {
	Width              int     `toml:"width"`
	Height             int     `toml:"height"`
	SamplesPerPixel    int     `toml:"samples_per_pixel"`
	Passes             int     `toml:"passes"`
	TileSize           int     `toml:"tile_size"`
	Workers            int     `toml:"workers"`
	Seed               int64   `toml:"seed"`
	Gamma              float64 `toml:"gamma"`
	AdaptiveThreshold  float64 `toml:"adaptive_threshold"`
	AdaptiveMinSamples float64 `toml:"adaptive_min_samples"`
	ScratchLimit       int     `toml:"scratch_limit"`
}

// Integrator holds path termination settings
type Integrator struct {
	Epsilon                   float64 `toml:"epsilon"`
	MinContinueProbability    float64 `toml:"min_continue_probability"`
	MaxContinueProbability    float64 `toml:"max_continue_probability"`
	RussianRouletteStartDepth int     `toml:"russian_roulette_start_depth"`
	MaxRecursionDepth         int     `toml:"max_recursion_depth"`
}

// Spectrum holds wavelength sampling settings
type Spectrum struct {
	MinWavelength        float64 `toml:"min_wavelength"`
	MaxWavelength        float64 `toml:"max_wavelength"`
	WavelengthsPerSample int     `toml:"wavelengths_per_sample"`
}

// Scene selects what to render
type Scene struct {
	Script      string `toml:"script"`
	Builtin     string `toml:"builtin"`
	Accelerator string `toml:"accelerator"`
}

// Output selects where to write the image
type Output struct {
	Path string `toml:"path"`
}

// Default returns the configuration used when no file is given
func Default() *File {
	r := renderer.DefaultConfig()
	ic := integrator.DefaultConfig()
	sampling := spectrum.DefaultSampling()
	return &File{
		Render: Render{
			Width:              r.Width,
			Height:             r.Height,
			SamplesPerPixel:    r.MaxSamplesPerPixel,
			Passes:             r.MaxPasses,
			TileSize:           r.TileSize,
			Workers:            r.NumWorkers,
			Seed:               r.Seed,
			Gamma:              r.Gamma,
			AdaptiveThreshold:  r.AdaptiveThreshold,
			AdaptiveMinSamples: r.AdaptiveMinSamples,
			ScratchLimit:       r.ScratchLimit,
		},
		Integrator: Integrator{
			Epsilon:                   ic.Epsilon,
			MinContinueProbability:    ic.MinimumContinueProbability,
			MaxContinueProbability:    ic.MaximumContinueProbability,
			RussianRouletteStartDepth: ic.RussianRouletteStartDepth,
			MaxRecursionDepth:         ic.MaximumRecursionDepth,
		},
		Spectrum: Spectrum{
			MinWavelength:        sampling.Min,
			MaxWavelength:        sampling.Max,
			WavelengthsPerSample: sampling.Count,
		},
		Scene: Scene{
			Builtin:     "cornell",
			Accelerator: string(scene.AcceleratorBVH),
		},
		Output: Output{Path: "output/render.png"},
	}
}

// Load reads and validates the configuration file at path
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes a TOML document over the defaults and validates the result.
// Unknown keys are rejected so typos do not pass silently.
func Parse(data []byte) (*File, error) {
	f := Default()
	md, err := toml.Decode(string(data), f)
	if err != nil {
		return nil, core.WrapError(core.StatusInvalidArgument, "config.parse", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return nil, core.NewError(core.StatusInvalidArgument, "config.parse",
			fmt.Sprintf("unknown keys: %s", strings.Join(keys, ", ")))
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Marshal encodes f as TOML
func Marshal(f *File) ([]byte, error) {
	var b bytes.Buffer
	if err := toml.NewEncoder(&b).Encode(f); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// Validate checks every section by building the configs it converts to
func (f *File) Validate() error {
	if err := f.RendererConfig().Validate(); err != nil {
		return err
	}
	if _, err := f.Accelerator(); err != nil {
		return err
	}
	if f.Scene.Script == "" && f.Scene.Builtin == "" {
		return core.NewError(core.StatusInvalidArgument, "config.validate", "either scene.script or scene.builtin is required")
	}
	return nil
}

// IntegratorConfig converts the [integrator] table
func (f *File) IntegratorConfig() integrator.Config {
	return integrator.Config{
		Epsilon:                    f.Integrator.Epsilon,
		MinimumContinueProbability: f.Integrator.MinContinueProbability,
		MaximumContinueProbability: f.Integrator.MaxContinueProbability,
		RussianRouletteStartDepth:  f.Integrator.RussianRouletteStartDepth,
		MaximumRecursionDepth:      f.Integrator.MaxRecursionDepth,
	}
}

// Sampling converts the [spectrum] table
func (f *File) Sampling() spectrum.Sampling {
	return spectrum.Sampling{
		Min:   f.Spectrum.MinWavelength,
		Max:   f.Spectrum.MaxWavelength,
		Count: f.Spectrum.WavelengthsPerSample,
	}
}

// RendererConfig converts the [render] table together with the integrator
// and spectrum settings
func (f *File) RendererConfig() renderer.Config {
	config := renderer.DefaultConfig()
	config.Width = f.Render.Width
	config.Height = f.Render.Height
	config.MaxSamplesPerPixel = f.Render.SamplesPerPixel
	config.InitialSamples = min(config.InitialSamples, max(1, f.Render.SamplesPerPixel))
	config.MaxPasses = f.Render.Passes
	config.TileSize = f.Render.TileSize
	config.NumWorkers = f.Render.Workers
	config.Seed = f.Render.Seed
	config.Gamma = f.Render.Gamma
	config.AdaptiveThreshold = f.Render.AdaptiveThreshold
	config.AdaptiveMinSamples = f.Render.AdaptiveMinSamples
	config.ScratchLimit = f.Render.ScratchLimit
	config.Sampling = f.Sampling()
	config.Integrator = f.IntegratorConfig()
	return config
}

// Accelerator parses scene.accelerator
func (f *File) Accelerator() (scene.Accelerator, error) {
	return scene.ParseAccelerator(f.Scene.Accelerator)
}
