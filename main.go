package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/df07/go-spectral-pathtracer/pkg/config"
	"github.com/df07/go-spectral-pathtracer/pkg/loaders"
	"github.com/df07/go-spectral-pathtracer/pkg/renderer"
)

// options are the command line settings layered over the config file
type options struct {
	configPath  string
	sceneName   string
	scenesDir   string
	accelerator string
	samples     int
	passes      int
	workers     int
	seed        int64
	width       int
	height      int
	out         string
	verbose     bool
	list        bool
	printConfig bool
}

// zapLogger adapts a sugared zap logger to the renderer's Printf logger
type zapLogger struct {
	sugar *zap.SugaredLogger
}

func (l zapLogger) Printf(format string, args ...interface{}) {
	l.sugar.Infof(strings.TrimSuffix(format, "\n"), args...)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, stdout io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("pathtracer", flag.ContinueOnError)
	fs.SetOutput(stdout)
	fs.StringVar(&opts.configPath, "config", "", "TOML configuration file")
	fs.StringVar(&opts.sceneName, "scene", "", "Built-in scene name, script name in -scenes, or path to a .zy script")
	fs.StringVar(&opts.scenesDir, "scenes", "scenes", "Directory searched for scene scripts")
	fs.StringVar(&opts.accelerator, "accel", "", "Scene accelerator: list, bvh or rtree")
	fs.IntVar(&opts.samples, "samples", 0, "Maximum samples per pixel")
	fs.IntVar(&opts.passes, "passes", 0, "Number of progressive passes")
	fs.IntVar(&opts.workers, "workers", -1, "Render goroutines (0 = one per CPU)")
	fs.Int64Var(&opts.seed, "seed", 0, "Base random seed")
	fs.IntVar(&opts.width, "width", 0, "Image width in pixels")
	fs.IntVar(&opts.height, "height", 0, "Image height in pixels")
	fs.StringVar(&opts.out, "out", "", "Output PNG path")
	fs.BoolVar(&opts.verbose, "verbose", false, "Development logging")
	fs.BoolVar(&opts.list, "list", false, "List available scenes and exit")
	fs.BoolVar(&opts.printConfig, "print-config", false, "Print the effective configuration and exit")
	fs.Usage = func() {
		fmt.Fprintln(stdout, "Spectral Path Tracer")
		fmt.Fprintln(stdout, "Usage: pathtracer [options]")
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "Options:")
		fs.PrintDefaults()
		fmt.Fprintln(stdout)
		fmt.Fprint(stdout, "Configuration file:", config.Help)
	}
	err := fs.Parse(args)
	return opts, err
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, err := parseFlags(args, stdout)
	if err != nil {
		return err
	}

	if opts.list {
		return listScenes(stdout, opts.scenesDir)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	if opts.printConfig {
		data, err := config.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = stdout.Write(data)
		return err
	}

	logger, err := newLogger(opts.verbose)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("job", uuid.NewString()))

	return render(ctx, cfg, logger)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// loadConfig reads the config file, if any, and applies flag overrides
func loadConfig(opts options) (*config.File, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return nil, err
		}
	}

	if opts.sceneName != "" {
		script, err := resolveScene(opts.sceneName, opts.scenesDir)
		if err != nil {
			return nil, err
		}
		if script != "" {
			cfg.Scene.Script, cfg.Scene.Builtin = script, ""
		} else {
			cfg.Scene.Script, cfg.Scene.Builtin = "", opts.sceneName
		}
	}
	if opts.accelerator != "" {
		cfg.Scene.Accelerator = opts.accelerator
	}
	if opts.samples > 0 {
		cfg.Render.SamplesPerPixel = opts.samples
	}
	if opts.passes > 0 {
		cfg.Render.Passes = opts.passes
	}
	if opts.workers >= 0 {
		cfg.Render.Workers = opts.workers
	}
	if opts.seed != 0 {
		cfg.Render.Seed = opts.seed
	}
	if opts.width > 0 {
		cfg.Render.Width = opts.width
	}
	if opts.height > 0 {
		cfg.Render.Height = opts.height
	}
	if opts.out != "" {
		cfg.Output.Path = opts.out
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveScene maps a -scene value to a script path. An empty path means
// name is a built-in scene.
func resolveScene(name, scenesDir string) (string, error) {
	if strings.HasSuffix(name, loaders.ScriptExt) {
		return name, nil
	}
	for _, p := range loaders.Presets() {
		if p.Name == name {
			return "", nil
		}
	}
	path := filepath.Join(scenesDir, name+loaders.ScriptExt)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("unknown scene %q (use -list to see available scenes)", name)
}

func listScenes(w io.Writer, scenesDir string) error {
	scenes, err := loaders.ListAllScenes(scenesDir)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "Available scenes:")
	for _, s := range scenes {
		fmt.Fprintf(w, "  %-20s %-8s %s\n", s.ID, s.Type, s.Description)
	}
	return nil
}

func loadDescription(ctx context.Context, cfg *config.File) (*loaders.Description, error) {
	if cfg.Scene.Script != "" {
		return loaders.LoadScriptFile(ctx, cfg.Scene.Script)
	}
	return loaders.LoadPreset(cfg.Scene.Builtin)
}

func render(ctx context.Context, cfg *config.File, logger *zap.Logger) error {
	desc, err := loadDescription(ctx, cfg)
	if err != nil {
		return err
	}

	kind, err := cfg.Accelerator()
	if err != nil {
		desc.Release()
		return err
	}
	s, err := desc.Build(kind)
	geometries := len(desc.Geometries)
	desc.Release()
	if err != nil {
		return fmt.Errorf("building scene: %w", err)
	}
	defer s.Release()

	logger.Info("scene loaded",
		zap.String("scene", desc.Name),
		zap.String("accelerator", string(kind)),
		zap.Int("geometries", geometries))

	rc := cfg.RendererConfig()
	camera, err := renderer.NewCamera(desc.Camera, rc.AspectRatio())
	if err != nil {
		return fmt.Errorf("creating camera: %w", err)
	}

	raytracer, err := renderer.NewProgressiveRaytracer(s, camera, desc.Background, rc, zapLogger{logger.Sugar()})
	if err != nil {
		return err
	}
	defer raytracer.Close()

	logger.Info("render started",
		zap.Int("width", rc.Width),
		zap.Int("height", rc.Height),
		zap.Int("samples", rc.MaxSamplesPerPixel),
		zap.Int("passes", rc.MaxPasses),
		zap.Int("workers", raytracer.NumWorkers()))

	img, stats, err := raytracer.Render(ctx)
	if err != nil {
		return fmt.Errorf("rendering: %w", err)
	}

	if err := writePNG(cfg.Output.Path, img); err != nil {
		return err
	}

	logger.Info("render finished",
		zap.String("output", cfg.Output.Path),
		zap.Duration("duration", stats.Duration),
		zap.Float64("avg_samples", stats.AverageSamples),
		zap.Int("failed_samples", stats.FailedSamples),
		zap.Int64("rays", stats.Paths.RaysTraced),
		zap.Int("max_depth", stats.Paths.MaxDepth),
		zap.Float64("avg_luminance", renderer.CalculateAverageLuminance(img)))
	return nil
}

func writePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return fmt.Errorf("encoding PNG: %w", err)
	}
	return file.Close()
}
