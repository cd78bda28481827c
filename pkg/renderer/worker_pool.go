package renderer

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/df07/go-spectral-pathtracer/pkg/core"
	"github.com/df07/go-spectral-pathtracer/pkg/integrator"
	"github.com/df07/go-spectral-pathtracer/pkg/scene"
)

// TileTask represents a tile rendering task for the worker pool
type TileTask struct {
	Tile          *Tile
	PassNumber    int
	TargetSamples int
	TaskID        int            // For deterministic ordering
	PixelStats    [][]PixelStats // Shared pixel stats array to write to
}

// TileResult contains the result from rendering a tile
type TileResult struct {
	TaskID int
	Stats  RenderStats
}

// WorkerPool runs tile tasks on a fixed set of workers. Each worker owns
// its path tracer, hit tester and random stream; only the scene is shared.
type WorkerPool struct {
	workers []*Worker
}

// Worker renders tiles with its own tracing state
type Worker struct {
	ID         int
	sampler    *core.RandomSampler
	pathTracer *integrator.PathTracer
	renderer   *TileRenderer
}

// NewWorkerPool creates config.NumWorkers workers (the CPU count when 0)
func NewWorkerPool(s scene.Scene, camera *Camera, background integrator.Background, config Config) (*WorkerPool, error) {
	numWorkers := config.NumWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	wp := &WorkerPool{}
	for i := 0; i < numWorkers; i++ {
		worker, err := newWorker(i, s, camera, background, config)
		if err != nil {
			wp.Close()
			return nil, err
		}
		wp.workers = append(wp.workers, worker)
	}
	return wp, nil
}

func newWorker(id int, s scene.Scene, camera *Camera, background integrator.Background, config Config) (*Worker, error) {
	sampler := core.NewSeededSampler(config.Seed)
	pathTracer, err := integrator.NewPathTracer(s, config.Integrator, sampler,
		integrator.WithBackground(background),
		integrator.WithScratchLimit(config.ScratchLimit))
	if err != nil {
		return nil, err
	}
	sampleTracer, err := integrator.NewSampleTracer(pathTracer, config.Sampling, sampler)
	if err != nil {
		pathTracer.Release()
		return nil, err
	}
	return &Worker{
		ID:         id,
		sampler:    sampler,
		pathTracer: pathTracer,
		renderer:   NewTileRenderer(camera, sampleTracer, config),
	}, nil
}

// NumWorkers returns the number of workers in the pool
func (wp *WorkerPool) NumWorkers() int {
	return len(wp.workers)
}

// Run renders every task and returns the results indexed like tasks.
// Cancellation is checked before each tile; a tile in progress always
// completes.
func (wp *WorkerPool) Run(ctx context.Context, tasks []TileTask) ([]TileResult, error) {
	results := make([]TileResult, len(tasks))
	g, ctx := errgroup.WithContext(ctx)

	queue := make(chan int)
	g.Go(func() error {
		defer close(queue)
		for i := range tasks {
			select {
			case queue <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for _, worker := range wp.workers {
		g.Go(func() error {
			for i := range queue {
				if err := ctx.Err(); err != nil {
					return err
				}
				results[i] = worker.render(tasks[i])
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// render draws one tile. The worker's random stream restarts from the
// tile's seed, so the output does not depend on which worker runs it.
func (w *Worker) render(task TileTask) TileResult {
	w.sampler.Seed(task.Tile.Seed(task.PassNumber))
	w.pathTracer.ResetStats()

	// Tiles have non-overlapping bounds, so writing the shared array is safe
	stats := w.renderer.RenderTileBounds(task.Tile.Bounds, task.PixelStats, w.sampler, task.TargetSamples)
	stats.Paths = w.pathTracer.Stats()
	return TileResult{TaskID: task.TaskID, Stats: stats}
}

// Close releases the workers' scene references
func (wp *WorkerPool) Close() {
	for _, worker := range wp.workers {
		worker.pathTracer.Release()
	}
	wp.workers = nil
}
