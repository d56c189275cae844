package renderer

import (
	"errors"
	"runtime"
	"sync"

	"github.com/df07/go-progressive-photonmapper/pkg/core"
)

var (
	errPoolClosed  = errors.New("worker pool is closed")
	errUnknownTask = errors.New("unknown task kind")
)

// TaskKind selects what a worker does with a task
type TaskKind int

const (
	TraceRowsTask   TaskKind = iota // ray-trace a band of image rows
	EmitPhotonsTask                 // emit photons from one light
)

// Task is a unit of work for the worker pool
type Task struct {
	Kind   TaskKind
	TaskID int   // For deterministic ordering
	Seed   int64 // Photon tasks: seed of the task's stream. Row tasks: base seed of the per-row streams

	// TraceRowsTask
	RowStart, RowEnd int
	Frame            *Frame // Shared direct-color buffer; tasks write disjoint rows

	// EmitPhotonsTask
	Light   core.Light
	Photons int
	Energy  core.Vec3
	Index   *SpatialIndex
}

// TaskResult contains the result of one task
type TaskResult struct {
	TaskID     int
	Population *Population // TraceRowsTask
	LensRays   int         // TraceRowsTask
	Photons    int         // EmitPhotonsTask
	Deposits   int64       // EmitPhotonsTask
	Error      error
}

// WorkerPool runs tasks on a fixed set of goroutines
type WorkerPool struct {
	taskQueue   chan Task
	resultQueue chan TaskResult
	workers     []*Worker
	numWorkers  int
	wg          sync.WaitGroup
	stopped     bool
}

// Worker executes tasks from the shared queue
type Worker struct {
	ID          int
	scene       Scene
	maxDepth    int
	taskQueue   chan Task
	resultQueue chan TaskResult
}

// NewWorkerPool creates a worker pool with the specified number of workers
func NewWorkerPool(scene Scene, maxDepth, numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	wp := &WorkerPool{
		taskQueue:   make(chan Task, numWorkers*2),
		resultQueue: make(chan TaskResult, numWorkers*2),
		numWorkers:  numWorkers,
	}

	for i := 0; i < numWorkers; i++ {
		wp.workers = append(wp.workers, &Worker{
			ID:          i,
			scene:       scene,
			maxDepth:    maxDepth,
			taskQueue:   wp.taskQueue,
			resultQueue: wp.resultQueue,
		})
	}

	return wp
}

// Start begins all workers
func (wp *WorkerPool) Start() {
	for _, worker := range wp.workers {
		wp.wg.Add(1)
		go worker.run(&wp.wg)
	}
}

// Stop gracefully shuts down all workers
func (wp *WorkerPool) Stop() {
	if wp.stopped {
		return
	}
	wp.stopped = true
	close(wp.taskQueue) // No more tasks
	wp.wg.Wait()        // Wait for workers to finish
	close(wp.resultQueue)
}

// SubmitTask submits a task to the worker pool
func (wp *WorkerPool) SubmitTask(task Task) {
	wp.taskQueue <- task
}

// GetResult retrieves a completed task result
func (wp *WorkerPool) GetResult() (TaskResult, bool) {
	result, ok := <-wp.resultQueue
	return result, ok
}

// GetNumWorkers returns the number of workers in the pool
func (wp *WorkerPool) GetNumWorkers() int {
	return wp.numWorkers
}

// RunAll submits every task and waits for all of them. Results are returned
// in TaskID order, which must run from 0 to len(tasks)-1. The first task
// error is returned after all tasks have finished.
func (wp *WorkerPool) RunAll(tasks []Task) ([]TaskResult, error) {
	if wp.stopped {
		return nil, errPoolClosed
	}
	go func() {
		for _, task := range tasks {
			wp.SubmitTask(task)
		}
	}()

	results := make([]TaskResult, len(tasks))
	var firstErr error
	for range tasks {
		result, ok := wp.GetResult()
		if !ok {
			return nil, errPoolClosed
		}
		if result.Error != nil && firstErr == nil {
			firstErr = result.Error
		}
		results[result.TaskID] = result
	}
	return results, firstErr
}

// run is the main worker loop
func (w *Worker) run(wg *sync.WaitGroup) {
	defer wg.Done()

	for task := range w.taskQueue {
		var result TaskResult
		switch task.Kind {
		case TraceRowsTask:
			result = w.traceRows(task)
		case EmitPhotonsTask:
			result = w.emitPhotons(task, core.NewSeededSampler(task.Seed))
		default:
			result = TaskResult{Error: errUnknownTask}
		}
		result.TaskID = task.TaskID

		w.resultQueue <- result
	}
}

// traceRows runs the ray tracer for every pixel of the task's rows. Direct
// colors go straight into the shared frame; the HitPoints stay task-local.
// Each row draws from its own stream, so the population does not depend on
// how rows are grouped into tasks.
func (w *Worker) traceRows(task Task) TaskResult {
	population := &Population{}
	camera := w.scene.GetCamera()
	lensSamples := camera.LensSamples()
	rays := 0

	for row := task.RowStart; row < task.RowEnd; row++ {
		sampler := core.NewSeededSampler(rowSeed(task.Seed, row))
		rt := NewRaytracer(w.scene, w.maxDepth, sampler, population)
		for col := 0; col < task.Frame.Width; col++ {
			r := float64(row) + 0.5
			c := float64(col) + 0.5

			if lensSamples == 1 {
				sample := PathSample{Row: row, Col: col, Weight: core.NewVec3(1, 1, 1)}
				ray := core.NewRay(camera.Origin(), camera.Ray(r, c))
				task.Frame.Set(col, row, rt.Trace(ray, sample, 0))
				rays++
				continue
			}

			inv := 1.0 / float64(lensSamples)
			sample := PathSample{Row: row, Col: col, Weight: core.NewVec3(inv, inv, inv)}
			colorAccum := core.Vec3{}
			for s := 0; s < lensSamples; s++ {
				origin, dir := camera.RayAperture(r, c, sampler)
				colorAccum = colorAccum.Add(rt.Trace(core.NewRay(origin, dir), sample, 0))
				rays++
			}
			task.Frame.Set(col, row, colorAccum.Multiply(inv))
		}
	}

	return TaskResult{Population: population, LensRays: rays}
}

// emitPhotons traces the task's share of one light's photons
func (w *Worker) emitPhotons(task Task, sampler core.Sampler) TaskResult {
	tracer := NewPhotonTracer(w.scene.GetObjects(), w.maxDepth, task.Index, sampler)
	for i := 0; i < task.Photons; i++ {
		tracer.Emit(task.Light, task.Energy)
	}
	return TaskResult{Photons: task.Photons, Deposits: tracer.Deposits()}
}
