package distributed

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ogzhanolguncu/product-stats/logger"
	"github.com/ogzhanolguncu/product-stats/map_reduce"
	"github.com/ogzhanolguncu/product-stats/sink"
)

// Input is a random-access input of known size, such as *os.File wrapped in
// an *io.SectionReader.
type Input interface {
	io.ReaderAt
	Size() int64
}

type Config struct {
	// Nodes is the worker pool size. Reduce parallelism is Nodes/2.
	Nodes int
}

// Coordinator runs a job over a pool of Config.Nodes workers: one map task
// per split, a barrier, one reduce task per partition, a second barrier,
// then the sorted results. The first task failure cancels the pool.
type Coordinator struct {
	planner *map_reduce.SplitPlanner
	mapper  map_reduce.Mapper
	reducer map_reduce.Reducer
	log     *logger.Logger
	nodes   int
	nReduce int
}

func NewCoordinator(cfg Config, m map_reduce.Mapper, r map_reduce.Reducer, log *logger.Logger) (*Coordinator, error) {
	planner, err := map_reduce.NewSplitPlanner(cfg.Nodes)
	if err != nil {
		return nil, err
	}
	nReduce, err := map_reduce.ReducerCount(cfg.Nodes)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Discard()
	}

	return &Coordinator{
		planner: planner,
		mapper:  m,
		reducer: r,
		log:     log,
		nodes:   cfg.Nodes,
		nReduce: nReduce,
	}, nil
}

func (c *Coordinator) Nodes() int {
	return c.nodes
}

func (c *Coordinator) Reducers() int {
	return c.nReduce
}

// Run executes the job and commits the output lines to out. Nothing reaches
// out unless every task succeeded.
func (c *Coordinator) Run(ctx context.Context, input Input, out sink.Sink) error {
	results, manifest, err := c.Execute(ctx, input)
	if err != nil {
		return err
	}

	lines := make([]string, len(results))
	for i, r := range results {
		lines[i] = r.String()
	}
	if err := out.Commit(lines, manifest); err != nil {
		return fmt.Errorf("committing output: %w", err)
	}
	return nil
}

// Execute runs the job and returns one result per key, sorted by key.
func (c *Coordinator) Execute(ctx context.Context, input Input) ([]map_reduce.Result, sink.Manifest, error) {
	manifest := sink.Manifest{
		Started:    time.Now(),
		JobID:      uuid.NewString(),
		Nodes:      c.nodes,
		Reducers:   c.nReduce,
		InputBytes: input.Size(),
	}
	log := c.log.With("job " + manifest.JobID[:8])

	splits, err := c.planner.Plan(input, input.Size())
	if err != nil {
		return nil, manifest, fmt.Errorf("planning splits: %w", err)
	}
	manifest.Splits = len(splits)

	shuffle, err := map_reduce.NewShuffleGrouper(c.nReduce)
	if err != nil {
		return nil, manifest, err
	}
	tracker := NewTaskTracker(c.nReduce)
	tracker.InitMapTasks(splits)

	ctx, cancel := context.WithCancel(ctx)
	assignments := make(chan Assignment)
	// Each worker holds at most one finished task, so this never blocks a
	// worker that is shutting down.
	completions := make(chan Completion, c.nodes)

	var wg sync.WaitGroup
	for i := 0; i < c.nodes; i++ {
		worker := NewWorker(c.mapper, c.reducer, input, shuffle, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(ctx, assignments, completions)
		}()
	}
	defer func() {
		cancel()
		close(assignments)
		wg.Wait()
	}()

	log.Infof("Starting map phase: %d bytes in %d splits over %d workers", input.Size(), len(splits), c.nodes)
	err = c.runPhase(ctx, log, tracker, MapTask, assignments, completions, func(done Completion) {
		manifest.Records += done.Records
	})
	if err != nil {
		return nil, manifest, err
	}

	shuffle.Seal()
	if err := tracker.TransitionToReducePhase(); err != nil {
		return nil, manifest, err
	}
	log.Infof("Map phase complete: %d records, %d keys; starting %d reduce tasks",
		shuffle.Pairs(), shuffle.Keys(), c.nReduce)

	var results []map_reduce.Result
	err = c.runPhase(ctx, log, tracker, ReduceTask, assignments, completions, func(done Completion) {
		results = append(results, done.Results...)
	})
	if err != nil {
		return nil, manifest, err
	}

	var reduced int64
	for _, r := range results {
		reduced += int64(r.Stats.Count)
	}
	if reduced != manifest.Records {
		return nil, manifest, fmt.Errorf("%w: mapped %d records but reduced %d",
			map_reduce.ErrInternalInvariant, manifest.Records, reduced)
	}

	slices.SortFunc(results, func(a, b map_reduce.Result) int {
		return cmp.Compare(a.Key, b.Key)
	})
	manifest.Keys = len(results)
	manifest.Finished = time.Now()
	log.Infof("Reduce phase complete: %d keys in %v", len(results), manifest.Finished.Sub(manifest.Started))
	return results, manifest, nil
}

// runPhase feeds the tracker's tasks to the pool until every task of the
// phase has completed. It returns on the first failed task.
func (c *Coordinator) runPhase(ctx context.Context, log *logger.Logger, tracker *TaskTracker, phase TaskType,
	assignments chan<- Assignment, completions <-chan Completion, onComplete func(Completion),
) error {
	next, ok := tracker.NextTask()
	for !tracker.isPhaseDone(phase) {
		var out chan<- Assignment
		var a Assignment
		if ok {
			out = assignments
			a = next.assignment()
		}

		select {
		case out <- a:
			log.Debugf("Dispatched %s task %d", a.Type, a.TaskID)
			next, ok = tracker.NextTask()
		case done := <-completions:
			if done.Err != nil {
				if err := tracker.MarkFailed(done.TaskID, done.WorkerID, done.Err); err != nil {
					log.Warnf("Recording failure of %s task %d: %v", done.Type, done.TaskID, err)
				}
				log.Errorf("%s task %d failed on worker %s: %v", done.Type, done.TaskID, done.WorkerID, done.Err)
				return fmt.Errorf("%s task %d: %w", done.Type, done.TaskID, done.Err)
			}
			if err := tracker.MarkComplete(done.TaskID, done.WorkerID); err != nil {
				return err
			}
			onComplete(done)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
