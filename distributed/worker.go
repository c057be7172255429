package distributed

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/ogzhanolguncu/product-stats/logger"
	"github.com/ogzhanolguncu/product-stats/map_reduce"
)

// insertBatchSize bounds how many pairs a map task buffers before handing
// them to the shuffle.
const insertBatchSize = 4096

type Worker struct {
	mapper   map_reduce.Mapper
	reducer  map_reduce.Reducer
	input    io.ReaderAt
	shuffle  *map_reduce.ShuffleGrouper
	log      *logger.Logger
	workerID string
}

func NewWorker(m map_reduce.Mapper, r map_reduce.Reducer, input io.ReaderAt,
	shuffle *map_reduce.ShuffleGrouper, log *logger.Logger,
) *Worker {
	id := uuid.NewString()
	return &Worker{
		mapper:   m,
		reducer:  r,
		input:    input,
		shuffle:  shuffle,
		log:      log.With("worker " + id[:8]),
		workerID: id,
	}
}

func (w *Worker) ID() string {
	return w.workerID
}

// Run executes assignments until the channel is closed or ctx is done.
func (w *Worker) Run(ctx context.Context, assignments <-chan Assignment, completions chan<- Completion) {
	for {
		select {
		case <-ctx.Done():
			return
		case a, ok := <-assignments:
			if !ok {
				return
			}
			done := w.execute(ctx, a)
			select {
			case completions <- done:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (w *Worker) execute(ctx context.Context, a Assignment) Completion {
	done := Completion{
		WorkerID: w.workerID,
		TaskID:   a.TaskID,
		Type:     a.Type,
	}

	switch a.Type {
	case MapTask:
		done.Records, done.Err = w.executeMapTask(ctx, a.Split)
	case ReduceTask:
		done.Results, done.Err = w.executeReduceTask(ctx, a.Partition)
	default:
		done.Err = fmt.Errorf("%w: unknown task type %v", map_reduce.ErrInternalInvariant, a.Type)
	}
	return done
}

func (w *Worker) executeMapTask(ctx context.Context, split map_reduce.Split) (int64, error) {
	w.log.Debugf("Starting map task %d [%d, %d)", split.Index, split.Start, split.End)

	var records int64
	batch := make([]map_reduce.KeyValue, 0, insertBatchSize)
	for kv, err := range map_reduce.MapSplit(w.mapper, w.input, split) {
		if err != nil {
			return records, err
		}
		batch = append(batch, kv)
		if len(batch) == insertBatchSize {
			if err := ctx.Err(); err != nil {
				return records, err
			}
			if err := w.shuffle.Insert(batch); err != nil {
				return records, err
			}
			records += int64(len(batch))
			batch = batch[:0]
		}
	}
	if err := w.shuffle.Insert(batch); err != nil {
		return records, err
	}
	records += int64(len(batch))

	w.log.Debugf("Completed map task %d: %d records", split.Index, records)
	return records, nil
}

func (w *Worker) executeReduceTask(ctx context.Context, partition int) ([]map_reduce.Result, error) {
	groups, err := w.shuffle.Groups(partition)
	if err != nil {
		return nil, err
	}
	w.log.Debugf("Starting reduce task %d: %d keys", partition, len(groups))

	results := make([]map_reduce.Result, 0, len(groups))
	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stats, err := w.reducer.Reduce(g.Key, g.Values)
		if err != nil {
			return nil, fmt.Errorf("reduce error for key %d: %w", g.Key, err)
		}
		results = append(results, map_reduce.Result{Key: g.Key, Stats: stats})
	}

	w.log.Debugf("Completed reduce task %d", partition)
	return results, nil
}
