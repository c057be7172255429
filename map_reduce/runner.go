package map_reduce

import (
	"context"
	"fmt"
	"io"
	"slices"
)

// Runner executes the whole job in the calling goroutine. It produces the
// same results as the parallel coordinator and serves as its reference.
type Runner struct {
	mapper  Mapper
	reducer Reducer
}

func NewRunner(m Mapper, r Reducer) *Runner {
	return &Runner{
		mapper:  m,
		reducer: r,
	}
}

// cancelCheckInterval is how many pairs Run maps between context checks.
const cancelCheckInterval = 4096

func (r *Runner) Run(ctx context.Context, input io.ReaderAt, size int64) ([]Result, error) {
	whole := Split{Index: 0, Start: 0, End: size}

	var keys []int32
	groups := make(map[int32][]int32)
	var pairs int
	for kv, err := range MapSplit(r.mapper, input, whole) {
		if err != nil {
			return nil, fmt.Errorf("mapping error: %w", err)
		}
		pairs++
		if pairs%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if _, ok := groups[kv.Key]; !ok {
			keys = append(keys, kv.Key)
		}
		groups[kv.Key] = append(groups[kv.Key], kv.Value)
	}

	slices.Sort(keys)
	results := make([]Result, 0, len(keys))
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stats, err := r.reducer.Reduce(key, groups[key])
		if err != nil {
			return nil, fmt.Errorf("reduce error for key %d: %w", key, err)
		}
		results = append(results, Result{Key: key, Stats: stats})
	}

	return results, nil
}
