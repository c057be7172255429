package distributed

import "github.com/ogzhanolguncu/product-stats/map_reduce"

// Assignment is what the coordinator hands a worker.
type Assignment struct {
	Split     map_reduce.Split // map tasks
	TaskID    int
	Partition int // reduce tasks
	Type      TaskType
}

// Completion is what a worker reports back after running an Assignment.
type Completion struct {
	Err      error
	WorkerID string
	Results  []map_reduce.Result // reduce tasks
	Records  int64               // map tasks
	TaskID   int
	Type     TaskType
}
