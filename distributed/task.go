package distributed

import (
	"fmt"
	"sync"
	"time"

	"github.com/ogzhanolguncu/product-stats/map_reduce"
)

type TaskState int

const (
	TaskIdle TaskState = iota
	TaskInProgress
	TaskCompleted
	TaskFailed
)

func (s TaskState) String() string {
	switch s {
	case TaskIdle:
		return "idle"
	case TaskInProgress:
		return "in-progress"
	case TaskCompleted:
		return "completed"
	case TaskFailed:
		return "failed"
	default:
		return fmt.Sprintf("TaskState(%d)", int(s))
	}
}

type TaskType int

const (
	MapTask TaskType = iota
	ReduceTask
)

func (t TaskType) String() string {
	switch t {
	case MapTask:
		return "map"
	case ReduceTask:
		return "reduce"
	default:
		return fmt.Sprintf("TaskType(%d)", int(t))
	}
}

type TaskMetadata struct {
	StartTime time.Time
	EndTime   time.Time
	Err       error
	Worker    string
	Attempts  int
}

type Task struct {
	Metadata  TaskMetadata
	Split     map_reduce.Split
	ID        int
	Partition int
	Type      TaskType
	State     TaskState
}

func (t *Task) assignment() Assignment {
	return Assignment{
		Split:     t.Split,
		TaskID:    t.ID,
		Partition: t.Partition,
		Type:      t.Type,
	}
}

// TaskTracker holds the task table of the current phase. Tasks are handed
// out in ID order and never retried: a failed task fails the run.
type TaskTracker struct {
	tasks            map[int]*Task
	mu               sync.RWMutex
	nReduce          int
	hasStartedReduce bool
}

func NewTaskTracker(nReduce int) *TaskTracker {
	return &TaskTracker{
		tasks:   make(map[int]*Task),
		nReduce: nReduce,
	}
}

func (t *TaskTracker) InitMapTasks(splits []map_reduce.Split) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.tasks = make(map[int]*Task, len(splits))
	for i, split := range splits {
		t.tasks[i] = &Task{
			ID:    i,
			Type:  MapTask,
			State: TaskIdle,
			Split: split,
		}
	}
	t.hasStartedReduce = false
}

// NextTask marks the lowest idle task as in progress and returns it.
func (t *TaskTracker) NextTask() (*Task, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id := 0; id < len(t.tasks); id++ {
		task := t.tasks[id]
		if task.State == TaskIdle {
			task.State = TaskInProgress
			task.Metadata.StartTime = time.Now()
			task.Metadata.Attempts++
			return task, true
		}
	}
	return nil, false
}

func (t *TaskTracker) MarkComplete(taskID int, workerID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	task, err := t.inProgressNoLock(taskID)
	if err != nil {
		return err
	}
	task.State = TaskCompleted
	task.Metadata.Worker = workerID
	task.Metadata.EndTime = time.Now()
	return nil
}

func (t *TaskTracker) MarkFailed(taskID int, workerID string, cause error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	task, err := t.inProgressNoLock(taskID)
	if err != nil {
		return err
	}
	task.State = TaskFailed
	task.Metadata.Worker = workerID
	task.Metadata.EndTime = time.Now()
	task.Metadata.Err = cause
	return nil
}

func (t *TaskTracker) inProgressNoLock(taskID int) (*Task, error) {
	task, exists := t.tasks[taskID]
	if !exists {
		return nil, fmt.Errorf("%w: task %d not found", map_reduce.ErrInternalInvariant, taskID)
	}
	if task.State != TaskInProgress {
		return nil, fmt.Errorf("%w: task %d is %s, not in progress", map_reduce.ErrInternalInvariant, taskID, task.State)
	}
	return task, nil
}

func (t *TaskTracker) Task(taskID int) (Task, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	task, ok := t.tasks[taskID]
	if !ok {
		return Task{}, false
	}
	return *task, true
}

func (t *TaskTracker) IsMapPhaseDone() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return !t.hasStartedReduce && t.allCompleteNoLock()
}

func (t *TaskTracker) IsReducePhaseDone() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.hasStartedReduce && t.allCompleteNoLock()
}

func (t *TaskTracker) isPhaseDone(phase TaskType) bool {
	if phase == MapTask {
		return t.IsMapPhaseDone()
	}
	return t.IsReducePhaseDone()
}

// TransitionToReducePhase replaces the finished map tasks with one reduce
// task per partition. It refuses while any map task is unfinished.
func (t *TaskTracker) TransitionToReducePhase() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.hasStartedReduce {
		return fmt.Errorf("%w: reduce phase already started", map_reduce.ErrInternalInvariant)
	}
	if !t.allCompleteNoLock() {
		return fmt.Errorf("%w: map phase not complete", map_reduce.ErrInternalInvariant)
	}

	t.tasks = make(map[int]*Task, t.nReduce)
	for i := 0; i < t.nReduce; i++ {
		t.tasks[i] = &Task{
			ID:        i,
			Type:      ReduceTask,
			State:     TaskIdle,
			Partition: i,
		}
	}

	t.hasStartedReduce = true
	return nil
}

func (t *TaskTracker) allCompleteNoLock() bool {
	for _, task := range t.tasks {
		if task.State != TaskCompleted {
			return false
		}
	}
	return true
}
