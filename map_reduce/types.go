package map_reduce

import "fmt"

// Record is one raw input line.
type Record struct {
	Text   string
	Offset int64
	Line   int
	Split  int
}

type KeyValue struct {
	Key   int32
	Value int32
}

// Split is the byte range [Start, End) handed to a single map task.
type Split struct {
	Index int
	Start int64
	End   int64
}

func (s Split) Len() int64 {
	return s.End - s.Start
}

// Group holds every value seen for Key, in arrival order.
type Group struct {
	Values []int32
	Key    int32
}

type Statistics struct {
	Average float64
	Sum     int64
	Count   int
	Min     int32
	Max     int32
}

type Result struct {
	Stats Statistics
	Key   int32
}

// String renders the output line for r.
func (r Result) String() string {
	return fmt.Sprintf("Product %d: \tCount: %d, Average: %s, Min: %d, Max: %d",
		r.Key, r.Stats.Count, FormatAverage(r.Stats.Average), r.Stats.Min, r.Stats.Max)
}

type Mapper interface {
	Map(rec Record) ([]KeyValue, error)
}

type Reducer interface {
	Reduce(key int32, values []int32) (Statistics, error)
}
