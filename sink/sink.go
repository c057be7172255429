package sink

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ogzhanolguncu/product-stats/map_reduce"
)

// Sink receives the finished output of a run. Commit is called at most once
// and only after every task succeeded.
type Sink interface {
	Commit(lines []string, m Manifest) error
}

// Manifest describes a completed run.
type Manifest struct {
	Started    time.Time
	Finished   time.Time
	JobID      string
	Nodes      int
	Reducers   int
	Splits     int
	Keys       int
	Records    int64
	InputBytes int64
}

// WriterSink writes the output lines to w in a single write.
type WriterSink struct {
	w io.Writer
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Commit(lines []string, _ Manifest) error {
	if len(lines) == 0 {
		return nil
	}
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if _, err := io.WriteString(s.w, b.String()); err != nil {
		return fmt.Errorf("%w: writing output: %w", map_reduce.ErrIO, err)
	}
	return nil
}
