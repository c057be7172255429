package map_reduce

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrMalformedRecord      = errors.New("malformed record")
	ErrInternalInvariant    = errors.New("internal invariant broken")
	ErrIO                   = errors.New("io failure")
)

// RecordError reports a line that could not be parsed into a key/value pair.
type RecordError struct {
	Err    error
	Text   string
	Offset int64
	Line   int
	Split  int
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("malformed record at byte %d (split %d, line %d) %q: %v",
		e.Offset, e.Split, e.Line, e.Text, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

func (e *RecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}
