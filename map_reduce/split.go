package map_reduce

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

const boundaryScanSize = 4096

// ReducerCount returns how many reduce partitions a run over nodes workers
// gets: half the workers, rounded down. One worker leaves no reducer, which
// is rejected rather than producing an empty result.
func ReducerCount(nodes int) (int, error) {
	if nodes <= 0 {
		return 0, fmt.Errorf("%w: node count must be positive, got %d", ErrInvalidConfiguration, nodes)
	}
	n := nodes / 2
	if n < 1 {
		return 0, fmt.Errorf("%w: %d node(s) leaves no reduce tasks, need at least 2", ErrInvalidConfiguration, nodes)
	}
	return n, nil
}

type SplitPlanner struct {
	nodes int
}

func NewSplitPlanner(nodes int) (*SplitPlanner, error) {
	if nodes <= 0 {
		return nil, fmt.Errorf("%w: node count must be positive, got %d", ErrInvalidConfiguration, nodes)
	}
	return &SplitPlanner{nodes: nodes}, nil
}

// Plan cuts [0, dataLength) into at most nodes contiguous splits of roughly
// dataLength/nodes bytes. A cut that lands inside a line moves forward to the
// start of the next line, and the last split takes whatever remains.
func (p *SplitPlanner) Plan(r io.ReaderAt, dataLength int64) ([]Split, error) {
	if dataLength < 0 {
		return nil, fmt.Errorf("%w: negative input length %d", ErrInvalidConfiguration, dataLength)
	}

	target := dataLength / int64(p.nodes)
	if target < 1 {
		target = 1
	}

	var splits []Split
	start := int64(0)
	for start < dataLength {
		end := dataLength
		if len(splits) < p.nodes-1 && start+target < dataLength {
			cut, err := nextBoundary(r, start+target, dataLength)
			if err != nil {
				return nil, err
			}
			end = cut
		}
		splits = append(splits, Split{Index: len(splits), Start: start, End: end})
		start = end
	}
	return splits, nil
}

// nextBoundary returns the first line start at or after off (off > 0), or
// limit when no newline follows.
func nextBoundary(r io.ReaderAt, off, limit int64) (int64, error) {
	buf := make([]byte, boundaryScanSize)
	pos := off - 1
	for pos < limit {
		n := min(int64(len(buf)), limit-pos)
		read, err := r.ReadAt(buf[:n], pos)
		if i := bytes.IndexByte(buf[:read], '\n'); i >= 0 {
			return pos + int64(i) + 1, nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, fmt.Errorf("%w: locating line boundary after byte %d: %w", ErrIO, off, err)
		}
		pos += int64(read)
	}
	return limit, nil
}
