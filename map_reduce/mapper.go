package map_reduce

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"
)

const readBufferSize = 64 * 1024

// Records lazily reads the lines of split s.
func Records(r io.ReaderAt, s Split) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		br := bufio.NewReaderSize(io.NewSectionReader(r, s.Start, s.Len()), readBufferSize)
		offset := s.Start
		for line := 1; ; line++ {
			text, err := br.ReadString('\n')
			if len(text) > 0 {
				rec := Record{
					Text:   strings.TrimRight(text, "\r\n"),
					Offset: offset,
					Line:   line,
					Split:  s.Index,
				}
				offset += int64(len(text))
				if !yield(rec, nil) {
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					yield(Record{}, fmt.Errorf("%w: reading split %d at byte %d: %w", ErrIO, s.Index, offset, err))
				}
				return
			}
		}
	}
}

// MapSplit runs m over every record of split s and yields the pairs it
// emits. The sequence ends after the first error.
func MapSplit(m Mapper, r io.ReaderAt, s Split) iter.Seq2[KeyValue, error] {
	return func(yield func(KeyValue, error) bool) {
		for rec, err := range Records(r, s) {
			if err != nil {
				yield(KeyValue{}, err)
				return
			}
			kvs, err := m.Map(rec)
			if err != nil {
				yield(KeyValue{}, err)
				return
			}
			for _, kv := range kvs {
				if !yield(kv, nil) {
					return
				}
			}
		}
	}
}

// ProductPriceMapper parses "<product id> <price>" lines.
type ProductPriceMapper struct{}

func (m *ProductPriceMapper) Map(rec Record) ([]KeyValue, error) {
	fields := strings.Fields(rec.Text)
	if len(fields) != 2 {
		return nil, newRecordError(rec, fmt.Errorf("expected 2 fields, got %d", len(fields)))
	}

	key, err := strconv.ParseInt(fields[0], 10, 32)
	if err != nil {
		return nil, newRecordError(rec, fmt.Errorf("product id: %w", err))
	}
	value, err := strconv.ParseInt(fields[1], 10, 32)
	if err != nil {
		return nil, newRecordError(rec, fmt.Errorf("price: %w", err))
	}

	return []KeyValue{{Key: int32(key), Value: int32(value)}}, nil
}

func newRecordError(rec Record, err error) *RecordError {
	return &RecordError{
		Err:    err,
		Text:   rec.Text,
		Offset: rec.Offset,
		Line:   rec.Line,
		Split:  rec.Split,
	}
}
