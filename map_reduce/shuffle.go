package map_reduce

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
)

// Partition returns the reduce partition that owns key.
func Partition(key int32, n int) int {
	if n <= 0 {
		return 0
	}
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(key))
	h := fnv.New32a()
	h.Write(b[:])
	return int(h.Sum32()&0x7fffffff) % n
}

type shard struct {
	index  map[int32]int
	groups []Group
	pairs  int64
	mu     sync.Mutex
}

// ShuffleGrouper collects map output into per-key groups. Keys are sharded
// by Partition, one lock per shard, so the shard a key lives in is also the
// reduce partition that will consume it.
type ShuffleGrouper struct {
	shards []*shard
	sealed atomic.Bool
}

func NewShuffleGrouper(partitions int) (*ShuffleGrouper, error) {
	if partitions <= 0 {
		return nil, fmt.Errorf("%w: partition count must be positive, got %d", ErrInvalidConfiguration, partitions)
	}
	g := &ShuffleGrouper{shards: make([]*shard, partitions)}
	for i := range g.shards {
		g.shards[i] = &shard{index: make(map[int32]int)}
	}
	return g, nil
}

func (g *ShuffleGrouper) Partitions() int {
	return len(g.shards)
}

// Insert adds kvs to their groups. It is safe to call from many goroutines;
// each shard is locked once per call.
func (g *ShuffleGrouper) Insert(kvs []KeyValue) error {
	if len(kvs) == 0 {
		return nil
	}

	buckets := make([][]KeyValue, len(g.shards))
	for _, kv := range kvs {
		p := Partition(kv.Key, len(g.shards))
		buckets[p] = append(buckets[p], kv)
	}

	for p, bucket := range buckets {
		if len(bucket) == 0 {
			continue
		}
		if err := g.shards[p].insert(bucket, &g.sealed); err != nil {
			return err
		}
	}
	return nil
}

func (s *shard) insert(kvs []KeyValue, sealed *atomic.Bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sealed.Load() {
		return fmt.Errorf("%w: insert into sealed shuffle", ErrInternalInvariant)
	}

	for _, kv := range kvs {
		i, ok := s.index[kv.Key]
		if !ok {
			i = len(s.groups)
			s.index[kv.Key] = i
			s.groups = append(s.groups, Group{Key: kv.Key})
		}
		s.groups[i].Values = append(s.groups[i].Values, kv.Value)
	}
	s.pairs += int64(len(kvs))
	return nil
}

// Seal closes the grouper to writers. It waits for inserts already holding a
// shard lock to finish.
func (g *ShuffleGrouper) Seal() {
	g.sealed.Store(true)
	for _, s := range g.shards {
		s.mu.Lock()
		s.mu.Unlock()
	}
}

func (g *ShuffleGrouper) Sealed() bool {
	return g.sealed.Load()
}

// Groups returns the groups of partition p in first-seen order. The slice is
// shared and must not be modified.
func (g *ShuffleGrouper) Groups(p int) ([]Group, error) {
	if !g.sealed.Load() {
		return nil, fmt.Errorf("%w: groups requested before shuffle was sealed", ErrInternalInvariant)
	}
	if p < 0 || p >= len(g.shards) {
		return nil, fmt.Errorf("%w: partition %d out of range [0, %d)", ErrInternalInvariant, p, len(g.shards))
	}
	return g.shards[p].groups, nil
}

// Keys is the number of distinct keys seen.
func (g *ShuffleGrouper) Keys() int {
	n := 0
	for _, s := range g.shards {
		s.mu.Lock()
		n += len(s.groups)
		s.mu.Unlock()
	}
	return n
}

// Pairs is the number of key/value pairs inserted.
func (g *ShuffleGrouper) Pairs() int64 {
	var n int64
	for _, s := range g.shards {
		s.mu.Lock()
		n += s.pairs
		s.mu.Unlock()
	}
	return n
}
