package client

import (
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
)

// IDGenerator produces request ids. Implementations must be safe for
// concurrent use and should return values in [0, math.MaxInt32].
type IDGenerator interface {
	NextID() int32
}

// RandomIDs draws ids uniformly from [0, math.MaxInt32].
type RandomIDs struct{}

// NextID returns a uniformly random non-negative int32.
func (RandomIDs) NextID() int32 {
	return rand.Int32()
}

// SequenceIDs hands out increasing ids, wrapping from math.MaxInt32 to 0.
type SequenceIDs struct {
	next atomic.Int32
}

// NewSequenceIDs returns a sequence starting at start. A negative start is
// treated as zero.
func NewSequenceIDs(start int32) *SequenceIDs {
	s := &SequenceIDs{}
	s.next.Store(max(start, 0))
	return s
}

// NextID returns the current value and advances the sequence.
func (s *SequenceIDs) NextID() int32 {
	for {
		id := s.next.Load()
		following := id + 1
		if id == math.MaxInt32 {
			following = 0
		}
		if s.next.CompareAndSwap(id, following) {
			return id
		}
	}
}

// FixedIDs replays a fixed list of ids, starting over when exhausted.
type FixedIDs struct {
	mu  sync.Mutex
	ids []int32
	pos int
}

// NewFixedIDs returns a generator replaying ids in order. With no ids it
// always returns 0.
func NewFixedIDs(ids ...int32) *FixedIDs {
	if len(ids) == 0 {
		ids = []int32{0}
	}
	return &FixedIDs{ids: ids}
}

// NextID returns the next id in the list.
func (f *FixedIDs) NextID() int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.ids[f.pos%len(f.ids)]
	f.pos++
	return id
}
