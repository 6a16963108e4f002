package client

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestSequenceIDs_Wraps(t *testing.T) {
	s := NewSequenceIDs(math.MaxInt32 - 1)

	assert.Equal(t, int32(math.MaxInt32-1), s.NextID())
	assert.Equal(t, int32(math.MaxInt32), s.NextID())
	assert.Equal(t, int32(0), s.NextID())
	assert.Equal(t, int32(1), s.NextID())
}

func TestSequenceIDs_NegativeStart(t *testing.T) {
	s := NewSequenceIDs(-10)
	assert.Equal(t, int32(0), s.NextID())
}

func TestSequenceIDs_ConcurrentUnique(t *testing.T) {
	s := NewSequenceIDs(0)

	const workers, perWorker = 8, 500
	var (
		mu   sync.Mutex
		seen = make(map[int32]struct{}, workers*perWorker)
		wg   sync.WaitGroup
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]int32, 0, perWorker)
			for range perWorker {
				local = append(local, s.NextID())
			}
			mu.Lock()
			for _, id := range local {
				seen[id] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}

func TestFixedIDs_Cycles(t *testing.T) {
	f := NewFixedIDs(3, 1, 4)

	var got []int32
	for range 7 {
		got = append(got, f.NextID())
	}
	assert.Equal(t, []int32{3, 1, 4, 3, 1, 4, 3}, got)

	assert.Equal(t, int32(0), NewFixedIDs().NextID())
}

// Property: generated ids stay within [0, MaxInt32].
func TestIDs_RangeProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		start := rapid.Int32().Draw(t, "start")
		n := rapid.IntRange(1, 100).Draw(t, "n")

		seq := NewSequenceIDs(start)
		for range n {
			if id := seq.NextID(); id < 0 {
				t.Fatalf("sequence produced negative id %d", id)
			}
			if id := (RandomIDs{}).NextID(); id < 0 {
				t.Fatalf("random produced negative id %d", id)
			}
		}
	})
}

// Property: a sequence never repeats before wrapping.
func TestSequenceIDs_MonotonicProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		start := rapid.Int32Range(0, math.MaxInt32-1000).Draw(t, "start")
		n := rapid.IntRange(2, 1000).Draw(t, "n")

		seq := NewSequenceIDs(start)
		prev := seq.NextID()
		for range n - 1 {
			id := seq.NextID()
			if id != prev+1 {
				t.Fatalf("expected %d after %d, got %d", prev+1, prev, id)
			}
			prev = id
		}
	})
}
