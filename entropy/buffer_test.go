package entropy

import (
	"bytes"
	"encoding/binary"
	"errors"
	"runtime"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferWriteClaim(t *testing.T) {
	b := NewBuffer(16)

	_, err := b.Claim(4)
	assert.True(t, errors.Is(err, ErrBufferEmpty))

	assert.NoError(t, b.Write([]byte{1, 2, 3, 4}))
	assert.Equal(t, 4, b.Available())
	assert.Equal(t, 12, b.Free())

	data, err := b.Claim(2)
	assert.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, data)

	// a claim larger than available returns what is there
	data, err = b.Claim(10)
	assert.NoError(t, err)
	assert.Equal(t, []byte{3, 4}, data)
	assert.Equal(t, 0, b.Available())
}

func TestBufferFull(t *testing.T) {
	b := NewBuffer(8)

	assert.NoError(t, b.Write([]byte{1, 2, 3, 4, 5, 6}))
	err := b.Write([]byte{7, 8, 9})
	assert.True(t, errors.Is(err, ErrBufferFull))

	// partial free space is not used for an oversized chunk
	assert.Equal(t, 6, b.Available())

	// draining makes room again
	_, err = b.Claim(6)
	assert.NoError(t, err)
	assert.NoError(t, b.Write([]byte{7, 8, 9}))
}

func TestBufferWrapAround(t *testing.T) {
	b := NewBuffer(8)

	for round := 0; round < 100; round++ {
		chunk := []byte{byte(round), byte(round + 1), byte(round + 2)}
		if err := b.Write(chunk); err != nil {
			t.Fatalf("round %d: write failed: %s", round, err)
		}
		data, err := b.Claim(3)
		if err != nil {
			t.Fatalf("round %d: claim failed: %s", round, err)
		}
		if !bytes.Equal(chunk, data) {
			t.Fatalf("round %d: got %v, expected %v", round, data, chunk)
		}
	}
}

// TestBufferConcurrentClaims checks the claim contract under contention:
// claims from concurrent consumers must be disjoint, in write order within
// each claim, and must never exceed what was written. The producer writes
// consecutive uint64 counters, so every claimed word is identifiable.
func TestBufferConcurrentClaims(t *testing.T) {
	const (
		consumers     = 8
		totalCounters = 100000
	)

	b := NewBuffer(4096)

	var wg sync.WaitGroup
	results := make([][]uint64, consumers)

	// producer
	wg.Add(1)
	go func() {
		defer wg.Done()
		chunk := make([]byte, 8)
		for i := uint64(0); i < totalCounters; {
			binary.BigEndian.PutUint64(chunk, i)
			if err := b.Write(chunk); err != nil {
				continue // full, consumers will catch up
			}
			i++
		}
	}()

	// consumers
	for c := 0; c < consumers; c++ {
		wg.Add(1)
		go func(c int) {
			defer wg.Done()
			var collected []uint64
			for {
				data, err := b.Claim(64)
				if err != nil {
					if doneProducing(b, totalCounters) {
						break
					}
					runtime.Gosched()
					continue
				}
				if len(data)%8 != 0 {
					t.Errorf("claim returned %d bytes, not a counter multiple", len(data))
					return
				}
				for i := 0; i < len(data); i += 8 {
					collected = append(collected, binary.BigEndian.Uint64(data[i:i+8]))
				}
				// counters within one claim must be consecutive
				for i := 1; i < len(data)/8; i++ {
					prev := binary.BigEndian.Uint64(data[(i-1)*8 : i*8])
					cur := binary.BigEndian.Uint64(data[i*8 : (i+1)*8])
					if cur != prev+1 {
						t.Errorf("claim not contiguous: %d follows %d", cur, prev)
						return
					}
				}
			}
			results[c] = collected
		}(c)
	}

	wg.Wait()

	// every counter must appear exactly once across all claims
	var all []uint64
	for _, r := range results {
		all = append(all, r...)
	}
	if len(all) > totalCounters {
		t.Fatalf("claimed %d counters, only %d were written", len(all), totalCounters)
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	for i := 1; i < len(all); i++ {
		if all[i] == all[i-1] {
			t.Fatalf("counter %d was claimed twice", all[i])
		}
	}
}

func doneProducing(b *Buffer, totalCounters uint64) bool {
	return b.writeCursor.Load() == totalCounters*8 && b.Available() == 0
}
