// Package entropy provides the corrected-entropy ring buffer and the bias
// correction algorithms that feed it.
package entropy

import (
	"errors"
	"runtime"
	"sync/atomic"
)

// Buffer errors. Both are transient backpressure signals, not user-visible
// failures: the producer backs off on ErrBufferFull, consumers retry on
// ErrBufferEmpty.
var (
	ErrBufferFull  = errors.New("entropy buffer is full")
	ErrBufferEmpty = errors.New("entropy buffer is empty")
)

// Buffer is a fixed-capacity byte ring with a single producer and any
// number of concurrent consumers.
//
// All three cursors are monotonic byte counts; positions in the backing
// array are cursor mod capacity. Invariants:
//
//	readCursor <= claimCursor <= writeCursor
//	writeCursor - readCursor <= capacity
//
// Consumers reserve spans by compare-and-swapping claimCursor forward,
// which makes claims disjoint and linearizable. The readCursor trails
// behind and is only advanced once the claimed span has been copied out,
// so the producer never overwrites bytes that are still being read. The
// producer publishes written bytes with an atomic store of writeCursor,
// and consumers load it before copying, which gives the required
// release/acquire pairing.
type Buffer struct {
	data     []byte
	capacity uint64

	writeCursor atomic.Uint64 // producer only
	claimCursor atomic.Uint64 // consumers, via CAS
	readCursor  atomic.Uint64 // consumers, in claim order
}

// NewBuffer returns a ring buffer with the given capacity in bytes.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		panic("entropy: buffer capacity must be positive")
	}
	return &Buffer{
		data:     make([]byte, capacity),
		capacity: uint64(capacity),
	}
}

// Capacity returns the buffer capacity in bytes.
func (b *Buffer) Capacity() int {
	return int(b.capacity)
}

// Available returns the number of bytes currently available to consumers.
func (b *Buffer) Available() int {
	return int(b.writeCursor.Load() - b.claimCursor.Load())
}

// Free returns the number of bytes the producer may currently write.
func (b *Buffer) Free() int {
	return int(b.capacity - (b.writeCursor.Load() - b.readCursor.Load()))
}

// Write appends the chunk to the buffer. It must only be called from a
// single producer. If the free space is insufficient for the whole chunk,
// nothing is written and ErrBufferFull is returned.
func (b *Buffer) Write(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	w := b.writeCursor.Load()
	r := b.readCursor.Load()
	if uint64(len(chunk)) > b.capacity-(w-r) {
		return ErrBufferFull
	}

	pos := w % b.capacity
	n := copy(b.data[pos:], chunk)
	if n < len(chunk) {
		copy(b.data, chunk[n:])
	}

	// publish, consumers load writeCursor before reading data
	b.writeCursor.Store(w + uint64(len(chunk)))
	return nil
}

// Claim atomically reserves up to max bytes and returns them as a copy
// owned by the caller. If fewer bytes are available, all of them are
// returned. Returns ErrBufferEmpty if no bytes are available. Concurrent
// claims never overlap and bytes are returned in the order they were
// written.
func (b *Buffer) Claim(max int) ([]byte, error) {
	if max <= 0 {
		return nil, nil
	}

	for {
		w := b.writeCursor.Load()
		c := b.claimCursor.Load()
		available := w - c
		if available == 0 {
			return nil, ErrBufferEmpty
		}

		take := uint64(max)
		if take > available {
			take = available
		}

		if !b.claimCursor.CompareAndSwap(c, c+take) {
			continue
		}

		out := make([]byte, take)
		pos := c % b.capacity
		n := copy(out, b.data[pos:])
		if uint64(n) < take {
			copy(out[n:], b.data)
		}

		// Release the span in claim order so the producer's free-space
		// calculation never includes a span still being copied.
		for !b.readCursor.CompareAndSwap(c, c+take) {
			runtime.Gosched()
		}

		return out, nil
	}
}
