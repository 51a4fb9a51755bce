// Package buf provides a reference-counted, pool-backed byte buffer used for
// the packets the session engine keeps around for retransmission.
//
// Inbound packets are never wrapped in a Buffer: the receive loop parses
// directly out of a reusable scratch slice (see transport.RawPacket), which
// borrows and never outlives a single dispatch. A Buffer is only allocated
// for bytes the engine must keep past the current tick — entries in the
// unacked-send cache.
package buf

import "sync/atomic"

// Buffer is a reference-counted byte slice with a pluggable release
// function. Retain/Release let the send cache and an in-flight retransmit
// share one allocation without a data race on free.
type Buffer struct {
	data     []byte
	refCount *atomic.Int32
	release  func([]byte)
}

// New wraps data without pooling; Release is a no-op and the slice is left
// for the garbage collector.
func New(data []byte) *Buffer {
	rc := &atomic.Int32{}
	rc.Store(1)
	return &Buffer{data: data, refCount: rc}
}

// NewPooled allocates size bytes from the pool.
func NewPooled(size int) *Buffer {
	return NewWithRelease(alloc(size), free)
}

// NewWithRelease wraps data with a custom release function, invoked once the
// reference count reaches zero.
func NewWithRelease(data []byte, release func([]byte)) *Buffer {
	rc := &atomic.Int32{}
	rc.Store(1)
	return &Buffer{data: data, refCount: rc, release: release}
}

// Data returns the underlying byte slice.
func (b *Buffer) Data() []byte { return b.data }

// Len returns the length of the buffer.
func (b *Buffer) Len() int { return len(b.data) }

// Retain increments the reference count.
func (b *Buffer) Retain() {
	if b.refCount != nil {
		b.refCount.Add(1)
	}
}

// Release decrements the reference count, returning the buffer to its pool
// once the last reference is gone.
func (b *Buffer) Release() {
	if b.refCount == nil {
		return
	}
	if b.refCount.Add(-1) == 0 && b.release != nil {
		b.release(b.data)
	}
}

// Clone copies src into a fresh pooled allocation.
func Clone(src []byte) *Buffer {
	b := NewPooled(len(src))
	copy(b.data, src)
	return b
}
