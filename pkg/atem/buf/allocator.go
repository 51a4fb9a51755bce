package buf

import "sync"

// Predefined buffer pool sizes.
// 2047 bytes is the protocol's hard maximum packet length (11-bit length
// field, header included); Size2K covers it.
const (
	Size64  = 1 << 6  // 64 bytes
	Size256 = 1 << 8  // 256 bytes
	Size2K  = 1 << 11 // 2048 bytes
)

var (
	pool64  = sync.Pool{New: func() any { return make([]byte, Size64) }}
	pool256 = sync.Pool{New: func() any { return make([]byte, Size256) }}
	pool2K  = sync.Pool{New: func() any { return make([]byte, Size2K) }}
)

// alloc returns a buffer from the pool sized to fit size.
// If size exceeds the largest pool, it allocates directly.
func alloc(size int) []byte {
	switch {
	case size <= Size64:
		return pool64.Get().([]byte)[:size]
	case size <= Size256:
		return pool256.Get().([]byte)[:size]
	case size <= Size2K:
		return pool2K.Get().([]byte)[:size]
	default:
		return make([]byte, size)
	}
}

// free returns a buffer to the appropriate pool based on capacity.
func free(b []byte) {
	if b == nil {
		return
	}

	switch cap(b) {
	case Size64:
		pool64.Put(b[:cap(b)])
	case Size256:
		pool256.Put(b[:cap(b)])
	case Size2K:
		pool2K.Put(b[:cap(b)])
	default:
		// Not from a pool, let GC handle it.
	}
}
