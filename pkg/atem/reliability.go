package atem

import (
	"sync"
	"time"

	"github.com/atemkit/atem/pkg/atem/buf"
	"github.com/atemkit/atem/pkg/atem/transport"
)

// sentPacket is one outbound packet cached for possible retransmission.
type sentPacket struct {
	localID int16
	data    *buf.Buffer
	sentAt  time.Time
}

// unackedBuffer is the multi-writer (SendCommands callers) / single-reader
// (receive loop) cache of sent-but-not-yet-acked packets. It bounds itself
// to maxSize, evicting the oldest entry on overflow.
//
// Grounded on the reference implementation's decision not to cache sends at
// all (it always synthesizes a gap filler on RESEND); this type implements
// the Design Notes' "prefer exact resend when cached, fall back to
// synthesis" decision instead.
type unackedBuffer struct {
	mu      sync.Mutex
	entries []sentPacket
	maxSize int
}

func newUnackedBuffer(maxSize int) *unackedBuffer {
	return &unackedBuffer{maxSize: maxSize}
}

// Add caches a sent packet, evicting the oldest entry if the buffer is
// full. sentAt is recorded so a later Ack can report round-trip latency.
func (b *unackedBuffer) Add(localID int16, data *buf.Buffer, sentAt time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.entries) >= b.maxSize {
		b.entries[0].data.Release()
		b.entries = b.entries[1:]
	}
	data.Retain()
	b.entries = append(b.entries, sentPacket{localID: localID, data: data, sentAt: sentAt})
}

// Lookup returns the cached packet for localID, if still held.
func (b *unackedBuffer) Lookup(localID int16) (*buf.Buffer, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, e := range b.entries {
		if e.localID == localID {
			return e.data, true
		}
	}
	return nil, false
}

// Ack evicts the entry for ackID and any entry more than windowSize ids
// behind it (wrap-aware garbage collection). It returns the send time
// recorded for ackID itself, if that entry was still held, so the caller
// can report round-trip latency.
func (b *unackedBuffer) Ack(ackID int16, windowSize int32) (time.Time, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var sentAt time.Time
	var found bool
	kept := b.entries[:0]
	for _, e := range b.entries {
		age := wrapDelta(ackID, e.localID)
		if e.localID == ackID {
			sentAt, found = e.sentAt, true
			e.data.Release()
			continue
		}
		if age > windowSize {
			e.data.Release()
			continue
		}
		kept = append(kept, e)
	}
	b.entries = kept
	return sentAt, found
}

// Len reports the number of cached packets.
func (b *unackedBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Reset releases every cached packet.
func (b *unackedBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.entries {
		e.data.Release()
	}
	b.entries = nil
}

// wrapDelta returns how far behind id is from ackID in the wrapping id
// space, or a negative value if id is ahead of ackID.
func wrapDelta(ackID, id int16) int32 {
	d := (int32(ackID) - int32(id)) & transport.SeqMask
	if d > transport.SeqMod/2 {
		d -= transport.SeqMod
	}
	return d
}
