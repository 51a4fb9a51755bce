package transport

// SequenceTracker detects new, duplicate, and missing packet ids in the
// protocol's 15-bit wrapping id space using a 32-bit sliding window. It
// carries no allocation and no failure mode — it only reports.
//
// Grounded on the reference implementation's SequenceCheck: an anchor plus
// a bitmask of which of the last 32 ids (relative to the anchor) have been
// seen. The window starts pre-filled so the tracker reports "caught up" on
// construction rather than flagging every id before the first one received
// as a loss.
type SequenceTracker struct {
	anchor   int16
	lastID   int16
	received uint32
}

// windowBits is the width of the received bitmask.
const windowBits = 32

// NewSequenceTracker returns a tracker in its initial "caught up" state:
// anchor=1, received=0xFFFFFFFE (bit 0 clear, everything older set).
func NewSequenceTracker() *SequenceTracker {
	return &SequenceTracker{anchor: 1, received: 0xFFFFFFFE}
}

// Add records id as received. It returns true if id is new, false if it is
// a duplicate. An id more than windowBits away from the anchor is reported
// new on first appearance but cannot be distinguished from a duplicate on
// any later appearance — the switcher never retransmits that far back.
func (s *SequenceTracker) Add(id int16) bool {
	s.lastID = id

	delta := uint32((int32(id) - int32(s.anchor)) & SeqMask)
	if delta < windowBits {
		s.received <<= delta
		s.anchor = id
	}

	offset := uint32(absWrappingSub(id, s.anchor))
	if offset >= windowBits {
		return true
	}

	bit := uint32(1) << offset
	if s.received&bit != 0 {
		return false
	}
	s.received |= bit
	return true
}

// Missing returns the oldest id below the anchor that has not been
// received, scanning from the back of the window forward. It reports
// nothing once the window is fully contiguous.
func (s *SequenceTracker) Missing() (int16, bool) {
	if s.received == 0xFFFFFFFF {
		return 0, false
	}

	for i := windowBits - 1; i > 0; i-- {
		if s.received&(1<<uint32(i)) == 0 {
			return wrappingAdd(s.anchor, int16(-i)), true
		}
	}
	return 0, false
}

// LastID returns the most recent argument passed to Add.
func (s *SequenceTracker) LastID() int16 { return s.lastID }

// IsNewer reports whether LastID is newer than other under wrapping
// comparison.
func (s *SequenceTracker) IsNewer(other int16) bool {
	return isNewer(s.lastID, other)
}

// absWrappingSub returns the minimal circular distance between a and b in
// the 15-bit id space, i.e. |a-b| modulo 2^15 taking the shorter direction.
func absWrappingSub(a, b int16) int32 {
	d := (int32(a) - int32(b)) & SeqMask
	if d > SeqMod/2 {
		d = SeqMod - d
	}
	return d
}

// wrappingAdd returns (a+delta) mod SeqMod as an id in [0, SeqMask].
func wrappingAdd(a int16, delta int16) int16 {
	return int16((int32(a) + int32(delta)) & SeqMask)
}

// isNewer reports whether a is newer than b under 15-bit wrapping sequence
// comparison: true for the half of the id space "ahead of" b.
func isNewer(a, b int16) bool {
	return IsNewer(a, b)
}

// IsNewer reports whether a is newer than b in the 15-bit wrapping packet
// id space. It is the comparison every last-writer-wins field uses to
// decide whether an incoming update should replace what it already holds.
func IsNewer(a, b int16) bool {
	d := (int32(a) - int32(b)) & SeqMask
	return d != 0 && d < SeqMod/2
}
