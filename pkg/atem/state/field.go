package state

import (
	"math"

	"github.com/atemkit/atem/pkg/atem/transport"
)

// unsetChangeID marks a Field that has never been written.
const unsetChangeID = math.MinInt16

// alwaysNewerID is the packet id used for handshake carry-along data that
// must never be shadowed by the window rolling over.
const alwaysNewerID = 0

// Field is a last-writer-wins cell stamped with the packet id of the
// command that last wrote it. A zero Field is valid and reports !IsValid
// until the first Set.
//
// Grounded on the reference implementation's AtemState<T> template: the
// same IsValid/Get/Set contract, generalized with Go generics instead of a
// C++ template.
type Field[T any] struct {
	lastChangeID int16
	value        T
	valid        bool
}

// NewField returns a Field pre-populated with an initial value as though it
// had been set at packet id 0, i.e. protected from rollover.
func NewField[T any](value T) Field[T] {
	return Field[T]{lastChangeID: alwaysNewerID, value: value, valid: true}
}

// IsValid reports whether the field has ever been set.
func (f *Field[T]) IsValid() bool { return f.valid }

// Get returns the field's current value and whether it has ever been set.
func (f *Field[T]) Get() (T, bool) {
	return f.value, f.valid
}

// LastChangeID returns the packet id of the most recent accepted write.
func (f *Field[T]) LastChangeID() int16 { return f.lastChangeID }

// Set applies value if id is newer than (or equal to, for unset/always-new
// fields) the field's current last-change id. It reports whether the value
// was applied.
//
// id==alwaysNewerID always applies, matching the handshake carry-along
// behavior described in the mirror's Apply contract: INIT-burst data is
// stamped 0 so it cannot be shadowed by a later window rollover.
func (f *Field[T]) Set(id int16, value T) bool {
	if id != alwaysNewerID && f.valid && !transport.IsNewer(id, f.lastChangeID) {
		return false
	}
	f.lastChangeID = id
	f.value = value
	f.valid = true
	return true
}
