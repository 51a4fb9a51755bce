package state

// EventKind identifies which part of the mirror changed.
type EventKind int

const (
	EventAux EventKind = iota
	EventDsk
	EventFtb
	EventInputProperties
	EventUsk
	EventUskDve
	EventMediaPlayer
	EventMediaPool
	EventProductID
	EventVersion
	EventSource
	EventStream
	EventTopology
	EventTransitionPosition
	EventTransitionState
)

// Event is a single change notification posted to an EventSink. PacketID
// is the id of the packet whose commands produced the change.
type Event struct {
	Kind     EventKind
	PacketID int16
}

// EventSink receives change notifications. Implementations must not block;
// the ingest loop notifies synchronously on the connection's single
// goroutine.
type EventSink interface {
	Notify(Event)
}

// EventSinkFunc adapts a function to an EventSink.
type EventSinkFunc func(Event)

// Notify calls f.
func (f EventSinkFunc) Notify(e Event) { f(e) }

// DiscardEvents is an EventSink that drops every event, useful where a
// caller has no use for notifications but still needs a non-nil sink.
var DiscardEvents EventSink = EventSinkFunc(func(Event) {})
