package atem

import (
	"log/slog"

	"github.com/atemkit/atem/pkg/atem/command"
	"github.com/atemkit/atem/pkg/atem/state"
	"github.com/atemkit/atem/pkg/atem/transport"
)

// ConnectionState is the session's handshake/liveness state.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	HelloSent
	Initializing
	Active
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case HelloSent:
		return "helloSent"
	case Initializing:
		return "initializing"
	case Active:
		return "active"
	default:
		return "unknown"
	}
}

// sessionEngine drives the handshake, reliability, retransmission, and
// keepalive rules independent of socket I/O: it consumes inbound packets
// and time ticks, and produces outbound packet bytes for the caller to
// write. Grounded on the reference implementation's Atem::recv_/Atem::task_
// pair, collapsed into one synchronous state machine per the Design Notes.
type sessionEngine struct {
	cfg   ConnectionConfig
	log   *slog.Logger
	clock transport.Clock

	mirror  *state.Mirror
	unacked *unackedBuffer
	metrics *deviceMetrics

	state       ConnectionState
	sessionID   uint16
	nextLocalID int16
	tracker     *transport.SequenceTracker

	pendingGap   map[int16]struct{}
	silentProbes uint32

	bufferedEvents []state.Event
}

func newSessionEngine(cfg ConnectionConfig, mirror *state.Mirror, unacked *unackedBuffer, metrics *deviceMetrics, clock transport.Clock, log *slog.Logger) *sessionEngine {
	return &sessionEngine{
		cfg:        cfg,
		log:        log,
		clock:      clock,
		mirror:     mirror,
		unacked:    unacked,
		metrics:    metrics,
		state:      Disconnected,
		tracker:    transport.NewSequenceTracker(),
		pendingGap: make(map[int16]struct{}),
	}
}

// State returns the engine's current handshake state.
func (e *sessionEngine) State() ConnectionState { return e.state }

// nextID assigns and returns the next outbound local id, wrapping
// within [0, 0x7FFF].
func (e *sessionEngine) nextID() int16 {
	e.nextLocalID = int16((int32(e.nextLocalID) + 1) & transport.SeqMask)
	return e.nextLocalID
}

// helloPacket builds the initial HELLO, per the reference implementation's
// SendInit_: flags=HELLO, session=PreHandshakeSessionID, 8-byte body with
// byte 0 set.
func (e *sessionEngine) helloPacket() []byte {
	e.state = HelloSent
	e.sessionID = transport.PreHandshakeSessionID
	body := make([]byte, 8)
	body[0] = 0x01

	dst := make([]byte, transport.HeaderLen+len(body))
	n, _ := transport.Encode(transport.Header{
		Flags:     transport.FlagHello,
		SessionID: transport.PreHandshakeSessionID,
	}, body, dst)
	return dst[:n]
}

// reset returns the engine to Disconnected, clearing all session and
// mirror state, matching the liveness-reset rule in the reliability design.
// A synthetic ProductID event is raised so the host can observe the
// disconnect, matching the mirror's own Reset contract.
func (e *sessionEngine) reset(events state.EventSink) {
	e.state = Disconnected
	e.sessionID = 0
	e.nextLocalID = 0
	e.tracker = transport.NewSequenceTracker()
	e.pendingGap = make(map[int16]struct{})
	e.silentProbes = 0
	e.bufferedEvents = nil
	e.unacked.Reset()
	e.mirror.Reset()
	if e.metrics != nil {
		e.metrics.sessionResets.Inc()
		e.metrics.connected.Set(0)
	}
	events.Notify(state.Event{Kind: state.EventProductID, PacketID: 0})
}

// handleInbound processes one inbound packet and returns any reply packets
// that should be written back to the peer.
func (e *sessionEngine) handleInbound(p transport.RawPacket, events state.EventSink) [][]byte {
	e.silentProbes = 0
	var out [][]byte

	if e.state == Active && p.Header.SessionID != e.sessionID {
		e.log.Debug("dropping packet with unexpected session id", "got", p.Header.SessionID, "want", e.sessionID)
		return nil
	}

	if p.Header.Flags&transport.FlagHello != 0 && e.state != Active {
		out = append(out, e.handleHello(p)...)
	}

	if e.state == Initializing && p.Header.Flags&transport.FlagAckRequest != 0 && p.Header.Length == transport.HeaderLen {
		e.sessionID = p.Header.SessionID
		e.state = Active
		e.flushBufferedEvents(events)
		if e.metrics != nil {
			e.metrics.connected.Set(1)
		}
	}

	if p.Header.Flags&transport.FlagAckResponse != 0 && e.state == Active {
		if sentAt, ok := e.unacked.Ack(int16(p.Header.AckID), transport.MaxUnacked); ok && e.metrics != nil {
			e.metrics.ackLatency.Observe(e.clock.Now().Sub(sentAt).Seconds())
		}
	}

	// Every ACK_REQUEST packet occupies a slot in the wrapping id space and
	// must be tracked, whether or not it carries any commands: a bare
	// keepalive still needs to be ack'd and still counts toward gap
	// detection for the ids around it.
	if p.Header.Flags&transport.FlagAckRequest != 0 && (e.state == Active || e.state == Initializing) {
		if e.state == Initializing {
			e.sessionID = p.Header.SessionID
		}
		out = append(out, e.ackResponse(int16(p.Header.LocalID)))

		if e.tracker.Add(int16(p.Header.LocalID)) {
			if p.Header.Length > transport.HeaderLen {
				e.applyCommands(p, events)
			}
			if gap := e.checkForGap(); gap != nil {
				out = append(out, gap)
			}
		}
	}

	if p.Header.Flags&transport.FlagResend != 0 && e.state == Active {
		out = append(out, e.handleResend(p.Header.ResendID))
	}

	return out
}

func (e *sessionEngine) handleHello(p transport.RawPacket) [][]byte {
	if len(p.Payload()) < 1 {
		return nil
	}
	status := p.Payload()[0]

	switch status {
	case transport.HelloStatusAccepted:
		e.state = Initializing
		ack := make([]byte, transport.HeaderLen)
		n, _ := transport.Encode(transport.Header{
			Flags:     transport.FlagHelloAck,
			SessionID: p.Header.SessionID,
		}, nil, ack)
		return [][]byte{ack[:n]}
	case transport.HelloStatusFull, transport.HelloStatusRejected:
		e.log.Warn("handshake rejected by switcher", "status", status)
		return nil
	default:
		e.log.Warn("unknown HELLO status", "status", status)
		return nil
	}
}

func (e *sessionEngine) ackResponse(ackID int16) []byte {
	dst := make([]byte, transport.HeaderLen)
	n, _ := transport.Encode(transport.Header{
		Flags:     transport.FlagAckResponse,
		SessionID: e.sessionID,
		AckID:     uint16(ackID),
	}, nil, dst)
	return dst[:n]
}

func (e *sessionEngine) handleResend(resendID uint16) []byte {
	if e.metrics != nil {
		e.metrics.resendRequests.Inc()
	}
	if cached, ok := e.unacked.Lookup(int16(resendID)); ok {
		out := make([]byte, cached.Len())
		copy(out, cached.Data())
		return out
	}

	// No cached copy: synthesize a bare ACK-request carrying the
	// requested local id so sequence integrity is preserved even though
	// the original content is lost.
	dst := make([]byte, transport.HeaderLen)
	n, _ := transport.Encode(transport.Header{
		Flags:     transport.FlagAckRequest,
		SessionID: e.sessionID,
		LocalID:   resendID,
	}, nil, dst)
	return dst[:n]
}

// applyCommands decodes and applies every command in p's payload. The
// caller must already have established that p's local id is new.
func (e *sessionEngine) applyCommands(p transport.RawPacket, events state.EventSink) {
	id := p.Header.LocalID

	emitted := make(map[state.EventKind]bool)
	for _, raw := range p.Commands() {
		delta, err := command.Decode(raw)
		if err != nil {
			e.log.Debug("dropping malformed command", "tag", string(raw.Tag[:]), "err", err)
			continue
		}
		if delta == nil {
			continue
		}

		changed := e.mirror.Apply(delta, int16(id))
		if !changed {
			continue
		}
		if e.metrics != nil {
			e.metrics.commandsApplied.Inc()
		}

		kind, ok := command.EventKindForTag(raw.Tag)
		if !ok || emitted[kind] {
			continue
		}
		emitted[kind] = true
		e.postEvent(state.Event{Kind: kind, PacketID: int16(id)}, events)
	}
}

// postEvent buffers events raised while Initializing so they can be
// delivered as one batch on the transition to Active, per the external
// interface contract.
func (e *sessionEngine) postEvent(ev state.Event, events state.EventSink) {
	if e.state != Active {
		e.bufferedEvents = append(e.bufferedEvents, ev)
		return
	}
	events.Notify(ev)
}

func (e *sessionEngine) flushBufferedEvents(events state.EventSink) {
	for _, ev := range e.bufferedEvents {
		events.Notify(ev)
	}
	e.bufferedEvents = nil
}

// checkForGap asks the tracker for the oldest missing id and, if one
// exists and hasn't already been requested, emits an ACK_RESPONSE|RESEND
// gap-filler request.
func (e *sessionEngine) checkForGap() []byte {
	missing, ok := e.tracker.Missing()
	if !ok {
		e.pendingGap = make(map[int16]struct{})
		return nil
	}
	if _, already := e.pendingGap[missing]; already {
		return nil
	}
	e.pendingGap = map[int16]struct{}{missing: {}}

	if e.metrics != nil {
		e.metrics.gapRequests.Inc()
	}

	ackID := int16((int32(missing) - 1) & transport.SeqMask)
	dst := make([]byte, transport.HeaderLen)
	n, _ := transport.Encode(transport.Header{
		Flags:     transport.FlagAckResponse | transport.FlagResend,
		SessionID: e.sessionID,
		AckID:     uint16(ackID),
		ResendID:  uint16(missing),
	}, nil, dst)
	return dst[:n]
}

// tickResult reports what the keepalive/timeout tick produced.
type tickResult struct {
	probe []byte
	reset bool
	hello []byte
}

// tick is called whenever the receive loop's socket read times out with no
// data. It implements the liveness-probe and reset rules.
func (e *sessionEngine) tick(events state.EventSink) tickResult {
	if e.state != Active && e.state != Initializing {
		// Disconnected or HelloSent: (re)send HELLO on every timeout.
		return tickResult{hello: e.helloPacket()}
	}

	e.silentProbes++
	if e.silentProbes > e.cfg.LivenessProbesBeforeReset {
		e.reset(events)
		return tickResult{reset: true, hello: e.helloPacket()}
	}

	return tickResult{probe: e.ackResponse(e.tracker.LastID())}
}

// sendCommands encodes cmds into a single ACK_REQUEST packet addressed to
// the current session, assigning a fresh local id.
func (e *sessionEngine) sendCommands(cmds []command.Command, version state.ProtocolVersion) ([]byte, int16, error) {
	if len(cmds) == 0 {
		return nil, 0, ErrInvalidArgument
	}

	var body []byte
	for _, c := range cmds {
		if c == nil {
			continue
		}
		body = append(body, command.Encode(c, version)...)
	}
	if len(body) == 0 {
		return nil, 0, ErrInvalidArgument
	}

	id := e.nextID()
	dst := make([]byte, transport.HeaderLen+len(body))
	n, err := transport.Encode(transport.Header{
		Flags:     transport.FlagAckRequest,
		SessionID: e.sessionID,
		LocalID:   uint16(id),
	}, body, dst)
	if err != nil {
		return nil, 0, err
	}
	return dst[:n], id, nil
}
