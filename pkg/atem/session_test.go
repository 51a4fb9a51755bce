package atem

import (
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/atemkit/atem/pkg/atem/buf"
	"github.com/atemkit/atem/pkg/atem/command"
	"github.com/atemkit/atem/pkg/atem/state"
	"github.com/atemkit/atem/pkg/atem/transport"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func newTestEngine() *sessionEngine {
	mirror := state.NewMirror()
	unacked := newUnackedBuffer(32)
	return newSessionEngine(DefaultConnectionConfig(), mirror, unacked, nil, transport.SystemClock(), discardLogger())
}

func encodePacket(t *testing.T, h transport.Header, body []byte) transport.RawPacket {
	t.Helper()
	dst := make([]byte, transport.HeaderLen+len(body))
	n, err := transport.Encode(h, body, dst)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	p, err := transport.Decode(dst[:n])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return p
}

func topologyCommand(mes int) []byte {
	body := make([]byte, 12)
	body[0] = byte(mes)
	return transport.EncodeCommand(command.TagTopology, body)
}

func programInputCommand(me int, source state.Source) []byte {
	body := make([]byte, 4)
	body[0] = byte(me)
	body[2] = byte(source >> 8)
	body[3] = byte(source)
	return transport.EncodeCommand(command.TagProgramInput, body)
}

// S1 — handshake completes and a subsequent command packet is applied.
func TestSessionHandshakeAndProgramApplication(t *testing.T) {
	e := newTestEngine()

	hello := encodePacket(t, transport.Header{Flags: transport.FlagHello, SessionID: 0x5555}, []byte{transport.HelloStatusAccepted})
	out := e.handleInbound(hello, state.DiscardEvents)
	if e.State() != Initializing {
		t.Fatalf("state = %v, want Initializing", e.State())
	}
	if len(out) != 1 {
		t.Fatalf("expected one HELLO_ACK reply, got %d", len(out))
	}

	initPkt := encodePacket(t, transport.Header{Flags: transport.FlagAckRequest, SessionID: 0x5555, LocalID: 1}, nil)
	e.handleInbound(initPkt, state.DiscardEvents)
	if e.State() != Active {
		t.Fatalf("state = %v, want Active", e.State())
	}

	var events []state.Event
	sink := state.EventSinkFunc(func(ev state.Event) { events = append(events, ev) })

	body := append(topologyCommand(1), programInputCommand(0, 1)...)
	cmdPkt := encodePacket(t, transport.Header{Flags: transport.FlagAckRequest, SessionID: 0x5555, LocalID: 2}, body)
	e.handleInbound(cmdPkt, sink)

	prog, ok := e.mirror.Program(0)
	if !ok || prog != 1 {
		t.Fatalf("Program(0) = (%v, %v), want (1, true)", prog, ok)
	}

	found := false
	for _, ev := range events {
		if ev.Kind == state.EventSource && ev.PacketID == 2 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a Source event with packet id 2, got %+v", events)
	}
}

func activateEngine(t *testing.T, e *sessionEngine) {
	t.Helper()
	hello := encodePacket(t, transport.Header{Flags: transport.FlagHello, SessionID: 0x5555}, []byte{transport.HelloStatusAccepted})
	e.handleInbound(hello, state.DiscardEvents)
	initPkt := encodePacket(t, transport.Header{Flags: transport.FlagAckRequest, SessionID: 0x5555, LocalID: 1}, nil)
	e.handleInbound(initPkt, state.DiscardEvents)
}

// S2 — a RESEND for a cached local id retransmits the exact bytes.
func TestSessionRetransmitsExactCachedPacket(t *testing.T) {
	e := newTestEngine()
	activateEngine(t, e)

	sent, id, err := e.sendCommands([]command.Command{command.Cut{ME: 0}}, state.ProtocolVersion{})
	if err != nil {
		t.Fatalf("sendCommands: %v", err)
	}
	e.unacked.Add(id, buf.New(sent), time.Now())

	resend := encodePacket(t, transport.Header{Flags: transport.FlagResend, SessionID: 0x5555, ResendID: uint16(id)}, nil)
	out := e.handleInbound(resend, state.DiscardEvents)

	if len(out) != 1 {
		t.Fatalf("expected one reply, got %d", len(out))
	}
	if string(out[0]) != string(sent) {
		t.Fatalf("retransmitted bytes differ from original send")
	}
}

// S3 — a gap in arriving ids produces an ACK_RESPONSE|RESEND gap request.
// activateEngine's handshake already delivers id 1; ids 2-6 fill the window
// contiguously so the only real gap below 8 is id 7.
func TestSessionGapDetection(t *testing.T) {
	e := newTestEngine()
	activateEngine(t, e)

	for _, id := range []uint16{2, 3, 4, 5, 6, 8} {
		p := encodePacket(t, transport.Header{Flags: transport.FlagAckRequest, SessionID: 0x5555, LocalID: id}, nil)
		e.handleInbound(p, state.DiscardEvents)
	}

	missing, ok := e.tracker.Missing()
	if !ok || missing != 7 {
		t.Fatalf("Missing() = (%v, %v), want (7, true)", missing, ok)
	}
}

// S4 — a duplicate delivery is not re-applied to the mirror.
func TestSessionDuplicateSuppression(t *testing.T) {
	e := newTestEngine()
	activateEngine(t, e)

	topo := encodePacket(t, transport.Header{Flags: transport.FlagAckRequest, SessionID: 0x5555, LocalID: 2}, topologyCommand(1))
	e.handleInbound(topo, state.DiscardEvents)

	first := encodePacket(t, transport.Header{Flags: transport.FlagAckRequest, SessionID: 0x5555, LocalID: 5}, programInputCommand(0, 2))
	e.handleInbound(first, state.DiscardEvents)

	second := encodePacket(t, transport.Header{Flags: transport.FlagAckRequest, SessionID: 0x5555, LocalID: 5}, programInputCommand(0, 3))
	e.handleInbound(second, state.DiscardEvents)

	prog, ok := e.mirror.Program(0)
	if !ok || prog != 2 {
		t.Fatalf("Program(0) = (%v, %v), want (2, true): duplicate packet id must not re-apply", prog, ok)
	}
}

// S5 — sustained silence resets the session after the configured number of
// probe intervals, and raises a synthetic ProductID event so the host can
// observe the disconnect.
func TestSessionLivenessReset(t *testing.T) {
	e := newTestEngine()
	activateEngine(t, e)

	var events []state.Event
	sink := state.EventSinkFunc(func(ev state.Event) { events = append(events, ev) })

	var probes int
	var reset tickResult
	for i := uint32(0); i <= e.cfg.LivenessProbesBeforeReset; i++ {
		res := e.tick(sink)
		if res.probe != nil {
			probes++
		}
		if res.reset {
			reset = res
			break
		}
	}

	if e.State() != Disconnected {
		t.Fatalf("state = %v, want Disconnected after sustained silence", e.State())
	}
	if e.unacked.Len() != 0 {
		t.Fatalf("expected unacked buffer to be cleared on reset")
	}
	if int(probes) != int(e.cfg.LivenessProbesBeforeReset) {
		t.Fatalf("probes sent = %d, want %d", probes, e.cfg.LivenessProbesBeforeReset)
	}
	if !reset.reset {
		t.Fatal("expected tick() to report reset")
	}

	found := false
	for _, ev := range events {
		if ev.Kind == state.EventProductID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a ProductID event on reset, got %+v", events)
	}
}

// stepClock advances by a fixed amount each call to Now, so a test can
// assert on the exact round-trip duration an ACK_RESPONSE is observed with.
type stepClock struct {
	now time.Time
	by  time.Duration
}

func (c *stepClock) Now() time.Time {
	t := c.now
	c.now = c.now.Add(c.by)
	return t
}

// An ACK_RESPONSE for a held packet observes its round-trip time on the
// ack latency histogram.
func TestSessionObservesAckLatency(t *testing.T) {
	mirror := state.NewMirror()
	unacked := newUnackedBuffer(32)
	metrics := newMetrics(prometheus.NewRegistry())
	clock := &stepClock{now: time.Unix(0, 0), by: 20 * time.Millisecond}
	e := newSessionEngine(DefaultConnectionConfig(), mirror, unacked, metrics, clock, discardLogger())
	activateEngine(t, e)

	sent, id, err := e.sendCommands([]command.Command{command.Cut{ME: 0}}, state.ProtocolVersion{})
	if err != nil {
		t.Fatalf("sendCommands: %v", err)
	}
	e.unacked.Add(id, buf.New(sent), clock.Now())

	ack := encodePacket(t, transport.Header{Flags: transport.FlagAckResponse, SessionID: 0x5555, AckID: uint16(id)}, nil)
	e.handleInbound(ack, state.DiscardEvents)

	var m dto.Metric
	if err := metrics.ackLatency.Write(&m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := m.GetHistogram().GetSampleCount(); got != 1 {
		t.Fatalf("ackLatency sample count = %d, want 1", got)
	}
	if got := m.GetHistogram().GetSampleSum(); got <= 0 {
		t.Fatalf("ackLatency sample sum = %v, want a positive round-trip duration", got)
	}
}
