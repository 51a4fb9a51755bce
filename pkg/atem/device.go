// Package atem is a client for Blackmagic Design's ATEM switcher control
// protocol: a UDP session with its own reliability layer, carrying typed
// commands that drive and mirror a switcher's live state.
package atem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/atemkit/atem/pkg/atem/buf"
	"github.com/atemkit/atem/pkg/atem/command"
	"github.com/atemkit/atem/pkg/atem/state"
	"github.com/atemkit/atem/pkg/atem/transport"
)

// Device is a handle to one switcher connection. It owns a single receive
// goroutine that drives the handshake, reliability, and state-mirroring
// logic; callers only ever see the public methods below.
//
// Grounded on the teacher's Conn: a thin struct wrapping the wire layer,
// generalized here to own its own goroutine because the protocol, unlike
// RTMP, is driven by a background session rather than a caller read loop.
type Device struct {
	conn     transport.PacketConn
	peerAddr net.Addr
	cfg      ConnectionConfig

	engine  *sessionEngine
	engineMu sync.Mutex

	mirror  *state.Mirror
	unacked *unackedBuffer
	events  state.EventSink

	clock   transport.Clock
	metrics *deviceMetrics
	log     *slog.Logger

	done     chan struct{}
	wg       sync.WaitGroup
	closeMu  sync.Mutex
	closed   bool
}

// New opens a session over conn to the peer described by cfg, starts the
// background receive loop, and returns once the initial HELLO has been
// written. The caller owns conn's lifecycle up to Close.
func New(ctx context.Context, cfg ConnectionConfig, conn transport.PacketConn, events state.EventSink, opts ...Option) (*Device, error) {
	if conn == nil {
		return nil, fmt.Errorf("atem: %w: nil connection", ErrInvalidArgument)
	}
	if events == nil {
		events = state.DiscardEvents
	}

	peerAddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", cfg.PeerHost, cfg.PeerPort))
	if err != nil {
		return nil, fmt.Errorf("atem: resolving peer address: %w", err)
	}

	d := &Device{
		conn:     conn,
		peerAddr: peerAddr,
		cfg:      cfg,
		mirror:   state.NewMirror(),
		unacked:  newUnackedBuffer(int(cfg.MaxUnacked)),
		events:   events,
		clock:    transport.SystemClock(),
		log:      slog.Default(),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(d)
	}
	if d.metrics == nil {
		d.metrics = newMetrics(prometheus.DefaultRegisterer)
	}

	d.engine = newSessionEngine(cfg, d.mirror, d.unacked, d.metrics, d.clock, d.log)

	if err := d.sendRaw(d.engine.helloPacket()); err != nil {
		return nil, fmt.Errorf("atem: sending initial hello: %w", err)
	}

	d.wg.Add(1)
	go d.receiveLoop(ctx)

	return d, nil
}

// Close stops the receive loop and closes the underlying connection. It is
// safe to call more than once.
func (d *Device) Close() error {
	d.closeMu.Lock()
	if d.closed {
		d.closeMu.Unlock()
		return nil
	}
	d.closed = true
	close(d.done)
	d.closeMu.Unlock()

	err := d.conn.Close()
	d.wg.Wait()
	d.unacked.Reset()
	return err
}

// IsConnected reports whether the session has completed its handshake and
// is exchanging commands.
func (d *Device) IsConnected() bool {
	d.engineMu.Lock()
	defer d.engineMu.Unlock()
	return d.engine.State() == Active
}

// SendCommands encodes cmds into a single outbound packet and sends it. It
// returns ErrInvalidArgument if cmds is empty or the session is not yet
// Active, and ErrClosed if the Device has been closed.
func (d *Device) SendCommands(cmds ...command.Command) error {
	d.closeMu.Lock()
	closed := d.closed
	d.closeMu.Unlock()
	if closed {
		return ErrClosed
	}

	version, _ := d.mirror.Version()

	d.engineMu.Lock()
	if d.engine.State() != Active {
		d.engineMu.Unlock()
		return fmt.Errorf("atem: %w: session is not active", ErrInvalidArgument)
	}
	data, id, err := d.engine.sendCommands(cmds, version)
	d.engineMu.Unlock()
	if err != nil {
		return err
	}

	if d.cfg.StoreSendEnabled {
		d.unacked.Add(id, buf.New(data), d.clock.Now())
	}
	if d.metrics != nil {
		d.metrics.unackedBufferSize.Set(float64(d.unacked.Len()))
	}

	return d.sendRaw(data)
}

func (d *Device) sendRaw(data []byte) error {
	if _, err := d.conn.WriteTo(data, d.peerAddr); err != nil {
		if d.metrics != nil {
			d.metrics.packetsDropped.WithLabelValues("write_error").Inc()
		}
		return &TransportError{Err: err, Retryable: true}
	}
	if d.metrics != nil {
		d.metrics.packetsSent.Inc()
	}
	return nil
}

// receiveLoop is the Device's only goroutine. No panic ever crosses the
// library boundary: a recovered panic is logged and the loop exits,
// leaving the Device in whatever state it was in when the panic occurred.
func (d *Device) receiveLoop(ctx context.Context) {
	defer d.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("receive loop panic", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	scratch := make([]byte, transport.RecvBufferSize)

	for {
		select {
		case <-d.done:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := d.conn.SetReadDeadline(d.clock.Now().Add(d.cfg.RecvTimeout)); err != nil {
			d.log.Error("setting read deadline", "err", err)
			return
		}

		n, _, err := d.conn.ReadFrom(scratch)
		if err != nil {
			if isTimeout(err) {
				d.handleTick()
				continue
			}
			select {
			case <-d.done:
				return
			default:
			}
			d.log.Error("reading packet", "err", err)
			if d.metrics != nil {
				d.metrics.packetsDropped.WithLabelValues("read_error").Inc()
			}
			continue
		}

		d.handlePacket(scratch[:n])
	}
}

func (d *Device) handlePacket(raw []byte) {
	if d.metrics != nil {
		d.metrics.packetsReceived.Inc()
	}

	p, err := transport.Decode(raw)
	if err != nil {
		d.log.Debug("dropping malformed packet", "err", err)
		if d.metrics != nil {
			d.metrics.packetsDropped.WithLabelValues("malformed").Inc()
		}
		return
	}

	d.engineMu.Lock()
	out := d.engine.handleInbound(p, d.events)
	d.engineMu.Unlock()

	if d.metrics != nil {
		d.metrics.unackedBufferSize.Set(float64(d.unacked.Len()))
	}

	for _, reply := range out {
		if err := d.sendRaw(reply); err != nil {
			d.log.Debug("sending reply packet", "err", err)
		}
	}
}

func (d *Device) handleTick() {
	d.engineMu.Lock()
	res := d.engine.tick(d.events)
	d.engineMu.Unlock()

	if res.reset {
		d.log.Warn("no traffic from switcher, resetting session")
	}
	if res.probe != nil {
		if err := d.sendRaw(res.probe); err != nil {
			d.log.Debug("sending keepalive probe", "err", err)
		}
	}
	if res.hello != nil {
		if err := d.sendRaw(res.hello); err != nil {
			d.log.Debug("sending hello", "err", err)
		}
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// --- state mirror passthroughs ---

// Program returns a mix-effect's program input, if known.
func (d *Device) Program(me int) (state.Source, bool) { return d.mirror.Program(me) }

// Preview returns a mix-effect's preview input, if known.
func (d *Device) Preview(me int) (state.Source, bool) { return d.mirror.Preview(me) }

// TransitionPosition returns a mix-effect's transition bar state, if known.
func (d *Device) TransitionPosition(me int) (state.TransitionPosition, bool) {
	return d.mirror.TransitionPosition(me)
}

// TransitionStyle returns a mix-effect's configured transition style, if
// known.
func (d *Device) TransitionStyle(me int) (state.TransitionStyle, bool) {
	return d.mirror.TransitionStyle(me)
}

// FadeToBlack returns a mix-effect's fade-to-black status, if known.
func (d *Device) FadeToBlack(me int) (state.FadeToBlackState, bool) { return d.mirror.FadeToBlack(me) }

// UskOnAir returns one upstream keyer's on-air state, if known.
func (d *Device) UskOnAir(me, keyer int) (bool, bool) { return d.mirror.UskOnAir(me, keyer) }

// UskBorder returns one upstream keyer's type/border/source properties, if
// known.
func (d *Device) UskBorder(me, keyer int) (state.KeyerBorder, bool) {
	return d.mirror.UskBorder(me, keyer)
}

// UskDVE returns one upstream keyer's flying-key geometry, if known.
func (d *Device) UskDVE(me, keyer int) (state.DveProperties, bool) {
	return d.mirror.UskDVE(me, keyer)
}

// Aux returns an aux bus's source, if known.
func (d *Device) Aux(channel int) (state.Source, bool) { return d.mirror.Aux(channel) }

// DskStatus returns a downstream keyer's on-air/transition status, if known.
func (d *Device) DskStatus(keyer int) (state.DskStatus, bool) { return d.mirror.DskStatus(keyer) }

// InputProperty returns a source's display name, if known.
func (d *Device) InputProperty(source state.Source) (state.InputProperty, bool) {
	return d.mirror.InputProperty(source)
}

// MediaPlayerSource returns a media player's selected slot, if known.
func (d *Device) MediaPlayerSource(player int) (state.MediaPlayerSource, bool) {
	return d.mirror.MediaPlayerSource(player)
}

// MediaPoolFrame returns one media pool still's name/usage, if known.
func (d *Device) MediaPoolFrame(index uint16) (state.MediaPoolFrame, bool) {
	return d.mirror.MediaPoolFrame(index)
}

// StreamState returns the streaming-output status, if known.
func (d *Device) StreamState() (state.StreamState, bool) { return d.mirror.StreamState() }

// Version returns the switcher's reported protocol version, if known.
func (d *Device) Version() (state.ProtocolVersion, bool) { return d.mirror.Version() }

// ProductID returns the switcher's product name, if known.
func (d *Device) ProductID() (string, bool) { return d.mirror.ProductID() }

// Topology returns the switcher's hardware shape, if known.
func (d *Device) Topology() (state.Topology, bool) { return d.mirror.Topology() }
