package atem

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/atemkit/atem/pkg/atem/command"
	"github.com/atemkit/atem/pkg/atem/transport"
)

// fakeAddr is a no-op net.Addr for the fake socket below.
type fakeAddr struct{}

func (fakeAddr) Network() string { return "udp" }
func (fakeAddr) String() string  { return "fake:6417" }

// fakeTimeoutError satisfies net.Error with Timeout() true, matching what
// *net.UDPConn returns when a read deadline elapses.
type fakeTimeoutError struct{}

func (fakeTimeoutError) Error() string   { return "fake: i/o timeout" }
func (fakeTimeoutError) Timeout() bool   { return true }
func (fakeTimeoutError) Temporary() bool { return true }

// fakePacketConn is an in-memory transport.PacketConn: inbound datagrams are
// queued with push, and every WriteTo call is recorded for inspection.
type fakePacketConn struct {
	inbound chan []byte
	closed  chan struct{}

	mu       sync.Mutex
	deadline time.Time
	writes   [][]byte
}

func newFakePacketConn() *fakePacketConn {
	return &fakePacketConn{
		inbound: make(chan []byte, 16),
		closed:  make(chan struct{}),
	}
}

func (f *fakePacketConn) push(b []byte) { f.inbound <- b }

func (f *fakePacketConn) ReadFrom(p []byte) (int, net.Addr, error) {
	f.mu.Lock()
	deadline := f.deadline
	f.mu.Unlock()

	var timeoutCh <-chan time.Time
	if !deadline.IsZero() {
		d := time.Until(deadline)
		if d <= 0 {
			return 0, nil, fakeTimeoutError{}
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case data := <-f.inbound:
		n := copy(p, data)
		return n, fakeAddr{}, nil
	case <-f.closed:
		return 0, nil, net.ErrClosed
	case <-timeoutCh:
		return 0, nil, fakeTimeoutError{}
	}
}

func (f *fakePacketConn) WriteTo(p []byte, _ net.Addr) (int, error) {
	f.mu.Lock()
	f.writes = append(f.writes, append([]byte(nil), p...))
	f.mu.Unlock()
	return len(p), nil
}

func (f *fakePacketConn) SetReadDeadline(t time.Time) error {
	f.mu.Lock()
	f.deadline = t
	f.mu.Unlock()
	return nil
}

func (f *fakePacketConn) Close() error {
	select {
	case <-f.closed:
	default:
		close(f.closed)
	}
	return nil
}

func (f *fakePacketConn) lastWrite() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.writes) == 0 {
		return nil
	}
	return f.writes[len(f.writes)-1]
}

func (f *fakePacketConn) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func testConfig() ConnectionConfig {
	cfg := DefaultConnectionConfig()
	cfg.PeerHost = "127.0.0.1"
	cfg.RecvTimeout = 10 * time.Millisecond
	return cfg
}

// waitFor polls cond in a tight loop until it reports true or the deadline
// passes, failing the test in the latter case. Driving the handshake through
// Device's real receive loop means there is no single synchronous point to
// assert from.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestDeviceNewSendsInitialHello(t *testing.T) {
	conn := newFakePacketConn()
	d, err := New(context.Background(), testConfig(), conn, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	sent := conn.lastWrite()
	p, err := transport.Decode(sent)
	if err != nil {
		t.Fatalf("decoding initial write: %v", err)
	}
	if p.Header.Flags&transport.FlagHello == 0 {
		t.Fatalf("initial write flags = %v, want FlagHello set", p.Header.Flags)
	}
}

func TestDeviceSendCommandsBeforeActiveFails(t *testing.T) {
	conn := newFakePacketConn()
	d, err := New(context.Background(), testConfig(), conn, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	if err := d.SendCommands(command.Cut{ME: 0}); err == nil {
		t.Fatal("expected SendCommands to fail before the session is active")
	}
}

func TestDeviceSendCommandsRejectsEmptyList(t *testing.T) {
	conn := newFakePacketConn()
	d, err := New(context.Background(), testConfig(), conn, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	if err := d.SendCommands(); err == nil {
		t.Fatal("expected SendCommands to reject an empty command list")
	}
}

func TestDeviceHandshakeReachesActive(t *testing.T) {
	conn := newFakePacketConn()
	d, err := New(context.Background(), testConfig(), conn, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	hello := make([]byte, transport.HeaderLen+1)
	n, _ := transport.Encode(transport.Header{Flags: transport.FlagHello, SessionID: 0x2222}, []byte{transport.HelloStatusAccepted}, hello)
	conn.push(hello[:n])

	waitFor(t, func() bool {
		p, err := transport.Decode(conn.lastWrite())
		return err == nil && p.Header.Flags&transport.FlagHelloAck != 0
	})

	initPkt := make([]byte, transport.HeaderLen)
	n, _ = transport.Encode(transport.Header{Flags: transport.FlagAckRequest, SessionID: 0x2222, LocalID: 1}, nil, initPkt)
	conn.push(initPkt[:n])

	waitFor(t, func() bool { return d.IsConnected() })

	if err := d.SendCommands(command.Cut{ME: 0}); err != nil {
		t.Fatalf("SendCommands once active: %v", err)
	}
}

func TestDeviceCloseIsIdempotent(t *testing.T) {
	conn := newFakePacketConn()
	d, err := New(context.Background(), testConfig(), conn, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := d.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestDeviceRejectsNilConn(t *testing.T) {
	_, err := New(context.Background(), testConfig(), nil, nil)
	if err == nil {
		t.Fatal("expected New to reject a nil connection")
	}
}
