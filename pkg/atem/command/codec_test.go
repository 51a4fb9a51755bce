package command

import (
	"bytes"
	"testing"

	"github.com/atemkit/atem/pkg/atem/state"
	"github.com/atemkit/atem/pkg/atem/transport"
)

func TestDecodeProgramInputAppliesToMirror(t *testing.T) {
	body := []byte{0, 0, 0, 5} // me=0, reserved, source=5
	delta, err := Decode(transport.RawCommand{Tag: TagProgramInput, Body: body})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	m := state.NewMirror()
	m.SetTopology(1, state.Topology{MEs: 1})
	if !m.Apply(delta, 2) {
		t.Fatal("Apply returned false for a fresh field")
	}

	got, ok := m.Program(0)
	if !ok || got != state.Source(5) {
		t.Errorf("Program(0) = (%v, %v), want (5, true)", got, ok)
	}
}

func TestDecodeUnknownTagIsIgnored(t *testing.T) {
	delta, err := Decode(transport.RawCommand{Tag: [4]byte{'Z', 'Z', 'Z', 'Z'}, Body: nil})
	if err != nil {
		t.Fatalf("Decode returned an error for an unknown tag: %v", err)
	}
	if delta != nil {
		t.Error("Decode returned a non-nil delta for an unknown tag")
	}
}

func TestDecodeRejectsShortBody(t *testing.T) {
	_, err := Decode(transport.RawCommand{Tag: TagProgramInput, Body: []byte{0}})
	if err == nil {
		t.Error("Decode accepted a body shorter than PrgI requires")
	}
}

func TestDecodeStreamStatusRejectsNonStrictLength(t *testing.T) {
	for _, n := range []int{2, 3, 5} {
		body := make([]byte, n)
		if _, err := Decode(transport.RawCommand{Tag: TagStreamStatus, Body: body}); err == nil {
			t.Errorf("Decode accepted StRS body of length %d, want a strict-length error", n)
		}
	}
}

func TestDecodeStreamStatusAcceptsExactLength(t *testing.T) {
	delta, err := Decode(transport.RawCommand{Tag: TagStreamStatus, Body: []byte{0, 4, 0, 0}})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	m := state.NewMirror()
	m.Apply(delta, 1)
	got, ok := m.StreamState()
	if !ok || got != state.StreamState(4) {
		t.Errorf("StreamState() = (%v, %v), want (4, true)", got, ok)
	}
}

func TestEncodeCutRoundTrips(t *testing.T) {
	wire := Encode(Cut{ME: 1}, state.ProtocolVersion{})

	// wire is a full command TLV; decode it back via the transport iterator.
	dst := make([]byte, transport.MaxPacketLength)
	n, err := transport.Encode(transport.Header{}, wire, dst)
	if err != nil {
		t.Fatalf("transport.Encode: %v", err)
	}
	p, err := transport.Decode(dst[:n])
	if err != nil {
		t.Fatalf("transport.Decode: %v", err)
	}
	cmds := p.Commands()
	if len(cmds) != 1 {
		t.Fatalf("len(cmds) = %d, want 1", len(cmds))
	}
	if cmds[0].Tag != TagCut {
		t.Errorf("Tag = %q, want DCut", cmds[0].Tag)
	}
	if !bytes.Equal(cmds[0].Body, []byte{1, 0, 0, 0}) {
		t.Errorf("Body = %v, want [1 0 0 0]", cmds[0].Body)
	}
}

func TestDskAutoVersionGating(t *testing.T) {
	old := DskAuto{Keyer: 1}.encode(state.ProtocolVersion{Major: 2, Minor: 27})
	if old[0] != 1 || old[1] != 0 {
		t.Errorf("pre-2.28 body = %v, want keyer at offset 0", old)
	}

	new_ := DskAuto{Keyer: 1}.encode(state.ProtocolVersion{Major: 2, Minor: 28})
	if new_[1] != 1 || new_[0] != 0 {
		t.Errorf("2.28+ body = %v, want keyer at offset 1", new_)
	}
}

func TestUskDVEPropertyMask(t *testing.T) {
	body := UskDVE{ME: 0, Keyer: 1, SizeX: 100, SetSizeX: true, Rotation: 90, SetRotation: true}.
		encode(state.ProtocolVersion{})

	mask := uint32(body[0])<<24 | uint32(body[1])<<16 | uint32(body[2])<<8 | uint32(body[3])
	if mask != (1<<0)|(1<<4) {
		t.Errorf("mask = %#x, want bits 0 and 4 set", mask)
	}
	if body[4] != 0 || body[5] != 1 {
		t.Errorf("me/keyer = %d/%d, want 0/1", body[4], body[5])
	}
}
