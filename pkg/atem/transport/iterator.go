package transport

import "encoding/binary"

// MaxCommandsPerPacket is a defensive cap against a crafted packet that
// declares many zero-length-looking commands.
const MaxCommandsPerPacket = 512

// commandHeaderLen is the size of a command TLV's own header: a 16-bit
// length (including this header) and a 16-bit reserved field, ahead of the
// 4-byte ASCII tag.
const commandHeaderLen = 8

// RawCommand is a borrowed view of one command TLV: a 4-byte ASCII tag and
// its body (the TLV's bytes after the 8-byte command header).
type RawCommand struct {
	Tag  [4]byte
	Body []byte
}

// Commands iterates the command TLVs in p's payload. It stops, discarding
// the remainder, the moment a command header declares an impossible length;
// commands already yielded stand. It also stops after MaxCommandsPerPacket
// commands.
func (p RawPacket) Commands() []RawCommand {
	var out []RawCommand
	buf := p.payload
	off := 0

	for len(out) < MaxCommandsPerPacket {
		if off+commandHeaderLen > len(buf) {
			break
		}

		length := int(binary.BigEndian.Uint16(buf[off : off+2]))
		if length < commandHeaderLen || off+length > len(buf) {
			break
		}

		var tag [4]byte
		copy(tag[:], buf[off+4:off+8])
		out = append(out, RawCommand{Tag: tag, Body: buf[off+commandHeaderLen : off+length]})

		off += length
	}

	return out
}

// EncodeCommand serializes a single command TLV: 2-byte length (including
// the 8-byte header), 2 reserved bytes, the 4-byte tag, then body.
func EncodeCommand(tag [4]byte, body []byte) []byte {
	length := commandHeaderLen + len(body)
	out := make([]byte, length)
	binary.BigEndian.PutUint16(out[0:2], uint16(length))
	copy(out[4:8], tag[:])
	copy(out[8:], body)
	return out
}
