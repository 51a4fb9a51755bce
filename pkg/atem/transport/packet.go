package transport

import "encoding/binary"

// Header is the 12-byte fixed transport header described in the protocol's
// data model. All multi-byte fields are big-endian.
type Header struct {
	Flags     Flags
	Length    uint16
	SessionID uint16
	AckID     uint16
	ResendID  uint16
	LocalID   uint16
}

// EncodedLen returns the wire length of h including its payload, i.e.
// h.Length.
func (h Header) EncodedLen() int { return int(h.Length) }

// Encode writes h and marshals dst[12:] from payload, returning the
// number of bytes written. dst must be at least HeaderLen+len(payload)
// bytes; h.Length is ignored and the true encoded length is written instead.
func Encode(h Header, payload []byte, dst []byte) (int, error) {
	total := HeaderLen + len(payload)
	if total > MaxPacketLength {
		return 0, ErrPacketTooLarge
	}
	if len(dst) < total {
		return 0, ErrBufferTooSmall
	}

	opcode := uint16(h.Flags)<<11 | uint16(total)&0x07FF
	binary.BigEndian.PutUint16(dst[0:2], opcode)
	binary.BigEndian.PutUint16(dst[2:4], h.SessionID)
	binary.BigEndian.PutUint16(dst[4:6], h.AckID)
	binary.BigEndian.PutUint16(dst[6:8], h.ResendID)
	binary.BigEndian.PutUint16(dst[8:10], 0) // reserved
	binary.BigEndian.PutUint16(dst[10:12], h.LocalID)
	copy(dst[HeaderLen:total], payload)

	return total, nil
}

// RawPacket is a borrowed view over a received datagram. It never copies or
// outlives the buffer it was decoded from.
type RawPacket struct {
	Header  Header
	payload []byte
}

// Payload returns the command-TLV region of the packet (everything after
// the 12-byte header).
func (p RawPacket) Payload() []byte { return p.payload }

// Decode parses the fixed header out of data and validates that the
// declared length matches len(data). The returned RawPacket borrows data;
// the caller must not mutate or reuse data while it is in use.
func Decode(data []byte) (RawPacket, error) {
	if len(data) < HeaderLen {
		return RawPacket{}, ErrPacketTooShort
	}

	opcode := binary.BigEndian.Uint16(data[0:2])
	h := Header{
		Flags:     Flags(opcode >> 11),
		Length:    opcode & 0x07FF,
		SessionID: binary.BigEndian.Uint16(data[2:4]),
		AckID:     binary.BigEndian.Uint16(data[4:6]),
		ResendID:  binary.BigEndian.Uint16(data[6:8]),
		LocalID:   binary.BigEndian.Uint16(data[10:12]),
	}

	if int(h.Length) != len(data) {
		return RawPacket{}, ErrLengthMismatch
	}

	return RawPacket{Header: h, payload: data[HeaderLen:]}, nil
}
