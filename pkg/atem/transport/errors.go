package transport

import "errors"

var (
	// ErrPacketTooShort is returned when a buffer is shorter than the
	// fixed 12-byte header.
	ErrPacketTooShort = errors.New("atem: packet shorter than header")

	// ErrLengthMismatch is returned when the header's declared length
	// does not match the number of bytes actually received.
	ErrLengthMismatch = errors.New("atem: declared length does not match received length")

	// ErrPacketTooLarge is returned when a caller asks to encode a
	// packet longer than the 11-bit length field can express.
	ErrPacketTooLarge = errors.New("atem: packet exceeds maximum length")

	// ErrBufferTooSmall is returned when the caller-supplied buffer
	// cannot hold the encoded packet.
	ErrBufferTooSmall = errors.New("atem: destination buffer too small")
)
