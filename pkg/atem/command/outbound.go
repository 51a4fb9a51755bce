package command

import (
	"encoding/binary"

	"github.com/atemkit/atem/pkg/atem/state"
	"github.com/atemkit/atem/pkg/atem/transport"
)

// Command is an outbound command ready to be serialized into a packet. Each
// case is a thin struct whose encode method produces the TLV body; Encode
// prepends the command header (length, reserved, tag).
type Command interface {
	tag() [4]byte
	encode(v state.ProtocolVersion) []byte
}

// Encode serializes cmd into one command TLV, gated by the protocol
// version in effect for the connection.
func Encode(cmd Command, v state.ProtocolVersion) []byte {
	return transport.EncodeCommand(cmd.tag(), cmd.encode(v))
}

func be16(x uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, x)
	return b
}

func be32(x uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, x)
	return b
}

// Cut performs an immediate program/preview swap on a mix-effect bus.
type Cut struct{ ME uint8 }

func (Cut) tag() [4]byte { return TagCut }
func (c Cut) encode(state.ProtocolVersion) []byte {
	return []byte{c.ME, 0, 0, 0}
}

// Auto starts the configured transition on a mix-effect bus.
type Auto struct{ ME uint8 }

func (Auto) tag() [4]byte { return TagAuto }
func (c Auto) encode(state.ProtocolVersion) []byte {
	return []byte{c.ME, 0, 0, 0}
}

// FadeToBlackAuto triggers a mix-effect bus's fade-to-black transition.
type FadeToBlackAuto struct{ ME uint8 }

func (FadeToBlackAuto) tag() [4]byte { return TagFadeToBlackAuto }
func (c FadeToBlackAuto) encode(state.ProtocolVersion) []byte {
	return []byte{c.ME, 0, 0, 0}
}

// SetProgram sets a mix-effect bus's program input.
type SetProgram struct {
	ME     uint8
	Source state.Source
}

func (SetProgram) tag() [4]byte { return TagSetProgramInput }
func (c SetProgram) encode(state.ProtocolVersion) []byte {
	body := []byte{c.ME, 0, 0, 0}
	copy(body[2:4], be16(uint16(c.Source)))
	return body
}

// SetPreview sets a mix-effect bus's preview input.
type SetPreview struct {
	ME     uint8
	Source state.Source
}

func (SetPreview) tag() [4]byte { return TagSetPreviewInput }
func (c SetPreview) encode(state.ProtocolVersion) []byte {
	body := []byte{c.ME, 0, 0, 0}
	copy(body[2:4], be16(uint16(c.Source)))
	return body
}

// SetAux sets an aux bus's source.
type SetAux struct {
	Channel uint8
	Source  state.Source
}

func (SetAux) tag() [4]byte { return TagSetAux }
func (c SetAux) encode(state.ProtocolVersion) []byte {
	body := []byte{1, c.Channel, 0, 0}
	copy(body[2:4], be16(uint16(c.Source)))
	return body
}

// SetTransitionPosition moves a mix-effect bus's transition bar to an
// explicit position (0-10000), for manual drag interactions.
type SetTransitionPosition struct {
	ME       uint8
	Position uint16
}

func (SetTransitionPosition) tag() [4]byte { return TagSetTransitionPosition }
func (c SetTransitionPosition) encode(state.ProtocolVersion) []byte {
	body := []byte{c.ME, 0, 0, 0}
	copy(body[2:4], be16(c.Position))
	return body
}

// SetTransitionStyle selects which style the mix-effect bus's next
// transition will use.
type SetTransitionStyle struct {
	ME   uint8
	Next state.StyleMask
}

func (SetTransitionStyle) tag() [4]byte { return TagSetTransitionStyle }
func (c SetTransitionStyle) encode(state.ProtocolVersion) []byte {
	return []byte{0x2, c.ME, 0, byte(c.Next)}
}

// DskSource sets a downstream keyer's fill and key sources.
type DskSource struct {
	Keyer uint8
	Fill  state.Source
	Key   state.Source
}

func (DskSource) tag() [4]byte { return TagSetDskSources }
func (c DskSource) encode(state.ProtocolVersion) []byte {
	body := make([]byte, 6)
	body[0] = c.Keyer
	copy(body[2:4], be16(uint16(c.Fill)))
	copy(body[4:6], be16(uint16(c.Key)))
	return body
}

// DskTie sets whether a downstream keyer is tied to its mix-effect bus's
// transition.
type DskTie struct {
	Keyer uint8
	Tie   bool
}

func (DskTie) tag() [4]byte { return TagSetDskTie }
func (c DskTie) encode(state.ProtocolVersion) []byte {
	tie := byte(0)
	if c.Tie {
		tie = 1
	}
	return []byte{c.Keyer, tie}
}

// DskAuto starts a downstream keyer's auto transition. The keyer byte's
// body offset is version-gated: body[0] for protocol <= 2.27, body[1] for
// >= 2.28.
type DskAuto struct{ Keyer uint8 }

func (DskAuto) tag() [4]byte { return TagSetDskAuto }
func (c DskAuto) encode(v state.ProtocolVersion) []byte {
	body := make([]byte, 2)
	if v.AtLeast(2, 28) {
		body[1] = c.Keyer
	} else {
		body[0] = c.Keyer
	}
	return body
}

// UskFill sets an upstream keyer's fill source.
type UskFill struct {
	ME    uint8
	Keyer uint8
	Fill  state.Source
}

func (UskFill) tag() [4]byte { return TagSetUskFill }
func (c UskFill) encode(state.ProtocolVersion) []byte {
	body := []byte{c.ME, c.Keyer, 0, 0}
	copy(body[2:4], be16(uint16(c.Fill)))
	return body
}

// UskOnAir sets an upstream keyer's on-air state.
type UskOnAir struct {
	ME      uint8
	Keyer   uint8
	Enabled bool
}

func (UskOnAir) tag() [4]byte { return TagSetUskOnAir }
func (c UskOnAir) encode(state.ProtocolVersion) []byte {
	enabled := byte(0)
	if c.Enabled {
		enabled = 1
	}
	return []byte{c.ME, c.Keyer, enabled, 0}
}

// UskType is a mask-gated write of an upstream keyer's compositing type
// and/or its flying-key-enabled flag. Set only the fields to be written;
// unset fields are left unchanged by the switcher.
type UskType struct {
	ME               uint8
	Keyer            uint8
	Type              state.KeyType
	WriteType        bool
	FlyEnabled       bool
	WriteFlyEnabled  bool
}

func (UskType) tag() [4]byte { return TagSetUskType }
func (c UskType) encode(state.ProtocolVersion) []byte {
	var mask byte
	if c.WriteType {
		mask |= 0x1
	}
	if c.WriteFlyEnabled {
		mask |= 0x2
	}
	fly := byte(0)
	if c.FlyEnabled {
		fly = 1
	}
	return []byte{mask, c.ME, c.Keyer, byte(c.Type), fly}
}

// uskDveProperty indexes the property-mask slots shared by UskDVE and
// UskKeyFrameProperties, matching the reference encoder's slot layout.
type uskDveProperty uint8

const (
	propSizeX uskDveProperty = 0
	propSizeY uskDveProperty = 1
	propPosX  uskDveProperty = 2
	propPosY  uskDveProperty = 3
	propRotation uskDveProperty = 4
)

// UskDVE is a property-mask write of an upstream keyer's flying-key
// geometry. Only fields with their Set* flag true are written.
type UskDVE struct {
	ME, Keyer      uint8
	SizeX, SizeY   int32
	SetSizeX, SetSizeY bool
	PosX, PosY     int32
	SetPosX, SetPosY bool
	Rotation       int32
	SetRotation    bool
}

func (UskDVE) tag() [4]byte { return TagSetUskDVE }
func (c UskDVE) encode(state.ProtocolVersion) []byte {
	body := make([]byte, 64)
	var mask uint32
	set := func(p uskDveProperty, v int32) {
		mask |= 1 << uint8(p)
		copy(body[8+int(p)*4:12+int(p)*4], be32(uint32(v)))
	}
	if c.SetSizeX {
		set(propSizeX, c.SizeX)
	}
	if c.SetSizeY {
		set(propSizeY, c.SizeY)
	}
	if c.SetPosX {
		set(propPosX, c.PosX)
	}
	if c.SetPosY {
		set(propPosY, c.PosY)
	}
	if c.SetRotation {
		set(propRotation, c.Rotation)
	}
	copy(body[0:4], be32(mask))
	body[4] = c.ME
	body[5] = c.Keyer
	return body
}

// UskKeyFrameProperties is a property-mask write of an upstream keyer's
// stored DVE key-frame geometry.
type UskKeyFrameProperties struct {
	ME, Keyer      uint8
	KeyFrame       uint8
	SizeX, SizeY   int32
	SetSizeX, SetSizeY bool
	PosX, PosY     int32
	SetPosX, SetPosY bool
	Rotation       int32
	SetRotation    bool
}

func (UskKeyFrameProperties) tag() [4]byte { return TagSetUskKeyFrameProps }
func (c UskKeyFrameProperties) encode(state.ProtocolVersion) []byte {
	body := make([]byte, 56)
	var mask uint32
	set := func(p uskDveProperty, v int32) {
		mask |= 1 << uint8(p)
		copy(body[8+int(p)*4:12+int(p)*4], be32(uint32(v)))
	}
	if c.SetSizeX {
		set(propSizeX, c.SizeX)
	}
	if c.SetSizeY {
		set(propSizeY, c.SizeY)
	}
	if c.SetPosX {
		set(propPosX, c.PosX)
	}
	if c.SetPosY {
		set(propPosY, c.PosY)
	}
	if c.SetRotation {
		set(propRotation, c.Rotation)
	}
	copy(body[0:4], be32(mask))
	body[4] = c.ME
	body[5] = c.Keyer
	body[6] = c.KeyFrame
	return body
}

// RunUskKeyFrame recalls a stored DVE key frame into an upstream keyer's
// live transform.
type RunUskKeyFrame struct {
	ME, Keyer uint8
	KeyFrame  uint8
}

func (RunUskKeyFrame) tag() [4]byte { return TagRunUskKeyFrame }
func (c RunUskKeyFrame) encode(state.ProtocolVersion) []byte {
	return []byte{0, c.ME, c.Keyer, 0, c.KeyFrame, 0, 0, 0}
}

// SetMediaPlayerSource selects a media player's still or clip slot.
type SetMediaPlayerSource struct {
	Player uint8
	Type   uint8
	Still  uint8
	Clip   uint8
}

func (SetMediaPlayerSource) tag() [4]byte { return TagSetMediaPlayerSource }
func (c SetMediaPlayerSource) encode(state.ProtocolVersion) []byte {
	return []byte{c.Player, c.Type, c.Still, c.Clip}
}

// SaveStartupState asks the switcher to persist its current state as the
// power-on default. It carries no body.
type SaveStartupState struct{}

func (SaveStartupState) tag() [4]byte             { return TagSaveStartupState }
func (SaveStartupState) encode(state.ProtocolVersion) []byte { return nil }
