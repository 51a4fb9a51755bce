package command

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/atemkit/atem/pkg/atem/state"
	"github.com/atemkit/atem/pkg/atem/transport"
)

// Decode turns one raw command TLV into a typed state.Delta. It returns
// (nil, nil) for tags that are not yet modeled, so an unrecognized command
// is silently ignored rather than treated as an error — new firmware
// versions add commands faster than any one client tracks them.
func Decode(raw transport.RawCommand) (state.Delta, error) {
	switch raw.Tag {
	case TagVersion:
		return decodeVersion(raw.Body)
	case TagProductID:
		return decodeProductID(raw.Body)
	case TagTopology:
		return decodeTopology(raw.Body)
	case TagMixEffectConfig:
		return decodeMixEffectConfig(raw.Body)
	case TagMediaPoolConfig:
		return decodeMediaPoolConfig(raw.Body)
	case TagAuxSource:
		return decodeAuxSource(raw.Body)
	case TagDskSources:
		return decodeDskSources(raw.Body)
	case TagDskTie:
		return decodeDskTie(raw.Body)
	case TagDskStatus:
		return decodeDskStatus(raw.Body)
	case TagFadeToBlackStatus:
		return decodeFadeToBlackStatus(raw.Body)
	case TagInputProperty:
		return decodeInputProperty(raw.Body)
	case TagKeyerBorder:
		return decodeKeyerBorder(raw.Body)
	case TagKeyerDVE:
		return decodeKeyerDVE(raw.Body)
	case TagKeyerKeyFrameState:
		return decodeKeyerKeyFrameState(raw.Body)
	case TagKeyerOnAir:
		return decodeKeyerOnAir(raw.Body)
	case TagMediaPlayerSource:
		return decodeMediaPlayerSource(raw.Body)
	case TagMediaPoolFrame:
		return decodeMediaPoolFrame(raw.Body)
	case TagProgramInput:
		return decodeProgramInput(raw.Body)
	case TagPreviewInput:
		return decodePreviewInput(raw.Body)
	case TagStreamStatus:
		return decodeStreamStatus(raw.Body)
	case TagTransitionPosition:
		return decodeTransitionPosition(raw.Body)
	case TagTransitionStyle:
		return decodeTransitionStyle(raw.Body)
	default:
		return nil, nil
	}
}

// EventKindForTag reports which EventKind a successfully decoded command
// of this tag should notify, if any.
func EventKindForTag(tag [4]byte) (state.EventKind, bool) {
	switch tag {
	case TagVersion:
		return state.EventVersion, true
	case TagProductID:
		return state.EventProductID, true
	case TagTopology:
		return state.EventTopology, true
	case TagAuxSource:
		return state.EventAux, true
	case TagDskSources, TagDskTie, TagDskStatus:
		return state.EventDsk, true
	case TagFadeToBlackStatus:
		return state.EventFtb, true
	case TagInputProperty:
		return state.EventInputProperties, true
	case TagKeyerBorder, TagKeyerOnAir, TagKeyerKeyFrameState:
		return state.EventUsk, true
	case TagKeyerDVE:
		return state.EventUskDve, true
	case TagMediaPlayerSource:
		return state.EventMediaPlayer, true
	case TagMediaPoolFrame, TagMediaPoolConfig:
		return state.EventMediaPool, true
	case TagProgramInput, TagPreviewInput:
		return state.EventSource, true
	case TagStreamStatus:
		return state.EventStream, true
	case TagTransitionPosition:
		return state.EventTransitionPosition, true
	case TagTransitionStyle:
		return state.EventTransitionState, true
	default:
		return 0, false
	}
}

func requireLen(body []byte, n int, tag string) error {
	if len(body) < n {
		return fmt.Errorf("atem: %s body too short: %d bytes, want at least %d", tag, len(body), n)
	}
	return nil
}

func u16(b []byte) uint16 { return binary.BigEndian.Uint16(b) }
func i16(b []byte) int16  { return int16(binary.BigEndian.Uint16(b)) }
func i32(b []byte) int32  { return int32(binary.BigEndian.Uint32(b)) }

// cleanString trims trailing NUL padding and any bytes after the first NUL.
func cleanString(b []byte) string {
	if i := strings.IndexByte(string(b), 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

type versionDelta struct{ v state.ProtocolVersion }

func decodeVersion(b []byte) (state.Delta, error) {
	if err := requireLen(b, 4, "_ver"); err != nil {
		return nil, err
	}
	return versionDelta{state.ProtocolVersion{Major: u16(b[0:2]), Minor: u16(b[2:4])}}, nil
}
func (d versionDelta) Apply(m *state.Mirror, id int16) bool { return m.SetVersion(id, d.v) }

type productIDDelta struct{ name string }

func decodeProductID(b []byte) (state.Delta, error) {
	if len(b) > 44 {
		b = b[:44]
	}
	return productIDDelta{cleanString(b)}, nil
}
func (d productIDDelta) Apply(m *state.Mirror, id int16) bool { return m.SetProductID(id, d.name) }

type topologyDelta struct{ t state.Topology }

func decodeTopology(b []byte) (state.Delta, error) {
	if err := requireLen(b, 12, "_top"); err != nil {
		return nil, err
	}
	t := state.Topology{
		MEs:          b[0],
		Sources:      b[1],
		DSKs:         b[2],
		AuxBuses:     b[3],
		MixMinuses:   b[4],
		MediaPlayers: b[5],
		Multiviewers: b[6],
		RS485Ports:   b[7],
		Hyperdecks:   b[8],
		DVEs:         b[9],
		Stingers:     b[10],
		SuperSources: b[11],
	}
	if len(b) > 13 {
		t.TalkbackChans = b[13]
	}
	if len(b) > 18 {
		t.CameraControls = b[18]
	}
	return topologyDelta{t}, nil
}
func (d topologyDelta) Apply(m *state.Mirror, id int16) bool { return m.SetTopology(id, d.t) }

type mixEffectConfigDelta struct {
	me        int
	numKeyers int
}

func decodeMixEffectConfig(b []byte) (state.Delta, error) {
	if err := requireLen(b, 2, "_MeC"); err != nil {
		return nil, err
	}
	return mixEffectConfigDelta{me: int(b[0]), numKeyers: int(b[1])}, nil
}
func (d mixEffectConfigDelta) Apply(m *state.Mirror, id int16) bool {
	return m.SetMixEffectKeyerCount(id, d.me, d.numKeyers)
}

type mediaPoolConfigDelta struct{ c state.MediaPlayerCounts }

func decodeMediaPoolConfig(b []byte) (state.Delta, error) {
	if err := requireLen(b, 2, "_mpl"); err != nil {
		return nil, err
	}
	return mediaPoolConfigDelta{state.MediaPlayerCounts{Stills: b[0], Clips: b[1]}}, nil
}
func (d mediaPoolConfigDelta) Apply(m *state.Mirror, id int16) bool {
	return m.SetMediaPlayerCounts(id, d.c)
}

type auxSourceDelta struct {
	channel int
	source  state.Source
}

func decodeAuxSource(b []byte) (state.Delta, error) {
	if err := requireLen(b, 4, "AuxS"); err != nil {
		return nil, err
	}
	return auxSourceDelta{channel: int(b[0]), source: state.Source(u16(b[2:4]))}, nil
}
func (d auxSourceDelta) Apply(m *state.Mirror, id int16) bool {
	return m.SetAux(id, d.channel, d.source)
}

type dskSourcesDelta struct {
	keyer int
	s     state.DskSources
}

func decodeDskSources(b []byte) (state.Delta, error) {
	if err := requireLen(b, 6, "DskB"); err != nil {
		return nil, err
	}
	return dskSourcesDelta{keyer: int(b[0]), s: state.DskSources{
		Fill: state.Source(u16(b[2:4])),
		Key:  state.Source(u16(b[4:6])),
	}}, nil
}
func (d dskSourcesDelta) Apply(m *state.Mirror, id int16) bool {
	return m.SetDskSources(id, d.keyer, d.s)
}

type dskTieDelta struct {
	keyer int
	tie   bool
}

func decodeDskTie(b []byte) (state.Delta, error) {
	if err := requireLen(b, 2, "DskP"); err != nil {
		return nil, err
	}
	return dskTieDelta{keyer: int(b[0]), tie: b[1] != 0}, nil
}
func (d dskTieDelta) Apply(m *state.Mirror, id int16) bool { return m.SetDskTie(id, d.keyer, d.tie) }

type dskStatusDelta struct {
	keyer int
	s     state.DskStatus
}

func decodeDskStatus(b []byte) (state.Delta, error) {
	if err := requireLen(b, 4, "DskS"); err != nil {
		return nil, err
	}
	return dskStatusDelta{keyer: int(b[0]), s: state.DskStatus{
		OnAir:          b[1] != 0,
		InTransition:   b[2] != 0,
		AutoInProgress: b[3] != 0,
	}}, nil
}
func (d dskStatusDelta) Apply(m *state.Mirror, id int16) bool {
	return m.SetDskStatus(id, d.keyer, d.s)
}

type fadeToBlackStatusDelta struct {
	me int
	s  state.FadeToBlackState
}

func decodeFadeToBlackStatus(b []byte) (state.Delta, error) {
	if err := requireLen(b, 3, "FtbS"); err != nil {
		return nil, err
	}
	return fadeToBlackStatusDelta{me: int(b[0]), s: state.FadeToBlackState{
		FullyBlack:   b[1] != 0,
		InTransition: b[2] != 0,
	}}, nil
}
func (d fadeToBlackStatusDelta) Apply(m *state.Mirror, id int16) bool {
	return m.SetFadeToBlack(id, d.me, d.s)
}

type inputPropertyDelta struct{ p state.InputProperty }

func decodeInputProperty(b []byte) (state.Delta, error) {
	if err := requireLen(b, 26, "InPr"); err != nil {
		return nil, err
	}
	return inputPropertyDelta{state.InputProperty{
		Source:    state.Source(u16(b[0:2])),
		LongName:  cleanString(b[2:22]),
		ShortName: cleanString(b[22:26]),
	}}, nil
}
func (d inputPropertyDelta) Apply(m *state.Mirror, id int16) bool {
	return m.SetInputProperty(id, d.p)
}

type keyerBorderDelta struct {
	me, keyer int
	b         state.KeyerBorder
}

func decodeKeyerBorder(b []byte) (state.Delta, error) {
	if err := requireLen(b, 20, "KeBP"); err != nil {
		return nil, err
	}
	return keyerBorderDelta{me: int(b[0]), keyer: int(b[1]), b: state.KeyerBorder{
		Type:   state.KeyType(b[2]),
		Fill:   state.Source(u16(b[6:8])),
		Key:    state.Source(u16(b[8:10])),
		Top:    i16(b[12:14]),
		Bottom: i16(b[14:16]),
		Left:   i16(b[16:18]),
		Right:  i16(b[18:20]),
	}}, nil
}
func (d keyerBorderDelta) Apply(m *state.Mirror, id int16) bool {
	return m.SetUskBorder(id, d.me, d.keyer, d.b)
}

type keyerDVEDelta struct {
	me, keyer int
	props     state.DveProperties
}

func decodeKeyerDVE(b []byte) (state.Delta, error) {
	if err := requireLen(b, 24, "KeDV"); err != nil {
		return nil, err
	}
	return keyerDVEDelta{me: int(b[0]), keyer: int(b[1]), props: state.DveProperties{
		SizeX:     i32(b[4:8]),
		SizeY:     i32(b[8:12]),
		PositionX: i32(b[12:16]),
		PositionY: i32(b[16:20]),
		Rotation:  i32(b[20:24]),
	}}, nil
}
func (d keyerDVEDelta) Apply(m *state.Mirror, id int16) bool {
	return m.SetUskDVE(id, d.me, d.keyer, d.props)
}

type keyerKeyFrameStateDelta struct {
	me, keyer int
	kf        state.KeyFrameState
}

func decodeKeyerKeyFrameState(b []byte) (state.Delta, error) {
	if err := requireLen(b, 7, "KeFS"); err != nil {
		return nil, err
	}
	return keyerKeyFrameStateDelta{me: int(b[0]), keyer: int(b[1]), kf: state.KeyFrameState{AtKeyFrame: b[6]}}, nil
}
func (d keyerKeyFrameStateDelta) Apply(m *state.Mirror, id int16) bool {
	return m.SetUskKeyFrame(id, d.me, d.keyer, d.kf)
}

type keyerOnAirDelta struct {
	me, keyer int
	onAir     bool
}

func decodeKeyerOnAir(b []byte) (state.Delta, error) {
	if err := requireLen(b, 3, "KeOn"); err != nil {
		return nil, err
	}
	return keyerOnAirDelta{me: int(b[0]), keyer: int(b[1]), onAir: b[2] != 0}, nil
}
func (d keyerOnAirDelta) Apply(m *state.Mirror, id int16) bool {
	return m.SetUskOnAir(id, d.me, d.keyer, d.onAir)
}

type mediaPlayerSourceDelta struct {
	player int
	src    state.MediaPlayerSource
}

func decodeMediaPlayerSource(b []byte) (state.Delta, error) {
	if err := requireLen(b, 4, "MPCE"); err != nil {
		return nil, err
	}
	return mediaPlayerSourceDelta{player: int(b[0]), src: state.MediaPlayerSource{
		Type:  b[1],
		Still: b[2],
		Clip:  b[3],
	}}, nil
}
func (d mediaPlayerSourceDelta) Apply(m *state.Mirror, id int16) bool {
	return m.SetMediaPlayerSource(id, d.player, d.src)
}

type mediaPoolFrameDelta struct {
	index uint16
	frame state.MediaPoolFrame
}

func decodeMediaPoolFrame(b []byte) (state.Delta, error) {
	if err := requireLen(b, 24, "MPfe"); err != nil {
		return nil, err
	}
	if b[0] != 0 { // only stills (type==0) are modeled
		return nil, nil
	}
	index := u16(b[1:3])
	inUse := b[4] != 0
	nameLen := int(b[23])
	name := ""
	if len(b) >= 24+nameLen {
		name = string(b[24 : 24+nameLen])
	}
	return mediaPoolFrameDelta{index: index, frame: state.MediaPoolFrame{InUse: inUse, Name: name}}, nil
}
func (d mediaPoolFrameDelta) Apply(m *state.Mirror, id int16) bool {
	return m.SetMediaPoolStill(id, d.index, d.frame)
}

type programInputDelta struct {
	me     int
	source state.Source
}

func decodeProgramInput(b []byte) (state.Delta, error) {
	if err := requireLen(b, 4, "PrgI"); err != nil {
		return nil, err
	}
	return programInputDelta{me: int(b[0]), source: state.Source(u16(b[2:4]))}, nil
}
func (d programInputDelta) Apply(m *state.Mirror, id int16) bool {
	return m.SetProgram(id, d.me, d.source)
}

type previewInputDelta struct {
	me     int
	source state.Source
}

func decodePreviewInput(b []byte) (state.Delta, error) {
	if err := requireLen(b, 4, "PrvI"); err != nil {
		return nil, err
	}
	return previewInputDelta{me: int(b[0]), source: state.Source(u16(b[2:4]))}, nil
}
func (d previewInputDelta) Apply(m *state.Mirror, id int16) bool {
	return m.SetPreview(id, d.me, d.source)
}

type streamStatusDelta struct{ s state.StreamState }

func decodeStreamStatus(b []byte) (state.Delta, error) {
	if len(b) != 4 {
		return nil, fmt.Errorf("atem: StRS body length %d, want exactly 4", len(b))
	}
	return streamStatusDelta{state.StreamState(b[1])}, nil
}
func (d streamStatusDelta) Apply(m *state.Mirror, id int16) bool { return m.SetStreamState(id, d.s) }

type transitionPositionDelta struct {
	me  int
	pos state.TransitionPosition
}

func decodeTransitionPosition(b []byte) (state.Delta, error) {
	if err := requireLen(b, 6, "TrPs"); err != nil {
		return nil, err
	}
	return transitionPositionDelta{me: int(b[0]), pos: state.TransitionPosition{
		InTransition: b[1]&0x01 != 0,
		Position:     u16(b[4:6]),
	}}, nil
}
func (d transitionPositionDelta) Apply(m *state.Mirror, id int16) bool {
	return m.SetTransitionPosition(id, d.me, d.pos)
}

type transitionStyleDelta struct {
	me    int
	style state.TransitionStyle
}

func decodeTransitionStyle(b []byte) (state.Delta, error) {
	if err := requireLen(b, 3, "TrSS"); err != nil {
		return nil, err
	}
	return transitionStyleDelta{me: int(b[0]), style: state.TransitionStyle{
		Style: state.Style(b[1]),
		Next:  state.StyleMask(b[2]),
	}}, nil
}
func (d transitionStyleDelta) Apply(m *state.Mirror, id int16) bool {
	return m.SetTransitionStyle(id, d.me, d.style)
}
