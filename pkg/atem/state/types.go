// Package state holds the typed, last-writer-wins mirror of switcher state
// built up from decoded commands.
package state

// Source identifies a video source by the switcher's fixed numbering. The
// numeric values match the values the switcher itself uses on the wire, so
// a Source read off a command body needs no translation.
type Source uint16

const (
	Black Source = 0

	Input1  Source = 1
	Input2  Source = 2
	Input3  Source = 3
	Input4  Source = 4
	Input5  Source = 5
	Input6  Source = 6
	Input7  Source = 7
	Input8  Source = 8
	Input9  Source = 9
	Input10 Source = 10
	Input11 Source = 11
	Input12 Source = 12
	Input13 Source = 13
	Input14 Source = 14
	Input15 Source = 15
	Input16 Source = 16
	Input17 Source = 17
	Input18 Source = 18
	Input19 Source = 19
	Input20 Source = 20
	Input21 Source = 21
	Input22 Source = 22
	Input23 Source = 23
	Input24 Source = 24
	Input25 Source = 25
	Input26 Source = 26
	Input27 Source = 27
	Input28 Source = 28
	Input29 Source = 29
	Input30 Source = 30
	Input31 Source = 31
	Input32 Source = 32
	Input33 Source = 33
	Input34 Source = 34
	Input35 Source = 35
	Input36 Source = 36
	Input37 Source = 37
	Input38 Source = 38
	Input39 Source = 39
	Input40 Source = 40

	ColorBars Source = 1000

	ColorGen1 Source = 2001
	ColorGen2 Source = 2002

	MediaPlayer1    Source = 3010
	MediaPlayer1Key Source = 3011
	MediaPlayer2    Source = 3020
	MediaPlayer2Key Source = 3021

	UpstreamKey1 Source = 4010
	UpstreamKey2 Source = 4020
	UpstreamKey3 Source = 4030
	UpstreamKey4 Source = 4040

	DownstreamKey1Mask Source = 5010
	DownstreamKey2Mask Source = 5020

	SuperSource Source = 6000

	CleanFeed1 Source = 7001
	CleanFeed2 Source = 7002

	Aux1  Source = 8001
	Aux2  Source = 8002
	Aux3  Source = 8003
	Aux4  Source = 8004
	Aux5  Source = 8005
	Aux6  Source = 8006
	Aux7  Source = 8007
	Aux8  Source = 8008
	Aux9  Source = 8009
	Aux10 Source = 8010
	Aux11 Source = 8011
	Aux12 Source = 8012
	Aux13 Source = 8013
	Aux14 Source = 8014
	Aux15 Source = 8015
	Aux16 Source = 8016
	Aux17 Source = 8017
	Aux18 Source = 8018
	Aux19 Source = 8019
	Aux20 Source = 8020
	Aux21 Source = 8021
	Aux22 Source = 8022
	Aux23 Source = 8023
	Aux24 Source = 8024

	Multiview1 Source = 9001
	Multiview2 Source = 9002
	Multiview3 Source = 9003
	Multiview4 Source = 9004

	ME1Program Source = 10010
	ME1Preview Source = 10011
	ME2Program Source = 10020
	ME2Preview Source = 10021
	ME3Program Source = 10030
	ME3Preview Source = 10031
	ME4Program Source = 10040
	ME4Preview Source = 10041
)

// ProtocolVersion is the switcher's protocol major.minor pair, reported by
// the _ver command and consulted by version-gated encoders/decoders.
type ProtocolVersion struct {
	Major uint16
	Minor uint16
}

// AtLeast reports whether v is equal to or newer than major.minor.
func (v ProtocolVersion) AtLeast(major, minor uint16) bool {
	if v.Major != major {
		return v.Major > major
	}
	return v.Minor >= minor
}

// Topology describes the switcher's fixed hardware shape, reported once by
// the _top command and used to size every per-ME and per-aux slice.
type Topology struct {
	MEs            uint8
	Sources        uint8
	DSKs           uint8
	AuxBuses       uint8
	MixMinuses     uint8
	MediaPlayers   uint8
	Multiviewers   uint8
	RS485Ports     uint8
	Hyperdecks     uint8
	DVEs           uint8
	Stingers       uint8
	SuperSources   uint8
	TalkbackChans  uint8
	CameraControls uint8
}

// InputProperty carries the human-facing name of a source.
type InputProperty struct {
	Source    Source
	LongName  string
	ShortName string
}

// TransitionPosition is the per-ME transition bar state.
type TransitionPosition struct {
	InTransition bool
	Position     uint16
}

// TransitionStyle is the per-ME configured transition style and style-to-
// apply-next selection.
type TransitionStyle struct {
	Style Style
	Next  StyleMask
}

// Style enumerates the switcher's transition styles.
type Style uint8

const (
	StyleMix  Style = 0
	StyleDip  Style = 1
	StyleWipe Style = 2
	StyleSting Style = 3
	StyleDVE  Style = 4
)

// StyleMask is a bitmask over the five Style values, used by TrSS's "next"
// field to indicate which style the next transition will use.
type StyleMask uint8

// DveProperties is the per-ME-per-keyer flying-key geometry.
type DveProperties struct {
	SizeX    int32
	SizeY    int32
	PositionX int32
	PositionY int32
	Rotation int32
}

// StreamState is the switcher's streaming-output status, reported by StRS.
type StreamState uint8

const (
	StreamIdle      StreamState = 1
	StreamStarting  StreamState = 2
	StreamStreaming StreamState = 4
)

// KeyType enumerates upstream-keyer compositing modes.
type KeyType uint8

const (
	KeyTypeLuma   KeyType = 0
	KeyTypeChroma KeyType = 1
	KeyTypePattern KeyType = 2
	KeyTypeDVE    KeyType = 3
)

// KeyerBorder is the per-keyer border/pattern geometry reported by KeBP.
type KeyerBorder struct {
	Type      KeyType
	Fill      Source
	Key       Source
	Top       int16
	Bottom    int16
	Left      int16
	Right     int16
}

// KeyFrameState reports which, if any, DVE key-frame a keyer currently
// matches, from KeFS.
type KeyFrameState struct {
	AtKeyFrame uint8
}

// DskSources is the fill/key source pair for a downstream keyer, from DskB.
type DskSources struct {
	Fill Source
	Key  Source
}

// DskStatus is a downstream keyer's on-air/transition state, from DskS.
type DskStatus struct {
	OnAir          bool
	InTransition   bool
	AutoInProgress bool
}

// FadeToBlackState is a mix-effect's fade-to-black status, from FtbS.
type FadeToBlackState struct {
	FullyBlack   bool
	InTransition bool
}

// MediaPlayerCounts is the still/clip capacity of the media pool, from _mpl.
type MediaPlayerCounts struct {
	Stills uint8
	Clips  uint8
}

// MediaPlayerSource is a media player's currently selected still/clip slot,
// from MPCE.
type MediaPlayerSource struct {
	Type  uint8
	Still uint8
	Clip  uint8
}

// MediaPoolFrame describes one still stored in the media pool, from MPfe.
type MediaPoolFrame struct {
	InUse bool
	Name  string
}
