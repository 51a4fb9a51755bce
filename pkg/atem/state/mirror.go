package state

import "sync"

// Keyer is the per-ME, per-upstream-keyer state.
type Keyer struct {
	OnAir     Field[bool]
	Fill      Field[Source]
	Type      Field[KeyType]
	Border    Field[KeyerBorder]
	DVE       Field[DveProperties]
	KeyFrame  Field[KeyFrameState]
}

// MixEffect is the per-mix-effect-bus state.
type MixEffect struct {
	Program          Field[Source]
	Preview          Field[Source]
	Transition       Field[TransitionPosition]
	TransitionStyle  Field[TransitionStyle]
	FadeToBlack      Field[FadeToBlackState]
	Keyers           []Keyer
}

// DSK is the per-downstream-keyer state.
type DSK struct {
	Sources Field[DskSources]
	Tie     Field[bool]
	Status  Field[DskStatus]
}

// MediaPlayer is the per-media-player state.
type MediaPlayer struct {
	Source Field[MediaPlayerSource]
}

// Mirror is the typed, last-writer-wins model of switcher state built up
// from decoded commands. Apply, Reset and the getters are safe for
// concurrent use; the Set* methods take no lock of their own and are
// serialized only when reached through Apply.
//
// Grounded on the reference implementation's Atem class member state
// (prg_inp_, prv_inp_, trps_, aux_inp_, usk_on_air_, dve_, input_properties_)
// generalized from parallel raw-pointer arrays into named, topology-sized
// slices of Field[T].
type Mirror struct {
	mu sync.RWMutex

	version  Field[ProtocolVersion]
	product  Field[string]
	topology Field[Topology]
	counts   Field[MediaPlayerCounts]

	mixEffects []MixEffect
	auxBuses   []Field[Source]
	dsks       []DSK
	players    []MediaPlayer

	inputProperties map[Source]*Field[InputProperty]
	mediaPoolStills map[uint16]*Field[MediaPoolFrame]

	streamState Field[StreamState]
}

// NewMirror returns an empty Mirror. It holds no topology-sized state until
// a Topology delta has been applied.
func NewMirror() *Mirror {
	return &Mirror{
		inputProperties: make(map[Source]*Field[InputProperty]),
		mediaPoolStills: make(map[uint16]*Field[MediaPoolFrame]),
	}
}

// Delta is anything the ingest loop can apply to a Mirror under one packet
// id. Concrete implementations live in the command package, each wrapping
// one decoded command body.
type Delta interface {
	Apply(m *Mirror, packetID int16) bool
}

// Apply applies delta under packetID's last-writer-wins ordering and
// reports whether the delta changed the mirror.
func (m *Mirror) Apply(delta Delta, packetID int16) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return delta.Apply(m, packetID)
}

// Reset clears all state, used when a session is declared dead and a fresh
// handshake is about to begin.
func (m *Mirror) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.version = Field[ProtocolVersion]{}
	m.product = Field[string]{}
	m.topology = Field[Topology]{}
	m.counts = Field[MediaPlayerCounts]{}
	m.mixEffects, m.auxBuses, m.dsks, m.players = nil, nil, nil, nil
	m.inputProperties = make(map[Source]*Field[InputProperty])
	m.mediaPoolStills = make(map[uint16]*Field[MediaPoolFrame])
	m.streamState = Field[StreamState]{}
}

// --- topology and identity ---

// SetVersion records the protocol version reported by _ver.
func (m *Mirror) SetVersion(id int16, v ProtocolVersion) bool { return m.version.Set(id, v) }

// Version returns the protocol version, if known.
func (m *Mirror) Version() (ProtocolVersion, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version.Get()
}

// SetProductID records the product name reported by _pin.
func (m *Mirror) SetProductID(id int16, name string) bool { return m.product.Set(id, name) }

// ProductID returns the switcher's product name, if known.
func (m *Mirror) ProductID() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.product.Get()
}

// SetTopology records the hardware shape reported by _top and resizes
// every topology-sized slice to match, preserving any entry whose index
// remains in range.
func (m *Mirror) SetTopology(id int16, top Topology) bool {
	if !m.topology.Set(id, top) {
		return false
	}

	m.mixEffects = resizePreserving(m.mixEffects, int(top.MEs))
	m.auxBuses = resizePreserving(m.auxBuses, int(top.AuxBuses))
	m.dsks = resizePreserving(m.dsks, int(top.DSKs))
	m.players = resizePreserving(m.players, int(top.MediaPlayers))
	return true
}

// resizePreserving returns a slice of length n, copying forward every
// element of cur whose index is still in range. Grown slots are the zero
// value; shrunk entries are simply not copied.
func resizePreserving[T any](cur []T, n int) []T {
	next := make([]T, n)
	copy(next, cur)
	return next
}

// Topology returns the switcher's hardware shape, if known.
func (m *Mirror) Topology() (Topology, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.topology.Get()
}

// SetMixEffectKeyerCount records a mix-effect's upstream-keyer count,
// reported by _MeC, and sizes its Keyers slice.
func (m *Mirror) SetMixEffectKeyerCount(id int16, me int, numKeyers int) bool {
	if me >= len(m.mixEffects) {
		return false
	}
	if len(m.mixEffects[me].Keyers) != numKeyers {
		m.mixEffects[me].Keyers = make([]Keyer, numKeyers)
	}
	return true
}

// SetMediaPlayerCounts records the media pool's still/clip capacity,
// reported by _mpl. The player slice is sized only by SetTopology.
func (m *Mirror) SetMediaPlayerCounts(id int16, counts MediaPlayerCounts) bool {
	return m.counts.Set(id, counts)
}

// --- program / preview / transition ---

// SetProgram records a mix-effect's program input, from PrgI.
func (m *Mirror) SetProgram(id int16, me int, source Source) bool {
	if me >= len(m.mixEffects) {
		return false
	}
	return m.mixEffects[me].Program.Set(id, source)
}

// Program returns a mix-effect's program input, if known.
func (m *Mirror) Program(me int) (Source, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if me >= len(m.mixEffects) {
		return 0, false
	}
	return m.mixEffects[me].Program.Get()
}

// SetPreview records a mix-effect's preview input, from PrvI.
func (m *Mirror) SetPreview(id int16, me int, source Source) bool {
	if me >= len(m.mixEffects) {
		return false
	}
	return m.mixEffects[me].Preview.Set(id, source)
}

// Preview returns a mix-effect's preview input, if known.
func (m *Mirror) Preview(me int) (Source, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if me >= len(m.mixEffects) {
		return 0, false
	}
	return m.mixEffects[me].Preview.Get()
}

// SetTransitionPosition records a mix-effect's transition bar state, from
// TrPs.
func (m *Mirror) SetTransitionPosition(id int16, me int, pos TransitionPosition) bool {
	if me >= len(m.mixEffects) {
		return false
	}
	return m.mixEffects[me].Transition.Set(id, pos)
}

// TransitionPosition returns a mix-effect's transition bar state, if known.
func (m *Mirror) TransitionPosition(me int) (TransitionPosition, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if me >= len(m.mixEffects) {
		return TransitionPosition{}, false
	}
	return m.mixEffects[me].Transition.Get()
}

// SetTransitionStyle records a mix-effect's configured transition style,
// from TrSS.
func (m *Mirror) SetTransitionStyle(id int16, me int, style TransitionStyle) bool {
	if me >= len(m.mixEffects) {
		return false
	}
	return m.mixEffects[me].TransitionStyle.Set(id, style)
}

// TransitionStyle returns a mix-effect's configured transition style, if
// known.
func (m *Mirror) TransitionStyle(me int) (TransitionStyle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if me >= len(m.mixEffects) {
		return TransitionStyle{}, false
	}
	return m.mixEffects[me].TransitionStyle.Get()
}

// SetFadeToBlack records a mix-effect's fade-to-black status, from FtbS.
func (m *Mirror) SetFadeToBlack(id int16, me int, s FadeToBlackState) bool {
	if me >= len(m.mixEffects) {
		return false
	}
	return m.mixEffects[me].FadeToBlack.Set(id, s)
}

// FadeToBlack returns a mix-effect's fade-to-black status, if known.
func (m *Mirror) FadeToBlack(me int) (FadeToBlackState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if me >= len(m.mixEffects) {
		return FadeToBlackState{}, false
	}
	return m.mixEffects[me].FadeToBlack.Get()
}

// --- upstream keyers ---

// SetUskOnAir records one upstream keyer's on-air state, from KeOn.
func (m *Mirror) SetUskOnAir(id int16, me, keyer int, onAir bool) bool {
	if me >= len(m.mixEffects) || keyer >= len(m.mixEffects[me].Keyers) {
		return false
	}
	return m.mixEffects[me].Keyers[keyer].OnAir.Set(id, onAir)
}

// UskOnAir returns one upstream keyer's on-air state, if known.
func (m *Mirror) UskOnAir(me, keyer int) (bool, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if me >= len(m.mixEffects) || keyer >= len(m.mixEffects[me].Keyers) {
		return false, false
	}
	return m.mixEffects[me].Keyers[keyer].OnAir.Get()
}

// SetUskBorder records one upstream keyer's type/border/source properties,
// from KeBP.
func (m *Mirror) SetUskBorder(id int16, me, keyer int, b KeyerBorder) bool {
	if me >= len(m.mixEffects) || keyer >= len(m.mixEffects[me].Keyers) {
		return false
	}
	k := &m.mixEffects[me].Keyers[keyer]
	changed := k.Type.Set(id, b.Type)
	return k.Border.Set(id, b) || changed
}

// UskBorder returns one upstream keyer's type/border/source properties, if
// known.
func (m *Mirror) UskBorder(me, keyer int) (KeyerBorder, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if me >= len(m.mixEffects) || keyer >= len(m.mixEffects[me].Keyers) {
		return KeyerBorder{}, false
	}
	return m.mixEffects[me].Keyers[keyer].Border.Get()
}

// SetUskDVE records one upstream keyer's flying-key geometry, from KeDV.
func (m *Mirror) SetUskDVE(id int16, me, keyer int, props DveProperties) bool {
	if me >= len(m.mixEffects) || keyer >= len(m.mixEffects[me].Keyers) {
		return false
	}
	return m.mixEffects[me].Keyers[keyer].DVE.Set(id, props)
}

// UskDVE returns one upstream keyer's flying-key geometry, if known.
func (m *Mirror) UskDVE(me, keyer int) (DveProperties, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if me >= len(m.mixEffects) || keyer >= len(m.mixEffects[me].Keyers) {
		return DveProperties{}, false
	}
	return m.mixEffects[me].Keyers[keyer].DVE.Get()
}

// SetUskKeyFrame records one upstream keyer's key-frame match state, from
// KeFS.
func (m *Mirror) SetUskKeyFrame(id int16, me, keyer int, kf KeyFrameState) bool {
	if me >= len(m.mixEffects) || keyer >= len(m.mixEffects[me].Keyers) {
		return false
	}
	return m.mixEffects[me].Keyers[keyer].KeyFrame.Set(id, kf)
}

// --- aux, DSK, media pool ---

// SetAux records an aux bus's source, from AuxS.
func (m *Mirror) SetAux(id int16, channel int, source Source) bool {
	if channel >= len(m.auxBuses) {
		return false
	}
	return m.auxBuses[channel].Set(id, source)
}

// Aux returns an aux bus's source, if known.
func (m *Mirror) Aux(channel int) (Source, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if channel >= len(m.auxBuses) {
		return 0, false
	}
	return m.auxBuses[channel].Get()
}

// SetDskSources records a downstream keyer's fill/key sources, from DskB.
func (m *Mirror) SetDskSources(id int16, keyer int, s DskSources) bool {
	if keyer >= len(m.dsks) {
		return false
	}
	return m.dsks[keyer].Sources.Set(id, s)
}

// SetDskTie records a downstream keyer's tie-to-transition flag, from DskP.
func (m *Mirror) SetDskTie(id int16, keyer int, tie bool) bool {
	if keyer >= len(m.dsks) {
		return false
	}
	return m.dsks[keyer].Tie.Set(id, tie)
}

// SetDskStatus records a downstream keyer's on-air/transition status, from
// DskS.
func (m *Mirror) SetDskStatus(id int16, keyer int, s DskStatus) bool {
	if keyer >= len(m.dsks) {
		return false
	}
	return m.dsks[keyer].Status.Set(id, s)
}

// DskStatus returns a downstream keyer's on-air/transition status, if
// known.
func (m *Mirror) DskStatus(keyer int) (DskStatus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if keyer >= len(m.dsks) {
		return DskStatus{}, false
	}
	return m.dsks[keyer].Status.Get()
}

// SetInputProperty records a source's display name, from InPr.
func (m *Mirror) SetInputProperty(id int16, prop InputProperty) bool {
	f, ok := m.inputProperties[prop.Source]
	if !ok {
		f = &Field[InputProperty]{}
		m.inputProperties[prop.Source] = f
	}
	return f.Set(id, prop)
}

// InputProperty returns a source's display name, if known.
func (m *Mirror) InputProperty(source Source) (InputProperty, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.inputProperties[source]
	if !ok {
		return InputProperty{}, false
	}
	return f.Get()
}

// SetMediaPlayerSource records a media player's selected slot, from MPCE.
func (m *Mirror) SetMediaPlayerSource(id int16, player int, src MediaPlayerSource) bool {
	if player >= len(m.players) {
		return false
	}
	return m.players[player].Source.Set(id, src)
}

// MediaPlayerSource returns a media player's selected slot, if known.
func (m *Mirror) MediaPlayerSource(player int) (MediaPlayerSource, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if player >= len(m.players) {
		return MediaPlayerSource{}, false
	}
	return m.players[player].Source.Get()
}

// SetMediaPoolStill records one still's name/usage, from MPfe.
func (m *Mirror) SetMediaPoolStill(id int16, index uint16, frame MediaPoolFrame) bool {
	f, ok := m.mediaPoolStills[index]
	if !ok {
		f = &Field[MediaPoolFrame]{}
		m.mediaPoolStills[index] = f
	}
	return f.Set(id, frame)
}

// MediaPoolFrame returns one still's name/usage, if known.
func (m *Mirror) MediaPoolFrame(index uint16) (MediaPoolFrame, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.mediaPoolStills[index]
	if !ok {
		return MediaPoolFrame{}, false
	}
	return f.Get()
}

// SetStreamState records the streaming-output status, from StRS.
func (m *Mirror) SetStreamState(id int16, s StreamState) bool { return m.streamState.Set(id, s) }

// StreamState returns the streaming-output status, if known.
func (m *Mirror) StreamState() (StreamState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.streamState.Get()
}
