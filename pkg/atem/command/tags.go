// Package command implements the codec between raw command TLVs and typed
// state deltas / outbound commands.
package command

// Inbound command tags, one per decodable state-changing command the
// switcher sends.
var (
	TagVersion            = tag("_ver")
	TagProductID          = tag("_pin")
	TagTopology           = tag("_top")
	TagMixEffectConfig    = tag("_MeC")
	TagMediaPoolConfig    = tag("_mpl")
	TagAuxSource          = tag("AuxS")
	TagDskSources         = tag("DskB")
	TagDskTie             = tag("DskP")
	TagDskStatus          = tag("DskS")
	TagFadeToBlackStatus  = tag("FtbS")
	TagInputProperty      = tag("InPr")
	TagKeyerBorder        = tag("KeBP")
	TagKeyerDVE           = tag("KeDV")
	TagKeyerKeyFrameState = tag("KeFS")
	TagKeyerOnAir         = tag("KeOn")
	TagMediaPlayerSource  = tag("MPCE")
	TagMediaPoolFrame     = tag("MPfe")
	TagProgramInput       = tag("PrgI")
	TagPreviewInput       = tag("PrvI")
	TagStreamStatus       = tag("StRS")
	TagTransitionPosition = tag("TrPs")
	TagTransitionStyle    = tag("TrSS")
)

// Outbound command tags, one per command this package can encode.
var (
	TagCut                    = tag("DCut")
	TagAuto                   = tag("DAut")
	TagFadeToBlackAuto        = tag("FtbA")
	TagSetTransitionStyle     = tag("CTTp")
	TagSetTransitionPosition  = tag("CTPs")
	TagSetProgramInput        = tag("CPgI")
	TagSetPreviewInput        = tag("CPvI")
	TagSetAux                 = tag("CAuS")
	TagSetDskSources          = tag("CDsL")
	TagSetDskTie              = tag("CDsT")
	TagSetDskAuto             = tag("DDsA")
	TagSetUskFill             = tag("CKeF")
	TagSetUskOnAir            = tag("CKOn")
	TagSetUskType             = tag("CKTp")
	TagSetUskDVE              = tag("CKDV")
	TagSetUskKeyFrameProps    = tag("CKFP")
	TagRunUskKeyFrame         = tag("RFlK")
	TagSetMediaPlayerSource   = tag("MPCE")
	TagSaveStartupState       = tag("CSTM")
)

func tag(s string) [4]byte {
	var t [4]byte
	copy(t[:], s)
	return t
}
