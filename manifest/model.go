// Package manifest parses a Smooth Streaming manifest ([MS-SSTR] §2.2) into
// an in-memory model of streams, quality levels and fragment timelines, and
// expands a stream's fragment-request URL template.
//
// See https://docs.microsoft.com/en-us/openspecs/windows_protocols/ms-sstr
package manifest

import (
	"github.com/go-webdl/encodetype"
	"github.com/google/uuid"
)

// StreamType is the Type attribute of a StreamIndex element.
type StreamType string

const (
	Video StreamType = "video"
	Audio StreamType = "audio"
	Text  StreamType = "text"
)

// DefaultTimeScale is the implicit value of SmoothStreamingMedia's TimeScale
// attribute: 10,000,000 increments per second, i.e. a 100ns tick.
const DefaultTimeScale uint64 = 10000000

// Model is the parsed SmoothStreamingMedia element: metadata required to
// play back the presentation.
type Model struct {
	// MajorVersion and MinorVersion MUST be present; playback proceeds with
	// a logged warning when they are not (2, 0).
	MajorVersion int
	MinorVersion int

	// Duration is the presentation length, in TimeScale increments.
	Duration uint64

	// TimeScale is the number of increments per second for Duration and for
	// every Fragment's duration/start timestamp. Defaults to
	// DefaultTimeScale when the attribute is absent.
	TimeScale uint64

	// IsLive marks a live (growing) presentation rather than an on-demand
	// one.
	IsLive bool

	// LookaheadCount and DVRWindowLength are recognized and stored for
	// diagnostics but never interpreted: trick-mode server extensions are
	// out of scope (see spec Non-goals).
	LookaheadCount  uint32
	DVRWindowLength uint64

	// Streams holds every StreamIndex in manifest order, including text
	// streams, which are modelled but never activated for playback.
	Streams []*Track

	// Protection holds PlayReady protection-header metadata when present.
	// Decryption itself is out of scope; this is recognized and retained
	// only so a caller can detect that content is protected.
	Protection []*ProtectionHeader
}

// ProtectionHeader is one ProtectionElement/ProtectionHeader entry: a
// content-protection system identifier plus its opaque, base64-encoded
// initialization data.
type ProtectionHeader struct {
	SystemID uuid.UUID
	Content  string // base64, as carried in the manifest; never decrypted
}

// Track is a StreamIndex element: one logical media stream (video, audio or
// text) with one or more Qualities and a Fragment timeline.
type Track struct {
	Kind StreamType

	// Index disambiguates streams of the same Kind. Defaults to 0 when the
	// manifest omits it.
	Index int

	// URLTemplate is the session URL's directory joined with the Url
	// attribute; it still carries the literal {bitrate}/{start time}
	// placeholders, expanded per-fragment by ExpandURL.
	URLTemplate string

	// NumberOfFragments is the manifest's Chunks attribute: the number of
	// <c> elements expected. It is informative; Fragments is the source of
	// truth once parsing completes (and grows further on live reload).
	NumberOfFragments uint32

	DisplayWidth, DisplayHeight uint32
	MaxWidth, MaxHeight         uint32
	hasDisplayDims              bool
	hasMaxDims                  bool

	// Qualities holds the QualityLevels in manifest encounter order; each
	// one's Index attribute is kept in Quality.Index (see spec §9 Open
	// Questions: nb_qualities from the manifest is never trusted, only what
	// is actually parsed).
	Qualities []*Quality

	// CurrentQuality is chosen once at Session.Open and held fixed for the
	// play session.
	CurrentQuality int

	// Fragments grows monotonically on live reload; it is never reordered
	// or truncated.
	Fragments []Fragment

	// CurrentFragment is the read cursor: -1 before the first advance().
	CurrentFragment int

	// LastLoadTime is the wall-clock instant, in Unix nanoseconds from the
	// Session's clock, at which this track's manifest was last (re)parsed.
	LastLoadTime int64
}

// HasDisplayDims reports whether DisplayWidth/DisplayHeight were present in
// the manifest.
func (t *Track) HasDisplayDims() bool { return t.hasDisplayDims }

// HasMaxDims reports whether MaxWidth/MaxHeight were present in the
// manifest.
func (t *Track) HasMaxDims() bool { return t.hasMaxDims }

// VideoParams holds the video-specific fields of a Quality.
type VideoParams struct {
	Width, Height       uint32
	MaxWidth, MaxHeight uint32
}

// AudioParams holds the audio-specific fields of a Quality.
type AudioParams struct {
	SampleRate    uint32
	Channels      uint16
	BitsPerSample uint16
	PacketSize    uint32
	AudioTag      uint32
	WaveFormatEx  bool
}

// Quality is a QualityLevel element: one bitrate/codec/resolution
// encoding of a Track.
type Quality struct {
	Index   int
	BitRate uint64

	// FourCC is always lower-cased on store (spec §4.A).
	FourCC string

	// CodecPrivateDataHex is the raw hexadecimal string as it appeared in
	// the manifest (even length is an invariant, checked at parse time).
	CodecPrivateDataHex string

	// CodecPrivateData is CodecPrivateDataHex already hex-decoded, using
	// the teacher's own attribute type (it declares QualityLevel's
	// CodecPrivateData with this type directly on an xml struct tag;
	// here it is assigned once at parse time instead).
	CodecPrivateData encodetype.HexBytes

	// NALUnitLengthField is the manifest's NALUnitLengthField attribute,
	// meaningful only for H.264 tracks; defaults to 4.
	NALUnitLengthField uint16

	IsVideo, IsAudio bool
	Video            *VideoParams
	Audio            *AudioParams

	// OutputStreamID is assigned once the track carrying this Quality is
	// activated by Session.Open.
	OutputStreamID int
}

// Fragment is a <c> element: one contiguous interval of a track's timeline.
type Fragment struct {
	// Index is 1-based when the manifest supplies n; otherwise it is the
	// synthesized running ordinal (spec §4.A).
	Index int

	DurationTicks uint64
	StartTsTicks  uint64
}
