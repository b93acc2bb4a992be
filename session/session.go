// Package session is the Session/FragmentSource/TrackDemuxer/Interleaver/
// SeekEngine component group (spec.md §4.D-H): the streaming state machine
// that sits between the manifest model and the fMP4 fragment reader,
// grounded in original_source/libavformat/smoothstreaming.c's
// read_header/read_packet/seek/close/probe set, since the teacher repo
// (a one-shot downloader, not a player) has no equivalent component.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-webdl/mssclient/codec"
	"github.com/go-webdl/mssclient/fmp4"
	"github.com/go-webdl/mssclient/iobyte"
	"github.com/go-webdl/mssclient/manifest"
	"github.com/go-webdl/mssclient/timebase"
)

// SeekFlags mirrors the handful of AVSEEK_FLAG_* bits spec.md's SeekEngine
// and Interleaver care about. SEEK_BYTE has no Go constant here: it is
// always rejected (spec §4.G), so there is nothing for a caller to set.
type SeekFlags int

const (
	// SeekBackward rounds the translated target down instead of up when it
	// does not land exactly on a tick boundary.
	SeekBackward SeekFlags = 1 << iota
	// SeekAny accepts the first packet at or after the target regardless of
	// keyframe status (spec §4.F).
	SeekAny
)

type seekTargetState struct {
	Ticks int64 // AVTimeBase (microseconds)
	Flags SeekFlags
}

// trackRuntime is the runtime half of a manifest.Track: the demuxer
// pipeline and Interleaver bookkeeping that only exist for the track chosen
// active at Open (spec §3 Track: byte_source/demuxer/lookahead_packet).
type trackRuntime struct {
	track   *manifest.Track
	quality *manifest.Quality
	params  *codec.StreamParams
	source  *FragmentSource
	demuxer *TrackDemuxer

	lookahead *fmp4.Packet
	// startTime is this track's first packet DTS since Open or since the
	// last seek that reset this track, in params.TimeBase units; nil until
	// such a packet is seen (spec §9: "the source
	// subtracts per-stream start_time only when not NOPTS... each track
	// subtracts independently").
	startTime *int64

	isVideo bool
}

// Session is the top-level demuxer object (spec §4.H): it owns the
// manifest model, the active video/audio tracks, and their lifecycle.
type Session struct {
	ManifestURL string
	Source      iobyte.ByteSource
	Logger      *slog.Logger

	Model *manifest.Model

	// DurationMicros is published only for VOD (spec §4.H: "duration =
	// manifest.duration / 10" — manifest ticks are 100ns, so /10 yields
	// microseconds, i.e. AVTimeBase).
	DurationMicros int64
	BitRate        uint64

	FirstTimestamp *int64 // AVTimeBase, nil until the first packet is seen
	SeekTarget     *seekTargetState

	tracks []*trackRuntime

	opened bool
	closed bool

	nowFunc func() time.Time
}

// New constructs a Session against the given ByteSource. A nil logger
// defaults to slog.Default(), matching jmylchreest-tvarr's root-command
// convention (SPEC_FULL.md §7).
func New(source iobyte.ByteSource, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{Source: source, Logger: logger, nowFunc: time.Now}
}

func (s *Session) now() time.Time {
	if s.nowFunc != nil {
		return s.nowFunc()
	}
	return time.Now()
}

func (s *Session) since(lastLoadTimeNanos int64) time.Duration {
	return s.now().Sub(time.Unix(0, lastLoadTimeNanos))
}

func (s *Session) sleepTick(ctx context.Context) error {
	timer := time.NewTimer(fragmentPollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrInterrupted, ctx.Err())
	case <-timer.C:
		return nil
	}
}

// reloadManifest re-fetches and re-parses the manifest, merging the result
// into the existing Model in place (spec §4.D step 4: "overwriting the
// model in place; fragment list may have grown").
func (s *Session) reloadManifest(ctx context.Context) error {
	reader, err := s.Source.Fetch(ctx, s.ManifestURL)
	if err != nil {
		return fmt.Errorf("%w: reload manifest: %v", ErrIO, err)
	}
	defer reader.Close()

	fresh, err := manifest.Parse(reader, s.ManifestURL, s.Logger)
	if err != nil {
		return err
	}

	s.Model.Duration = fresh.Duration
	s.Model.IsLive = fresh.IsLive
	now := s.now().UnixNano()
	for i, t := range s.Model.Streams {
		if i >= len(fresh.Streams) {
			continue
		}
		ft := fresh.Streams[i]
		if added := len(ft.Fragments) - len(t.Fragments); added > 0 {
			t.Fragments = ft.Fragments
			t.NumberOfFragments = ft.NumberOfFragments
			s.Logger.Info("session: manifest reload added fragments", "track", i, "count", added)
		}
		t.LastLoadTime = now
	}
	return nil
}

// Open parses the manifest and activates one video and one audio track
// (spec §4.H).
func (s *Session) Open(ctx context.Context, manifestURL string) error {
	s.ManifestURL = manifestURL

	reader, err := s.Source.Fetch(ctx, manifestURL)
	if err != nil {
		return fmt.Errorf("%w: fetch manifest: %v", ErrIO, err)
	}
	model, err := manifest.Parse(reader, manifestURL, s.Logger)
	reader.Close()
	if err != nil {
		return err
	}

	if len(model.Streams) == 0 {
		return fmt.Errorf("%w: manifest has no streams", manifest.ErrInvalid)
	}

	now := s.now().UnixNano()
	for _, t := range model.Streams {
		t.LastLoadTime = now
	}
	s.Model = model

	videoTrack := firstTrackOfKind(model, manifest.Video)
	audioTrack := firstTrackOfKind(model, manifest.Audio)

	if videoTrack != nil {
		tr, err := s.activateTrack(videoTrack, true)
		if err != nil {
			return err
		}
		s.tracks = append(s.tracks, tr)
	}
	if audioTrack != nil {
		tr, err := s.activateTrack(audioTrack, false)
		if err != nil {
			return err
		}
		s.tracks = append(s.tracks, tr)
	}

	if !model.IsLive {
		s.DurationMicros = int64(model.Duration / 10)
	}

	s.opened = true
	return nil
}

func firstTrackOfKind(model *manifest.Model, kind manifest.StreamType) *manifest.Track {
	for _, t := range model.Streams {
		if t.Kind == kind {
			return t
		}
	}
	return nil
}

// chooseQuality implements the video/audio quality-selection rule of spec
// §4.H: video prefers an exact (width,height) match on DisplayWidth/Height,
// else MaxWidth/Height, else the first quality; audio always takes the
// first quality.
func chooseQuality(t *manifest.Track) int {
	if t.Kind != manifest.Video {
		return 0
	}
	if t.HasDisplayDims() {
		for i, q := range t.Qualities {
			if q.Video != nil && q.Video.Width == t.DisplayWidth && q.Video.Height == t.DisplayHeight {
				return i
			}
		}
	}
	if t.HasMaxDims() {
		for i, q := range t.Qualities {
			if q.Video != nil && q.Video.MaxWidth == t.MaxWidth && q.Video.MaxHeight == t.MaxHeight {
				return i
			}
		}
	}
	return 0
}

func (s *Session) activateTrack(t *manifest.Track, isVideo bool) (*trackRuntime, error) {
	if len(t.Qualities) == 0 {
		return nil, fmt.Errorf("%w: track %d has no QualityLevel", manifest.ErrInvalid, t.Index)
	}
	qi := chooseQuality(t)
	t.CurrentQuality = qi
	quality := t.Qualities[qi]
	quality.OutputStreamID = len(s.tracks)

	params, err := codec.Init(quality, "")
	if err != nil {
		return nil, err
	}
	// Fragment box timestamps (tfdt/trun) are always expressed in the
	// manifest's own TimeScale (MS-SSTR ties fragment timing to the
	// presentation/stream TimeScale, not to a codec-specific clock); the
	// WaveFormatEx path sets params.TimeBase to the sample rate for display
	// purposes only (codec/init.go), so it is overwritten here with the
	// track's actual native time base.
	params.TimeBase = timebase.Rational{Num: 1, Den: int64(timeScaleOf(s.Model))}

	s.BitRate += quality.BitRate

	source := newFragmentSource(s, t)
	demuxer := newTrackDemuxer(source, fmp4.BoxReader{})

	return &trackRuntime{
		track:   t,
		quality: quality,
		params:  params,
		source:  source,
		demuxer: demuxer,
		isVideo: isVideo,
	}, nil
}

func timeScaleOf(m *manifest.Model) uint64 {
	if m.TimeScale == 0 {
		return manifest.DefaultTimeScale
	}
	return m.TimeScale
}

func (s *Session) trackByStreamIndex(streamIndex int) *trackRuntime {
	for _, tr := range s.tracks {
		if tr.quality.OutputStreamID == streamIndex {
			return tr
		}
	}
	return nil
}

// ReadPacket returns the next globally DTS-ordered packet (spec §4.F),
// or ErrEndOfStream once every active track's lookahead is permanently
// empty.
func (s *Session) ReadPacket(ctx context.Context) (*Packet, error) {
	if !s.opened || s.closed {
		return nil, ErrNotOpen
	}
	pkt, err := s.next(ctx)
	if err != nil && ctx.Err() != nil && !errors.Is(err, ErrInterrupted) {
		return nil, fmt.Errorf("%w: %v", ErrInterrupted, ctx.Err())
	}
	return pkt, err
}

// Seek resets the track matching streamIndex to the fragment containing ts
// (spec §4.G). ts is always in AVTimeBase (microseconds), whichever active
// track streamIndex names.
func (s *Session) Seek(ctx context.Context, streamIndex int, ts int64, flags SeekFlags) error {
	if !s.opened || s.closed {
		return ErrNotOpen
	}
	if s.Model.IsLive {
		return ErrNotSupported
	}
	return s.seek(streamIndex, ts, flags)
}

// Close releases every active track's FragmentSource/TrackDemuxer. It is
// idempotent (spec §8: "close followed by any further call returns the
// component-terminated error without crashing").
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	for _, tr := range s.tracks {
		tr.source.closeReader()
		tr.lookahead = nil
	}
	s.closed = true
	return nil
}

// ProbeMaxScore is the probe API's maximum score (spec §4.H/§6).
const ProbeMaxScore = 100

// Probe scores how likely name/head are a Smooth Streaming manifest: MAX/2
// if name ends in "/manifest" (case-insensitive), plus MAX/4 if head opens
// with the literal XML declaration prefix.
func Probe(name string, head []byte) int {
	score := 0
	if len(name) >= 9 && strings.EqualFold(name[len(name)-9:], "/manifest") {
		score += ProbeMaxScore / 2
	}
	const xmlPrefix = `<?xml version="1.0"`
	if len(head) >= len(xmlPrefix) && strings.EqualFold(string(head[:len(xmlPrefix)]), xmlPrefix) {
		score += ProbeMaxScore / 4
	}
	return score
}

// Summary is glue for cmd/mssdemux (SPEC_FULL.md §4.H "added"): a snapshot
// of the session's headline metadata, not a new demuxer operation.
type Summary struct {
	IsLive         bool
	DurationMicros int64
	BitRate        uint64
	VideoCodec     string
	AudioCodec     string
}

func (s *Session) Summary() Summary {
	sum := Summary{
		IsLive:         s.Model.IsLive,
		DurationMicros: s.DurationMicros,
		BitRate:        s.BitRate,
	}
	for _, tr := range s.tracks {
		if tr.isVideo {
			sum.VideoCodec = tr.params.CodecID
		} else {
			sum.AudioCodec = tr.params.CodecID
		}
	}
	return sum
}
