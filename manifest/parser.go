package manifest

import (
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

func parseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

// MaxManifestSize bounds how much of the manifest body Parse will buffer,
// standing in for the original C source's allocation-failure path (spec §7).
const MaxManifestSize = 16 << 20 // 16 MiB

// Parse reads the entire manifest from r, drives a streaming XML tokenizer
// over it, and returns the populated Model. sessionURL is the manifest's own
// URL, used to resolve each Track's URLTemplate.
//
// Parse never aborts mid-document on a validation failure: like the original
// expat start-element handler, the first failure is recorded and returned
// only once the token stream is exhausted, so warnings for every other
// element are still logged.
func Parse(r io.Reader, sessionURL string, logger *slog.Logger) (*Model, error) {
	if logger == nil {
		logger = slog.Default()
	}

	limited := io.LimitReader(r, MaxManifestSize+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("reading manifest body: %w", err)
	}
	if len(body) > MaxManifestSize {
		return nil, ErrResourceLimit
	}

	p := &parser{
		model:  &Model{TimeScale: DefaultTimeScale},
		logger: logger,
		base:   streamBaseURL(sessionURL),
	}

	dec := xml.NewDecoder(strings.NewReader(string(body)))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: xml syntax: %v", ErrInvalid, err)
		}
		switch se := tok.(type) {
		case xml.StartElement:
			p.startElement(se)
		case xml.CharData:
			p.charData(se)
		case xml.EndElement:
			p.endElement(se)
		}
	}

	if p.firstErr != nil {
		return nil, p.firstErr
	}
	return p.model, nil
}

// parser mirrors the original source's start_element/end_element/
// handle_data trio: only start-element carries meaning, but validation
// failures are captured rather than aborting the walk.
type parser struct {
	model    *Model
	logger   *slog.Logger
	base     string
	firstErr error

	curTrack      *Track
	curProtection *ProtectionHeader
	inProtection  bool
	chardata      strings.Builder
}

func (p *parser) fail(err error) {
	if p.firstErr == nil {
		p.firstErr = err
	}
}

func (p *parser) startElement(se xml.StartElement) {
	name := se.Name.Local
	attrs := attrMap(se.Attr)

	switch {
	case strings.EqualFold(name, "SmoothStreamingMedia"):
		p.parseMedia(attrs)
	case strings.EqualFold(name, "StreamIndex"):
		p.parseStreamIndex(attrs)
	case strings.EqualFold(name, "QualityLevel"):
		p.parseQualityLevel(attrs)
	case strings.EqualFold(name, "c"):
		p.parseFragment(attrs)
	case strings.EqualFold(name, "Protection"):
		p.inProtection = true
	case strings.EqualFold(name, "ProtectionHeader"):
		p.curProtection = &ProtectionHeader{}
		if v, ok := lookup(attrs, "SystemID"); ok {
			if id, err := parseUUID(v); err == nil {
				p.curProtection.SystemID = id
			} else {
				p.logger.Warn("manifest: ProtectionHeader SystemID is not a UUID", "value", v)
			}
		}
		p.chardata.Reset()
	default:
		p.logger.Warn("manifest: unrecognized element", "element", name)
	}
}

func (p *parser) charData(cd xml.CharData) {
	if p.curProtection != nil {
		p.chardata.Write(cd)
	}
}

func (p *parser) endElement(se xml.EndElement) {
	if strings.EqualFold(se.Name.Local, "ProtectionHeader") && p.curProtection != nil {
		p.curProtection.Content = strings.TrimSpace(p.chardata.String())
		p.model.Protection = append(p.model.Protection, p.curProtection)
		p.curProtection = nil
	}
	if strings.EqualFold(se.Name.Local, "Protection") {
		p.inProtection = false
	}
}

// attrMap indexes attributes for case-insensitive lookup, matching the
// original source's strcasecmp-per-attribute scan.
func attrMap(attrs []xml.Attr) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[a.Name.Local] = a.Value
	}
	return m
}

// lookup performs a case-insensitive attribute fetch.
func lookup(m map[string]string, name string) (string, bool) {
	for k, v := range m {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

func (p *parser) parseMedia(attrs map[string]string) {
	m := p.model
	haveDuration, haveMajor, haveMinor := false, false, false

	for k, v := range attrs {
		switch {
		case strings.EqualFold(k, "isLive"):
			m.IsLive = strings.EqualFold(v, "true")
		case strings.EqualFold(k, "Duration"):
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				p.fail(fmt.Errorf("%w: SmoothStreamingMedia Duration %q: %v", ErrInvalid, v, err))
				return
			}
			m.Duration = n
			haveDuration = true
		case strings.EqualFold(k, "MajorVersion"):
			n, err := strconv.Atoi(v)
			if err != nil {
				p.fail(fmt.Errorf("%w: SmoothStreamingMedia MajorVersion %q: %v", ErrInvalid, v, err))
				return
			}
			m.MajorVersion = n
			haveMajor = true
		case strings.EqualFold(k, "MinorVersion"):
			n, err := strconv.Atoi(v)
			if err != nil {
				p.fail(fmt.Errorf("%w: SmoothStreamingMedia MinorVersion %q: %v", ErrInvalid, v, err))
				return
			}
			m.MinorVersion = n
			haveMinor = true
		case strings.EqualFold(k, "TimeScale"):
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				p.fail(fmt.Errorf("%w: SmoothStreamingMedia TimeScale %q: %v", ErrInvalid, v, err))
				return
			}
			m.TimeScale = n
		case strings.EqualFold(k, "LookAheadCount"):
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				p.fail(fmt.Errorf("%w: SmoothStreamingMedia LookAheadCount %q: %v", ErrInvalid, v, err))
				return
			}
			m.LookaheadCount = uint32(n)
		case strings.EqualFold(k, "DVRWindowLength"):
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				p.fail(fmt.Errorf("%w: SmoothStreamingMedia DVRWindowLength %q: %v", ErrInvalid, v, err))
				return
			}
			m.DVRWindowLength = n
		default:
			p.fail(fmt.Errorf("%w: SmoothStreamingMedia: field %q is not recognized", ErrInvalid, k))
			return
		}
	}

	if !haveDuration || !haveMajor || !haveMinor {
		p.fail(fmt.Errorf("%w: SmoothStreamingMedia needs Duration, MajorVersion and MinorVersion", ErrInvalid))
		return
	}
	if m.MajorVersion != 2 || m.MinorVersion != 0 {
		p.logger.Warn("manifest: unexpected version", "major", m.MajorVersion, "minor", m.MinorVersion)
	}
}

func (p *parser) parseStreamIndex(attrs map[string]string) {
	t := &Track{CurrentFragment: -1, CurrentQuality: -1}

	typ, ok := lookup(attrs, "Type")
	if !ok {
		p.fail(fmt.Errorf("%w: StreamIndex requires Type", ErrInvalid))
		return
	}
	switch {
	case strings.EqualFold(typ, "video"):
		t.Kind = Video
	case strings.EqualFold(typ, "audio"):
		t.Kind = Audio
	case strings.EqualFold(typ, "text"):
		t.Kind = Text
	default:
		p.fail(fmt.Errorf("%w: StreamIndex Type %q unknown", ErrInvalid, typ))
		return
	}

	var url string
	for k, v := range attrs {
		switch {
		case strings.EqualFold(k, "Type"):
		case strings.EqualFold(k, "Chunks"):
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				p.fail(fmt.Errorf("%w: StreamIndex Chunks %q: %v", ErrInvalid, v, err))
				return
			}
			t.NumberOfFragments = uint32(n)
		case strings.EqualFold(k, "Index"):
			n, err := strconv.Atoi(v)
			if err != nil {
				p.fail(fmt.Errorf("%w: StreamIndex Index %q: %v", ErrInvalid, v, err))
				return
			}
			t.Index = n
		case strings.EqualFold(k, "MaxWidth"):
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				p.fail(fmt.Errorf("%w: StreamIndex MaxWidth %q: %v", ErrInvalid, v, err))
				return
			}
			t.MaxWidth = uint32(n)
			t.hasMaxDims = true
		case strings.EqualFold(k, "MaxHeight"):
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				p.fail(fmt.Errorf("%w: StreamIndex MaxHeight %q: %v", ErrInvalid, v, err))
				return
			}
			t.MaxHeight = uint32(n)
			t.hasMaxDims = true
		case strings.EqualFold(k, "DisplayWidth"):
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				p.fail(fmt.Errorf("%w: StreamIndex DisplayWidth %q: %v", ErrInvalid, v, err))
				return
			}
			t.DisplayWidth = uint32(n)
			t.hasDisplayDims = true
		case strings.EqualFold(k, "DisplayHeight"):
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				p.fail(fmt.Errorf("%w: StreamIndex DisplayHeight %q: %v", ErrInvalid, v, err))
				return
			}
			t.DisplayHeight = uint32(n)
			t.hasDisplayDims = true
		case strings.EqualFold(k, "Url"):
			url = v
		case strings.EqualFold(k, "QualityLevels"):
			// Ignored on purpose: some servers report a bogus count here
			// (spec §9 Open Questions).
		case strings.EqualFold(k, "Subtype"), strings.EqualFold(k, "SubtypeEventControl"),
			strings.EqualFold(k, "ParentStream"), strings.EqualFold(k, "Name"):
			p.logger.Info("manifest: StreamIndex attribute", "name", k, "value", v)
		default:
			p.logger.Warn("manifest: StreamIndex: unrecognized attribute", "name", k)
		}
	}

	t.URLTemplate = resolveTrackURL(p.base, url)
	p.model.Streams = append(p.model.Streams, t)
	p.curTrack = t
}

func (p *parser) parseQualityLevel(attrs map[string]string) {
	t := p.curTrack
	if t == nil {
		p.fail(fmt.Errorf("%w: QualityLevel outside a StreamIndex", ErrInvalid))
		return
	}

	q := &Quality{Index: 0, NALUnitLengthField: 4}
	haveBitRate := false
	var fourcc, privateData string
	waveFormatEx := false
	var maxWidth, maxHeight, width, height uint32
	var sampleRate, channels, bitsPerSample, packetSize, audioTag uint64

	// Reject malformed numeric audio/video attributes before reading them.
	for k, v := range attrs {
		bits := 32
		switch strings.ToLower(k) {
		case "bitspersample", "channels", "nalunitlengthfield":
			bits = 16
		case "maxwidth", "maxheight", "width", "height", "audiotag", "samplingrate", "packetsize":
		default:
			continue
		}
		if _, err := strconv.ParseUint(v, 10, bits); err != nil {
			p.fail(fmt.Errorf("%w: QualityLevel %s %q: %v", ErrInvalid, k, v, err))
			return
		}
	}

	for k, v := range attrs {
		switch {
		case strings.EqualFold(k, "Index"):
			n, err := strconv.Atoi(v)
			if err != nil {
				p.fail(fmt.Errorf("%w: QualityLevel Index %q: %v", ErrInvalid, v, err))
				return
			}
			q.Index = n
		case strings.EqualFold(k, "Bitrate"):
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				p.fail(fmt.Errorf("%w: QualityLevel Bitrate %q: %v", ErrInvalid, v, err))
				return
			}
			q.BitRate = n
			haveBitRate = true
		case strings.EqualFold(k, "MaxWidth"):
			n, _ := strconv.ParseUint(v, 10, 32)
			maxWidth = uint32(n)
		case strings.EqualFold(k, "MaxHeight"):
			n, _ := strconv.ParseUint(v, 10, 32)
			maxHeight = uint32(n)
		case strings.EqualFold(k, "Width"):
			n, _ := strconv.ParseUint(v, 10, 32)
			width = uint32(n)
		case strings.EqualFold(k, "Height"):
			n, _ := strconv.ParseUint(v, 10, 32)
			height = uint32(n)
		case strings.EqualFold(k, "AudioTag"):
			n, _ := strconv.ParseUint(v, 10, 32)
			audioTag = n
		case strings.EqualFold(k, "BitsPerSample"):
			n, _ := strconv.ParseUint(v, 10, 16)
			bitsPerSample = n
		case strings.EqualFold(k, "SamplingRate"):
			n, _ := strconv.ParseUint(v, 10, 32)
			sampleRate = n
		case strings.EqualFold(k, "PacketSize"):
			n, _ := strconv.ParseUint(v, 10, 32)
			packetSize = n
		case strings.EqualFold(k, "Channels"):
			n, _ := strconv.ParseUint(v, 10, 16)
			channels = n
		case strings.EqualFold(k, "FourCC"):
			fourcc = v
		case strings.EqualFold(k, "CodecPrivateData"):
			privateData = v
		case strings.EqualFold(k, "WaveFormatEx"):
			fourcc = "WMAP"
			privateData = v
			waveFormatEx = true
		case strings.EqualFold(k, "NALUnitLengthField"):
			n, err := strconv.ParseUint(v, 10, 16)
			if err == nil {
				q.NALUnitLengthField = uint16(n)
			}
		default:
			p.logger.Warn("manifest: QualityLevel: unrecognized attribute", "name", k, "value", v)
		}
	}

	if !haveBitRate {
		p.fail(fmt.Errorf("%w: QualityLevel requires Bitrate", ErrInvalid))
		return
	}
	if len(fourcc) != 4 {
		p.fail(fmt.Errorf("%w: QualityLevel FourCC must be 4 characters", ErrInvalid))
		return
	}
	q.FourCC = strings.ToLower(fourcc)
	q.CodecPrivateDataHex = privateData
	if len(q.CodecPrivateDataHex)%2 != 0 {
		p.fail(fmt.Errorf("%w: QualityLevel CodecPrivateData has odd length", ErrInvalid))
		return
	}
	if decoded, err := hex.DecodeString(q.CodecPrivateDataHex); err == nil {
		q.CodecPrivateData = decoded
	} else {
		p.fail(fmt.Errorf("%w: QualityLevel CodecPrivateData: %v", ErrInvalid, err))
		return
	}

	q.IsVideo = t.Kind == Video
	q.IsAudio = t.Kind == Audio
	if q.IsAudio {
		q.Audio = &AudioParams{
			SampleRate:    uint32(sampleRate),
			Channels:      uint16(channels),
			BitsPerSample: uint16(bitsPerSample),
			PacketSize:    uint32(packetSize),
			AudioTag:      uint32(audioTag),
			WaveFormatEx:  waveFormatEx,
		}
	} else if q.IsVideo {
		q.Video = &VideoParams{
			Width: width, Height: height,
			MaxWidth: maxWidth, MaxHeight: maxHeight,
		}
	}

	t.Qualities = append(t.Qualities, q)
}

func (p *parser) parseFragment(attrs map[string]string) {
	t := p.curTrack
	if t == nil {
		p.fail(fmt.Errorf("%w: <c> outside a StreamIndex", ErrInvalid))
		return
	}

	var index int
	var duration, startTs uint64
	haveStartTs := false

	for k, v := range attrs {
		switch k {
		case "n", "N":
			n, err := strconv.Atoi(v)
			if err != nil {
				p.fail(fmt.Errorf("%w: <c> n %q: %v", ErrInvalid, v, err))
				return
			}
			index = n
		case "d", "D":
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				p.fail(fmt.Errorf("%w: <c> d %q: %v", ErrInvalid, v, err))
				return
			}
			duration = n
		case "t", "T":
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				p.fail(fmt.Errorf("%w: <c> t %q: %v", ErrInvalid, v, err))
				return
			}
			startTs = n
			haveStartTs = true
		case "r", "R":
			// Repeat count: a redundant-fragment compaction hint. Every
			// fragment in the pack observed by this project always listed
			// <c> elements explicitly, so repeat expansion is not
			// implemented; fail loudly instead of silently truncating the
			// fragment timeline for a manifest that relies on it.
			p.fail(fmt.Errorf("%w: <c> repeat count (r) is not supported", ErrInvalid))
			return
		default:
			p.fail(fmt.Errorf("%w: <c> unrecognized attribute %q", ErrInvalid, k))
			return
		}
	}

	if index == 0 {
		index = len(t.Fragments) + 1
	}
	if !haveStartTs {
		var sum uint64
		for i := 0; i < index-1 && i < len(t.Fragments); i++ {
			sum += t.Fragments[i].DurationTicks
		}
		startTs = sum
	}
	if duration == 0 {
		p.fail(fmt.Errorf("%w: <c> duration must be non-zero", ErrInvalid))
		return
	}

	t.Fragments = append(t.Fragments, Fragment{
		Index:         index,
		DurationTicks: duration,
		StartTsTicks:  startTs,
	})
}

// streamBaseURL strips a trailing "/manifest" (case-insensitive, last 9
// chars) from the session URL, per spec §4.A.
func streamBaseURL(sessionURL string) string {
	if len(sessionURL) >= 9 && strings.EqualFold(sessionURL[len(sessionURL)-9:], "/manifest") {
		return sessionURL[:len(sessionURL)-9]
	}
	return sessionURL
}

func resolveTrackURL(base, url string) string {
	return base + "/" + url
}
