package codec

import (
	"fmt"

	"golang.org/x/text/language"

	"github.com/go-webdl/mssclient/manifest"
	"github.com/go-webdl/mssclient/timebase"
)

// Init bootstraps a StreamParams from the manifest Quality a Track has
// selected, following the same four-way split as the original source's
// open_audio_demuxer/open_video_demuxer: WaveFormatEx audio, generic audio,
// H.264 video and VC-1 video — plus HEVC video, carried forward from the
// teacher's own moov builder (see DESIGN.md).
//
// lang is parsed with golang.org/x/text into StreamParams.Language; a parse
// failure leaves it empty and is never fatal. Session.Open always passes an
// empty lang (the manifest model carries no language attribute), and
// cmd/mssdemux's summary does not print a language.
func Init(q *manifest.Quality, lang string) (*StreamParams, error) {
	raw := []byte(q.CodecPrivateData)

	sp := &StreamParams{
		FourCC:       q.FourCC,
		BitRate:      q.BitRate,
		RawExtradata: raw,
		Language:     parseLanguage(lang),
	}

	switch {
	case q.IsAudio:
		sp.Kind = manifest.Audio
		if err := initAudio(sp, q, raw); err != nil {
			return nil, err
		}
	case q.IsVideo:
		sp.Kind = manifest.Video
		if err := initVideo(sp, q, raw); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: quality is neither audio nor video", ErrUnsupportedCodec)
	}
	return sp, nil
}

func parseLanguage(tag string) language.Base {
	if tag == "" {
		return language.Base{}
	}
	base, _ := language.ParseBase(tag)
	return base
}

// initAudio implements the WaveFormatEx / generic audio split (spec.md
// §4.C), grounded on open_audio_demuxer.
func initAudio(sp *StreamParams, q *manifest.Quality, raw []byte) error {
	a := q.Audio
	if a == nil {
		return fmt.Errorf("%w: audio quality missing AudioParams", ErrMalformedPrivateData)
	}

	if a.WaveFormatEx {
		w, err := parseWaveFormatEx(raw)
		if err != nil {
			return err
		}
		sp.SampleRate = w.SamplesPerSec
		sp.Channels = w.Channels
		sp.BitsPerSample = w.BitsPerSample
		sp.BlockAlign = uint32(w.BlockAlign)
		sp.RawExtradata = w.Extra
		sp.TimeBase = timebase.Rational{Num: 1, Den: int64(w.SamplesPerSec)}
		if w.BitsPerSample == 16 {
			sp.SampleFormat = SampleFormatS16
		}
		if id := wmaCodecID(w.FormatTag); id != "" {
			sp.CodecID = id
		}
		return nil
	}

	// Generic audio: fields come straight from the manifest; sp.TimeBase is
	// left unset here and the session layer sets it from the manifest's
	// TimeScale when the track is activated.
	sp.SampleRate = a.SampleRate
	sp.Channels = a.Channels
	sp.BitsPerSample = a.BitsPerSample
	sp.BlockAlign = a.PacketSize
	if a.BitsPerSample == 16 {
		sp.SampleFormat = SampleFormatS16
	}

	// open_audio_demuxer resolves codec_id via
	// ff_codec_get_id(ff_codec_movaudio_tags, q->fourcc) first, then
	// special-cases aacl/wmap over whatever that table produced.
	sp.CodecID = movAudioCodecID(sp.FourCC)
	switch sp.FourCC {
	case "aacl":
		sp.CodecID = "aac"
	case "wmap":
		sp.CodecID = "wmapro"
	}
	return nil
}

// initVideo implements the H.264 / VC-1 / HEVC split (spec.md §4.C plus the
// HEVC addition), grounded on open_video_demuxer.
func initVideo(sp *StreamParams, q *manifest.Quality, raw []byte) error {
	v := q.Video
	if v == nil {
		return fmt.Errorf("%w: video quality missing VideoParams", ErrMalformedPrivateData)
	}

	sp.Width = v.Width
	if sp.Width == 0 {
		sp.Width = v.MaxWidth
	}
	sp.Height = v.Height
	if sp.Height == 0 {
		sp.Height = v.MaxHeight
	}

	switch sp.FourCC {
	case "h264", "avc1":
		sp.CodecID = "h264"
		sp.PixFmt = PixFmtYUV420P
		lengthSizeMinusOne := uint8(3)
		if q.NALUnitLengthField > 0 {
			lengthSizeMinusOne = uint8(q.NALUnitLengthField - 1)
		}
		box, err := rewrapAVCC(raw, lengthSizeMinusOne)
		if err != nil {
			return err
		}
		sp.AVCConfig = box
	case "wvc1":
		sp.CodecID = "vc1"
		// VC-1 extradata is carried opaque (smoothstreaming_set_extradata):
		// no rewrap, sp.RawExtradata already holds the decoded bytes.
	case "hev1", "hvc1":
		sp.CodecID = "hevc"
		box, err := rewrapHVCC(raw)
		if err != nil {
			return err
		}
		sp.HEVCConfig = box
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedCodec, sp.FourCC)
	}
	return nil
}
