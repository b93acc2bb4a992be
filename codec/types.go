// Package codec bootstraps per-stream codec parameters from a manifest
// QualityLevel, mirroring the original source's open_audio_demuxer /
// open_video_demuxer split (smoothstreaming.c) but driven entirely by the
// manifest model instead of an inner MOV demuxer's AVStream.
package codec

import (
	"github.com/go-webdl/mp4"
	"golang.org/x/text/language"

	"github.com/go-webdl/mssclient/manifest"
	"github.com/go-webdl/mssclient/timebase"
)

// SampleFormat names the handful of PCM-ish sample layouts CodecInit can
// infer from a WAVEFORMATEX or bits-per-sample hint; anything else is left
// empty and is the decoder's problem, not the demuxer's.
type SampleFormat string

const (
	SampleFormatNone SampleFormat = ""
	SampleFormatS16  SampleFormat = "s16"
)

// PixFmt names the pixel format CodecInit can infer for a video codec
// without decoding a single frame. H.264 Smooth Streaming tracks are always
// 8-bit 4:2:0 in practice (open_video_demuxer hardcodes AV_PIX_FMT_YUV420P);
// VC-1 and HEVC leave it unset since the original source never assumes one
// for them.
type PixFmt string

const (
	PixFmtNone    PixFmt = ""
	PixFmtYUV420P PixFmt = "yuv420p"
)

// StreamParams is this package's analogue of FFmpeg's AVCodecParameters: the
// decoder-bootstrap information CodecInit derives from a single
// manifest.Quality, ready to hand to a TrackDemuxer/Interleaver without any
// further manifest lookups.
type StreamParams struct {
	Kind    manifest.StreamType
	FourCC  string
	CodecID string // "h264", "hevc", "vc1", "aac", "wmapro", "" (unrecognized but not fatal)

	BitRate  uint64
	TimeBase timebase.Rational
	Language language.Base

	// RawExtradata is the hex-decoded CodecPrivateData blob, kept verbatim
	// regardless of codec-specific rewrapping below — except on the
	// WaveFormatEx audio path, where it holds only the WAVEFORMATEX
	// extension bytes that follow the fixed 18-byte header.
	RawExtradata []byte

	// AVCConfig is populated for h264/avc1 tracks: an AVCDecoderConfigurationRecord
	// (avcC) box built from RawExtradata's Annex-B NALUs, exactly as
	// MoovProcessor.CreateAvcCMp4Box builds one from a fixed blob.
	AVCConfig mp4.Box

	// HEVCConfig is populated for hev1/hvc1 tracks, built the same way
	// MoovProcessor.CreateHvcCMp4Box builds one.
	HEVCConfig mp4.Box

	// Video fields, set when Kind == manifest.Video.
	Width, Height uint32
	PixFmt        PixFmt

	// Audio fields, set when Kind == manifest.Audio.
	SampleRate    uint32
	Channels      uint16
	BitsPerSample uint16
	BlockAlign    uint32
	SampleFormat  SampleFormat
}
