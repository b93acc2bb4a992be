package manifest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vodManifest = `<?xml version="1.0" encoding="utf-8"?>
<SmoothStreamingMedia MajorVersion="2" MinorVersion="0" Duration="6000000000">
  <StreamIndex Type="video" Chunks="3" Url="Video({bitrate},{start time}).mp4">
    <QualityLevel Bitrate="500000" FourCC="H264" MaxWidth="640" MaxHeight="360" CodecPrivateData="00000001"/>
    <c d="20000000"/>
    <c d="20000000"/>
    <c d="20000000"/>
  </StreamIndex>
</SmoothStreamingMedia>`

func TestParse_VOD(t *testing.T) {
	m, err := Parse(strings.NewReader(vodManifest), "https://example.com/content/Manifest", nil)
	require.NoError(t, err)

	require.Len(t, m.Streams, 1)
	track := m.Streams[0]
	assert.Equal(t, Video, track.Kind)
	require.Len(t, track.Fragments, 3)
	assert.Equal(t, uint64(0), track.Fragments[0].StartTsTicks)
	assert.Equal(t, uint64(20000000), track.Fragments[1].StartTsTicks)
	assert.Equal(t, uint64(40000000), track.Fragments[2].StartTsTicks)

	url, err := ExpandURL(track.URLTemplate, track.Qualities[0].BitRate, track.Fragments[0].StartTsTicks)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/content/Video(500000,0).mp4", url)
}

func TestParse_SynthesizedStartTimestamps(t *testing.T) {
	doc := `<?xml version="1.0"?>
<SmoothStreamingMedia MajorVersion="2" MinorVersion="0" Duration="4000">
  <StreamIndex Type="video" Chunks="4" Url="v.mp4">
    <QualityLevel Bitrate="1" FourCC="H264"/>
    <c d="1000"/>
    <c d="1000"/>
    <c d="1000"/>
    <c d="1000"/>
  </StreamIndex>
</SmoothStreamingMedia>`
	m, err := Parse(strings.NewReader(doc), "https://h/Manifest", nil)
	require.NoError(t, err)
	track := m.Streams[0]
	require.Len(t, track.Fragments, 4)
	want := []uint64{0, 1000, 2000, 3000}
	for i, f := range track.Fragments {
		assert.Equal(t, want[i], f.StartTsTicks, "fragment %d", i)
	}
}

func TestParse_MissingMandatoryAttribute(t *testing.T) {
	doc := `<SmoothStreamingMedia MajorVersion="2" Duration="1"></SmoothStreamingMedia>`
	_, err := Parse(strings.NewReader(doc), "https://h/Manifest", nil)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestParse_UnknownMediaAttributeFails(t *testing.T) {
	doc := `<SmoothStreamingMedia MajorVersion="2" MinorVersion="0" Duration="1" Bogus="x"></SmoothStreamingMedia>`
	_, err := Parse(strings.NewReader(doc), "https://h/Manifest", nil)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestParse_UnknownStreamTypeFails(t *testing.T) {
	doc := `<SmoothStreamingMedia MajorVersion="2" MinorVersion="0" Duration="1">
  <StreamIndex Type="telepathy" Chunks="1" Url="x"><c d="1"/></StreamIndex>
</SmoothStreamingMedia>`
	_, err := Parse(strings.NewReader(doc), "https://h/Manifest", nil)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestParse_ZeroDurationFragmentRejected(t *testing.T) {
	doc := `<SmoothStreamingMedia MajorVersion="2" MinorVersion="0" Duration="1">
  <StreamIndex Type="video" Chunks="1" Url="x">
    <QualityLevel Bitrate="1" FourCC="H264"/>
    <c d="0"/>
  </StreamIndex>
</SmoothStreamingMedia>`
	_, err := Parse(strings.NewReader(doc), "https://h/Manifest", nil)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestParse_WaveFormatExSynthesizesFourCC(t *testing.T) {
	doc := `<SmoothStreamingMedia MajorVersion="2" MinorVersion="0" Duration="1">
  <StreamIndex Type="audio" Chunks="1" Url="a.isma">
    <QualityLevel Bitrate="128000" WaveFormatEx="1234abcd"/>
    <c d="1"/>
  </StreamIndex>
</SmoothStreamingMedia>`
	m, err := Parse(strings.NewReader(doc), "https://h/Manifest", nil)
	require.NoError(t, err)
	q := m.Streams[0].Qualities[0]
	assert.Equal(t, "wmap", q.FourCC)
	assert.True(t, q.Audio.WaveFormatEx)
	assert.Equal(t, "1234abcd", q.CodecPrivateDataHex)
}

func TestParse_UnknownElementIsWarningNotError(t *testing.T) {
	doc := `<SmoothStreamingMedia MajorVersion="2" MinorVersion="0" Duration="1">
  <Bogus/>
  <StreamIndex Type="video" Chunks="1" Url="x">
    <QualityLevel Bitrate="1" FourCC="H264"/>
    <c d="1"/>
  </StreamIndex>
</SmoothStreamingMedia>`
	_, err := Parse(strings.NewReader(doc), "https://h/Manifest", nil)
	require.NoError(t, err)
}

func TestStreamBaseURL_StripsTrailingManifest(t *testing.T) {
	assert.Equal(t, "https://h/content", streamBaseURL("https://h/content/Manifest"))
	assert.Equal(t, "https://h/content/index.ism", streamBaseURL("https://h/content/index.ism"))
}
