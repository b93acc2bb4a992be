package session

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/go-webdl/mssclient/iobyte"
)

// box/fullBox/be32/be64/buildFragment mirror fmp4's own test helpers
// (fmp4/boxreader_test.go): buildFragment makes a minimal single-sample
// moof+mdat fragment, enough to exercise FragmentSource/TrackDemuxer/
// Interleaver wiring; buildFragmentTwoSamples below covers the tests that
// need more than one sample per fragment.
func box(boxType string, content []byte) []byte {
	b := make([]byte, 8+len(content))
	binary.BigEndian.PutUint32(b[0:4], uint32(len(b)))
	copy(b[4:8], boxType)
	copy(b[8:], content)
	return b
}

func fullBox(boxType string, version byte, flags uint32, payload []byte) []byte {
	content := make([]byte, 4+len(payload))
	content[0] = version
	content[1] = byte(flags >> 16)
	content[2] = byte(flags >> 8)
	content[3] = byte(flags)
	copy(content[4:], payload)
	return box(boxType, content)
}

func be32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func be64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// buildFragment assembles a moof/traf/tfhd+tfdt+trun carrying one sample at
// the given base decode time, plus its trailing mdat.
func buildFragment(baseTime uint64, sample []byte) []byte {
	mfhd := fullBox("mfhd", 0, 0, be32(1))

	tfhdFlags := uint32(0x000008 | 0x000010) // default-duration, default-size present
	tfhdPayload := append(be32(1), append(be32(1000), be32(0)...)...)
	tfhd := fullBox("tfhd", 0, tfhdFlags, tfhdPayload)

	tfdt := fullBox("tfdt", 1, 0, be64(baseTime))

	trunFlags := uint32(0x000001 | 0x000200) // data-offset, size present
	var trunPayload []byte
	trunPayload = append(trunPayload, be32(1)...) // sample_count
	trunPayload = append(trunPayload, be32(0)...)  // data_offset placeholder
	trunPayload = append(trunPayload, be32(uint32(len(sample)))...)
	trun := fullBox("trun", 0, trunFlags, trunPayload)

	traf := box("traf", append(append([]byte{}, tfhd...), append(tfdt, trun...)...))
	moof := box("moof", append(append([]byte{}, mfhd...), traf...))
	mdat := box("mdat", append([]byte{}, sample...))

	dataOffset := uint32(len(moof) + 8)
	fragment := append(append([]byte{}, moof...), mdat...)

	trunDataOffsetPos := len(moof) - len(trun) + 8 + 4 + 4
	binary.BigEndian.PutUint32(fragment[trunDataOffsetPos:trunDataOffsetPos+4], dataOffset)

	return fragment
}

// buildFragmentTwoSamples is buildFragment with an explicit second sample at
// baseTime+dur1, for tests that need a fragment spanning more than one DTS
// (e.g. a seek landing mid-fragment, per-sample rather than per-fragment).
func buildFragmentTwoSamples(baseTime uint64, dur1 uint32, sample1, sample2 []byte) []byte {
	mfhd := fullBox("mfhd", 0, 0, be32(1))

	tfhdFlags := uint32(0x000008 | 0x000010)
	tfhdPayload := append(be32(1), append(be32(1000), be32(0)...)...)
	tfhd := fullBox("tfhd", 0, tfhdFlags, tfhdPayload)

	tfdt := fullBox("tfdt", 1, 0, be64(baseTime))

	trunFlags := uint32(0x000001 | 0x000100 | 0x000200) // data-offset, duration, size
	var trunPayload []byte
	trunPayload = append(trunPayload, be32(2)...)
	trunPayload = append(trunPayload, be32(0)...) // data_offset placeholder
	trunPayload = append(trunPayload, be32(dur1)...)
	trunPayload = append(trunPayload, be32(uint32(len(sample1)))...)
	trunPayload = append(trunPayload, be32(1000)...)
	trunPayload = append(trunPayload, be32(uint32(len(sample2)))...)
	trun := fullBox("trun", 0, trunFlags, trunPayload)

	traf := box("traf", append(append([]byte{}, tfhd...), append(tfdt, trun...)...))
	moof := box("moof", append(append([]byte{}, mfhd...), traf...))
	mdat := box("mdat", append(append([]byte{}, sample1...), sample2...))

	dataOffset := uint32(len(moof) + 8)
	fragment := append(append([]byte{}, moof...), mdat...)

	trunDataOffsetPos := len(moof) - len(trun) + 8 + 4 + 4
	binary.BigEndian.PutUint32(fragment[trunDataOffsetPos:trunDataOffsetPos+4], dataOffset)

	return fragment
}

// fakeFragmentReader adapts a byte slice to iobyte.FragmentReader.
type fakeFragmentReader struct {
	*bytes.Reader
}

func (fakeFragmentReader) Close() error { return nil }

// fakeByteSource serves canned responses keyed by URL, standing in for
// iobyte.HTTPByteSource in tests (no network involved).
type fakeByteSource struct {
	mu        sync.Mutex
	responses map[string][]byte
	fetches   []string
}

func newFakeByteSource() *fakeByteSource {
	return &fakeByteSource{responses: map[string][]byte{}}
}

func (s *fakeByteSource) set(url string, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[url] = body
}

func (s *fakeByteSource) Fetch(ctx context.Context, url string) (iobyte.FragmentReader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches = append(s.fetches, url)
	body, ok := s.responses[url]
	if !ok {
		return nil, fmt.Errorf("fake source: no response registered for %s", url)
	}
	return fakeFragmentReader{bytes.NewReader(body)}, nil
}

const videoManifestURL = "https://example.com/content/Manifest"

const vodTwoTrackManifest = `<?xml version="1.0" encoding="utf-8"?>
<SmoothStreamingMedia MajorVersion="2" MinorVersion="0" Duration="40000000">
  <StreamIndex Type="video" Chunks="2" Url="Video({bitrate},{start time}).mp4">
    <QualityLevel Bitrate="500000" FourCC="H264" MaxWidth="640" MaxHeight="360" CodecPrivateData="000000016742001eabcdef120000000168ce3c80"/>
    <c d="20000000"/>
    <c d="20000000"/>
  </StreamIndex>
  <StreamIndex Type="audio" Chunks="2" Url="Audio({bitrate},{start time}).mp4">
    <QualityLevel Bitrate="128000" FourCC="AACL" SamplingRate="44100" Channels="2" BitsPerSample="16"/>
    <c d="20000000"/>
    <c d="20000000"/>
  </StreamIndex>
</SmoothStreamingMedia>`

const vodThreeFragmentVideoManifest = `<?xml version="1.0" encoding="utf-8"?>
<SmoothStreamingMedia MajorVersion="2" MinorVersion="0" Duration="600000000">
  <StreamIndex Type="video" Chunks="3" Url="Video({bitrate},{start time}).mp4">
    <QualityLevel Bitrate="500000" FourCC="H264" MaxWidth="640" MaxHeight="360" CodecPrivateData="000000016742001eabcdef120000000168ce3c80"/>
    <c d="200000000"/>
    <c d="200000000"/>
    <c d="200000000"/>
  </StreamIndex>
</SmoothStreamingMedia>`
