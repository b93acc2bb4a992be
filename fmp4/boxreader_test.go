package fmp4

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

// buildFragment assembles a minimal moof+mdat with one traf/trun carrying
// two samples, mirroring a single-track MSS fragment.
func buildFragment(t *testing.T, sample1, sample2 []byte) []byte {
	t.Helper()

	mfhd := fullBox("mfhd", 0, 0, be32(1))

	tfhdFlags := uint32(0x000008 | 0x000010) // default-duration, default-size present
	tfhdPayload := append(be32(1), append(be32(1000), be32(99)...)...) // track_id, default dur, default size (unused here)
	tfhd := fullBox("tfhd", 0, tfhdFlags, tfhdPayload)

	tfdt := fullBox("tfdt", 1, 0, be64(5000))

	trunFlags := uint32(0x000001 | 0x000100 | 0x000200) // data-offset, duration, size
	var trunPayload []byte
	trunPayload = append(trunPayload, be32(2)...) // sample_count
	trunPayload = append(trunPayload, be32(0)...) // data_offset placeholder, patched below
	trunPayload = append(trunPayload, be32(1000)...)
	trunPayload = append(trunPayload, be32(uint32(len(sample1)))...)
	trunPayload = append(trunPayload, be32(1000)...)
	trunPayload = append(trunPayload, be32(uint32(len(sample2)))...)
	trun := fullBox("trun", 0, trunFlags, trunPayload)

	traf := box("traf", append(append([]byte{}, tfhd...), append(tfdt, trun...)...))
	moof := box("moof", append(append([]byte{}, mfhd...), traf...))

	mdat := box("mdat", append(append([]byte{}, sample1...), sample2...))

	// data_offset is relative to the start of moof; mdat's payload starts
	// right after moof, 8 bytes into mdat (its own header).
	dataOffset := uint32(len(moof) + 8)
	fragment := append(append([]byte{}, moof...), mdat...)

	// Patch trun's data_offset field in place: it lives inside moof/traf/trun,
	// at a fixed byte position we computed while building trunPayload.
	trunDataOffsetPos := len(moof) - len(trun) + 8 /*box header*/ + 4 /*fullbox header*/ + 4 /*sample_count*/
	binary.BigEndian.PutUint32(fragment[trunDataOffsetPos:trunDataOffsetPos+4], dataOffset)

	return fragment
}

func TestBoxReader_Demux(t *testing.T) {
	sample1 := []byte("firstsample-keyframe")
	sample2 := []byte("secondsample")
	fragment := buildFragment(t, sample1, sample2)

	r := BoxReader{}
	packets, err := r.Demux(fragment)
	require.NoError(t, err)
	require.Len(t, packets, 2)

	assert.Equal(t, int64(5000), packets[0].DTS)
	assert.Equal(t, uint32(1000), packets[0].Duration)
	assert.Equal(t, sample1, packets[0].Data)

	assert.Equal(t, int64(6000), packets[1].DTS)
	assert.Equal(t, sample2, packets[1].Data)
}

func TestBoxReader_NoMoofFails(t *testing.T) {
	r := BoxReader{}
	_, err := r.Demux(box("mdat", []byte("x")))
	require.ErrorIs(t, err, ErrNoMoof)
}
