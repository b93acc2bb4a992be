package fmp4

import (
	"encoding/binary"
	"fmt"
)

// tfhd/tfdt/trun flag bits, ISO/IEC 14496-12 §8.8.7/§8.8.8/§8.8.12. No
// library in the retrieved pack exposes fragment-box accessors (the only
// observed tetsuo/mp4 usage, other_examples' track-track.go.go, walks a
// moov/stbl sample table, never a moof); these are decoded by hand from the
// box payload the same way that file hand-decodes AVCC/esds bytes
// (appendAvcCProfile, parseEsds) instead of calling a structured accessor.
const (
	tfhdBaseDataOffsetPresent      = 0x000001
	tfhdSampleDescriptionIndexFlag = 0x000002
	tfhdDefaultSampleDurationFlag  = 0x000008
	tfhdDefaultSampleSizeFlag      = 0x000010
	tfhdDefaultSampleFlagsFlag     = 0x000020

	trunDataOffsetPresent       = 0x000001
	trunFirstSampleFlagsPresent = 0x000004
	trunSampleDurationPresent   = 0x000100
	trunSampleSizePresent       = 0x000200
	trunSampleFlagsPresent      = 0x000400
	trunSampleCompositionOffset = 0x000800

	// sampleIsNonSyncSample is bit 16 of a sample_flags field (ISO/IEC
	// 14496-12 §8.8.3.1); 0 means the sample is a sync sample (keyframe).
	sampleIsNonSyncSample = 0x00010000
)

type tfhdBox struct {
	TrackID                uint32
	BaseDataOffset         uint64
	HasBaseDataOffset      bool
	DefaultSampleDuration  uint32
	DefaultSampleSize      uint32
	DefaultSampleFlags     uint32
}

func parseTfhd(flags uint32, data []byte) (tfhdBox, error) {
	var h tfhdBox
	if len(data) < 4 {
		return h, fmt.Errorf("%w: tfhd", ErrTruncatedBox)
	}
	h.TrackID = binary.BigEndian.Uint32(data)
	off := 4
	need := func(n int) bool { return off+n <= len(data) }

	if flags&tfhdBaseDataOffsetPresent != 0 {
		if !need(8) {
			return h, fmt.Errorf("%w: tfhd base-data-offset", ErrTruncatedBox)
		}
		h.BaseDataOffset = binary.BigEndian.Uint64(data[off:])
		h.HasBaseDataOffset = true
		off += 8
	}
	if flags&tfhdSampleDescriptionIndexFlag != 0 {
		if !need(4) {
			return h, fmt.Errorf("%w: tfhd sample-description-index", ErrTruncatedBox)
		}
		off += 4
	}
	if flags&tfhdDefaultSampleDurationFlag != 0 {
		if !need(4) {
			return h, fmt.Errorf("%w: tfhd default-sample-duration", ErrTruncatedBox)
		}
		h.DefaultSampleDuration = binary.BigEndian.Uint32(data[off:])
		off += 4
	}
	if flags&tfhdDefaultSampleSizeFlag != 0 {
		if !need(4) {
			return h, fmt.Errorf("%w: tfhd default-sample-size", ErrTruncatedBox)
		}
		h.DefaultSampleSize = binary.BigEndian.Uint32(data[off:])
		off += 4
	}
	if flags&tfhdDefaultSampleFlagsFlag != 0 {
		if !need(4) {
			return h, fmt.Errorf("%w: tfhd default-sample-flags", ErrTruncatedBox)
		}
		h.DefaultSampleFlags = binary.BigEndian.Uint32(data[off:])
		off += 4
	}
	return h, nil
}

// parseTfdt returns the base media decode time, the fragment's starting DTS
// in the track's native tick rate.
func parseTfdt(version uint8, data []byte) (int64, error) {
	if version == 1 {
		if len(data) < 8 {
			return 0, fmt.Errorf("%w: tfdt v1", ErrTruncatedBox)
		}
		return int64(binary.BigEndian.Uint64(data)), nil
	}
	if len(data) < 4 {
		return 0, fmt.Errorf("%w: tfdt v0", ErrTruncatedBox)
	}
	return int64(binary.BigEndian.Uint32(data)), nil
}

type trunSample struct {
	Duration uint32
	Size     uint32
	Flags    uint32
	CTO      int32
}

type trunBox struct {
	DataOffset        int32
	HasDataOffset     bool
	FirstSampleFlags  uint32
	HasFirstSampleFlags bool
	Samples           []trunSample
}

func parseTrun(version uint8, flags uint32, data []byte) (trunBox, error) {
	var t trunBox
	if len(data) < 4 {
		return t, fmt.Errorf("%w: trun", ErrTruncatedBox)
	}
	sampleCount := binary.BigEndian.Uint32(data)
	off := 4
	need := func(n int) bool { return off+n <= len(data) }

	if flags&trunDataOffsetPresent != 0 {
		if !need(4) {
			return t, fmt.Errorf("%w: trun data-offset", ErrTruncatedBox)
		}
		t.DataOffset = int32(binary.BigEndian.Uint32(data[off:]))
		t.HasDataOffset = true
		off += 4
	}
	if flags&trunFirstSampleFlagsPresent != 0 {
		if !need(4) {
			return t, fmt.Errorf("%w: trun first-sample-flags", ErrTruncatedBox)
		}
		t.FirstSampleFlags = binary.BigEndian.Uint32(data[off:])
		t.HasFirstSampleFlags = true
		off += 4
	}

	t.Samples = make([]trunSample, 0, sampleCount)
	for i := uint32(0); i < sampleCount; i++ {
		var s trunSample
		if flags&trunSampleDurationPresent != 0 {
			if !need(4) {
				return t, fmt.Errorf("%w: trun sample %d duration", ErrTruncatedBox, i)
			}
			s.Duration = binary.BigEndian.Uint32(data[off:])
			off += 4
		}
		if flags&trunSampleSizePresent != 0 {
			if !need(4) {
				return t, fmt.Errorf("%w: trun sample %d size", ErrTruncatedBox, i)
			}
			s.Size = binary.BigEndian.Uint32(data[off:])
			off += 4
		}
		if flags&trunSampleFlagsPresent != 0 {
			if !need(4) {
				return t, fmt.Errorf("%w: trun sample %d flags", ErrTruncatedBox, i)
			}
			s.Flags = binary.BigEndian.Uint32(data[off:])
			off += 4
		}
		if flags&trunSampleCompositionOffset != 0 {
			if !need(4) {
				return t, fmt.Errorf("%w: trun sample %d composition offset", ErrTruncatedBox, i)
			}
			raw := binary.BigEndian.Uint32(data[off:])
			if version >= 1 {
				s.CTO = int32(raw)
			} else {
				s.CTO = int32(int64(raw))
			}
			off += 4
		}
		t.Samples = append(t.Samples, s)
	}
	return t, nil
}
