package codec

import (
	"encoding/binary"
	"fmt"
)

// waveFormatEx mirrors the Windows WAVEFORMATEX structure a WaveFormatEx
// QualityLevel carries as its (binary, not Annex-B) CodecPrivateData. The
// original source hands this blob to ff_get_wav_header; no library in the
// retrieved pack parses WAVEFORMATEX, so this is read directly with
// encoding/binary (see DESIGN.md).
type waveFormatEx struct {
	FormatTag      uint16
	Channels       uint16
	SamplesPerSec  uint32
	AvgBytesPerSec uint32
	BlockAlign     uint16
	BitsPerSample  uint16
	CbSize         uint16
	Extra          []byte // codec-specific extension, length CbSize
}

const waveFormatExFixedSize = 18

// parseWaveFormatEx decodes a little-endian WAVEFORMATEX header, returning
// the fixed fields plus any trailing codec-specific extension bytes (which
// become the stream's own extradata, per ff_get_wav_header).
func parseWaveFormatEx(data []byte) (*waveFormatEx, error) {
	if len(data) < waveFormatExFixedSize {
		return nil, fmt.Errorf("%w: WAVEFORMATEX header truncated (%d bytes)", ErrMalformedPrivateData, len(data))
	}
	w := &waveFormatEx{
		FormatTag:      binary.LittleEndian.Uint16(data[0:2]),
		Channels:       binary.LittleEndian.Uint16(data[2:4]),
		SamplesPerSec:  binary.LittleEndian.Uint32(data[4:8]),
		AvgBytesPerSec: binary.LittleEndian.Uint32(data[8:12]),
		BlockAlign:     binary.LittleEndian.Uint16(data[12:14]),
		BitsPerSample:  binary.LittleEndian.Uint16(data[14:16]),
		CbSize:         binary.LittleEndian.Uint16(data[16:18]),
	}
	end := waveFormatExFixedSize + int(w.CbSize)
	if end > len(data) {
		end = len(data)
	}
	w.Extra = data[waveFormatExFixedSize:end]
	return w, nil
}

// wmaCodecID maps well-known WAVEFORMATEX wFormatTag values to a CodecID.
// 0x0162 is WMA Pro, the only tag the original source names explicitly.
func wmaCodecID(formatTag uint16) string {
	switch formatTag {
	case 0x0162:
		return "wmapro"
	case 0x0161:
		return "wmav2"
	case 0x00FF:
		return "aac"
	default:
		return ""
	}
}
