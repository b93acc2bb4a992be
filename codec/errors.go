package codec

import "errors"

// ErrUnsupportedCodec is returned when a video QualityLevel's FourCC names a
// codec Init has no mapping for, or when a quality is neither audio nor
// video. An unmapped audio FourCC is not an error: CodecID is left empty.
var ErrUnsupportedCodec = errors.New("codec: unsupported FourCC")

// ErrMalformedPrivateData is returned when CodecPrivateData cannot be
// interpreted as the structure its FourCC/WaveFormatEx implies (odd-length
// hex already rejected at parse time; this covers e.g. an AVCC blob with no
// SPS).
var ErrMalformedPrivateData = errors.New("codec: malformed CodecPrivateData")
