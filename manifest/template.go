package manifest

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxURLSize bounds the expanded fragment URL, mirroring the original
// source's MAX_URL_SIZE stack buffer.
const MaxURLSize = 1024

// ExpandURL substitutes a track's two URL placeholders with decimal values.
// The template must contain "{bitrate}" followed — searching only after the
// first match ends, so a bit rate value can never be mistaken for the second
// placeholder — by "{start time}" (both case-insensitive); each is replaced
// exactly once.
func ExpandURL(template string, bitRate, startTS uint64) (string, error) {
	lower := strings.ToLower(template)

	bPos := strings.Index(lower, "{bitrate}")
	if bPos < 0 {
		return "", fmt.Errorf("%w: URL template missing {bitrate}: %q", ErrInvalid, template)
	}
	bEnd := bPos + len("{bitrate}")

	tPos := strings.Index(lower[bEnd:], "{start time}")
	if tPos < 0 {
		return "", fmt.Errorf("%w: URL template missing {start time}: %q", ErrInvalid, template)
	}
	tPos += bEnd
	tEnd := tPos + len("{start time}")

	var b strings.Builder
	b.WriteString(template[:bPos])
	b.WriteString(strconv.FormatUint(bitRate, 10))
	b.WriteString(template[bEnd:tPos])
	b.WriteString(strconv.FormatUint(startTS, 10))
	b.WriteString(template[tEnd:])

	out := b.String()
	if len(out) > MaxURLSize {
		return "", fmt.Errorf("%w: expanded URL exceeds %d bytes", ErrInvalid, MaxURLSize)
	}
	return out, nil
}
