package session

import "github.com/go-webdl/mssclient/timebase"

// Packet is the Interleaver's output (spec §3 Packet, after stream_index has
// been rewritten to the session's OutputStreamID — spec §4.F "Selection").
type Packet struct {
	DTS, PTS int64
	TimeBase timebase.Rational
	KeyFrame bool
	Data     []byte

	// StreamIndex is the originating Quality's OutputStreamID, assigned at
	// Session.Open (spec §3 Quality.output_stream_id).
	StreamIndex int
}
