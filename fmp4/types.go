// Package fmp4 is the FragmentDemuxer collaborator spec.md names but leaves
// unnamed ("external, named not specified" — spec.md §9): the thing a
// TrackDemuxer hands a fragment's bytes to get back packets. Every MSS
// fragment carries exactly one track (the original source's read_data
// comment "only one stream by fragment"), so unlike a general MP4 demuxer
// this package never deals with a moov box or multiple simultaneous tracks:
// it walks a single fragment's moof/traf/tfhd/tfdt/trun boxes and slices
// sample bytes out of the trailing mdat.
package fmp4

// Packet is one demuxed sample, the Go analogue of spec.md's Packet type
// (dts/pts/flags/data/stream_index) before the Interleaver assigns it a
// session-wide stream index.
type Packet struct {
	// DTS and PTS are expressed in the track's native per-fragment time
	// base (tfdt's base media decode time, plus each sample's running
	// duration and composition-time offset). They are not rescaled to
	// timebase.AVTimeBase here or by TrackDemuxer; session.Packet carries
	// them unchanged together with the track's TimeBase.
	DTS, PTS int64

	Duration uint32
	Size     uint32

	// KeyFrame reports sample_is_non_sync_sample == 0 from the sample's
	// flags (trun's own or tfhd's default_sample_flags).
	KeyFrame bool

	// Data is a slice into the fragment buffer FragmentDemuxer.Demux was
	// given; callers that retain a Packet past the buffer's lifetime must
	// copy it.
	Data []byte
}

// FragmentDemuxer parses one fragment's bytes into its packets.
type FragmentDemuxer interface {
	Demux(fragment []byte) ([]Packet, error)
}
