package session

import (
	"context"
	"io"

	"github.com/go-webdl/mssclient/fmp4"
)

// TrackDemuxer wraps a FragmentSource in a FragmentDemuxer, producing
// packets one at a time (spec §4.E). The original's buffered,
// non-seekable-input / format-probe / movflags=smooth / stream-info-discovery
// initialization sequence collapses here to nothing: this module ships
// exactly one FragmentDemuxer implementation (fmp4.BoxReader), so there is
// no format to probe and no alternate demuxer to select — CodecInit already
// ran against the manifest Quality before TrackDemuxer is constructed.
type TrackDemuxer struct {
	source  *FragmentSource
	demuxer fmp4.FragmentDemuxer

	pending []fmp4.Packet
}

func newTrackDemuxer(source *FragmentSource, demuxer fmp4.FragmentDemuxer) *TrackDemuxer {
	return &TrackDemuxer{source: source, demuxer: demuxer}
}

// reset drops any buffered packets, used by SeekEngine when repositioning
// this track's FragmentSource (spec §4.G: "clears the buffered-input
// EOF/pos").
func (d *TrackDemuxer) reset() {
	d.pending = nil
}

// ReadPacket returns the next demuxed packet, fetching and demuxing further
// fragments as needed (spec §4.E read_packet()).
func (d *TrackDemuxer) ReadPacket(ctx context.Context) (*fmp4.Packet, error) {
	for {
		if len(d.pending) > 0 {
			p := d.pending[0]
			d.pending = d.pending[1:]
			return &p, nil
		}

		frag, err := d.source.NextFragment(ctx)
		if err != nil {
			if err == io.EOF {
				if d.source.Done() {
					return nil, io.EOF
				}
				// Swallow: the FragmentSource will roll over (or block on
				// reload) on the next attempt.
				continue
			}
			return nil, err
		}

		packets, err := d.demuxer.Demux(frag)
		if err != nil {
			return nil, err
		}
		d.pending = packets
		// An empty fragment (zero samples) is valid; loop around for the
		// next one rather than returning nothing.
	}
}
