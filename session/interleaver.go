package session

import (
	"context"
	"io"
	"math"

	"github.com/go-webdl/mssclient/timebase"
)

// unknownDTS mirrors AV_NOPTS_VALUE (spec §9: "subtracts per-stream
// start_time only when not NOPTS"). fmp4.BoxReader always derives a DTS
// from tfdt/trun, so it never actually emits this value for this module's
// sole FragmentDemuxer; the branch is kept reachable for a future
// FragmentDemuxer that might.
const unknownDTS = int64(math.MinInt64)

// next implements the Interleaver (spec §4.F): refill each active track's
// one-packet lookahead, then emit the smallest-DTS packet.
func (s *Session) next(ctx context.Context) (*Packet, error) {
	for _, tr := range s.tracks {
		if tr.lookahead != nil {
			continue
		}
		if err := s.fillLookahead(ctx, tr); err != nil {
			return nil, err
		}
	}

	chosen := s.selectTrack()
	if chosen == nil {
		return nil, ErrEndOfStream
	}

	pkt := chosen.lookahead
	chosen.lookahead = nil
	return &Packet{
		DTS:         pkt.DTS,
		PTS:         pkt.PTS,
		TimeBase:    chosen.params.TimeBase,
		KeyFrame:    pkt.KeyFrame,
		Data:        pkt.Data,
		StreamIndex: chosen.quality.OutputStreamID,
	}, nil
}

func (s *Session) fillLookahead(ctx context.Context, tr *trackRuntime) error {
	for {
		pkt, err := tr.demuxer.ReadPacket(ctx)
		if err != nil {
			if err == io.EOF {
				return nil // lookahead stays empty
			}
			return err
		}

		if pkt.DTS != unknownDTS {
			if tr.startTime == nil {
				st := pkt.DTS
				tr.startTime = &st
			}
			if s.FirstTimestamp == nil {
				ts := timebase.Rescale(pkt.DTS, tr.params.TimeBase, timebase.AVTimeBase)
				s.FirstTimestamp = &ts
			}
		}

		if s.SeekTarget == nil {
			tr.lookahead = pkt
			return nil
		}

		if pkt.DTS == unknownDTS {
			s.SeekTarget = nil
			tr.lookahead = pkt
			return nil
		}

		rebased := timebase.Rescale(pkt.DTS, tr.params.TimeBase, timebase.AVTimeBase)
		if rebased >= s.SeekTarget.Ticks && (pkt.KeyFrame || s.SeekTarget.Flags&SeekAny != 0) {
			s.SeekTarget = nil
			tr.lookahead = pkt
			return nil
		}
		// Below the seek target and not an acceptable resume point: discard
		// and keep pulling.
	}
}

// selectTrack picks the lookahead with the smallest DTS, each adjusted by
// its own track's start_time and compared without collapsing to one time
// base (spec §4.F "Selection", §9 rational-comparison design note). Ties
// prefer video (spec §9 Open Questions).
func (s *Session) selectTrack() *trackRuntime {
	var chosen *trackRuntime
	for _, tr := range s.tracks {
		if tr.lookahead == nil {
			continue
		}
		if chosen == nil {
			chosen = tr
			continue
		}
		cmp := timebase.Compare(adjustedDTS(tr), tr.params.TimeBase, adjustedDTS(chosen), chosen.params.TimeBase)
		if cmp < 0 || (cmp == 0 && tr.isVideo && !chosen.isVideo) {
			chosen = tr
		}
	}
	return chosen
}

func adjustedDTS(tr *trackRuntime) int64 {
	if tr.startTime != nil {
		return tr.lookahead.DTS - *tr.startTime
	}
	return tr.lookahead.DTS
}
