package session

import (
	"fmt"

	"github.com/go-webdl/mssclient/timebase"
)

// seek implements the SeekEngine (spec §4.G). ts is always AVTimeBase
// microseconds (spec §8 scenario 4: "seek(stream, 25*AV_TIME_BASE, 0)" names
// a concrete stream yet still expresses the target as an AV_TIME_BASE
// quantity), translated into the target track's own native ticks for the
// fragment walk.
func (s *Session) seek(streamIndex int, ts int64, flags SeekFlags) error {
	s.SeekTarget = &seekTargetState{Ticks: ts, Flags: flags}

	tr := s.trackByStreamIndex(streamIndex)
	if tr == nil {
		s.SeekTarget = nil
		return fmt.Errorf("%w: no active track with stream index %d", ErrIO, streamIndex)
	}

	roundUp := flags&SeekBackward == 0
	target := timebase.RescaleRnd(ts, timebase.AVTimeBase, tr.params.TimeBase, roundUp)

	if err := s.resetTrackToFragment(tr, target); err != nil {
		s.SeekTarget = nil
		return err
	}
	return nil
}

// resetTrackToFragment walks tr's fragment list, accumulating each
// fragment's start position in tr's own native ticks starting from the
// session's first-seen timestamp (or 0 before any packet has been read),
// and rewinds CurrentFragment so the next advance() lands on the fragment
// containing targetTicks (spec §4.G steps 3-4).
func (s *Session) resetTrackToFragment(tr *trackRuntime, targetTicks int64) error {
	tr.source.closeReader()
	tr.lookahead = nil
	tr.startTime = nil
	tr.demuxer.reset()

	pos := int64(0)
	if s.FirstTimestamp != nil {
		pos = timebase.Rescale(*s.FirstTimestamp, timebase.AVTimeBase, tr.params.TimeBase)
	}

	for i, frag := range tr.track.Fragments {
		end := pos + int64(frag.DurationTicks)
		if targetTicks >= pos && targetTicks < end {
			tr.track.CurrentFragment = i - 1
			return nil
		}
		pos = end
	}
	return fmt.Errorf("%w: seek target outside known fragment range", ErrIO)
}
