package fmp4

import (
	"fmt"

	"github.com/tetsuo/mp4"
)

// BoxReader is the concrete FragmentDemuxer, built on github.com/tetsuo/mp4's
// low-level box reader (Next/Enter/Exit/Type/Data/RawBox — the same
// primitives other_examples' track-track.go.go uses to walk a moov; here
// they walk a moof/traf instead). There is exactly one traf per moof in
// every fragment this package has been asked to read in practice (MSS never
// multiplexes tracks within a single fragment — see package doc); a second
// traf is accepted but only its first trun's samples are returned, logged
// nowhere because BoxReader carries no logger — TrackDemuxer is the layer
// with a *slog.Logger, and does the logging if it cares.
type BoxReader struct{}

// Demux implements FragmentDemuxer.
func (BoxReader) Demux(fragment []byte) ([]Packet, error) {
	r := mp4.NewReader(fragment)

	var (
		moofOffset int
		moofFound  bool
		baseTime   int64
		haveTfdt   bool
		tfhd       tfhdBox
		haveTfhd   bool
		trun       trunBox
		haveTrun   bool
	)

	offset := 0
	for r.Next() {
		raw := r.RawBox()
		switch r.Type() {
		case mp4.TypeMoof:
			moofOffset = offset
			moofFound = true

			r.Enter()
			for r.Next() {
				if r.Type() != mp4.TypeTraf {
					continue
				}
				r.Enter()
				for r.Next() {
					switch r.Type() {
					case mp4.TypeTfhd:
						if haveTfhd {
							continue
						}
						h, err := parseTfhd(r.Flags(), r.Data())
						if err != nil {
							r.Exit()
							r.Exit()
							return nil, err
						}
						tfhd = h
						haveTfhd = true
					case mp4.TypeTfdt:
						if haveTfdt {
							continue
						}
						bt, err := parseTfdt(r.Version(), r.Data())
						if err != nil {
							r.Exit()
							r.Exit()
							return nil, err
						}
						baseTime = bt
						haveTfdt = true
					case mp4.TypeTrun:
						if haveTrun {
							continue
						}
						tr, err := parseTrun(r.Version(), r.Flags(), r.Data())
						if err != nil {
							r.Exit()
							r.Exit()
							return nil, err
						}
						trun = tr
						haveTrun = true
					}
				}
				r.Exit()
			}
			r.Exit()
		}
		offset += len(raw)
	}

	if !moofFound {
		return nil, ErrNoMoof
	}
	if !haveTfhd || !haveTrun {
		return nil, fmt.Errorf("%w: moof missing tfhd/trun", ErrNoMdat)
	}

	// Sample data base offset: per ISO/IEC 14496-12 §8.8.7.1, when neither
	// tfhd's base-data-offset nor trun's own data-offset narrows it
	// further, the base is the first byte of the enclosing moof.
	base := moofOffset
	if tfhd.HasBaseDataOffset {
		base = int(tfhd.BaseDataOffset)
	}
	if trun.HasDataOffset {
		base += int(trun.DataOffset)
	}

	packets := make([]Packet, 0, len(trun.Samples))
	dts := baseTime
	pos := base
	for _, s := range trun.Samples {
		dur := s.Duration
		if dur == 0 {
			dur = tfhd.DefaultSampleDuration
		}
		size := s.Size
		if size == 0 {
			size = tfhd.DefaultSampleSize
		}
		flags := s.Flags
		if flags == 0 {
			if trun.HasFirstSampleFlags && len(packets) == 0 {
				flags = trun.FirstSampleFlags
			} else {
				flags = tfhd.DefaultSampleFlags
			}
		}

		if pos < 0 || pos+int(size) > len(fragment) {
			return nil, fmt.Errorf("%w: sample at %d/%d exceeds fragment of %d bytes", ErrTruncatedBox, pos, size, len(fragment))
		}

		packets = append(packets, Packet{
			DTS:      dts,
			PTS:      dts + int64(s.CTO),
			Duration: dur,
			Size:     size,
			KeyFrame: flags&sampleIsNonSyncSample == 0,
			Data:     fragment[pos : pos+int(size)],
		})

		dts += int64(dur)
		pos += int(size)
	}
	return packets, nil
}
