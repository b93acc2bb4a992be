package fmp4

import "errors"

// ErrNoMoof is returned when a fragment buffer contains no moof box.
var ErrNoMoof = errors.New("fmp4: no moof box in fragment")

// ErrNoMdat is returned when a fragment's moof lacks the tfhd/trun boxes
// needed to locate its samples in mdat. The presence of an mdat box is not
// itself checked; a sample range past the end of the fragment is reported
// as ErrTruncatedBox.
var ErrNoMdat = errors.New("fmp4: no mdat box in fragment")

// ErrTruncatedBox is returned when a tfhd/tfdt/trun box is shorter than its
// flags require.
var ErrTruncatedBox = errors.New("fmp4: truncated box")
