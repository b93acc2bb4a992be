// Package timebase compares timestamps expressed in different per-stream
// rational time bases without collapsing either side to a common integer
// scale first, per spec §9 ("avoid collapsing to a single integer time
// base... compare as cross-multiplied 64-bit rationals with saturation").
package timebase

import "math"

// Rational is a time base expressed as Num/Den seconds per tick, e.g. 1/90000
// for a 90kHz video clock.
type Rational struct {
	Num, Den int64
}

// AVTimeBase is the session-level microsecond time base (1/1,000,000),
// matching the public Session.read_packet/seek surface (spec §6 "Time
// units").
var AVTimeBase = Rational{Num: 1, Den: 1000000}

// Ticks100ns is the Smooth Streaming manifest time base: 100 nanoseconds per
// tick.
var Ticks100ns = Rational{Num: 1, Den: 10000000}

// Compare returns -1, 0 or 1 according to whether tsA/baseA is less than,
// equal to, or greater than tsB/baseB, computed as a cross-multiplied
// comparison (tsA*baseA.Num*baseB.Den vs tsB*baseB.Num*baseA.Den). Products saturate at
// the int64 boundary instead of overflowing, so callers never observe a sign
// flip from wraparound.
func Compare(tsA int64, baseA Rational, tsB int64, baseB Rational) int {
	// a/baseA seconds vs b/baseB seconds, i.e. ts*base.Num/base.Den.
	// Cross-multiply: tsA*baseA.Num*baseB.Den  vs  tsB*baseB.Num*baseA.Den
	lhs := mulSat(mulSat(tsA, baseA.Num), baseB.Den)
	rhs := mulSat(mulSat(tsB, baseB.Num), baseA.Den)
	switch {
	case lhs < rhs:
		return -1
	case lhs > rhs:
		return 1
	default:
		return 0
	}
}

// mulSat multiplies two int64 values, saturating to math.MaxInt64/MinInt64
// on overflow instead of wrapping.
func mulSat(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	result := a * b
	if result/b != a {
		if (a > 0) == (b > 0) {
			return math.MaxInt64
		}
		return math.MinInt64
	}
	return result
}

// Rescale converts ts from base 'from' to base 'to', rounding toward zero.
// Used to translate a presentation timestamp between AVTimeBase,
// Ticks100ns and a stream's inner time base (spec §4.G).
func Rescale(ts int64, from, to Rational) int64 {
	// ts * from.Num / from.Den * to.Den / to.Num
	num := mulSat(ts, from.Num)
	num = mulSat(num, to.Den)
	denom := from.Den * to.Num
	if denom == 0 {
		return 0
	}
	return num / denom
}

// RescaleRnd is Rescale with an explicit rounding direction, for the seek
// path (spec §4.G: "rounded per SEEK_BACKWARD"): roundUp false truncates
// toward zero (SEEK_BACKWARD — never seek past the requested point), true
// rounds away from zero on a non-exact division.
func RescaleRnd(ts int64, from, to Rational, roundUp bool) int64 {
	num := mulSat(ts, from.Num)
	num = mulSat(num, to.Den)
	denom := from.Den * to.Num
	if denom == 0 {
		return 0
	}
	q := num / denom
	if roundUp && num%denom != 0 {
		if (num > 0) == (denom > 0) {
			q++
		} else {
			q--
		}
	}
	return q
}
