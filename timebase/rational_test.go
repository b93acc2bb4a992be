package timebase

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompare_DifferentTimeBases(t *testing.T) {
	// 1 second at 90kHz vs 1 second at AVTimeBase: equal.
	assert.Equal(t, 0, Compare(90000, Rational{1, 90000}, 1000000, AVTimeBase))
	// 0.5s at 90kHz (45000 ticks) is less than 1s at AVTimeBase.
	assert.Equal(t, -1, Compare(45000, Rational{1, 90000}, 1000000, AVTimeBase))
	assert.Equal(t, 1, Compare(1000000, AVTimeBase, 45000, Rational{1, 90000}))
}

func TestCompare_SaturatesInsteadOfOverflowing(t *testing.T) {
	// baseA.Num=2 forces mulSat(MaxInt64, 2) to saturate rather than wrap
	// negative; the comparison must still report tsA's side as larger.
	got := Compare(math.MaxInt64, Rational{2, 1}, 1, Rational{1, 1})
	assert.Equal(t, 1, got)
}

func TestRescale_Ticks100nsToAVTimeBase(t *testing.T) {
	// 10,000,000 ticks at 100ns each is 1 second; AVTimeBase is microseconds.
	got := Rescale(10000000, Ticks100ns, AVTimeBase)
	assert.Equal(t, int64(1000000), got)
}

func TestRescale_TruncatesTowardZero(t *testing.T) {
	got := Rescale(1, Rational{1, 3}, Rational{1, 1})
	assert.Equal(t, int64(0), got)
}

func TestRescaleRnd_RoundsUpWhenRequested(t *testing.T) {
	down := RescaleRnd(1, Rational{1, 3}, Rational{1, 1}, false)
	up := RescaleRnd(1, Rational{1, 3}, Rational{1, 1}, true)
	assert.Equal(t, int64(0), down)
	assert.Equal(t, int64(1), up)
}

func TestRescaleRnd_ExactDivisionIgnoresRoundingFlag(t *testing.T) {
	got := RescaleRnd(2000000, AVTimeBase, Ticks100ns, true)
	assert.Equal(t, int64(20000000), got)
}
