package clock

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertIdentity(t *testing.T) {
	for _, u := range []Unit{Nanosecond, Microsecond, Millisecond, Second} {
		assert.Equal(t, int64(42), u.Convert(42, u), "convert between equal units must be identity")
	}
}

func TestConvertTruncatesFinerToCoarser(t *testing.T) {
	assert.Equal(t, int64(1), Second.Convert(1500, Millisecond))
	assert.Equal(t, int64(-1), Second.Convert(-1500, Millisecond))
}

func TestConvertSaturatesCoarserToFiner(t *testing.T) {
	got := Nanosecond.Convert(math.MaxInt64, Second)
	assert.Equal(t, int64(math.MaxInt64), got)
}

func TestConvertRoundTripBounds(t *testing.T) {
	// For u finer-or-equal to v: convert(convert(d,u,v),v,u) is between 0 and d (truncation only).
	d := int64(12345)
	down := Second.Convert(d, Millisecond)
	up := Millisecond.Convert(down, Second)
	assert.LessOrEqual(t, up, d)
	assert.GreaterOrEqual(t, up, int64(0))
}

func TestToNanosLossless(t *testing.T) {
	assert.Equal(t, int64(5000), Microsecond.ToNanos(5))
	assert.Equal(t, int64(5_000_000), Millisecond.ToNanos(5))
	assert.Equal(t, int64(5_000_000_000), Second.ToNanos(5))
}

func TestInstantMonotonic(t *testing.T) {
	a := Now()
	time.Sleep(time.Millisecond)
	b := Now()
	assert.True(t, b.After(a))
	assert.Greater(t, b.Sub(a), time.Duration(0))
}

func TestSleepZeroOrNegativeNeverParks(t *testing.T) {
	start := time.Now()
	err := Sleep(context.Background(), 0)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 50*time.Millisecond)

	start = time.Now()
	err = Sleep(context.Background(), -time.Second)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestSleepInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, ErrInterrupted)
}

func TestSleepInterruptedOnEntryFailsImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	err := Sleep(ctx, 0)
	assert.ErrorIs(t, err, ErrInterrupted)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}
