package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBooking_Transitions(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	b := &Booking{Status: BookingPending}
	require.NoError(t, b.Confirm(now))
	assert.Equal(t, BookingConfirmed, b.Status)
	assert.Equal(t, now, *b.ConfirmedAt)
	assert.ErrorIs(t, b.Confirm(now), ErrInvalidTransition)
	assert.ErrorIs(t, b.Expire(now), ErrInvalidTransition)

	e := &Booking{Status: BookingPending}
	require.NoError(t, e.Expire(now))
	assert.Equal(t, BookingExpired, e.Status)
	assert.False(t, e.Status.Live())
	assert.ErrorIs(t, e.Confirm(now), ErrInvalidTransition)
}

func TestNightsOf(t *testing.T) {
	start := time.Date(2026, 12, 30, 0, 0, 0, 0, time.UTC)
	end := time.Date(2027, 1, 2, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 3, NightsBetween(start, end))
	assert.Equal(t, []string{"2026-12-30", "2026-12-31", "2027-01-01"}, NightsOf(start, end))
	assert.Equal(t, -3, NightsBetween(end, start))
	assert.Empty(t, NightsOf(end, start))
	assert.Empty(t, NightsOf(start, start))
}

func TestNightsBetween_MatchesNightsOfOnLongRanges(t *testing.T) {
	start := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	end := time.Date(2400, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 136308, NightsBetween(start, end))
	assert.Len(t, NightsOf(start, end), NightsBetween(start, end))
}

func TestDateOf_NormalizesToUTCMidnight(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	in := time.Date(2026, 10, 20, 3, 30, 0, 0, loc)

	assert.Equal(t, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), DateOf(in))
}
