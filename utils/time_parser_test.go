package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"30m":   30 * time.Minute,
		"2h":    2 * time.Hour,
		"1d":    24 * time.Hour,
		"7 D":   7 * 24 * time.Hour,
		"1h30m": 90 * time.Minute,
	}
	for in, want := range cases {
		got, err := ParseDuration(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseDuration("soon")
	assert.ErrorIs(t, err, ErrInvalidDuration)
}

func TestParseEndTime(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 1, 12, 18, 0, 0, 0, loc)

	end, err := ParseEndTime("2h", now, loc)
	require.NoError(t, err)
	assert.Equal(t, now.Add(2*time.Hour), end)

	end, err = ParseEndTime("2026-01-12 19:00", now, loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 12, 19, 0, 0, 0, loc), end)

	end, err = ParseEndTime("19:00", now, loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 12, 19, 0, 0, 0, loc), end)

	end, err = ParseEndTime("17:30", now, loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 13, 17, 30, 0, 0, loc), end)

	for _, bad := range []string{"", "tomorrow", "2026-01-01 10:00", "0m", "25:00"} {
		_, err := ParseEndTime(bad, now, loc)
		assert.ErrorIs(t, err, ErrInvalidDuration, bad)
	}
}
