package timeparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestParseNow(t *testing.T) {
	for _, s := range []string{"now", "NOW", " now "} {
		got, err := Parse(s, now)
		require.NoError(t, err, s)
		assert.Equal(t, now, got, s)
	}
}

func TestParseRFC3339(t *testing.T) {
	got, err := Parse("2024-03-01T12:00:00Z", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), got)
}

func TestParseUnixSeconds(t *testing.T) {
	got, err := Parse("1709294400", now)
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1709294400, 0).UTC(), got)
}

func TestParseInterval(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"30s", now.Add(-30 * time.Second)},
		{"5m", now.Add(-5 * time.Minute)},
		{"12h", now.Add(-12 * time.Hour)},
		{"7D", now.AddDate(0, 0, -7)},
		{"-7D", now.AddDate(0, 0, -7)},
		{"2W", now.AddDate(0, 0, -14)},
		{"1M", now.Add(-2592000 * time.Second)},
		{"1Y", now.Add(-31536000 * time.Second)},
		{"+12h", now.Add(12 * time.Hour)},
	}
	for _, test := range tests {
		got, err := Parse(test.in, now)
		require.NoError(t, err, test.in)
		assert.Equal(t, test.want, got, test.in)
	}
}

func TestParseInvalid(t *testing.T) {
	for _, s := range []string{"", "  ", "7X", "D", "-", "+", "soon", "12h30m"} {
		_, err := Parse(s, now)
		assert.Error(t, err, s)
	}
}

func TestParseIntervalOutOfRange(t *testing.T) {
	// counts whose seconds exceed the duration range must error instead
	// of wrapping around into a nonsense timestamp
	for _, s := range []string{"999999999999Y", "9223372036854775807s", "+400000000000D"} {
		_, err := Parse(s, now)
		assert.Error(t, err, s)
	}

	// just inside the range still works, roughly 292 years
	got, err := Parse("9000000000s", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-9000000000*time.Second), got)
}
