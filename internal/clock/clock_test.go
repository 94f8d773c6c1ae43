package clock

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNowMonotonicAfterStart(t *testing.T) {
	c := New()
	require.False(t, c.Started())
	c.Start()
	require.True(t, c.Started())

	a := c.Now()
	time.Sleep(2 * time.Millisecond)
	b := c.Now()
	require.GreaterOrEqual(t, b, a)
}

func TestNowBeforeStartIsZero(t *testing.T) {
	c := New()
	require.Equal(t, uint64(0), c.Now())
}

// TestISO8601RoundTrip covers P5 and spec.md scenario 6.
func TestISO8601RoundTrip(t *testing.T) {
	cases := []string{
		"2025-01-01T00:00:00.000000Z",
		"2024-02-29T18:45:30.500000Z",
		"2025-12-31T23:59:59.999999Z",
	}
	for _, s := range cases {
		parsed, err := ParseUTCMicro(s)
		require.NoError(t, err)
		require.Equal(t, s, FormatUTCMicro(parsed))
	}
}

func TestParseRejectsNonUTC(t *testing.T) {
	_, err := ParseUTCMicro("2025-01-01T00:00:00.000000+02:00")
	require.ErrorIs(t, err, ErrNotUTC)

	_, err = ParseUTCMicro("2025-01-01T00:00:00.000000")
	require.ErrorIs(t, err, ErrNotUTC)
}

// TestTimezoneInvariance pins TZ across a few zones and checks the round
// trip is identical regardless, per P5 and spec.md scenario 6.
func TestTimezoneInvariance(t *testing.T) {
	zones := []string{"GMT0", "EET-2", "EST+5"}
	// Go reads TZ only once, so each zone is also installed as time.Local
	// (offsets in seconds east of UTC; POSIX TZ signs are inverted).
	offsets := map[string]int{"GMT0": 0, "EET-2": 2 * 3600, "EST+5": -5 * 3600}
	s := "2025-06-15T12:30:45.123456Z"

	orig := os.Getenv("TZ")
	defer os.Setenv("TZ", orig)
	origLocal := time.Local
	defer func() { time.Local = origLocal }()

	var results []string
	for _, z := range zones {
		os.Setenv("TZ", z)
		time.Local = time.FixedZone(z, offsets[z])
		parsed, err := ParseUTCMicro(s)
		require.NoError(t, err)
		results = append(results, FormatUTCMicro(parsed))
	}
	for _, r := range results {
		require.Equal(t, s, r)
	}
}
