package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeOccurrence(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		tz   string
		want time.Time
		err  error
	}{
		{
			name: "rfc3339 keeps its instant",
			raw:  "2026-02-15T23:30:00-05:00",
			tz:   "America/New_York",
			want: time.Date(2026, 2, 16, 4, 30, 0, 0, time.UTC),
		},
		{
			name: "rfc3339 offset differs from named zone",
			raw:  "2026-02-15T10:00:00+02:00",
			tz:   "UTC",
			want: time.Date(2026, 2, 15, 8, 0, 0, 0, time.UTC),
		},
		{
			name: "naive with seconds",
			raw:  "2026-02-15T23:30:00",
			tz:   "America/New_York",
			want: time.Date(2026, 2, 16, 4, 30, 0, 0, time.UTC),
		},
		{
			name: "naive without seconds",
			raw:  "2026-06-01T08:15",
			tz:   "America/New_York",
			want: time.Date(2026, 6, 1, 12, 15, 0, 0, time.UTC),
		},
		{
			name: "garbage input",
			raw:  "last tuesday",
			tz:   "UTC",
			err:  ErrInvalidOccurrence,
		},
		{
			name: "empty zone",
			raw:  "2026-02-15T10:00",
			tz:   "",
			err:  ErrInvalidTimezone,
		},
		{
			name: "unknown zone",
			raw:  "2026-02-15T10:00",
			tz:   "Atlantis/Central",
			err:  ErrInvalidTimezone,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := normalizeOccurrence(tc.raw, tc.tz)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tc.want), "got %s want %s", got, tc.want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestLocalDayRange(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	day := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)
	start, end := localDayRange(day, ny)
	assert.True(t, start.Equal(time.Date(2026, 2, 15, 5, 0, 0, 0, time.UTC)))
	assert.True(t, end.Equal(time.Date(2026, 2, 16, 4, 59, 59, int(time.Second-time.Nanosecond), time.UTC)))

	// spring-forward day is 23 hours long
	dst := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
	start, end = localDayRange(dst, ny)
	assert.True(t, start.Equal(time.Date(2026, 3, 8, 5, 0, 0, 0, time.UTC)))
	assert.True(t, end.Equal(time.Date(2026, 3, 9, 3, 59, 59, int(time.Second-time.Nanosecond), time.UTC)))
}
