package countdown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRemaining(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()

	tests := []struct {
		name  string
		endAt time.Time
		want  time.Duration
	}{
		{name: "future_end", endAt: now.Add(90 * time.Second), want: 90 * time.Second},
		{name: "exact_end", endAt: now, want: 0},
		{name: "past_end_clamped_to_zero", endAt: now.Add(-time.Hour), want: 0},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, Remaining(tc.endAt, now))
		})
	}
}

func TestExpired(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	require.False(t, Expired(now.Add(time.Second), now))
	require.True(t, Expired(now, now))
	require.True(t, Expired(now.Add(-time.Second), now))
}

func TestSplit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		d    time.Duration
		want Breakdown
	}{
		{name: "zero", d: 0, want: Breakdown{}},
		{name: "negative", d: -time.Minute, want: Breakdown{}},
		{name: "seconds_only", d: 42 * time.Second, want: Breakdown{Seconds: 42}},
		{
			name: "full_breakdown",
			d:    2*24*time.Hour + 3*time.Hour + 4*time.Minute + 5*time.Second,
			want: Breakdown{Days: 2, Hours: 3, Minutes: 4, Seconds: 5},
		},
		{name: "exact_day", d: 24 * time.Hour, want: Breakdown{Days: 1}},
		{name: "sub_second_truncated", d: 900 * time.Millisecond, want: Breakdown{}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, Split(tc.d))
		})
	}
}
