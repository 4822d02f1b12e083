package docstore

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEncodeScalarTimestampOrderIsLexicographic(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	times := []time.Time{
		base,
		base.Add(100 * time.Millisecond), // trailing zeros trimmed by RFC3339Nano
		base.Add(150 * time.Millisecond),
		base.Add(time.Second),
		base.Add(time.Second + time.Nanosecond),
		base.Add(2 * time.Second),
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	now := time.Now()
	encoded := make([]string, len(times))
	for i, ts := range times {
		encoded[i] = encodeScalar(ts, now).(string)
	}

	require.True(t, sort.StringsAreSorted(encoded),
		"chronological order must survive text comparison: %v", encoded)

	for i, ts := range times {
		parsed, err := time.Parse(time.RFC3339Nano, encoded[i])
		require.NoError(t, err)
		require.True(t, parsed.Equal(ts))
	}
}

func TestEncodeScalarResolvesServerTimestamp(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 500, time.UTC)

	got, ok := encodeScalar(ServerTimestamp, now).(string)
	require.True(t, ok)

	parsed, err := time.Parse(time.RFC3339Nano, got)
	require.NoError(t, err)
	require.True(t, parsed.Equal(now))
	require.Len(t, got, len("2026-01-01T00:00:00.000000000Z"))
}

func TestEncodeFieldsBuildsSparsePatch(t *testing.T) {
	now := time.Now()
	patch := encodeFields(map[string]any{
		"unread_for_client": uint(0),
		"unread_for_admin":  uint(3),
	}, now)

	// The merge sent to the database contains only the given fields, so
	// it cannot carry stale values for anything else in the document.
	require.Len(t, patch, 2)
	require.Contains(t, patch, "unread_for_client")
	require.Contains(t, patch, "unread_for_admin")
}
