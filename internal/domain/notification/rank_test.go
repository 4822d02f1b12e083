package notification_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"portal-server/services/portal-api/internal/domain/notification"
)

func at(hour int) time.Time {
	return time.Date(2026, 8, 20, hour, 0, 0, 0, time.UTC)
}

func TestRankNewItemsFirstThenNewestFirst(t *testing.T) {
	feed := []notification.Notification{
		{ID: "old-read", Date: at(1), IsNew: false, Read: true},
		{ID: "new-older", Date: at(2), IsNew: true},
		{ID: "recent-read", Date: at(10), IsNew: false, Read: true},
		{ID: "new-newest", Date: at(9), IsNew: true},
	}

	notification.Rank(feed)

	got := make([]string, 0, len(feed))
	for _, n := range feed {
		got = append(got, n.ID)
	}
	require.Equal(t, []string{"new-newest", "new-older", "recent-read", "old-read"}, got)
}

func TestRankIgnoresSourceType(t *testing.T) {
	feed := []notification.Notification{
		{ID: "order", SourceType: notification.SourceOrder, Date: at(3)},
		{ID: "message", SourceType: notification.SourceMessage, Date: at(5)},
		{ID: "form", SourceType: notification.SourceForm, Date: at(4)},
	}

	notification.Rank(feed)

	require.Equal(t, "message", feed[0].ID)
	require.Equal(t, "form", feed[1].ID)
	require.Equal(t, "order", feed[2].ID)
}

func TestRankIsStableForEqualKeys(t *testing.T) {
	same := at(6)
	feed := []notification.Notification{
		{ID: "first", Date: same, IsNew: true},
		{ID: "second", Date: same, IsNew: true},
		{ID: "third", Date: same, IsNew: true},
	}

	notification.Rank(feed)

	require.Equal(t, "first", feed[0].ID)
	require.Equal(t, "second", feed[1].ID)
	require.Equal(t, "third", feed[2].ID)
}
