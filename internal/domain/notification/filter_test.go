package notification_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"portal-server/services/portal-api/internal/domain/notification"
)

func TestFilterByType(t *testing.T) {
	feed := []notification.Notification{
		{ID: "m", SourceType: notification.SourceMessage},
		{ID: "o", SourceType: notification.SourceOrder},
		{ID: "s", SourceType: notification.SourceSurvey},
	}

	got := notification.Filter(feed, notification.FilterOptions{Type: "order"})
	require.Len(t, got, 1)
	require.Equal(t, "o", got[0].ID)

	require.Len(t, notification.Filter(feed, notification.FilterOptions{Type: "all"}), 3)
	require.Len(t, notification.Filter(feed, notification.FilterOptions{}), 3)
}

func TestFilterByStatusPartitions(t *testing.T) {
	feed := []notification.Notification{
		{ID: "new", IsNew: true, Read: false},
		{ID: "unread", IsNew: false, Read: false},
		{ID: "read", IsNew: false, Read: true},
		// Read but flagged new, e.g. a handled order still in "new"
		// status upstream. Counts as new, not as read.
		{ID: "read-new", IsNew: true, Read: true},
	}

	newOnes := notification.Filter(feed, notification.FilterOptions{Status: notification.StatusNew})
	require.ElementsMatch(t, []string{"new", "read-new"}, ids(newOnes))

	unread := notification.Filter(feed, notification.FilterOptions{Status: notification.StatusUnread})
	require.ElementsMatch(t, []string{"new", "unread"}, ids(unread))

	read := notification.Filter(feed, notification.FilterOptions{Status: notification.StatusRead})
	require.ElementsMatch(t, []string{"read"}, ids(read))

	require.Len(t, notification.Filter(feed, notification.FilterOptions{Status: notification.StatusAll}), 4)
}

func TestFilterByDateWindow(t *testing.T) {
	now := time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)
	feed := []notification.Notification{
		{ID: "this-morning", Date: time.Date(2026, 8, 28, 1, 0, 0, 0, time.UTC)},
		{ID: "five-days", Date: now.AddDate(0, 0, -5)},
		{ID: "boundary-week", Date: now.AddDate(0, 0, -7)},
		{ID: "three-weeks", Date: now.AddDate(0, 0, -21)},
		{ID: "two-months", Date: now.AddDate(0, -2, 0)},
	}

	today := notification.Filter(feed, notification.FilterOptions{Window: notification.WindowToday, Now: now})
	require.ElementsMatch(t, []string{"this-morning"}, ids(today))

	week := notification.Filter(feed, notification.FilterOptions{Window: notification.WindowLast7Days, Now: now})
	require.ElementsMatch(t, []string{"this-morning", "five-days", "boundary-week"}, ids(week))

	month := notification.Filter(feed, notification.FilterOptions{Window: notification.WindowLast30Days, Now: now})
	require.ElementsMatch(t, []string{"this-morning", "five-days", "boundary-week", "three-weeks"}, ids(month))

	require.Len(t, notification.Filter(feed, notification.FilterOptions{Window: notification.WindowAll, Now: now}), 5)
}

func TestFilterCombinesPredicates(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	feed := []notification.Notification{
		{ID: "hit", SourceType: notification.SourceOrder, IsNew: true, Date: now.AddDate(0, 0, -1)},
		{ID: "wrong-type", SourceType: notification.SourceForm, IsNew: true, Date: now.AddDate(0, 0, -1)},
		{ID: "too-old", SourceType: notification.SourceOrder, IsNew: true, Date: now.AddDate(0, 0, -12)},
		{ID: "not-new", SourceType: notification.SourceOrder, IsNew: false, Read: true, Date: now.AddDate(0, 0, -1)},
	}

	got := notification.Filter(feed, notification.FilterOptions{
		Type:   "order",
		Status: notification.StatusNew,
		Window: notification.WindowLast7Days,
		Now:    now,
	})
	require.ElementsMatch(t, []string{"hit"}, ids(got))
}

func ids(ns []notification.Notification) []string {
	out := make([]string, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.ID)
	}
	return out
}
