package notification_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"portal-server/services/portal-api/internal/domain/notification"
)

func TestPaginateSlicesAndCounts(t *testing.T) {
	feed := make([]notification.Notification, 25)
	for i := range feed {
		feed[i].ID = string(rune('a' + i))
	}

	page := notification.Paginate(feed, 1, 10)
	require.Len(t, page.Items, 10)
	require.Equal(t, 25, page.TotalItems)
	require.Equal(t, 3, page.TotalPages)

	last := notification.Paginate(feed, 3, 10)
	require.Len(t, last.Items, 5)
	require.Equal(t, feed[20].ID, last.Items[0].ID)
}

func TestPaginatePastEndIsEmpty(t *testing.T) {
	feed := make([]notification.Notification, 3)

	page := notification.Paginate(feed, 9, 10)
	require.Empty(t, page.Items)
	require.Equal(t, 1, page.TotalPages)
	require.Equal(t, 9, page.Page)
}

func TestPaginateDefaults(t *testing.T) {
	feed := make([]notification.Notification, 5)

	page := notification.Paginate(feed, 0, 0)
	require.Equal(t, 1, page.Page)
	require.Equal(t, notification.DefaultPageSize, page.PageSize)
	require.Len(t, page.Items, 5)
}

func TestPaginateEmptyFeed(t *testing.T) {
	page := notification.Paginate(nil, 1, 10)
	require.Empty(t, page.Items)
	require.Zero(t, page.TotalItems)
	require.Zero(t, page.TotalPages)
}
