package notification_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"portal-server/services/portal-api/internal/domain/chat"
	"portal-server/services/portal-api/internal/domain/notification"
	"portal-server/services/portal-api/internal/utils/platformerrors"
)

type stubSource struct {
	name  string
	items []notification.Notification
	err   error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(ctx context.Context, viewer notification.Viewer) ([]notification.Notification, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.items, nil
}

func adminViewer() notification.Viewer {
	return notification.Viewer{ID: "admin-1", Email: "admin@example.com", Role: chat.RoleAdmin}
}

func TestFetchAllMergesAndRanks(t *testing.T) {
	agg := notification.NewAggregator(zerolog.Nop(),
		&stubSource{name: "message", items: []notification.Notification{
			{ID: "m1", Date: at(4), IsNew: true},
		}},
		&stubSource{name: "order", items: []notification.Notification{
			{ID: "o1", Date: at(8), Read: true},
			{ID: "o2", Date: at(2), IsNew: true},
		}},
	)

	result, err := agg.FetchAll(context.Background(), adminViewer())
	require.NoError(t, err)
	require.False(t, result.Partial())
	require.Equal(t, []string{"m1", "o2", "o1"}, ids(result.Notifications))
}

func TestFetchAllIsolatesFailingSource(t *testing.T) {
	indexErr := platformerrors.NewError(context.Background(),
		platformerrors.LayerInfrastructure, platformerrors.ErrorTypePreconditionFailed,
		"missing composite index", nil)

	agg := notification.NewAggregator(zerolog.Nop(),
		&stubSource{name: "message", items: []notification.Notification{{ID: "m1", Date: at(1)}}},
		&stubSource{name: "order", err: indexErr},
		&stubSource{name: "survey", items: []notification.Notification{{ID: "s1", Date: at(2)}}},
		&stubSource{name: "form", items: []notification.Notification{{ID: "f1", Date: at(3)}}},
	)

	result, err := agg.FetchAll(context.Background(), adminViewer())
	require.NoError(t, err)
	require.True(t, result.Partial())
	require.Len(t, result.Degraded, 1)
	require.Equal(t, "order", result.Degraded[0].Source)
	require.ElementsMatch(t, []string{"m1", "s1", "f1"}, ids(result.Notifications))
}

func TestFetchAllRejectsUnknownViewerRole(t *testing.T) {
	agg := notification.NewAggregator(zerolog.Nop())

	_, err := agg.FetchAll(context.Background(), notification.Viewer{ID: "x", Role: chat.Role("ghost")})
	require.Error(t, err)
	require.True(t, platformerrors.IsType(err, platformerrors.ErrorTypeForbidden))
}

func TestFetchAllEmptySourcesYieldEmptyFeed(t *testing.T) {
	agg := notification.NewAggregator(zerolog.Nop(),
		&stubSource{name: "message"},
		&stubSource{name: "order"},
	)

	result, err := agg.FetchAll(context.Background(), adminViewer())
	require.NoError(t, err)
	require.Empty(t, result.Notifications)
	require.False(t, result.Partial())
}

func TestFetchPageAppliesFilterAndPagination(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	items := make([]notification.Notification, 0, 6)
	for i := 0; i < 6; i++ {
		items = append(items, notification.Notification{
			ID:         string(rune('a' + i)),
			SourceType: notification.SourceOrder,
			Date:       now.Add(-time.Duration(i) * time.Hour),
			IsNew:      true,
		})
	}
	agg := notification.NewAggregator(zerolog.Nop(), &stubSource{name: "order", items: items})

	page, degraded, err := agg.FetchPage(context.Background(), adminViewer(),
		notification.FilterOptions{Type: "order", Now: now}, 2, 4)
	require.NoError(t, err)
	require.Empty(t, degraded)
	require.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 2)
	require.Equal(t, "e", page.Items[0].ID)
}
