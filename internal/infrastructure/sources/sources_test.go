package sources_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"portal-server/services/portal-api/internal/domain/chat"
	"portal-server/services/portal-api/internal/domain/notification"
	"portal-server/services/portal-api/internal/infrastructure/docstore"
	"portal-server/services/portal-api/internal/infrastructure/sources"
	"portal-server/services/portal-api/internal/utils/platformerrors"
)

func seedOrder(t *testing.T, store *docstore.MemStore, id, email, status string, created time.Time) {
	t.Helper()
	_, err := store.Put(context.Background(), "orders", id, map[string]any{
		"name":       "Order " + id,
		"email":      email,
		"status":     status,
		"created_at": created,
	})
	require.NoError(t, err)
}

func TestOrderSourceScopesClientsByEmail(t *testing.T) {
	store := docstore.NewMemStore()
	t.Cleanup(store.Close)

	created := time.Date(2026, 8, 27, 8, 0, 0, 0, time.UTC)
	seedOrder(t, store, "ord_1", "dana@example.com", "new", created)
	seedOrder(t, store, "ord_2", "other@example.com", "new", created.Add(time.Hour))

	src := sources.NewOrderSource(store)

	mine, err := src.Fetch(context.Background(), notification.Viewer{
		ID: "client-1", Email: "dana@example.com", Role: chat.RoleClient,
	})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, "ord_1", mine[0].ID)
	require.True(t, mine[0].IsNew)

	all, err := src.Fetch(context.Background(), notification.Viewer{
		ID: "admin-1", Role: chat.RoleAdmin,
	})
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestOrderSourceClassifiesPreconditionFailure(t *testing.T) {
	store := docstore.NewMemStore()
	t.Cleanup(store.Close)
	store.FailCollection("orders", docstore.ErrPreconditionFailed)

	src := sources.NewOrderSource(store)
	_, err := src.Fetch(context.Background(), notification.Viewer{ID: "admin-1", Role: chat.RoleAdmin})
	require.Error(t, err)
	require.True(t, platformerrors.IsType(err, platformerrors.ErrorTypePreconditionFailed))
}

func TestSubmissionSourcesPickTheirCollections(t *testing.T) {
	store := docstore.NewMemStore()
	t.Cleanup(store.Close)
	ctx := context.Background()

	_, err := store.Put(ctx, "survey_submissions", "sur_1", map[string]any{
		"name": "Dana", "email": "dana@example.com", "status": "new",
		"created_at": time.Date(2026, 8, 27, 8, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	_, err = store.Put(ctx, "form_submissions", "frm_1", map[string]any{
		"name": "Dana", "email": "dana@example.com", "status": "handled",
		"created_at": time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	admin := notification.Viewer{ID: "admin-1", Role: chat.RoleAdmin}

	surveys, err := sources.NewSurveySource(store).Fetch(ctx, admin)
	require.NoError(t, err)
	require.Len(t, surveys, 1)
	require.Equal(t, notification.SourceSurvey, surveys[0].SourceType)
	require.True(t, surveys[0].IsNew)

	forms, err := sources.NewFormSource(store).Fetch(ctx, admin)
	require.NoError(t, err)
	require.Len(t, forms, 1)
	require.Equal(t, notification.SourceForm, forms[0].SourceType)
	require.False(t, forms[0].IsNew)
}

func TestConversationSourceMapsViewerCounters(t *testing.T) {
	store := docstore.NewMemStore()
	t.Cleanup(store.Close)
	ctx := context.Background()

	_, err := store.Put(ctx, "conversations", "conv_1", map[string]any{
		"client_id":         "client-1",
		"client_name":       "Dana Client",
		"active":            true,
		"unread_for_admin":  2,
		"unread_for_client": 0,
		"updated_at":        docstore.ServerTimestamp,
	})
	require.NoError(t, err)

	src := sources.NewConversationSource(store)

	forAdmin, err := src.Fetch(ctx, notification.Viewer{ID: "admin-1", Role: chat.RoleAdmin})
	require.NoError(t, err)
	require.Len(t, forAdmin, 1)
	require.Equal(t, "Dana Client", forAdmin[0].Title)
	require.True(t, forAdmin[0].IsNew)

	forClient, err := src.Fetch(ctx, notification.Viewer{ID: "client-1", Role: chat.RoleClient})
	require.NoError(t, err)
	require.Len(t, forClient, 1)
	require.Equal(t, "Support chat", forClient[0].Title)
	require.False(t, forClient[0].IsNew)

	stranger, err := src.Fetch(ctx, notification.Viewer{ID: "client-2", Role: chat.RoleClient})
	require.NoError(t, err)
	require.Empty(t, stranger)
}

func TestConversationSourceWatchSignalsChanges(t *testing.T) {
	store := docstore.NewMemStore()
	t.Cleanup(store.Close)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := sources.NewConversationSource(store)
	signal, stop, err := src.Watch(ctx, notification.Viewer{ID: "admin-1", Role: chat.RoleAdmin})
	require.NoError(t, err)
	defer stop()

	_, err = store.Put(ctx, "conversations", "conv_1", map[string]any{
		"client_id": "client-1", "client_name": "Dana", "active": true,
	})
	require.NoError(t, err)

	select {
	case <-signal:
	case <-time.After(2 * time.Second):
		t.Fatal("no watch signal after conversation write")
	}
}
