package docstore_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"portal-server/services/portal-api/internal/infrastructure/docstore"
)

func newStore(t *testing.T) *docstore.MemStore {
	t.Helper()
	store := docstore.NewMemStore()
	t.Cleanup(store.Close)
	return store
}

func TestPutAssignsServerTimestamps(t *testing.T) {
	store := newStore(t)
	fixed := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return fixed })

	doc, err := store.Put(context.Background(), "orders", "ord_1", map[string]any{
		"status":     "new",
		"created_at": docstore.ServerTimestamp,
	})
	require.NoError(t, err)
	require.Equal(t, fixed, doc.CreatedAt)
	require.Equal(t, fixed, doc.Fields["created_at"])
	require.Equal(t, "new", doc.Fields["status"])
}

func TestGetUnknownDocument(t *testing.T) {
	store := newStore(t)

	_, err := store.Get(context.Background(), "orders", "nope")
	require.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestQueryFiltersOrdersAndLimits(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c", "d"} {
		ts := base.Add(time.Duration(i) * time.Minute)
		store.SetClock(func() time.Time { return ts })
		_, err := store.Put(ctx, "orders", id, map[string]any{
			"status":     "new",
			"created_at": docstore.ServerTimestamp,
		})
		require.NoError(t, err)
	}
	_, err := store.Put(ctx, "orders", "other", map[string]any{
		"status":     "shipped",
		"created_at": docstore.ServerTimestamp,
	})
	require.NoError(t, err)

	docs, err := store.Query(ctx, "orders",
		[]docstore.Filter{docstore.Eq("status", "new")},
		[]docstore.OrderBy{{Field: "created_at", Desc: true}}, 2)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Equal(t, "d", docs[0].ID)
	require.Equal(t, "c", docs[1].ID)
}

func TestQueryRangeOperators(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	for id, amount := range map[string]int{"low": 5, "mid": 20, "high": 50} {
		_, err := store.Put(ctx, "orders", id, map[string]any{"amount": amount})
		require.NoError(t, err)
	}

	docs, err := store.Query(ctx, "orders",
		[]docstore.Filter{{Field: "amount", Op: docstore.OpGreaterOrEqual, Value: 20}},
		[]docstore.OrderBy{{Field: "amount"}}, 0)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Equal(t, "mid", docs[0].ID)
	require.Equal(t, "high", docs[1].ID)
}

func TestUpdateMergesFields(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	_, err := store.Put(ctx, "orders", "ord_1", map[string]any{"status": "new", "name": "Pat"})
	require.NoError(t, err)

	require.NoError(t, store.Update(ctx, "orders", "ord_1", map[string]any{"status": "shipped"}))

	doc, err := store.Get(ctx, "orders", "ord_1")
	require.NoError(t, err)
	require.Equal(t, "shipped", doc.Fields["status"])
	require.Equal(t, "Pat", doc.Fields["name"])

	err = store.Update(ctx, "orders", "missing", map[string]any{"status": "x"})
	require.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestConcurrentUpdatesKeepDisjointFields(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	_, err := store.Put(ctx, "conversations", "conv_1", map[string]any{
		"last_message":      "",
		"unread_for_client": 0,
	})
	require.NoError(t, err)

	// A metadata writer and a counter writer race on the same document;
	// updates merge per field, so neither write may be lost.
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Update(ctx, "conversations", "conv_1", map[string]any{
				"last_message": "hello",
			})
		}()
		go func() {
			defer wg.Done()
			_ = store.Update(ctx, "conversations", "conv_1", map[string]any{
				"unread_for_client": 7,
			})
		}()
	}
	wg.Wait()

	doc, err := store.Get(ctx, "conversations", "conv_1")
	require.NoError(t, err)
	require.Equal(t, "hello", doc.Fields["last_message"])
	require.Equal(t, 7, doc.Fields["unread_for_client"])
}

func TestSubscribeDeliversMatchingChanges(t *testing.T) {
	store := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := store.Subscribe(ctx, "orders",
		[]docstore.Filter{docstore.Eq("status", "new")}, nil)
	require.NoError(t, err)
	defer sub.Close()

	_, err = store.Put(ctx, "orders", "match", map[string]any{"status": "new"})
	require.NoError(t, err)
	_, err = store.Put(ctx, "orders", "no-match", map[string]any{"status": "shipped"})
	require.NoError(t, err)
	_, err = store.Put(ctx, "surveys", "wrong-collection", map[string]any{"status": "new"})
	require.NoError(t, err)

	select {
	case change := <-sub.Changes():
		require.Equal(t, docstore.ChangeCreated, change.Kind)
		require.Equal(t, "match", change.Doc.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no change delivered")
	}

	// Nothing else should arrive for the non-matching writes.
	select {
	case change := <-sub.Changes():
		t.Fatalf("unexpected change for %s", change.Doc.ID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscriptionClosesWithContext(t *testing.T) {
	store := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := store.Subscribe(ctx, "orders", nil, nil)
	require.NoError(t, err)

	cancel()

	select {
	case _, open := <-sub.Changes():
		require.False(t, open)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription channel not closed after cancel")
	}

	// Close after context cancellation stays safe.
	sub.Close()
}

func TestFailCollectionSimulatesDegradedSource(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	_, err := store.Put(ctx, "orders", "ord_1", map[string]any{"status": "new"})
	require.NoError(t, err)

	store.FailCollection("orders", docstore.ErrPreconditionFailed)
	_, err = store.Query(ctx, "orders", nil, nil, 0)
	require.True(t, errors.Is(err, docstore.ErrPreconditionFailed))

	store.FailCollection("orders", nil)
	docs, err := store.Query(ctx, "orders", nil, nil, 0)
	require.NoError(t, err)
	require.Len(t, docs, 1)
}
