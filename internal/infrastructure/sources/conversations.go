package sources

import (
	"context"

	"portal-server/services/portal-api/internal/domain/chat"
	"portal-server/services/portal-api/internal/domain/notification"
	"portal-server/services/portal-api/internal/infrastructure/docstore"
	chatrepo "portal-server/services/portal-api/internal/infrastructure/repository/chat"
)

// ConversationSource feeds chat activity into the notification feed.
// It is the only source that can also signal live changes, so it
// implements Watcher as well.
type ConversationSource struct {
	store docstore.Store
}

// NewConversationSource constructs the chat source.
func NewConversationSource(store docstore.Store) *ConversationSource {
	return &ConversationSource{store: store}
}

var (
	_ notification.Source  = (*ConversationSource)(nil)
	_ notification.Watcher = (*ConversationSource)(nil)
)

// Name returns the source identifier used in degradation reports.
func (s *ConversationSource) Name() string {
	return string(notification.SourceMessage)
}

// Fetch returns one notification per active conversation visible to the
// viewer.
func (s *ConversationSource) Fetch(ctx context.Context, viewer notification.Viewer) ([]notification.Notification, error) {
	filters, limit := s.scope(viewer)
	docs, err := s.store.Query(ctx, "conversations", filters,
		[]docstore.OrderBy{{Field: "updated_at", Desc: true}}, limit)
	if err != nil {
		return nil, wrapStoreError(ctx, err, "failed to fetch conversations")
	}

	out := make([]notification.Notification, 0, len(docs))
	for _, doc := range docs {
		conv := chatrepo.DecodeConversation(doc)
		out = append(out, notification.MapConversation(*conv, viewer.Role))
	}
	return out, nil
}

// Watch signals whenever a visible conversation changes. The returned
// stop func releases the underlying subscription.
func (s *ConversationSource) Watch(ctx context.Context, viewer notification.Viewer) (<-chan struct{}, func(), error) {
	filters, _ := s.scope(viewer)
	sub, err := s.store.Subscribe(ctx, "conversations", filters, nil)
	if err != nil {
		return nil, nil, wrapStoreError(ctx, err, "failed to watch conversations")
	}

	signal := make(chan struct{}, 1)
	go func() {
		defer close(signal)
		for range sub.Changes() {
			select {
			case signal <- struct{}{}:
			default:
			}
		}
	}()
	return signal, sub.Close, nil
}

func (s *ConversationSource) scope(viewer notification.Viewer) ([]docstore.Filter, int) {
	filters := []docstore.Filter{docstore.Eq("active", true)}
	if viewer.Role == chat.RoleClient {
		filters = append(filters, docstore.Eq("client_id", viewer.ID))
		return filters, 0
	}
	return filters, adminFetchLimit
}
