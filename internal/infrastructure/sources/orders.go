package sources

import (
	"context"

	"portal-server/services/portal-api/internal/domain/chat"
	"portal-server/services/portal-api/internal/domain/notification"
	"portal-server/services/portal-api/internal/infrastructure/docstore"
)

// OrderSource feeds order activity into the notification feed.
type OrderSource struct {
	store docstore.Store
}

// NewOrderSource constructs the order source.
func NewOrderSource(store docstore.Store) *OrderSource {
	return &OrderSource{store: store}
}

var _ notification.Source = (*OrderSource)(nil)

// Name returns the source identifier used in degradation reports.
func (s *OrderSource) Name() string {
	return string(notification.SourceOrder)
}

// Fetch returns one notification per order visible to the viewer.
// Clients are matched by email; admins get the recent broad view.
func (s *OrderSource) Fetch(ctx context.Context, viewer notification.Viewer) ([]notification.Notification, error) {
	var filters []docstore.Filter
	limit := adminFetchLimit
	if viewer.Role == chat.RoleClient {
		filters = []docstore.Filter{docstore.Eq("email", viewer.Email)}
		limit = 0
	}

	docs, err := s.store.Query(ctx, "orders", filters,
		[]docstore.OrderBy{{Field: "created_at", Desc: true}}, limit)
	if err != nil {
		return nil, wrapStoreError(ctx, err, "failed to fetch orders")
	}

	out := make([]notification.Notification, 0, len(docs))
	for _, doc := range docs {
		out = append(out, notification.MapOrder(decodeOrder(doc)))
	}
	return out, nil
}

func decodeOrder(doc docstore.Document) notification.OrderRecord {
	return notification.OrderRecord{
		ID:        doc.ID,
		Name:      fieldString(doc.Fields, "name"),
		Email:     fieldString(doc.Fields, "email"),
		Status:    fieldString(doc.Fields, "status"),
		CreatedAt: fieldTime(doc.Fields, "created_at", doc.CreatedAt),
	}
}
