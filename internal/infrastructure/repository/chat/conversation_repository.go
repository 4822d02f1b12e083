package chat

import (
	"context"
	"errors"

	domain "portal-server/services/portal-api/internal/domain/chat"
	"portal-server/services/portal-api/internal/infrastructure/docstore"
	"portal-server/services/portal-api/internal/utils/platformerrors"
)

const conversationCollection = "conversations"

// ConversationRepository persists conversations in the document store.
type ConversationRepository struct {
	store docstore.Store
}

// NewConversationRepository constructs the conversation repository.
func NewConversationRepository(store docstore.Store) *ConversationRepository {
	return &ConversationRepository{store: store}
}

var _ domain.ConversationRepository = (*ConversationRepository)(nil)

// Create inserts a conversation. Timestamps are assigned by the store.
func (r *ConversationRepository) Create(ctx context.Context, conversation *domain.Conversation) error {
	fields := map[string]any{
		"client_id":         conversation.ClientID,
		"client_name":       conversation.ClientName,
		"unread_for_client": conversation.UnreadForClient,
		"unread_for_admin":  conversation.UnreadForAdmin,
		"active":            conversation.Active,
		"created_at":        docstore.ServerTimestamp,
		"updated_at":        docstore.ServerTimestamp,
	}
	doc, err := r.store.Put(ctx, conversationCollection, conversation.ID, fields)
	if err != nil {
		return wrapStoreError(ctx, err, "failed to create conversation")
	}
	conversation.CreatedAt = doc.CreatedAt
	conversation.UpdatedAt = doc.UpdatedAt
	return nil
}

// FindByID loads one conversation.
func (r *ConversationRepository) FindByID(ctx context.Context, id string) (*domain.Conversation, error) {
	doc, err := r.store.Get(ctx, conversationCollection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, platformerrors.NewError(ctx,
				platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
				"conversation not found", err)
		}
		return nil, wrapStoreError(ctx, err, "failed to load conversation")
	}
	return DecodeConversation(doc), nil
}

// FindActiveByClientID returns the client's active conversation, or
// (nil, nil) when there is none.
func (r *ConversationRepository) FindActiveByClientID(ctx context.Context, clientID string) (*domain.Conversation, error) {
	docs, err := r.store.Query(ctx, conversationCollection,
		[]docstore.Filter{
			docstore.Eq("client_id", clientID),
			docstore.Eq("active", true),
		},
		[]docstore.OrderBy{{Field: "created_at", Desc: true}},
		1,
	)
	if err != nil {
		return nil, wrapStoreError(ctx, err, "failed to query active conversation")
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return DecodeConversation(docs[0]), nil
}

// ListActive returns every active conversation, most recently updated
// first.
func (r *ConversationRepository) ListActive(ctx context.Context) ([]domain.Conversation, error) {
	docs, err := r.store.Query(ctx, conversationCollection,
		[]docstore.Filter{docstore.Eq("active", true)},
		[]docstore.OrderBy{{Field: "updated_at", Desc: true}},
		0,
	)
	if err != nil {
		return nil, wrapStoreError(ctx, err, "failed to list active conversations")
	}
	return decodeConversations(docs), nil
}

// ListActiveByClientID returns the client's active conversations, most
// recently updated first.
func (r *ConversationRepository) ListActiveByClientID(ctx context.Context, clientID string) ([]domain.Conversation, error) {
	docs, err := r.store.Query(ctx, conversationCollection,
		[]docstore.Filter{
			docstore.Eq("client_id", clientID),
			docstore.Eq("active", true),
		},
		[]docstore.OrderBy{{Field: "updated_at", Desc: true}},
		0,
	)
	if err != nil {
		return nil, wrapStoreError(ctx, err, "failed to list client conversations")
	}
	return decodeConversations(docs), nil
}

// Update writes identity and last-message metadata. The unread counters
// are deliberately excluded; UpdateCounters owns them.
func (r *ConversationRepository) Update(ctx context.Context, conversation *domain.Conversation) error {
	fields := map[string]any{
		"client_name": conversation.ClientName,
		"active":      conversation.Active,
		"updated_at":  docstore.ServerTimestamp,
	}
	if conversation.AdminID != nil {
		fields["admin_id"] = *conversation.AdminID
	}
	if conversation.AdminName != nil {
		fields["admin_name"] = *conversation.AdminName
	}
	if conversation.LastMessage != nil {
		fields["last_message"] = *conversation.LastMessage
	}
	if conversation.LastMessageAt != nil {
		fields["last_message_at"] = *conversation.LastMessageAt
	}
	if err := r.store.Update(ctx, conversationCollection, conversation.ID, fields); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return platformerrors.NewError(ctx,
				platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
				"conversation not found", err)
		}
		return wrapStoreError(ctx, err, "failed to update conversation")
	}
	return nil
}

// UpdateCounters writes only the unread counters so a concurrent
// metadata update cannot clobber them.
func (r *ConversationRepository) UpdateCounters(ctx context.Context, id string, unreadForClient, unreadForAdmin uint) error {
	fields := map[string]any{
		"unread_for_client": unreadForClient,
		"unread_for_admin":  unreadForAdmin,
	}
	if err := r.store.Update(ctx, conversationCollection, id, fields); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return platformerrors.NewError(ctx,
				platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
				"conversation not found", err)
		}
		return wrapStoreError(ctx, err, "failed to update unread counters")
	}
	return nil
}

func decodeConversations(docs []docstore.Document) []domain.Conversation {
	out := make([]domain.Conversation, 0, len(docs))
	for _, doc := range docs {
		out = append(out, *DecodeConversation(doc))
	}
	return out
}

// wrapStoreError classifies a store failure, keeping precondition
// failures distinguishable from generic database errors.
func wrapStoreError(ctx context.Context, err error, message string) error {
	errType := platformerrors.ErrorTypeDatabaseError
	if errors.Is(err, docstore.ErrPreconditionFailed) {
		errType = platformerrors.ErrorTypePreconditionFailed
	}
	return platformerrors.NewError(ctx, platformerrors.LayerRepository, errType, message, err)
}
