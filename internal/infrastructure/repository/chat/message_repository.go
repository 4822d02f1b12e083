package chat

import (
	"context"
	"errors"
	"sync"

	domain "portal-server/services/portal-api/internal/domain/chat"
	"portal-server/services/portal-api/internal/infrastructure/docstore"
	"portal-server/services/portal-api/internal/utils/platformerrors"
)

const messageCollection = "messages"

// MessageRepository persists chat messages in the document store.
type MessageRepository struct {
	store docstore.Store
}

// NewMessageRepository constructs the message repository.
func NewMessageRepository(store docstore.Store) *MessageRepository {
	return &MessageRepository{store: store}
}

var _ domain.MessageRepository = (*MessageRepository)(nil)

// Append stores a new message. CreatedAt is assigned by the store and
// written back into the message.
func (r *MessageRepository) Append(ctx context.Context, message *domain.Message) error {
	fields := map[string]any{
		"conversation_id": message.ConversationID,
		"sender_id":       message.SenderID,
		"sender_role":     message.SenderRole.String(),
		"content":         message.Content,
		"read":            message.Read,
		"created_at":      docstore.ServerTimestamp,
	}
	doc, err := r.store.Put(ctx, messageCollection, message.ID, fields)
	if err != nil {
		return wrapStoreError(ctx, err, "failed to append message")
	}
	message.CreatedAt = doc.CreatedAt
	if t, ok := fieldTime(doc.Fields, "created_at"); ok {
		message.CreatedAt = t
	}
	return nil
}

// ListByConversation returns the full history ascending by CreatedAt.
func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error) {
	docs, err := r.store.Query(ctx, messageCollection,
		[]docstore.Filter{docstore.Eq("conversation_id", conversationID)},
		[]docstore.OrderBy{{Field: "created_at"}},
		0,
	)
	if err != nil {
		return nil, wrapStoreError(ctx, err, "failed to list messages")
	}
	return decodeMessages(docs), nil
}

// ListUnread returns unread messages sent by senderRole, ascending by
// CreatedAt.
func (r *MessageRepository) ListUnread(ctx context.Context, conversationID string, senderRole domain.Role) ([]domain.Message, error) {
	docs, err := r.store.Query(ctx, messageCollection,
		[]docstore.Filter{
			docstore.Eq("conversation_id", conversationID),
			docstore.Eq("sender_role", senderRole.String()),
			docstore.Eq("read", false),
		},
		[]docstore.OrderBy{{Field: "created_at"}},
		0,
	)
	if err != nil {
		return nil, wrapStoreError(ctx, err, "failed to list unread messages")
	}
	return decodeMessages(docs), nil
}

// CountUnread counts unread messages sent by senderRole. This is the
// ground truth the ledger reconciles the cached counters against.
func (r *MessageRepository) CountUnread(ctx context.Context, conversationID string, senderRole domain.Role) (uint, error) {
	msgs, err := r.ListUnread(ctx, conversationID, senderRole)
	if err != nil {
		return 0, err
	}
	return uint(len(msgs)), nil
}

// MarkRead flips a message's read flag. The flag only ever goes from
// false to true, so a repeated call is a harmless overwrite.
func (r *MessageRepository) MarkRead(ctx context.Context, messageID string) error {
	fields := map[string]any{"read": true}
	if err := r.store.Update(ctx, messageCollection, messageID, fields); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return platformerrors.NewError(ctx,
				platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
				"message not found", err)
		}
		return wrapStoreError(ctx, err, "failed to mark message read")
	}
	return nil
}

// Subscribe opens a live feed of message changes for one conversation.
func (r *MessageRepository) Subscribe(ctx context.Context, conversationID string) (domain.MessageSubscription, error) {
	sub, err := r.store.Subscribe(ctx, messageCollection,
		[]docstore.Filter{docstore.Eq("conversation_id", conversationID)},
		[]docstore.OrderBy{{Field: "created_at"}},
	)
	if err != nil {
		return nil, wrapStoreError(ctx, err, "failed to subscribe to messages")
	}

	ms := &messageSubscription{
		inner: sub,
		out:   make(chan domain.Message),
		done:  make(chan struct{}),
	}
	go ms.pump()
	return ms, nil
}

func decodeMessages(docs []docstore.Document) []domain.Message {
	out := make([]domain.Message, 0, len(docs))
	for _, doc := range docs {
		out = append(out, decodeMessage(doc))
	}
	return out
}

// messageSubscription adapts a docstore subscription to the domain
// message channel.
type messageSubscription struct {
	inner     docstore.Subscription
	out       chan domain.Message
	done      chan struct{}
	closeOnce sync.Once
}

func (s *messageSubscription) Messages() <-chan domain.Message {
	return s.out
}

func (s *messageSubscription) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.inner.Close()
	})
}

func (s *messageSubscription) pump() {
	defer close(s.out)
	for change := range s.inner.Changes() {
		select {
		case s.out <- decodeMessage(change.Doc):
		case <-s.done:
			return
		}
	}
}
