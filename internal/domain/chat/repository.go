package chat

import "context"

// ConversationRepository persists conversation metadata.
//
// Update writes identity and last-message fields but never the unread
// counters; those are owned by the Ledger through UpdateCounters so a
// metadata write cannot clobber a concurrent counter write.
type ConversationRepository interface {
	Create(ctx context.Context, conversation *Conversation) error
	FindByID(ctx context.Context, id string) (*Conversation, error)
	// FindActiveByClientID returns (nil, nil) when the client has no
	// active conversation.
	FindActiveByClientID(ctx context.Context, clientID string) (*Conversation, error)
	ListActive(ctx context.Context) ([]Conversation, error)
	ListActiveByClientID(ctx context.Context, clientID string) ([]Conversation, error)
	Update(ctx context.Context, conversation *Conversation) error
	UpdateCounters(ctx context.Context, id string, unreadForClient, unreadForAdmin uint) error
}

// MessageSubscription is a live sequence of messages for one
// conversation. Close is idempotent and releases the underlying store
// subscription.
type MessageSubscription interface {
	Messages() <-chan Message
	Close()
}

// MessageRepository persists individual messages.
type MessageRepository interface {
	Append(ctx context.Context, message *Message) error
	// ListByConversation returns all messages ascending by CreatedAt.
	ListByConversation(ctx context.Context, conversationID string) ([]Message, error)
	// ListUnread returns unread messages sent by senderRole, ascending
	// by CreatedAt.
	ListUnread(ctx context.Context, conversationID string, senderRole Role) ([]Message, error)
	CountUnread(ctx context.Context, conversationID string, senderRole Role) (uint, error)
	MarkRead(ctx context.Context, messageID string) error
	Subscribe(ctx context.Context, conversationID string) (MessageSubscription, error)
}
