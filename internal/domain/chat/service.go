package chat

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"portal-server/services/portal-api/internal/infrastructure/metrics"
	"portal-server/services/portal-api/internal/infrastructure/observability"
	"portal-server/services/portal-api/internal/utils/platformerrors"
)

const lastMessagePreviewLimit = 140

// previewOf shortens message content for the conversation envelope,
// counting runes so a multi-byte character is never split.
func previewOf(content string) string {
	runes := []rune(content)
	if len(runes) <= lastMessagePreviewLimit {
		return content
	}
	return string(runes[:lastMessagePreviewLimit])
}

// Service defines the chat engine consumed by the presentation layer.
type Service interface {
	ListConversations(ctx context.Context, viewer Viewer) ([]Conversation, error)
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	CreateConversation(ctx context.Context, clientID, clientName string) (*Conversation, error)
	SendMessage(ctx context.Context, conversationID string, sender Viewer, content string) (*Message, error)
	MarkRead(ctx context.Context, conversationID string, viewerRole Role) error
	StreamMessages(ctx context.Context, conversationID string, viewerRole Role) (*MessageStream, error)
	ListMessages(ctx context.Context, conversationID string) ([]Message, error)
}

// Engine owns conversation lifecycle and message exchange for the two
// participant roles, delegating counter updates to the Ledger.
type Engine struct {
	conversations ConversationRepository
	messages      MessageRepository
	ledger        *Ledger
	log           zerolog.Logger
	streamBuffer  int
}

// NewEngine builds the chat engine.
func NewEngine(
	conversations ConversationRepository,
	messages MessageRepository,
	ledger *Ledger,
	streamBuffer int,
	log zerolog.Logger,
) *Engine {
	return &Engine{
		conversations: conversations,
		messages:      messages,
		ledger:        ledger,
		log:           log.With().Str("component", "chat-engine").Logger(),
		streamBuffer:  streamBuffer,
	}
}

// ListConversations returns the conversations visible to the viewer:
// every active conversation for admins, own conversations for clients,
// both ordered by UpdatedAt descending.
func (e *Engine) ListConversations(ctx context.Context, viewer Viewer) ([]Conversation, error) {
	if !viewer.Role.Valid() || strings.TrimSpace(viewer.ID) == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeForbidden, "viewer identity could not be resolved", nil)
	}
	if viewer.Role == RoleAdmin {
		return e.conversations.ListActive(ctx)
	}
	return e.conversations.ListActiveByClientID(ctx, viewer.ID)
}

// SelectConversation is a pure lookup into an already-fetched list.
func SelectConversation(conversations []Conversation, id string) (*Conversation, bool) {
	for i := range conversations {
		if conversations[i].ID == id {
			return &conversations[i], true
		}
	}
	return nil, false
}

// GetConversation fetches one conversation by id.
func (e *Engine) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	return e.conversations.FindByID(ctx, id)
}

// CreateConversation is idempotent: a client with an active
// conversation gets it back instead of a duplicate, preserving the
// at-most-one-active invariant. Admin identity stays unset until the
// first admin reply.
func (e *Engine) CreateConversation(ctx context.Context, clientID, clientName string) (*Conversation, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation, "client id must not be empty", nil)
	}

	existing, err := e.conversations.FindActiveByClientID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	conv := NewConversation(clientID, clientName)
	if err := e.conversations.Create(ctx, conv); err != nil {
		return nil, err
	}
	e.log.Info().Str("conversation_id", conv.ID).Str("client_id", clientID).Msg("conversation created")
	return conv, nil
}

// SendMessage validates, appends the message, updates the conversation
// envelope, and increments the recipient's unread counter. Store
// failures after the append surface as SEND_FAILED and are not retried
// here; a later reconcile heals any counter drift. Callers retrying the
// whole operation may produce duplicate messages.
func (e *Engine) SendMessage(ctx context.Context, conversationID string, sender Viewer, content string) (*Message, error) {
	ctx, span := observability.StartSendSpan(ctx, conversationID, sender.Role.String())
	defer span.End()

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation, "message content must not be empty", nil)
	}
	if !sender.Role.Valid() {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeForbidden, "sender role could not be resolved", nil)
	}

	conv, err := e.conversations.FindByID(ctx, conversationID)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	if !conv.Active {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation, "conversation is not active", nil)
	}

	msg := NewMessage(conversationID, sender.ID, sender.Role, content)
	if err := e.messages.Append(ctx, msg); err != nil {
		observability.RecordError(span, err)
		metrics.MessagesSentTotal.WithLabelValues(sender.Role.String(), "error").Inc()
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeSendFailed, "message append failed", err)
	}

	preview := previewOf(content)
	conv.LastMessage = &preview
	conv.LastMessageAt = &msg.CreatedAt
	if sender.Role == RoleAdmin && conv.AdminID == nil {
		adminID := sender.ID
		conv.AdminID = &adminID
		if sender.Name != "" {
			adminName := sender.Name
			conv.AdminName = &adminName
		}
	}
	if err := e.conversations.Update(ctx, conv); err != nil {
		observability.RecordError(span, err)
		metrics.MessagesSentTotal.WithLabelValues(sender.Role.String(), "error").Inc()
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeSendFailed, "conversation update failed after append", err)
	}
	if err := e.ledger.Increment(ctx, conversationID, sender.Role.Other()); err != nil {
		observability.RecordError(span, err)
		metrics.MessagesSentTotal.WithLabelValues(sender.Role.String(), "error").Inc()
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeSendFailed, "unread counter update failed after append", err)
	}

	metrics.MessagesSentTotal.WithLabelValues(sender.Role.String(), "ok").Inc()
	return msg, nil
}

// MarkRead flips every unread opposite-role message to read and zeroes
// the viewer's own counter. Idempotent, and monotonic under concurrent
// invocation from multiple sessions of the same viewer.
func (e *Engine) MarkRead(ctx context.Context, conversationID string, viewerRole Role) error {
	if !viewerRole.Valid() {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeForbidden, "viewer role could not be resolved", nil)
	}

	unread, err := e.messages.ListUnread(ctx, conversationID, viewerRole.Other())
	if err != nil {
		return err
	}
	for _, msg := range unread {
		if err := e.messages.MarkRead(ctx, msg.ID); err != nil {
			return err
		}
	}
	return e.ledger.Reset(ctx, conversationID, viewerRole)
}

// ListMessages returns the full history ascending by CreatedAt.
func (e *Engine) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	if _, err := e.conversations.FindByID(ctx, conversationID); err != nil {
		return nil, err
	}
	return e.messages.ListByConversation(ctx, conversationID)
}

// StreamMessages replays the conversation history in CreatedAt order,
// then live-appends new messages. Live delivery of an opposite-role
// message acknowledges it for the streaming viewer via MarkRead.
func (e *Engine) StreamMessages(ctx context.Context, conversationID string, viewerRole Role) (*MessageStream, error) {
	if _, err := e.conversations.FindByID(ctx, conversationID); err != nil {
		return nil, err
	}

	// Subscribe before reading history so no message falls between the
	// snapshot and the live feed; duplicates are dropped by id below.
	sub, err := e.messages.Subscribe(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	history, err := e.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		sub.Close()
		return nil, err
	}

	stream := newMessageStream(e.streamBuffer, sub.Close)
	go e.pump(ctx, stream, sub, history, conversationID, viewerRole)
	return stream, nil
}

func (e *Engine) pump(
	ctx context.Context,
	stream *MessageStream,
	sub MessageSubscription,
	history []Message,
	conversationID string,
	viewerRole Role,
) {
	defer close(stream.out)
	defer stream.Close()

	seen := make(map[string]struct{}, len(history))
	for _, msg := range history {
		seen[msg.ID] = struct{}{}
		if !stream.emit(msg) {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-stream.closed:
			return
		case msg, ok := <-sub.Messages():
			if !ok {
				return
			}
			if _, dup := seen[msg.ID]; dup {
				continue
			}
			seen[msg.ID] = struct{}{}
			if !stream.emit(msg) {
				return
			}
			if msg.SenderRole == viewerRole.Other() && !msg.Read {
				if err := e.MarkRead(ctx, conversationID, viewerRole); err != nil {
					e.log.Warn().Err(err).
						Str("conversation_id", conversationID).
						Msg("stream read acknowledgement failed")
				}
			}
		}
	}
}
