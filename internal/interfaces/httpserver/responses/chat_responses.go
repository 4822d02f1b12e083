package responses

import (
	"time"

	"portal-server/services/portal-api/internal/domain/chat"
)

// ConversationPayload is returned to clients.
type ConversationPayload struct {
	ID              string     `json:"id"`
	ClientID        string     `json:"client_id"`
	ClientName      string     `json:"client_name"`
	AdminID         *string    `json:"admin_id,omitempty"`
	AdminName       *string    `json:"admin_name,omitempty"`
	LastMessage     *string    `json:"last_message,omitempty"`
	LastMessageAt   *time.Time `json:"last_message_at,omitempty"`
	UnreadForClient uint       `json:"unread_for_client"`
	UnreadForAdmin  uint       `json:"unread_for_admin"`
	Active          bool       `json:"active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// MapConversation maps the domain conversation to DTO.
func MapConversation(c *chat.Conversation) ConversationPayload {
	return ConversationPayload{
		ID:              c.ID,
		ClientID:        c.ClientID,
		ClientName:      c.ClientName,
		AdminID:         c.AdminID,
		AdminName:       c.AdminName,
		LastMessage:     c.LastMessage,
		LastMessageAt:   c.LastMessageAt,
		UnreadForClient: c.UnreadForClient,
		UnreadForAdmin:  c.UnreadForAdmin,
		Active:          c.Active,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

// MapConversations maps a slice of domain conversations.
func MapConversations(convs []chat.Conversation) []ConversationPayload {
	out := make([]ConversationPayload, 0, len(convs))
	for i := range convs {
		out = append(out, MapConversation(&convs[i]))
	}
	return out
}

// MessagePayload is returned to clients.
type MessagePayload struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	SenderRole     string    `json:"sender_role"`
	Content        string    `json:"content"`
	Read           bool      `json:"read"`
	CreatedAt      time.Time `json:"created_at"`
}

// MapMessage maps the domain message to DTO.
func MapMessage(m *chat.Message) MessagePayload {
	return MessagePayload{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		SenderRole:     m.SenderRole.String(),
		Content:        m.Content,
		Read:           m.Read,
		CreatedAt:      m.CreatedAt,
	}
}

// MapMessages maps a slice of domain messages.
func MapMessages(msgs []chat.Message) []MessagePayload {
	out := make([]MessagePayload, 0, len(msgs))
	for i := range msgs {
		out = append(out, MapMessage(&msgs[i]))
	}
	return out
}

// ConversationListResponse wraps the conversation list.
type ConversationListResponse struct {
	Data []ConversationPayload `json:"data"`
}

// MessageListResponse wraps the message history.
type MessageListResponse struct {
	Data []MessagePayload `json:"data"`
}
