package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies one of the two conversation participants.
type Role string

const (
	RoleClient Role = "client"
	RoleAdmin  Role = "admin"
)

// Valid reports whether the role is one of the two known participants.
func (r Role) Valid() bool {
	return r == RoleClient || r == RoleAdmin
}

// Other returns the opposite participant role.
func (r Role) Other() Role {
	if r == RoleClient {
		return RoleAdmin
	}
	return RoleClient
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// ParseRole normalises a raw role string.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	return role, role.Valid()
}

// Viewer is the identity an operation executes on behalf of.
type Viewer struct {
	ID    string
	Name  string
	Email string
	Role  Role
}

// Conversation is a persistent two-party messaging thread. The unread
// counters are a denormalised cache over the per-message read flags;
// Ledger.Reconcile can always recompute them.
type Conversation struct {
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

// UnreadFor returns the unread counter for the given viewer role.
func (c *Conversation) UnreadFor(role Role) uint {
	if role == RoleClient {
		return c.UnreadForClient
	}
	return c.UnreadForAdmin
}

// SetUnread sets the unread counter for the given viewer role.
func (c *Conversation) SetUnread(role Role, count uint) {
	if role == RoleClient {
		c.UnreadForClient = count
		return
	}
	c.UnreadForAdmin = count
}

// Message is immutable once created except for the read flag, which
// transitions false to true exactly once.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	SenderRole     Role      `json:"sender_role"`
	Content        string    `json:"content"`
	Read           bool      `json:"read"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewConversation creates an active conversation for a client. Admin
// identity is attached lazily on the first admin reply.
func NewConversation(clientID, clientName string) *Conversation {
	now := time.Now().UTC()
	return &Conversation{
		ID:         "conv_" + uuid.NewString(),
		ClientID:   clientID,
		ClientName: clientName,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// NewMessage creates an unread message. CreatedAt is assigned by the
// store at append time.
func NewMessage(conversationID, senderID string, senderRole Role, content string) *Message {
	return &Message{
		ID:             "msg_" + uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		SenderRole:     senderRole,
		Content:        content,
	}
}
