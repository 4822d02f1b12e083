package chat

import (
	"time"

	domain "portal-server/services/portal-api/internal/domain/chat"
	"portal-server/services/portal-api/internal/infrastructure/docstore"
)

// Field coercion helpers. Documents round-trip through JSONB, so a
// field written as uint or time.Time can come back as float64 or an
// RFC3339 string; every reader goes through these.

func fieldString(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

func fieldStringPtr(fields map[string]any, key string) *string {
	if v, ok := fields[key].(string); ok && v != "" {
		return &v
	}
	return nil
}

func fieldBool(fields map[string]any, key string) bool {
	if v, ok := fields[key].(bool); ok {
		return v
	}
	return false
}

func fieldUint(fields map[string]any, key string) uint {
	switch v := fields[key].(type) {
	case uint:
		return v
	case int:
		if v < 0 {
			return 0
		}
		return uint(v)
	case int64:
		if v < 0 {
			return 0
		}
		return uint(v)
	case float64:
		if v < 0 {
			return 0
		}
		return uint(v)
	default:
		return 0
	}
}

func fieldTime(fields map[string]any, key string) (time.Time, bool) {
	switch v := fields[key].(type) {
	case time.Time:
		return v, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	default:
		return time.Time{}, false
	}
}

func fieldTimePtr(fields map[string]any, key string) *time.Time {
	if t, ok := fieldTime(fields, key); ok {
		return &t
	}
	return nil
}

// DecodeConversation maps a document from the conversations collection
// into the domain model. Exported because the notification source for
// chat reuses it.
func DecodeConversation(doc docstore.Document) *domain.Conversation {
	conv := &domain.Conversation{
		ID:              doc.ID,
		ClientID:        fieldString(doc.Fields, "client_id"),
		ClientName:      fieldString(doc.Fields, "client_name"),
		AdminID:         fieldStringPtr(doc.Fields, "admin_id"),
		AdminName:       fieldStringPtr(doc.Fields, "admin_name"),
		LastMessage:     fieldStringPtr(doc.Fields, "last_message"),
		LastMessageAt:   fieldTimePtr(doc.Fields, "last_message_at"),
		UnreadForClient: fieldUint(doc.Fields, "unread_for_client"),
		UnreadForAdmin:  fieldUint(doc.Fields, "unread_for_admin"),
		Active:          fieldBool(doc.Fields, "active"),
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}
	if t, ok := fieldTime(doc.Fields, "created_at"); ok {
		conv.CreatedAt = t
	}
	if t, ok := fieldTime(doc.Fields, "updated_at"); ok {
		conv.UpdatedAt = t
	}
	return conv
}

func decodeMessage(doc docstore.Document) domain.Message {
	msg := domain.Message{
		ID:             doc.ID,
		ConversationID: fieldString(doc.Fields, "conversation_id"),
		SenderID:       fieldString(doc.Fields, "sender_id"),
		SenderRole:     domain.Role(fieldString(doc.Fields, "sender_role")),
		Content:        fieldString(doc.Fields, "content"),
		Read:           fieldBool(doc.Fields, "read"),
		CreatedAt:      doc.CreatedAt,
	}
	if t, ok := fieldTime(doc.Fields, "created_at"); ok {
		msg.CreatedAt = t
	}
	return msg
}
