package notification

import (
	"time"

	"portal-server/services/portal-api/internal/domain/chat"
)

// statusNew is the intake status that marks orders and submissions as
// not yet handled.
const statusNew = "new"

// OrderRecord is the slice of an order the feed cares about.
type OrderRecord struct {
	ID        string
	Name      string
	Email     string
	Status    string
	CreatedAt time.Time
}

// SubmissionRecord is the slice of a survey or form submission the feed
// cares about.
type SubmissionRecord struct {
	ID        string
	Name      string
	Email     string
	Status    string
	CreatedAt time.Time
}

// MapConversation projects a conversation into a chat notification for
// the given viewer. The viewer's own unread counter drives both the
// read and the new flags.
func MapConversation(conv chat.Conversation, viewerRole chat.Role) Notification {
	title := "Support chat"
	if viewerRole == chat.RoleAdmin {
		title = conv.ClientName
	}
	message := ""
	if conv.LastMessage != nil {
		message = *conv.LastMessage
	}
	date := conv.UpdatedAt
	if conv.LastMessageAt != nil {
		date = *conv.LastMessageAt
	}
	unread := conv.UnreadFor(viewerRole)
	return Notification{
		ID:         conv.ID,
		SourceType: SourceMessage,
		Title:      title,
		Message:    message,
		Date:       date,
		Read:       unread == 0,
		IsNew:      unread > 0,
		Link:       "/chat/" + conv.ID,
	}
}

// MapOrder projects an order into a notification.
func MapOrder(order OrderRecord) Notification {
	isNew := order.Status == statusNew
	return Notification{
		ID:         order.ID,
		SourceType: SourceOrder,
		Title:      order.Name,
		Message:    "Order " + order.Status,
		Date:       order.CreatedAt,
		Read:       !isNew,
		IsNew:      isNew,
		Link:       "/orders/" + order.ID,
		Status:     order.Status,
	}
}

// MapSubmission projects a survey or form submission into a
// notification. kind must be SourceSurvey or SourceForm.
func MapSubmission(sub SubmissionRecord, kind SourceType) Notification {
	isNew := sub.Status == statusNew
	title := sub.Name
	if title == "" {
		title = sub.Email
	}
	link := "/submissions/forms/" + sub.ID
	if kind == SourceSurvey {
		link = "/submissions/surveys/" + sub.ID
	}
	return Notification{
		ID:         sub.ID,
		SourceType: kind,
		Title:      title,
		Message:    "Submission " + sub.Status,
		Date:       sub.CreatedAt,
		Read:       !isNew,
		IsNew:      isNew,
		Link:       link,
		Status:     sub.Status,
	}
}
