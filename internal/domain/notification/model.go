// Package notification produces the unified, ranked, filterable feed of
// events relevant to a viewer, merged from sources that share nothing
// but a timestamp.
package notification

import (
	"context"
	"time"

	"portal-server/services/portal-api/internal/domain/chat"
)

// SourceType discriminates the origin of a notification.
type SourceType string

const (
	SourceMessage SourceType = "message"
	SourceOrder   SourceType = "order"
	SourceSurvey  SourceType = "survey"
	SourceForm    SourceType = "form"
)

// Valid reports whether the source type is known.
func (s SourceType) Valid() bool {
	switch s {
	case SourceMessage, SourceOrder, SourceSurvey, SourceForm:
		return true
	}
	return false
}

// Notification is a derived, read-only projection of an underlying
// event. It is never persisted: every fetch re-derives the feed.
type Notification struct {
	ID         string     `json:"id"`
	SourceType SourceType `json:"source_type"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	Date       time.Time  `json:"date"`
	Read       bool       `json:"read"`
	IsNew      bool       `json:"is_new"`
	Link       string     `json:"link"`
	Status     string     `json:"status,omitempty"`
}

// Viewer is the identity the feed is assembled for. Clients are scoped
// to their own id/email; admins see the broad view.
type Viewer struct {
	ID    string
	Email string
	Role  chat.Role
}

// Source is one event source adapter feeding the aggregator. Fetch
// applies the viewer scoping itself (admin: recent/broad, client:
// owner-scoped) and maps raw records into notifications.
type Source interface {
	Name() string
	Fetch(ctx context.Context, viewer Viewer) ([]Notification, error)
}

// Watcher is implemented by sources that can signal live changes, used
// by the chat-sourced live feed. The returned stop func must be called
// on every exit path.
type Watcher interface {
	Watch(ctx context.Context, viewer Viewer) (<-chan struct{}, func(), error)
}
