package handlers

import (
	"github.com/rs/zerolog"

	"portal-server/services/portal-api/internal/domain/chat"
	"portal-server/services/portal-api/internal/domain/notification"
	"portal-server/services/portal-api/internal/infrastructure/intake"
)

// Provider wires all HTTP handlers for dependency injection.
type Provider struct {
	Chat         *ChatHandler
	Notification *NotificationHandler
	Submission   *SubmissionHandler
}

// NewProvider constructs the handler provider with domain services.
func NewProvider(
	chatService chat.Service,
	notificationService notification.Service,
	watchers []notification.Watcher,
	statusUpdater intake.StatusUpdater,
	log zerolog.Logger,
) *Provider {
	return &Provider{
		Chat:         NewChatHandler(chatService, log),
		Notification: NewNotificationHandler(notificationService, watchers, log),
		Submission:   NewSubmissionHandler(statusUpdater, log),
	}
}
