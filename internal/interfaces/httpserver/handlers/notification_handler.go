package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"portal-server/services/portal-api/internal/domain/notification"
	"portal-server/services/portal-api/internal/infrastructure/auth"
	"portal-server/services/portal-api/internal/interfaces/httpserver/responses"
	"portal-server/services/portal-api/internal/utils/platformerrors"
)

// NotificationHandler exposes HTTP entrypoints for the notification feed.
type NotificationHandler struct {
	service  notification.Service
	watchers []notification.Watcher
	log      zerolog.Logger
}

// NewNotificationHandler constructs the handler. Watchers power the SSE
// live feed; an empty set degrades the live feed to a single snapshot.
func NewNotificationHandler(service notification.Service, watchers []notification.Watcher, log zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		service:  service,
		watchers: watchers,
		log:      log.With().Str("handler", "notification").Logger(),
	}
}

// List handles GET /v1/notifications with type, status, window, page and
// page_size query parameters.
func (h *NotificationHandler) List(c *gin.Context) {
	viewer, ok := h.viewer(c)
	if !ok {
		return
	}

	opts := notification.FilterOptions{
		Type:   c.Query("type"),
		Status: notification.StatusFilter(c.DefaultQuery("status", "all")),
		Window: notification.DateWindow(c.DefaultQuery("window", "all")),
	}
	page := intQuery(c, "page", 1)
	pageSize := intQuery(c, "page_size", notification.DefaultPageSize)

	result, degraded, err := h.service.FetchPage(c.Request.Context(), viewer, opts, page, pageSize)
	if err != nil {
		responses.HandleError(c, err, "failed to fetch notifications")
		return
	}

	c.JSON(http.StatusOK, responses.MapFeed(result, degraded))
}

// Stream handles GET /v1/notifications/stream as a server-sent event
// stream: one snapshot immediately, then a fresh one on every source
// change until the client disconnects.
func (h *NotificationHandler) Stream(c *gin.Context) {
	viewer, ok := h.viewer(c)
	if !ok {
		return
	}

	feed := notification.NewLiveFeed(h.log, h.service.FetchAll, h.watchers...)
	updates, err := feed.Run(c.Request.Context(), viewer)
	if err != nil {
		responses.HandleError(c, err, "failed to open notification stream")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case update, open := <-updates:
			if !open {
				return false
			}
			ranked := update.Result.Notifications
			c.SSEvent("feed", gin.H{
				"state":    update.State.String(),
				"data":     ranked,
				"partial":  update.Result.Partial(),
				"degraded": update.Result.Degraded,
			})
			return true
		}
	})
}

func (h *NotificationHandler) viewer(c *gin.Context) (notification.Viewer, bool) {
	chatViewer, ok := auth.ViewerFrom(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "viewer identity missing")
		return notification.Viewer{}, false
	}
	return notification.Viewer{
		ID:    chatViewer.ID,
		Email: chatViewer.Email,
		Role:  chatViewer.Role,
	}, true
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
