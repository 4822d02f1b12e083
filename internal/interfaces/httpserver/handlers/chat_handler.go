package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"portal-server/services/portal-api/internal/domain/chat"
	"portal-server/services/portal-api/internal/infrastructure/auth"
	"portal-server/services/portal-api/internal/interfaces/httpserver/requests"
	"portal-server/services/portal-api/internal/interfaces/httpserver/responses"
	"portal-server/services/portal-api/internal/utils/platformerrors"
)

// ChatHandler exposes HTTP entrypoints for the chat engine.
type ChatHandler struct {
	service chat.Service
	log     zerolog.Logger
}

// NewChatHandler constructs the handler.
func NewChatHandler(service chat.Service, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		service: service,
		log:     log.With().Str("handler", "chat").Logger(),
	}
}

// List handles GET /v1/conversations
func (h *ChatHandler) List(c *gin.Context) {
	viewer, ok := auth.ViewerFrom(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "viewer identity missing")
		return
	}

	convs, err := h.service.ListConversations(c.Request.Context(), viewer)
	if err != nil {
		responses.HandleError(c, err, "failed to list conversations")
		return
	}

	c.JSON(http.StatusOK, responses.ConversationListResponse{Data: responses.MapConversations(convs)})
}

// Create handles POST /v1/conversations. Idempotent for clients with an
// active conversation.
func (h *ChatHandler) Create(c *gin.Context) {
	viewer, ok := auth.ViewerFrom(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "viewer identity missing")
		return
	}
	if viewer.Role != chat.RoleClient {
		responses.HandleNewError(c, platformerrors.ErrorTypeForbidden, "only clients open conversations")
		return
	}

	conv, err := h.service.CreateConversation(c.Request.Context(), viewer.ID, viewer.Name)
	if err != nil {
		responses.HandleError(c, err, "failed to create conversation")
		return
	}

	c.JSON(http.StatusOK, responses.MapConversation(conv))
}

// Get handles GET /v1/conversations/:conversation_id
func (h *ChatHandler) Get(c *gin.Context) {
	conv, _, ok := h.resolve(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, responses.MapConversation(conv))
}

// Messages handles GET /v1/conversations/:conversation_id/messages
func (h *ChatHandler) Messages(c *gin.Context) {
	conv, _, ok := h.resolve(c)
	if !ok {
		return
	}

	msgs, err := h.service.ListMessages(c.Request.Context(), conv.ID)
	if err != nil {
		responses.HandleError(c, err, "failed to list messages")
		return
	}

	c.JSON(http.StatusOK, responses.MessageListResponse{Data: responses.MapMessages(msgs)})
}

// Send handles POST /v1/conversations/:conversation_id/messages
func (h *ChatHandler) Send(c *gin.Context) {
	conv, viewer, ok := h.resolve(c)
	if !ok {
		return
	}

	var req requests.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid send payload")
		return
	}

	msg, err := h.service.SendMessage(c.Request.Context(), conv.ID, viewer, req.Content)
	if err != nil {
		responses.HandleError(c, err, "failed to send message")
		return
	}

	c.JSON(http.StatusCreated, responses.MapMessage(msg))
}

// MarkRead handles POST /v1/conversations/:conversation_id/read
func (h *ChatHandler) MarkRead(c *gin.Context) {
	conv, viewer, ok := h.resolve(c)
	if !ok {
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), conv.ID, viewer.Role); err != nil {
		responses.HandleError(c, err, "failed to mark conversation read")
		return
	}

	c.Status(http.StatusNoContent)
}

// Stream handles GET /v1/conversations/:conversation_id/stream as a
// server-sent event stream: full history first, then live messages
// until the client disconnects.
func (h *ChatHandler) Stream(c *gin.Context) {
	conv, viewer, ok := h.resolve(c)
	if !ok {
		return
	}

	stream, err := h.service.StreamMessages(c.Request.Context(), conv.ID, viewer.Role)
	if err != nil {
		responses.HandleError(c, err, "failed to open message stream")
		return
	}
	defer stream.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case msg, open := <-stream.Messages():
			if !open {
				return false
			}
			c.SSEvent("message", responses.MapMessage(&msg))
			return true
		}
	})
}

// resolve loads the conversation from the path parameter and enforces
// viewer access: admins see every conversation, clients only their own.
func (h *ChatHandler) resolve(c *gin.Context) (*chat.Conversation, chat.Viewer, bool) {
	viewer, ok := auth.ViewerFrom(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "viewer identity missing")
		return nil, chat.Viewer{}, false
	}

	conv, err := h.service.GetConversation(c.Request.Context(), c.Param("conversation_id"))
	if err != nil {
		responses.HandleError(c, err, "failed to load conversation")
		return nil, chat.Viewer{}, false
	}

	if viewer.Role == chat.RoleClient && conv.ClientID != viewer.ID {
		responses.HandleNewError(c, platformerrors.ErrorTypeForbidden, "conversation belongs to another client")
		return nil, chat.Viewer{}, false
	}

	return conv, viewer, true
}
