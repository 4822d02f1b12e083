package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"portal-server/services/portal-api/internal/domain/chat"
	"portal-server/services/portal-api/internal/infrastructure/auth"
	"portal-server/services/portal-api/internal/infrastructure/intake"
	"portal-server/services/portal-api/internal/interfaces/httpserver/requests"
	"portal-server/services/portal-api/internal/interfaces/httpserver/responses"
	"portal-server/services/portal-api/internal/utils/platformerrors"
)

// SubmissionHandler forwards admin status changes for orders and
// submissions to the intake service, which owns those records.
type SubmissionHandler struct {
	updater intake.StatusUpdater
	log     zerolog.Logger
}

// NewSubmissionHandler constructs the handler.
func NewSubmissionHandler(updater intake.StatusUpdater, log zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		updater: updater,
		log:     log.With().Str("handler", "submission").Logger(),
	}
}

// UpdateOrderStatus handles PATCH /v1/orders/:order_id/status
func (h *SubmissionHandler) UpdateOrderStatus(c *gin.Context) {
	status, ok := h.adminStatus(c)
	if !ok {
		return
	}

	if err := h.updater.UpdateOrderStatus(c.Request.Context(), c.Param("order_id"), status); err != nil {
		responses.HandleError(c, err, "failed to update order status")
		return
	}

	c.Status(http.StatusNoContent)
}

// UpdateSubmissionStatus handles PATCH /v1/submissions/:submission_id/status
func (h *SubmissionHandler) UpdateSubmissionStatus(c *gin.Context) {
	status, ok := h.adminStatus(c)
	if !ok {
		return
	}

	if err := h.updater.UpdateSubmissionStatus(c.Request.Context(), c.Param("submission_id"), status); err != nil {
		responses.HandleError(c, err, "failed to update submission status")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *SubmissionHandler) adminStatus(c *gin.Context) (string, bool) {
	viewer, ok := auth.ViewerFrom(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "viewer identity missing")
		return "", false
	}
	if viewer.Role != chat.RoleAdmin {
		responses.HandleNewError(c, platformerrors.ErrorTypeForbidden, "status changes are admin-only")
		return "", false
	}

	var req requests.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid status payload")
		return "", false
	}
	return req.Status, true
}
