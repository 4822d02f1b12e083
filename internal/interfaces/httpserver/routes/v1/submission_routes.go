package v1

import (
	"github.com/gin-gonic/gin"

	"portal-server/services/portal-api/internal/interfaces/httpserver/handlers"
)

func registerSubmissionRoutes(router gin.IRoutes, handler *handlers.SubmissionHandler) {
	router.PATCH("/orders/:order_id/status", handler.UpdateOrderStatus)
	router.PATCH("/submissions/:submission_id/status", handler.UpdateSubmissionStatus)
}
