package v1

import (
	"github.com/gin-gonic/gin"

	"portal-server/services/portal-api/internal/interfaces/httpserver/handlers"
)

func registerNotificationRoutes(router gin.IRoutes, handler *handlers.NotificationHandler) {
	router.GET("/notifications", handler.List)
	router.GET("/notifications/stream", handler.Stream)
}
