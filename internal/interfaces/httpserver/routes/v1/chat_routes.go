package v1

import (
	"github.com/gin-gonic/gin"

	"portal-server/services/portal-api/internal/interfaces/httpserver/handlers"
)

func registerChatRoutes(router gin.IRoutes, handler *handlers.ChatHandler) {
	router.GET("/conversations", handler.List)
	router.POST("/conversations", handler.Create)
	router.GET("/conversations/:conversation_id", handler.Get)
	router.GET("/conversations/:conversation_id/messages", handler.Messages)
	router.POST("/conversations/:conversation_id/messages", handler.Send)
	router.POST("/conversations/:conversation_id/read", handler.MarkRead)
	router.GET("/conversations/:conversation_id/stream", handler.Stream)
}
