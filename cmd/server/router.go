package server

import (
	"github.com/gin-gonic/gin"
	"github.com/ssolovyev/tetatet/internal/handlers"
	"github.com/ssolovyev/tetatet/internal/middleware"
	"github.com/ssolovyev/tetatet/pkg/auth"
)

func APIEndpoints(
	r *gin.Engine,
	jwtMgr *auth.JWTManager,
	wsH *handlers.WebSocketHandler,
	conversationH *handlers.HTTPConversationHandler,
	messageH *handlers.HTTPMessageHandler,
) {
	// Real-time соединение
	r.GET("/ws", middleware.WSAuthMiddleware(jwtMgr), wsH.HandleWebSocket)

	// API endpoints
	api := r.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(jwtMgr))
	{
		api.GET("/conversations", conversationH.GetConversations)
		api.GET("/conversations/check-code", conversationH.CheckConnectCode)
		api.POST("/conversations/:id/messages", messageH.SendMessage)
	}
}
