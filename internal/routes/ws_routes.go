package routes

import (
	"relief_backend/internal/middleware"
	"relief_backend/ws"

	"github.com/gin-gonic/gin"
)

// SetupWebSocketRoutes - push уведомлений, только авторизованные пользователи
func SetupWebSocketRoutes(api *gin.RouterGroup, authn *middleware.Authenticator, wsHandler *ws.WebSocketHandler) {
	api.GET("/notifications/ws", authn.AuthMiddleware(), wsHandler.ServeWS)
}
