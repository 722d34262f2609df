package routes

import (
	"relief_backend/internal/handlers"
	"relief_backend/internal/logger"
	"relief_backend/internal/middleware"
	"relief_backend/ws"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все HTTP и WebSocket маршруты.
func RegisterRoutes(
	ginRouter *gin.Engine,
	appHandlers *handlers.AppHandlers,
	wsHandler *ws.WebSocketHandler,
	authn *middleware.Authenticator,
) {
	api := ginRouter.Group("/api")
	{
		appHandlers.AuthHandler.RegisterRoutes(api)
		appHandlers.UserHandler.RegisterRoutes(api)
		appHandlers.IncidentHandler.RegisterRoutes(api)
		appHandlers.AllocationHandler.RegisterRoutes(api)
		appHandlers.NotificationHandler.RegisterRoutes(api)
		appHandlers.UploadHandler.RegisterRoutes(api)
		appHandlers.SupportHandler.RegisterRoutes(api)
	}

	SetupWebSocketRoutes(api, authn, wsHandler)
	logger.Info("Routes registered", "count", len(ginRouter.Routes()))
}
