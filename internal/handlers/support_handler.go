package handlers

import (
	"net/http"

	"relief_backend/internal/middleware"
	"relief_backend/internal/services"
	"relief_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type SupportHandler struct {
	*BaseHandler
	supportService services.SupportService
}

func NewSupportHandler(base *BaseHandler, supportService services.SupportService) *SupportHandler {
	return &SupportHandler{
		BaseHandler:    base,
		supportService: supportService,
	}
}

func (h *SupportHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/support", h.Auth.OptionalAuth(), h.Submit)
}

// Submit доступен без сессии; при наличии сессии обращение привязывается к пользователю
func (h *SupportHandler) Submit(c *gin.Context) {
	var req dto.SupportRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	ticket, err := h.supportService.Submit(c.Request.Context(), h.GetDB(c), middleware.GetUserID(c), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Support request received",
		"id":      ticket.ID,
	})
}
