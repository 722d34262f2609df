package handlers

import (
	"net/http"

	"relief_backend/internal/auth"
	"relief_backend/internal/middleware"
	"relief_backend/internal/services"
	"relief_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type IncidentHandler struct {
	*BaseHandler
	incidentService services.IncidentService
	statsService    services.StatsService
}

func NewIncidentHandler(base *BaseHandler, incidentService services.IncidentService, statsService services.StatsService) *IncidentHandler {
	return &IncidentHandler{
		BaseHandler:     base,
		incidentService: incidentService,
		statsService:    statsService,
	}
}

func (h *IncidentHandler) RegisterRoutes(r *gin.RouterGroup) {
	incidents := r.Group("/incidents")
	incidents.Use(h.Auth.AuthMiddleware())
	{
		incidents.POST("", middleware.RequirePermission(auth.PermIncidentCreate), h.CreateIncident)
		incidents.GET("", h.ListIncidents)
		incidents.GET("/user-stats", h.GetUserStats)

		incidents.GET("/:id", h.GetIncident)
		incidents.PATCH("/:id", middleware.RequirePermission(auth.PermIncidentManage), h.UpdateIncident)
		incidents.DELETE("/:id", h.DeleteIncident)

		incidents.POST("/:id/status", h.UpdateStatus)
		incidents.POST("/:id/status-report", middleware.RequirePermission(auth.PermStatusReport), h.SubmitStatusReport)
		incidents.POST("/:id/feedback", h.SubmitFeedback)
		incidents.GET("/:id/responses", h.ListResponses)
	}
}

func (h *IncidentHandler) CreateIncident(c *gin.Context) {
	user, ok := h.GetCurrentUser(c)
	if !ok {
		return
	}

	var req dto.CreateIncidentRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	incident, err := h.incidentService.Create(c.Request.Context(), h.GetDB(c), user, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, incident)
}

func (h *IncidentHandler) ListIncidents(c *gin.Context) {
	user, ok := h.GetCurrentUser(c)
	if !ok {
		return
	}

	var query dto.IncidentListQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}
	page, pageSize := ParsePagination(c)

	resp, err := h.incidentService.List(c.Request.Context(), h.GetDB(c), user, &query, page, pageSize)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *IncidentHandler) GetIncident(c *gin.Context) {
	user, ok := h.GetCurrentUser(c)
	if !ok {
		return
	}

	incident, err := h.incidentService.Get(c.Request.Context(), h.GetDB(c), user, c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, incident)
}

func (h *IncidentHandler) UpdateIncident(c *gin.Context) {
	user, ok := h.GetCurrentUser(c)
	if !ok {
		return
	}

	var req dto.UpdateIncidentRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	incident, err := h.incidentService.Update(c.Request.Context(), h.GetDB(c), user, c.Param("id"), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, incident)
}

func (h *IncidentHandler) DeleteIncident(c *gin.Context) {
	user, ok := h.GetCurrentUser(c)
	if !ok {
		return
	}

	if err := h.incidentService.Delete(c.Request.Context(), h.GetDB(c), user, c.Param("id")); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Incident deleted"})
}

func (h *IncidentHandler) UpdateStatus(c *gin.Context) {
	user, ok := h.GetCurrentUser(c)
	if !ok {
		return
	}

	var req dto.UpdateStatusRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	resp, err := h.incidentService.UpdateStatus(c.Request.Context(), h.GetDB(c), user, c.Param("id"), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *IncidentHandler) SubmitStatusReport(c *gin.Context) {
	user, ok := h.GetCurrentUser(c)
	if !ok {
		return
	}

	var req dto.StatusReportRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	response, err := h.incidentService.SubmitStatusReport(c.Request.Context(), h.GetDB(c), user, c.Param("id"), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

func (h *IncidentHandler) SubmitFeedback(c *gin.Context) {
	user, ok := h.GetCurrentUser(c)
	if !ok {
		return
	}

	var req dto.FeedbackRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	response, err := h.incidentService.SubmitFeedback(c.Request.Context(), h.GetDB(c), user, c.Param("id"), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

func (h *IncidentHandler) ListResponses(c *gin.Context) {
	user, ok := h.GetCurrentUser(c)
	if !ok {
		return
	}

	responses, err := h.incidentService.ListResponses(c.Request.Context(), h.GetDB(c), user, c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"responses": responses})
}

func (h *IncidentHandler) GetUserStats(c *gin.Context) {
	user, ok := h.GetCurrentUser(c)
	if !ok {
		return
	}

	stats, err := h.statsService.UserStats(h.GetDB(c), user)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
