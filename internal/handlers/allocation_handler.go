package handlers

import (
	"net/http"

	"relief_backend/internal/auth"
	"relief_backend/internal/middleware"
	"relief_backend/internal/models"
	"relief_backend/internal/services"
	"relief_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type AllocationHandler struct {
	*BaseHandler
	allocationService services.AllocationService
}

func NewAllocationHandler(base *BaseHandler, allocationService services.AllocationService) *AllocationHandler {
	return &AllocationHandler{
		BaseHandler:       base,
		allocationService: allocationService,
	}
}

func (h *AllocationHandler) RegisterRoutes(r *gin.RouterGroup) {
	allocate := r.Group("/incidents/:id/allocate")
	allocate.Use(h.Auth.AuthMiddleware())
	{
		allocate.POST("", middleware.RequirePermission(auth.PermAllocationCreate), h.CreateAllocation)
		allocate.GET("", h.ListIncidentAllocations)
		allocate.PATCH("", middleware.RequirePermission(auth.PermAllocationDecide), h.DecideAllocation)
	}

	allocations := r.Group("/resource-allocations")
	allocations.Use(h.Auth.AuthMiddleware(), middleware.RequireRoles(append([]models.UserRole{models.UserRoleAdmin}, models.ResponderRoles...)...))
	{
		allocations.GET("", h.ListAllocations)
		allocations.GET("/stats", h.GetStats)
	}
}

func (h *AllocationHandler) CreateAllocation(c *gin.Context) {
	user, ok := h.GetCurrentUser(c)
	if !ok {
		return
	}

	var req dto.CreateAllocationRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	allocation, err := h.allocationService.Create(c.Request.Context(), h.GetDB(c), user, c.Param("id"), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, allocation)
}

func (h *AllocationHandler) ListIncidentAllocations(c *gin.Context) {
	allocations, err := h.allocationService.ListByIncident(c.Request.Context(), h.GetDB(c), c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"allocations": allocations})
}

// DecideAllocation - ACCEPT или DECLINE от назначенного респондента
func (h *AllocationHandler) DecideAllocation(c *gin.Context) {
	user, ok := h.GetCurrentUser(c)
	if !ok {
		return
	}

	var req dto.DecideAllocationRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	allocation, err := h.allocationService.Decide(c.Request.Context(), h.GetDB(c), user, c.Param("id"), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, allocation)
}

func (h *AllocationHandler) ListAllocations(c *gin.Context) {
	user, ok := h.GetCurrentUser(c)
	if !ok {
		return
	}

	var query dto.AllocationListQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}
	page, pageSize := ParsePagination(c)

	resp, err := h.allocationService.List(c.Request.Context(), h.GetDB(c), user, &query, page, pageSize)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *AllocationHandler) GetStats(c *gin.Context) {
	user, ok := h.GetCurrentUser(c)
	if !ok {
		return
	}

	stats, err := h.allocationService.Stats(c.Request.Context(), h.GetDB(c), user)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
