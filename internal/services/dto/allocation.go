package dto

import "relief_backend/internal/models"

type CreateAllocationRequest struct {
	AllocatedToID string `json:"allocatedToId" validate:"required,not-blank"`
	ResourceType  string `json:"resourceType" validate:"required,is-resource-type,max=100"`
	Description   string `json:"description" validate:"omitempty,max=2000"`
	Priority      *int   `json:"priority" validate:"omitempty,min=1,max=5"`
}

// DecideAllocationRequest - решение назначенного респондента
type DecideAllocationRequest struct {
	AllocationID string `json:"allocationId" validate:"required,not-blank"`
	Decision     string `json:"decision" validate:"required,is-allocation-decision"`
	Reason       string `json:"reason" validate:"omitempty,max=1000"`
}

type AllocationListQuery struct {
	Status string `form:"status" validate:"omitempty,is-allocation-status"`
}

type AllocationListResponse struct {
	Allocations []models.ResourceAllocation `json:"allocations"`
	Total       int64                       `json:"total"`
	Page        int                         `json:"page"`
	PageSize    int                         `json:"pageSize"`
	TotalPages  int                         `json:"totalPages"`
}
