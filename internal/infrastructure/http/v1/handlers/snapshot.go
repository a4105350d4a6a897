package handlers

import (
	"github.com/gin-gonic/gin"

	"stocktally/internal/core/apperror"
	"stocktally/internal/domain/snapshot"
	"stocktally/internal/infrastructure/http/v1/dto"
)

// SnapshotHandler handles monthly report creation and retrieval.
type SnapshotHandler struct {
	*BaseHandler
	service *snapshot.Service
}

// NewSnapshotHandler creates a new snapshot handler.
func NewSnapshotHandler(base *BaseHandler, service *snapshot.Service) *SnapshotHandler {
	return &SnapshotHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /snapshots
func (h *SnapshotHandler) Create(c *gin.Context) {
	var req dto.CreateSnapshotRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.CreateSnapshotAndReset(
		c.Request.Context(), req.BranchID, req.Rows, h.ActorName(c),
	)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}

// GetByPeriod handles GET /snapshots/:year/:month
func (h *SnapshotHandler) GetByPeriod(c *gin.Context) {
	year, ok := h.ParseInt64Param(c, "year")
	if !ok {
		return
	}
	month, ok := h.ParseInt64Param(c, "month")
	if !ok {
		return
	}
	branchID, ok := h.BranchQuery(c)
	if !ok {
		return
	}

	period := snapshot.Period{Month: int(month), Year: int(year)}
	report, err := h.service.GetByPeriod(c.Request.Context(), branchID, period)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, report)
}

// List handles GET /snapshots
func (h *SnapshotHandler) List(c *gin.Context) {
	branchID, ok := h.BranchQuery(c)
	if !ok {
		return
	}
	limit := h.ParseIntQuery(c, "limit", 0)
	if limit < 0 {
		h.Error(c, apperror.NewValidation("limit must be non-negative"))
		return
	}

	reports, err := h.service.ListByBranch(c.Request.Context(), branchID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"items": reports})
}
