package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"stocktally/internal/core/apperror"
	"stocktally/internal/domain/registers/ledger"
	"stocktally/internal/infrastructure/http/v1/dto"
	"stocktally/internal/infrastructure/tabular"
)

// LedgerHandler handles HTTP requests for the inventory register.
type LedgerHandler struct {
	*BaseHandler
	service *ledger.Service
}

// NewLedgerHandler creates a new inventory register handler.
func NewLedgerHandler(base *BaseHandler, service *ledger.Service) *LedgerHandler {
	return &LedgerHandler{
		BaseHandler: base,
		service:     service,
	}
}

// RegisterCount handles POST /counts
func (h *LedgerHandler) RegisterCount(c *gin.Context) {
	var req dto.RegisterCountRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.RegisterCount(c.Request.Context(), ledger.CountInput{
		ProductID:     req.ProductID,
		BranchID:      req.BranchID,
		AddedQuantity: req.AddedQuantity,
		ActingUser:    h.ActorName(c),
		Type:          ledger.MovementType(req.Type),
		Notes:         req.Notes,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}

// ResetQuantity handles POST /counts/reset
func (h *LedgerHandler) ResetQuantity(c *gin.Context) {
	var req dto.ResetQuantityRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.ResetToZero(c.Request.Context(), ledger.ResetInput{
		ProductID:  req.ProductID,
		BranchID:   req.BranchID,
		ActingUser: h.ActorName(c),
		Notes:      req.Notes,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}

// GetQuantity handles GET /records/:productId
func (h *LedgerHandler) GetQuantity(c *gin.Context) {
	productID, ok := h.ParseInt64Param(c, "productId")
	if !ok {
		return
	}
	branchID, ok := h.BranchQuery(c)
	if !ok {
		return
	}

	record, err := h.service.CurrentQuantity(c.Request.Context(), productID, branchID)
	if err != nil {
		h.Error(c, err)
		return
	}

	resp := dto.QuantityResponse{ProductID: productID}
	if record != nil {
		resp.BranchID = record.BranchID
		resp.Quantity = record.Quantity
		resp.LastCountedAt = record.LastCountedAt.Format(time.RFC3339)
	}

	h.OK(c, resp)
}

// GetTotal handles GET /records/:productId/total
func (h *LedgerHandler) GetTotal(c *gin.Context) {
	productID, ok := h.ParseInt64Param(c, "productId")
	if !ok {
		return
	}

	total, err := h.service.TotalAcrossBranches(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{
		"productId":     productID,
		"totalQuantity": total,
	})
}

// GetMovements handles GET /movements
func (h *LedgerHandler) GetMovements(c *gin.Context) {
	branchID, ok := h.BranchQuery(c)
	if !ok {
		return
	}

	filter, ok := h.movementFilter(c)
	if !ok {
		return
	}

	page, err := h.service.FilteredMovements(c.Request.Context(), branchID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, page)
}

// GetRecentMovements handles GET /movements/recent
func (h *LedgerHandler) GetRecentMovements(c *gin.Context) {
	branchID, ok := h.BranchQuery(c)
	if !ok {
		return
	}
	limit := h.ParseIntQuery(c, "limit", 0)

	movements, err := h.service.RecentMovements(c.Request.Context(), branchID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"items": movements})
}

// ExportMovements handles GET /movements/export
// Streams the filtered history as an XLSX download.
func (h *LedgerHandler) ExportMovements(c *gin.Context) {
	branchID, ok := h.BranchQuery(c)
	if !ok {
		return
	}

	filter, ok := h.movementFilter(c)
	if !ok {
		return
	}

	movements, err := h.service.ExportMovements(c.Request.Context(), branchID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	filename := tabular.ExportFilename("movimientos", time.Now())
	c.Header("Content-Type", tabular.ContentTypeXLSX)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := tabular.WriteMovements(c.Writer, movements); err != nil {
		h.Error(c, err)
	}
}

func (h *LedgerHandler) movementFilter(c *gin.Context) (ledger.MovementFilter, bool) {
	filter := ledger.MovementFilter{
		Search:   c.Query("search"),
		Page:     h.ParseIntQuery(c, "page", 0),
		PageSize: h.ParseIntQuery(c, "pageSize", 0),
	}

	if t := c.Query("type"); t != "" {
		mt := ledger.MovementType(t)
		filter.Type = &mt
	}

	if from := c.Query("from"); from != "" {
		parsed, err := time.Parse(time.RFC3339, from)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid from date").WithDetail("value", from))
			return filter, false
		}
		filter.FromDate = &parsed
	}

	if to := c.Query("to"); to != "" {
		parsed, err := time.Parse(time.RFC3339, to)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid to date").WithDetail("value", to))
			return filter, false
		}
		filter.ToDate = &parsed
	}

	return filter, true
}
