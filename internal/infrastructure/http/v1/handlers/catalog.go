package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"stocktally/internal/core/apperror"
	"stocktally/internal/domain/catalogs/branch"
	"stocktally/internal/domain/catalogs/product"
	"stocktally/internal/infrastructure/http/v1/dto"
)

// ProductHandler handles product catalog reads.
type ProductHandler struct {
	*BaseHandler
	service *product.Service
}

// NewProductHandler creates a new product handler.
func NewProductHandler(base *BaseHandler, service *product.Service) *ProductHandler {
	return &ProductHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Get handles GET /products/:productId
func (h *ProductHandler) Get(c *gin.Context) {
	productID, ok := h.ParseInt64Param(c, "productId")
	if !ok {
		return
	}

	p, err := h.service.GetByID(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, p)
}

// ByCode handles GET /products/by-code/:code
// Resolves a scanned vendor code (either MRP or Truper) to the product.
func (h *ProductHandler) ByCode(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		h.Error(c, apperror.NewValidation("code is required"))
		return
	}

	p, err := h.service.ResolveScannedCode(c.Request.Context(), code)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, p)
}

// List handles GET /products
func (h *ProductHandler) List(c *gin.Context) {
	filter := product.ListFilter{
		Search: c.Query("search"),
		Limit:  h.ParseIntQuery(c, "limit", 0),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      result.Items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// BranchHandler handles branch catalog reads.
type BranchHandler struct {
	*BaseHandler
	repo branch.Repository
}

// NewBranchHandler creates a new branch handler.
func NewBranchHandler(base *BaseHandler, repo branch.Repository) *BranchHandler {
	return &BranchHandler{
		BaseHandler: base,
		repo:        repo,
	}
}

// Get handles GET /branches/:branchId
func (h *BranchHandler) Get(c *gin.Context) {
	branchID, ok := h.ParseInt64Param(c, "branchId")
	if !ok {
		return
	}

	b, err := h.repo.GetByID(c.Request.Context(), branchID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, b)
}

// List handles GET /branches
func (h *BranchHandler) List(c *gin.Context) {
	branches, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"items": branches})
}
