// Package handlers provides HTTP request handlers.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"stocktally/internal/core/apperror"
	appctx "stocktally/internal/core/context"
	"stocktally/internal/infrastructure/http/v1/dto"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct{}

// NewBaseHandler creates a new base handler.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON binds and validates JSON request body.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// Error registers error on Gin context and aborts request.
// Actual JSON response is produced by middleware.ErrorHandler (single source of truth).
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ParseIntQuery parses integer query parameter with default value.
func (h *BaseHandler) ParseIntQuery(c *gin.Context, key string, defaultVal int) int {
	val := c.Query(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

// ParseInt64Param parses an int64 path parameter.
func (h *BaseHandler) ParseInt64Param(c *gin.Context, key string) (int64, bool) {
	parsed, err := strconv.ParseInt(c.Param(key), 10, 64)
	if err != nil || parsed <= 0 {
		h.Error(c, apperror.NewValidation("invalid "+key).WithDetail("value", c.Param(key)))
		return 0, false
	}
	return parsed, true
}

// BranchQuery parses the optional branchId query parameter. A missing value
// returns nil, leaving branch resolution to the domain layer.
func (h *BaseHandler) BranchQuery(c *gin.Context) (*int64, bool) {
	val := c.Query("branchId")
	if val == "" {
		return nil, true
	}
	parsed, err := strconv.ParseInt(val, 10, 64)
	if err != nil || parsed <= 0 {
		h.Error(c, apperror.NewValidation("invalid branchId").WithDetail("value", val))
		return nil, false
	}
	return &parsed, true
}

// ActorName extracts the acting user's display name from request context.
func (h *BaseHandler) ActorName(c *gin.Context) string {
	return appctx.GetUser(c.Request.Context()).ActorName()
}

// Created sends 201 response with ID.
func (h *BaseHandler) Created(c *gin.Context, id string) {
	c.JSON(http.StatusCreated, dto.IDResponse{ID: id})
}

// OK sends 200 response with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Success sends success response.
func (h *BaseHandler) Success(c *gin.Context, message string) {
	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true, Message: message})
}
