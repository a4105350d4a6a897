package product

import (
	"context"
	"strings"

	"stocktally/internal/core/apperror"
)

// Service provides read operations over the product catalog.
type Service struct {
	repo Repository
}

// NewService creates a new product catalog service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetByID retrieves a product by internal id.
func (s *Service) GetByID(ctx context.Context, productID int64) (*Product, error) {
	if productID <= 0 {
		return nil, apperror.NewValidation("product id must be positive")
	}
	return s.repo.GetByID(ctx, productID)
}

// ResolveScannedCode resolves a decoded barcode string against both vendor
// code namespaces. The scanning collaborator delivers the string as-is; only
// whitespace is trimmed here.
func (s *Service) ResolveScannedCode(ctx context.Context, code string) (*Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperror.NewValidation("scanned code is empty")
	}
	return s.repo.FindByCode(ctx, code)
}

// List retrieves products with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 500 {
		filter.Limit = 500
	}
	return s.repo.List(ctx, filter)
}
