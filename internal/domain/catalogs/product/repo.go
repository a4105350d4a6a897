package product

import (
	"context"
)

// ListFilter contains filtering options for product listing.
type ListFilter struct {
	// Search matches against codes, brand and description.
	Search string

	Limit  int
	Offset int
}

// ListResult contains paginated results.
type ListResult struct {
	Items      []Product `json:"items"`
	TotalCount int64     `json:"totalCount"`
	Limit      int       `json:"limit"`
	Offset     int       `json:"offset"`
}

// Repository defines the interface for product persistence.
type Repository interface {
	// GetByID retrieves a product by its internal id.
	GetByID(ctx context.Context, productID int64) (*Product, error)

	// FindByCode retrieves a product by either vendor code (MRP or Truper).
	// Returns NOT_FOUND when no product carries the code.
	FindByCode(ctx context.Context, code string) (*Product, error)

	// List retrieves products with filtering and pagination.
	List(ctx context.Context, filter ListFilter) (ListResult, error)
}
