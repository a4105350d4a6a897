// Package branch provides the branch ("sucursal") catalog. A branch is the
// scope boundary for all inventory quantities.
package branch

import (
	"context"

	"stocktally/internal/core/apperror"
)

// Branch represents a physical store location.
type Branch struct {
	ID     int64  `db:"id" json:"id"`
	Name   string `db:"name" json:"name"`
	Region string `db:"region" json:"region"`
}

// Validate checks catalog invariants.
func (b *Branch) Validate(ctx context.Context) error {
	if b.ID <= 0 {
		return apperror.NewValidation("branch id is required").
			WithDetail("field", "id")
	}
	if b.Name == "" {
		return apperror.NewValidation("branch name is required").
			WithDetail("field", "name")
	}
	return nil
}

// Repository defines the interface for branch persistence.
type Repository interface {
	// GetByID retrieves a branch by id.
	GetByID(ctx context.Context, branchID int64) (*Branch, error)

	// List retrieves all branches ordered by name.
	List(ctx context.Context) ([]Branch, error)

	// Exists checks if a branch with the given id exists.
	Exists(ctx context.Context, branchID int64) (bool, error)
}
