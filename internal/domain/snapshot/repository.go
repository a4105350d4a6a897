package snapshot

import (
	"context"
)

// Repository defines storage operations for monthly reports.
type Repository interface {
	// Create persists an immutable report. A unique-key violation on
	// (branch, month, year) maps to DUPLICATE_PERIOD, the storage backstop
	// for the service's check-then-act pre-check.
	Create(ctx context.Context, report *MonthlyReport) error

	// Exists reports whether a report already exists for the key.
	Exists(ctx context.Context, branchID int64, period Period) (bool, error)

	// GetByPeriod retrieves a report with its full row snapshot.
	GetByPeriod(ctx context.Context, branchID int64, period Period) (*MonthlyReport, error)

	// ListByBranch returns report headers (no rows) for a branch, newest
	// period first.
	ListByBranch(ctx context.Context, branchID int64, limit int) ([]MonthlyReport, error)
}
