package ledger

import (
	"context"
	"time"
)

// AppliedCount is the outcome of the atomic increment-or-upsert.
type AppliedCount struct {
	Previous int64
	New      int64
}

// MovementFilter for filtering movement history. All filters are applied
// before pagination; movements are always sorted newest-first.
type MovementFilter struct {
	Type     *MovementType
	FromDate *time.Time
	ToDate   *time.Time

	// Search matches acting user, notes, and product codes/description.
	Search string

	Page     int
	PageSize int
}

// MovementPage contains one page of filtered movements.
type MovementPage struct {
	Items      []MovementWithProduct `json:"items"`
	TotalCount int64                 `json:"totalCount"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"pageSize"`
}

// Repository defines storage operations for the inventory register.
//
// ApplyCount is the single most important contract here: it must be a
// server-side atomic read-modify-write, so two concurrent counts against the
// same (product, branch) pair can never both observe the same previous
// quantity. Implementations map storage-level conflicts (deadlock,
// serialization failure) to LOST_UPDATE_CONFLICT for the service to retry.
type Repository interface {
	// GetRecord returns the current record, or nil when the pair has never
	// been counted (a valid result meaning quantity 0).
	GetRecord(ctx context.Context, productID, branchID int64) (*InventoryRecord, error)

	// ApplyCount atomically adds quantity to the pair's running total,
	// creating the record when absent, and returns the previous and new
	// quantities observed by that single statement.
	ApplyCount(ctx context.Context, productID, branchID, added int64, now time.Time) (AppliedCount, error)

	// ResetQuantity atomically upserts the record to quantity 0 and returns
	// the previous quantity observed by that single statement (0 when the
	// pair was never counted). Same atomicity contract as ApplyCount: a
	// count landing concurrently can never be zeroed unobserved.
	ResetQuantity(ctx context.Context, productID, branchID int64, now time.Time) (int64, error)

	// InsertMovement appends one movement row.
	InsertMovement(ctx context.Context, m Movement) error

	// InsertMovements batch-appends movements (COPY when inside a
	// transaction). Insertion order within the batch is not significant.
	InsertMovements(ctx context.Context, movements []Movement) error

	// RecordsWithStock returns all records for a branch with quantity > 0.
	RecordsWithStock(ctx context.Context, branchID int64) ([]InventoryRecord, error)

	// ZeroBranch sets every record for the branch to quantity 0, refreshing
	// timestamps, and returns how many rows were updated.
	ZeroBranch(ctx context.Context, branchID int64, now time.Time) (int64, error)

	// RecentMovements returns the newest movements for a branch joined with
	// product fields, newest first.
	RecentMovements(ctx context.Context, branchID int64, limit int) ([]MovementWithProduct, error)

	// FilteredMovements returns a page of movement history. Filters are
	// applied query-side before LIMIT/OFFSET.
	FilteredMovements(ctx context.Context, branchID int64, filter MovementFilter) (MovementPage, error)

	// CodedQuantities bulk-loads the branch's current quantities joined with
	// every vendor code the products carry.
	CodedQuantities(ctx context.Context, branchID int64) ([]CodedQuantity, error)

	// TotalQuantityByProduct sums a product's quantity across all branches.
	TotalQuantityByProduct(ctx context.Context, productID int64) (int64, error)
}
