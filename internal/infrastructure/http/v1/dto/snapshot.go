package dto

import (
	"stocktally/internal/domain/reconcile"
)

// CreateSnapshotRequest archives the submitted reconciliation rows and resets
// the branch.
type CreateSnapshotRequest struct {
	BranchID *int64          `json:"branchId"`
	Rows     []reconcile.Row `json:"rows" binding:"required"`
}
