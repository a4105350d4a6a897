package ledger

import (
	"context"
	"strings"
	"time"

	"stocktally/internal/core/apperror"
	"stocktally/internal/core/tx"
	"stocktally/internal/domain/branchscope"
	"stocktally/pkg/logger"
)

// maxCountRetries bounds automatic retries on LOST_UPDATE_CONFLICT before the
// conflict surfaces as fatal.
const maxCountRetries = 3

// defaultResetNotes is recorded on manual resets when the caller gives none.
const defaultResetNotes = "manual reset"

// Service provides business operations for the inventory register.
type Service struct {
	repo     Repository
	txm      tx.Manager
	resolver *branchscope.Resolver
}

// NewService creates a new ledger service.
func NewService(repo Repository, txm tx.Manager, resolver *branchscope.Resolver) *Service {
	return &Service{
		repo:     repo,
		txm:      txm,
		resolver: resolver,
	}
}

// CountInput describes one scan-derived count to register.
type CountInput struct {
	ProductID int64
	// BranchID, when nil, falls back to the principal's effective branch.
	BranchID      *int64
	AddedQuantity int64
	ActingUser    string
	// Type defaults to "count" when empty.
	Type  MovementType
	Notes string
}

// CountResult reports the quantities around one registered count.
type CountResult struct {
	BranchID         int64 `json:"branchId"`
	ProductID        int64 `json:"productId"`
	PreviousQuantity int64 `json:"previousQuantity"`
	AddedQuantity    int64 `json:"addedQuantity"`
	NewQuantity      int64 `json:"newQuantity"`
}

// ResetInput describes a manual reset of one (product, branch) pair.
type ResetInput struct {
	ProductID  int64
	BranchID   *int64
	ActingUser string
	Notes      string
}

// ResetResult reports the quantities around one reset.
type ResetResult struct {
	BranchID         int64 `json:"branchId"`
	ProductID        int64 `json:"productId"`
	PreviousQuantity int64 `json:"previousQuantity"`
	NewQuantity      int64 `json:"newQuantity"`
}

// CurrentQuantity returns the record for a pair, or nil meaning quantity 0.
func (s *Service) CurrentQuantity(ctx context.Context, productID int64, branchID *int64) (*InventoryRecord, error) {
	resolved, err := s.resolver.Resolve(ctx, branchID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetRecord(ctx, productID, resolved)
}

// RegisterCount adds a scanned amount to the pair's running total and appends
// the audit movement. The movement insert and record upsert are applied as a
// single transaction; the increment itself is one atomic server-side
// statement, so concurrent counts can never lose an update. Storage-level
// conflicts are retried up to maxCountRetries before surfacing.
func (s *Service) RegisterCount(ctx context.Context, in CountInput) (CountResult, error) {
	var result CountResult

	if in.AddedQuantity < 0 {
		return result, apperror.NewInvalidQuantity(in.AddedQuantity)
	}
	actor := strings.TrimSpace(in.ActingUser)
	if actor == "" {
		return result, apperror.NewMissingActor()
	}
	if in.ProductID <= 0 {
		return result, apperror.NewValidation("product id must be positive")
	}
	mType := in.Type
	if mType == "" {
		mType = TypeCount
	}
	if !IsValidMovementType(mType) {
		return result, apperror.NewValidation("unknown movement type").
			WithDetail("type", string(mType))
	}

	branchID, err := s.resolver.Resolve(ctx, in.BranchID)
	if err != nil {
		return result, err
	}

	for attempt := 1; ; attempt++ {
		err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
			applied, err := s.repo.ApplyCount(ctx, in.ProductID, branchID, in.AddedQuantity, time.Now().UTC())
			if err != nil {
				return err
			}

			m := NewMovement(branchID, in.ProductID, applied.Previous, applied.New, mType, actor, in.Notes)
			if err := s.repo.InsertMovement(ctx, m); err != nil {
				return err
			}

			result = CountResult{
				BranchID:         branchID,
				ProductID:        in.ProductID,
				PreviousQuantity: applied.Previous,
				AddedQuantity:    in.AddedQuantity,
				NewQuantity:      applied.New,
			}
			return nil
		})
		if err == nil {
			break
		}
		if !apperror.IsLostUpdate(err) || attempt >= maxCountRetries {
			return CountResult{}, err
		}
		logger.Warn(ctx, "count conflicted, retrying",
			"product_id", in.ProductID,
			"branch_id", branchID,
			"attempt", attempt,
		)
	}

	logger.Info(ctx, "count registered",
		"product_id", in.ProductID,
		"branch_id", branchID,
		"added", in.AddedQuantity,
		"new_quantity", result.NewQuantity,
		"type", string(mType),
	)
	return result, nil
}

// ResetToZero zeroes one pair's running total, recording the audit movement.
// Idempotent: resetting an already-zero (or never-counted) pair produces a
// movement with previous=new=0, not an error, so repeated requests are safe
// to retry. The zeroing is the same single-statement upsert shape as
// RegisterCount, so the movement's previous quantity is exactly what the
// reset displaced even when a first count lands concurrently.
func (s *Service) ResetToZero(ctx context.Context, in ResetInput) (ResetResult, error) {
	var result ResetResult

	actor := strings.TrimSpace(in.ActingUser)
	if actor == "" {
		return result, apperror.NewMissingActor()
	}
	if in.ProductID <= 0 {
		return result, apperror.NewValidation("product id must be positive")
	}
	notes := in.Notes
	if notes == "" {
		notes = defaultResetNotes
	}

	branchID, err := s.resolver.Resolve(ctx, in.BranchID)
	if err != nil {
		return result, err
	}

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		previous, err := s.repo.ResetQuantity(ctx, in.ProductID, branchID, time.Now().UTC())
		if err != nil {
			return err
		}

		m := NewMovement(branchID, in.ProductID, previous, 0, TypeAdjustment, actor, notes)
		if err := s.repo.InsertMovement(ctx, m); err != nil {
			return err
		}

		result = ResetResult{
			BranchID:         branchID,
			ProductID:        in.ProductID,
			PreviousQuantity: previous,
			NewQuantity:      0,
		}
		return nil
	})
	if err != nil {
		return ResetResult{}, err
	}

	logger.Info(ctx, "quantity reset",
		"product_id", in.ProductID,
		"branch_id", branchID,
		"previous", result.PreviousQuantity,
	)
	return result, nil
}

// RecentMovements returns the newest movements for a branch, joined with
// product fields.
func (s *Service) RecentMovements(ctx context.Context, branchID *int64, limit int) ([]MovementWithProduct, error) {
	resolved, err := s.resolver.Resolve(ctx, branchID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	return s.repo.RecentMovements(ctx, resolved, limit)
}

// FilteredMovements returns a page of movement history. Filters are applied
// before pagination, never the other way around.
func (s *Service) FilteredMovements(ctx context.Context, branchID *int64, filter MovementFilter) (MovementPage, error) {
	resolved, err := s.resolver.Resolve(ctx, branchID)
	if err != nil {
		return MovementPage{}, err
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	if filter.PageSize > 500 {
		filter.PageSize = 500
	}
	if filter.Type != nil && !IsValidMovementType(*filter.Type) {
		return MovementPage{}, apperror.NewValidation("unknown movement type").
			WithDetail("type", string(*filter.Type))
	}
	return s.repo.FilteredMovements(ctx, resolved, filter)
}

// ExportMovements collects the full filtered history for a download, walking
// storage newest-first in keyset chunks: each chunk continues strictly below
// the oldest created_at seen, so rows landing mid-export cannot shift the
// window and duplicate or skip entries the way offset paging would. Capped at
// 50000 rows.
func (s *Service) ExportMovements(ctx context.Context, branchID *int64, filter MovementFilter) ([]MovementWithProduct, error) {
	const maxExportRows = 50000
	const exportChunk = 500

	filter.Page = 1
	filter.PageSize = exportChunk

	var all []MovementWithProduct
	for {
		page, err := s.FilteredMovements(ctx, branchID, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		if len(all) >= maxExportRows {
			return all[:maxExportRows], nil
		}
		if len(page.Items) < exportChunk {
			return all, nil
		}
		last := page.Items[len(page.Items)-1].CreatedAt
		filter.ToDate = &last
	}
}

// TotalAcrossBranches sums a product's quantity over every branch. The only
// cross-branch aggregation the register exposes; everything else is strictly
// branch-scoped.
func (s *Service) TotalAcrossBranches(ctx context.Context, productID int64) (int64, error) {
	if productID <= 0 {
		return 0, apperror.NewValidation("product id must be positive")
	}
	return s.repo.TotalQuantityByProduct(ctx, productID)
}
