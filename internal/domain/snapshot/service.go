package snapshot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stocktally/internal/core/apperror"
	"stocktally/internal/core/id"
	"stocktally/internal/core/tx"
	"stocktally/internal/domain/branchscope"
	"stocktally/internal/domain/reconcile"
	"stocktally/internal/domain/registers/ledger"
	"stocktally/pkg/logger"
)

// Step names surfaced when the snapshot sequence fails.
const (
	stepCheckPeriod    = "check period"
	stepPersistReport  = "persist report"
	stepLoadRecords    = "load records"
	stepEmitMovements  = "emit reset movements"
	stepZeroRecords    = "zero records"
	stepVerifyCounts   = "verify reset count"
)

// Service archives reconciliation output and resets the branch register.
// It is the only writer permitted to zero inventory records en masse.
type Service struct {
	reports  Repository
	register ledger.Repository
	txm      tx.Manager
	resolver *branchscope.Resolver
}

// NewService creates a new snapshot service.
func NewService(reports Repository, register ledger.Repository, txm tx.Manager, resolver *branchscope.Resolver) *Service {
	return &Service{
		reports:  reports,
		register: register,
		txm:      txm,
		resolver: resolver,
	}
}

// Result reports one completed snapshot.
type Result struct {
	ReportID         id.ID  `json:"reportId"`
	Period           Period `json:"period"`
	ResetCount       int64  `json:"resetCount"`
	MovementsCreated int    `json:"movementsCreated"`
}

// CreateSnapshotAndReset persists the reconciliation rows as this month's
// immutable report, then zeroes every record the branch holds, emitting one
// "adjustment" movement per record so the zeroing stays traceable to the
// snapshot that caused it.
//
// The whole sequence runs in a single transaction: a failure at any step
// rolls everything back and is reported with the step name. It is never
// retried automatically; a retry would hit the duplicate-period check.
func (s *Service) CreateSnapshotAndReset(ctx context.Context, branchID *int64, rows []reconcile.Row, actingUser string) (Result, error) {
	var result Result

	actor := strings.TrimSpace(actingUser)
	if actor == "" {
		return result, apperror.NewMissingActor()
	}
	if len(rows) == 0 {
		return result, apperror.NewEmptyReport()
	}

	resolved, err := s.resolver.Resolve(ctx, branchID)
	if err != nil {
		return result, err
	}

	period := CurrentPeriod(time.Now().UTC())

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		exists, err := s.reports.Exists(ctx, resolved, period)
		if err != nil {
			return apperror.NewPersistence(stepCheckPeriod, err)
		}
		if exists {
			return apperror.NewDuplicatePeriod(resolved, period.Month, period.Year)
		}

		report := NewMonthlyReport(resolved, period, rows, actor)
		if err := s.reports.Create(ctx, report); err != nil {
			// The unique constraint closes the check-then-act race; keep
			// the duplicate error as-is for the caller.
			if apperror.IsDuplicatePeriod(err) {
				return err
			}
			return apperror.NewPartialSnapshot(stepPersistReport, err)
		}

		records, err := s.register.RecordsWithStock(ctx, resolved)
		if err != nil {
			return apperror.NewPartialSnapshot(stepLoadRecords, err)
		}

		notes := fmt.Sprintf("monthly snapshot %s (%s)", report.ID, period)
		movements := make([]ledger.Movement, 0, len(records))
		for _, rec := range records {
			movements = append(movements, ledger.NewMovement(
				resolved, rec.ProductID, rec.Quantity, 0,
				ledger.TypeAdjustment, actor, notes,
			))
		}
		if err := s.register.InsertMovements(ctx, movements); err != nil {
			return apperror.NewPartialSnapshot(stepEmitMovements, err)
		}

		resetCount, err := s.register.ZeroBranch(ctx, resolved, time.Now().UTC())
		if err != nil {
			return apperror.NewPartialSnapshot(stepZeroRecords, err)
		}

		// Each record with stock must have exactly one reset movement, in
		// either direction: a count committing after the records were read
		// would be zeroed without its audit movement. A mismatch means
		// another writer interleaved; roll everything back.
		if resetCount != int64(len(movements)) {
			return apperror.NewPartialSnapshot(stepVerifyCounts,
				fmt.Errorf("reset %d records but emitted %d movements", resetCount, len(movements)))
		}

		result = Result{
			ReportID:         report.ID,
			Period:           period,
			ResetCount:       resetCount,
			MovementsCreated: len(movements),
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	logger.Info(ctx, "monthly snapshot created",
		"branch_id", resolved,
		"report_id", result.ReportID,
		"period", result.Period.String(),
		"reset_count", result.ResetCount,
	)
	return result, nil
}

// GetByPeriod retrieves an archived report with its full row snapshot.
func (s *Service) GetByPeriod(ctx context.Context, branchID *int64, period Period) (*MonthlyReport, error) {
	resolved, err := s.resolver.Resolve(ctx, branchID)
	if err != nil {
		return nil, err
	}
	if period.Month < 1 || period.Month > 12 || period.Year < 2000 {
		return nil, apperror.NewValidation("invalid period").
			WithDetail("month", period.Month).
			WithDetail("year", period.Year)
	}
	return s.reports.GetByPeriod(ctx, resolved, period)
}

// ListByBranch returns archived report headers, newest period first.
func (s *Service) ListByBranch(ctx context.Context, branchID *int64, limit int) ([]MonthlyReport, error) {
	resolved, err := s.resolver.Resolve(ctx, branchID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 24
	}
	return s.reports.ListByBranch(ctx, resolved, limit)
}
