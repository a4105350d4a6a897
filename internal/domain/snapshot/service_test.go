package snapshot

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocktally/internal/core/apperror"
	"stocktally/internal/core/id"
	"stocktally/internal/domain/branchscope"
	"stocktally/internal/domain/reconcile"
	"stocktally/internal/domain/registers/ledger"
)

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type periodKey struct {
	branchID int64
	month    int
	year     int
}

type fakeReportRepo struct {
	mu      sync.Mutex
	reports map[periodKey]*MonthlyReport
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{reports: make(map[periodKey]*MonthlyReport)}
}

func (f *fakeReportRepo) Create(ctx context.Context, report *MonthlyReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := periodKey{report.BranchID, report.Month, report.Year}
	if _, exists := f.reports[key]; exists {
		return apperror.NewDuplicatePeriod(report.BranchID, report.Month, report.Year)
	}
	f.reports[key] = report
	return nil
}

func (f *fakeReportRepo) Exists(ctx context.Context, branchID int64, period Period) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, exists := f.reports[periodKey{branchID, period.Month, period.Year}]
	return exists, nil
}

func (f *fakeReportRepo) GetByPeriod(ctx context.Context, branchID int64, period Period) (*MonthlyReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if report, ok := f.reports[periodKey{branchID, period.Month, period.Year}]; ok {
		return report, nil
	}
	return nil, apperror.NewNotFound("monthly report", period.String())
}

func (f *fakeReportRepo) ListByBranch(ctx context.Context, branchID int64, limit int) ([]MonthlyReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []MonthlyReport
	for _, report := range f.reports {
		if report.BranchID == branchID && len(out) < limit {
			header := *report
			header.Rows = nil
			out = append(out, header)
		}
	}
	return out, nil
}

// fakeRegister implements the slice of ledger.Repository the snapshot
// service touches.
type fakeRegister struct {
	ledger.Repository

	mu        sync.Mutex
	records   map[int64]int64 // productID -> quantity, single branch
	movements []ledger.Movement

	zeroErr error
	// zeroExtra inflates ZeroBranch's reported row count, as when a count
	// commits between the records read and the bulk zero.
	zeroExtra int64
}

func newFakeRegister(records map[int64]int64) *fakeRegister {
	return &fakeRegister{records: records}
}

func (f *fakeRegister) RecordsWithStock(ctx context.Context, branchID int64) ([]ledger.InventoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ledger.InventoryRecord
	for productID, qty := range f.records {
		if qty > 0 {
			out = append(out, ledger.InventoryRecord{
				ProductID: productID,
				BranchID:  branchID,
				Quantity:  qty,
			})
		}
	}
	return out, nil
}

func (f *fakeRegister) InsertMovements(ctx context.Context, movements []ledger.Movement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.movements = append(f.movements, movements...)
	return nil
}

func (f *fakeRegister) ZeroBranch(ctx context.Context, branchID int64, now time.Time) (int64, error) {
	if f.zeroErr != nil {
		return 0, f.zeroErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for productID, qty := range f.records {
		if qty != 0 {
			f.records[productID] = 0
			n++
		}
	}
	return n + f.zeroExtra, nil
}

func newTestService(reports *fakeReportRepo, register *fakeRegister) *Service {
	resolver := branchscope.NewResolver(func(ctx context.Context) (int64, bool) { return 1, true })
	return NewService(reports, register, fakeTxManager{}, resolver)
}

func sampleRows() []reconcile.Row {
	return []reconcile.Row{
		{Code: "M-1", SystemQuantity: 8, PhysicalQuantity: 15, QuantityVariance: 7},
		{Code: "M-2", SystemQuantity: 5, PhysicalQuantity: 2, QuantityVariance: -3},
	}
}

func TestCreateSnapshotAndReset(t *testing.T) {
	reports := newFakeReportRepo()
	register := newFakeRegister(map[int64]int64{10: 15, 11: 2})
	svc := newTestService(reports, register)

	result, err := svc.CreateSnapshotAndReset(context.Background(), nil, sampleRows(), "ana")
	require.NoError(t, err)

	assert.False(t, id.IsNil(result.ReportID))
	assert.Equal(t, CurrentPeriod(time.Now().UTC()), result.Period)
	assert.Equal(t, int64(2), result.ResetCount)
	assert.Equal(t, 2, result.MovementsCreated)

	// Every record is zeroed.
	for productID, qty := range register.records {
		assert.Zero(t, qty, "product %d must be reset", productID)
	}

	// One adjustment movement per zeroed record, pointing back at the report.
	require.Len(t, register.movements, 2)
	for _, m := range register.movements {
		assert.Equal(t, ledger.TypeAdjustment, m.Type)
		assert.Equal(t, int64(0), m.NewQuantity)
		assert.Equal(t, "ana", m.ActingUser)
		assert.Contains(t, m.Notes, result.ReportID.String())
		assert.Contains(t, m.Notes, result.Period.String())
	}

	// The archived report kept the full rows and computed totals.
	stored, err := reports.GetByPeriod(context.Background(), 1, result.Period)
	require.NoError(t, err)
	assert.Len(t, stored.Rows, 2)
	assert.Equal(t, 2, stored.TotalProducts)
	assert.Equal(t, int64(10), stored.TotalVariance, "sum of absolute variances")
	assert.Equal(t, "ana", stored.CreatedBy)
}

func TestCreateSnapshotAndReset_DuplicatePeriod(t *testing.T) {
	reports := newFakeReportRepo()
	register := newFakeRegister(map[int64]int64{10: 15})
	svc := newTestService(reports, register)
	ctx := context.Background()

	_, err := svc.CreateSnapshotAndReset(ctx, nil, sampleRows(), "ana")
	require.NoError(t, err)

	_, err = svc.CreateSnapshotAndReset(ctx, nil, sampleRows(), "ana")
	assert.True(t, apperror.IsDuplicatePeriod(err))

	// The failed attempt must not add movements.
	assert.Len(t, register.movements, 1)
}

func TestCreateSnapshotAndReset_EmptyRows(t *testing.T) {
	svc := newTestService(newFakeReportRepo(), newFakeRegister(nil))

	_, err := svc.CreateSnapshotAndReset(context.Background(), nil, nil, "ana")
	assert.True(t, apperror.IsCode(err, apperror.CodeEmptyReport))
}

func TestCreateSnapshotAndReset_MissingActor(t *testing.T) {
	svc := newTestService(newFakeReportRepo(), newFakeRegister(nil))

	_, err := svc.CreateSnapshotAndReset(context.Background(), nil, sampleRows(), "  ")
	assert.True(t, apperror.IsCode(err, apperror.CodeMissingActor))
}

func TestCreateSnapshotAndReset_StepFailureSurfacesStep(t *testing.T) {
	reports := newFakeReportRepo()
	register := newFakeRegister(map[int64]int64{10: 15})
	register.zeroErr = fmt.Errorf("connection lost")
	svc := newTestService(reports, register)

	_, err := svc.CreateSnapshotAndReset(context.Background(), nil, sampleRows(), "ana")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodePartialSnapshot))

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "zero records", appErr.Details["step"])
}

func TestCreateSnapshotAndReset_ExtraZeroedRowFails(t *testing.T) {
	reports := newFakeReportRepo()
	register := newFakeRegister(map[int64]int64{10: 15, 11: 2})
	register.zeroExtra = 1
	svc := newTestService(reports, register)

	// A row zeroed without a matching adjustment movement must fail the
	// snapshot, not succeed with a hole in the audit trail.
	_, err := svc.CreateSnapshotAndReset(context.Background(), nil, sampleRows(), "ana")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodePartialSnapshot))

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "verify reset count", appErr.Details["step"])
}

func TestGetByPeriod_Validation(t *testing.T) {
	svc := newTestService(newFakeReportRepo(), newFakeRegister(nil))
	ctx := context.Background()

	_, err := svc.GetByPeriod(ctx, nil, Period{Month: 0, Year: 2026})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = svc.GetByPeriod(ctx, nil, Period{Month: 13, Year: 2026})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = svc.GetByPeriod(ctx, nil, Period{Month: 6, Year: 1999})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestPeriodString(t *testing.T) {
	assert.Equal(t, "03/2026", Period{Month: 3, Year: 2026}.String())
	assert.Equal(t, "12/2025", Period{Month: 12, Year: 2025}.String())
}
