package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocktally/internal/core/apperror"
	"stocktally/internal/core/id"
	"stocktally/internal/domain/branchscope"
)

// fakeTxManager runs the function directly; the fake repo is already atomic.
type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type pairKey struct {
	productID int64
	branchID  int64
}

// fakeRepo is an in-memory Repository with the same atomicity guarantees the
// real implementation provides for ApplyCount.
type fakeRepo struct {
	mu        sync.Mutex
	records   map[pairKey]*InventoryRecord
	movements []Movement

	// applyErrs are returned by successive ApplyCount calls before the real
	// behavior kicks in. Used to simulate storage conflicts.
	applyErrs []error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[pairKey]*InventoryRecord)}
}

func (f *fakeRepo) GetRecord(ctx context.Context, productID, branchID int64) (*InventoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.records[pairKey{productID, branchID}]; ok {
		cp := *rec
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeRepo) ApplyCount(ctx context.Context, productID, branchID, added int64, now time.Time) (AppliedCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.applyErrs) > 0 {
		err := f.applyErrs[0]
		f.applyErrs = f.applyErrs[1:]
		if err != nil {
			return AppliedCount{}, err
		}
	}

	key := pairKey{productID, branchID}
	rec, ok := f.records[key]
	if !ok {
		rec = &InventoryRecord{ProductID: productID, BranchID: branchID}
		f.records[key] = rec
	}
	previous := rec.Quantity
	rec.Quantity += added
	rec.LastCountedAt = now
	rec.UpdatedAt = now
	return AppliedCount{Previous: previous, New: rec.Quantity}, nil
}

func (f *fakeRepo) ResetQuantity(ctx context.Context, productID, branchID int64, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pairKey{productID, branchID}
	rec, ok := f.records[key]
	if !ok {
		rec = &InventoryRecord{ProductID: productID, BranchID: branchID}
		f.records[key] = rec
	}
	previous := rec.Quantity
	rec.Quantity = 0
	rec.LastCountedAt = now
	rec.UpdatedAt = now
	return previous, nil
}

func (f *fakeRepo) InsertMovement(ctx context.Context, m Movement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.movements = append(f.movements, m)
	return nil
}

func (f *fakeRepo) InsertMovements(ctx context.Context, movements []Movement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.movements = append(f.movements, movements...)
	return nil
}

func (f *fakeRepo) RecordsWithStock(ctx context.Context, branchID int64) ([]InventoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []InventoryRecord
	for _, rec := range f.records {
		if rec.BranchID == branchID && rec.Quantity > 0 {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (f *fakeRepo) ZeroBranch(ctx context.Context, branchID int64, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, rec := range f.records {
		if rec.BranchID == branchID && rec.Quantity != 0 {
			rec.Quantity = 0
			rec.LastCountedAt = now
			rec.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) RecentMovements(ctx context.Context, branchID int64, limit int) ([]MovementWithProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []MovementWithProduct
	for i := len(f.movements) - 1; i >= 0 && len(out) < limit; i-- {
		if f.movements[i].BranchID == branchID {
			out = append(out, MovementWithProduct{Movement: f.movements[i]})
		}
	}
	return out, nil
}

func (f *fakeRepo) FilteredMovements(ctx context.Context, branchID int64, filter MovementFilter) (MovementPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	page := MovementPage{Page: filter.Page, PageSize: filter.PageSize}
	// Newest first, like the real query.
	for i := len(f.movements) - 1; i >= 0; i-- {
		m := f.movements[i]
		if m.BranchID != branchID {
			continue
		}
		if filter.Type != nil && m.Type != *filter.Type {
			continue
		}
		if filter.ToDate != nil && !m.CreatedAt.Before(*filter.ToDate) {
			continue
		}
		page.TotalCount++
		if filter.PageSize > 0 && len(page.Items) >= filter.PageSize {
			continue
		}
		page.Items = append(page.Items, MovementWithProduct{Movement: m})
	}
	return page, nil
}

func (f *fakeRepo) CodedQuantities(ctx context.Context, branchID int64) ([]CodedQuantity, error) {
	return nil, nil
}

func (f *fakeRepo) TotalQuantityByProduct(ctx context.Context, productID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total int64
	for _, rec := range f.records {
		if rec.ProductID == productID {
			total += rec.Quantity
		}
	}
	return total, nil
}

func newTestService(repo *fakeRepo) *Service {
	resolver := branchscope.NewResolver(func(ctx context.Context) (int64, bool) { return 1, true })
	return NewService(repo, fakeTxManager{}, resolver)
}

func TestRegisterCount_Additive(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	first, err := svc.RegisterCount(ctx, CountInput{
		ProductID:     10,
		AddedQuantity: 5,
		ActingUser:    "ana",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), first.PreviousQuantity)
	assert.Equal(t, int64(5), first.NewQuantity)

	second, err := svc.RegisterCount(ctx, CountInput{
		ProductID:     10,
		AddedQuantity: 3,
		ActingUser:    "ana",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), second.PreviousQuantity)
	assert.Equal(t, int64(8), second.NewQuantity)

	// A count of zero is a valid confirmation of absence.
	third, err := svc.RegisterCount(ctx, CountInput{
		ProductID:     10,
		AddedQuantity: 0,
		ActingUser:    "ana",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(8), third.NewQuantity)

	require.Len(t, repo.movements, 3)
	for _, m := range repo.movements {
		assert.Equal(t, TypeCount, m.Type)
		assert.Equal(t, "ana", m.ActingUser)
		assert.False(t, id.IsNil(m.LineID), "movement must carry a line id")
	}
	assert.Equal(t, int64(0), repo.movements[0].PreviousQuantity)
	assert.Equal(t, int64(5), repo.movements[0].NewQuantity)
	assert.Equal(t, int64(5), repo.movements[1].PreviousQuantity)
	assert.Equal(t, int64(8), repo.movements[1].NewQuantity)
}

func TestRegisterCount_ConcurrentCountsAllLand(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RegisterCount(context.Background(), CountInput{
				ProductID:     42,
				AddedQuantity: 2,
				ActingUser:    "ana",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	rec, err := repo.GetRecord(context.Background(), 42, 1)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, int64(workers*2), rec.Quantity, "no count may be lost")
	assert.Len(t, repo.movements, workers, "every count leaves exactly one movement")
}

func TestRegisterCount_Validation(t *testing.T) {
	svc := newTestService(newFakeRepo())
	ctx := context.Background()

	_, err := svc.RegisterCount(ctx, CountInput{ProductID: 1, AddedQuantity: -1, ActingUser: "ana"})
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidQuantity))

	_, err = svc.RegisterCount(ctx, CountInput{ProductID: 1, AddedQuantity: 1, ActingUser: "   "})
	assert.True(t, apperror.IsCode(err, apperror.CodeMissingActor))

	_, err = svc.RegisterCount(ctx, CountInput{ProductID: 0, AddedQuantity: 1, ActingUser: "ana"})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = svc.RegisterCount(ctx, CountInput{ProductID: 1, AddedQuantity: 1, ActingUser: "ana", Type: "bogus"})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestRegisterCount_NoBranchContext(t *testing.T) {
	repo := newFakeRepo()
	resolver := branchscope.NewResolver(func(ctx context.Context) (int64, bool) { return 0, false })
	svc := NewService(repo, fakeTxManager{}, resolver)

	_, err := svc.RegisterCount(context.Background(), CountInput{
		ProductID:     1,
		AddedQuantity: 1,
		ActingUser:    "ana",
	})
	assert.True(t, apperror.IsCode(err, apperror.CodeMissingBranchContext))
	assert.Empty(t, repo.movements)
}

func TestRegisterCount_RetriesOnLostUpdate(t *testing.T) {
	repo := newFakeRepo()
	repo.applyErrs = []error{
		apperror.NewLostUpdate(1, 1),
		apperror.NewLostUpdate(1, 1),
	}
	svc := newTestService(repo)

	result, err := svc.RegisterCount(context.Background(), CountInput{
		ProductID:     1,
		AddedQuantity: 4,
		ActingUser:    "ana",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), result.NewQuantity)
	assert.Len(t, repo.movements, 1)
}

func TestRegisterCount_GivesUpAfterMaxRetries(t *testing.T) {
	repo := newFakeRepo()
	repo.applyErrs = []error{
		apperror.NewLostUpdate(1, 1),
		apperror.NewLostUpdate(1, 1),
		apperror.NewLostUpdate(1, 1),
	}
	svc := newTestService(repo)

	_, err := svc.RegisterCount(context.Background(), CountInput{
		ProductID:     1,
		AddedQuantity: 4,
		ActingUser:    "ana",
	})
	assert.True(t, apperror.IsLostUpdate(err))
	assert.Empty(t, repo.movements)
}

func TestResetToZero_Idempotent(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.RegisterCount(ctx, CountInput{ProductID: 5, AddedQuantity: 12, ActingUser: "ana"})
	require.NoError(t, err)

	first, err := svc.ResetToZero(ctx, ResetInput{ProductID: 5, ActingUser: "luis"})
	require.NoError(t, err)
	assert.Equal(t, int64(12), first.PreviousQuantity)
	assert.Equal(t, int64(0), first.NewQuantity)

	// Resetting again is not an error; it records a 0 -> 0 movement.
	second, err := svc.ResetToZero(ctx, ResetInput{ProductID: 5, ActingUser: "luis"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), second.PreviousQuantity)
	assert.Equal(t, int64(0), second.NewQuantity)

	require.Len(t, repo.movements, 3)
	reset := repo.movements[1]
	assert.Equal(t, TypeAdjustment, reset.Type)
	assert.Equal(t, "luis", reset.ActingUser)
	assert.Equal(t, "manual reset", reset.Notes)
}

func TestResetToZero_NeverCountedPair(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	result, err := svc.ResetToZero(context.Background(), ResetInput{ProductID: 99, ActingUser: "ana"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.PreviousQuantity)
	assert.Equal(t, int64(0), result.NewQuantity)
	require.Len(t, repo.movements, 1)
}

// racingResetRepo lands a first count for the pair immediately before the
// reset statement runs, the tightest interleaving the atomic reset must
// absorb.
type racingResetRepo struct {
	*fakeRepo
}

func (r *racingResetRepo) ResetQuantity(ctx context.Context, productID, branchID int64, now time.Time) (int64, error) {
	if _, err := r.fakeRepo.ApplyCount(ctx, productID, branchID, 7, now); err != nil {
		return 0, err
	}
	return r.fakeRepo.ResetQuantity(ctx, productID, branchID, now)
}

func TestResetToZero_CountLandingBeforeResetIsCaptured(t *testing.T) {
	inner := newFakeRepo()
	repo := &racingResetRepo{fakeRepo: inner}
	resolver := branchscope.NewResolver(func(ctx context.Context) (int64, bool) { return 1, true })
	svc := NewService(repo, fakeTxManager{}, resolver)

	result, err := svc.ResetToZero(context.Background(), ResetInput{ProductID: 3, ActingUser: "ana"})
	require.NoError(t, err)

	// The reset movement must state the quantity it actually displaced, not
	// the zero a stale pre-read would have reported.
	assert.Equal(t, int64(7), result.PreviousQuantity)
	assert.Equal(t, int64(0), result.NewQuantity)

	require.Len(t, inner.movements, 1)
	assert.Equal(t, int64(7), inner.movements[0].PreviousQuantity)
	assert.Equal(t, int64(0), inner.movements[0].NewQuantity)

	rec, err := inner.GetRecord(context.Background(), 3, 1)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, int64(0), rec.Quantity)
}

// seedMovements fills the fake with branch-1 movements carrying strictly
// ascending timestamps, oldest first.
func seedMovements(repo *fakeRepo, n int) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		repo.movements = append(repo.movements, Movement{
			LineID:    id.New(),
			BranchID:  1,
			ProductID: int64(i + 1),
			Type:      TypeCount,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}
}

// insertOnFirstPageRepo appends a brand-new movement after serving the first
// chunk, as when a count commits while an export is running.
type insertOnFirstPageRepo struct {
	*fakeRepo
	served bool
}

func (r *insertOnFirstPageRepo) FilteredMovements(ctx context.Context, branchID int64, filter MovementFilter) (MovementPage, error) {
	page, err := r.fakeRepo.FilteredMovements(ctx, branchID, filter)
	if !r.served {
		r.served = true
		r.fakeRepo.movements = append(r.fakeRepo.movements, Movement{
			LineID:    id.New(),
			BranchID:  branchID,
			ProductID: 9999,
			Type:      TypeCount,
			CreatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		})
	}
	return page, err
}

func TestExportMovements_KeysetWalkIsStable(t *testing.T) {
	inner := newFakeRepo()
	seedMovements(inner, 1200)
	repo := &insertOnFirstPageRepo{fakeRepo: inner}
	resolver := branchscope.NewResolver(func(ctx context.Context) (int64, bool) { return 1, true })
	svc := NewService(repo, fakeTxManager{}, resolver)

	all, err := svc.ExportMovements(context.Background(), nil, MovementFilter{})
	require.NoError(t, err)

	// The row inserted mid-export falls outside the keyset window; the 1200
	// original rows come back exactly once each, with no offset drift.
	require.Len(t, all, 1200)
	seen := make(map[id.ID]bool, len(all))
	for _, m := range all {
		assert.False(t, seen[m.LineID], "movement %s exported twice", m.LineID)
		seen[m.LineID] = true
	}
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i-1].CreatedAt.Before(all[i].CreatedAt), "export must stay newest first")
	}
}

func TestExportMovements_CapsRows(t *testing.T) {
	repo := newFakeRepo()
	seedMovements(repo, 50050)
	svc := newTestService(repo)

	all, err := svc.ExportMovements(context.Background(), nil, MovementFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 50000)
}

func TestFilteredMovements_RejectsUnknownType(t *testing.T) {
	svc := newTestService(newFakeRepo())

	bogus := MovementType("bogus")
	_, err := svc.FilteredMovements(context.Background(), nil, MovementFilter{Type: &bogus})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestTotalAcrossBranches(t *testing.T) {
	repo := newFakeRepo()
	resolver := branchscope.NewResolver(func(ctx context.Context) (int64, bool) { return 1, true })
	svc := NewService(repo, fakeTxManager{}, resolver)
	ctx := context.Background()

	branch2 := int64(2)
	_, err := svc.RegisterCount(ctx, CountInput{ProductID: 7, AddedQuantity: 3, ActingUser: "ana"})
	require.NoError(t, err)
	_, err = svc.RegisterCount(ctx, CountInput{ProductID: 7, BranchID: &branch2, AddedQuantity: 4, ActingUser: "ana"})
	require.NoError(t, err)

	total, err := svc.TotalAcrossBranches(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), total)
}
