package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocktally/internal/core/apperror"
	"stocktally/internal/core/types"
	"stocktally/internal/domain/branchscope"
	"stocktally/internal/domain/registers/ledger"
)

type fakeBalances struct {
	quantities []ledger.CodedQuantity
}

func (f *fakeBalances) CodedQuantities(ctx context.Context, branchID int64) ([]ledger.CodedQuantity, error) {
	return f.quantities, nil
}

func strPtr(s string) *string { return &s }

func moneyPtr(s string) *types.Money {
	m := types.MustMoney(s)
	return &m
}

func newTestEngine(quantities []ledger.CodedQuantity) *Engine {
	resolver := branchscope.NewResolver(func(ctx context.Context) (int64, bool) { return 1, true })
	return NewEngine(&fakeBalances{quantities: quantities}, resolver)
}

func TestReconcile_MatchesEitherVendorCode(t *testing.T) {
	engine := newTestEngine([]ledger.CodedQuantity{
		{ProductID: 1, MRPCode: strPtr("M-100"), TruperCode: strPtr("T-100"), Quantity: 15},
	})

	// The export may carry either code for the same product; both must hit
	// the same quantity.
	report, err := engine.Reconcile(context.Background(), nil, []ExternalRow{
		{Code: "M-100", SystemQuantity: 8},
	})
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, int64(15), report.Rows[0].PhysicalQuantity)
	assert.Equal(t, int64(7), report.Rows[0].QuantityVariance)

	report, err = engine.Reconcile(context.Background(), nil, []ExternalRow{
		{Code: "T-100", SystemQuantity: 8},
	})
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, int64(15), report.Rows[0].PhysicalQuantity)
	assert.Equal(t, int64(7), report.Rows[0].QuantityVariance)
}

func TestReconcile_UnmatchedCodeCountsAsZero(t *testing.T) {
	engine := newTestEngine(nil)

	report, err := engine.Reconcile(context.Background(), nil, []ExternalRow{
		{Code: "GHOST", SystemQuantity: 10},
	})
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, int64(0), report.Rows[0].PhysicalQuantity)
	assert.Equal(t, int64(-10), report.Rows[0].QuantityVariance)
}

func TestReconcile_CostVariance(t *testing.T) {
	engine := newTestEngine([]ledger.CodedQuantity{
		{ProductID: 1, MRPCode: strPtr("M-1"), Quantity: 15},
	})

	report, err := engine.Reconcile(context.Background(), nil, []ExternalRow{
		{Code: "M-1", SystemQuantity: 8, UnitValue: moneyPtr("2.50")},
	})
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)

	// variance 7 at 2.50 each
	assert.True(t, report.Rows[0].CostVariance.Equal(types.MustMoney("17.50")),
		"got %s", report.Rows[0].CostVariance)
	assert.True(t, report.Summary.TotalCostVariance.Equal(types.MustMoney("17.50")))
}

func TestReconcile_MissingUnitValueYieldsZeroCost(t *testing.T) {
	engine := newTestEngine([]ledger.CodedQuantity{
		{ProductID: 1, MRPCode: strPtr("M-1"), Quantity: 5},
	})

	report, err := engine.Reconcile(context.Background(), nil, []ExternalRow{
		{Code: "M-1", SystemQuantity: 2},
	})
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.Nil(t, report.Rows[0].UnitValue)
	assert.True(t, report.Rows[0].CostVariance.IsZero())
}

func TestReconcile_SkipsBlankCodes(t *testing.T) {
	engine := newTestEngine(nil)

	report, err := engine.Reconcile(context.Background(), nil, []ExternalRow{
		{Code: "  ", SystemQuantity: 3},
		{Code: "", SystemQuantity: 4},
		{Code: "A-1", SystemQuantity: 1},
	})
	require.NoError(t, err)
	assert.Len(t, report.Rows, 1)
	assert.Equal(t, 1, report.Summary.TotalRows)
}

func TestReconcile_Summary(t *testing.T) {
	engine := newTestEngine([]ledger.CodedQuantity{
		{ProductID: 1, MRPCode: strPtr("A"), Quantity: 10},
		{ProductID: 2, MRPCode: strPtr("B"), Quantity: 4},
		{ProductID: 3, MRPCode: strPtr("C"), Quantity: 6},
	})

	report, err := engine.Reconcile(context.Background(), nil, []ExternalRow{
		{Code: "A", SystemQuantity: 8},  // +2
		{Code: "B", SystemQuantity: 9},  // -5
		{Code: "C", SystemQuantity: 6},  // 0
	})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Summary.TotalRows)
	assert.Equal(t, 1, report.Summary.PositiveVariance)
	assert.Equal(t, 1, report.Summary.NegativeVariance)
	assert.Equal(t, 1, report.Summary.ZeroVariance)
}

func TestReconcile_DuplicateCodeLastWins(t *testing.T) {
	// Two products sharing a code is a catalog defect; the later product
	// (higher id, input ordered by product id) wins deterministically.
	engine := newTestEngine([]ledger.CodedQuantity{
		{ProductID: 1, MRPCode: strPtr("DUP"), Quantity: 3},
		{ProductID: 2, MRPCode: strPtr("DUP"), Quantity: 11},
	})

	report, err := engine.Reconcile(context.Background(), nil, []ExternalRow{
		{Code: "DUP", SystemQuantity: 0},
	})
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, int64(11), report.Rows[0].PhysicalQuantity)
}

func TestReconcile_NoBranchContext(t *testing.T) {
	resolver := branchscope.NewResolver(func(ctx context.Context) (int64, bool) { return 0, false })
	engine := NewEngine(&fakeBalances{}, resolver)

	_, err := engine.Reconcile(context.Background(), nil, nil)
	assert.True(t, apperror.IsCode(err, apperror.CodeMissingBranchContext))
}
