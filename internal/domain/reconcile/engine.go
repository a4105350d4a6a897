// Package reconcile diffs an externally supplied system-of-record dataset
// (ERP export) against the branch's internally accumulated physical counts.
package reconcile

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stocktally/internal/core/types"
	"stocktally/internal/domain/branchscope"
	"stocktally/internal/domain/registers/ledger"
	"stocktally/pkg/logger"
)

// Row is one per-product variance line. Ephemeral: recomputed on every run,
// persisted only when snapshotted.
type Row struct {
	Code             string       `json:"code"`
	Description      string       `json:"description,omitempty"`
	SystemQuantity   int64        `json:"systemQuantity"`
	PhysicalQuantity int64        `json:"physicalQuantity"`
	QuantityVariance int64        `json:"quantityVariance"`
	UnitValue        *types.Money `json:"unitValue,omitempty"`
	CostVariance     types.Money  `json:"costVariance"`
}

// Summary aggregates one reconciliation run.
type Summary struct {
	TotalRows         int         `json:"totalRows"`
	PositiveVariance  int         `json:"positiveVariance"`
	NegativeVariance  int         `json:"negativeVariance"`
	ZeroVariance      int         `json:"zeroVariance"`
	TotalCostVariance types.Money `json:"totalCostVariance"`
}

// Report is the full output of one reconciliation run.
type Report struct {
	BranchID    int64     `json:"branchId"`
	Rows        []Row     `json:"rows"`
	Summary     Summary   `json:"summary"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// BalanceSource is the bulk read the engine needs from the ledger.
type BalanceSource interface {
	CodedQuantities(ctx context.Context, branchID int64) ([]ledger.CodedQuantity, error)
}

// Engine matches external rows to physical counts by product code and
// computes variances.
type Engine struct {
	balances BalanceSource
	resolver *branchscope.Resolver
}

// NewEngine creates a reconciliation engine.
func NewEngine(balances BalanceSource, resolver *branchscope.Resolver) *Engine {
	return &Engine{balances: balances, resolver: resolver}
}

// Reconcile runs one full diff of externalRows against the branch's current
// quantities. One bulk load builds a code-indexed lookup (every code a
// product carries maps independently to its quantity), turning the per-row
// match into O(n+m) instead of a nested scan.
func (e *Engine) Reconcile(ctx context.Context, branchID *int64, externalRows []ExternalRow) (*Report, error) {
	resolved, err := e.resolver.Resolve(ctx, branchID)
	if err != nil {
		return nil, err
	}

	quantities, err := e.balances.CodedQuantities(ctx, resolved)
	if err != nil {
		return nil, err
	}
	lookup := buildLookup(ctx, quantities)

	report := &Report{
		BranchID:    resolved,
		Rows:        make([]Row, 0, len(externalRows)),
		GeneratedAt: time.Now().UTC(),
	}
	report.Summary.TotalCostVariance = decimal.Zero

	for _, ext := range externalRows {
		code := strings.TrimSpace(ext.Code)
		if code == "" {
			// Not a variance, not an error: the export padding rows carry
			// no code.
			continue
		}

		// Absent code means "never counted here", an expected state.
		physical := lookup[code]
		variance := physical - ext.SystemQuantity

		row := Row{
			Code:             code,
			Description:      ext.Description,
			SystemQuantity:   ext.SystemQuantity,
			PhysicalQuantity: physical,
			QuantityVariance: variance,
			UnitValue:        ext.UnitValue,
			CostVariance:     decimal.Zero,
		}
		if ext.UnitValue != nil {
			row.CostVariance = decimal.NewFromInt(variance).Mul(*ext.UnitValue)
		}

		report.Rows = append(report.Rows, row)
		report.Summary.TotalRows++
		switch {
		case variance > 0:
			report.Summary.PositiveVariance++
		case variance < 0:
			report.Summary.NegativeVariance++
		default:
			report.Summary.ZeroVariance++
		}
		report.Summary.TotalCostVariance = report.Summary.TotalCostVariance.Add(row.CostVariance)
	}

	logger.Info(ctx, "reconciliation computed",
		"branch_id", resolved,
		"rows", report.Summary.TotalRows,
		"positive", report.Summary.PositiveVariance,
		"negative", report.Summary.NegativeVariance,
	)
	return report, nil
}

// buildLookup indexes every code a product carries to its current quantity.
// When two products (incorrectly) share a code, the later row wins
// deterministically (input is ordered by product id) and the collision is
// logged as a catalog data quality issue, surfaced but not fatal.
func buildLookup(ctx context.Context, quantities []ledger.CodedQuantity) map[string]int64 {
	lookup := make(map[string]int64, len(quantities)*2)
	owner := make(map[string]int64, len(quantities)*2)

	add := func(codePtr *string, q ledger.CodedQuantity) {
		if codePtr == nil {
			return
		}
		code := strings.TrimSpace(*codePtr)
		if code == "" {
			return
		}
		if prev, seen := owner[code]; seen && prev != q.ProductID {
			logger.Warn(ctx, "duplicate vendor code across products",
				"code", code,
				"kept_product_id", q.ProductID,
				"shadowed_product_id", prev,
			)
		}
		owner[code] = q.ProductID
		lookup[code] = q.Quantity
	}

	for _, q := range quantities {
		add(q.MRPCode, q)
		add(q.TruperCode, q)
	}
	return lookup
}
