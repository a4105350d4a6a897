// Package snapshot archives reconciliation output as immutable monthly
// reports and resets the branch's running quantities.
package snapshot

import (
	"fmt"
	"time"

	"stocktally/internal/core/id"
	"stocktally/internal/domain/reconcile"
)

// Period identifies one archived month.
type Period struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// CurrentPeriod returns the period containing now.
func CurrentPeriod(now time.Time) Period {
	return Period{Month: int(now.Month()), Year: now.Year()}
}

// String formats the period as MM/YYYY.
func (p Period) String() string {
	return fmt.Sprintf("%02d/%d", p.Month, p.Year)
}

// MonthlyReport is an immutable archived reconciliation run for one
// (branch, month, year). At most one exists per key; the storage layer
// enforces uniqueness as a backstop to the service pre-check.
type MonthlyReport struct {
	ID       id.ID `db:"id" json:"id"`
	BranchID int64 `db:"branch_id" json:"branchId"`
	Month    int   `db:"month" json:"month"`
	Year     int   `db:"year" json:"year"`

	// Rows is the full variance dataset captured at snapshot time.
	Rows []reconcile.Row `db:"-" json:"rows"`

	TotalProducts int    `db:"total_products" json:"totalProducts"`
	TotalVariance int64  `db:"total_variance" json:"totalVariance"`
	CreatedBy     string `db:"created_by" json:"createdBy"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewMonthlyReport builds the report row for a snapshot, computing totals
// from the captured rows. TotalVariance is the sum of absolute quantity
// variances.
func NewMonthlyReport(branchID int64, period Period, rows []reconcile.Row, createdBy string) *MonthlyReport {
	var totalVariance int64
	for _, r := range rows {
		v := r.QuantityVariance
		if v < 0 {
			v = -v
		}
		totalVariance += v
	}

	return &MonthlyReport{
		ID:            id.New(),
		BranchID:      branchID,
		Month:         period.Month,
		Year:          period.Year,
		Rows:          rows,
		TotalProducts: len(rows),
		TotalVariance: totalVariance,
		CreatedBy:     createdBy,
		CreatedAt:     time.Now().UTC(),
	}
}

// Period returns the report's period key.
func (r *MonthlyReport) Period() Period {
	return Period{Month: r.Month, Year: r.Year}
}
