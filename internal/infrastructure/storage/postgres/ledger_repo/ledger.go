// Package ledger_repo provides the PostgreSQL implementation of the
// inventory register repository.
package ledger_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stocktally/internal/core/apperror"
	"stocktally/internal/domain/registers/ledger"
	"stocktally/internal/infrastructure/storage/postgres"
)

const (
	recordsTable   = "inventory_records"
	movementsTable = "movements"
	productsTable  = "products"
)

var movementColumns = []string{
	"line_id", "branch_id", "product_id",
	"previous_quantity", "new_quantity",
	"movement_type", "acting_user", "notes", "created_at",
}

// LedgerRepo implements ledger.Repository.
type LedgerRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewLedgerRepo creates a new inventory register repository.
func NewLedgerRepo(txm *postgres.TxManager) *LedgerRepo {
	return &LedgerRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetRecord returns the current record, or nil when the pair was never counted.
func (r *LedgerRepo) GetRecord(ctx context.Context, productID, branchID int64) (*ledger.InventoryRecord, error) {
	q := r.builder.Select(
		"product_id", "branch_id", "quantity", "last_counted_at", "updated_at",
	).From(recordsTable).
		Where(squirrel.Eq{
			"product_id": productID,
			"branch_id":  branchID,
		}).Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var record ledger.InventoryRecord
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &record, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, apperror.NewPersistence("get record", err)
	}

	return &record, nil
}

// ApplyCount atomically increments the pair's quantity in a single statement.
// The upsert form guarantees two concurrent counts can never both read the
// same previous quantity: the row is locked for the duration of the update,
// and the RETURNING clause reports the value that update actually produced.
func (r *LedgerRepo) ApplyCount(ctx context.Context, productID, branchID, added int64, now time.Time) (ledger.AppliedCount, error) {
	sql := `
		INSERT INTO inventory_records (product_id, branch_id, quantity, last_counted_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (product_id, branch_id) DO UPDATE
		SET quantity        = inventory_records.quantity + EXCLUDED.quantity,
		    last_counted_at = EXCLUDED.last_counted_at,
		    updated_at      = EXCLUDED.updated_at
		RETURNING quantity
	`

	var newQuantity int64
	querier := r.txm.GetQuerier(ctx)
	err := querier.QueryRow(ctx, sql, productID, branchID, added, now).Scan(&newQuantity)
	if err != nil {
		if postgres.IsConcurrencyConflict(err) {
			return ledger.AppliedCount{}, apperror.NewLostUpdate(productID, branchID)
		}
		return ledger.AppliedCount{}, apperror.NewPersistence("apply count", err)
	}

	return ledger.AppliedCount{
		Previous: newQuantity - added,
		New:      newQuantity,
	}, nil
}

// ResetQuantity zeroes one pair in a single upsert. The subquery in RETURNING
// runs against the statement's snapshot, so it reports the quantity the row
// held before this statement; no prior row collapses to 0.
func (r *LedgerRepo) ResetQuantity(ctx context.Context, productID, branchID int64, now time.Time) (int64, error) {
	sql := `
		INSERT INTO inventory_records (product_id, branch_id, quantity, last_counted_at, updated_at)
		VALUES ($1, $2, 0, $3, $3)
		ON CONFLICT (product_id, branch_id) DO UPDATE
		SET quantity        = 0,
		    last_counted_at = EXCLUDED.last_counted_at,
		    updated_at      = EXCLUDED.updated_at
		RETURNING COALESCE((
			SELECT prev.quantity FROM inventory_records prev
			WHERE prev.product_id = $1 AND prev.branch_id = $2
		), 0)
	`

	var previous int64
	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, productID, branchID, now).Scan(&previous); err != nil {
		if postgres.IsConcurrencyConflict(err) {
			return 0, apperror.NewLostUpdate(productID, branchID)
		}
		return 0, apperror.NewPersistence("reset quantity", err)
	}

	return previous, nil
}

// InsertMovement appends one audit record.
func (r *LedgerRepo) InsertMovement(ctx context.Context, m ledger.Movement) error {
	q := r.builder.Insert(movementsTable).
		Columns(movementColumns...).
		Values(
			m.LineID, m.BranchID, m.ProductID,
			m.PreviousQuantity, m.NewQuantity,
			m.Type, m.ActingUser, m.Notes, m.CreatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return apperror.NewPersistence("insert movement", err)
	}

	return nil
}

// InsertMovements batch-appends movements.
func (r *LedgerRepo) InsertMovements(ctx context.Context, movements []ledger.Movement) error {
	if len(movements) == 0 {
		return nil
	}

	// Fast path: COPY when inside a transaction.
	if tx := r.txm.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(r.txm)
		rows := make([][]any, 0, len(movements))
		for _, m := range movements {
			rows = append(rows, []any{
				m.LineID, m.BranchID, m.ProductID,
				m.PreviousQuantity, m.NewQuantity,
				m.Type, m.ActingUser, m.Notes, m.CreatedAt,
			})
		}
		if _, err := inserter.CopyFromSlice(ctx, movementsTable, movementColumns, rows); err != nil {
			return apperror.NewPersistence("copy movements", err)
		}
		return nil
	}

	// Fallback: multi-row insert. Prefer calling InsertMovements within tx.
	q := r.builder.Insert(movementsTable).Columns(movementColumns...)
	for _, m := range movements {
		q = q.Values(
			m.LineID, m.BranchID, m.ProductID,
			m.PreviousQuantity, m.NewQuantity,
			m.Type, m.ActingUser, m.Notes, m.CreatedAt,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return apperror.NewPersistence("insert movements", err)
	}

	return nil
}

// RecordsWithStock returns every record for the branch with quantity above zero.
func (r *LedgerRepo) RecordsWithStock(ctx context.Context, branchID int64) ([]ledger.InventoryRecord, error) {
	q := r.builder.Select(
		"product_id", "branch_id", "quantity", "last_counted_at", "updated_at",
	).From(recordsTable).
		Where(squirrel.Eq{"branch_id": branchID}).
		Where(squirrel.Gt{"quantity": int64(0)}).
		OrderBy("product_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var records []ledger.InventoryRecord
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &records, sql, args...); err != nil {
		return nil, apperror.NewPersistence("select records with stock", err)
	}

	return records, nil
}

// ZeroBranch sets every record for the branch to quantity 0.
func (r *LedgerRepo) ZeroBranch(ctx context.Context, branchID int64, now time.Time) (int64, error) {
	q := r.builder.Update(recordsTable).
		Set("quantity", int64(0)).
		Set("last_counted_at", now).
		Set("updated_at", now).
		Where(squirrel.Eq{"branch_id": branchID}).
		Where(squirrel.NotEq{"quantity": int64(0)})

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return 0, apperror.NewPersistence("zero branch", err)
	}

	return tag.RowsAffected(), nil
}

// RecentMovements returns the newest movements joined with product fields.
func (r *LedgerRepo) RecentMovements(ctx context.Context, branchID int64, limit int) ([]ledger.MovementWithProduct, error) {
	q := r.movementJoinQuery().
		Where(squirrel.Eq{"m.branch_id": branchID}).
		OrderBy("m.created_at DESC").
		Limit(uint64(limit))

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []ledger.MovementWithProduct
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &movements, sql, args...); err != nil {
		return nil, apperror.NewPersistence("select recent movements", err)
	}

	return movements, nil
}

// FilteredMovements returns one page of movement history with a total count.
func (r *LedgerRepo) FilteredMovements(ctx context.Context, branchID int64, filter ledger.MovementFilter) (ledger.MovementPage, error) {
	page := ledger.MovementPage{
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}

	conds := r.movementConditions(branchID, filter)

	countQ := r.builder.Select("COUNT(*)").
		From(movementsTable + " m").
		Join(productsTable + " p ON p.id = m.product_id")
	for _, c := range conds {
		countQ = countQ.Where(c)
	}

	sql, args, err := countQ.ToSql()
	if err != nil {
		return page, fmt.Errorf("build count query: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&page.TotalCount); err != nil {
		return page, apperror.NewPersistence("count movements", err)
	}

	q := r.movementJoinQuery()
	for _, c := range conds {
		q = q.Where(c)
	}
	q = q.OrderBy("m.created_at DESC").
		Limit(uint64(filter.PageSize)).
		Offset(uint64((filter.Page - 1) * filter.PageSize))

	sql, args, err = q.ToSql()
	if err != nil {
		return page, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &page.Items, sql, args...); err != nil {
		return page, apperror.NewPersistence("select movements", err)
	}

	return page, nil
}

// movementJoinQuery is the shared SELECT of movements joined with products.
func (r *LedgerRepo) movementJoinQuery() squirrel.SelectBuilder {
	return r.builder.Select(
		"m.line_id", "m.branch_id", "m.product_id",
		"m.previous_quantity", "m.new_quantity",
		"m.movement_type", "m.acting_user", "m.notes", "m.created_at",
		"p.mrp_code", "p.truper_code", "p.brand", "p.description",
	).From(movementsTable + " m").
		Join(productsTable + " p ON p.id = m.product_id")
}

func (r *LedgerRepo) movementConditions(branchID int64, filter ledger.MovementFilter) []squirrel.Sqlizer {
	conds := []squirrel.Sqlizer{
		squirrel.Eq{"m.branch_id": branchID},
	}

	if filter.Type != nil {
		conds = append(conds, squirrel.Eq{"m.movement_type": *filter.Type})
	}
	if filter.FromDate != nil {
		conds = append(conds, squirrel.GtOrEq{"m.created_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		conds = append(conds, squirrel.Lt{"m.created_at": *filter.ToDate})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		conds = append(conds, squirrel.Or{
			squirrel.ILike{"m.acting_user": pattern},
			squirrel.ILike{"m.notes": pattern},
			squirrel.ILike{"p.mrp_code": pattern},
			squirrel.ILike{"p.truper_code": pattern},
			squirrel.ILike{"p.description": pattern},
		})
	}

	return conds
}

// CodedQuantities bulk-loads branch quantities with product codes.
func (r *LedgerRepo) CodedQuantities(ctx context.Context, branchID int64) ([]ledger.CodedQuantity, error) {
	q := r.builder.Select(
		"r.product_id", "p.mrp_code", "p.truper_code", "r.quantity",
	).From(recordsTable + " r").
		Join(productsTable + " p ON p.id = r.product_id").
		Where(squirrel.Eq{"r.branch_id": branchID}).
		OrderBy("r.product_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var quantities []ledger.CodedQuantity
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &quantities, sql, args...); err != nil {
		return nil, apperror.NewPersistence("select coded quantities", err)
	}

	return quantities, nil
}

// TotalQuantityByProduct sums a product's quantity across all branches.
func (r *LedgerRepo) TotalQuantityByProduct(ctx context.Context, productID int64) (int64, error) {
	sql := `
		SELECT COALESCE(SUM(quantity), 0)
		FROM inventory_records
		WHERE product_id = $1
	`

	var total int64
	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, productID).Scan(&total); err != nil {
		return 0, apperror.NewPersistence("sum product quantity", err)
	}

	return total, nil
}

// Ensure interface compliance.
var _ ledger.Repository = (*LedgerRepo)(nil)
