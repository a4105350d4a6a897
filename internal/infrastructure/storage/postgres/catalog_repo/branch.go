package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stocktally/internal/core/apperror"
	"stocktally/internal/domain/catalogs/branch"
	"stocktally/internal/infrastructure/storage/postgres"
)

const branchesTable = "branches"

// BranchRepo implements branch.Repository.
type BranchRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewBranchRepo creates a new branch repository.
func NewBranchRepo(txm *postgres.TxManager) *BranchRepo {
	return &BranchRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetByID retrieves a branch by id.
func (r *BranchRepo) GetByID(ctx context.Context, branchID int64) (*branch.Branch, error) {
	q := r.builder.Select("id", "name", "region").
		From(branchesTable).
		Where(squirrel.Eq{"id": branchID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var b branch.Branch
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &b, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("branch", fmt.Sprintf("%d", branchID))
		}
		return nil, apperror.NewPersistence("get branch", err)
	}

	return &b, nil
}

// List retrieves all branches ordered by name.
func (r *BranchRepo) List(ctx context.Context) ([]branch.Branch, error) {
	q := r.builder.Select("id", "name", "region").
		From(branchesTable).
		OrderBy("name")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var branches []branch.Branch
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &branches, sql, args...); err != nil {
		return nil, apperror.NewPersistence("select branches", err)
	}

	return branches, nil
}

// Exists checks whether a branch exists.
func (r *BranchRepo) Exists(ctx context.Context, branchID int64) (bool, error) {
	sql := `SELECT EXISTS(SELECT 1 FROM branches WHERE id = $1)`

	var exists bool
	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, branchID).Scan(&exists); err != nil {
		return false, apperror.NewPersistence("check branch exists", err)
	}

	return exists, nil
}

// Ensure interface compliance.
var _ branch.Repository = (*BranchRepo)(nil)
