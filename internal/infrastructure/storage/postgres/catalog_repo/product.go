// Package catalog_repo provides PostgreSQL implementations for catalog
// repositories.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stocktally/internal/core/apperror"
	"stocktally/internal/domain/catalogs/product"
	"stocktally/internal/infrastructure/storage/postgres"
)

const productsTable = "products"

var productColumns = []string{
	"id", "mrp_code", "truper_code", "brand", "description",
	"created_at", "updated_at",
}

// ProductRepo implements product.Repository.
type ProductRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewProductRepo creates a new product repository.
func NewProductRepo(txm *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetByID retrieves a product by internal id.
func (r *ProductRepo) GetByID(ctx context.Context, productID int64) (*product.Product, error) {
	q := r.builder.Select(productColumns...).
		From(productsTable).
		Where(squirrel.Eq{"id": productID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p product.Product
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("product", fmt.Sprintf("%d", productID))
		}
		return nil, apperror.NewPersistence("get product", err)
	}

	return &p, nil
}

// FindByCode retrieves a product by either vendor code.
func (r *ProductRepo) FindByCode(ctx context.Context, code string) (*product.Product, error) {
	q := r.builder.Select(productColumns...).
		From(productsTable).
		Where(squirrel.Or{
			squirrel.Eq{"mrp_code": code},
			squirrel.Eq{"truper_code": code},
		}).Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p product.Product
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("product", code)
		}
		return nil, apperror.NewPersistence("find product by code", err)
	}

	return &p, nil
}

// List retrieves products with filtering and pagination.
func (r *ProductRepo) List(ctx context.Context, filter product.ListFilter) (product.ListResult, error) {
	result := product.ListResult{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	var conds []squirrel.Sqlizer
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		conds = append(conds, squirrel.Or{
			squirrel.ILike{"mrp_code": pattern},
			squirrel.ILike{"truper_code": pattern},
			squirrel.ILike{"brand": pattern},
			squirrel.ILike{"description": pattern},
		})
	}

	countQ := r.builder.Select("COUNT(*)").From(productsTable)
	for _, c := range conds {
		countQ = countQ.Where(c)
	}

	sql, args, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&result.TotalCount); err != nil {
		return result, apperror.NewPersistence("count products", err)
	}

	q := r.builder.Select(productColumns...).From(productsTable)
	for _, c := range conds {
		q = q.Where(c)
	}
	q = q.OrderBy("description").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset))

	sql, args, err = q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, apperror.NewPersistence("select products", err)
	}

	return result, nil
}

// Ensure interface compliance.
var _ product.Repository = (*ProductRepo)(nil)
