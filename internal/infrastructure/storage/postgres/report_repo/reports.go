// Package report_repo provides the PostgreSQL implementation of monthly
// report storage. Row snapshots are JSON, zstd-compressed above a size
// threshold to keep the table lean for large branches.
package report_repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	"stocktally/internal/core/apperror"
	"stocktally/internal/domain/reconcile"
	"stocktally/internal/domain/snapshot"
	"stocktally/internal/infrastructure/storage/postgres"
)

const reportsTable = "monthly_reports"

// CompressionAlgo specifies the compression algorithm used for report rows.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// ReportRepo implements snapshot.Repository.
type ReportRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType

	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewReportRepo creates a new monthly report repository.
func NewReportRepo(txm *postgres.TxManager) (*ReportRepo, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &ReportRepo{
		txm:               txm,
		builder:           squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024,
	}, nil
}

// Create persists an immutable report.
func (r *ReportRepo) Create(ctx context.Context, report *snapshot.MonthlyReport) error {
	rowsJSON, err := json.Marshal(report.Rows)
	if err != nil {
		return fmt.Errorf("marshal report rows: %w", err)
	}

	algo := CompressionNone
	var compressed []byte
	if len(rowsJSON) > r.compressThreshold {
		compressed = r.encoder.EncodeAll(rowsJSON, nil)
		rowsJSON = nil
		algo = CompressionZstd
	}

	sql := `
		INSERT INTO monthly_reports (
			id, branch_id, month, year,
			rows, rows_compressed, compression_algo,
			total_products, total_variance, created_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	querier := r.txm.GetQuerier(ctx)
	_, err = querier.Exec(ctx, sql,
		report.ID, report.BranchID, report.Month, report.Year,
		rowsJSON, compressed, algo,
		report.TotalProducts, report.TotalVariance, report.CreatedBy, report.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewDuplicatePeriod(report.BranchID, report.Month, report.Year)
		}
		return apperror.NewPersistence("create monthly report", err)
	}

	return nil
}

// Exists reports whether a report exists for the period.
func (r *ReportRepo) Exists(ctx context.Context, branchID int64, period snapshot.Period) (bool, error) {
	sql := `
		SELECT EXISTS(
			SELECT 1 FROM monthly_reports
			WHERE branch_id = $1 AND month = $2 AND year = $3
		)
	`

	var exists bool
	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, branchID, period.Month, period.Year).Scan(&exists); err != nil {
		return false, apperror.NewPersistence("check report exists", err)
	}

	return exists, nil
}

// GetByPeriod retrieves a report with its full row snapshot.
func (r *ReportRepo) GetByPeriod(ctx context.Context, branchID int64, period snapshot.Period) (*snapshot.MonthlyReport, error) {
	sql := `
		SELECT id, branch_id, month, year,
		       rows, rows_compressed, compression_algo,
		       total_products, total_variance, created_by, created_at
		FROM monthly_reports
		WHERE branch_id = $1 AND month = $2 AND year = $3
	`

	report := snapshot.MonthlyReport{}
	var rowsJSON json.RawMessage
	var compressed []byte
	var algo CompressionAlgo

	querier := r.txm.GetQuerier(ctx)
	err := querier.QueryRow(ctx, sql, branchID, period.Month, period.Year).Scan(
		&report.ID, &report.BranchID, &report.Month, &report.Year,
		&rowsJSON, &compressed, &algo,
		&report.TotalProducts, &report.TotalVariance, &report.CreatedBy, &report.CreatedAt,
	)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("monthly report", fmt.Sprintf("%d/%s", branchID, period))
		}
		return nil, apperror.NewPersistence("get monthly report", err)
	}

	if algo == CompressionZstd && len(compressed) > 0 {
		rowsJSON, err = r.decoder.DecodeAll(compressed, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress report rows: %w", err)
		}
	}

	if len(rowsJSON) > 0 {
		var rows []reconcile.Row
		if err := json.Unmarshal(rowsJSON, &rows); err != nil {
			return nil, fmt.Errorf("unmarshal report rows: %w", err)
		}
		report.Rows = rows
	}

	return &report, nil
}

// ListByBranch returns report headers without row payloads, newest first.
func (r *ReportRepo) ListByBranch(ctx context.Context, branchID int64, limit int) ([]snapshot.MonthlyReport, error) {
	q := r.builder.Select(
		"id", "branch_id", "month", "year",
		"total_products", "total_variance", "created_by", "created_at",
	).From(reportsTable).
		Where(squirrel.Eq{"branch_id": branchID}).
		OrderBy("year DESC", "month DESC").
		Limit(uint64(limit))

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var reports []snapshot.MonthlyReport
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &reports, sql, args...); err != nil {
		return nil, apperror.NewPersistence("list monthly reports", err)
	}

	return reports, nil
}

// Ensure interface compliance.
var _ snapshot.Repository = (*ReportRepo)(nil)
