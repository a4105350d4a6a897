// Package tabular reads and writes the XLSX files the app exchanges with the
// outside world: ERP exports coming in, inventory and movement sheets going
// out.
package tabular

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"stocktally/internal/core/apperror"
	"stocktally/internal/domain/reconcile"
	"stocktally/internal/domain/registers/ledger"
)

const defaultSheet = "Sheet1"

// ContentTypeXLSX is the MIME type for .xlsx downloads.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReadSheet parses the first sheet of an uploaded workbook into a header row
// and data rows. Trailing empty cells are returned as empty strings by
// excelize, so row widths may vary.
func ReadSheet(r io.Reader) (header []string, rows [][]string, err error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, apperror.NewValidation("file is not a valid xlsx workbook").
			WithDetail("error", err.Error())
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, apperror.NewValidation("workbook has no sheets")
	}

	all, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(all) == 0 {
		return nil, nil, apperror.NewValidation("sheet is empty")
	}

	return all[0], all[1:], nil
}

// ExportFilename builds the conventional download name, e.g.
// "recuento_2026-08-30.xlsx".
func ExportFilename(prefix string, now time.Time) string {
	return fmt.Sprintf("%s_%s.xlsx", prefix, now.Format("2006-01-02"))
}

// WriteReconciliation streams a reconciliation report as a workbook.
func WriteReconciliation(w io.Writer, report *reconcile.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	headers := []string{
		reconcile.ColumnProductCode,
		"Descripción",
		"Cantidad sistema",
		"Cantidad física",
		"Diferencia",
		"Valor unitario",
		"Diferencia costo",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(defaultSheet, cell, h)
	}

	for i, row := range report.Rows {
		values := []any{
			row.Code,
			row.Description,
			row.SystemQuantity,
			row.PhysicalQuantity,
			row.QuantityVariance,
			"",
			row.CostVariance.String(),
		}
		if row.UnitValue != nil {
			values[5] = row.UnitValue.String()
		}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			f.SetCellValue(defaultSheet, cell, v)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// WriteMovements streams movement history as a workbook.
func WriteMovements(w io.Writer, movements []ledger.MovementWithProduct) error {
	f := excelize.NewFile()
	defer f.Close()

	headers := []string{
		"Fecha", "Tipo", "Código MRP", "Código Truper", "Descripción",
		"Cantidad anterior", "Cantidad nueva", "Diferencia",
		"Usuario", "Notas",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(defaultSheet, cell, h)
	}

	for i, m := range movements {
		values := []any{
			m.CreatedAt.Format(time.RFC3339),
			string(m.Type),
			deref(m.MRPCode),
			deref(m.TruperCode),
			m.Description,
			m.PreviousQuantity,
			m.NewQuantity,
			m.Delta(),
			m.ActingUser,
			m.Notes,
		}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			f.SetCellValue(defaultSheet, cell, v)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
