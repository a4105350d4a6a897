package reconcile

import (
	"strings"

	"github.com/shopspring/decimal"

	"stocktally/internal/core/apperror"
	"stocktally/internal/core/types"
)

// ERP export column headers. Matched exactly and case-sensitively: the
// export format is rigid, and fuzzy matching would hide the wrong file
// being uploaded.
const (
	ColumnProductCode    = "Material"
	ColumnSystemQuantity = "Libre utilización"
	ColumnDescription    = "Texto breve de material"
	ColumnUnitValue      = "Valor libre util."
)

// ColumnMap holds the resolved column indexes of an ERP export header.
// Optional columns are -1 when absent.
type ColumnMap struct {
	Code        int
	SystemQty   int
	Description int
	UnitValue   int
}

// MapColumns locates the required and optional columns in a header row.
// Fails with MISSING_REQUIRED_COLUMN naming the first required column that
// could not be identified.
func MapColumns(header []string) (ColumnMap, error) {
	cm := ColumnMap{Code: -1, SystemQty: -1, Description: -1, UnitValue: -1}

	for i, cell := range header {
		switch strings.TrimSpace(cell) {
		case ColumnProductCode:
			cm.Code = i
		case ColumnSystemQuantity:
			cm.SystemQty = i
		case ColumnDescription:
			cm.Description = i
		case ColumnUnitValue:
			cm.UnitValue = i
		}
	}

	if cm.Code < 0 {
		return cm, apperror.NewMissingColumn(ColumnProductCode)
	}
	if cm.SystemQty < 0 {
		return cm, apperror.NewMissingColumn(ColumnSystemQuantity)
	}
	return cm, nil
}

// ExternalRow is one system-of-record row from the ERP export, with its
// columns already identified.
type ExternalRow struct {
	Code           string
	SystemQuantity int64
	Description    string
	UnitValue      *types.Money
}

// RowsFromCells converts raw sheet rows into external rows using a resolved
// column map. Rows with a blank product code are skipped entirely; rows whose
// quantity cell does not parse are skipped the same way (an ERP export footer
// or subtotal line, not data).
func RowsFromCells(cm ColumnMap, cells [][]string) []ExternalRow {
	rows := make([]ExternalRow, 0, len(cells))

	for _, cell := range cells {
		code := cellAt(cell, cm.Code)
		if code == "" {
			continue
		}

		qty, ok := parseQuantityCell(cellAt(cell, cm.SystemQty))
		if !ok {
			continue
		}

		row := ExternalRow{
			Code:           code,
			SystemQuantity: qty,
		}
		if cm.Description >= 0 {
			row.Description = cellAt(cell, cm.Description)
		}
		if cm.UnitValue >= 0 {
			if value, err := decimal.NewFromString(cellAt(cell, cm.UnitValue)); err == nil {
				row.UnitValue = &value
			}
		}
		rows = append(rows, row)
	}

	return rows
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseQuantityCell accepts both "8" and the "8.000" formatting ERP exports
// use for whole quantities.
func parseQuantityCell(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return 0, false
	}
	return d.Round(0).IntPart(), true
}
