package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocktally/internal/core/apperror"
)

func TestMapColumns(t *testing.T) {
	header := []string{
		"Centro",
		"Material",
		"Texto breve de material",
		"Libre utilización",
		"Valor libre util.",
	}

	cm, err := MapColumns(header)
	require.NoError(t, err)
	assert.Equal(t, 1, cm.Code)
	assert.Equal(t, 3, cm.SystemQty)
	assert.Equal(t, 2, cm.Description)
	assert.Equal(t, 4, cm.UnitValue)
}

func TestMapColumns_OptionalColumnsAbsent(t *testing.T) {
	cm, err := MapColumns([]string{"Material", "Libre utilización"})
	require.NoError(t, err)
	assert.Equal(t, -1, cm.Description)
	assert.Equal(t, -1, cm.UnitValue)
}

func TestMapColumns_MissingRequired(t *testing.T) {
	_, err := MapColumns([]string{"Libre utilización"})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeMissingColumn))

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, ColumnProductCode, appErr.Details["column"])

	_, err = MapColumns([]string{"Material"})
	require.Error(t, err)
	appErr, ok = apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, ColumnSystemQuantity, appErr.Details["column"])
}

func TestMapColumns_ExactMatchOnly(t *testing.T) {
	// Case and accent differences mean the wrong file was uploaded.
	_, err := MapColumns([]string{"material", "libre utilizacion"})
	assert.True(t, apperror.IsCode(err, apperror.CodeMissingColumn))
}

func TestRowsFromCells(t *testing.T) {
	cm := ColumnMap{Code: 0, SystemQty: 1, Description: 2, UnitValue: 3}

	rows := RowsFromCells(cm, [][]string{
		{"M-1", "8.000", "MARTILLO 16OZ", "2.50"},
		{"", "4", "padding row", ""},
		{"M-2", "no-numeric", "subtotal line", ""},
		{"M-3", "1,250", "CLAVO 2IN", ""},
		{"M-4", "3"},
	})

	require.Len(t, rows, 3)

	assert.Equal(t, "M-1", rows[0].Code)
	assert.Equal(t, int64(8), rows[0].SystemQuantity)
	assert.Equal(t, "MARTILLO 16OZ", rows[0].Description)
	require.NotNil(t, rows[0].UnitValue)
	assert.Equal(t, "2.5", rows[0].UnitValue.String())

	assert.Equal(t, "M-3", rows[1].Code)
	assert.Equal(t, int64(1250), rows[1].SystemQuantity)
	assert.Nil(t, rows[1].UnitValue)

	// Short rows are padded with empty optional cells.
	assert.Equal(t, "M-4", rows[2].Code)
	assert.Equal(t, int64(3), rows[2].SystemQuantity)
	assert.Equal(t, "", rows[2].Description)
}
