package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"stocktally/internal/core/apperror"
	"stocktally/internal/domain/reconcile"
	"stocktally/internal/infrastructure/tabular"
)

// maxUploadBytes bounds ERP export uploads (20 MB).
const maxUploadBytes = 20 << 20

// ReconcileHandler handles ERP export uploads and variance reports.
type ReconcileHandler struct {
	*BaseHandler
	engine *reconcile.Engine
}

// NewReconcileHandler creates a new reconciliation handler.
func NewReconcileHandler(base *BaseHandler, engine *reconcile.Engine) *ReconcileHandler {
	return &ReconcileHandler{
		BaseHandler: base,
		engine:      engine,
	}
}

// Reconcile handles POST /reconcile
// Accepts a multipart upload with the ERP export under the "file" field and
// returns the variance report as JSON.
func (h *ReconcileHandler) Reconcile(c *gin.Context) {
	report, ok := h.runReconciliation(c)
	if !ok {
		return
	}

	h.OK(c, report)
}

// Export handles POST /reconcile/export
// Same input as Reconcile, but streams the report as an XLSX download.
func (h *ReconcileHandler) Export(c *gin.Context) {
	report, ok := h.runReconciliation(c)
	if !ok {
		return
	}

	filename := tabular.ExportFilename("recuento", time.Now())
	c.Header("Content-Type", tabular.ContentTypeXLSX)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := tabular.WriteReconciliation(c.Writer, report); err != nil {
		h.Error(c, err)
	}
}

func (h *ReconcileHandler) runReconciliation(c *gin.Context) (*reconcile.Report, bool) {
	branchID, ok := h.BranchQuery(c)
	if !ok {
		return nil, false
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.Error(c, apperror.NewValidation("missing file upload").WithDetail("field", "file"))
		return nil, false
	}
	if fileHeader.Size > maxUploadBytes {
		h.Error(c, apperror.NewValidation("file too large").WithDetail("max_bytes", maxUploadBytes))
		return nil, false
	}

	f, err := fileHeader.Open()
	if err != nil {
		h.Error(c, apperror.NewValidation("cannot read file upload"))
		return nil, false
	}
	defer f.Close()

	header, cells, err := tabular.ReadSheet(f)
	if err != nil {
		h.Error(c, err)
		return nil, false
	}

	cm, err := reconcile.MapColumns(header)
	if err != nil {
		h.Error(c, err)
		return nil, false
	}

	rows := reconcile.RowsFromCells(cm, cells)

	report, err := h.engine.Reconcile(c.Request.Context(), branchID, rows)
	if err != nil {
		h.Error(c, err)
		return nil, false
	}

	return report, true
}
