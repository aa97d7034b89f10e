package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/epeers/corpactions/internal/models"
	"github.com/epeers/corpactions/internal/resolver"
	"github.com/epeers/corpactions/internal/runstore"
	"github.com/epeers/corpactions/internal/services"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// IdentifierColumn is the fixed position of the identifier cell in the
// source row format
const IdentifierColumn = 4

// EnrichHandler handles sheet upload, enrichment runs and export
type EnrichHandler struct {
	store        *runstore.Store
	enrichSvc    *services.EnrichmentService
	marketSuffix string
}

// NewEnrichHandler creates a new EnrichHandler
func NewEnrichHandler(store *runstore.Store, enrichSvc *services.EnrichmentService, marketSuffix string) *EnrichHandler {
	return &EnrichHandler{
		store:        store,
		enrichSvc:    enrichSvc,
		marketSuffix: marketSuffix,
	}
}

// UploadSheet handles POST /sheets. It expects a multipart "file" field and
// an optional "metadata_lines" count, and replaces any previously stored
// sheet and run.
func (h *EnrichHandler) UploadSheet(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "bad_request",
			Message: "multipart field 'file' is required",
		})
		return
	}

	metadataLines := 0
	if v := c.PostForm("metadata_lines"); v != "" {
		metadataLines, err = strconv.Atoi(v)
		if err != nil || metadataLines < 0 {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "bad_request",
				Message: "metadata_lines must be a non-negative integer",
			})
			return
		}
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "bad_request",
			Message: "failed to open uploaded file",
		})
		return
	}
	defer f.Close()

	sheet, err := ParseSheet(f, metadataLines)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
			Error:   "parse_error",
			Message: err.Error(),
		})
		return
	}

	h.store.SetSheet(sheet)

	c.JSON(http.StatusOK, models.SheetSummary{
		Columns:       sheet.Header,
		RowCount:      len(sheet.Rows),
		MetadataLines: len(sheet.MetadataLines),
	})
}

// Enrich handles POST /enrich. It resolves identifiers from the stored sheet
// and drives the batch orchestrator, returning the full run summary even
// when every lookup failed.
func (h *EnrichHandler) Enrich(c *gin.Context) {
	var req models.EnrichRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "bad_request",
			Message: err.Error(),
		})
		return
	}

	sheet := h.store.Sheet()
	if sheet == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "no sheet uploaded",
		})
		return
	}

	if req.DateColumn < 0 || req.DateColumn >= len(sheet.Header) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "bad_request",
			Message: "date_column out of range",
		})
		return
	}

	refs := resolver.Resolve(sheet.Rows, IdentifierColumn, req.DateColumn, h.marketSuffix)

	run, err := h.enrichSvc.Run(c.Request.Context(), refs, logProgress)
	if err != nil {
		if errors.Is(err, services.ErrRunInProgress) {
			c.JSON(http.StatusConflict, models.ErrorResponse{
				Error:   "conflict",
				Message: "an enrichment run is already in progress",
			})
			return
		}
		// cancelled mid-run; the partial result is not kept
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
		return
	}

	h.store.SetRun(run, req.DateColumn)

	c.JSON(http.StatusOK, models.EnrichResponse{
		Stocks: refs,
		Run:    run,
	})
}

// LatestRun handles GET /runs/latest
func (h *EnrichHandler) LatestRun(c *gin.Context) {
	run, ok := h.store.Run()
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "no enrichment run has completed",
		})
		return
	}
	c.JSON(http.StatusOK, run)
}

// Export handles GET /export, streaming the augmented CSV of the stored
// sheet and latest run
func (h *EnrichHandler) Export(c *gin.Context) {
	sheet := h.store.Sheet()
	run, ok := h.store.Run()
	if sheet == nil || !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "nothing to export: upload a sheet and run enrichment first",
		})
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="enriched.csv"`)
	if err := WriteEnrichedCSV(c.Writer, sheet, run, IdentifierColumn); err != nil {
		log.Errorf("export failed: %v", err)
	}
}

func logProgress(completed, total int, detail string) {
	log.WithFields(log.Fields{"completed": completed, "total": total}).Debug(detail)
}
