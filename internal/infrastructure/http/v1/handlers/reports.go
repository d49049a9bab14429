package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"reportengine/internal/core/apperror"
	"reportengine/internal/domain/reports"
	"reportengine/internal/export"
	"reportengine/internal/infrastructure/http/v1/dto"
)

// ReportsHandler handles HTTP requests for reports.
type ReportsHandler struct {
	*BaseHandler
	service *reports.Service
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service *reports.Service) *ReportsHandler {
	return &ReportsHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Execute runs a configuration and returns the results envelope.
// POST /api/v1/reports/execute
func (h *ReportsHandler) Execute(c *gin.Context) {
	var req dto.ExecuteReportRequest
	if !h.BindJSON(c, &req) {
		return
	}

	res, err := h.service.Execute(c.Request.Context(), req.ToConfiguration())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, res)
}

// Export runs a configuration and returns it as a file.
// POST /api/v1/reports/export?format=csv|xlsx
func (h *ReportsHandler) Export(c *gin.Context) {
	var query dto.ExportQuery
	if !h.BindQuery(c, &query) {
		return
	}
	if query.Format == "" {
		query.Format = string(export.FormatCSV)
	}
	format, err := export.ParseFormat(query.Format)
	if err != nil {
		h.Error(c, apperror.NewValidation(err.Error()).WithDetail("format", query.Format))
		return
	}

	var req dto.ExecuteReportRequest
	if !h.BindJSON(c, &req) {
		return
	}

	res, err := h.service.Execute(c.Request.Context(), req.ToConfiguration())
	if err != nil {
		h.Error(c, err)
		return
	}

	// Render fully before writing so a failure still yields a JSON error.
	var buf bytes.Buffer
	if err := export.Write(&buf, format, res); err != nil {
		h.Error(c, apperror.NewInternal(fmt.Errorf("render %s: %w", format, err)))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename(res)))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}
