package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/schoolplan/timetable-api/internal/service"
	"github.com/schoolplan/timetable-api/pkg/response"
)

// ExportHandler serves roster exports.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler constructs handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// RosterCSV godoc
// @Summary Export a teacher's binding roster as CSV
// @Tags Exports
// @Produce text/csv
// @Param id path string true "Teacher ID"
// @Success 200
// @Router /teachers/{id}/bindings/export.csv [get]
func (h *ExportHandler) RosterCSV(c *gin.Context) {
	payload, filename, err := h.service.TeacherRosterCSV(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv", payload)
}

// RosterPDF godoc
// @Summary Export a teacher's binding roster as PDF
// @Tags Exports
// @Produce application/pdf
// @Param id path string true "Teacher ID"
// @Success 200
// @Router /teachers/{id}/bindings/export.pdf [get]
func (h *ExportHandler) RosterPDF(c *gin.Context) {
	payload, filename, err := h.service.TeacherRosterPDF(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", payload)
}
