package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"pvflow/internal/dto"
	"pvflow/internal/service"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type DashboardHandler struct {
	sla     service.SLAService
	reports service.ReportService
}

func NewDashboardHandler(sla service.SLAService, reports service.ReportService) *DashboardHandler {
	return &DashboardHandler{sla: sla, reports: reports}
}

// Stock is the stock desk panel: the waiting queue, oldest first, plus
// what was concluded in the last 24 hours.
func (h *DashboardHandler) Stock(c *gin.Context) {
	panel, err := h.sla.StockPanel(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, panel)
}

func (h *DashboardHandler) SLA(c *gin.Context) {
	o, err := h.sla.Overview(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// RecordsXLSX exports the filtered list as a master spreadsheet.
func (h *DashboardHandler) RecordsXLSX(c *gin.Context) {
	var f dto.RecordFilter
	if !bindQuery(c, &f) {
		return
	}
	var buf bytes.Buffer
	if err := h.reports.ExportXLSX(c.Request.Context(), f, &buf); err != nil {
		respondError(c, err)
		return
	}
	name := fmt.Sprintf("processos-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
