package handler

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pvflow/internal/apierror"
	"pvflow/internal/dto"
	"pvflow/internal/middleware"
	"pvflow/internal/model"
	"pvflow/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	maxCSVUpload      = 2 << 20
	sseHeartbeatEvery = 25 * time.Second
)

type RecordsHandler struct {
	svc     service.ProcessService
	sla     service.SLAService
	reports service.ReportService
}

func NewRecordsHandler(svc service.ProcessService, sla service.SLAService, reports service.ReportService) *RecordsHandler {
	return &RecordsHandler{svc: svc, sla: sla, reports: reports}
}

// List godoc
// @Summary Lista processos
// @Tags records
// @Produce json
// @Param q query string false "Busca (PV, cliente, PO, SC). Termine com * para prefixo"
// @Param status query string false "Etapa"
// @Param include_finished query bool false "Inclui FINALIZADO"
// @Success 200 {array} model.ProcessRecord
// @Router /v1/records [get]
func (h *RecordsHandler) List(c *gin.Context) {
	var f dto.RecordFilter
	if !bindQuery(c, &f) {
		return
	}
	recs, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

func (h *RecordsHandler) Get(c *gin.Context) {
	rec, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *RecordsHandler) Queue(c *gin.Context) {
	dept := model.Department(strings.ToUpper(c.Param("department")))
	recs, err := h.svc.Queue(c.Request.Context(), dept)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

// Stream pushes the whole collection as a "records" server-sent event on
// connect and after every change. Slow clients only get the newest snapshot.
func (h *RecordsHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	updates := make(chan []model.ProcessRecord, 1)
	unsubscribe := h.svc.Subscribe(func(recs []model.ProcessRecord) {
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- recs:
		default:
		}
	})
	defer unsubscribe()

	initial, err := h.svc.List(ctx, dto.RecordFilter{IncludeFinished: true})
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("records", initial)
	c.Writer.Flush()

	heartbeat := time.NewTicker(sseHeartbeatEvery)
	defer heartbeat.Stop()

	log.Debug().Str("actor", middleware.GetActor(c).Email).Msg("record stream opened")
	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case recs := <-updates:
			c.SSEvent("records", recs)
			return true
		case t := <-heartbeat.C:
			c.SSEvent("ping", t.Unix())
			return true
		}
	})
}

// Lock godoc
// @Summary Indica se o registro esta bloqueado para a visao
// @Tags records
// @Produce json
// @Param id path string true "ID do registro"
// @Param view query string false "Departamento (padrao: o do usuario)"
// @Success 200 {object} dto.LockStatusResponse
// @Router /v1/records/{id}/lock [get]
func (h *RecordsHandler) Lock(c *gin.Context) {
	resp, err := h.svc.LockStatus(c.Request.Context(), middleware.GetActor(c), c.Param("id"), c.Query("view"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RecordsHandler) Audit(c *gin.Context) {
	var q dto.AuditQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.svc.AuditTrail(c.Request.Context(), c.Param("id"), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *RecordsHandler) Urgency(c *gin.Context) {
	u, err := h.sla.Urgency(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *RecordsHandler) Validate(c *gin.Context) {
	var req dto.ValidateRecordRequest
	if !bindAndValidate(c, &req) {
		return
	}
	c.JSON(http.StatusOK, h.svc.Validate(req.Record))
}

// Save godoc
// @Summary Salva o registro a partir de uma visao departamental
// @Description Persiste os campos editaveis da visao e avalia o avanco de etapa.
// @Tags records
// @Accept json
// @Produce json
// @Param body body dto.SaveRecordRequest true "Rascunho"
// @Success 200 {object} dto.SaveRecordResponse
// @Failure 403 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.RuleError
// @Router /v1/records/save [post]
func (h *RecordsHandler) Save(c *gin.Context) {
	var req dto.SaveRecordRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Save(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RecordsHandler) ApproveItem(c *gin.Context) {
	rec, err := h.svc.ApproveLineItem(c.Request.Context(), middleware.GetActor(c), c.Param("id"), c.Param("item_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *RecordsHandler) PDF(c *gin.Context) {
	var buf bytes.Buffer
	rec, err := h.reports.DossierPDF(c.Request.Context(), c.Param("id"), &buf)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="dossie-%s.pdf"`, fileSafe(rec.PVCode)))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// ParseCSV accepts the sheet either as multipart field "file" or as the
// raw request body.
func (h *RecordsHandler) ParseCSV(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxCSVUpload)

	var src io.Reader = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("campo 'file' obrigatorio"))
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("arquivo ilegivel"))
			return
		}
		defer f.Close()
		src = f
	}

	resp, err := h.reports.ParseItemsCSV(src)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RecordsHandler) CSVTemplate(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="modelo-itens.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", h.reports.CSVTemplate())
}

func fileSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
