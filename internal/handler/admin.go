package handler

import (
	"io"
	"net/http"
	"strings"

	"pvflow/internal/apierror"
	"pvflow/internal/dto"
	"pvflow/internal/middleware"
	"pvflow/internal/service"

	"github.com/gin-gonic/gin"
)

const maxImportUpload = 20 << 20

type AdminHandler struct{ svc service.ProcessService }

func NewAdminHandler(svc service.ProcessService) *AdminHandler { return &AdminHandler{svc: svc} }

// Reopen godoc
// @Summary Reabre uma etapa ja concluida
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "ID do registro"
// @Param body body dto.ReopenRequest true "Etapa e motivo"
// @Success 200 {object} model.ProcessRecord
// @Router /v1/admin/records/{id}/reopen [post]
func (h *AdminHandler) Reopen(c *gin.Context) {
	var req dto.ReopenRequest
	if !bindAndValidate(c, &req) {
		return
	}
	rec, err := h.svc.Reopen(c.Request.Context(), middleware.GetActor(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *AdminHandler) Wipe(c *gin.Context) {
	var req dto.WipeRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.Wipe(c.Request.Context(), middleware.GetActor(c), c.Param("id"), req); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Import takes an exported collection of any past schema, as multipart
// field "file" or as the raw JSON body.
func (h *AdminHandler) Import(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportUpload)

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
	data, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, apierror.New("arquivo muito grande"))
		return
	}

	resp, err := h.svc.ImportLegacy(c.Request.Context(), middleware.GetActor(c), data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AdminHandler) Audit(c *gin.Context) {
	var q dto.AdminAuditQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.svc.SearchAudit(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
