package handler

import (
	"net/http"

	"pvflow/internal/dto"
	"pvflow/internal/middleware"
	"pvflow/internal/service"

	"github.com/gin-gonic/gin"
)

type SLAHandler struct{ svc service.SLAService }

func NewSLAHandler(svc service.SLAService) *SLAHandler { return &SLAHandler{svc: svc} }

func (h *SLAHandler) GetConfig(c *gin.Context) {
	cfg, err := h.svc.Config(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *SLAHandler) UpdateConfig(c *gin.Context) {
	var req dto.SLAConfigRequest
	if !bindAndValidate(c, &req) {
		return
	}
	cfg, err := h.svc.UpdateConfig(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *SLAHandler) Holidays(c *gin.Context) {
	hs, err := h.svc.Holidays(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, hs)
}

func (h *SLAHandler) AddHoliday(c *gin.Context) {
	var req dto.HolidayRequest
	if !bindAndValidate(c, &req) {
		return
	}
	hol, err := h.svc.AddHoliday(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, hol)
}

func (h *SLAHandler) RemoveHoliday(c *gin.Context) {
	if err := h.svc.RemoveHoliday(c.Request.Context(), middleware.GetActor(c), c.Param("date")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
