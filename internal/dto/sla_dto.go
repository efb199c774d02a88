package dto

import (
	"time"

	"pvflow/internal/model"
	"pvflow/internal/sla"
)

type SLATargetRequest struct {
	Stage string `json:"stage" validate:"required"`
	Value int    `json:"value" validate:"min=0,max=10000"`
	Unit  string `json:"unit"  validate:"required,oneof=hours days"`
	Model string `json:"model" validate:"required,oneof=business wallclock"`
}

type SLAConfigRequest struct {
	Targets           []SLATargetRequest `json:"targets"           validate:"required,dive"`
	WarningWindowDays int                `json:"warningWindowDays" validate:"min=0,max=30"`
}

type HolidayRequest struct {
	Date        string `json:"date"        validate:"required,datetime=2006-01-02"`
	Description string `json:"description" validate:"max=120"`
}

type SLAConfigResponse struct {
	Targets           []model.SLATarget `json:"targets"`
	WarningWindowDays int               `json:"warningWindowDays"`
	Timezone          string            `json:"timezone"`
}

// UrgencyResponse is the traffic light of one record in its current stage.
type UrgencyResponse struct {
	RecordID       string           `json:"recordId"`
	PVCode         string           `json:"pvCode"`
	Client         string           `json:"client"`
	Stage          model.Stage      `json:"stage"`
	Model          model.ClockModel `json:"model"`
	StageStart     time.Time        `json:"stageStart"`
	TargetHours    float64          `json:"targetHours"`
	ElapsedHours   float64          `json:"elapsedHours"`
	RemainingHours float64          `json:"remainingHours"`
	Elapsed        string           `json:"elapsed"`
	Remaining      string           `json:"remaining"`
	Level          sla.Level        `json:"level"`
}

type SLAOverview struct {
	GeneratedAt time.Time         `json:"generatedAt"`
	Counts      map[sla.Level]int `json:"counts"`
	Records     []UrgencyResponse `json:"records"`
}
