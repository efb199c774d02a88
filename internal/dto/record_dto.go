package dto

import (
	"pvflow/internal/model"
	"pvflow/internal/workflow"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

// RecordFilter narrows the record list. Search uses the wildcard rule
// ("ABC*" prefix, otherwise substring) over PV code, client, client PO and SC.
type RecordFilter struct {
	Search          string `form:"q"`
	Status          string `form:"status"`
	IncludeFinished bool   `form:"include_finished"`
}

// SaveRecordRequest is one save from a department view. BaseVersion is the
// version the draft was loaded at; ConfirmAdvance answers the gate prompt.
type SaveRecordRequest struct {
	View           string              `json:"view"           validate:"required"`
	BaseVersion    int64               `json:"baseVersion"    validate:"min=0"`
	ConfirmAdvance bool                `json:"confirmAdvance"`
	Record         model.ProcessRecord `json:"record"`
}

type ValidateRecordRequest struct {
	Record model.ProcessRecord `json:"record"`
}

type AuditQuery struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ValidateRecordResponse struct {
	Valid      bool                 `json:"valid"`
	Violations []workflow.Violation `json:"violations"`
}

type SaveRecordResponse struct {
	Record   model.ProcessRecord   `json:"record"`
	Advanced bool                  `json:"advanced"`
	From     model.Stage           `json:"from"`
	To       model.Stage           `json:"to"`
	Declined bool                  `json:"declined"`
	Prompt   string                `json:"prompt,omitempty"`
	Blocked  *workflow.GateBlocked `json:"blocked,omitempty"`
	Event    model.AuditEvent      `json:"event"`
}

type LockStatusResponse struct {
	RecordID string           `json:"recordId"`
	Status   model.Stage      `json:"generalStatus"`
	View     model.Department `json:"view"`
	Locked   bool             `json:"locked"`
}

type AuditPage struct {
	Data       []model.AuditEvent `json:"data"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	TotalPages int                `json:"total_pages"`
}
