package dto

type ReopenRequest struct {
	Stage  string `json:"stage"  validate:"required"`
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

type WipeRequest struct {
	Confirmation string `json:"confirmation" validate:"required"`
}

type ImportResponse struct {
	Imported int      `json:"imported"`
	IDs      []string `json:"ids"`
}

type AdminAuditQuery struct {
	RecordID   string `form:"record_id"`
	Type       string `form:"type"`
	Department string `form:"department"`
	Actor      string `form:"actor"`
	From       string `form:"from"` // YYYY-MM-DD
	To         string `form:"to"`   // YYYY-MM-DD, inclusive
	Page       int    `form:"page"`
	Limit      int    `form:"limit"`
}
