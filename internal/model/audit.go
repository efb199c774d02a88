package model

// EventType classifies an audit trail entry.
type EventType string

const (
	EventStageSave         EventType = "STAGE_SAVE"
	EventDocUpload         EventType = "DOC_UPLOAD"
	EventStatusUpdate      EventType = "STATUS_UPDATE"
	EventEngineeringReview EventType = "ENGINEERING_REVIEW"
	EventPaymentPlan       EventType = "PAYMENT_PLAN"
	EventPaymentDone       EventType = "PAYMENT_DONE"
	EventStageReopen       EventType = "STAGE_REOPEN"
	EventReadonlyOverride  EventType = "READONLY_OVERRIDE"
)

// AuditEvent is immutable once appended to a record's trail.
// AtEpochMs is the sort key; AtISO is kept for display.
type AuditEvent struct {
	ID              string         `json:"id"`
	AtEpochMs       int64          `json:"atEpochMs"`
	AtISO           string         `json:"atISO"`
	ActorName       string         `json:"actorName"`
	ActorDepartment Department     `json:"actorDepartment"`
	Type            EventType      `json:"type"`
	Stage           Department     `json:"stage"`
	Summary         string         `json:"summary"`
	Meta            map[string]any `json:"meta,omitempty"`
}

func (e AuditEvent) Clone() AuditEvent {
	out := e
	if e.Meta != nil {
		out.Meta = make(map[string]any, len(e.Meta))
		for k, v := range e.Meta {
			out.Meta[k] = v
		}
	}
	return out
}
