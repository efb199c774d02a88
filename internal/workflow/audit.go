package workflow

import (
	"time"

	"pvflow/internal/model"

	"github.com/google/uuid"
)

// NewEvent builds an immutable audit entry. It has no side effects; callers
// prepend it to the record's trail.
func NewEvent(actor Actor, typ model.EventType, stage model.Department, summary string, meta map[string]any, now time.Time) model.AuditEvent {
	return model.AuditEvent{
		ID:              "aud-" + uuid.NewString(),
		AtEpochMs:       now.UnixMilli(),
		AtISO:           now.UTC().Format(time.RFC3339Nano),
		ActorName:       actor.Name,
		ActorDepartment: actor.Department,
		Type:            typ,
		Stage:           stage,
		Summary:         summary,
		Meta:            meta,
	}
}

// Prepend keeps the trail newest-first. Existing entries are not touched.
func Prepend(rec *model.ProcessRecord, ev model.AuditEvent) {
	trail := make([]model.AuditEvent, 0, len(rec.AuditTrail)+1)
	trail = append(trail, ev)
	rec.AuditTrail = append(trail, rec.AuditTrail...)
}
