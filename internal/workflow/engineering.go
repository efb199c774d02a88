package workflow

import (
	"fmt"
	"time"

	"pvflow/internal/model"
)

// ApproveLineItem records one drawing approval for itemID. The first
// approval sets revision 0, later ones increment it. It is independent of
// the stage save and never advances the record.
func ApproveLineItem(rec model.ProcessRecord, itemID string, actor Actor, now time.Time) (model.ProcessRecord, model.AuditEvent, error) {
	if actor.Role == model.RoleViewer {
		return rec, model.AuditEvent{}, ErrReadOnlyUser
	}
	if !actor.Role.Elevated() && actor.Department != model.DeptEngenharia {
		return rec, model.AuditEvent{}, ErrWrongView
	}
	if IsLocked(&rec, actor, model.DeptEngenharia) {
		return rec, model.AuditEvent{}, ErrRecordLocked
	}

	out := rec.Clone()
	it := out.ItemByID(itemID)
	if it == nil {
		return rec, model.AuditEvent{}, ErrItemNotFound
	}

	rev := 0
	if it.EngineeringRevisionNumber != nil {
		rev = *it.EngineeringRevisionNumber + 1
	}
	it.EngineeringRevisionNumber = &rev
	it.EngineeringReviewedAt = model.TimePtr(now)
	it.EngineeringReviewedBy = actor.Name

	ev := NewEvent(actor, model.EventEngineeringReview, model.DeptEngenharia,
		fmt.Sprintf("Desenho aprovado: %s (REV %d)", it.Code, rev),
		map[string]any{"itemId": it.ID, "code": it.Code, "revision": rev}, now)
	Prepend(&out, ev)
	out.LastModifiedBy = actor.Name
	out.LastModifiedAt = model.TimePtr(now)
	return out, ev, nil
}
