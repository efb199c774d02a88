package workflow

import (
	"fmt"
	"strings"
	"time"

	"pvflow/internal/model"
)

// Reopen moves rec back to stage so its owner can edit it again, resetting
// that stage's gate fields. Only elevated users may reopen and a reason is
// mandatory. The returned record is a copy; rec is untouched on error.
func Reopen(rec model.ProcessRecord, actor Actor, stage model.Stage, reason string, now time.Time) (model.ProcessRecord, model.AuditEvent, error) {
	if !actor.Role.Elevated() {
		return rec, model.AuditEvent{}, ErrNotPrivileged
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return rec, model.AuditEvent{}, ErrReasonRequired
	}
	if !stage.Valid() || stage == model.StageFinalizado {
		return rec, model.AuditEvent{}, ErrInvalidStage
	}
	from := rec.Status()
	if from.Before(stage) {
		return rec, model.AuditEvent{}, ErrStageNotReached
	}

	out := rec.Clone()
	switch stage {
	case model.StageEstoque:
		st := out.Stock()
		st.Status = model.StockPendente
		st.CompletedAt = nil
		st.Responsible = ""
	case model.StageCompras:
		p := out.Purchasing()
		p.PCNumber = ""
		p.PCDate = ""
	case model.StageFinanceiro:
		out.Finance().PaymentStatus = model.PaymentPendente
	}

	out.GeneralStatus = stage
	out.AdminIntervention = true
	out.InterventionReason = strings.ToUpper(reason)
	out.InterventionAt = model.TimePtr(now)
	out.ReopenedStage = stage
	out.ReopenedAt = model.TimePtr(now)
	out.LastModifiedBy = "ADMIN: " + actor.Name
	out.LastModifiedAt = model.TimePtr(now)

	ev := NewEvent(actor, model.EventStageReopen, stage.Owner(),
		fmt.Sprintf("Etapa %s reaberta: %s", stage, out.InterventionReason),
		map[string]any{"reason": reason, "prevStatus": string(from), "nextStatus": string(stage)}, now)
	Prepend(&out, ev)
	return out, ev, nil
}

// CheckWipe guards permanent deletion: SUPER_ADMIN only, and the typed
// phrase must match exactly.
func CheckWipe(actor Actor, typed, expected string) error {
	if actor.Role != model.RoleSuperAdmin {
		return ErrNotPrivileged
	}
	if expected == "" || strings.TrimSpace(typed) != expected {
		return ErrConfirmationMismatch
	}
	return nil
}
