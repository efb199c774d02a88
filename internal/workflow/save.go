package workflow

import (
	"fmt"
	"time"

	"pvflow/internal/model"
)

// SaveOutcome is everything a store needs to persist one save.
type SaveOutcome struct {
	Record   model.ProcessRecord
	Decision Decision
	Event    model.AuditEvent
}

// Save runs the full save path for a draft edited from view: access guards,
// ownership merge, validation, gate decision, stamping and exactly one audit
// event. stored is nil when the draft is a new record.
//
// A blocked gate is not an error: the outcome is returned with
// Decision.Block set and the field edits are kept.
func Save(stored *model.ProcessRecord, draft model.ProcessRecord, actor Actor, view model.Department, confirm Confirmer, now time.Time) (SaveOutcome, error) {
	if actor.Role == model.RoleViewer {
		return SaveOutcome{}, ErrReadOnlyUser
	}
	if !actor.CanUseView(view) {
		return SaveOutcome{}, ErrViewNotAllowed
	}
	if stored == nil && !actor.Role.Elevated() && view != model.DeptComercial {
		return SaveOutcome{}, ErrViewNotAllowed
	}
	if IsLocked(stored, actor, view) {
		return SaveOutcome{}, ErrRecordLocked
	}

	merged := MergeDraft(stored, draft, actor, view)
	if v := Validate(merged); len(v) > 0 {
		return SaveOutcome{}, &ValidationError{Violations: v}
	}

	from := merged.Status()
	merged.StampEntered(from, entryFallback(stored, now))
	if merged.LaunchedAt == nil {
		merged.LaunchedAt = model.TimePtr(now)
	}

	dec := AttemptAdvance(merged, view, confirm, now)
	rec := dec.Record
	rec.SchemaVersion = model.CurrentSchemaVersion
	rec.LastModifiedBy = actor.Name
	rec.LastModifiedAt = model.TimePtr(now)
	if s, ok := view.OwnedStage(); ok && s == from {
		stampResponsible(&rec, s, actor.Name)
	}

	var ev model.AuditEvent
	switch {
	case dec.Advanced:
		ev = NewEvent(actor, model.EventStatusUpdate, view, TransitionSummary(dec.From, dec.To), map[string]any{
			"prevStatus": string(dec.From),
			"nextStatus": string(dec.To),
		}, now)
	default:
		meta := map[string]any{
			"prevStatus": string(from),
			"nextStatus": string(from),
		}
		if dec.Block != nil {
			meta["blocked"] = dec.Block.Reason
		}
		ev = NewEvent(actor, model.EventStageSave, view, fmt.Sprintf("Registro atualizado no modulo %s", view), meta, now)
	}
	Prepend(&rec, ev)

	dec.Record = rec
	return SaveOutcome{Record: rec, Decision: dec, Event: ev}, nil
}

// entryFallback is the entry time given to a stored record that was never
// stamped for its current stage. It matches the aging fallback so a first
// save does not restart the clock.
func entryFallback(stored *model.ProcessRecord, now time.Time) time.Time {
	switch {
	case stored == nil:
		return now
	case stored.LaunchedAt != nil:
		return *stored.LaunchedAt
	case stored.LastModifiedAt != nil:
		return *stored.LastModifiedAt
	}
	return now
}

func stampResponsible(rec *model.ProcessRecord, s model.Stage, name string) {
	switch s {
	case model.StageEstoque:
		rec.Stock().Responsible = name
	case model.StagePlanejamento:
		rec.Planning().Responsible = name
	case model.StageCompras:
		rec.Purchasing().Responsible = name
	case model.StageEngenharia:
		rec.Engineering().Responsible = name
	case model.StageFinanceiro:
		rec.Finance().Responsible = name
	case model.StageLogistica:
		rec.Logistics().Responsible = name
	}
}
