package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"pvflow/internal/dto"
	"pvflow/internal/loader"
	"pvflow/internal/model"
	"pvflow/internal/repository"
	"pvflow/internal/sla"
	"pvflow/internal/store"
	"pvflow/internal/workflow"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ProcessService is the application surface over the record store and the
// workflow rules. Every write goes through the store's locked
// read-modify-write, so the rules always run against the stored version of
// the record.
type ProcessService interface {
	List(ctx context.Context, f dto.RecordFilter) ([]model.ProcessRecord, error)
	Get(ctx context.Context, id string) (*model.ProcessRecord, error)
	Queue(ctx context.Context, dept model.Department) ([]model.ProcessRecord, error)
	Validate(draft model.ProcessRecord) dto.ValidateRecordResponse
	Save(ctx context.Context, actor workflow.Actor, req dto.SaveRecordRequest) (*dto.SaveRecordResponse, error)
	ApproveLineItem(ctx context.Context, actor workflow.Actor, recordID, itemID string) (*model.ProcessRecord, error)
	LockStatus(ctx context.Context, actor workflow.Actor, recordID, view string) (*dto.LockStatusResponse, error)
	AuditTrail(ctx context.Context, recordID string, q dto.AuditQuery) (*dto.AuditPage, error)
	SearchAudit(ctx context.Context, q dto.AdminAuditQuery) (*dto.AuditPage, error)
	Reopen(ctx context.Context, actor workflow.Actor, recordID string, req dto.ReopenRequest) (*model.ProcessRecord, error)
	Wipe(ctx context.Context, actor workflow.Actor, recordID string, req dto.WipeRequest) error
	ImportLegacy(ctx context.Context, actor workflow.Actor, data []byte) (*dto.ImportResponse, error)
	Subscribe(fn func([]model.ProcessRecord)) (unsubscribe func())
}

type processService struct {
	store      *store.Store
	audit      repository.AuditRepository
	loader     *loader.Loader
	wipePhrase string
	now        func() time.Time
}

// NewProcessService wires the service. audit may be nil, in which case
// cross-record audit search scans the embedded trails.
func NewProcessService(st *store.Store, audit repository.AuditRepository, l *loader.Loader, wipePhrase string) ProcessService {
	return &processService{store: st, audit: audit, loader: l, wipePhrase: wipePhrase, now: time.Now}
}

func (s *processService) List(ctx context.Context, f dto.RecordFilter) ([]model.ProcessRecord, error) {
	recs, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	status, filterStatus := model.ParseStage(f.Status)
	out := make([]model.ProcessRecord, 0, len(recs))
	for i := range recs {
		rec := &recs[i]
		if filterStatus && rec.Status() != status {
			continue
		}
		if !filterStatus && !f.IncludeFinished && rec.Status() == model.StageFinalizado {
			continue
		}
		if !matchesSearch(rec, f.Search) {
			continue
		}
		out = append(out, *rec)
	}
	return out, nil
}

func matchesSearch(rec *model.ProcessRecord, q string) bool {
	if sla.MatchWildcard(rec.PVCode, q) || sla.MatchWildcard(rec.Client, q) || sla.MatchWildcard(rec.ClientPO, q) {
		return true
	}
	if p, ok := rec.StageData[model.StagePlanejamento].(*model.PlanningData); ok {
		return sla.MatchWildcard(p.SCNumber, q)
	}
	return false
}

func (s *processService) Get(ctx context.Context, id string) (*model.ProcessRecord, error) {
	return s.store.Get(ctx, id)
}

// Queue lists the records waiting on dept: those whose current stage is the
// one the department owns. ADMIN sees every open record.
func (s *processService) Queue(ctx context.Context, dept model.Department) ([]model.ProcessRecord, error) {
	recs, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	owned, ok := dept.OwnedStage()
	if !ok && dept != model.DeptAdmin {
		return nil, workflow.ErrViewNotAllowed
	}
	out := make([]model.ProcessRecord, 0)
	for _, rec := range recs {
		status := rec.Status()
		if dept == model.DeptAdmin {
			if status != model.StageFinalizado {
				out = append(out, rec)
			}
			continue
		}
		if status == owned {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *processService) Validate(draft model.ProcessRecord) dto.ValidateRecordResponse {
	v := workflow.Validate(draft)
	if v == nil {
		v = []workflow.Violation{}
	}
	return dto.ValidateRecordResponse{Valid: len(v) == 0, Violations: v}
}

func (s *processService) Save(ctx context.Context, actor workflow.Actor, req dto.SaveRecordRequest) (*dto.SaveRecordResponse, error) {
	view, ok := model.ParseDepartment(req.View)
	if !ok {
		return nil, workflow.ErrViewNotAllowed
	}
	draft := req.Record
	// The id doubles as the lock key, so new records get theirs up front.
	if draft.ID == "" {
		draft.ID = "pv-" + uuid.NewString()
	}
	confirm := workflow.NeverConfirm
	if req.ConfirmAdvance {
		confirm = workflow.AlwaysConfirm
	}

	var outcome workflow.SaveOutcome
	saved, err := s.store.Mutate(ctx, draft.ID, req.BaseVersion, func(cur *model.ProcessRecord) (model.ProcessRecord, []model.AuditEvent, error) {
		o, err := workflow.Save(cur, draft, actor, view, confirm, s.now())
		if err != nil {
			return model.ProcessRecord{}, nil, err
		}
		outcome = o
		return o.Record, []model.AuditEvent{o.Event}, nil
	})
	if err != nil {
		saveRejectionsTotal.WithLabelValues(rejectionReason(err)).Inc()
		return nil, err
	}

	dec := outcome.Decision
	switch {
	case dec.Advanced:
		stageTransitionsTotal.WithLabelValues(string(dec.From), string(dec.To)).Inc()
	case dec.Block != nil:
		gateBlocksTotal.WithLabelValues(string(dec.Block.Stage), dec.Block.Field).Inc()
	}
	log.Info().
		Str("record_id", saved.ID).
		Str("pv_code", saved.PVCode).
		Str("view", string(view)).
		Str("status", string(saved.Status())).
		Bool("advanced", dec.Advanced).
		Int64("version", saved.Version).
		Msg("registro salvo")

	return &dto.SaveRecordResponse{
		Record:   saved,
		Advanced: dec.Advanced,
		From:     dec.From,
		To:       dec.To,
		Declined: dec.Declined,
		Prompt:   dec.Prompt,
		Blocked:  dec.Block,
		Event:    outcome.Event,
	}, nil
}

func (s *processService) ApproveLineItem(ctx context.Context, actor workflow.Actor, recordID, itemID string) (*model.ProcessRecord, error) {
	saved, err := s.store.MutateLatest(ctx, recordID, func(cur *model.ProcessRecord) (model.ProcessRecord, []model.AuditEvent, error) {
		if cur == nil {
			return model.ProcessRecord{}, nil, store.ErrRecordNotFound
		}
		out, ev, err := workflow.ApproveLineItem(*cur, itemID, actor, s.now())
		if err != nil {
			return model.ProcessRecord{}, nil, err
		}
		return out, []model.AuditEvent{ev}, nil
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (s *processService) LockStatus(ctx context.Context, actor workflow.Actor, recordID, view string) (*dto.LockStatusResponse, error) {
	dept := actor.Department
	if view != "" {
		d, ok := model.ParseDepartment(view)
		if !ok {
			return nil, workflow.ErrViewNotAllowed
		}
		dept = d
	}
	rec, err := s.store.Get(ctx, recordID)
	if err != nil {
		return nil, err
	}
	locked := !actor.CanUseView(dept) || actor.Role == model.RoleViewer || workflow.IsLocked(rec, actor, dept)
	return &dto.LockStatusResponse{
		RecordID: rec.ID,
		Status:   rec.Status(),
		View:     dept,
		Locked:   locked,
	}, nil
}

// AuditTrail pages through the trail embedded in the record, newest first.
func (s *processService) AuditTrail(ctx context.Context, recordID string, q dto.AuditQuery) (*dto.AuditPage, error) {
	rec, err := s.store.Get(ctx, recordID)
	if err != nil {
		return nil, err
	}
	page, limit := clampPage(q.Page, q.Limit)
	return pageEvents(rec.AuditTrail, page, limit), nil
}

func (s *processService) SearchAudit(ctx context.Context, q dto.AdminAuditQuery) (*dto.AuditPage, error) {
	f, err := auditFilter(q)
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		events, total, err := s.audit.Search(ctx, f)
		if err == nil {
			return &dto.AuditPage{
				Data:       events,
				Total:      total,
				Page:       f.Page,
				Limit:      f.Limit,
				TotalPages: totalPages(total, f.Limit),
			}, nil
		}
		log.Warn().Err(err).Msg("busca de auditoria indisponivel, usando trilhas dos registros")
	}

	recs, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	var all []model.AuditEvent
	for _, rec := range recs {
		if f.RecordID != "" && rec.ID != f.RecordID {
			continue
		}
		for _, ev := range rec.AuditTrail {
			if matchesAudit(ev, f) {
				all = append(all, ev)
			}
		}
	}
	sortEventsDesc(all)
	return pageEvents(all, f.Page, f.Limit), nil
}

func (s *processService) Reopen(ctx context.Context, actor workflow.Actor, recordID string, req dto.ReopenRequest) (*model.ProcessRecord, error) {
	stage, ok := model.ParseStage(req.Stage)
	if !ok {
		return nil, workflow.ErrInvalidStage
	}
	saved, err := s.store.MutateLatest(ctx, recordID, func(cur *model.ProcessRecord) (model.ProcessRecord, []model.AuditEvent, error) {
		if cur == nil {
			return model.ProcessRecord{}, nil, store.ErrRecordNotFound
		}
		out, ev, err := workflow.Reopen(*cur, actor, stage, req.Reason, s.now())
		if err != nil {
			return model.ProcessRecord{}, nil, err
		}
		return out, []model.AuditEvent{ev}, nil
	})
	if err != nil {
		return nil, err
	}
	log.Warn().
		Str("record_id", saved.ID).
		Str("actor", actor.Email).
		Str("stage", string(stage)).
		Str("reason", saved.InterventionReason).
		Msg("intervencao administrativa: etapa reaberta")
	return &saved, nil
}

func (s *processService) Wipe(ctx context.Context, actor workflow.Actor, recordID string, req dto.WipeRequest) error {
	if err := workflow.CheckWipe(actor, req.Confirmation, s.wipePhrase); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, recordID); err != nil {
		return err
	}
	log.Warn().Str("record_id", recordID).Str("actor", actor.Email).Msg("registro excluido permanentemente")
	return nil
}

// ImportLegacy upgrades an exported collection of any past schema and
// upserts every usable record.
func (s *processService) ImportLegacy(ctx context.Context, actor workflow.Actor, data []byte) (*dto.ImportResponse, error) {
	if !actor.Role.Elevated() {
		return nil, workflow.ErrNotPrivileged
	}
	recs, err := s.loader.DecodeCollection(data)
	if err != nil {
		return nil, err
	}
	resp := &dto.ImportResponse{IDs: make([]string, 0, len(recs))}
	for _, rec := range recs {
		saved, err := s.store.Upsert(ctx, rec)
		if err != nil {
			return resp, fmt.Errorf("importar %s: %w", rec.PVCode, err)
		}
		resp.Imported++
		resp.IDs = append(resp.IDs, saved.ID)
	}
	log.Info().Int("imported", resp.Imported).Str("actor", actor.Email).Msg("importacao concluida")
	return resp, nil
}

func (s *processService) Subscribe(fn func([]model.ProcessRecord)) func() {
	return s.store.Subscribe(fn)
}

// ── helpers ──────────────────────────────────────────────────────────────────

func rejectionReason(err error) string {
	var verr *workflow.ValidationError
	switch {
	case errors.As(err, &verr):
		return "validation"
	case errors.Is(err, workflow.ErrRecordLocked):
		return "locked"
	case errors.Is(err, workflow.ErrReadOnlyUser), errors.Is(err, workflow.ErrViewNotAllowed):
		return "access"
	case errors.Is(err, store.ErrVersionConflict):
		return "conflict"
	default:
		return "other"
	}
}

var ErrInvalidDate = errors.New("data invalida, use AAAA-MM-DD")

func auditFilter(q dto.AdminAuditQuery) (repository.AuditFilter, error) {
	page, limit := clampPage(q.Page, q.Limit)
	f := repository.AuditFilter{
		RecordID:   q.RecordID,
		Type:       model.EventType(q.Type),
		Department: model.Department(q.Department),
		Actor:      q.Actor,
		Page:       page,
		Limit:      limit,
	}
	if q.From != "" {
		t, err := time.Parse("2006-01-02", q.From)
		if err != nil {
			return f, ErrInvalidDate
		}
		f.FromMs = t.UnixMilli()
	}
	if q.To != "" {
		t, err := time.Parse("2006-01-02", q.To)
		if err != nil {
			return f, ErrInvalidDate
		}
		f.ToMs = t.Add(24*time.Hour).UnixMilli() - 1
	}
	return f, nil
}

func matchesAudit(ev model.AuditEvent, f repository.AuditFilter) bool {
	if f.Type != "" && ev.Type != f.Type {
		return false
	}
	if f.Department != "" && ev.Stage != f.Department {
		return false
	}
	if f.Actor != "" && !sla.MatchWildcard(ev.ActorName, f.Actor) {
		return false
	}
	if f.FromMs > 0 && ev.AtEpochMs < f.FromMs {
		return false
	}
	if f.ToMs > 0 && ev.AtEpochMs > f.ToMs {
		return false
	}
	return true
}

func sortEventsDesc(events []model.AuditEvent) {
	sort.SliceStable(events, func(i, j int) bool { return events[i].AtEpochMs > events[j].AtEpochMs })
}

func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	return page, limit
}

func pageEvents(events []model.AuditEvent, page, limit int) *dto.AuditPage {
	total := int64(len(events))
	start := (page - 1) * limit
	if start > len(events) {
		start = len(events)
	}
	end := start + limit
	if end > len(events) {
		end = len(events)
	}
	data := make([]model.AuditEvent, end-start)
	copy(data, events[start:end])
	return &dto.AuditPage{
		Data:       data,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	}
}

func totalPages(total int64, limit int) int {
	return int(math.Ceil(float64(total) / float64(limit)))
}
