package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"pvflow/internal/dto"
	"pvflow/internal/model"
	"pvflow/internal/repository"
	"pvflow/internal/sla"
	"pvflow/internal/store"
	"pvflow/internal/workflow"
)

var (
	ErrNoSLA            = errors.New("etapa atual sem SLA configurado")
	ErrHolidayNotFound  = errors.New("feriado nao encontrado")
	ErrInvalidSLATarget = errors.New("meta de SLA invalida")
)

// SLADefaults are the targets used for stages never configured by an admin.
type SLADefaults struct {
	StockHours        int
	PurchasingDays    int
	FinanceDays       int
	LogisticsDays     int
	WarningWindowDays int
	Location          *time.Location
}

func (d SLADefaults) config() model.SLAConfig {
	return model.SLAConfig{
		Targets: map[model.Stage]model.SLATarget{
			model.StageEstoque:    {Stage: model.StageEstoque, Value: d.StockHours, Unit: model.UnitHours, Model: model.ClockBusiness},
			model.StageCompras:    {Stage: model.StageCompras, Value: d.PurchasingDays, Unit: model.UnitDays, Model: model.ClockWallClock},
			model.StageFinanceiro: {Stage: model.StageFinanceiro, Value: d.FinanceDays, Unit: model.UnitDays, Model: model.ClockWallClock},
			model.StageLogistica:  {Stage: model.StageLogistica, Value: d.LogisticsDays, Unit: model.UnitDays, Model: model.ClockWallClock},
		},
		WarningWindowDays: d.WarningWindowDays,
	}
}

type SLAService interface {
	Config(ctx context.Context) (*dto.SLAConfigResponse, error)
	UpdateConfig(ctx context.Context, actor workflow.Actor, req dto.SLAConfigRequest) (*dto.SLAConfigResponse, error)
	Holidays(ctx context.Context) ([]model.Holiday, error)
	AddHoliday(ctx context.Context, actor workflow.Actor, req dto.HolidayRequest) (*model.Holiday, error)
	RemoveHoliday(ctx context.Context, actor workflow.Actor, date string) error
	Urgency(ctx context.Context, recordID string) (*dto.UrgencyResponse, error)
	StockPanel(ctx context.Context) (*sla.StockPanel, error)
	Overview(ctx context.Context) (*dto.SLAOverview, error)
	Overdue(ctx context.Context, now time.Time) ([]dto.UrgencyResponse, error)
}

type slaService struct {
	repo     repository.SLARepository
	store    *store.Store
	defaults SLADefaults
	now      func() time.Time
}

func NewSLAService(repo repository.SLARepository, st *store.Store, defaults SLADefaults) SLAService {
	if defaults.Location == nil {
		defaults.Location = time.UTC
	}
	return &slaService{repo: repo, store: st, defaults: defaults, now: time.Now}
}

// load merges stored targets over the defaults and builds the calendar.
func (s *slaService) load(ctx context.Context) (model.SLAConfig, sla.Calendar, error) {
	cfg := s.defaults.config()
	targets, err := s.repo.Targets(ctx)
	if err != nil {
		return cfg, sla.Calendar{}, fmt.Errorf("%w: %v", store.ErrPersistence, err)
	}
	for _, t := range targets {
		cfg.Targets[t.Stage] = t
	}
	settings, err := s.repo.Settings(ctx)
	if err != nil {
		return cfg, sla.Calendar{}, fmt.Errorf("%w: %v", store.ErrPersistence, err)
	}
	if settings != nil {
		cfg.WarningWindowDays = settings.WarningWindowDays
	}

	holidays, err := s.repo.Holidays(ctx)
	if err != nil {
		return cfg, sla.Calendar{}, fmt.Errorf("%w: %v", store.ErrPersistence, err)
	}
	dates := make([]string, len(holidays))
	for i, h := range holidays {
		dates[i] = h.Date
	}
	return cfg, sla.NewCalendar(s.defaults.Location, dates), nil
}

func (s *slaService) Config(ctx context.Context) (*dto.SLAConfigResponse, error) {
	cfg, _, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.configResponse(cfg), nil
}

func (s *slaService) configResponse(cfg model.SLAConfig) *dto.SLAConfigResponse {
	resp := &dto.SLAConfigResponse{
		Targets:           make([]model.SLATarget, 0, len(cfg.Targets)),
		WarningWindowDays: cfg.WarningWindowDays,
		Timezone:          s.defaults.Location.String(),
	}
	for _, st := range model.StageOrder {
		if t, ok := cfg.Targets[st]; ok {
			resp.Targets = append(resp.Targets, t)
		}
	}
	return resp
}

func (s *slaService) UpdateConfig(ctx context.Context, actor workflow.Actor, req dto.SLAConfigRequest) (*dto.SLAConfigResponse, error) {
	if !actor.Role.Elevated() {
		return nil, workflow.ErrNotPrivileged
	}
	targets := make([]model.SLATarget, 0, len(req.Targets))
	for _, t := range req.Targets {
		stage, ok := model.ParseStage(t.Stage)
		if !ok || stage == model.StageTriagem || stage == model.StageFinalizado {
			return nil, fmt.Errorf("%w: %s", ErrInvalidSLATarget, t.Stage)
		}
		targets = append(targets, model.SLATarget{
			Stage: stage,
			Value: t.Value,
			Unit:  model.SLAUnit(t.Unit),
			Model: model.ClockModel(t.Model),
		})
	}
	if err := s.repo.SaveConfig(ctx, targets, req.WarningWindowDays); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrPersistence, err)
	}
	return s.Config(ctx)
}

func (s *slaService) Holidays(ctx context.Context) ([]model.Holiday, error) {
	return s.repo.Holidays(ctx)
}

func (s *slaService) AddHoliday(ctx context.Context, actor workflow.Actor, req dto.HolidayRequest) (*model.Holiday, error) {
	if !actor.Role.Elevated() {
		return nil, workflow.ErrNotPrivileged
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		return nil, ErrInvalidDate
	}
	h := &model.Holiday{Date: req.Date, Description: req.Description}
	if err := s.repo.AddHoliday(ctx, h); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrPersistence, err)
	}
	return h, nil
}

func (s *slaService) RemoveHoliday(ctx context.Context, actor workflow.Actor, date string) error {
	if !actor.Role.Elevated() {
		return workflow.ErrNotPrivileged
	}
	err := s.repo.RemoveHoliday(ctx, date)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrHolidayNotFound
	}
	return err
}

func (s *slaService) Urgency(ctx context.Context, recordID string) (*dto.UrgencyResponse, error) {
	rec, err := s.store.Get(ctx, recordID)
	if err != nil {
		return nil, err
	}
	cfg, cal, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	u, ok := urgencyOf(rec, cfg, cal, s.now())
	if !ok {
		return nil, ErrNoSLA
	}
	return &u, nil
}

func (s *slaService) StockPanel(ctx context.Context) (*sla.StockPanel, error) {
	recs, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	cfg, cal, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	target, _ := cfg.Target(model.StageEstoque)
	panel := sla.BuildStockPanel(recs, int(target.Duration().Hours()), cfg.WarningWindow(), cal, s.now())
	return &panel, nil
}

// Overview lists the light of every open record that has a target for its
// current stage, reddest first.
func (s *slaService) Overview(ctx context.Context) (*dto.SLAOverview, error) {
	now := s.now()
	all, err := s.evaluate(ctx, now)
	if err != nil {
		return nil, err
	}
	ov := &dto.SLAOverview{
		GeneratedAt: now,
		Counts:      map[sla.Level]int{sla.Green: 0, sla.Yellow: 0, sla.Red: 0},
		Records:     all,
	}
	for _, u := range all {
		ov.Counts[u.Level]++
	}
	return ov, nil
}

// Overdue returns the records already RED at now.
func (s *slaService) Overdue(ctx context.Context, now time.Time) ([]dto.UrgencyResponse, error) {
	all, err := s.evaluate(ctx, now)
	if err != nil {
		return nil, err
	}
	out := make([]dto.UrgencyResponse, 0)
	for _, u := range all {
		if u.Level == sla.Red {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *slaService) evaluate(ctx context.Context, now time.Time) ([]dto.UrgencyResponse, error) {
	recs, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	cfg, cal, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.UrgencyResponse, 0, len(recs))
	for i := range recs {
		if u, ok := urgencyOf(&recs[i], cfg, cal, now); ok {
			out = append(out, u)
		}
	}
	sortByRemaining(out)
	return out, nil
}

func urgencyOf(rec *model.ProcessRecord, cfg model.SLAConfig, cal sla.Calendar, now time.Time) (dto.UrgencyResponse, bool) {
	res, ok := sla.ForRecord(rec, cfg, cal, now)
	if !ok {
		return dto.UrgencyResponse{}, false
	}
	stage := rec.Status()
	target, _ := cfg.Target(stage)
	start, _ := sla.StageStart(rec, stage)
	return dto.UrgencyResponse{
		RecordID:       rec.ID,
		PVCode:         rec.PVCode,
		Client:         rec.Client,
		Stage:          stage,
		Model:          target.Model,
		StageStart:     start,
		TargetHours:    target.Duration().Hours(),
		ElapsedHours:   res.ElapsedHours(),
		RemainingHours: res.RemainingHours(),
		Elapsed:        sla.FormatDuration(wholeHours(res.Elapsed)),
		Remaining:      sla.FormatDuration(wholeHours(res.Remaining)),
		Level:          res.Level,
	}, true
}

func wholeHours(d time.Duration) int { return int(d / time.Hour) }

func sortByRemaining(us []dto.UrgencyResponse) {
	sort.SliceStable(us, func(i, j int) bool { return us[i].RemainingHours < us[j].RemainingHours })
}
