package repository

import (
	"context"
	"sort"
	"sync"

	"pvflow/internal/model"
)

type memorySLARepo struct {
	mu       sync.RWMutex
	targets  map[model.Stage]model.SLATarget
	settings *model.SLASettings
	holidays map[string]model.Holiday
}

// NewMemorySLARepository keeps SLA settings in process memory.
func NewMemorySLARepository() SLARepository {
	return &memorySLARepo{
		targets:  make(map[model.Stage]model.SLATarget),
		holidays: make(map[string]model.Holiday),
	}
}

func (r *memorySLARepo) Targets(_ context.Context) ([]model.SLATarget, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.SLATarget, 0, len(r.targets))
	for _, t := range r.targets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Stage.Index() < out[j].Stage.Index() })
	return out, nil
}

func (r *memorySLARepo) Settings(_ context.Context) (*model.SLASettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.settings == nil {
		return nil, nil
	}
	s := *r.settings
	return &s, nil
}

func (r *memorySLARepo) SaveConfig(_ context.Context, targets []model.SLATarget, warningWindowDays int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range targets {
		r.targets[t.Stage] = t
	}
	r.settings = &model.SLASettings{ID: 1, WarningWindowDays: warningWindowDays}
	return nil
}

func (r *memorySLARepo) Holidays(_ context.Context) ([]model.Holiday, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Holiday, 0, len(r.holidays))
	for _, h := range r.holidays {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (r *memorySLARepo) AddHoliday(_ context.Context, h *model.Holiday) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.holidays[h.Date] = *h
	return nil
}

func (r *memorySLARepo) RemoveHoliday(_ context.Context, date string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.holidays[date]; !ok {
		return ErrNotFound
	}
	delete(r.holidays, date)
	return nil
}
