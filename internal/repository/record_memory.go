package repository

import (
	"context"
	"sort"
	"sync"

	"pvflow/internal/model"
)

// memoryRecordRepo keeps records in process memory. Used for
// STORE_BACKEND=memory and in tests.
type memoryRecordRepo struct {
	mu      sync.RWMutex
	records map[string]model.ProcessRecord
	order   map[string]int
	seq     int
}

func NewMemoryRecordRepository(seed ...model.ProcessRecord) RecordRepository {
	r := &memoryRecordRepo{
		records: make(map[string]model.ProcessRecord),
		order:   make(map[string]int),
	}
	for _, rec := range seed {
		_ = r.Put(context.Background(), rec)
	}
	return r
}

func (r *memoryRecordRepo) List(_ context.Context) ([]model.ProcessRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.ProcessRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return r.order[out[i].ID] < r.order[out[j].ID] })
	return out, nil
}

func (r *memoryRecordRepo) Get(_ context.Context, id string) (*model.ProcessRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := rec.Clone()
	return &c, nil
}

func (r *memoryRecordRepo) Put(_ context.Context, rec model.ProcessRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.order[rec.ID]; !ok {
		r.seq++
		r.order[rec.ID] = r.seq
	}
	r.records[rec.ID] = rec.Clone()
	return nil
}

func (r *memoryRecordRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return ErrNotFound
	}
	delete(r.records, id)
	delete(r.order, id)
	return nil
}
