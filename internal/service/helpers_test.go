package service

import (
	"context"
	"testing"
	"time"

	"pvflow/internal/loader"
	"pvflow/internal/model"
	"pvflow/internal/repository"
	"pvflow/internal/store"
	"pvflow/internal/workflow"

	"github.com/stretchr/testify/require"
)

// 2025-02-17 is a Monday.
var fixedNow = time.Date(2025, 2, 17, 12, 0, 0, 0, time.UTC)

const testWipePhrase = "APAGAR DEFINITIVAMENTE"

type fixture struct {
	store   *store.Store
	records *processService
	sla     *slaService
	slaRepo repository.SLARepository
}

func newFixture(t *testing.T, opts ...store.Option) *fixture {
	t.Helper()
	st := store.New(repository.NewMemoryRecordRepository(loader.Seeds()...), opts...)

	ps := NewProcessService(st, nil, loader.New(time.UTC), testWipePhrase).(*processService)
	ps.now = func() time.Time { return fixedNow }

	slaRepo := repository.NewMemorySLARepository()
	ss := NewSLAService(slaRepo, st, SLADefaults{
		StockHours:        24,
		PurchasingDays:    3,
		FinanceDays:       2,
		LogisticsDays:     45,
		WarningWindowDays: 1,
		Location:          time.UTC,
	}).(*slaService)
	ss.now = func() time.Time { return fixedNow }

	return &fixture{store: st, records: ps, sla: ss, slaRepo: slaRepo}
}

// moveTo rewrites a seed record's stage in place, bypassing the workflow.
func (f *fixture) moveTo(t *testing.T, id string, stage model.Stage) {
	t.Helper()
	ctx := context.Background()
	rec, err := f.store.Get(ctx, id)
	require.NoError(t, err)
	rec.GeneralStatus = stage
	_, err = f.store.Upsert(ctx, *rec)
	require.NoError(t, err)
}

func actor(dept model.Department) workflow.Actor {
	return workflow.Actor{Name: "Usuario " + string(dept), Email: "u@pv.test", Department: dept, Role: model.RoleUser}
}

func adminActor(role model.Role) workflow.Actor {
	return workflow.Actor{Name: "Admin", Email: "admin@pv.test", Department: model.DeptAdmin, Role: role}
}

func ids(recs []model.ProcessRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}
