package sla

import (
	"testing"
	"time"

	"pvflow/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── ComputeUrgency ───────────────────────────────────────────────────────────

func TestComputeUrgency_TrafficLightBoundaries(t *testing.T) {
	now := at(2025, 2, 12, 12)
	base := Input{
		Now:           now,
		Target:        24 * time.Hour,
		Model:         model.ClockWallClock,
		WarningWindow: 24 * time.Hour,
	}
	cases := []struct {
		ago       time.Duration
		remaining time.Duration
		level     Level
	}{
		{0, 24 * time.Hour, Green},
		{23 * time.Hour, time.Hour, Yellow},
		{24 * time.Hour, 0, Red},
		{25 * time.Hour, -time.Hour, Red},
	}
	for _, tc := range cases {
		in := base
		in.EnteredAt = now.Add(-tc.ago)
		got := ComputeUrgency(in)
		assert.Equal(t, tc.remaining, got.Remaining, "ago=%s", tc.ago)
		assert.Equal(t, tc.level, got.Level, "ago=%s", tc.ago)
	}

	// the window edge is exclusive: exactly one window left is still GREEN
	long := base
	long.Target = 72 * time.Hour
	long.EnteredAt = now.Add(-48 * time.Hour)
	got := ComputeUrgency(long)
	assert.Equal(t, 24*time.Hour, got.Remaining)
	assert.Equal(t, Green, got.Level)

	long.EnteredAt = long.EnteredAt.Add(-time.Second)
	assert.Equal(t, Yellow, ComputeUrgency(long).Level)
}

func TestComputeUrgency_BusinessModelSkipsWeekend(t *testing.T) {
	in := Input{
		EnteredAt:     at(2025, 2, 14, 12), // Friday
		Now:           at(2025, 2, 17, 12), // Monday
		Target:        24 * time.Hour,
		Model:         model.ClockBusiness,
		WarningWindow: 24 * time.Hour,
		Calendar:      NewCalendar(time.UTC, nil),
	}

	got := ComputeUrgency(in)

	assert.Equal(t, 24*time.Hour, got.Elapsed)
	assert.Equal(t, Red, got.Level)

	in.Model = model.ClockWallClock
	assert.Equal(t, 72*time.Hour, ComputeUrgency(in).Elapsed)
}

func TestComputeUrgency_FutureEntryClampsElapsed(t *testing.T) {
	now := at(2025, 2, 12, 12)
	got := ComputeUrgency(Input{EnteredAt: now.Add(time.Hour), Now: now, Target: 48 * time.Hour, WarningWindow: 24 * time.Hour})
	assert.Equal(t, time.Duration(0), got.Elapsed)
	assert.Equal(t, Green, got.Level)
}

func TestComputeUrgency_Deterministic(t *testing.T) {
	in := Input{EnteredAt: at(2025, 2, 10, 8), Now: at(2025, 2, 12, 9), Target: 72 * time.Hour, Model: model.ClockBusiness, WarningWindow: 24 * time.Hour, Calendar: NewCalendar(time.UTC, []string{"2025-02-11"})}
	assert.Equal(t, ComputeUrgency(in), ComputeUrgency(in))
}

// ── Record helpers ───────────────────────────────────────────────────────────

func slaConfig() model.SLAConfig {
	return model.SLAConfig{
		Targets: map[model.Stage]model.SLATarget{
			model.StageEstoque: {Stage: model.StageEstoque, Value: 24, Unit: model.UnitHours, Model: model.ClockBusiness},
			model.StageCompras: {Stage: model.StageCompras, Value: 3, Unit: model.UnitDays, Model: model.ClockWallClock},
		},
		WarningWindowDays: 1,
	}
}

func TestForRecord(t *testing.T) {
	now := at(2025, 2, 12, 12)
	rec := model.ProcessRecord{
		GeneralStatus: model.StageCompras,
		EnteredAt:     map[model.Stage]time.Time{model.StageCompras: now.Add(-50 * time.Hour)},
	}

	got, ok := ForRecord(&rec, slaConfig(), NewCalendar(time.UTC, nil), now)

	require.True(t, ok)
	assert.Equal(t, 22*time.Hour, got.Remaining)
	assert.Equal(t, Yellow, got.Level)

	rec.GeneralStatus = model.StagePlanejamento
	_, ok = ForRecord(&rec, slaConfig(), NewCalendar(time.UTC, nil), now)
	assert.False(t, ok, "no target configured")

	rec.GeneralStatus = model.StageFinalizado
	_, ok = ForRecord(&rec, slaConfig(), NewCalendar(time.UTC, nil), now)
	assert.False(t, ok)
}

func TestStageStart_Fallbacks(t *testing.T) {
	launched := at(2025, 2, 1, 8)
	modified := at(2025, 2, 2, 8)
	rec := model.ProcessRecord{LastModifiedAt: &modified}

	got, ok := StageStart(&rec, model.StageEstoque)
	require.True(t, ok)
	assert.Equal(t, modified, got)

	rec.LaunchedAt = &launched
	got, _ = StageStart(&rec, model.StageEstoque)
	assert.Equal(t, launched, got)

	_, ok = StageStart(&model.ProcessRecord{}, model.StageEstoque)
	assert.False(t, ok)
}

func TestBuildStockPanel(t *testing.T) {
	now := at(2025, 2, 12, 12) // Wednesday
	cal := NewCalendar(time.UTC, nil)
	mk := func(id string, status model.Stage, enteredAgo time.Duration, stock model.StockData) model.ProcessRecord {
		r := model.ProcessRecord{ID: id, PVCode: id, GeneralStatus: status,
			EnteredAt: map[model.Stage]time.Time{model.StageEstoque: now.Add(-enteredAgo)}}
		r.SetData(&stock)
		return r
	}
	recent := now.Add(-2 * time.Hour)
	old := now.Add(-30 * time.Hour)
	records := []model.ProcessRecord{
		mk("young", model.StageEstoque, 2*time.Hour, model.StockData{Status: model.StockPendente}),
		mk("late", model.StageEstoque, 30*time.Hour, model.StockData{Status: model.StockPendente}),
		mk("moved-on", model.StageCompras, 40*time.Hour, model.StockData{Status: model.StockPendente}),
		mk("done-recent", model.StagePlanejamento, 5*time.Hour, model.StockData{Status: model.StockConcluido, CompletedAt: &recent}),
		mk("done-old", model.StagePlanejamento, 50*time.Hour, model.StockData{Status: model.StockConcluido, CompletedAt: &old}),
	}

	panel := BuildStockPanel(records, 24, 24*time.Hour, cal, now)

	require.Len(t, panel.Queue, 2)
	assert.Equal(t, "late", panel.Queue[0].RecordID)
	assert.True(t, panel.Queue[0].Late)
	assert.Equal(t, Red, panel.Queue[0].Level)
	assert.Equal(t, "young", panel.Queue[1].RecordID)
	assert.Equal(t, 22, panel.Queue[1].RemainingHours)
	require.Len(t, panel.Concluded, 1)
	assert.Equal(t, "done-recent", panel.Concluded[0].RecordID)
}

func TestBuildStockPanel_ConcludedCappedAtEight(t *testing.T) {
	now := at(2025, 2, 12, 12)
	var records []model.ProcessRecord
	for i := 0; i < 12; i++ {
		done := now.Add(-time.Duration(i+1) * time.Hour)
		r := model.ProcessRecord{ID: string(rune('a' + i)), GeneralStatus: model.StagePlanejamento}
		r.SetData(&model.StockData{Status: model.StockConcluido, CompletedAt: &done})
		records = append(records, r)
	}

	panel := BuildStockPanel(records, 24, 24*time.Hour, NewCalendar(time.UTC, nil), now)

	require.Len(t, panel.Concluded, 8)
	assert.Equal(t, "a", panel.Concluded[0].RecordID)
	assert.Empty(t, panel.Queue)
}
