package sla

import (
	"sort"
	"time"

	"pvflow/internal/model"
)

// StageStart is when rec started its time in stage. Records migrated from
// older data may lack the stage stamp, so the launch and last change times
// stand in.
func StageStart(rec *model.ProcessRecord, stage model.Stage) (time.Time, bool) {
	if t, ok := rec.EnteredAtOf(stage); ok {
		return t, true
	}
	if rec.LaunchedAt != nil {
		return *rec.LaunchedAt, true
	}
	if rec.LastModifiedAt != nil {
		return *rec.LastModifiedAt, true
	}
	return time.Time{}, false
}

// ForRecord computes urgency for rec's current stage. It reports false for
// finished records and for stages without a configured target.
func ForRecord(rec *model.ProcessRecord, cfg model.SLAConfig, cal Calendar, now time.Time) (Result, bool) {
	stage := rec.Status()
	if stage == model.StageFinalizado {
		return Result{}, false
	}
	target, ok := cfg.Target(stage)
	if !ok {
		return Result{}, false
	}
	start, ok := StageStart(rec, stage)
	if !ok {
		return Result{}, false
	}
	return ComputeUrgency(Input{
		EnteredAt:     start,
		Now:           now,
		Target:        target.Duration(),
		Model:         target.Model,
		WarningWindow: cfg.WarningWindow(),
		Calendar:      cal,
	}), true
}

// StockEntry is one line of the physical stock queue.
type StockEntry struct {
	RecordID       string      `json:"recordId"`
	PVCode         string      `json:"pvCode"`
	Client         string      `json:"client"`
	Status         model.Stage `json:"generalStatus"`
	Start          time.Time   `json:"start"`
	ElapsedHours   int         `json:"elapsedHours"`
	RemainingHours int         `json:"remainingHours"`
	Elapsed        string      `json:"elapsed"`
	Late           bool        `json:"late"`
	Level          Level       `json:"level"`
}

type ConcludedEntry struct {
	RecordID    string    `json:"recordId"`
	PVCode      string    `json:"pvCode"`
	Client      string    `json:"client"`
	CompletedAt time.Time `json:"completedAt"`
	Responsible string    `json:"responsible,omitempty"`
}

type StockPanel struct {
	Queue     []StockEntry     `json:"queue"`
	Concluded []ConcludedEntry `json:"recentlyConcluded"`
}

const recentConcludedMax = 8

// BuildStockPanel lists records still waiting on stock (TRIAGEM or ESTOQUE,
// stock not concluded) oldest first by business hours, plus up to eight
// records whose stock was concluded in the last 24 hours.
func BuildStockPanel(records []model.ProcessRecord, targetHours int, window time.Duration, cal Calendar, now time.Time) StockPanel {
	panel := StockPanel{Queue: []StockEntry{}, Concluded: []ConcludedEntry{}}
	cutoff := now.Add(-24 * time.Hour)

	for i := range records {
		rec := &records[i]
		st, _ := rec.StageData[model.StageEstoque].(*model.StockData)
		concluded := st != nil && st.Status == model.StockConcluido

		if concluded {
			if st.CompletedAt != nil && st.CompletedAt.After(cutoff) {
				panel.Concluded = append(panel.Concluded, ConcludedEntry{
					RecordID:    rec.ID,
					PVCode:      rec.PVCode,
					Client:      rec.Client,
					CompletedAt: *st.CompletedAt,
					Responsible: st.Responsible,
				})
			}
			continue
		}
		status := rec.Status()
		if status != model.StageTriagem && status != model.StageEstoque {
			continue
		}
		start, ok := StageStart(rec, model.StageEstoque)
		if !ok {
			continue
		}
		elapsed := BusinessHoursBetween(start, now, cal)
		remaining := targetHours - elapsed
		panel.Queue = append(panel.Queue, StockEntry{
			RecordID:       rec.ID,
			PVCode:         rec.PVCode,
			Client:         rec.Client,
			Status:         status,
			Start:          start,
			ElapsedHours:   elapsed,
			RemainingHours: remaining,
			Elapsed:        FormatDuration(elapsed),
			Late:           remaining < 0,
			Level:          classify(time.Duration(remaining)*time.Hour, window),
		})
	}

	sort.SliceStable(panel.Queue, func(i, j int) bool {
		return panel.Queue[i].ElapsedHours > panel.Queue[j].ElapsedHours
	})
	sort.SliceStable(panel.Concluded, func(i, j int) bool {
		return panel.Concluded[i].CompletedAt.After(panel.Concluded[j].CompletedAt)
	})
	if len(panel.Concluded) > recentConcludedMax {
		panel.Concluded = panel.Concluded[:recentConcludedMax]
	}
	return panel
}
