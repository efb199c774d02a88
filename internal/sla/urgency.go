package sla

import (
	"time"

	"pvflow/internal/model"
)

// Level is the traffic light shown on dashboards.
type Level string

const (
	Green  Level = "GREEN"
	Yellow Level = "YELLOW"
	Red    Level = "RED"
)

// Input holds everything ComputeUrgency depends on.
type Input struct {
	EnteredAt     time.Time
	Now           time.Time
	Target        time.Duration
	Model         model.ClockModel
	WarningWindow time.Duration
	Calendar      Calendar
}

type Result struct {
	Elapsed   time.Duration `json:"elapsed"`
	Remaining time.Duration `json:"remaining"`
	Level     Level         `json:"level"`
}

// ElapsedHours and RemainingHours are the dashboard units.
func (r Result) ElapsedHours() float64   { return r.Elapsed.Hours() }
func (r Result) RemainingHours() float64 { return r.Remaining.Hours() }

// ComputeUrgency measures the time spent since EnteredAt under the chosen
// clock model and classifies what is left of Target.
//
// RED once nothing remains, YELLOW while the remainder is inside the
// warning window, GREEN before that. A fresh stage whose whole target fits
// in the window exactly is still GREEN.
func ComputeUrgency(in Input) Result {
	var elapsed time.Duration
	switch in.Model {
	case model.ClockBusiness:
		elapsed = time.Duration(BusinessHoursBetween(in.EnteredAt, in.Now, in.Calendar)) * time.Hour
	default:
		elapsed = in.Now.Sub(in.EnteredAt)
	}
	if elapsed < 0 {
		elapsed = 0
	}

	remaining := in.Target - elapsed
	return Result{Elapsed: elapsed, Remaining: remaining, Level: classify(remaining, in.WarningWindow)}
}

func classify(remaining, window time.Duration) Level {
	switch {
	case remaining <= 0:
		return Red
	case remaining < window:
		return Yellow
	default:
		return Green
	}
}
