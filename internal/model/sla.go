package model

import "time"

// ClockModel selects how elapsed time is counted for a stage.
type ClockModel string

const (
	ClockBusiness  ClockModel = "business"  // Mon-Fri, non-holiday hours
	ClockWallClock ClockModel = "wallclock" // raw elapsed hours
)

// SLAUnit is the unit a target is configured in. Hours are canonical
// internally; days are converted at this boundary.
type SLAUnit string

const (
	UnitHours SLAUnit = "hours"
	UnitDays  SLAUnit = "days"
)

// SLATarget is the configured turnaround for one stage.
type SLATarget struct {
	Stage     Stage      `gorm:"primaryKey;type:varchar(20)" json:"stage"`
	Value     int        `gorm:"not null" json:"value"`
	Unit      SLAUnit    `gorm:"type:varchar(10);not null" json:"unit"`
	Model     ClockModel `gorm:"type:varchar(12);not null" json:"model"`
	UpdatedAt time.Time  `json:"-"`
}

func (SLATarget) TableName() string { return "sla_targets" }

// Duration converts the target to canonical hours.
func (t SLATarget) Duration() time.Duration {
	h := t.Value
	if t.Unit == UnitDays {
		h *= 24
	}
	return time.Duration(h) * time.Hour
}

// SLASettings is a single-row table for global SLA parameters.
type SLASettings struct {
	ID                int `gorm:"primaryKey"`
	WarningWindowDays int `gorm:"not null"`
	UpdatedAt         time.Time
}

func (SLASettings) TableName() string { return "sla_settings" }

// Holiday is one excluded calendar date (YYYY-MM-DD).
type Holiday struct {
	Date        string    `gorm:"primaryKey;type:varchar(10)" json:"date"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"-"`
}

func (Holiday) TableName() string { return "holidays" }

// SLAConfig is the assembled view consumed by the calculator.
type SLAConfig struct {
	Targets           map[Stage]SLATarget `json:"targets"`
	WarningWindowDays int                 `json:"warningWindowDays"`
}

// Target returns the configured target for s.
func (c SLAConfig) Target(s Stage) (SLATarget, bool) {
	t, ok := c.Targets[s]
	return t, ok && t.Value > 0
}

func (c SLAConfig) WarningWindow() time.Duration {
	return time.Duration(c.WarningWindowDays) * 24 * time.Hour
}
