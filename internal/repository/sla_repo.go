package repository

import (
	"context"
	"time"

	"pvflow/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SLARepository stores per-stage targets, the warning window and the
// holiday calendar.
type SLARepository interface {
	Targets(ctx context.Context) ([]model.SLATarget, error)
	Settings(ctx context.Context) (*model.SLASettings, error)
	SaveConfig(ctx context.Context, targets []model.SLATarget, warningWindowDays int) error
	Holidays(ctx context.Context) ([]model.Holiday, error)
	AddHoliday(ctx context.Context, h *model.Holiday) error
	RemoveHoliday(ctx context.Context, date string) error
}

type slaRepo struct{ db *gorm.DB }

func NewSLARepository(db *gorm.DB) SLARepository { return &slaRepo{db: db} }

func (r *slaRepo) Targets(ctx context.Context) ([]model.SLATarget, error) {
	var out []model.SLATarget
	err := r.db.WithContext(ctx).Find(&out).Error
	return out, err
}

// Settings returns nil without error when the row was never written.
func (r *slaRepo) Settings(ctx context.Context) (*model.SLASettings, error) {
	var s []model.SLASettings
	if err := r.db.WithContext(ctx).Where("id = 1").Limit(1).Find(&s).Error; err != nil {
		return nil, err
	}
	if len(s) == 0 {
		return nil, nil
	}
	return &s[0], nil
}

func (r *slaRepo) SaveConfig(ctx context.Context, targets []model.SLATarget, warningWindowDays int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range targets {
			targets[i].UpdatedAt = time.Now()
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "stage"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "unit", "model", "updated_at"}),
			}).Create(&targets[i]).Error; err != nil {
				return err
			}
		}
		settings := model.SLASettings{ID: 1, WarningWindowDays: warningWindowDays}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"warning_window_days", "updated_at"}),
		}).Create(&settings).Error
	})
}

func (r *slaRepo) Holidays(ctx context.Context) ([]model.Holiday, error) {
	var out []model.Holiday
	err := r.db.WithContext(ctx).Order("date").Find(&out).Error
	return out, err
}

func (r *slaRepo) AddHoliday(ctx context.Context, h *model.Holiday) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"description"}),
	}).Create(h).Error
}

func (r *slaRepo) RemoveHoliday(ctx context.Context, date string) error {
	res := r.db.WithContext(ctx).Where("date = ?", date).Delete(&model.Holiday{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
