package repository

import (
	"context"
	"encoding/json"
	"time"

	"pvflow/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AuditFilter narrows the cross-record audit search. Zero values match all.
type AuditFilter struct {
	RecordID   string
	Type       model.EventType
	Department model.Department
	Actor      string
	FromMs     int64
	ToMs       int64
	Page       int
	Limit      int
}

// AuditRepository mirrors trail events into an append-only table.
type AuditRepository interface {
	Append(ctx context.Context, recordID, pvCode string, events []model.AuditEvent) error
	Search(ctx context.Context, f AuditFilter) ([]model.AuditEvent, int64, error)
	DeleteByRecord(ctx context.Context, recordID string) error
}

type auditRepo struct{ db *gorm.DB }

func NewAuditRepository(db *gorm.DB) AuditRepository { return &auditRepo{db: db} }

// Append is idempotent per event id, so replaying a save never duplicates rows.
func (r *auditRepo) Append(ctx context.Context, recordID, pvCode string, events []model.AuditEvent) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([]model.AuditEventRow, 0, len(events))
	for _, ev := range events {
		row := model.AuditEventRow{
			ID:              ev.ID,
			RecordID:        recordID,
			PVCode:          pvCode,
			AtEpochMs:       ev.AtEpochMs,
			ActorName:       ev.ActorName,
			ActorDepartment: string(ev.ActorDepartment),
			Type:            string(ev.Type),
			Stage:           string(ev.Stage),
			Summary:         ev.Summary,
		}
		if len(ev.Meta) > 0 {
			b, err := json.Marshal(ev.Meta)
			if err != nil {
				return err
			}
			s := string(b)
			row.Meta = &s
		}
		rows = append(rows, row)
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

func (r *auditRepo) Search(ctx context.Context, f AuditFilter) ([]model.AuditEvent, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 200 {
		f.Limit = 50
	}

	q := r.db.WithContext(ctx).Model(&model.AuditEventRow{})
	if f.RecordID != "" {
		q = q.Where("record_id = ?", f.RecordID)
	}
	if f.Type != "" {
		q = q.Where("type = ?", string(f.Type))
	}
	if f.Department != "" {
		q = q.Where("stage = ?", string(f.Department))
	}
	if f.Actor != "" {
		q = q.Where("LOWER(actor_name) LIKE LOWER(?)", "%"+f.Actor+"%")
	}
	if f.FromMs > 0 {
		q = q.Where("at_epoch_ms >= ?", f.FromMs)
	}
	if f.ToMs > 0 {
		q = q.Where("at_epoch_ms <= ?", f.ToMs)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []model.AuditEventRow
	if err := q.Order("at_epoch_ms DESC").
		Limit(f.Limit).
		Offset((f.Page - 1) * f.Limit).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	out := make([]model.AuditEvent, 0, len(rows))
	for _, row := range rows {
		ev := model.AuditEvent{
			ID:              row.ID,
			AtEpochMs:       row.AtEpochMs,
			ActorName:       row.ActorName,
			ActorDepartment: model.Department(row.ActorDepartment),
			Type:            model.EventType(row.Type),
			Stage:           model.Department(row.Stage),
			Summary:         row.Summary,
		}
		ev.AtISO = epochISO(row.AtEpochMs)
		if row.Meta != nil {
			_ = json.Unmarshal([]byte(*row.Meta), &ev.Meta)
		}
		out = append(out, ev)
	}
	return out, total, nil
}

func (r *auditRepo) DeleteByRecord(ctx context.Context, recordID string) error {
	return r.db.WithContext(ctx).Where("record_id = ?", recordID).Delete(&model.AuditEventRow{}).Error
}

func epochISO(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
}
