package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"pvflow/internal/loader"
	"pvflow/internal/model"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("registro nao encontrado")

// RecordRepository persists whole records. Implementations store the flat
// JSON document and decode it through the loader, so rows written by older
// versions are upgraded on read.
type RecordRepository interface {
	List(ctx context.Context) ([]model.ProcessRecord, error)
	Get(ctx context.Context, id string) (*model.ProcessRecord, error)
	Put(ctx context.Context, rec model.ProcessRecord) error
	Delete(ctx context.Context, id string) error
}

type recordRepo struct {
	db     *gorm.DB
	loader *loader.Loader
}

func NewRecordRepository(db *gorm.DB, l *loader.Loader) RecordRepository {
	return &recordRepo{db: db, loader: l}
}

// List skips rows whose payload cannot be decoded; one corrupt row must not
// hide the rest of the pipeline.
func (r *recordRepo) List(ctx context.Context) ([]model.ProcessRecord, error) {
	var rows []model.RecordRow
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]model.ProcessRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := r.loader.DecodeRecord([]byte(row.Payload))
		if err != nil {
			log.Warn().Err(err).Str("record_id", row.ID).Msg("registro corrompido ignorado")
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *recordRepo) Get(ctx context.Context, id string) (*model.ProcessRecord, error) {
	var row model.RecordRow
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rec, err := r.loader.DecodeRecord([]byte(row.Payload))
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *recordRepo) Put(ctx context.Context, rec model.ProcessRecord) error {
	row, err := toRecordRow(rec)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"pv_code", "client", "general_status", "version", "payload", "updated_at"}),
	}).Create(&row).Error
}

func (r *recordRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.RecordRow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func toRecordRow(rec model.ProcessRecord) (model.RecordRow, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return model.RecordRow{}, fmt.Errorf("encode record %s: %w", rec.ID, err)
	}
	return model.RecordRow{
		ID:            rec.ID,
		PVCode:        rec.PVCode,
		Client:        rec.Client,
		GeneralStatus: string(rec.Status()),
		Version:       rec.Version,
		Payload:       string(b),
	}, nil
}
