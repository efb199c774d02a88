package loader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"pvflow/internal/model"

	"github.com/rs/zerolog/log"
)

// Loader decodes records of any schema version. Legacy day-first dates
// without a zone are read in Location.
type Loader struct {
	Location *time.Location
}

func New(loc *time.Location) *Loader {
	if loc == nil {
		loc = time.UTC
	}
	return &Loader{Location: loc}
}

// DecodeRecord decodes and upgrades one record object.
func (l *Loader) DecodeRecord(data []byte) (model.ProcessRecord, error) {
	var raw map[string]any
	if err := decodeJSON(data, &raw); err != nil || raw == nil {
		return model.ProcessRecord{}, fmt.Errorf("%w: registro nao e um objeto JSON", ErrMalformed)
	}
	return l.FromMap(raw)
}

// FromMap upgrades an already decoded record object. raw is modified.
func (l *Loader) FromMap(raw map[string]any) (model.ProcessRecord, error) {
	if err := Normalize(raw, l.Location); err != nil {
		return model.ProcessRecord{}, err
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return model.ProcessRecord{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var rec model.ProcessRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return model.ProcessRecord{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if rec.AuditTrail == nil {
		rec.AuditTrail = []model.AuditEvent{}
	}
	if rec.Items == nil {
		rec.Items = []model.LineItem{}
	}
	return rec, nil
}

// DecodeCollection accepts a JSON array of records or an object wrapping
// one under "records", "items" or "data". Records that cannot be upgraded
// are skipped and logged. A collection with entries but no usable record is
// malformed.
func (l *Loader) DecodeCollection(data []byte) ([]model.ProcessRecord, error) {
	var parsed any
	if err := decodeJSON(data, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	entries, ok := collectionEntries(parsed)
	if !ok {
		return nil, fmt.Errorf("%w: colecao nao encontrada", ErrMalformed)
	}

	out := make([]model.ProcessRecord, 0, len(entries))
	for i, e := range entries {
		m, ok := e.(map[string]any)
		if !ok {
			log.Warn().Int("index", i).Msg("loader: entrada ignorada, nao e um objeto")
			continue
		}
		rec, err := l.FromMap(m)
		if err != nil {
			log.Warn().Err(err).Int("index", i).Msg("loader: registro ignorado")
			continue
		}
		out = append(out, rec)
	}
	if len(entries) > 0 && len(out) == 0 {
		return nil, fmt.Errorf("%w: nenhum registro valido", ErrMalformed)
	}
	return out, nil
}

// LoadOrSeed decodes a stored collection and falls back to the seed set
// when the data is missing, empty or malformed. It never fails.
func (l *Loader) LoadOrSeed(data []byte) (records []model.ProcessRecord, seeded bool) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Seeds(), true
	}
	recs, err := l.DecodeCollection(data)
	if err != nil {
		log.Warn().Err(err).Msg("loader: dados corrompidos, usando registros de exemplo")
		return Seeds(), true
	}
	if len(recs) == 0 {
		return Seeds(), true
	}
	return recs, false
}

func collectionEntries(parsed any) ([]any, bool) {
	switch v := parsed.(type) {
	case []any:
		return v, true
	case map[string]any:
		for _, k := range []string{"records", "items", "data"} {
			if arr, ok := v[k].([]any); ok {
				return arr, true
			}
		}
	}
	return nil, false
}

func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
