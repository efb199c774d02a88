package model

import (
	"encoding/json"
	"fmt"
)

// recordFields has the same layout as ProcessRecord without its JSON methods.
type recordFields ProcessRecord

// MarshalJSON writes the core fields and every non-empty stage group into a
// single flat object, the shape stored records have always had.
func (r ProcessRecord) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(recordFields(r))
	if err != nil {
		return nil, err
	}
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(base, &flat); err != nil {
		return nil, err
	}

	for _, s := range StageOrder {
		d, ok := r.StageData[s]
		if !ok || d == nil || d.isZero() {
			continue
		}
		raw, err := json.Marshal(d)
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", s, err)
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, err
		}
		for k, v := range fields {
			flat[k] = v
		}
	}
	return json.Marshal(flat)
}

// UnmarshalJSON reads the flat object back, picking each stage group's
// fields out of the top level.
func (r *ProcessRecord) UnmarshalJSON(data []byte) error {
	var core recordFields
	if err := json.Unmarshal(data, &core); err != nil {
		return err
	}
	*r = ProcessRecord(core)
	r.StageData = nil

	for _, s := range StageOrder {
		d := newStageData(s)
		if d == nil {
			continue
		}
		if err := json.Unmarshal(data, d); err != nil {
			return fmt.Errorf("stage %s: %w", s, err)
		}
		if !d.isZero() {
			r.SetData(d)
		}
	}
	return nil
}
