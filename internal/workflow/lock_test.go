package workflow

import (
	"testing"

	"pvflow/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestIsLocked(t *testing.T) {
	rec := func(s model.Stage) *model.ProcessRecord {
		r := validRecord(s)
		return &r
	}
	cases := []struct {
		name   string
		rec    *model.ProcessRecord
		user   Actor
		view   model.Department
		locked bool
	}{
		{"owner of current stage", rec(model.StageEstoque), user(model.DeptEstoque), model.DeptEstoque, false},
		{"stage moved on", rec(model.StageCompras), user(model.DeptEstoque), model.DeptEstoque, true},
		{"admin on finalized", rec(model.StageFinalizado), admin(), model.DeptLogistica, false},
		{"super admin anywhere", rec(model.StageCompras), Actor{Role: model.RoleSuperAdmin}, model.DeptComercial, false},
		{"finalized for users", rec(model.StageFinalizado), user(model.DeptLogistica), model.DeptLogistica, true},
		{"finalized in commercial", rec(model.StageFinalizado), user(model.DeptComercial), model.DeptComercial, true},
		{"commercial in triage", rec(model.StageTriagem), user(model.DeptComercial), model.DeptComercial, false},
		{"commercial with empty status", rec(""), user(model.DeptComercial), model.DeptComercial, false},
		{"commercial after triage", rec(model.StageEstoque), user(model.DeptComercial), model.DeptComercial, true},
		{"other view in triage", rec(model.StageTriagem), user(model.DeptEstoque), model.DeptEstoque, true},
		{"new draft", nil, user(model.DeptComercial), model.DeptComercial, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.locked, IsLocked(tc.rec, tc.user, tc.view))
		})
	}
}

func TestIsLocked_AdminAnyRecordAnyView(t *testing.T) {
	for _, s := range model.StageOrder {
		r := validRecord(s)
		for _, v := range model.Departments {
			assert.False(t, IsLocked(&r, admin(), v), "%s/%s", s, v)
		}
	}
}
