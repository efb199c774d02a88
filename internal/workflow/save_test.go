package workflow

import (
	"errors"
	"testing"
	"time"

	"pvflow/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Save ─────────────────────────────────────────────────────────────────────

func TestSave_HappyPathFromTriagem(t *testing.T) {
	stored := validRecord(model.StageTriagem)
	draft := stored.Clone()

	out, err := Save(&stored, draft, user(model.DeptComercial), model.DeptComercial, NeverConfirm, now)

	require.NoError(t, err)
	rec := out.Record
	assert.Equal(t, model.StageEstoque, rec.GeneralStatus)
	assert.Equal(t, now, rec.EnteredAt[model.StageEstoque])
	require.Len(t, rec.AuditTrail, 1)
	ev := rec.AuditTrail[0]
	assert.Equal(t, model.EventStatusUpdate, ev.Type)
	assert.Equal(t, "TRIAGEM -> ESTOQUE", ev.Summary)
	assert.Equal(t, model.DeptComercial, ev.Stage)
	assert.Equal(t, "TRIAGEM", ev.Meta["prevStatus"])
	assert.Equal(t, "ESTOQUE", ev.Meta["nextStatus"])
	assert.Equal(t, now.UnixMilli(), ev.AtEpochMs)
	assert.Equal(t, "Ana COMERCIAL", rec.LastModifiedBy)
	assert.Equal(t, model.CurrentSchemaVersion, rec.SchemaVersion)
}

func TestSave_NewRecordGetsIDAndTriagemStamp(t *testing.T) {
	draft := validRecord("")
	draft.ID = ""
	draft.Items[0].ID = ""
	draft.Items[0].EngineeringRevisionNumber = intPtr(4)

	out, err := Save(nil, draft, user(model.DeptComercial), model.DeptComercial, NeverConfirm, now)

	require.NoError(t, err)
	assert.Regexp(t, `^pv-`, out.Record.ID)
	assert.Regexp(t, `^it-`, out.Record.Items[0].ID)
	assert.Nil(t, out.Record.Items[0].EngineeringRevisionNumber)
	assert.Equal(t, now, out.Record.EnteredAt[model.StageTriagem])
	assert.Equal(t, model.StageEstoque, out.Record.GeneralStatus)
	require.NotNil(t, out.Record.LaunchedAt)
}

func TestSave_UnstampedStageKeepsItsAging(t *testing.T) {
	launched := now.Add(-72 * time.Hour)
	stored := validRecord(model.StagePlanejamento)
	stored.LaunchedAt = model.TimePtr(launched)
	draft := stored.Clone()
	draft.Planning().SCDate = "2025-02-11"

	out, err := Save(&stored, draft, user(model.DeptPlanejamento), model.DeptPlanejamento, NeverConfirm, now)

	require.NoError(t, err)
	assert.Equal(t, model.StagePlanejamento, out.Record.GeneralStatus)
	assert.Equal(t, launched, out.Record.EnteredAt[model.StagePlanejamento])

	// an existing stamp is never moved
	again, err := Save(&out.Record, out.Record.Clone(), user(model.DeptPlanejamento), model.DeptPlanejamento, NeverConfirm, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, launched, again.Record.EnteredAt[model.StagePlanejamento])
}

func TestSave_StaleDraftCannotRewindStage(t *testing.T) {
	stored := validRecord(model.StagePlanejamento)
	stale := validRecord(model.StageEstoque)
	stale.Stock().Notes = "aba antiga"

	_, err := Save(&stored, stale, user(model.DeptEstoque), model.DeptEstoque, NeverConfirm, now)
	assert.ErrorIs(t, err, ErrRecordLocked)

	// elevated users pass the lock, but the stage is still server-owned
	out, err := Save(&stored, stale, admin(), model.DeptEstoque, NeverConfirm, now)
	require.NoError(t, err)
	assert.Equal(t, model.StagePlanejamento, out.Record.GeneralStatus)
}

func TestSave_BlockedPersistsFieldsWithStageSave(t *testing.T) {
	stored := validRecord(model.StagePlanejamento)
	draft := stored.Clone()
	draft.Planning().SCDate = "2025-02-11"

	out, err := Save(&stored, draft, user(model.DeptPlanejamento), model.DeptPlanejamento, AlwaysConfirm, now)

	require.NoError(t, err)
	require.True(t, out.Decision.Blocked())
	assert.Equal(t, model.StagePlanejamento, out.Record.GeneralStatus)
	assert.Equal(t, "2025-02-11", out.Record.Planning().SCDate)
	require.Len(t, out.Record.AuditTrail, 1)
	assert.Equal(t, model.EventStageSave, out.Record.AuditTrail[0].Type)
	for _, ev := range out.Record.AuditTrail {
		assert.NotEqual(t, model.EventStatusUpdate, ev.Type)
	}
}

func TestSave_StampsResponsibleOfActingStage(t *testing.T) {
	stored := validRecord(model.StageEstoque)

	out, err := Save(&stored, stored.Clone(), user(model.DeptEstoque), model.DeptEstoque, NeverConfirm, now)

	require.NoError(t, err)
	assert.Equal(t, "Ana ESTOQUE", out.Record.Stock().Responsible)
	assert.True(t, out.Decision.Declined)
}

func TestSave_ValidationRefusesEverything(t *testing.T) {
	stored := validRecord(model.StageTriagem)
	draft := stored.Clone()
	draft.Client = " "

	_, err := Save(&stored, draft, user(model.DeptComercial), model.DeptComercial, AlwaysConfirm, now)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	require.Len(t, ve.Violations, 1)
	assert.Equal(t, ViolationClient, ve.Violations[0].Code)
	assert.Empty(t, stored.AuditTrail)
}

func TestSave_Guards(t *testing.T) {
	stored := validRecord(model.StageCompras)

	viewer := Actor{Name: "V", Department: model.DeptCompras, Role: model.RoleViewer}
	_, err := Save(&stored, stored, viewer, model.DeptCompras, AlwaysConfirm, now)
	assert.ErrorIs(t, err, ErrReadOnlyUser)

	_, err = Save(&stored, stored, user(model.DeptCompras), model.DeptLogistica, AlwaysConfirm, now)
	assert.ErrorIs(t, err, ErrViewNotAllowed)

	_, err = Save(&stored, stored, user(model.DeptEstoque), model.DeptEstoque, AlwaysConfirm, now)
	assert.ErrorIs(t, err, ErrRecordLocked)

	_, err = Save(nil, stored, user(model.DeptEstoque), model.DeptEstoque, AlwaysConfirm, now)
	assert.ErrorIs(t, err, ErrViewNotAllowed)
}

func TestSave_AdminAdvancesFromAnyView(t *testing.T) {
	stored := validRecord(model.StageFinanceiro)
	draft := stored.Clone()
	draft.Finance().PaymentStatus = model.PaymentPago

	out, err := Save(&stored, draft, admin(), model.DeptFinanceiro, AlwaysConfirm, now)

	require.NoError(t, err)
	assert.Equal(t, model.StageLogistica, out.Record.GeneralStatus)
}

// ── MergeDraft ───────────────────────────────────────────────────────────────

func TestMergeDraft_NonCommercialCannotTouchCommercialFields(t *testing.T) {
	stored := validRecord(model.StageCompras)
	draft := stored.Clone()
	draft.PVCode = "HACK"
	draft.Client = "OTHER"
	draft.Items[0].Quantity = "999"
	draft.Items[0].UnitPrice = decimal.NewFromInt(1)
	draft.Items[0].ManufacturingStatus = "EM PRODUCAO"
	draft.Items[0].EngineeringRevisionNumber = intPtr(3)
	draft.Items = append(draft.Items, model.LineItem{ID: "it-new", Code: "X"})
	draft.Purchasing().PONumber = "PO-9"
	draft.Finance().PaymentStatus = model.PaymentPago
	draft.GeneralStatus = model.StageFinalizado

	out := MergeDraft(&stored, draft, user(model.DeptCompras), model.DeptCompras)

	assert.Equal(t, "PV25-001", out.PVCode)
	assert.Equal(t, "VALE", out.Client)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "5", out.Items[0].Quantity)
	assert.Equal(t, "EM PRODUCAO", out.Items[0].ManufacturingStatus)
	assert.Nil(t, out.Items[0].EngineeringRevisionNumber)
	assert.Equal(t, "PO-9", out.Purchasing().PONumber)
	_, hasFinance := out.StageData[model.StageFinanceiro]
	assert.False(t, hasFinance)
	assert.Equal(t, model.StageCompras, out.GeneralStatus)
}

func TestMergeDraft_CommercialInTriagemKeepsRevisions(t *testing.T) {
	stored := validRecord(model.StageTriagem)
	stored.Items[0].EngineeringRevisionNumber = intPtr(2)
	draft := stored.Clone()
	draft.Items[0].EngineeringRevisionNumber = nil
	draft.Items[0].Quantity = "7"
	draft.Items = append(draft.Items, model.LineItem{Code: "NEW-1", Quantity: "1", SupplierName: "WEG"})

	out := MergeDraft(&stored, draft, user(model.DeptComercial), model.DeptComercial)

	require.Len(t, out.Items, 2)
	assert.Equal(t, "7", out.Items[0].Quantity)
	require.NotNil(t, out.Items[0].EngineeringRevisionNumber)
	assert.Equal(t, 2, *out.Items[0].EngineeringRevisionNumber)
	assert.NotEmpty(t, out.Items[1].ID)
}

func TestMergeDraft_StockGateFieldsAreServerOwned(t *testing.T) {
	stored := validRecord(model.StageEstoque)
	stored.Stock().Status = model.StockPendente
	draft := stored.Clone()
	draft.Stock().Status = model.StockConcluido
	draft.Stock().Notes = "separado"

	out := MergeDraft(&stored, draft, user(model.DeptEstoque), model.DeptEstoque)

	assert.Equal(t, model.StockPendente, out.Stock().Status)
	assert.Equal(t, "separado", out.Stock().Notes)
}

func TestMergeDraft_TrailAndFlagsAreServerOwned(t *testing.T) {
	stored := validRecord(model.StageEstoque)
	draft := stored.Clone()
	draft.AuditTrail = nil
	draft.AdminIntervention = true
	draft.EnteredAt = nil

	out := MergeDraft(&stored, draft, admin(), model.DeptEstoque)

	assert.NotNil(t, out.AuditTrail)
	assert.False(t, out.AdminIntervention)
}
