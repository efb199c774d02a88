package service

import (
	"context"
	"testing"

	"pvflow/internal/dto"
	"pvflow/internal/model"
	"pvflow/internal/store"
	"pvflow/internal/workflow"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── List / Queue ─────────────────────────────────────────────────────────────

func TestProcessService_List(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	open, err := f.records.List(ctx, dto.RecordFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"sim-1", "sim-2", "sim-3"}, ids(open))

	all, err := f.records.List(ctx, dto.RecordFilter{IncludeFinished: true})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	bySC, err := f.records.List(ctx, dto.RecordFilter{Search: "sc-2025*"})
	require.NoError(t, err)
	assert.Equal(t, []string{"sim-3"}, ids(bySC))

	byClient, err := f.records.List(ctx, dto.RecordFilter{Search: "petro"})
	require.NoError(t, err)
	assert.Equal(t, []string{"sim-2"}, ids(byClient))

	finished, err := f.records.List(ctx, dto.RecordFilter{Status: "finalizado"})
	require.NoError(t, err)
	assert.Equal(t, []string{"sim-4"}, ids(finished))
}

func TestProcessService_Queue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	q, err := f.records.Queue(ctx, model.DeptEstoque)
	require.NoError(t, err)
	assert.Equal(t, []string{"sim-2"}, ids(q))

	q, err = f.records.Queue(ctx, model.DeptComercial)
	require.NoError(t, err)
	assert.Equal(t, []string{"sim-1"}, ids(q))

	q, err = f.records.Queue(ctx, model.DeptAdmin)
	require.NoError(t, err)
	assert.Len(t, q, 3)

	_, err = f.records.Queue(ctx, model.Department("RH"))
	assert.ErrorIs(t, err, workflow.ErrViewNotAllowed)
}

func TestProcessService_Validate(t *testing.T) {
	f := newFixture(t)

	res := f.records.Validate(model.ProcessRecord{})
	assert.False(t, res.Valid)
	assert.NotEmpty(t, res.Violations)

	rec, _ := f.store.Get(context.Background(), "sim-1")
	res = f.records.Validate(*rec)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Violations)
}

// ── Save ─────────────────────────────────────────────────────────────────────

func newDraft() model.ProcessRecord {
	return model.ProcessRecord{
		PVCode:   "PV25-100",
		Client:   "CSN",
		ClientPO: "PO-CSN-1",
		PVDate:   "2025-02-17",
		Items: []model.LineItem{{
			Code: "FLG-1", Quantity: "3", UnitPrice: decimal.NewFromInt(10),
			Currency: model.CurrencyUSD, SupplierName: "SWAGELOK",
		}},
	}
}

func TestProcessService_SaveNewRecordLaunchesToStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.records.Save(ctx, actor(model.DeptComercial), dto.SaveRecordRequest{
		View:   "COMERCIAL",
		Record: newDraft(),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.Record.ID)
	assert.True(t, res.Advanced)
	assert.Equal(t, model.StageTriagem, res.From)
	assert.Equal(t, model.StageEstoque, res.To)
	assert.Equal(t, int64(1), res.Record.Version)
	assert.Equal(t, model.EventStatusUpdate, res.Event.Type)
	assert.NotEmpty(t, res.Record.Items[0].ID)

	stored, err := f.store.Get(ctx, res.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StageEstoque, stored.Status())
	assert.Equal(t, fixedNow, stored.EnteredAt[model.StageEstoque])
	require.Len(t, stored.AuditTrail, 1)
}

func TestProcessService_SaveNewRecordOutsideCommercial(t *testing.T) {
	f := newFixture(t)
	_, err := f.records.Save(context.Background(), actor(model.DeptCompras), dto.SaveRecordRequest{
		View:   "COMPRAS",
		Record: newDraft(),
	})
	assert.ErrorIs(t, err, workflow.ErrViewNotAllowed)
}

func TestProcessService_SaveAsksForConfirmation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stored, _ := f.store.Get(ctx, "sim-2")
	stored.Stock().Notes = "conferido"

	res, err := f.records.Save(ctx, actor(model.DeptEstoque), dto.SaveRecordRequest{View: "ESTOQUE", Record: *stored})
	require.NoError(t, err)
	assert.False(t, res.Advanced)
	assert.True(t, res.Declined)
	assert.NotEmpty(t, res.Prompt)
	assert.Equal(t, model.StageEstoque, res.Record.Status())
	assert.Equal(t, "conferido", res.Record.Stock().Notes)

	res, err = f.records.Save(ctx, actor(model.DeptEstoque), dto.SaveRecordRequest{
		View: "ESTOQUE", Record: res.Record, ConfirmAdvance: true,
	})
	require.NoError(t, err)
	assert.True(t, res.Advanced)
	assert.Equal(t, model.StagePlanejamento, res.Record.Status())
	assert.Equal(t, model.StockConcluido, res.Record.Stock().Status)
	assert.Equal(t, int64(2), res.Record.Version)
}

func TestProcessService_SaveBlockedGateKeepsEdits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stored, _ := f.store.Get(ctx, "sim-3")
	stored.Purchasing().Supplier = "WEG SA"

	res, err := f.records.Save(ctx, actor(model.DeptCompras), dto.SaveRecordRequest{
		View: "COMPRAS", Record: *stored, ConfirmAdvance: true,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Blocked)
	assert.Equal(t, "poNumber", res.Blocked.Field)

	got, _ := f.store.Get(ctx, "sim-3")
	assert.Equal(t, model.StageCompras, got.Status())
	assert.Equal(t, "WEG SA", got.Purchasing().Supplier)
}

func TestProcessService_SaveRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stored, _ := f.store.Get(ctx, "sim-2")

	_, err := f.records.Save(ctx, actor(model.DeptCompras), dto.SaveRecordRequest{View: "COMPRAS", Record: *stored})
	assert.ErrorIs(t, err, workflow.ErrRecordLocked)

	_, err = f.records.Save(ctx, actor(model.DeptCompras), dto.SaveRecordRequest{View: "ESTOQUE", Record: *stored})
	assert.ErrorIs(t, err, workflow.ErrViewNotAllowed)

	_, err = f.records.Save(ctx, actor(model.DeptEstoque), dto.SaveRecordRequest{View: "NOPE", Record: *stored})
	assert.ErrorIs(t, err, workflow.ErrViewNotAllowed)

	viewer := actor(model.DeptEstoque)
	viewer.Role = model.RoleViewer
	_, err = f.records.Save(ctx, viewer, dto.SaveRecordRequest{View: "ESTOQUE", Record: *stored})
	assert.ErrorIs(t, err, workflow.ErrReadOnlyUser)

	draft := newDraft()
	draft.Client = ""
	_, err = f.records.Save(ctx, actor(model.DeptComercial), dto.SaveRecordRequest{View: "COMERCIAL", Record: draft})
	var verr *workflow.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, workflow.ViolationClient, verr.Violations[0].Code)

	after, _ := f.store.Get(ctx, "sim-2")
	assert.Equal(t, int64(0), after.Version)
}

func TestProcessService_SaveOptimisticConflict(t *testing.T) {
	f := newFixture(t, store.WithConflictMode(store.Optimistic))
	ctx := context.Background()
	stored, _ := f.store.Get(ctx, "sim-2")

	_, err := f.records.Save(ctx, actor(model.DeptEstoque), dto.SaveRecordRequest{View: "ESTOQUE", Record: *stored, BaseVersion: 0})
	require.NoError(t, err)

	_, err = f.records.Save(ctx, actor(model.DeptEstoque), dto.SaveRecordRequest{View: "ESTOQUE", Record: *stored, BaseVersion: 0})
	assert.ErrorIs(t, err, store.ErrVersionConflict)
}

// ── Engineering / lock ───────────────────────────────────────────────────────

func TestProcessService_ApproveLineItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	eng := actor(model.DeptEngenharia)
	f.moveTo(t, "sim-3", model.StageEngenharia)

	rec, err := f.records.ApproveLineItem(ctx, eng, "sim-3", "it-3")
	require.NoError(t, err)
	require.NotNil(t, rec.Items[0].EngineeringRevisionNumber)
	assert.Equal(t, 0, *rec.Items[0].EngineeringRevisionNumber)

	rec, err = f.records.ApproveLineItem(ctx, eng, "sim-3", "it-3")
	require.NoError(t, err)
	assert.Equal(t, 1, *rec.Items[0].EngineeringRevisionNumber)
	assert.Equal(t, model.StageEngenharia, rec.Status(), "approval never advances")
	assert.Equal(t, model.EventEngineeringReview, rec.AuditTrail[0].Type)

	_, err = f.records.ApproveLineItem(ctx, eng, "sim-3", "missing")
	assert.ErrorIs(t, err, workflow.ErrItemNotFound)

	_, err = f.records.ApproveLineItem(ctx, eng, "nope", "it-3")
	assert.ErrorIs(t, err, store.ErrRecordNotFound)

	_, err = f.records.ApproveLineItem(ctx, actor(model.DeptCompras), "sim-3", "it-3")
	assert.ErrorIs(t, err, workflow.ErrWrongView)

	// past its own stage the record is locked for engineering
	_, err = f.records.ApproveLineItem(ctx, eng, "sim-4", "it-4")
	assert.ErrorIs(t, err, workflow.ErrRecordLocked)
	_, err = f.records.ApproveLineItem(ctx, eng, "sim-2", "it-2")
	assert.ErrorIs(t, err, workflow.ErrRecordLocked)
}

func TestProcessService_ApproveAndReopenInOptimisticMode(t *testing.T) {
	f := newFixture(t, store.WithConflictMode(store.Optimistic))
	ctx := context.Background()
	stored, _ := f.store.Get(ctx, "sim-2")
	stored.Stock().Notes = "conferido"

	res, err := f.records.Save(ctx, actor(model.DeptEstoque), dto.SaveRecordRequest{
		View: "ESTOQUE", Record: *stored, ConfirmAdvance: true,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), res.Record.Version)

	rec, err := f.records.Reopen(ctx, adminActor(model.RoleAdmin), "sim-2", dto.ReopenRequest{Stage: "ESTOQUE", Reason: "recontagem"})
	require.NoError(t, err)
	assert.Equal(t, model.StageEstoque, rec.Status())
	assert.Equal(t, int64(2), rec.Version)

	f.moveTo(t, "sim-3", model.StageEngenharia)
	rec, err = f.records.ApproveLineItem(ctx, actor(model.DeptEngenharia), "sim-3", "it-3")
	require.NoError(t, err)
	assert.Equal(t, 0, *rec.Items[0].EngineeringRevisionNumber)
	assert.Equal(t, int64(2), rec.Version)

	// client saves keep the version check
	_, err = f.records.Save(ctx, actor(model.DeptEngenharia), dto.SaveRecordRequest{View: "ENGENHARIA", Record: *rec, BaseVersion: 1})
	assert.ErrorIs(t, err, store.ErrVersionConflict)
}

func TestProcessService_LockStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	st, err := f.records.LockStatus(ctx, actor(model.DeptEstoque), "sim-2", "")
	require.NoError(t, err)
	assert.False(t, st.Locked)
	assert.Equal(t, model.DeptEstoque, st.View)

	st, err = f.records.LockStatus(ctx, actor(model.DeptEstoque), "sim-3", "")
	require.NoError(t, err)
	assert.True(t, st.Locked)

	st, err = f.records.LockStatus(ctx, actor(model.DeptEstoque), "sim-3", "COMPRAS")
	require.NoError(t, err)
	assert.True(t, st.Locked, "view of another department")

	st, err = f.records.LockStatus(ctx, adminActor(model.RoleAdmin), "sim-4", "LOGISTICA")
	require.NoError(t, err)
	assert.False(t, st.Locked)

	_, err = f.records.LockStatus(ctx, actor(model.DeptEstoque), "nope", "")
	assert.ErrorIs(t, err, store.ErrRecordNotFound)
}

// ── Audit ────────────────────────────────────────────────────────────────────

func TestProcessService_AuditTrailAndSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	eng := actor(model.DeptEngenharia)
	f.moveTo(t, "sim-3", model.StageEngenharia)
	for i := 0; i < 3; i++ {
		_, err := f.records.ApproveLineItem(ctx, eng, "sim-3", "it-3")
		require.NoError(t, err)
	}

	page, err := f.records.AuditTrail(ctx, "sim-3", dto.AuditQuery{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Data, 1)
	assert.Contains(t, page.Data[0].Summary, "REV 0")

	found, err := f.records.SearchAudit(ctx, dto.AdminAuditQuery{Type: string(model.EventEngineeringReview)})
	require.NoError(t, err)
	assert.Equal(t, int64(3), found.Total)

	none, err := f.records.SearchAudit(ctx, dto.AdminAuditQuery{Department: "FINANCEIRO"})
	require.NoError(t, err)
	assert.Empty(t, none.Data)

	_, err = f.records.SearchAudit(ctx, dto.AdminAuditQuery{From: "17/02/2025"})
	assert.Error(t, err)
}

// ── Admin ────────────────────────────────────────────────────────────────────

func TestProcessService_Reopen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.records.Reopen(ctx, actor(model.DeptCompras), "sim-3", dto.ReopenRequest{Stage: "ESTOQUE", Reason: "recontagem"})
	assert.ErrorIs(t, err, workflow.ErrNotPrivileged)

	_, err = f.records.Reopen(ctx, adminActor(model.RoleAdmin), "sim-3", dto.ReopenRequest{Stage: "XYZ", Reason: "x"})
	assert.ErrorIs(t, err, workflow.ErrInvalidStage)

	rec, err := f.records.Reopen(ctx, adminActor(model.RoleAdmin), "sim-3", dto.ReopenRequest{Stage: "estoque", Reason: "recontagem"})
	require.NoError(t, err)
	assert.Equal(t, model.StageEstoque, rec.Status())
	assert.Equal(t, model.StockPendente, rec.Stock().Status)
	assert.True(t, rec.AdminIntervention)
	assert.Equal(t, "RECONTAGEM", rec.InterventionReason)
	assert.Equal(t, model.EventStageReopen, rec.AuditTrail[0].Type)
}

func TestProcessService_Wipe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.records.Wipe(ctx, adminActor(model.RoleAdmin), "sim-4", dto.WipeRequest{Confirmation: testWipePhrase})
	assert.ErrorIs(t, err, workflow.ErrNotPrivileged)

	err = f.records.Wipe(ctx, adminActor(model.RoleSuperAdmin), "sim-4", dto.WipeRequest{Confirmation: "apagar"})
	assert.ErrorIs(t, err, workflow.ErrConfirmationMismatch)

	require.NoError(t, f.records.Wipe(ctx, adminActor(model.RoleSuperAdmin), "sim-4", dto.WipeRequest{Confirmation: testWipePhrase}))
	_, err = f.store.Get(ctx, "sim-4")
	assert.ErrorIs(t, err, store.ErrRecordNotFound)
}

func TestProcessService_ImportLegacy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	data := []byte(`{"records": [
		{"pvCode": "PV24-900", "client": "USIMINAS", "clientPO": "U-1", "pvDate": "2024-11-03", "generalStatus": "COMPRAS",
		 "items": [{"code": "X-1", "quantity": "2", "supplierName": "ABB"}]},
		"lixo"
	]}`)

	_, err := f.records.ImportLegacy(ctx, actor(model.DeptComercial), data)
	assert.ErrorIs(t, err, workflow.ErrNotPrivileged)

	res, err := f.records.ImportLegacy(ctx, adminActor(model.RoleAdmin), data)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)

	rec, err := f.store.Get(ctx, res.IDs[0])
	require.NoError(t, err)
	assert.Equal(t, "USIMINAS", rec.Client)
	assert.Equal(t, model.StageCompras, rec.Status())

	_, err = f.records.ImportLegacy(ctx, adminActor(model.RoleAdmin), []byte(`not json`))
	assert.Error(t, err)
}

func TestProcessService_SubscribeSeesSaves(t *testing.T) {
	f := newFixture(t)
	var got int
	unsub := f.records.Subscribe(func(recs []model.ProcessRecord) { got = len(recs) })
	defer unsub()

	_, err := f.records.Save(context.Background(), actor(model.DeptComercial), dto.SaveRecordRequest{View: "COMERCIAL", Record: newDraft()})
	require.NoError(t, err)
	assert.Equal(t, 5, got)
}
