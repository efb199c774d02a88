package workflow

import (
	"testing"

	"pvflow/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── ApproveLineItem ──────────────────────────────────────────────────────────

func TestApproveLineItem_ZeroThenIncrement(t *testing.T) {
	rec := validRecord(model.StageEngenharia)
	eng := user(model.DeptEngenharia)

	first, ev1, err := ApproveLineItem(rec, "it-1", eng, now)
	require.NoError(t, err)
	require.NotNil(t, first.Items[0].EngineeringRevisionNumber)
	assert.Equal(t, 0, *first.Items[0].EngineeringRevisionNumber)
	assert.Equal(t, "Desenho aprovado: VAL-001 (REV 0)", ev1.Summary)
	assert.Nil(t, rec.Items[0].EngineeringRevisionNumber, "input must not be mutated")

	second, ev2, err := ApproveLineItem(first, "it-1", eng, now)
	require.NoError(t, err)
	assert.Equal(t, 1, *second.Items[0].EngineeringRevisionNumber)
	assert.Equal(t, 1, ev2.Meta["revision"])

	require.Len(t, second.AuditTrail, 2)
	for _, ev := range second.AuditTrail {
		assert.Equal(t, model.EventEngineeringReview, ev.Type)
	}
	assert.Equal(t, ev2.ID, second.AuditTrail[0].ID, "newest first")
	assert.Equal(t, model.StageEngenharia, second.GeneralStatus)
}

func TestApproveLineItem_Errors(t *testing.T) {
	rec := validRecord(model.StageEngenharia)

	_, _, err := ApproveLineItem(rec, "missing", user(model.DeptEngenharia), now)
	assert.ErrorIs(t, err, ErrItemNotFound)

	_, _, err = ApproveLineItem(rec, "it-1", user(model.DeptCompras), now)
	assert.ErrorIs(t, err, ErrWrongView)

	_, _, err = ApproveLineItem(rec, "it-1", Actor{Department: model.DeptEngenharia, Role: model.RoleViewer}, now)
	assert.ErrorIs(t, err, ErrReadOnlyUser)
}

func TestApproveLineItem_RespectsLock(t *testing.T) {
	eng := user(model.DeptEngenharia)

	for _, st := range []model.Stage{model.StageCompras, model.StageLogistica, model.StageFinalizado} {
		rec := validRecord(st)
		out, _, err := ApproveLineItem(rec, "it-1", eng, now)
		assert.ErrorIs(t, err, ErrRecordLocked, string(st))
		assert.Nil(t, out.Items[0].EngineeringRevisionNumber, string(st))
		assert.Empty(t, out.AuditTrail, string(st))
	}

	// elevated roles bypass the lock
	out, _, err := ApproveLineItem(validRecord(model.StageFinalizado), "it-1", admin(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, *out.Items[0].EngineeringRevisionNumber)
}

// ── Reopen ───────────────────────────────────────────────────────────────────

func TestReopen_FinanceResetsPayment(t *testing.T) {
	rec := validRecord(model.StageFinanceiro)
	rec.Finance().PaymentStatus = model.PaymentPago

	out, ev, err := Reopen(rec, admin(), model.StageFinanceiro, "valor divergente", now)

	require.NoError(t, err)
	assert.Equal(t, model.PaymentPendente, out.Finance().PaymentStatus)
	assert.True(t, out.AdminIntervention)
	assert.Equal(t, "VALOR DIVERGENTE", out.InterventionReason)
	assert.Equal(t, model.StageFinanceiro, out.ReopenedStage)
	assert.Equal(t, "ADMIN: Root", out.LastModifiedBy)
	assert.Equal(t, model.EventStageReopen, ev.Type)
	require.Len(t, out.AuditTrail, 1)
	assert.Equal(t, model.PaymentPago, rec.Finance().PaymentStatus)
}

func TestReopen_MovesBackwardAndResetsStock(t *testing.T) {
	rec := validRecord(model.StageCompras)
	rec.Stock().Status = model.StockConcluido
	rec.Stock().CompletedAt = model.TimePtr(now)
	rec.Stock().Responsible = "Ana"
	rec.Purchasing().PCNumber = "PC-1"

	out, _, err := Reopen(rec, admin(), model.StageEstoque, "recontagem", now)

	require.NoError(t, err)
	assert.Equal(t, model.StageEstoque, out.GeneralStatus)
	assert.Equal(t, model.StockPendente, out.Stock().Status)
	assert.Nil(t, out.Stock().CompletedAt)
	assert.Empty(t, out.Stock().Responsible)
	assert.Equal(t, "PC-1", out.Purchasing().PCNumber)
}

func TestReopen_ComprasClearsPC(t *testing.T) {
	rec := validRecord(model.StageEngenharia)
	rec.Purchasing().PCNumber = "PC-1"
	rec.Purchasing().PCDate = "2025-01-01"
	rec.Purchasing().PONumber = "PO-1"

	out, _, err := Reopen(rec, admin(), model.StageCompras, "pc errado", now)

	require.NoError(t, err)
	assert.Empty(t, out.Purchasing().PCNumber)
	assert.Empty(t, out.Purchasing().PCDate)
	assert.Equal(t, "PO-1", out.Purchasing().PONumber)
}

func TestReopen_Rejections(t *testing.T) {
	rec := validRecord(model.StageFinanceiro)
	rec.Finance().PaymentStatus = model.PaymentPago

	out, _, err := Reopen(rec, admin(), model.StageFinanceiro, "   ", now)
	assert.ErrorIs(t, err, ErrReasonRequired)
	assert.Equal(t, model.PaymentPago, out.Finance().PaymentStatus)
	assert.False(t, out.AdminIntervention)
	assert.Empty(t, out.AuditTrail)

	_, _, err = Reopen(rec, user(model.DeptFinanceiro), model.StageFinanceiro, "x", now)
	assert.ErrorIs(t, err, ErrNotPrivileged)

	_, _, err = Reopen(rec, admin(), model.StageLogistica, "x", now)
	assert.ErrorIs(t, err, ErrStageNotReached)

	_, _, err = Reopen(rec, admin(), model.StageFinalizado, "x", now)
	assert.ErrorIs(t, err, ErrInvalidStage)
}

// ── CheckWipe ────────────────────────────────────────────────────────────────

func TestCheckWipe(t *testing.T) {
	super := Actor{Name: "S", Role: model.RoleSuperAdmin}

	assert.NoError(t, CheckWipe(super, "CONFIRMAR", "CONFIRMAR"))
	assert.ErrorIs(t, CheckWipe(super, "confirmar", "CONFIRMAR"), ErrConfirmationMismatch)
	assert.ErrorIs(t, CheckWipe(super, "", ""), ErrConfirmationMismatch)
	assert.ErrorIs(t, CheckWipe(admin(), "CONFIRMAR", "CONFIRMAR"), ErrNotPrivileged)
}

func TestNewEvent_Prepend(t *testing.T) {
	rec := validRecord(model.StageTriagem)
	a := NewEvent(user(model.DeptComercial), model.EventDocUpload, model.DeptComercial, "a", nil, now)
	b := NewEvent(user(model.DeptComercial), model.EventStageSave, model.DeptComercial, "b", nil, now)

	Prepend(&rec, a)
	Prepend(&rec, b)

	require.Len(t, rec.AuditTrail, 2)
	assert.Equal(t, "b", rec.AuditTrail[0].Summary)
	assert.Equal(t, "a", rec.AuditTrail[1].Summary)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Regexp(t, `^aud-`, a.ID)
}
