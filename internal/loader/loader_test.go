package loader

import (
	"errors"
	"testing"
	"time"

	"pvflow/internal/model"
	"pvflow/internal/workflow"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const legacyRecord = `{
  "id": "sim-9",
  "PV": "PV24-900",
  "Cliente": "VALE S.A.",
  "PO_Cliente": "PO-1",
  "Data_PV": "10/02/2025",
  "Data_Lancamento_PV": "2025-02-10T10:00:00Z",
  "Prazo_Contrato": "15",
  "Status_Geral": "compras",
  "Status_Estoque": "CONCLUIDO",
  "Data_Entrada_Estoque": "11/02/2025 08:30",
  "Data_Conclusao_Estoque": 1739350800000,
  "SC": "SC-1",
  "PO": 4500123456,
  "Valor_Numerarios": "1.250,50",
  "Usuário_Ult_Alteracao": "SISTEMA",
  "Data_Ult_Alteracao": "15/02/2025 09:30",
  "Intervencao_Admin": "true",
  "itensPV": [
    {"id": "it-1", "codigo": "VAL-001", "quantidade": 5, "valorUnitario": "1.200,00", "moeda": "usd", "fornecedor": "EMERSON", "prazoFabricacao": "30"}
  ],
  "auditTrail": [
    {"id": "a1", "at": 1739181600000, "atISO": "2025-02-10T10:00:00Z", "by": "Ana", "department": "COMERCIAL", "type": "STAGE_SAVE", "stage": "COMERCIAL", "summary": "x"}
  ]
}`

func TestDecodeRecord_Legacy(t *testing.T) {
	l := New(time.UTC)

	rec, err := l.DecodeRecord([]byte(legacyRecord))

	require.NoError(t, err)
	assert.Equal(t, "sim-9", rec.ID)
	assert.Equal(t, model.CurrentSchemaVersion, rec.SchemaVersion)
	assert.Equal(t, "PV24-900", rec.PVCode)
	assert.Equal(t, "VALE S.A.", rec.Client)
	assert.Equal(t, "2025-02-10", rec.PVDate)
	assert.Equal(t, 15, rec.ContractTermDays)
	assert.Equal(t, model.StageCompras, rec.GeneralStatus)
	assert.True(t, rec.AdminIntervention)
	assert.Equal(t, "SC-1", rec.Planning().SCNumber)
	assert.Equal(t, "4500123456", rec.Purchasing().PONumber)
	require.NotNil(t, rec.Finance().CustomsCharges)
	assert.True(t, decimal.RequireFromString("1250.5").Equal(*rec.Finance().CustomsCharges))

	st := rec.Stock()
	assert.Equal(t, model.StockConcluido, st.Status)
	require.NotNil(t, st.CompletedAt)
	assert.Equal(t, int64(1739350800000), st.CompletedAt.UnixMilli())

	assert.Equal(t, time.Date(2025, 2, 11, 8, 30, 0, 0, time.UTC), rec.EnteredAt[model.StageEstoque])
	assert.Equal(t, time.Date(2025, 2, 10, 10, 0, 0, 0, time.UTC), rec.EnteredAt[model.StageTriagem])
	assert.Equal(t, time.Date(2025, 2, 15, 9, 30, 0, 0, time.UTC), rec.EnteredAt[model.StageCompras])
	_, hasFuture := rec.EnteredAt[model.StageEngenharia]
	assert.False(t, hasFuture)

	require.Len(t, rec.Items, 1)
	it := rec.Items[0]
	assert.Equal(t, "VAL-001", it.Code)
	assert.Equal(t, "5", it.Quantity)
	assert.True(t, decimal.NewFromInt(1200).Equal(it.UnitPrice))
	assert.Equal(t, model.CurrencyUSD, it.Currency)
	assert.Equal(t, 30, it.ManufacturingLeadDays)

	require.Len(t, rec.AuditTrail, 1)
	assert.Equal(t, int64(1739181600000), rec.AuditTrail[0].AtEpochMs)
	assert.Equal(t, "Ana", rec.AuditTrail[0].ActorName)
	assert.Equal(t, model.DeptComercial, rec.AuditTrail[0].ActorDepartment)

	assert.Empty(t, workflow.Validate(rec))
}

func TestDecodeRecord_AliasesAndDefaults(t *testing.T) {
	rec, err := New(nil).DecodeRecord([]byte(`{"numeroPV": " PV-77 ", "cliente": "ACME"}`))

	require.NoError(t, err)
	assert.Equal(t, "PV-77", rec.PVCode)
	assert.Equal(t, "pv-PV-77", rec.ID)
	assert.Equal(t, "ACME", rec.Client)
	assert.Equal(t, model.StageTriagem, rec.GeneralStatus)
	assert.Equal(t, model.StockPendente, rec.Stock().Status)
	assert.NotNil(t, rec.Items)
	assert.NotNil(t, rec.AuditTrail)
}

func TestDecodeRecord_CurrentVersionRoundTrip(t *testing.T) {
	seed := Seeds()[2]
	b, err := seed.MarshalJSON()
	require.NoError(t, err)

	rec, err := New(time.UTC).DecodeRecord(b)

	require.NoError(t, err)
	assert.Equal(t, seed.PVCode, rec.PVCode)
	assert.Equal(t, seed.EnteredAt, rec.EnteredAt)
	assert.Equal(t, "SC-2025-001", rec.Planning().SCNumber)
}

func TestDecodeRecord_Malformed(t *testing.T) {
	l := New(time.UTC)
	for _, in := range []string{`not json`, `[]`, `{"client": "no pv"}`, `{"pvCode": "X", "schemaVersion": 99}`} {
		_, err := l.DecodeRecord([]byte(in))
		assert.True(t, errors.Is(err, ErrMalformed), in)
	}
}

func TestDecodeCollection_Envelopes(t *testing.T) {
	l := New(time.UTC)
	for _, in := range []string{
		`[{"PV": "A"}, {"PV": "B"}]`,
		`{"records": [{"PV": "A"}, {"PV": "B"}]}`,
		`{"items": [{"pvNumber": "A"}, {"pedidoVenda": "B"}]}`,
		`{"data": [{"PV": "A"}, {"PV": "B"}]}`,
	} {
		recs, err := l.DecodeCollection([]byte(in))
		require.NoError(t, err, in)
		assert.Len(t, recs, 2, in)
	}
}

func TestDecodeCollection_SkipsBadEntries(t *testing.T) {
	recs, err := New(time.UTC).DecodeCollection([]byte(`[{"PV": "A"}, 42, {"Cliente": "sem pv"}]`))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "A", recs[0].PVCode)

	_, err = New(time.UTC).DecodeCollection([]byte(`[42, {"x": 1}]`))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = New(time.UTC).DecodeCollection([]byte(`{"other": []}`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestLoadOrSeed(t *testing.T) {
	l := New(time.UTC)

	recs, seeded := l.LoadOrSeed([]byte(`{corrupt`))
	assert.True(t, seeded)
	require.Len(t, recs, 4)
	assert.Equal(t, "PV25-001", recs[0].PVCode)

	recs, seeded = l.LoadOrSeed(nil)
	assert.True(t, seeded)
	assert.Len(t, recs, 4)

	recs, seeded = l.LoadOrSeed([]byte(`[{"PV": "Z"}]`))
	assert.False(t, seeded)
	assert.Len(t, recs, 1)
}

func TestSeeds_AreValid(t *testing.T) {
	for _, r := range Seeds() {
		assert.Empty(t, workflow.Validate(r), r.ID)
		for _, s := range model.StageOrder[:r.Status().Index()+1] {
			_, ok := r.EnteredAt[s]
			assert.True(t, ok, "%s missing enteredAt[%s]", r.ID, s)
		}
	}
	seeds := Seeds()
	assert.Equal(t, model.PaymentPago, seeds[3].Finance().PaymentStatus)
	assert.Equal(t, "SC-2025-001", seeds[2].Planning().SCNumber)
}
