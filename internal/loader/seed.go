package loader

import (
	"time"

	"pvflow/internal/model"

	"github.com/shopspring/decimal"
)

// Seeds returns the demo collection used when nothing usable is stored.
func Seeds() []model.ProcessRecord {
	ts := func(s string) *time.Time {
		t, _ := time.Parse(time.RFC3339, s)
		return &t
	}
	item := func(id, code, client, tag, desc, qty string, price int64, cur model.Currency, supplier string) model.LineItem {
		return model.LineItem{
			ID: id, Code: code, ClientItemNumber: client, Tag: tag, Description: desc,
			Quantity: qty, UnitPrice: decimal.NewFromInt(price), Currency: cur, SupplierName: supplier,
		}
	}

	recs := []model.ProcessRecord{
		{
			ID: "sim-1", PVCode: "PV25-001", Client: "VALE S.A.", ClientPO: "PO-VALE-2025-X", PVDate: "2025-02-10",
			LaunchedAt: ts("2025-02-10T10:00:00Z"), ContractTermDays: 15, GeneralStatus: model.StageTriagem,
			LastModifiedBy: "SISTEMA", LastModifiedAt: ts("2025-02-10T10:00:00Z"),
			Items: []model.LineItem{item("it-1", "VAL-001", "10", "V-01", `VALVULA ESFERA 2"`, "5", 1200, model.CurrencyUSD, "EMERSON")},
		},
		{
			ID: "sim-2", PVCode: "PV25-002", Client: "PETROBRAS", ClientPO: "4500123456", PVDate: "2025-02-12",
			LaunchedAt: ts("2025-02-12T08:00:00Z"), ContractTermDays: 30, GeneralStatus: model.StageEstoque,
			LastModifiedBy: "SISTEMA", LastModifiedAt: ts("2025-02-12T14:00:00Z"),
			Items: []model.LineItem{item("it-2", "MNF-500", "1", "PT-102", "MANIFOLD 5 VIAS", "2", 850, model.CurrencyUSD, "PARKER")},
		},
		{
			ID: "sim-3", PVCode: "PV25-003", Client: "SUZANO PAPEL", ClientPO: "PO-SZ-112", PVDate: "2025-02-14",
			LaunchedAt: ts("2025-02-14T09:00:00Z"), ContractTermDays: 45, GeneralStatus: model.StageCompras,
			LastModifiedBy: "SISTEMA", LastModifiedAt: ts("2025-02-15T09:30:00Z"),
			Items: []model.LineItem{item("it-3", "MOT-002", "5", "M-02", "MOTOR WEG 50CV", "1", 15000, model.CurrencyBRL, "WEG")},
		},
		{
			ID: "sim-4", PVCode: "PV25-004", Client: "GERDAU", ClientPO: "GER-445", PVDate: "2025-01-20",
			LaunchedAt: ts("2025-01-20T10:00:00Z"), ContractTermDays: 60, GeneralStatus: model.StageFinalizado,
			LastModifiedBy: "SISTEMA", LastModifiedAt: ts("2025-02-18T16:20:00Z"),
			Items: []model.LineItem{item("it-4", "T-99", "1", "TAG-FINAL", "TRANSFORMADOR 15KV", "1", 45000, model.CurrencyBRL, "ABB")},
		},
	}

	recs[1].Stock().Status = model.StockPendente
	recs[2].Stock().Status = model.StockConcluido
	recs[2].Planning().SCNumber = "SC-2025-001"
	recs[3].Stock().Status = model.StockConcluido
	recs[3].Finance().PaymentStatus = model.PaymentPago

	for i := range recs {
		r := &recs[i]
		r.SchemaVersion = model.CurrentSchemaVersion
		r.AuditTrail = []model.AuditEvent{}
		for _, s := range model.StageOrder[:r.Status().Index()+1] {
			if s == r.Status() {
				r.StampEntered(s, *r.LastModifiedAt)
			} else {
				r.StampEntered(s, *r.LaunchedAt)
			}
		}
	}
	return recs
}
