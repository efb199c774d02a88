package workflow

import (
	"time"

	"pvflow/internal/model"

	"github.com/shopspring/decimal"
)

var now = time.Date(2025, 2, 10, 9, 0, 0, 0, time.UTC)

func validRecord(status model.Stage) model.ProcessRecord {
	return model.ProcessRecord{
		ID:            "pv-test",
		PVCode:        "PV25-001",
		Client:        "VALE",
		ClientPO:      "PO-X",
		PVDate:        "2025-02-10",
		GeneralStatus: status,
		Items: []model.LineItem{{
			ID:           "it-1",
			Code:         "VAL-001",
			Quantity:     "5",
			UnitPrice:    decimal.NewFromInt(1200),
			Currency:     model.CurrencyUSD,
			SupplierName: "EMERSON",
		}},
		AuditTrail: []model.AuditEvent{},
	}
}

func user(dept model.Department) Actor {
	return Actor{Name: "Ana " + string(dept), Department: dept, Role: model.RoleUser}
}

func admin() Actor {
	return Actor{Name: "Root", Department: model.DeptAdmin, Role: model.RoleAdmin}
}

func intPtr(n int) *int { return &n }
