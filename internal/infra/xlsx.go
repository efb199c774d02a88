package infra

import (
	"io"
	"time"

	"pvflow/internal/model"

	"github.com/xuri/excelize/v2"
)

var masterHeadings = []string{
	"PV", "Cliente", "PO Cliente", "Data PV", "Status", "Itens",
	"SC", "PO", "PC", "Pagamento", "Modal", "ETA", "DI",
	"Ultima alteracao", "Alterado por", "Versao",
}

// WriteMasterXLSX writes one row per record, plus an "Itens" sheet with
// one row per line item.
func WriteMasterXLSX(recs []model.ProcessRecord, loc *time.Location, w io.Writer) error {
	if loc == nil {
		loc = time.UTC
	}
	f := excelize.NewFile()
	defer f.Close()

	const master = "Processos"
	if err := f.SetSheetName("Sheet1", master); err != nil {
		return err
	}
	if err := writeRow(f, master, 1, toAny(masterHeadings)); err != nil {
		return err
	}
	for i := range recs {
		rec := &recs[i]
		row := []any{
			rec.PVCode, rec.Client, rec.ClientPO, rec.PVDate, string(rec.Status()), len(rec.Items),
			"", "", "", "", "", "", "",
			formatTime(rec.LastModifiedAt, loc), rec.LastModifiedBy, rec.Version,
		}
		if p, ok := rec.StageData[model.StagePlanejamento].(*model.PlanningData); ok {
			row[6] = p.SCNumber
		}
		if p, ok := rec.StageData[model.StageCompras].(*model.PurchasingData); ok {
			row[7], row[8] = p.PONumber, p.PCNumber
		}
		if fin, ok := rec.StageData[model.StageFinanceiro].(*model.FinanceData); ok {
			row[9] = string(fin.PaymentStatus)
		}
		if l, ok := rec.StageData[model.StageLogistica].(*model.LogisticsData); ok {
			row[10], row[11], row[12] = l.Modal, l.ETA, l.DI
		}
		if err := writeRow(f, master, i+2, row); err != nil {
			return err
		}
	}

	const items = "Itens"
	if _, err := f.NewSheet(items); err != nil {
		return err
	}
	if err := writeRow(f, items, 1, []any{"PV", "Codigo", "Descricao", "Qtd", "Preco", "Moeda", "Fornecedor", "REV"}); err != nil {
		return err
	}
	n := 2
	for _, rec := range recs {
		for _, it := range rec.Items {
			var rev any = ""
			if it.EngineeringRevisionNumber != nil {
				rev = *it.EngineeringRevisionNumber
			}
			price, _ := it.UnitPrice.Float64()
			if err := writeRow(f, items, n, []any{rec.PVCode, it.Code, it.Description, it.Quantity, price, string(it.Currency), it.SupplierName, rev}); err != nil {
				return err
			}
			n++
		}
	}

	_, err := f.WriteTo(w)
	return err
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
