package infra

// pdf.go renders the record dossier: header, stage fields, line items and the
// most recent audit events, on A4 portrait.

import (
	"fmt"
	"io"
	"time"

	"pvflow/internal/model"

	"github.com/go-pdf/fpdf"
)

const dossierMaxEvents = 20

// WriteDossierPDF writes the dossier of rec to w.
func WriteDossierPDF(rec *model.ProcessRecord, loc *time.Location, w io.Writer) error {
	if loc == nil {
		loc = time.UTC
	}
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(12, 12, 12)
	pdf.SetTitle("Dossie "+rec.PVCode, false)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 24

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 15)
	pdf.CellFormat(contentW, 8, tr("Dossie do processo "+rec.PVCode), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, tr(fmt.Sprintf("Cliente: %s   PO: %s   Data PV: %s", rec.Client, rec.ClientPO, rec.PVDate)), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 5, tr(fmt.Sprintf("Status: %s   Versao: %d   Ultima alteracao: %s por %s",
		rec.Status(), rec.Version, formatTime(rec.LastModifiedAt, loc), rec.LastModifiedBy)), "", 1, "L", false, 0, "")
	if rec.AdminIntervention {
		pdf.SetTextColor(180, 0, 0)
		pdf.CellFormat(contentW, 5, tr(fmt.Sprintf("Intervencao administrativa em %s: %s",
			formatTime(rec.InterventionAt, loc), rec.InterventionReason)), "", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	}
	pdf.Ln(2)
	pdf.Line(12, pdf.GetY(), pageW-12, pdf.GetY())
	pdf.Ln(3)

	// ── Stage fields ─────────────────────────────────────────────────────────
	section(pdf, tr, contentW, "Etapas")
	pdf.SetFont("Helvetica", "", 8)
	for _, st := range model.StageOrder {
		entered := "-"
		if t, ok := rec.EnteredAtOf(st); ok {
			entered = t.In(loc).Format("02/01/2006 15:04")
		}
		pdf.CellFormat(contentW*0.25, 5, string(st), "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW*0.25, 5, entered, "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW*0.5, 5, tr(stageSummary(rec, st)), "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)

	// ── Items ────────────────────────────────────────────────────────────────
	section(pdf, tr, contentW, "Itens")
	cols := []struct {
		title string
		w     float64
		align string
	}{
		{"Codigo", 0.16, "L"}, {"Descricao", 0.30, "L"}, {"Qtd", 0.08, "R"},
		{"Preco", 0.14, "R"}, {"Fornecedor", 0.20, "L"}, {"REV", 0.12, "C"},
	}
	pdf.SetFont("Helvetica", "B", 8)
	for _, c := range cols {
		pdf.CellFormat(contentW*c.w, 5, c.title, "B", 0, c.align, false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 8)
	for _, it := range rec.Items {
		rev := "-"
		if it.EngineeringRevisionNumber != nil {
			rev = fmt.Sprintf("REV %d", *it.EngineeringRevisionNumber)
		}
		vals := []string{
			it.Code,
			truncate(it.Description, 40),
			it.Quantity,
			fmt.Sprintf("%s %s", it.Currency, it.UnitPrice.StringFixed(2)),
			truncate(it.SupplierName, 26),
			rev,
		}
		for i, c := range cols {
			pdf.CellFormat(contentW*c.w, 5, tr(vals[i]), "", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(3)

	// ── Audit ────────────────────────────────────────────────────────────────
	section(pdf, tr, contentW, "Historico")
	pdf.SetFont("Helvetica", "", 7)
	for i, ev := range rec.AuditTrail {
		if i == dossierMaxEvents {
			break
		}
		at := time.UnixMilli(ev.AtEpochMs).In(loc).Format("02/01/2006 15:04")
		line := fmt.Sprintf("%s  %-18s %-12s %s (%s)", at, ev.Type, ev.Stage, ev.Summary, ev.ActorName)
		pdf.MultiCell(contentW, 4, tr(line), "", "L", false)
	}

	return pdf.Output(w)
}

func section(pdf *fpdf.Fpdf, tr func(string) string, w float64, title string) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(w, 6, tr(title), "", 1, "L", false, 0, "")
}

func stageSummary(rec *model.ProcessRecord, st model.Stage) string {
	switch d := rec.StageData[st].(type) {
	case *model.StockData:
		return fmt.Sprintf("%s %s", d.Status, d.Responsible)
	case *model.PlanningData:
		return fmt.Sprintf("SC %s %s", d.SCNumber, d.SCDate)
	case *model.PurchasingData:
		return fmt.Sprintf("PO %s / PC %s %s", d.PONumber, d.PCNumber, d.Supplier)
	case *model.EngineeringData:
		return d.Responsible
	case *model.FinanceData:
		return string(d.PaymentStatus)
	case *model.LogisticsData:
		return fmt.Sprintf("%s ETA %s DI %s", d.Modal, d.ETA, d.DI)
	}
	return ""
}

func formatTime(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "-"
	}
	return t.In(loc).Format("02/01/2006 15:04")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "."
}
