package workflow

import (
	"fmt"
	"strings"
	"time"

	"pvflow/internal/model"
)

// Confirmer is asked before a confirm-gated stage advances. Returning false
// keeps the record where it is; field edits are still saved.
type Confirmer func(prompt string) bool

// AlwaysConfirm and NeverConfirm are fixed answers for non-interactive callers.
func AlwaysConfirm(string) bool { return true }
func NeverConfirm(string) bool  { return false }

// Decision is the outcome of one advance attempt. Record is the draft with the
// transition applied; when nothing advanced it equals the input.
type Decision struct {
	Record   model.ProcessRecord
	From     model.Stage
	To       model.Stage
	Advanced bool
	Declined bool
	Prompt   string
	Stamped  []model.Stage
	Block    *GateBlocked
}

func (d Decision) Blocked() bool { return d.Block != nil }

type gateRule struct {
	owner  model.Department
	check  func(rec *model.ProcessRecord) *GateBlocked
	prompt string
}

var gates = map[model.Stage]gateRule{
	model.StageTriagem: {
		owner: model.DeptComercial,
	},
	model.StageEstoque: {
		owner:  model.DeptEstoque,
		prompt: "Concluir o GATE de ESTOQUE e enviar para PLANEJAMENTO?",
	},
	model.StagePlanejamento: {
		owner:  model.DeptPlanejamento,
		check:  requirePlanningSC,
		prompt: "Confirmar SC e enviar o processo para COMPRAS?",
	},
	model.StageCompras: {
		owner:  model.DeptCompras,
		check:  requirePurchaseOrder,
		prompt: "Confirmar PO e enviar o processo para ENGENHARIA?",
	},
	model.StageEngenharia: {
		owner:  model.DeptEngenharia,
		check:  requireAllRevisions,
		prompt: "Todos os desenhos aprovados. Enviar o processo para FINANCEIRO?",
	},
	model.StageFinanceiro: {
		owner:  model.DeptFinanceiro,
		check:  requirePaymentStatus,
		prompt: "Confirmar status de pagamento e enviar para LOGISTICA?",
	},
	model.StageLogistica: {
		owner:  model.DeptLogistica,
		prompt: "Finalizar o processo de importacao?",
	},
}

func requirePlanningSC(rec *model.ProcessRecord) *GateBlocked {
	if d, ok := rec.StageData[model.StagePlanejamento].(*model.PlanningData); ok && !blank(d.SCNumber) {
		return nil
	}
	return &GateBlocked{Stage: model.StagePlanejamento, Field: "scNumber", Reason: "numero da SC obrigatorio para avancar"}
}

func requirePurchaseOrder(rec *model.ProcessRecord) *GateBlocked {
	if d, ok := rec.StageData[model.StageCompras].(*model.PurchasingData); ok && !blank(d.PONumber) {
		return nil
	}
	return &GateBlocked{Stage: model.StageCompras, Field: "poNumber", Reason: "numero da PO obrigatorio para avancar"}
}

func requireAllRevisions(rec *model.ProcessRecord) *GateBlocked {
	var pending []string
	for _, it := range rec.Items {
		if !it.Approved() {
			pending = append(pending, it.Code)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	return &GateBlocked{
		Stage:  model.StageEngenharia,
		Field:  "engineeringRevisionNumber",
		Reason: "desenhos pendentes de aprovacao: " + strings.Join(pending, ", "),
	}
}

func requirePaymentStatus(rec *model.ProcessRecord) *GateBlocked {
	if d, ok := rec.StageData[model.StageFinanceiro].(*model.FinanceData); ok && !blank(string(d.PaymentStatus)) {
		return nil
	}
	return &GateBlocked{Stage: model.StageFinanceiro, Field: "paymentStatus", Reason: "status de pagamento obrigatorio para avancar"}
}

// AttemptAdvance decides whether draft moves to the next stage when saved by
// dept. The input is never modified.
func AttemptAdvance(draft model.ProcessRecord, dept model.Department, confirm Confirmer, now time.Time) Decision {
	rec := draft.Clone()
	from := rec.Status()
	d := Decision{Record: rec, From: from, To: from}

	rule, ok := gates[from]
	if !ok || rule.owner != dept {
		return d
	}
	if rule.check != nil {
		if b := rule.check(&rec); b != nil {
			d.Block = b
			return d
		}
	}
	if rule.prompt != "" {
		d.Prompt = rule.prompt
		if confirm == nil || !confirm(rule.prompt) {
			d.Declined = true
			return d
		}
	}

	to, _ := from.Next()
	rec.GeneralStatus = to
	if rec.StampEntered(to, now) {
		d.Stamped = append(d.Stamped, to)
	}
	switch from {
	case model.StageTriagem:
		rec.Stock().Status = model.StockPendente
	case model.StageEstoque:
		st := rec.Stock()
		st.Status = model.StockConcluido
		if st.CompletedAt == nil {
			st.CompletedAt = model.TimePtr(now)
		}
	}

	d.Record = rec
	d.To = to
	d.Advanced = true
	return d
}

// TransitionSummary is the audit summary of an advance.
func TransitionSummary(from, to model.Stage) string {
	return fmt.Sprintf("%s -> %s", from, to)
}
