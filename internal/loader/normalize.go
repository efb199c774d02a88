// Package loader turns stored or imported JSON of any schema version into
// current ProcessRecords. Legacy shapes never leave this package.
package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"pvflow/internal/model"
	"pvflow/internal/workflow"
)

var ErrMalformed = errors.New("dados armazenados malformados")

// step upgrades a raw record from schema version n to n+1 in place.
type step func(raw map[string]any, loc *time.Location) error

// chain[n] upgrades version n. len(chain) == model.CurrentSchemaVersion.
var chain = []step{
	renameLegacyKeys, // 0 -> 1
	resolveAliases,   // 1 -> 2
	applyDefaults,    // 2 -> 3
}

// Normalize runs every step from the record's schemaVersion up to the
// current one. Records without a version are treated as version 0.
func Normalize(raw map[string]any, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	v := 0
	if n, ok := toInt(raw["schemaVersion"]); ok {
		v = n
	}
	if v < 0 || v > model.CurrentSchemaVersion {
		return fmt.Errorf("%w: schemaVersion %d", ErrMalformed, v)
	}
	for ; v < len(chain); v++ {
		if err := chain[v](raw, loc); err != nil {
			return err
		}
		raw["schemaVersion"] = v + 1
	}
	return nil
}

// ── v0 -> v1: legacy Portuguese keys ─────────────────────────────────────────

var legacyRecordKeys = map[string]string{
	"PV":                         "pvCode",
	"Cliente":                    "client",
	"PO_Cliente":                 "clientPO",
	"Data_PV":                    "pvDate",
	"Data_Lancamento_PV":         "launchedAt",
	"Prazo_Contrato":             "contractTermDays",
	"Status_Geral":               "generalStatus",
	"Status_Escopo":              "scopeStatus",
	"Status_Estoque":             "stockStatus",
	"Data_Conclusao_Estoque":     "stockCompletedAt",
	"Responsavel_Estoque":        "stockResponsible",
	"Observacoes_Estoque":        "stockNotes",
	"SC":                         "scNumber",
	"Data_SC":                    "scDate",
	"Responsavel_Planejamento":   "planningResponsible",
	"PO":                         "poNumber",
	"Data_PO":                    "poDate",
	"PC":                         "pcNumber",
	"Data_PC":                    "pcDate",
	"Fornecedor_PO":              "poSupplier",
	"Condicao_Pagamento":         "paymentTerms",
	"Condicao_Pagamento_Detalhe": "paymentTermsDetail",
	"Status_Pagamento":           "paymentStatus",
	"Valor_Numerarios":           "customsCharges",
	"Valor_Frete_Internacional":  "internationalFreight",
	"Valor_Frete_Nacional":       "nationalFreight",
	"Valor_adiantamento":         "advanceAmount",
	"Data_Adiantamento":          "advanceDate",
	"Valor_Complemento":          "complementAmount",
	"Valor_Reembolso":            "refundAmount",
	"Modal":                      "modal",
	"ETA":                        "eta",
	"ETD":                        "etd",
	"Coleta_Agendada":            "pickupScheduled",
	"DI":                         "di",
	"Canal":                      "customsChannel",
	"Usuário_Ult_Alteracao":      "lastModifiedBy",
	"Usuario_Ult_Alteracao":      "lastModifiedBy",
	"Data_Ult_Alteracao":         "lastModifiedAt",
	"itensPV":                    "items",
	"Intervencao_Admin":          "adminIntervention",
	"Data_Intervencao":           "interventionAt",
	"Motivo_Intervencao":         "interventionReason",
	"Etapa_Reaberta":             "reopenedStage",
}

var legacyEntryKeys = map[string]model.Stage{
	"Data_Entrada_Triagem":      model.StageTriagem,
	"Data_Entrada_Estoque":      model.StageEstoque,
	"Data_Entrada_Planejamento": model.StagePlanejamento,
	"Data_Entrada_Compras":      model.StageCompras,
	"Data_Entrada_Engenharia":   model.StageEngenharia,
	"Data_Entrada_Financeiro":   model.StageFinanceiro,
	"Data_Entrada_Logistica":    model.StageLogistica,
	"Data_Finalizado":           model.StageFinalizado,
}

var legacyItemKeys = map[string]string{
	"codigo":                 "code",
	"itemCliente":            "clientItemNumber",
	"descricao":              "description",
	"quantidade":             "quantity",
	"estoqueDisponivel":      "stockAvailableQty",
	"necessidadeCompra":      "purchaseNeedQty",
	"stockObservation":       "stockNotes",
	"valorUnitario":          "unitPrice",
	"valorUnitarioCompra":    "purchaseUnitPrice",
	"moeda":                  "currency",
	"fornecedor":             "supplierName",
	"statusFabricacao":       "manufacturingStatus",
	"prazoFabricacao":        "manufacturingLeadDays",
	"engineeringObservation": "engineeringNotes",
}

var legacyEventKeys = map[string]string{
	"at":         "atEpochMs",
	"by":         "actorName",
	"department": "actorDepartment",
}

func renameLegacyKeys(raw map[string]any, _ *time.Location) error {
	renameKeys(raw, legacyRecordKeys)

	entered := asMap(raw["enteredAt"])
	if entered == nil {
		entered = map[string]any{}
	}
	for k, s := range legacyEntryKeys {
		if v, ok := raw[k]; ok {
			if _, exists := entered[string(s)]; !exists && !isEmpty(v) {
				entered[string(s)] = v
			}
			delete(raw, k)
		}
	}
	if len(entered) > 0 {
		raw["enteredAt"] = entered
	}

	for _, it := range asSlice(raw["items"]) {
		if m := asMap(it); m != nil {
			renameKeys(m, legacyItemKeys)
		}
	}
	for _, ev := range asSlice(raw["auditTrail"]) {
		if m := asMap(ev); m != nil {
			renameKeys(m, legacyEventKeys)
		}
	}
	return nil
}

func renameKeys(m map[string]any, names map[string]string) {
	for from, to := range names {
		v, ok := m[from]
		if !ok {
			continue
		}
		delete(m, from)
		if _, exists := m[to]; !exists {
			m[to] = v
		}
	}
}

// ── v1 -> v2: aliases and value coercion ─────────────────────────────────────

var pvCodeAliases = []string{"pvNumber", "pv", "numeroPV", "numero_pv", "numPV", "pedidoVenda", "codigo", "code"}

var clientAliases = []string{"cliente", "customer", "clientName"}

var timestampKeys = []string{"launchedAt", "lastModifiedAt", "interventionAt", "reopenedAt", "stockCompletedAt"}

var dateKeys = []string{"pvDate", "scDate", "poDate", "pcDate", "advanceDate", "etd", "eta", "pickupScheduled"}

var textKeys = []string{"id", "pvCode", "client", "clientPO", "scNumber", "poNumber", "pcNumber", "di", "lastModifiedBy", "interventionReason"}

var moneyKeys = []string{"customsCharges", "internationalFreight", "nationalFreight", "advanceAmount", "complementAmount", "refundAmount"}

func resolveAliases(raw map[string]any, loc *time.Location) error {
	fillFromAliases(raw, "pvCode", pvCodeAliases)
	fillFromAliases(raw, "client", clientAliases)

	for _, k := range textKeys {
		coerceString(raw, k)
	}
	for _, k := range timestampKeys {
		coerceTimestamp(raw, k, loc)
	}
	for _, k := range dateKeys {
		coerceDate(raw, k, loc)
	}
	for _, k := range moneyKeys {
		coerceDecimal(raw, k)
	}
	coerceInt(raw, "contractTermDays")
	coerceUpper(raw, "generalStatus")
	coerceUpper(raw, "reopenedStage")
	coerceUpper(raw, "stockStatus")
	coerceUpper(raw, "paymentStatus")

	if entered := asMap(raw["enteredAt"]); entered != nil {
		fixed := make(map[string]any, len(entered))
		for k, v := range entered {
			if s, ok := model.ParseStage(k); ok {
				fixed[string(s)] = v
				coerceTimestamp(fixed, string(s), loc)
			}
		}
		raw["enteredAt"] = fixed
	}
	coerceBool(raw, "adminIntervention")

	for _, it := range asSlice(raw["items"]) {
		m := asMap(it)
		if m == nil {
			continue
		}
		coerceString(m, "id")
		coerceString(m, "code")
		coerceString(m, "clientItemNumber")
		coerceString(m, "quantity")
		coerceString(m, "stockAvailableQty")
		coerceString(m, "purchaseNeedQty")
		coerceDecimal(m, "unitPrice")
		coerceDecimal(m, "purchaseUnitPrice")
		coerceInt(m, "manufacturingLeadDays")
		coerceInt(m, "engineeringRevisionNumber")
		coerceUpper(m, "currency")
		coerceTimestamp(m, "engineeringReviewedAt", loc)
	}

	for _, ev := range asSlice(raw["auditTrail"]) {
		m := asMap(ev)
		if m == nil {
			continue
		}
		if _, ok := toInt(m["atEpochMs"]); !ok {
			if t, ok := parseTime(m["atISO"], loc); ok {
				m["atEpochMs"] = t.UnixMilli()
			}
		}
	}
	return nil
}

func fillFromAliases(raw map[string]any, key string, aliases []string) {
	if s, ok := toString(raw[key]); ok && strings.TrimSpace(s) != "" {
		return
	}
	for _, a := range aliases {
		if s, ok := toString(raw[a]); ok && strings.TrimSpace(s) != "" {
			raw[key] = strings.TrimSpace(s)
			return
		}
	}
}

// ── v2 -> v3: defaults and stage-entry backfill ──────────────────────────────

func applyDefaults(raw map[string]any, _ *time.Location) error {
	code, _ := toString(raw["pvCode"])
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("%w: registro sem numero de PV", ErrMalformed)
	}
	raw["pvCode"] = code

	if id, ok := toString(raw["id"]); ok && strings.TrimSpace(id) != "" {
		raw["id"] = strings.TrimSpace(id)
	} else {
		raw["id"] = "pv-" + code
	}

	status := model.StageTriagem
	if s, ok := toString(raw["generalStatus"]); ok {
		if st, valid := model.ParseStage(s); valid {
			status = st
		}
	}
	raw["generalStatus"] = string(status)

	if isEmpty(raw["stockStatus"]) {
		raw["stockStatus"] = string(model.StockPendente)
	}
	if !isSlice(raw["items"]) {
		raw["items"] = []any{}
	}
	if !isSlice(raw["auditTrail"]) {
		raw["auditTrail"] = []any{}
	}
	for i, it := range asSlice(raw["items"]) {
		if m := asMap(it); m != nil {
			if id, ok := toString(m["id"]); !ok || id == "" {
				m["id"] = fmt.Sprintf("%s-it-%d", raw["id"], i+1)
			}
		}
	}

	backfillEntered(raw, status)
	return nil
}

// backfillEntered stamps every reached stage that has no entry time, so
// aging works for records written before stamps existed.
func backfillEntered(raw map[string]any, status model.Stage) {
	launched, hasLaunched := raw["launchedAt"].(string)
	modified, hasModified := raw["lastModifiedAt"].(string)
	if !hasLaunched && !hasModified {
		return
	}
	entered := asMap(raw["enteredAt"])
	if entered == nil {
		entered = map[string]any{}
	}
	for _, s := range model.StageOrder[:status.Index()+1] {
		if !isEmpty(entered[string(s)]) {
			continue
		}
		v := launched
		if (s == status && hasModified) || !hasLaunched {
			v = modified
		}
		entered[string(s)] = v
	}
	raw["enteredAt"] = entered
}

// ── coercion helpers ─────────────────────────────────────────────────────────

var legacyLayouts = []string{
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
}

// parseTime accepts RFC 3339, plain ISO dates, dd/mm/yyyy[ hh:mm[:ss]] in
// loc and epoch milliseconds.
func parseTime(v any, loc *time.Location) (time.Time, bool) {
	switch x := v.(type) {
	case json.Number:
		if ms, err := x.Int64(); err == nil {
			return time.UnixMilli(ms).UTC(), true
		}
		if f, err := x.Float64(); err == nil {
			return time.UnixMilli(int64(f)).UTC(), true
		}
	case float64:
		return time.UnixMilli(int64(x)).UTC(), true
	case int64:
		return time.UnixMilli(x).UTC(), true
	case int:
		return time.UnixMilli(int64(x)).UTC(), true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, false
		}
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t, true
		}
		if t, err := time.ParseInLocation("2006-01-02T15:04:05", s, loc); err == nil {
			return t, true
		}
		if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
			return t, true
		}
		for _, layout := range legacyLayouts {
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func coerceTimestamp(m map[string]any, key string, loc *time.Location) {
	v, ok := m[key]
	if !ok {
		return
	}
	t, ok := parseTime(v, loc)
	if !ok {
		delete(m, key)
		return
	}
	m[key] = t.Format(time.RFC3339Nano)
}

// coerceDate keeps date-only fields as YYYY-MM-DD. Free text that is not a
// date is left alone.
func coerceDate(m map[string]any, key string, loc *time.Location) {
	v, ok := m[key]
	if !ok {
		return
	}
	if isEmpty(v) {
		delete(m, key)
		return
	}
	if t, ok := parseTime(v, loc); ok {
		m[key] = t.In(loc).Format("2006-01-02")
	}
}

// coerceDecimal reads typed-in money ("1.200,50") with the quantity rules.
// JSON numbers are taken as they are.
func coerceDecimal(m map[string]any, key string) {
	v, ok := m[key]
	if !ok {
		return
	}
	switch x := v.(type) {
	case json.Number:
		m[key] = x.String()
		return
	case float64:
		m[key] = strconv.FormatFloat(x, 'f', -1, 64)
		return
	}
	s, ok := toString(v)
	if !ok || strings.TrimSpace(s) == "" {
		delete(m, key)
		return
	}
	d, err := workflow.ParseQuantity(s)
	if err != nil {
		delete(m, key)
		return
	}
	m[key] = d.String()
}

func coerceInt(m map[string]any, key string) {
	v, ok := m[key]
	if !ok {
		return
	}
	n, ok := toInt(v)
	if !ok {
		delete(m, key)
		return
	}
	m[key] = n
}

func coerceBool(m map[string]any, key string) {
	switch x := m[key].(type) {
	case nil, bool:
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			delete(m, key)
			return
		}
		m[key] = b
	default:
		delete(m, key)
	}
}

func coerceString(m map[string]any, key string) {
	if v, ok := m[key]; ok {
		if s, ok := toString(v); ok {
			m[key] = s
		} else {
			delete(m, key)
		}
	}
}

func coerceUpper(m map[string]any, key string) {
	if s, ok := toString(m[key]); ok {
		m[key] = strings.ToUpper(strings.TrimSpace(s))
	}
}

func toString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	}
	return "", false
}

func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		return int(x), true
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return int(n), true
		}
		if f, err := x.Float64(); err == nil {
			return int(f), true
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(x)); err == nil {
			return n, true
		}
	}
	return 0, false
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func isSlice(v any) bool {
	_, ok := v.([]any)
	return ok
}
