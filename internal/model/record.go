package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CurrentSchemaVersion is stamped on every record written by this service.
// Older payloads go through the loader's normalizer chain first.
const CurrentSchemaVersion = 3

// Currency: "USD" | "BRL" | "EUR"
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyBRL Currency = "BRL"
	CurrencyEUR Currency = "EUR"
)

func (c Currency) Valid() bool {
	return c == CurrencyUSD || c == CurrencyBRL || c == CurrencyEUR
}

// ProcessRecord is one sales order (PV) moving through the pipeline.
// Stage-specific fields live in StageData and are flattened into the record
// object when serialized (see record_json.go).
type ProcessRecord struct {
	ID               string     `json:"id"`
	SchemaVersion    int        `json:"schemaVersion"`
	PVCode           string     `json:"pvCode"`
	Client           string     `json:"client"`
	ClientPO         string     `json:"clientPO"`
	PVDate           string     `json:"pvDate"` // ISO date, no time component
	LaunchedAt       *time.Time `json:"launchedAt,omitempty"`
	ContractTermDays int        `json:"contractTermDays,omitempty"`
	ScopeStatus      string     `json:"scopeStatus,omitempty"` // INTEGRAL | PARCIAL

	GeneralStatus Stage               `json:"generalStatus"`
	EnteredAt     map[Stage]time.Time `json:"enteredAt,omitempty"`

	Items      []LineItem   `json:"items"`
	AuditTrail []AuditEvent `json:"auditTrail"` // newest first

	LastModifiedBy string     `json:"lastModifiedBy,omitempty"`
	LastModifiedAt *time.Time `json:"lastModifiedAt,omitempty"`
	Version        int64      `json:"version"`

	AdminIntervention  bool       `json:"adminIntervention,omitempty"`
	InterventionReason string     `json:"interventionReason,omitempty"`
	InterventionAt     *time.Time `json:"interventionAt,omitempty"`
	ReopenedStage      Stage      `json:"reopenedStage,omitempty"`
	ReopenedAt         *time.Time `json:"reopenedAt,omitempty"`

	StageData StageSet `json:"-"`
}

// LineItem is one order line. Commercial owns every field except the
// stock, purchasing and engineering annotations.
type LineItem struct {
	ID               string          `json:"id"`
	Code             string          `json:"code"`
	ClientItemNumber string          `json:"clientItemNumber,omitempty"`
	Tag              string          `json:"tag,omitempty"`
	Description      string          `json:"description,omitempty"`
	Quantity         string          `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unitPrice"`
	Currency         Currency        `json:"currency"`
	SupplierName     string          `json:"supplierName"`

	PurchaseUnitPrice     *decimal.Decimal `json:"purchaseUnitPrice,omitempty"`
	ManufacturingStatus   string           `json:"manufacturingStatus,omitempty"`
	ManufacturingLeadDays int              `json:"manufacturingLeadDays,omitempty"`

	StockAvailableQty string `json:"stockAvailableQty,omitempty"`
	PurchaseNeedQty   string `json:"purchaseNeedQty,omitempty"`
	StockNotes        string `json:"stockNotes,omitempty"`

	// nil = drawing not yet approved; 0.. once approved
	EngineeringRevisionNumber *int       `json:"engineeringRevisionNumber,omitempty"`
	EngineeringReviewedAt     *time.Time `json:"engineeringReviewedAt,omitempty"`
	EngineeringReviewedBy     string     `json:"engineeringReviewedBy,omitempty"`
	EngineeringNotes          string     `json:"engineeringNotes,omitempty"`
}

// Approved reports whether engineering has set a revision for this line.
func (it LineItem) Approved() bool { return it.EngineeringRevisionNumber != nil }

// Status returns the pipeline position, treating an empty status as TRIAGEM.
func (r *ProcessRecord) Status() Stage {
	if r.GeneralStatus == "" {
		return StageTriagem
	}
	return r.GeneralStatus
}

// StampEntered sets enteredAt[s] only when it is not set yet and reports
// whether it wrote.
func (r *ProcessRecord) StampEntered(s Stage, at time.Time) bool {
	if r.EnteredAt == nil {
		r.EnteredAt = make(map[Stage]time.Time)
	}
	if _, ok := r.EnteredAt[s]; ok {
		return false
	}
	r.EnteredAt[s] = at
	return true
}

// EnteredAtOf returns the stage-entry timestamp if it was ever stamped.
func (r *ProcessRecord) EnteredAtOf(s Stage) (time.Time, bool) {
	t, ok := r.EnteredAt[s]
	return t, ok
}

// ItemByID returns a pointer into r.Items.
func (r *ProcessRecord) ItemByID(id string) *LineItem {
	for i := range r.Items {
		if r.Items[i].ID == id {
			return &r.Items[i]
		}
	}
	return nil
}

// Clone returns a deep copy. Components never mutate a record owned by the store.
func (r ProcessRecord) Clone() ProcessRecord {
	out := r
	out.LaunchedAt = cloneTime(r.LaunchedAt)
	out.LastModifiedAt = cloneTime(r.LastModifiedAt)
	out.InterventionAt = cloneTime(r.InterventionAt)
	out.ReopenedAt = cloneTime(r.ReopenedAt)

	if r.EnteredAt != nil {
		out.EnteredAt = make(map[Stage]time.Time, len(r.EnteredAt))
		for k, v := range r.EnteredAt {
			out.EnteredAt[k] = v
		}
	}
	if r.Items != nil {
		out.Items = make([]LineItem, len(r.Items))
		for i, it := range r.Items {
			out.Items[i] = it.clone()
		}
	}
	if r.AuditTrail != nil {
		out.AuditTrail = make([]AuditEvent, len(r.AuditTrail))
		for i, ev := range r.AuditTrail {
			out.AuditTrail[i] = ev.Clone()
		}
	}
	out.StageData = r.StageData.Clone()
	return out
}

func (it LineItem) clone() LineItem {
	out := it
	if it.PurchaseUnitPrice != nil {
		p := *it.PurchaseUnitPrice
		out.PurchaseUnitPrice = &p
	}
	if it.EngineeringRevisionNumber != nil {
		n := *it.EngineeringRevisionNumber
		out.EngineeringRevisionNumber = &n
	}
	out.EngineeringReviewedAt = cloneTime(it.EngineeringReviewedAt)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// TimePtr is a small helper for optional timestamps.
func TimePtr(t time.Time) *time.Time { return &t }
