package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StageData is the closed set of per-stage field groups a record accumulates
// while it moves through the pipeline. Only the types in this file implement it.
type StageData interface {
	Stage() Stage
	cloneData() StageData
	isZero() bool
}

// StageSet holds at most one StageData per stage.
type StageSet map[Stage]StageData

// StockStatus: "PENDENTE" | "CONCLUIDO"
type StockStatus string

const (
	StockPendente  StockStatus = "PENDENTE"
	StockConcluido StockStatus = "CONCLUIDO"
)

// PaymentStatus: "PENDENTE" | "AGUARDANDO FINANCEIRO" | "PARCIAL" | "PAGO"
type PaymentStatus string

const (
	PaymentPendente             PaymentStatus = "PENDENTE"
	PaymentAguardandoFinanceiro PaymentStatus = "AGUARDANDO FINANCEIRO"
	PaymentParcial              PaymentStatus = "PARCIAL"
	PaymentPago                 PaymentStatus = "PAGO"
)

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPendente, PaymentAguardandoFinanceiro, PaymentParcial, PaymentPago:
		return true
	}
	return false
}

type StockData struct {
	Status      StockStatus `json:"stockStatus,omitempty"`
	CompletedAt *time.Time  `json:"stockCompletedAt,omitempty"`
	Responsible string      `json:"stockResponsible,omitempty"`
	Notes       string      `json:"stockNotes,omitempty"`
}

type PlanningData struct {
	SCNumber    string `json:"scNumber,omitempty"`
	SCDate      string `json:"scDate,omitempty"`
	Responsible string `json:"planningResponsible,omitempty"`
}

type PurchasingData struct {
	PONumber           string `json:"poNumber,omitempty"`
	PODate             string `json:"poDate,omitempty"`
	PCNumber           string `json:"pcNumber,omitempty"`
	PCDate             string `json:"pcDate,omitempty"`
	Supplier           string `json:"poSupplier,omitempty"`
	PaymentTerms       string `json:"paymentTerms,omitempty"`
	PaymentTermsDetail string `json:"paymentTermsDetail,omitempty"`
	Responsible        string `json:"purchasingResponsible,omitempty"`
}

type EngineeringData struct {
	Responsible string `json:"engineeringResponsible,omitempty"`
	Notes       string `json:"engineeringStageNotes,omitempty"`
}

type FinanceData struct {
	PaymentStatus        PaymentStatus    `json:"paymentStatus,omitempty"`
	CustomsCharges       *decimal.Decimal `json:"customsCharges,omitempty"`
	InternationalFreight *decimal.Decimal `json:"internationalFreight,omitempty"`
	NationalFreight      *decimal.Decimal `json:"nationalFreight,omitempty"`
	AdvanceAmount        *decimal.Decimal `json:"advanceAmount,omitempty"`
	AdvanceDate          string           `json:"advanceDate,omitempty"`
	ComplementAmount     *decimal.Decimal `json:"complementAmount,omitempty"`
	RefundAmount         *decimal.Decimal `json:"refundAmount,omitempty"`
	Responsible          string           `json:"financeResponsible,omitempty"`
}

type LogisticsData struct {
	Modal           string `json:"modal,omitempty"`
	ETD             string `json:"etd,omitempty"`
	ETA             string `json:"eta,omitempty"`
	PickupScheduled string `json:"pickupScheduled,omitempty"`
	DI              string `json:"di,omitempty"`
	CustomsChannel  string `json:"customsChannel,omitempty"`
	Responsible     string `json:"logisticsResponsible,omitempty"`
}

func (*StockData) Stage() Stage       { return StageEstoque }
func (*PlanningData) Stage() Stage    { return StagePlanejamento }
func (*PurchasingData) Stage() Stage  { return StageCompras }
func (*EngineeringData) Stage() Stage { return StageEngenharia }
func (*FinanceData) Stage() Stage     { return StageFinanceiro }
func (*LogisticsData) Stage() Stage   { return StageLogistica }

func (d *StockData) isZero() bool       { return *d == StockData{} }
func (d *PlanningData) isZero() bool    { return *d == PlanningData{} }
func (d *PurchasingData) isZero() bool  { return *d == PurchasingData{} }
func (d *EngineeringData) isZero() bool { return *d == EngineeringData{} }
func (d *FinanceData) isZero() bool     { return *d == FinanceData{} }
func (d *LogisticsData) isZero() bool   { return *d == LogisticsData{} }

func (d *StockData) cloneData() StageData {
	c := *d
	c.CompletedAt = cloneTime(d.CompletedAt)
	return &c
}

func (d *PlanningData) cloneData() StageData    { c := *d; return &c }
func (d *PurchasingData) cloneData() StageData  { c := *d; return &c }
func (d *EngineeringData) cloneData() StageData { c := *d; return &c }
func (d *LogisticsData) cloneData() StageData   { c := *d; return &c }

func (d *FinanceData) cloneData() StageData {
	c := *d
	c.CustomsCharges = cloneDecimal(d.CustomsCharges)
	c.InternationalFreight = cloneDecimal(d.InternationalFreight)
	c.NationalFreight = cloneDecimal(d.NationalFreight)
	c.AdvanceAmount = cloneDecimal(d.AdvanceAmount)
	c.ComplementAmount = cloneDecimal(d.ComplementAmount)
	c.RefundAmount = cloneDecimal(d.RefundAmount)
	return &c
}

func cloneDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

// newStageData returns an empty group for the stage, or nil when the stage
// carries no stage-specific fields (TRIAGEM, FINALIZADO).
func newStageData(s Stage) StageData {
	switch s {
	case StageEstoque:
		return &StockData{}
	case StagePlanejamento:
		return &PlanningData{}
	case StageCompras:
		return &PurchasingData{}
	case StageEngenharia:
		return &EngineeringData{}
	case StageFinanceiro:
		return &FinanceData{}
	case StageLogistica:
		return &LogisticsData{}
	}
	return nil
}

func (set StageSet) Clone() StageSet {
	if set == nil {
		return nil
	}
	out := make(StageSet, len(set))
	for k, v := range set {
		if v != nil {
			out[k] = v.cloneData()
		}
	}
	return out
}

// Data returns the stage's group, creating an empty one on first access.
func (r *ProcessRecord) Data(s Stage) StageData {
	if r.StageData == nil {
		r.StageData = make(StageSet)
	}
	if d, ok := r.StageData[s]; ok && d != nil {
		return d
	}
	d := newStageData(s)
	if d != nil {
		r.StageData[s] = d
	}
	return d
}

// SetData replaces the group for d.Stage().
func (r *ProcessRecord) SetData(d StageData) {
	if r.StageData == nil {
		r.StageData = make(StageSet)
	}
	r.StageData[d.Stage()] = d
}

func (r *ProcessRecord) Stock() *StockData             { return r.Data(StageEstoque).(*StockData) }
func (r *ProcessRecord) Planning() *PlanningData       { return r.Data(StagePlanejamento).(*PlanningData) }
func (r *ProcessRecord) Purchasing() *PurchasingData   { return r.Data(StageCompras).(*PurchasingData) }
func (r *ProcessRecord) Engineering() *EngineeringData { return r.Data(StageEngenharia).(*EngineeringData) }
func (r *ProcessRecord) Finance() *FinanceData         { return r.Data(StageFinanceiro).(*FinanceData) }
func (r *ProcessRecord) Logistics() *LogisticsData     { return r.Data(StageLogistica).(*LogisticsData) }
