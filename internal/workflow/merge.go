package workflow

import (
	"pvflow/internal/model"

	"github.com/google/uuid"
)

// MergeDraft builds the record a save will write: the stored snapshot with
// the parts of draft the actor is allowed to change applied on top.
// stored is nil for a new record.
//
// Ownership:
//   - commercial fields and the item list change only from COMERCIAL in TRIAGEM
//   - pvCode is frozen once the record leaves TRIAGEM
//   - drawing revisions change only through ApproveLineItem
//   - stage data is taken only for the stage the view owns
//   - trail, enteredAt and intervention flags are server owned
//
// Elevated users may edit every user-owned field from any view.
func MergeDraft(stored *model.ProcessRecord, draft model.ProcessRecord, actor Actor, view model.Department) model.ProcessRecord {
	if stored == nil {
		return mergeNew(draft)
	}

	out := stored.Clone()
	out.Version = draft.Version
	elevated := actor.Role.Elevated()
	commercial := elevated || (view == model.DeptComercial && stored.Status() == model.StageTriagem)

	if elevated || stored.Status() == model.StageTriagem {
		out.PVCode = draft.PVCode
	}
	if commercial {
		out.Client = draft.Client
		out.ClientPO = draft.ClientPO
		out.PVDate = draft.PVDate
		out.ContractTermDays = draft.ContractTermDays
		out.ScopeStatus = draft.ScopeStatus
		out.Items = mergeCommercialItems(stored.Items, draft.Items)
	} else {
		mergeAnnotations(out.Items, draft.Items, view)
	}

	if elevated {
		for _, s := range model.StageOrder {
			if d, ok := draft.StageData[s]; ok && d != nil {
				takeStageData(&out, d)
			}
		}
	} else if s, ok := view.OwnedStage(); ok {
		if d, ok := draft.StageData[s]; ok && d != nil {
			takeStageData(&out, d)
		}
	}
	return out
}

func mergeNew(draft model.ProcessRecord) model.ProcessRecord {
	out := draft.Clone()
	if out.ID == "" {
		out.ID = "pv-" + uuid.NewString()
	}
	out.GeneralStatus = model.StageTriagem
	out.EnteredAt = nil
	out.AuditTrail = []model.AuditEvent{}
	out.Version = 0
	out.AdminIntervention = false
	out.InterventionReason = ""
	out.InterventionAt = nil
	out.ReopenedStage = ""
	out.ReopenedAt = nil
	out.StageData = nil
	out.Stock().Status = model.StockPendente
	for i := range out.Items {
		assignItemID(&out.Items[i])
		clearReview(&out.Items[i])
	}
	return out
}

// mergeCommercialItems takes the draft list as is, keeping engineering
// review state for lines that already existed.
func mergeCommercialItems(stored, draft []model.LineItem) []model.LineItem {
	prev := make(map[string]model.LineItem, len(stored))
	for _, it := range stored {
		prev[it.ID] = it
	}
	out := make([]model.LineItem, 0, len(draft))
	for _, it := range draft {
		it := cloneItem(it)
		assignItemID(&it)
		if old, ok := prev[it.ID]; ok {
			it.EngineeringRevisionNumber = old.EngineeringRevisionNumber
			it.EngineeringReviewedAt = old.EngineeringReviewedAt
			it.EngineeringReviewedBy = old.EngineeringReviewedBy
		} else {
			clearReview(&it)
		}
		out = append(out, it)
	}
	return out
}

// mergeAnnotations copies the per-item fields a department annotates.
// Lines added or removed in the draft are ignored.
func mergeAnnotations(items []model.LineItem, draft []model.LineItem, view model.Department) {
	byID := make(map[string]model.LineItem, len(draft))
	for _, it := range draft {
		byID[it.ID] = it
	}
	for i := range items {
		d, ok := byID[items[i].ID]
		if !ok {
			continue
		}
		switch view {
		case model.DeptEstoque:
			items[i].StockAvailableQty = d.StockAvailableQty
			items[i].PurchaseNeedQty = d.PurchaseNeedQty
			items[i].StockNotes = d.StockNotes
		case model.DeptCompras:
			items[i].PurchaseUnitPrice = cloneItem(d).PurchaseUnitPrice
			items[i].ManufacturingStatus = d.ManufacturingStatus
			items[i].ManufacturingLeadDays = d.ManufacturingLeadDays
		case model.DeptEngenharia:
			items[i].EngineeringNotes = d.EngineeringNotes
		}
	}
}

// takeStageData copies a draft stage group onto out. The stock gate fields
// are written only by the gate engine and reopen.
func takeStageData(out *model.ProcessRecord, d model.StageData) {
	c := cloneStageData(d)
	if st, ok := c.(*model.StockData); ok {
		prev, _ := out.StageData[model.StageEstoque].(*model.StockData)
		if prev != nil {
			st.Status = prev.Status
			st.CompletedAt = prev.CompletedAt
		} else {
			st.Status = model.StockPendente
			st.CompletedAt = nil
		}
	}
	out.SetData(c)
}

func cloneStageData(d model.StageData) model.StageData {
	set := model.StageSet{d.Stage(): d}.Clone()
	return set[d.Stage()]
}

func cloneItem(it model.LineItem) model.LineItem {
	r := model.ProcessRecord{Items: []model.LineItem{it}}.Clone()
	return r.Items[0]
}

func assignItemID(it *model.LineItem) {
	if it.ID == "" {
		it.ID = "it-" + uuid.NewString()
	}
}

func clearReview(it *model.LineItem) {
	it.EngineeringRevisionNumber = nil
	it.EngineeringReviewedAt = nil
	it.EngineeringReviewedBy = ""
}
