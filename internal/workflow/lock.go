package workflow

import "pvflow/internal/model"

// IsLocked decides whether user may edit rec from view. The answer depends
// on the record's current status, so callers evaluate it on every request.
// A nil record is a new draft and is never locked.
func IsLocked(rec *model.ProcessRecord, user Actor, view model.Department) bool {
	if user.Role.Elevated() {
		return false
	}
	if rec == nil {
		return false
	}
	if rec.GeneralStatus == model.StageFinalizado {
		return true
	}
	if view == model.DeptComercial {
		return rec.GeneralStatus != "" && rec.GeneralStatus != model.StageTriagem
	}
	return string(view) != string(rec.GeneralStatus)
}
