package workflow

import "pvflow/internal/model"

// Actor is the already-authenticated identity behind a call.
type Actor struct {
	Name       string
	Email      string
	Department model.Department
	Role       model.Role
}

// CanUseView mirrors the view access rule: elevated users may work from
// any department view, everyone else only from their own.
func (a Actor) CanUseView(view model.Department) bool {
	if a.Role.Elevated() {
		return true
	}
	return view == a.Department
}
