package model

import "strings"

// Stage is a position in the import-process pipeline (generalStatus).
type Stage string

const (
	StageTriagem      Stage = "TRIAGEM"
	StageEstoque      Stage = "ESTOQUE"
	StagePlanejamento Stage = "PLANEJAMENTO"
	StageCompras      Stage = "COMPRAS"
	StageEngenharia   Stage = "ENGENHARIA"
	StageFinanceiro   Stage = "FINANCEIRO"
	StageLogistica    Stage = "LOGISTICA"
	StageFinalizado   Stage = "FINALIZADO"
)

// StageOrder is the fixed pipeline order. Position in this slice is the
// only ordering the gate engine trusts.
var StageOrder = []Stage{
	StageTriagem,
	StageEstoque,
	StagePlanejamento,
	StageCompras,
	StageEngenharia,
	StageFinanceiro,
	StageLogistica,
	StageFinalizado,
}

// Index returns the position of s in StageOrder, or -1 for unknown stages.
func (s Stage) Index() int {
	for i, st := range StageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

func (s Stage) Valid() bool { return s.Index() >= 0 }

// Next returns the stage after s. FINALIZADO and unknown stages have no successor.
func (s Stage) Next() (Stage, bool) {
	i := s.Index()
	if i < 0 || i >= len(StageOrder)-1 {
		return s, false
	}
	return StageOrder[i+1], true
}

// Before reports whether s comes strictly before other in the pipeline.
func (s Stage) Before(other Stage) bool {
	return s.Index() < other.Index()
}

// Owner is the department that owns the gate of this stage.
func (s Stage) Owner() Department {
	switch s {
	case StageTriagem:
		return DeptComercial
	case StageFinalizado, "":
		return ""
	default:
		return Department(s)
	}
}

// ParseStage accepts any casing and surrounding whitespace.
func ParseStage(v string) (Stage, bool) {
	s := Stage(strings.ToUpper(strings.TrimSpace(v)))
	return s, s.Valid()
}

// Department is both the organisational unit of a user and the "view" a
// request is made from.
type Department string

const (
	DeptComercial    Department = "COMERCIAL"
	DeptEstoque      Department = "ESTOQUE"
	DeptPlanejamento Department = "PLANEJAMENTO"
	DeptCompras      Department = "COMPRAS"
	DeptEngenharia   Department = "ENGENHARIA"
	DeptFinanceiro   Department = "FINANCEIRO"
	DeptLogistica    Department = "LOGISTICA"
	DeptAdmin        Department = "ADMIN"
)

var Departments = []Department{
	DeptComercial, DeptEstoque, DeptPlanejamento, DeptCompras,
	DeptEngenharia, DeptFinanceiro, DeptLogistica, DeptAdmin,
}

func (d Department) Valid() bool {
	for _, x := range Departments {
		if x == d {
			return true
		}
	}
	return false
}

// OwnedStage is the pipeline stage whose gate this department controls.
func (d Department) OwnedStage() (Stage, bool) {
	switch d {
	case DeptComercial:
		return StageTriagem, true
	case DeptAdmin, "":
		return "", false
	default:
		s := Stage(d)
		return s, s.Valid()
	}
}

func ParseDepartment(v string) (Department, bool) {
	d := Department(strings.ToUpper(strings.TrimSpace(v)))
	return d, d.Valid()
}

// Role: "ADMIN" | "SUPER_ADMIN" | "USER" | "VIEWER"
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleUser       Role = "USER"
	RoleViewer     Role = "VIEWER"
)

// Elevated roles bypass the lock policy.
func (r Role) Elevated() bool { return r == RoleAdmin || r == RoleSuperAdmin }
