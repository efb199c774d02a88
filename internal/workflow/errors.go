package workflow

import (
	"errors"
	"fmt"
	"strings"

	"pvflow/internal/model"
)

var (
	ErrRecordLocked         = errors.New("registro bloqueado no fluxo atual")
	ErrReadOnlyUser         = errors.New("usuario somente leitura")
	ErrViewNotAllowed       = errors.New("departamento sem acesso a esta visao")
	ErrNotPrivileged        = errors.New("operacao restrita a administradores")
	ErrReasonRequired       = errors.New("informe o motivo da intervencao")
	ErrConfirmationMismatch = errors.New("frase de confirmacao incorreta")
	ErrStageNotReached      = errors.New("etapa ainda nao alcancada pelo processo")
	ErrInvalidStage         = errors.New("etapa invalida")
	ErrItemNotFound         = errors.New("item nao encontrado")
	ErrWrongView            = errors.New("aprovacao de desenho disponivel apenas na visao ENGENHARIA")
)

// Violation is one missing or invalid mandatory field.
type Violation struct {
	Code    string `json:"code"`
	Item    int    `json:"item,omitempty"` // 1-based line number, 0 for record fields
	Message string `json:"message"`
}

// ValidationError refuses a save entirely; nothing is persisted.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Message
	}
	return "pendencias obrigatorias: " + strings.Join(msgs, ", ")
}

// GateBlocked explains why a record could not advance. Field edits of the
// same save are still persisted.
type GateBlocked struct {
	Stage  model.Stage `json:"stage"`
	Field  string      `json:"field"`
	Reason string      `json:"reason"`
}

func (e *GateBlocked) Error() string {
	return fmt.Sprintf("avanco bloqueado em %s: %s", e.Stage, e.Reason)
}
