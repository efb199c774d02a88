// Package apierror provides the error envelopes returned to API clients.
// Everything a client sees on 4xx/5xx goes through here, so internal
// details (stack traces, SQL errors) never leak.
package apierror

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// ValidationError wraps request field errors from the validator.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Erro de validacao", Fields: fields}
}

// RuleError reports business-rule violations: mandatory fields missing on a
// save, or the gate that kept a record from advancing.
type RuleError struct {
	Detail     string `json:"detail"`
	Violations any    `json:"violations,omitempty"`
	Blocked    any    `json:"blocked,omitempty"`
}

func NewRule(detail string, violations any) *RuleError {
	return &RuleError{Detail: detail, Violations: violations}
}
