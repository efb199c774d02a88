package workflow

import (
	"errors"
	"fmt"
	"strings"

	"pvflow/internal/model"

	"github.com/shopspring/decimal"
)

// Violation codes. The message shown to users carries the legacy label.
const (
	ViolationPVCode       = "PV_CODE"
	ViolationClient       = "CLIENT"
	ViolationClientPO     = "CLIENT_PO"
	ViolationPVDate       = "PV_DATE"
	ViolationItems        = "ITEMS"
	ViolationItemCode     = "ITEM_CODE"
	ViolationItemSupplier = "ITEM_SUPPLIER"
	ViolationItemQuantity = "ITEM_QUANTITY"
)

var errBadQuantity = errors.New("quantidade invalida")

// Validate lists every mandatory field the draft is missing. An empty result
// means the draft may be saved.
func Validate(draft model.ProcessRecord) []Violation {
	var out []Violation
	if blank(draft.PVCode) {
		out = append(out, Violation{Code: ViolationPVCode, Message: "CODIGO PV"})
	}
	if blank(draft.Client) {
		out = append(out, Violation{Code: ViolationClient, Message: "CLIENTE"})
	}
	if blank(draft.ClientPO) {
		out = append(out, Violation{Code: ViolationClientPO, Message: "PO CLIENTE"})
	}
	if blank(draft.PVDate) {
		out = append(out, Violation{Code: ViolationPVDate, Message: "DATA PV"})
	}
	if len(draft.Items) == 0 {
		out = append(out, Violation{Code: ViolationItems, Message: "LISTA DE ITENS"})
		return out
	}

	for i, it := range draft.Items {
		n := i + 1
		if blank(it.Code) {
			out = append(out, Violation{Code: ViolationItemCode, Item: n, Message: fmt.Sprintf("CODIGO ITEM #%d", n)})
		}
		if blank(it.SupplierName) {
			out = append(out, Violation{Code: ViolationItemSupplier, Item: n, Message: fmt.Sprintf("FORNECEDOR ITEM #%d", n)})
		}
		if q, err := ParseQuantity(it.Quantity); err != nil || !q.IsPositive() {
			out = append(out, Violation{Code: ViolationItemQuantity, Item: n, Message: fmt.Sprintf("QTD INVALIDA ITEM #%d", n)})
		}
	}
	return out
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// ParseQuantity reads a quantity typed in either Brazilian ("1.234,5") or
// English ("1,234.5") notation.
//
// With both separators present the last one is the decimal mark. With a
// single kind present, repeated occurrences or exactly three trailing digits
// mean thousands grouping ("1.500" is fifteen hundred); anything else is a
// decimal mark ("2,5", "0.75").
func ParseQuantity(raw string) (decimal.Decimal, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	if s == "" {
		return decimal.Zero, errBadQuantity
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		s = normalizeSingleSeparator(s, ",")
	case lastDot >= 0:
		s = normalizeSingleSeparator(s, ".")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", errBadQuantity, raw)
	}
	return d, nil
}

func normalizeSingleSeparator(s, sep string) string {
	if strings.Count(s, sep) > 1 {
		return strings.ReplaceAll(s, sep, "")
	}
	i := strings.Index(s, sep)
	intPart, frac := s[:i], s[i+1:]
	if len(frac) == 3 && intPart != "" && intPart != "0" && intPart != "-0" {
		return intPart + frac
	}
	return intPart + "." + frac
}
