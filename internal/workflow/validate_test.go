package workflow

import (
	"testing"

	"pvflow/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codes(vs []Violation) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Code
	}
	return out
}

func TestValidate_ValidRecord(t *testing.T) {
	assert.Empty(t, Validate(validRecord(model.StageTriagem)))
}

func TestValidate_EachMandatoryField(t *testing.T) {
	cases := []struct {
		code   string
		break_ func(r *model.ProcessRecord)
	}{
		{ViolationPVCode, func(r *model.ProcessRecord) { r.PVCode = "" }},
		{ViolationClient, func(r *model.ProcessRecord) { r.Client = "  " }},
		{ViolationClientPO, func(r *model.ProcessRecord) { r.ClientPO = "" }},
		{ViolationPVDate, func(r *model.ProcessRecord) { r.PVDate = "" }},
		{ViolationItems, func(r *model.ProcessRecord) { r.Items = nil }},
		{ViolationItemCode, func(r *model.ProcessRecord) { r.Items[0].Code = "" }},
		{ViolationItemSupplier, func(r *model.ProcessRecord) { r.Items[0].SupplierName = "" }},
		{ViolationItemQuantity, func(r *model.ProcessRecord) { r.Items[0].Quantity = "0" }},
		{ViolationItemQuantity, func(r *model.ProcessRecord) { r.Items[0].Quantity = "abc" }},
		{ViolationItemQuantity, func(r *model.ProcessRecord) { r.Items[0].Quantity = "-2" }},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			r := validRecord(model.StageTriagem)
			tc.break_(&r)
			assert.Equal(t, []string{tc.code}, codes(Validate(r)))
		})
	}
}

func TestValidate_ItemViolationsCarryLineNumber(t *testing.T) {
	r := validRecord(model.StageTriagem)
	r.Items = append(r.Items, model.LineItem{Code: "B", Quantity: "1"})

	vs := Validate(r)

	require.Len(t, vs, 1)
	assert.Equal(t, 2, vs[0].Item)
	assert.Equal(t, "FORNECEDOR ITEM #2", vs[0].Message)
}

func TestParseQuantity(t *testing.T) {
	cases := map[string]string{
		"5":         "5",
		"2,5":       "2.5",
		"2.5":       "2.5",
		"0,75":      "0.75",
		"1.500":     "1500",
		"1,500":     "1500",
		"1.234,56":  "1234.56",
		"1,234.56":  "1234.56",
		"1.234.567": "1234567",
		" 12 ":      "12",
		"0.500":     "0.5",
	}
	for in, want := range cases {
		got, err := ParseQuantity(in)
		require.NoError(t, err, in)
		assert.True(t, decimal.RequireFromString(want).Equal(got), "%q: got %s", in, got)
	}

	for _, bad := range []string{"", "abc", "1,2,3.4.5x"} {
		_, err := ParseQuantity(bad)
		assert.Error(t, err, bad)
	}
}
