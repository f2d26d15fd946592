package extract

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoiceapi/internal/model"
)

func paidHeader() model.HeaderFields {
	return model.HeaderFields{
		InvoiceID:        strp("INV-1"),
		InvoiceDate:      strp("2024-01-01"),
		DueDate:          strp("2024-01-15"),
		PaymentStatus:    strp("Paid"),
		TotalAmount:      strp("1,050.00"),
		VATAmount:        strp("50.00"),
		ProfitMargin:     strp("12.5"),
		CustomerLocation: "Dubai",
	}
}

func TestAssemble_EndToEnd(t *testing.T) {
	recs := Assemble(paidHeader(), []model.ProductRow{{
		Product:   "Honey 500g",
		Qty:       ParseNumber("10"),
		UnitPrice: ParseNumber("10.50"),
		Total:     ParseNumber("105.00"),
	}})

	require.Len(t, recs, 1)
	r := recs[0]
	assert.Equal(t, "INV-1", *r.InvoiceID)
	assert.Equal(t, "Honey 500g", r.Product)
	require.NotNil(t, r.DaysToPayment)
	assert.Equal(t, 14, *r.DaysToPayment)
	assert.True(t, r.Total.Decimal.Equal(decimal.RequireFromString("105.00")))
	assert.Equal(t, "50", r.VAT.Decimal.String())
	assert.Equal(t, "12.5", r.ProfitMargin.Decimal.String())
	assert.False(t, r.Profit.Valid)
	assert.Equal(t, "Dubai", r.CustomerLocation)
	assert.NoError(t, model.ValidateRecord(r))
}

func TestAssemble_SentinelRow(t *testing.T) {
	recs := Assemble(paidHeader(), nil)

	require.Len(t, recs, 1)
	assert.Equal(t, SentinelProduct, recs[0].Product)
	assert.False(t, recs[0].Qty.Valid)
	assert.False(t, recs[0].UnitPrice.Valid)
	assert.Equal(t, "1050", recs[0].Total.Decimal.String())
}

func TestAssemble_SentinelWithoutHeader(t *testing.T) {
	recs := Assemble(model.HeaderFields{}, nil)

	require.Len(t, recs, 1)
	assert.Equal(t, SentinelProduct, recs[0].Product)
	assert.Equal(t, UnknownLocation, recs[0].CustomerLocation)
	assert.False(t, recs[0].Total.Valid)
	assert.Nil(t, recs[0].DaysToPayment)
	assert.NoError(t, model.ValidateRecord(recs[0]))
}

func TestAssemble_OneRecordPerRow(t *testing.T) {
	rows := []model.ProductRow{{Product: "a"}, {Product: "b"}, {Product: "c"}}

	recs := Assemble(paidHeader(), rows)

	require.Len(t, recs, 3)
	for i, r := range recs {
		assert.Equal(t, rows[i].Product, r.Product)
		assert.Equal(t, "INV-1", *r.InvoiceID)
	}
	*recs[0].DaysToPayment = 0
	assert.Equal(t, 14, *recs[1].DaysToPayment, "records do not share days_to_payment")
}

func TestDaysToPayment(t *testing.T) {
	tests := []struct {
		name   string
		modify func(h *model.HeaderFields)
		want   *int
	}{
		{"paid", func(*model.HeaderFields) {}, intp(14)},
		{"unpaid", func(h *model.HeaderFields) { h.PaymentStatus = strp("Unpaid") }, nil},
		{"status case differs", func(h *model.HeaderFields) { h.PaymentStatus = strp("paid") }, nil},
		{"no status", func(h *model.HeaderFields) { h.PaymentStatus = nil }, nil},
		{"raw date kept", func(h *model.HeaderFields) { h.InvoiceDate = strp("31 Foo 2024") }, nil},
		{"missing due date", func(h *model.HeaderFields) { h.DueDate = nil }, nil},
		{"due before issue", func(h *model.HeaderFields) { h.DueDate = strp("2023-12-25") }, intp(-7)},
		{"span beyond duration range", func(h *model.HeaderFields) {
			h.InvoiceDate = strp("1700-01-01")
			h.DueDate = strp("2024-01-01")
		}, intp(118341)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := paidHeader()
			tt.modify(&h)
			assert.Equal(t, tt.want, daysToPayment(h))
		})
	}
}

func intp(i int) *int { return &i }
