package model

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// HeaderFields holds the invoice-level values found in the document text.
// Every field is nil when its rule did not match. Amounts stay strings here,
// with thousands separators already removed.
type HeaderFields struct {
	InvoiceID       *string `json:"invoice_id"`
	InvoiceDate     *string `json:"invoice_date"`
	CustomerName    *string `json:"customer_name"`
	CustomerID      *string `json:"customer_id"`
	CustomerAddress *string `json:"customer_address"`
	CustomerTRN     *string `json:"customer_trn"`
	CustomerType    *string `json:"customer_type"`
	PaymentStatus   *string `json:"payment_status"`
	DueDate         *string `json:"due_date"`
	TotalAmount     *string `json:"total_amount"`
	VATAmount       *string `json:"vat_amount"`
	AmountExclVAT   *string `json:"amount_excl_vat"`
	Profit          *string `json:"profit"`
	ProfitMargin    *string `json:"profit_margin"`
	CostPrice       *string `json:"cost_price"`

	CustomerLocation string `json:"customer_location"`
}

// ProductRow is one line item recovered from a table or from the raw text.
type ProductRow struct {
	Product   string              `json:"product"`
	Qty       decimal.NullDecimal `json:"qty"`
	UnitPrice decimal.NullDecimal `json:"unit_price"`
	Total     decimal.NullDecimal `json:"total"`
}

// InvoiceRecord is one output row: header fields joined with a single product row.
type InvoiceRecord struct {
	InvoiceID        *string             `json:"invoice_id"`
	InvoiceDate      *string             `json:"invoice_date"`
	CustomerName     *string             `json:"customer_name"`
	CustomerID       *string             `json:"customer_id"`
	CustomerLocation string              `json:"customer_location"`
	CustomerType     *string             `json:"customer_type"`
	CustomerTRN      *string             `json:"customer_trn"`
	PaymentStatus    *string             `json:"payment_status"`
	DueDate          *string             `json:"due_date"`
	Product          string              `json:"product"`
	Qty              decimal.NullDecimal `json:"qty"`
	UnitPrice        decimal.NullDecimal `json:"unit_price"`
	Total            decimal.NullDecimal `json:"total"`
	AmountExclVAT    decimal.NullDecimal `json:"amount_excl_vat"`
	VAT              decimal.NullDecimal `json:"vat"`
	Profit           decimal.NullDecimal `json:"profit"`
	ProfitMargin     decimal.NullDecimal `json:"profit_margin"`
	CostPrice        decimal.NullDecimal `json:"cost_price"`
	DaysToPayment    *int                `json:"days_to_payment"`
}

// Columns is the fixed output column order shared by every export format.
var Columns = []string{
	"invoice_id",
	"invoice_date",
	"customer_name",
	"customer_id",
	"customer_location",
	"customer_type",
	"customer_trn",
	"payment_status",
	"due_date",
	"product",
	"qty",
	"unit_price",
	"total",
	"amount_excl_vat",
	"vat",
	"profit",
	"profit_margin",
	"cost_price",
	"days_to_payment",
}

// Cells returns the record values in Columns order. Nulls are nil, amounts are float64
// and days_to_payment is an int, ready for spreadsheet cells.
func (r InvoiceRecord) Cells() []any {
	return []any{
		strCell(r.InvoiceID),
		strCell(r.InvoiceDate),
		strCell(r.CustomerName),
		strCell(r.CustomerID),
		r.CustomerLocation,
		strCell(r.CustomerType),
		strCell(r.CustomerTRN),
		strCell(r.PaymentStatus),
		strCell(r.DueDate),
		r.Product,
		numCell(r.Qty),
		numCell(r.UnitPrice),
		numCell(r.Total),
		numCell(r.AmountExclVAT),
		numCell(r.VAT),
		numCell(r.Profit),
		numCell(r.ProfitMargin),
		numCell(r.CostPrice),
		intCell(r.DaysToPayment),
	}
}

// Strings returns the record values in Columns order with nulls as empty strings.
func (r InvoiceRecord) Strings() []string {
	return []string{
		deref(r.InvoiceID),
		deref(r.InvoiceDate),
		deref(r.CustomerName),
		deref(r.CustomerID),
		r.CustomerLocation,
		deref(r.CustomerType),
		deref(r.CustomerTRN),
		deref(r.PaymentStatus),
		deref(r.DueDate),
		r.Product,
		numString(r.Qty),
		numString(r.UnitPrice),
		numString(r.Total),
		numString(r.AmountExclVAT),
		numString(r.VAT),
		numString(r.Profit),
		numString(r.ProfitMargin),
		numString(r.CostPrice),
		intString(r.DaysToPayment),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func strCell(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func numCell(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.InexactFloat64()
}

func intCell(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

func numString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

func intString(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}

// StoredRecord is a persisted InvoiceRecord with its source document and position.
type StoredRecord struct {
	DocumentID string `json:"document_id"`
	LineNo     int    `json:"line_no"`
	InvoiceRecord
}
