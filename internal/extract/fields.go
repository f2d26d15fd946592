package extract

import (
	"regexp"
	"strings"
	"time"

	"invoiceapi/internal/model"
)

type fieldKind int

const (
	textField fieldKind = iota
	dateField
	amountField
)

// fieldRule maps one header field to the pattern whose first group holds its value.
type fieldRule struct {
	name    string
	pattern *regexp.Regexp
	kind    fieldKind
	set     func(h *model.HeaderFields, v *string)
}

func headerPattern(expr string) *regexp.Regexp {
	return regexp.MustCompile(`(?is)` + expr)
}

// fieldRules is evaluated in order against the full document text.
var fieldRules = []fieldRule{
	{"invoice_id", headerPattern(`Tax Invoice No:\s*([\w\d-]+)`), textField,
		func(h *model.HeaderFields, v *string) { h.InvoiceID = v }},
	{"invoice_date", headerPattern(`Date:\s*(\d{1,2}\s+[A-Za-z]{3}\s+\d{4})`), dateField,
		func(h *model.HeaderFields, v *string) { h.InvoiceDate = v }},
	{"customer_name", headerPattern(`Customer Name:\s*([^\n]+)`), textField,
		func(h *model.HeaderFields, v *string) { h.CustomerName = v }},
	{"customer_id", headerPattern(`Customer ID:\s*([^\n]+)`), textField,
		func(h *model.HeaderFields, v *string) { h.CustomerID = v }},
	{"customer_address", headerPattern(`Address:\s*((?:.|\n)*?)\s*United Arab Emirates`), textField,
		func(h *model.HeaderFields, v *string) { h.CustomerAddress = v }},
	{"customer_trn", headerPattern(`Customer.*?TRN:\s*(\d+)`), textField,
		func(h *model.HeaderFields, v *string) { h.CustomerTRN = v }},
	{"customer_type", headerPattern(`Customer Type:\s*([^\n]+)`), textField,
		func(h *model.HeaderFields, v *string) { h.CustomerType = v }},
	{"payment_status", headerPattern(`Payment Status:\s*([^\n]+)`), textField,
		func(h *model.HeaderFields, v *string) { h.PaymentStatus = v }},
	{"due_date", headerPattern(`Due Date:\s*(\d{1,2}\s+[A-Za-z]{3}\s+\d{4})`), dateField,
		func(h *model.HeaderFields, v *string) { h.DueDate = v }},
	{"total_amount", headerPattern(`Total with VAT.*?AED\s+([\d,]+\.\d{2})`), amountField,
		func(h *model.HeaderFields, v *string) { h.TotalAmount = v }},
	{"vat_amount", headerPattern(`5% Total VAT.*?AED\s+([\d,]+\.\d{2})`), amountField,
		func(h *model.HeaderFields, v *string) { h.VATAmount = v }},
	{"amount_excl_vat", headerPattern(`Total Excluding VAT.*?AED\s+([\d,]+\.\d{2})`), amountField,
		func(h *model.HeaderFields, v *string) { h.AmountExclVAT = v }},
	{"profit", headerPattern(`Profit:\s*AED\s+([\d,]+\.\d{2})`), amountField,
		func(h *model.HeaderFields, v *string) { h.Profit = v }},
	{"profit_margin", headerPattern(`Profit Margin:\s*([\d.]+)%`), textField,
		func(h *model.HeaderFields, v *string) { h.ProfitMargin = v }},
	{"cost_price", headerPattern(`Cost Price:\s*AED\s+([\d,]+\.\d{2})`), amountField,
		func(h *model.HeaderFields, v *string) { h.CostPrice = v }},
}

const (
	invoiceDateLayout = "2 Jan 2006"
	isoDateLayout     = "2006-01-02"
)

// FieldExtractor turns document text into header fields.
type FieldExtractor struct {
	nullUnparsedDates bool
	location          *LocationResolver
}

func NewFieldExtractor(p Profile) *FieldExtractor {
	return &FieldExtractor{
		nullUnparsedDates: p.NullUnparsedDates,
		location:          NewLocationResolver(p.Regions, p.AddressStoplist),
	}
}

// Extract applies every rule to text. Fields without a match stay nil.
func (f *FieldExtractor) Extract(text string) model.HeaderFields {
	var h model.HeaderFields
	for _, r := range fieldRules {
		m := r.pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		r.set(&h, f.postprocess(r.kind, strings.TrimSpace(m[1])))
	}
	h.CustomerLocation = f.location.Resolve(h.CustomerAddress)
	return h
}

func (f *FieldExtractor) postprocess(kind fieldKind, v string) *string {
	switch kind {
	case dateField:
		if iso, ok := normalizeDate(v); ok {
			return &iso
		}
		if f.nullUnparsedDates {
			return nil
		}
	case amountField:
		v = strings.ReplaceAll(v, ",", "")
	}
	return &v
}

// normalizeDate rewrites "15 Jan 2024" as "2024-01-15".
func normalizeDate(s string) (string, bool) {
	t, err := time.Parse(invoiceDateLayout, strings.Join(strings.Fields(s), " "))
	if err != nil {
		return "", false
	}
	return t.Format(isoDateLayout), true
}
