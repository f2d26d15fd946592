package extract

import (
	"time"

	"invoiceapi/internal/model"
)

// SentinelProduct names the placeholder row emitted for a document without line items.
const SentinelProduct = "Unknown"

const paidStatus = "Paid"

// Assemble joins the header with every product row. When rows is empty a single
// sentinel row carries the header total so it is not lost.
func Assemble(h model.HeaderFields, rows []model.ProductRow) []model.InvoiceRecord {
	if len(rows) == 0 {
		rows = []model.ProductRow{{Product: SentinelProduct, Total: parseOptional(h.TotalAmount)}}
	}

	days := daysToPayment(h)
	amountExclVAT := parseOptional(h.AmountExclVAT)
	vat := parseOptional(h.VATAmount)
	profit := parseOptional(h.Profit)
	margin := parseOptional(h.ProfitMargin)
	cost := parseOptional(h.CostPrice)

	location := h.CustomerLocation
	if location == "" {
		location = UnknownLocation
	}

	out := make([]model.InvoiceRecord, 0, len(rows))
	for _, r := range rows {
		rec := model.InvoiceRecord{
			InvoiceID:        h.InvoiceID,
			InvoiceDate:      h.InvoiceDate,
			CustomerName:     h.CustomerName,
			CustomerID:       h.CustomerID,
			CustomerLocation: location,
			CustomerType:     h.CustomerType,
			CustomerTRN:      h.CustomerTRN,
			PaymentStatus:    h.PaymentStatus,
			DueDate:          h.DueDate,
			Product:          r.Product,
			Qty:              r.Qty,
			UnitPrice:        r.UnitPrice,
			Total:            r.Total,
			AmountExclVAT:    amountExclVAT,
			VAT:              vat,
			Profit:           profit,
			ProfitMargin:     margin,
			CostPrice:        cost,
		}
		if days != nil {
			d := *days
			rec.DaysToPayment = &d
		}
		out = append(out, rec)
	}
	return out
}

// daysToPayment is set only for invoices whose status is exactly "Paid"
// and whose two dates are ISO dates.
func daysToPayment(h model.HeaderFields) *int {
	if h.PaymentStatus == nil || *h.PaymentStatus != paidStatus {
		return nil
	}
	if h.InvoiceDate == nil || h.DueDate == nil {
		return nil
	}
	issued, err := time.Parse(isoDateLayout, *h.InvoiceDate)
	if err != nil {
		return nil
	}
	due, err := time.Parse(isoDateLayout, *h.DueDate)
	if err != nil {
		return nil
	}
	// Both dates are midnight UTC; Unix seconds avoid the Duration range limit.
	days := int((due.Unix() - issued.Unix()) / 86400)
	return &days
}
