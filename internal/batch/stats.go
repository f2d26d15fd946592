package batch

import (
	"errors"

	"invoiceapi/internal/extract"
)

// Stats aggregates a batch run.
type Stats struct {
	Documents  int
	Records    int
	Invoices   int
	ReadErrors int
	Methods    map[extract.Method]int
}

// Summarize counts documents, records, distinct invoice ids, unreadable
// documents and the table method used per document.
func Summarize(results []extract.Result) Stats {
	s := Stats{Documents: len(results), Methods: map[extract.Method]int{}}
	invoices := map[string]struct{}{}
	for _, r := range results {
		s.Records += len(r.Records)
		s.Methods[r.Method]++
		var readErr *extract.DocumentReadError
		if errors.As(r.Err, &readErr) {
			s.ReadErrors++
		}
		for _, rec := range r.Records {
			if rec.InvoiceID != nil {
				invoices[*rec.InvoiceID] = struct{}{}
			}
		}
	}
	s.Invoices = len(invoices)
	return s
}
