package repository

import (
	"context"

	"invoiceapi/internal/model"
)

// RecordRepository reads and removes persisted invoice records.
type RecordRepository interface {
	// List returns records oldest document first, in line order.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.StoredRecord], error)

	// All returns every record in List order.
	All(ctx context.Context) ([]model.InvoiceRecord, error)

	// DeleteByInvoiceIDs removes every record of the given invoices and returns the removed rows.
	DeleteByInvoiceIDs(ctx context.Context, invoiceIDs []string) ([]model.StoredRecord, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)
}
