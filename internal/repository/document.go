// Package repository contains data access abstractions. Implementations live in
// subpackages (postgres) and contain no business logic.
package repository

import (
	"context"

	"invoiceapi/internal/model"
)

// DocumentRepository defines data access for uploaded documents.
type DocumentRepository interface {
	// Create inserts the document and its extracted records in one transaction.
	// Records are numbered by their position in the slice.
	Create(ctx context.Context, doc *model.Document, records []model.InvoiceRecord) (*model.Document, error)

	// FindByID returns a document by its ID, or sql.ErrNoRows.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// FindByHash returns the document with the given content hash, or sql.ErrNoRows.
	FindByHash(ctx context.Context, hash string) (*model.Document, error)

	// List returns a paginated list of documents and the total row count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Document], error)

	// Delete removes a document and, by cascade, its records. A missing row is not an error.
	Delete(ctx context.Context, id string) error

	// DeleteIfEmpty removes those of the given documents that no longer have any
	// records and returns the removed rows.
	DeleteIfEmpty(ctx context.Context, ids []string) ([]model.Document, error)
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
type PageResult[T any] struct {
	Items []T
	Total int
}
