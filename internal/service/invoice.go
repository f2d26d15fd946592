package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"invoiceapi/internal/export"
	"invoiceapi/internal/model"
	"invoiceapi/internal/repository"
	"invoiceapi/internal/storage"
)

var (
	ErrNoInvoiceIDs      = errors.New("no invoice IDs provided")
	ErrInvoicesNotFound  = errors.New("no matching invoices found")
	ErrUnsupportedFormat = errors.New("unsupported export format")
)

// InvoiceListResult is a page of stored records.
type InvoiceListResult struct {
	Items []model.StoredRecord `json:"data"`
	Total int                  `json:"total"`
}

type DeletedInvoice struct {
	InvoiceID      string   `json:"invoice_id"`
	DocumentIDs    []string `json:"document_ids"`
	RecordsDeleted int      `json:"records_deleted"`
	// DeletedFiles lists source files removed because no records were left for them.
	DeletedFiles []string `json:"deleted_files"`
}

type DeleteInvoicesResult struct {
	Message          string           `json:"message"`
	DeletedInvoices  []DeletedInvoice `json:"deleted_invoices"`
	NotFoundInvoices []string         `json:"not_found_invoices"`
	TotalDeleted     int              `json:"total_deleted"`
	RemainingRecords int              `json:"remaining_records"`
	Errors           []string         `json:"errors,omitempty"`
}

// InvoiceService covers the record-level use cases.
type InvoiceService interface {
	List(ctx context.Context, limit, offset int) (*InvoiceListResult, error)

	// Delete removes all records of the given invoice IDs. Documents left
	// without records are removed together with their stored file.
	Delete(ctx context.Context, invoiceIDs []string) (*DeleteInvoicesResult, error)

	// Export writes every stored record in the requested format.
	Export(ctx context.Context, w io.Writer, format export.Format) error

	Count(ctx context.Context) (int, error)
}

type invoiceService struct {
	store   storage.Storage
	docs    repository.DocumentRepository
	records repository.RecordRepository
}

func NewInvoiceService(store storage.Storage, docs repository.DocumentRepository, records repository.RecordRepository) InvoiceService {
	return &invoiceService{store: store, docs: docs, records: records}
}

func (s *invoiceService) List(ctx context.Context, limit, offset int) (*InvoiceListResult, error) {
	limit, offset = normalizePage(limit, offset)
	res, err := s.records.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &InvoiceListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *invoiceService) Delete(ctx context.Context, invoiceIDs []string) (*DeleteInvoicesResult, error) {
	ids := normalizeIDs(invoiceIDs)
	if len(ids) == 0 {
		return nil, ErrNoInvoiceIDs
	}

	removed, err := s.records.DeleteByInvoiceIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byInvoice := make(map[string]*DeletedInvoice)
	var docIDs []string
	seenDoc := make(map[string]bool)
	for _, rec := range removed {
		if rec.InvoiceID == nil {
			continue
		}
		d, ok := byInvoice[*rec.InvoiceID]
		if !ok {
			d = &DeletedInvoice{InvoiceID: *rec.InvoiceID, DocumentIDs: []string{}, DeletedFiles: []string{}}
			byInvoice[*rec.InvoiceID] = d
		}
		d.RecordsDeleted++
		if !slices.Contains(d.DocumentIDs, rec.DocumentID) {
			d.DocumentIDs = append(d.DocumentIDs, rec.DocumentID)
		}
		if !seenDoc[rec.DocumentID] {
			seenDoc[rec.DocumentID] = true
			docIDs = append(docIDs, rec.DocumentID)
		}
	}

	res := &DeleteInvoicesResult{DeletedInvoices: []DeletedInvoice{}, NotFoundInvoices: []string{}}
	for _, id := range ids {
		if _, ok := byInvoice[id]; !ok {
			res.NotFoundInvoices = append(res.NotFoundInvoices, id)
		}
	}
	if len(byInvoice) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvoicesNotFound, strings.Join(ids, ", "))
	}

	// Records are gone at this point; cleanup failures are reported, not returned.
	emptied, err := s.docs.DeleteIfEmpty(ctx, docIDs)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("remove empty documents: %v", err))
	}
	files := make(map[string]string, len(emptied))
	for _, doc := range emptied {
		files[doc.ID] = doc.Filename
		if err := s.store.Delete(ctx, doc.StoragePath); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: delete file: %v", doc.Filename, err))
		}
	}

	for _, id := range ids {
		d, ok := byInvoice[id]
		if !ok {
			continue
		}
		for _, docID := range d.DocumentIDs {
			if name, gone := files[docID]; gone {
				d.DeletedFiles = append(d.DeletedFiles, name)
			}
		}
		res.DeletedInvoices = append(res.DeletedInvoices, *d)
	}
	res.TotalDeleted = len(res.DeletedInvoices)
	res.Message = fmt.Sprintf("Successfully deleted %d invoice(s)", res.TotalDeleted)

	remaining, err := s.records.Count(ctx)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("count remaining records: %v", err))
	}
	res.RemainingRecords = remaining
	return res, nil
}

func (s *invoiceService) Export(ctx context.Context, w io.Writer, format export.Format) error {
	if format != export.FormatCSV && format != export.FormatXLSX {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	recs, err := s.records.All(ctx)
	if err != nil {
		return err
	}
	return export.Write(w, format, recs)
}

func (s *invoiceService) Count(ctx context.Context) (int, error) {
	return s.records.Count(ctx)
}

// normalizeIDs trims, drops blanks and removes duplicates, keeping first-seen order.
func normalizeIDs(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, id := range in {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
