package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"invoiceapi/internal/extract"
	"invoiceapi/internal/model"
	"invoiceapi/internal/repository"
	"invoiceapi/internal/storage"
)

var (
	ErrIDRequired    = errors.New("id is required")
	ErrNotFound      = errors.New("document not found")
	ErrReaderNil     = errors.New("reader is nil")
	ErrTooLarge      = errors.New("document exceeds the upload size limit")
	ErrUnreadable    = errors.New("document could not be read")
	ErrInvalidRecord = errors.New("extracted record failed validation")
)

// Processor runs extraction on one document. *extract.Pipeline satisfies it.
type Processor interface {
	Process(ctx context.Context, src extract.Source) extract.Result
}

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items []model.Document `json:"data"`
	Total int              `json:"total"`
}

// UploadResult describes one accepted upload. Duplicate is set when a document
// with the same content already existed; nothing was extracted or stored then.
// ReadError is set when the file could not be read and only its sentinel
// record was stored.
type UploadResult struct {
	Document  *model.Document
	Records   []model.InvoiceRecord
	Method    extract.Method
	Duplicate bool
	ReadError error
}

// DocumentService defines the use cases for uploaded invoice documents.
type DocumentService interface {
	// Upload extracts the document, stores the file and persists the document with
	// its records. Storage is rolled back when the database save fails.
	Upload(ctx context.Context, r io.Reader, originalFilename string, contentType string, size int64) (*UploadResult, error)

	List(ctx context.Context, limit, offset int) (*DocumentListResult, error)

	Get(ctx context.Context, id string) (*model.Document, error)

	// Delete removes the stored file, then the document and its records.
	Delete(ctx context.Context, id string) error

	// DownloadURL returns a presigned link to the original file.
	DownloadURL(ctx context.Context, id string) (string, error)
}

type DocumentOptions struct {
	// MaxBytes rejects larger uploads. Zero means no limit.
	MaxBytes int64
	// Timeout bounds extraction of one document. Zero means no limit.
	Timeout time.Duration
	// URLExpiry is the lifetime of download links; 15 minutes when zero.
	URLExpiry time.Duration
}

type documentService struct {
	store storage.Storage
	repo  repository.DocumentRepository
	proc  Processor
	opts  DocumentOptions
}

func NewDocumentService(store storage.Storage, repo repository.DocumentRepository, proc Processor, opts DocumentOptions) DocumentService {
	if opts.URLExpiry <= 0 {
		opts.URLExpiry = 15 * time.Minute
	}
	return &documentService{store: store, repo: repo, proc: proc, opts: opts}
}

func (s *documentService) Upload(ctx context.Context, r io.Reader, originalFilename string, contentType string, size int64) (*UploadResult, error) {
	if r == nil {
		return nil, ErrReaderNil
	}
	if s.opts.MaxBytes > 0 && size > s.opts.MaxBytes {
		return nil, ErrTooLarge
	}

	data, err := s.read(r)
	if err != nil {
		return nil, err
	}

	hash := model.ContentHash(data)
	existing, err := s.repo.FindByHash(ctx, hash)
	switch {
	case err == nil:
		return &UploadResult{Document: existing, Method: extract.Method(existing.Method), Duplicate: true}, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("lookup content hash: %w", err)
	}

	id := uuid.New().String()
	res := s.process(ctx, extract.Source{ID: id, Name: originalFilename, Data: data})
	// An unreadable document is kept with its sentinel record so its header
	// totals are not lost. A timeout is not: the same content may read on retry.
	if res.Err != nil && (len(res.Records) == 0 || errors.Is(res.Err, context.DeadlineExceeded)) {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, res.Err)
	}
	for i, rec := range res.Records {
		if err := model.ValidateRecord(rec); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrInvalidRecord, i+1, err)
		}
	}

	key := storage.InvoiceKey(id, originalFilename)
	objInfo, err := s.store.Put(ctx, key, bytes.NewReader(data), storage.PutObjectOptions{
		Size:        int64(len(data)),
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": originalFilename,
			"content-hash":      hash,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	doc := &model.Document{
		ID:          id,
		Filename:    originalFilename,
		StoragePath: objInfo.Key,
		Size:        int64(len(data)),
		ContentType: contentType,
		ContentHash: hash,
		Method:      string(res.Method),
		CreatedAt:   time.Now().UTC(),
	}
	stored, err := s.repo.Create(ctx, doc, res.Records)
	if err != nil {
		if delErr := s.store.Delete(ctx, objInfo.Key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}

	return &UploadResult{Document: stored, Records: res.Records, Method: res.Method, ReadError: res.Err}, nil
}

func (s *documentService) read(r io.Reader) ([]byte, error) {
	if s.opts.MaxBytes > 0 {
		r = io.LimitReader(r, s.opts.MaxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if s.opts.MaxBytes > 0 && int64(len(data)) > s.opts.MaxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

func (s *documentService) process(ctx context.Context, src extract.Source) extract.Result {
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}
	return s.proc.Process(ctx, src)
}

func (s *documentService) List(ctx context.Context, limit, offset int) (*DocumentListResult, error) {
	limit, offset = normalizePage(limit, offset)
	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *documentService) Get(ctx context.Context, id string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (s *documentService) Delete(ctx context.Context, id string) error {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	// Storage first: a failed object delete keeps the row pointing at it.
	if err := s.store.Delete(ctx, doc.StoragePath); err != nil {
		return fmt.Errorf("delete storage: %w", err)
	}
	return s.repo.Delete(ctx, id)
}

func (s *documentService) DownloadURL(ctx context.Context, id string) (string, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	u, err := s.store.PresignGet(ctx, doc.StoragePath, doc.Filename, s.opts.URLExpiry)
	if err != nil {
		return "", fmt.Errorf("presign: %w", err)
	}
	return u, nil
}

// normalizePage applies the default page size of 10 and clamps to 100.
func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
