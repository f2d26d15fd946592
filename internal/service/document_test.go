package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"invoiceapi/internal/extract"
	"invoiceapi/internal/model"
	"invoiceapi/internal/repository"
	repoMocks "invoiceapi/internal/repository/mocks"
	"invoiceapi/internal/storage"
	storeMocks "invoiceapi/internal/storage/mocks"
)

type fakeProcessor struct {
	res         extract.Result
	calls       int
	hadDeadline bool
}

func (f *fakeProcessor) Process(ctx context.Context, src extract.Source) extract.Result {
	f.calls++
	_, f.hadDeadline = ctx.Deadline()
	res := f.res
	res.DocumentID = src.ID
	res.Name = src.Name
	return res
}

func validRecord() model.InvoiceRecord {
	id := "INV-1"
	return model.InvoiceRecord{InvoiceID: &id, CustomerLocation: "Dubai", Product: "Widget"}
}

func TestDocumentService_Upload(t *testing.T) {
	ctx := context.Background()
	hello := model.ContentHash([]byte("hello"))

	tests := []struct {
		name             string
		originalFilename string
		contentType      string
		size             int64
		maxBytes         int64
		proc             *fakeProcessor
		setupMocks       func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) io.Reader
		wantErr          error
		wantErrMsg       string
		check            func(t *testing.T, res *UploadResult, proc *fakeProcessor)
	}{
		{
			name:             "happy path",
			originalFilename: "Invoice.PDF",
			contentType:      "application/pdf",
			size:             5,
			proc:             &fakeProcessor{res: extract.Result{Records: []model.InvoiceRecord{validRecord()}, Method: extract.MethodStream}},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) io.Reader {
				mRepo.On("FindByHash", ctx, hello).Return(nil, sql.ErrNoRows)
				mStore.On("Put", ctx, mock.MatchedBy(func(key string) bool {
					return strings.HasPrefix(key, "invoices/") && strings.HasSuffix(key, ".pdf")
				}), mock.Anything, storage.PutObjectOptions{
					Size:        5,
					ContentType: "application/pdf",
					Metadata:    map[string]string{"original-filename": "Invoice.PDF", "content-hash": hello},
				}).Return(storage.ObjectInfo{Key: "invoices/uuid.pdf", Size: 5}, nil)
				mRepo.On("Create", ctx, mock.MatchedBy(func(doc *model.Document) bool {
					return doc.Filename == "Invoice.PDF" && doc.StoragePath == "invoices/uuid.pdf" &&
						doc.ContentHash == hello && doc.Method == "stream"
				}), []model.InvoiceRecord{validRecord()}).Return(&model.Document{ID: "gen-id", RecordCount: 1}, nil)
				return strings.NewReader("hello")
			},
			check: func(t *testing.T, res *UploadResult, proc *fakeProcessor) {
				assert.False(t, res.Duplicate)
				assert.Equal(t, "gen-id", res.Document.ID)
				assert.Equal(t, extract.MethodStream, res.Method)
				assert.Len(t, res.Records, 1)
				assert.True(t, proc.hadDeadline)
			},
		},
		{
			name:             "validation error - nil reader",
			originalFilename: "a.pdf",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) io.Reader {
				return nil
			},
			wantErr: ErrReaderNil,
		},
		{
			name:             "declared size over limit",
			originalFilename: "a.pdf",
			size:             5,
			maxBytes:         4,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) io.Reader {
				return strings.NewReader("hello")
			},
			wantErr: ErrTooLarge,
		},
		{
			name:             "body over limit with unknown size",
			originalFilename: "a.pdf",
			size:             -1,
			maxBytes:         4,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) io.Reader {
				return strings.NewReader("hello")
			},
			wantErr: ErrTooLarge,
		},
		{
			name:             "duplicate content is not processed again",
			originalFilename: "a.pdf",
			size:             5,
			proc:             &fakeProcessor{},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) io.Reader {
				mRepo.On("FindByHash", ctx, hello).Return(&model.Document{ID: "old", Method: "pattern"}, nil)
				return strings.NewReader("hello")
			},
			check: func(t *testing.T, res *UploadResult, proc *fakeProcessor) {
				assert.True(t, res.Duplicate)
				assert.Equal(t, "old", res.Document.ID)
				assert.Equal(t, extract.MethodPattern, res.Method)
				assert.Zero(t, proc.calls)
			},
		},
		{
			name:             "hash lookup error",
			originalFilename: "a.pdf",
			size:             5,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) io.Reader {
				mRepo.On("FindByHash", ctx, hello).Return(nil, errors.New("db down"))
				return strings.NewReader("hello")
			},
			wantErrMsg: "lookup content hash: db down",
		},
		{
			name:             "unreadable document without records",
			originalFilename: "a.pdf",
			size:             5,
			proc: &fakeProcessor{res: extract.Result{
				Err: &extract.DocumentReadError{Source: "a.pdf", Err: errors.New("malformed")},
			}},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) io.Reader {
				mRepo.On("FindByHash", ctx, hello).Return(nil, sql.ErrNoRows)
				return strings.NewReader("hello")
			},
			wantErr: ErrUnreadable,
		},
		{
			name:             "unreadable document keeps its sentinel record",
			originalFilename: "a.pdf",
			size:             5,
			proc: &fakeProcessor{res: extract.Result{
				Records: extract.Assemble(model.HeaderFields{CustomerLocation: extract.UnknownLocation}, nil),
				Method:  extract.MethodNone,
				Err:     &extract.DocumentReadError{Source: "a.pdf", Err: errors.New("malformed")},
			}},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) io.Reader {
				mRepo.On("FindByHash", ctx, hello).Return(nil, sql.ErrNoRows)
				mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
					Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
						return storage.ObjectInfo{Key: key}
					}, nil)
				mRepo.On("Create", ctx, mock.MatchedBy(func(doc *model.Document) bool {
					return doc.Method == "none"
				}), mock.MatchedBy(func(recs []model.InvoiceRecord) bool {
					return len(recs) == 1 && recs[0].Product == extract.SentinelProduct
				})).Return(&model.Document{ID: "gen-id", Method: "none", RecordCount: 1}, nil)
				return strings.NewReader("hello")
			},
			check: func(t *testing.T, res *UploadResult, proc *fakeProcessor) {
				var readErr *extract.DocumentReadError
				assert.ErrorAs(t, res.ReadError, &readErr)
				assert.Equal(t, extract.MethodNone, res.Method)
				require.Len(t, res.Records, 1)
				assert.Equal(t, "none", res.Document.Method)
			},
		},
		{
			name:             "timed out document is not stored",
			originalFilename: "a.pdf",
			size:             5,
			proc: &fakeProcessor{res: extract.Result{
				Records: extract.Assemble(model.HeaderFields{CustomerLocation: extract.UnknownLocation}, nil),
				Err:     &extract.DocumentReadError{Source: "a.pdf", Err: context.DeadlineExceeded},
			}},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) io.Reader {
				mRepo.On("FindByHash", ctx, hello).Return(nil, sql.ErrNoRows)
				return strings.NewReader("hello")
			},
			wantErr: ErrUnreadable,
		},
		{
			name:             "record failing schema is rejected",
			originalFilename: "a.pdf",
			size:             5,
			proc:             &fakeProcessor{res: extract.Result{Records: []model.InvoiceRecord{{Product: "Widget"}}}},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) io.Reader {
				mRepo.On("FindByHash", ctx, hello).Return(nil, sql.ErrNoRows)
				return strings.NewReader("hello")
			},
			wantErr: ErrInvalidRecord,
		},
		{
			name:             "storage error",
			originalFilename: "a.pdf",
			size:             5,
			proc:             &fakeProcessor{res: extract.Result{Records: []model.InvoiceRecord{validRecord()}}},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) io.Reader {
				mRepo.On("FindByHash", ctx, hello).Return(nil, sql.ErrNoRows)
				mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{}, errors.New("storage fail"))
				return strings.NewReader("hello")
			},
			wantErrMsg: "upload to storage: storage fail",
		},
		{
			name:             "repository error with successful rollback",
			originalFilename: "a.pdf",
			size:             5,
			proc:             &fakeProcessor{res: extract.Result{Records: []model.InvoiceRecord{validRecord()}}},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) io.Reader {
				mRepo.On("FindByHash", ctx, hello).Return(nil, sql.ErrNoRows)
				mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
					Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
						return storage.ObjectInfo{Key: key}
					}, nil)
				mRepo.On("Create", ctx, mock.Anything, mock.Anything).Return(nil, errors.New("db fail"))
				mStore.On("Delete", ctx, mock.Anything).Return(nil)
				return strings.NewReader("hello")
			},
			wantErrMsg: "db save failed: db fail",
		},
		{
			name:             "repository error with failed rollback",
			originalFilename: "a.pdf",
			size:             5,
			proc:             &fakeProcessor{res: extract.Result{Records: []model.InvoiceRecord{validRecord()}}},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) io.Reader {
				mRepo.On("FindByHash", ctx, hello).Return(nil, sql.ErrNoRows)
				mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
					Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
						return storage.ObjectInfo{Key: key}
					}, nil)
				mRepo.On("Create", ctx, mock.Anything, mock.Anything).Return(nil, errors.New("db fail"))
				mStore.On("Delete", ctx, mock.Anything).Return(errors.New("delete fail"))
				return strings.NewReader("hello")
			},
			wantErrMsg: "rollback delete failed: delete fail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			mRepo := new(repoMocks.MockDocumentRepository)
			proc := tt.proc
			if proc == nil {
				proc = &fakeProcessor{}
			}
			svc := NewDocumentService(mStore, mRepo, proc, DocumentOptions{MaxBytes: tt.maxBytes, Timeout: time.Second})

			r := tt.setupMocks(mStore, mRepo)

			res, err := svc.Upload(ctx, r, tt.originalFilename, tt.contentType, tt.size)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else if tt.wantErrMsg != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrMsg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, res)
				if tt.check != nil {
					tt.check(t, res, proc)
				}
			}

			mStore.AssertExpectations(t)
			mRepo.AssertExpectations(t)
		})
	}
}

func TestDocumentService_List(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		limit      int
		offset     int
		setupMocks func(mRepo *repoMocks.MockDocumentRepository)
		wantErr    error
		checkRes   func(t *testing.T, res *DocumentListResult)
	}{
		{
			name:   "happy path",
			limit:  10,
			offset: 0,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("List", ctx, repository.PageQuery{Limit: 10, Offset: 0}).
					Return(&repository.PageResult[model.Document]{
						Items: []model.Document{{ID: "1"}, {ID: "2"}},
						Total: 2,
					}, nil)
			},
			checkRes: func(t *testing.T, res *DocumentListResult) {
				assert.Equal(t, 2, len(res.Items))
				assert.Equal(t, 2, res.Total)
			},
		},
		{
			name:   "pagination boundary - zero limit uses default",
			limit:  0,
			offset: -1,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("List", ctx, repository.PageQuery{Limit: 10, Offset: 0}).
					Return(&repository.PageResult[model.Document]{Items: []model.Document{}, Total: 0}, nil)
			},
		},
		{
			name:  "pagination boundary - limit clamped",
			limit: 1000,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("List", ctx, repository.PageQuery{Limit: 100, Offset: 0}).
					Return(&repository.PageResult[model.Document]{Items: []model.Document{}, Total: 0}, nil)
			},
		},
		{
			name:  "repository error",
			limit: 10,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("List", ctx, mock.Anything).Return(nil, errors.New("db fail"))
			},
			wantErr: errors.New("db fail"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockDocumentRepository)
			svc := NewDocumentService(nil, mRepo, nil, DocumentOptions{})

			tt.setupMocks(mRepo)

			res, err := svc.List(ctx, tt.limit, tt.offset)

			if tt.wantErr != nil {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				if tt.checkRes != nil {
					tt.checkRes(t, res)
				}
			}
			mRepo.AssertExpectations(t)
		})
	}
}

func TestDocumentService_Get(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		id         string
		setupMocks func(mRepo *repoMocks.MockDocumentRepository)
		wantErr    error
	}{
		{
			name: "happy path",
			id:   "valid-id",
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, "valid-id").Return(&model.Document{ID: "valid-id"}, nil)
			},
		},
		{
			name:       "validation - empty id",
			id:         "",
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {},
			wantErr:    ErrIDRequired,
		},
		{
			name: "not found - mapping sql.ErrNoRows",
			id:   "missing-id",
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, "missing-id").Return(nil, sql.ErrNoRows)
			},
			wantErr: ErrNotFound,
		},
		{
			name: "generic repository error",
			id:   "error-id",
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, "error-id").Return(nil, errors.New("db fail"))
			},
			wantErr: errors.New("db fail"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockDocumentRepository)
			svc := NewDocumentService(nil, mRepo, nil, DocumentOptions{})

			tt.setupMocks(mRepo)

			doc, err := svc.Get(ctx, tt.id)

			if tt.wantErr != nil {
				if errors.Is(tt.wantErr, ErrIDRequired) || errors.Is(tt.wantErr, ErrNotFound) {
					assert.ErrorIs(t, err, tt.wantErr)
				} else {
					assert.Error(t, err)
				}
				assert.Nil(t, doc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, doc)
				assert.Equal(t, tt.id, doc.ID)
			}
			mRepo.AssertExpectations(t)
		})
	}
}

func TestDocumentService_Delete(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		id         string
		setupMocks func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository)
		wantErr    error
	}{
		{
			name: "happy path",
			id:   "valid-id",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, "valid-id").Return(&model.Document{ID: "valid-id", StoragePath: "invoices/valid-id.pdf"}, nil)
				mStore.On("Delete", ctx, "invoices/valid-id.pdf").Return(nil)
				mRepo.On("Delete", ctx, "valid-id").Return(nil)
			},
		},
		{
			name:       "validation - empty id",
			id:         "",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {},
			wantErr:    ErrIDRequired,
		},
		{
			name: "not found",
			id:   "missing-id",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, "missing-id").Return(nil, sql.ErrNoRows)
			},
			wantErr: ErrNotFound,
		},
		{
			name: "storage delete error",
			id:   "storage-fail-id",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, "storage-fail-id").Return(&model.Document{ID: "id", StoragePath: "path"}, nil)
				mStore.On("Delete", ctx, "path").Return(errors.New("storage fail"))
			},
			wantErr: errors.New("delete storage: storage fail"),
		},
		{
			name: "repository delete error",
			id:   "repo-fail-id",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, "repo-fail-id").Return(&model.Document{ID: "id", StoragePath: "path"}, nil)
				mStore.On("Delete", ctx, "path").Return(nil)
				mRepo.On("Delete", ctx, "repo-fail-id").Return(errors.New("db fail"))
			},
			wantErr: errors.New("db fail"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			mRepo := new(repoMocks.MockDocumentRepository)
			svc := NewDocumentService(mStore, mRepo, nil, DocumentOptions{})

			tt.setupMocks(mStore, mRepo)

			err := svc.Delete(ctx, tt.id)

			if tt.wantErr != nil {
				if errors.Is(tt.wantErr, ErrIDRequired) || errors.Is(tt.wantErr, ErrNotFound) {
					assert.ErrorIs(t, err, tt.wantErr)
				} else {
					assert.Error(t, err)
					assert.Contains(t, err.Error(), tt.wantErr.Error())
				}
			} else {
				assert.NoError(t, err)
			}
			mStore.AssertExpectations(t)
			mRepo.AssertExpectations(t)
		})
	}
}

func TestDocumentService_DownloadURL(t *testing.T) {
	ctx := context.Background()

	t.Run("presigns with the original filename", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(mStore, mRepo, nil, DocumentOptions{})

		mRepo.On("FindByID", ctx, "id-1").Return(&model.Document{ID: "id-1", Filename: "inv.pdf", StoragePath: "invoices/id-1.pdf"}, nil)
		mStore.On("PresignGet", ctx, "invoices/id-1.pdf", "inv.pdf", 15*time.Minute).Return("http://signed", nil)

		u, err := svc.DownloadURL(ctx, "id-1")
		require.NoError(t, err)
		assert.Equal(t, "http://signed", u)
		mStore.AssertExpectations(t)
	})

	t.Run("presign error is wrapped", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(mStore, mRepo, nil, DocumentOptions{URLExpiry: time.Minute})

		mRepo.On("FindByID", ctx, "id-1").Return(&model.Document{ID: "id-1", StoragePath: "k"}, nil)
		mStore.On("PresignGet", ctx, "k", "", time.Minute).Return("", errors.New("boom"))

		_, err := svc.DownloadURL(ctx, "id-1")
		assert.EqualError(t, err, "presign: boom")
	})
}
