package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"invoiceapi/internal/export"
	"invoiceapi/internal/extract"
	"invoiceapi/internal/model"
	"invoiceapi/internal/service"
	serviceMocks "invoiceapi/internal/service/mocks"
)

func multipartFiles(t *testing.T, names ...string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, n := range names {
		part, err := writer.CreateFormFile("files", n)
		require.NoError(t, err)
		part.Write([]byte("content of " + n))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestUploadInvoices(t *testing.T) {
	t.Run("mixed batch", func(t *testing.T) {
		docSvc := new(serviceMocks.MockDocumentService)
		invSvc := new(serviceMocks.MockInvoiceService)
		app := fiber.New()
		app.Post("/invoices", UploadInvoices(docSvc, invSvc))

		docSvc.On("Upload", mock.Anything, mock.Anything, "new.pdf", mock.Anything, mock.Anything).
			Return(&service.UploadResult{
				Document: &model.Document{ID: "doc-new"},
				Records:  []model.InvoiceRecord{{Product: "A"}, {Product: "B"}},
				Method:   extract.MethodStructured,
			}, nil)
		docSvc.On("Upload", mock.Anything, mock.Anything, "seen.PDF", mock.Anything, mock.Anything).
			Return(&service.UploadResult{Document: &model.Document{ID: "doc-old"}, Duplicate: true}, nil)
		docSvc.On("Upload", mock.Anything, mock.Anything, "broken.pdf", mock.Anything, mock.Anything).
			Return(nil, service.ErrUnreadable)
		invSvc.On("Count", mock.Anything).Return(12, nil)

		body, ct := multipartFiles(t, "new.pdf", "notes.txt", "seen.PDF", "broken.pdf")
		req := httptest.NewRequest(http.MethodPost, "/invoices", body)
		req.Header.Set("Content-Type", ct)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var res uploadInvoicesResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
		assert.Equal(t, "Upload completed. Processed 1 new/changed files", res.Message)
		assert.Equal(t, []processedFile{{Filename: "new.pdf", DocumentID: "doc-new", RecordsAdded: 2, Method: "structured"}}, res.ProcessedFiles)
		assert.Equal(t, []skippedFile{{Filename: "seen.PDF", Reason: "already processed", DocumentID: "doc-old"}}, res.SkippedFiles)
		assert.Equal(t, 2, res.TotalNewRecords)
		assert.Equal(t, 12, res.TotalRecords)
		assert.Equal(t, []string{
			"notes.txt: Only PDF files are allowed",
			"broken.pdf: document could not be read",
		}, res.Errors)
		docSvc.AssertExpectations(t)
	})

	t.Run("errors is null when every file succeeds", func(t *testing.T) {
		docSvc := new(serviceMocks.MockDocumentService)
		invSvc := new(serviceMocks.MockInvoiceService)
		app := fiber.New()
		app.Post("/invoices", UploadInvoices(docSvc, invSvc))

		docSvc.On("Upload", mock.Anything, mock.Anything, "a.pdf", mock.Anything, mock.Anything).
			Return(&service.UploadResult{Document: &model.Document{ID: "d"}, Records: []model.InvoiceRecord{{}}}, nil)
		invSvc.On("Count", mock.Anything).Return(1, nil)

		body, ct := multipartFiles(t, "a.pdf")
		req := httptest.NewRequest(http.MethodPost, "/invoices", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		raw, _ := io.ReadAll(resp.Body)
		assert.Contains(t, string(raw), `"errors":null`)
	})

	t.Run("unreadable file keeps its sentinel record", func(t *testing.T) {
		docSvc := new(serviceMocks.MockDocumentService)
		invSvc := new(serviceMocks.MockInvoiceService)
		app := fiber.New()
		app.Post("/invoices", UploadInvoices(docSvc, invSvc))

		docSvc.On("Upload", mock.Anything, mock.Anything, "scan.pdf", mock.Anything, mock.Anything).
			Return(&service.UploadResult{
				Document:  &model.Document{ID: "doc-scan", Method: "none"},
				Records:   []model.InvoiceRecord{{Product: extract.SentinelProduct}},
				Method:    extract.MethodNone,
				ReadError: errors.New("malformed xref"),
			}, nil)
		invSvc.On("Count", mock.Anything).Return(3, nil)

		body, ct := multipartFiles(t, "scan.pdf")
		req := httptest.NewRequest(http.MethodPost, "/invoices", body)
		req.Header.Set("Content-Type", ct)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var res uploadInvoicesResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
		assert.Equal(t, []processedFile{{Filename: "scan.pdf", DocumentID: "doc-scan", RecordsAdded: 1, Method: "none"}}, res.ProcessedFiles)
		assert.Equal(t, 1, res.TotalNewRecords)
		assert.Equal(t, []string{"scan.pdf: document could not be read"}, res.Errors)
	})

	t.Run("no files", func(t *testing.T) {
		app := fiber.New()
		app.Post("/invoices", UploadInvoices(new(serviceMocks.MockDocumentService), new(serviceMocks.MockInvoiceService)))

		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/invoices", nil))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "FILES_REQUIRED", res.Error.Code)
	})
}

func TestListInvoices(t *testing.T) {
	invSvc := new(serviceMocks.MockInvoiceService)
	app := fiber.New()
	app.Get("/invoices", ListInvoices(invSvc))

	t.Run("success", func(t *testing.T) {
		invSvc.On("List", mock.Anything, 5, 10).Return(&service.InvoiceListResult{
			Items: []model.StoredRecord{{DocumentID: "d", LineNo: 1}},
			Total: 11,
		}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/invoices?limit=5&offset=10", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var res service.InvoiceListResult
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, 11, res.Total)
		assert.Len(t, res.Items, 1)
	})

	t.Run("invalid offset", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/invoices?offset=x", nil))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "INVALID_OFFSET", res.Error.Code)
	})
	invSvc.AssertExpectations(t)
}

func TestDeleteInvoices(t *testing.T) {
	newRequest := func(body string) *http.Request {
		req := httptest.NewRequest(http.MethodDelete, "/invoices", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return req
	}

	tests := []struct {
		name       string
		body       string
		result     *service.DeleteInvoicesResult
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name: "success",
			body: `{"invoice_ids":["INV-1"]}`,
			result: &service.DeleteInvoicesResult{
				Message:          "Successfully deleted 1 invoice(s)",
				DeletedInvoices:  []service.DeletedInvoice{{InvoiceID: "INV-1", RecordsDeleted: 2}},
				NotFoundInvoices: []string{},
				TotalDeleted:     1,
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "no ids",
			body:       `{"invoice_ids":[]}`,
			err:        service.ErrNoInvoiceIDs,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVOICE_IDS_REQUIRED",
		},
		{
			name:       "nothing found",
			body:       `{"invoice_ids":["nope"]}`,
			err:        service.ErrInvoicesNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:       "service error",
			body:       `{"invoice_ids":["INV-1"]}`,
			err:        errors.New("db down"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			invSvc := new(serviceMocks.MockInvoiceService)
			app := fiber.New()
			app.Delete("/invoices", DeleteInvoices(invSvc))

			if tt.result != nil {
				invSvc.On("Delete", mock.Anything, mock.Anything).Return(tt.result, nil)
			} else {
				invSvc.On("Delete", mock.Anything, mock.Anything).Return(nil, tt.err)
			}

			resp, err := app.Test(newRequest(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantCode != "" {
				var res errorPayload
				json.NewDecoder(resp.Body).Decode(&res)
				assert.Equal(t, tt.wantCode, res.Error.Code)
			} else {
				var res service.DeleteInvoicesResult
				json.NewDecoder(resp.Body).Decode(&res)
				assert.Equal(t, 1, res.TotalDeleted)
			}
			invSvc.AssertExpectations(t)
		})
	}

	t.Run("malformed body", func(t *testing.T) {
		app := fiber.New()
		app.Delete("/invoices", DeleteInvoices(new(serviceMocks.MockInvoiceService)))

		resp, _ := app.Test(newRequest(`{"invoice_ids":`))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestExportInvoices(t *testing.T) {
	t.Run("csv by default", func(t *testing.T) {
		invSvc := new(serviceMocks.MockInvoiceService)
		app := fiber.New()
		app.Get("/invoices/export", ExportInvoices(invSvc))
		invSvc.On("Export", mock.Anything, mock.Anything, export.FormatCSV).Return("invoice_id\nINV-1\n", nil)

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/invoices/export", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
		assert.Contains(t, resp.Header.Get("Content-Disposition"), "invoice_data.csv")
		raw, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "invoice_id\nINV-1\n", string(raw))
	})

	t.Run("xlsx", func(t *testing.T) {
		invSvc := new(serviceMocks.MockInvoiceService)
		app := fiber.New()
		app.Get("/invoices/export", ExportInvoices(invSvc))
		invSvc.On("Export", mock.Anything, mock.Anything, export.FormatXLSX).Return("PK", nil)

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/invoices/export?format=xlsx", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, export.FormatXLSX.ContentType(), resp.Header.Get("Content-Type"))
	})

	t.Run("unknown format", func(t *testing.T) {
		app := fiber.New()
		app.Get("/invoices/export", ExportInvoices(new(serviceMocks.MockInvoiceService)))

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/invoices/export?format=pdf", nil))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "INVALID_FORMAT", res.Error.Code)
	})

	t.Run("service error", func(t *testing.T) {
		invSvc := new(serviceMocks.MockInvoiceService)
		app := fiber.New()
		app.Get("/invoices/export", ExportInvoices(invSvc))
		invSvc.On("Export", mock.Anything, mock.Anything, export.FormatCSV).Return("", errors.New("db down"))

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/invoices/export", nil))

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
}
