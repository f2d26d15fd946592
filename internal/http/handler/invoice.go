package handler

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"invoiceapi/internal/export"
	"invoiceapi/internal/service"
)

type processedFile struct {
	Filename     string `json:"filename"`
	DocumentID   string `json:"document_id"`
	RecordsAdded int    `json:"records_added"`
	Method       string `json:"method"`
}

type skippedFile struct {
	Filename   string `json:"filename"`
	Reason     string `json:"reason"`
	DocumentID string `json:"document_id,omitempty"`
}

type uploadInvoicesResponse struct {
	Message         string          `json:"message"`
	ProcessedFiles  []processedFile `json:"processed_files"`
	SkippedFiles    []skippedFile   `json:"skipped_files"`
	TotalNewRecords int             `json:"total_new_records"`
	TotalRecords    int             `json:"total_records"`
	Errors          []string        `json:"errors"`
}

type deleteInvoicesRequest struct {
	InvoiceIDs []string `json:"invoice_ids"`
}

// UploadInvoices processes every PDF in the "files" field. Per-file failures are
// reported in the response and do not stop the remaining files.
//
//	@Summary	Upload invoice PDFs
//	@Tags		invoices
//	@Accept		multipart/form-data
//	@Produce	json
//	@Param		files	formData	file	true	"one or more invoice PDFs"
//	@Success	200		{object}	uploadInvoicesResponse
//	@Failure	400		{object}	errorPayload
//	@Router		/invoices [post]
func UploadInvoices(docSvc service.DocumentService, invSvc service.InvoiceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		form, err := c.MultipartForm()
		if err != nil || len(form.File["files"]) == 0 {
			return writeError(c, fiber.StatusBadRequest, "FILES_REQUIRED", "at least one file is required")
		}

		ctx := c.UserContext()
		res := uploadInvoicesResponse{ProcessedFiles: []processedFile{}, SkippedFiles: []skippedFile{}}
		for _, fh := range form.File["files"] {
			if !strings.EqualFold(filepath.Ext(fh.Filename), ".pdf") {
				res.Errors = append(res.Errors, fmt.Sprintf("%s: Only PDF files are allowed", fh.Filename))
				continue
			}
			f, err := fh.Open()
			if err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("%s: cannot open uploaded file", fh.Filename))
				continue
			}
			up, err := docSvc.Upload(ctx, f, fh.Filename, contentType(fh.Header.Get("Content-Type")), fh.Size)
			f.Close()
			if err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("%s: %s", fh.Filename, uploadErrorMessage(c, err)))
				continue
			}
			if up.Duplicate {
				res.SkippedFiles = append(res.SkippedFiles, skippedFile{
					Filename:   fh.Filename,
					Reason:     "already processed",
					DocumentID: up.Document.ID,
				})
				continue
			}
			res.ProcessedFiles = append(res.ProcessedFiles, processedFile{
				Filename:     fh.Filename,
				DocumentID:   up.Document.ID,
				RecordsAdded: len(up.Records),
				Method:       string(up.Method),
			})
			res.TotalNewRecords += len(up.Records)
			if up.ReadError != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("%s: document could not be read", fh.Filename))
			}
		}

		total, err := invSvc.Count(ctx)
		if err != nil {
			return internalError(c, "count records", err)
		}
		res.TotalRecords = total
		res.Message = fmt.Sprintf("Upload completed. Processed %d new/changed files", len(res.ProcessedFiles))
		return c.JSON(res)
	}
}

func uploadErrorMessage(c *fiber.Ctx, err error) string {
	if _, _, msg, ok := uploadFailure(err); ok {
		return msg
	}
	log.Error().Err(err).Str("request_id", requestIDFromCtx(c)).Msg("invoice upload failed")
	return "internal error"
}

// ListInvoices returns stored invoice records.
//
//	@Summary	List invoice records
//	@Tags		invoices
//	@Produce	json
//	@Param		limit	query		int	false	"page size"	default(10)
//	@Param		offset	query		int	false	"offset"	default(0)
//	@Success	200		{object}	service.InvoiceListResult
//	@Failure	400		{object}	errorPayload
//	@Router		/invoices [get]
func ListInvoices(invSvc service.InvoiceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, rerr := pagination(c)
		if rerr != nil {
			return badRequest(c, rerr)
		}
		res, err := invSvc.List(c.UserContext(), limit, offset)
		if err != nil {
			return internalError(c, "list invoices", err)
		}
		return c.JSON(res)
	}
}

// DeleteInvoices removes every record of the given invoice IDs.
//
//	@Summary	Delete invoices
//	@Tags		invoices
//	@Accept		json
//	@Produce	json
//	@Param		body	body		deleteInvoicesRequest	true	"invoice ids"
//	@Success	200		{object}	service.DeleteInvoicesResult
//	@Failure	400		{object}	errorPayload
//	@Failure	404		{object}	errorPayload
//	@Router		/invoices [delete]
func DeleteInvoices(invSvc service.InvoiceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req deleteInvoicesRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		res, err := invSvc.Delete(c.UserContext(), req.InvoiceIDs)
		switch {
		case errors.Is(err, service.ErrNoInvoiceIDs):
			return writeError(c, fiber.StatusBadRequest, "INVOICE_IDS_REQUIRED", "no invoice IDs provided")
		case errors.Is(err, service.ErrInvoicesNotFound):
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "no matching invoices found")
		case err != nil:
			return internalError(c, "delete invoices", err)
		}
		return c.JSON(res)
	}
}

// ExportInvoices streams every record as CSV or XLSX.
//
//	@Summary	Export invoice records
//	@Tags		invoices
//	@Produce	text/csv
//	@Produce	application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
//	@Param		format	query	string	false	"csv or xlsx"	default(csv)
//	@Success	200
//	@Failure	400	{object}	errorPayload
//	@Router		/invoices/export [get]
func ExportInvoices(invSvc service.InvoiceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		format, err := export.ParseFormat(c.Query("format"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_FORMAT", "format must be csv or xlsx")
		}
		var buf bytes.Buffer
		if err := invSvc.Export(c.UserContext(), &buf, format); err != nil {
			return internalError(c, "export invoices", err)
		}
		c.Attachment("invoice_data" + format.Extension())
		c.Set(fiber.HeaderContentType, format.ContentType())
		return c.Send(buf.Bytes())
	}
}
