package handler

import (
	"database/sql"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"invoiceapi/internal/service"
)

type requestError struct {
	code    string
	message string
}

var (
	errInvalidLimit  = &requestError{code: "INVALID_LIMIT", message: "invalid limit"}
	errInvalidOffset = &requestError{code: "INVALID_OFFSET", message: "invalid offset"}
)

func badRequest(c *fiber.Ctx, e *requestError) error {
	return writeError(c, fiber.StatusBadRequest, e.code, e.message)
}

// pagination reads limit and offset, defaulting to 10 and 0.
func pagination(c *fiber.Ctx) (limit, offset int, rerr *requestError) {
	limit, err := strconv.Atoi(c.Query("limit", "10"))
	if err != nil {
		return 0, 0, errInvalidLimit
	}
	offset, err = strconv.Atoi(c.Query("offset", "0"))
	if err != nil {
		return 0, 0, errInvalidOffset
	}
	return limit, offset, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, service.ErrNotFound) || errors.Is(err, sql.ErrNoRows)
}

func internalError(c *fiber.Ctx, op string, err error) error {
	log.Error().Err(err).Str("request_id", requestIDFromCtx(c)).Str("op", op).Msg("request failed")
	return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

// ListDocuments returns uploaded documents, newest first.
//
//	@Summary	List uploaded documents
//	@Tags		documents
//	@Produce	json
//	@Param		limit	query		int	false	"page size"	default(10)
//	@Param		offset	query		int	false	"offset"	default(0)
//	@Success	200		{object}	service.DocumentListResult
//	@Failure	400		{object}	errorPayload
//	@Router		/documents [get]
func ListDocuments(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, rerr := pagination(c)
		if rerr != nil {
			return badRequest(c, rerr)
		}

		res, err := docSvc.List(c.UserContext(), limit, offset)
		if err != nil {
			return internalError(c, "list documents", err)
		}
		return c.JSON(res)
	}
}

// UploadDocument accepts a single PDF in the "file" field.
//
//	@Summary	Upload one invoice document
//	@Tags		documents
//	@Accept		multipart/form-data
//	@Produce	json
//	@Param		file	formData	file	true	"invoice PDF"
//	@Success	201		{object}	model.Document
//	@Success	200		{object}	model.Document	"already uploaded"
//	@Failure	400		{object}	errorPayload
//	@Failure	422		{object}	errorPayload
//	@Router		/documents [post]
func UploadDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		res, err := docSvc.Upload(c.UserContext(), f, fh.Filename, contentType(fh.Header.Get("Content-Type")), fh.Size)
		if err != nil {
			if status, code, msg, ok := uploadFailure(err); ok {
				return writeError(c, status, code, msg)
			}
			return internalError(c, "upload document", err)
		}
		if res.Duplicate {
			return c.Status(fiber.StatusOK).JSON(res.Document)
		}
		return c.Status(fiber.StatusCreated).JSON(res.Document)
	}
}

// GetDocument returns one document's metadata.
//
//	@Summary	Get a document
//	@Tags		documents
//	@Produce	json
//	@Param		id	path		string	true	"document id"
//	@Success	200	{object}	model.Document
//	@Failure	400	{object}	errorPayload
//	@Failure	404	{object}	errorPayload
//	@Router		/documents/{id} [get]
func GetDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := docSvc.Get(c.UserContext(), id)
		if err != nil {
			if isNotFound(err) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
			}
			return internalError(c, "get document", err)
		}
		return c.JSON(doc)
	}
}

// DownloadDocument returns a presigned URL for the original file.
//
//	@Summary	Presigned download link
//	@Tags		documents
//	@Produce	json
//	@Param		id	path		string	true	"document id"
//	@Success	200	{object}	map[string]string
//	@Failure	404	{object}	errorPayload
//	@Router		/documents/{id}/download [get]
func DownloadDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		u, err := docSvc.DownloadURL(c.UserContext(), id)
		if err != nil {
			if isNotFound(err) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
			}
			return internalError(c, "download document", err)
		}
		return c.JSON(fiber.Map{"url": u})
	}
}

// DeleteDocument removes the file, the document and all of its records.
//
//	@Summary	Delete a document
//	@Tags		documents
//	@Param		id	path	string	true	"document id"
//	@Success	204
//	@Failure	404	{object}	errorPayload
//	@Router		/documents/{id} [delete]
func DeleteDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := docSvc.Delete(c.UserContext(), id); err != nil {
			if isNotFound(err) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
			}
			return internalError(c, "delete document", err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func contentType(ct string) string {
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}

// uploadFailure maps client-caused upload errors to a response.
func uploadFailure(err error) (status int, code, message string, ok bool) {
	switch {
	case errors.Is(err, service.ErrTooLarge):
		return fiber.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds the upload limit", true
	case errors.Is(err, service.ErrUnreadable):
		return fiber.StatusUnprocessableEntity, "UNREADABLE_DOCUMENT", "document could not be read", true
	case errors.Is(err, service.ErrInvalidRecord):
		return fiber.StatusUnprocessableEntity, "INVALID_RECORD", "extracted data failed validation", true
	case errors.Is(err, service.ErrReaderNil):
		return fiber.StatusBadRequest, "FILE_REQUIRED", "file is required", true
	}
	return 0, "", "", false
}
