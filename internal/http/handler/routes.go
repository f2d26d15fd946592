package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"invoiceapi/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, db *sql.DB, docSvc service.DocumentService, invSvc service.InvoiceService) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	app.Get("/invoices", ListInvoices(invSvc))
	app.Post("/invoices", UploadInvoices(docSvc, invSvc))
	app.Delete("/invoices", DeleteInvoices(invSvc))
	app.Get("/invoices/export", ExportInvoices(invSvc))

	app.Get("/documents", ListDocuments(docSvc))
	app.Post("/documents", UploadDocument(docSvc))
	app.Get("/documents/:id", GetDocument(docSvc))
	app.Get("/documents/:id/download", DownloadDocument(docSvc))
	app.Delete("/documents/:id", DeleteDocument(docSvc))
}
