package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"invoiceapi/internal/database"
	"invoiceapi/internal/model"
	"invoiceapi/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
type DocumentPostgres struct {
	db *sql.DB
}

func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const documentColumns = `id, filename, storage_path, size, content_type, content_hash, method, record_count, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*model.Document, error) {
	var d model.Document
	if err := s.Scan(
		&d.ID,
		&d.Filename,
		&d.StoragePath,
		&d.Size,
		&d.ContentType,
		&d.ContentHash,
		&d.Method,
		&d.RecordCount,
		&d.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

// Create inserts the document row, then one invoice_records row per record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document, records []model.InvoiceRecord) (*model.Document, error) {
	const qDoc = `
		INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + documentColumns

	var out *model.Document
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, qDoc,
			doc.ID,
			doc.Filename,
			doc.StoragePath,
			doc.Size,
			doc.ContentType,
			doc.ContentHash,
			doc.Method,
			len(records),
			doc.CreatedAt,
		)
		stored, err := scanDocument(row)
		if err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
		for i, rec := range records {
			args := append([]any{stored.ID, i + 1}, recordArgs(rec)...)
			if _, err := tx.ExecContext(ctx, insertRecord, args...); err != nil {
				return fmt.Errorf("insert record %d: %w", i+1, err)
			}
		}
		out = stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// FindByHash fetches the document uploaded with the given content hash.
func (r *DocumentPostgres) FindByHash(ctx context.Context, hash string) (*model.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE content_hash = $1`
	return scanDocument(r.db.QueryRowContext(ctx, q, hash))
}

// List returns documents newest first using LIMIT/OFFSET and a total count.
func (r *DocumentPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT ` + documentColumns + `
		FROM documents
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Document]{Items: items, Total: total}, nil
}

// Delete removes a document by ID. Its records go with it (ON DELETE CASCADE).
func (r *DocumentPostgres) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	return err
}

func (r *DocumentPostgres) DeleteIfEmpty(ctx context.Context, ids []string) ([]model.Document, error) {
	if len(ids) == 0 {
		return []model.Document{}, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	q := `
		DELETE FROM documents d
		WHERE d.id IN (` + placeholders(1, len(ids)) + `)
		  AND NOT EXISTS (SELECT 1 FROM invoice_records r WHERE r.document_id = d.id)
		RETURNING ` + documentColumns
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}
