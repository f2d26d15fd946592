package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"invoiceapi/internal/database"
	"invoiceapi/internal/model"
	"invoiceapi/internal/repository"
)

// recordColumns follows model.Columns after the document reference.
var recordColumns = "document_id, line_no, " + strings.Join(model.Columns, ", ")

var insertRecord = `INSERT INTO invoice_records (` + recordColumns + `) VALUES (` + placeholders(1, len(model.Columns)+2) + `)`

const recordOrder = ` ORDER BY created_at, document_id, line_no`

// placeholders returns "$from, ..., $(from+n-1)".
func placeholders(from, n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(ps, ", ")
}

func recordArgs(r model.InvoiceRecord) []any {
	return []any{
		r.InvoiceID,
		r.InvoiceDate,
		r.CustomerName,
		r.CustomerID,
		r.CustomerLocation,
		r.CustomerType,
		r.CustomerTRN,
		r.PaymentStatus,
		r.DueDate,
		r.Product,
		r.Qty,
		r.UnitPrice,
		r.Total,
		r.AmountExclVAT,
		r.VAT,
		r.Profit,
		r.ProfitMargin,
		r.CostPrice,
		r.DaysToPayment,
	}
}

func scanRecord(s scanner) (model.StoredRecord, error) {
	var sr model.StoredRecord
	r := &sr.InvoiceRecord
	err := s.Scan(
		&sr.DocumentID,
		&sr.LineNo,
		&r.InvoiceID,
		&r.InvoiceDate,
		&r.CustomerName,
		&r.CustomerID,
		&r.CustomerLocation,
		&r.CustomerType,
		&r.CustomerTRN,
		&r.PaymentStatus,
		&r.DueDate,
		&r.Product,
		&r.Qty,
		&r.UnitPrice,
		&r.Total,
		&r.AmountExclVAT,
		&r.VAT,
		&r.Profit,
		&r.ProfitMargin,
		&r.CostPrice,
		&r.DaysToPayment,
	)
	return sr, err
}

func collectRecords(rows *sql.Rows) ([]model.StoredRecord, error) {
	defer rows.Close()
	out := make([]model.StoredRecord, 0)
	for rows.Next() {
		sr, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sr)
	}
	return out, rows.Err()
}

// RecordPostgres is a PostgreSQL implementation of repository.RecordRepository.
type RecordPostgres struct {
	db *sql.DB
}

func NewRecordPostgres(db *sql.DB) *RecordPostgres {
	return &RecordPostgres{db: db}
}

var _ repository.RecordRepository = (*RecordPostgres)(nil)

func (r *RecordPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.StoredRecord], error) {
	total, err := r.Count(ctx)
	if err != nil {
		return nil, err
	}

	q := `SELECT ` + recordColumns + ` FROM invoice_records` + recordOrder + ` LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, q, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	items, err := collectRecords(rows)
	if err != nil {
		return nil, err
	}
	return &repository.PageResult[model.StoredRecord]{Items: items, Total: total}, nil
}

func (r *RecordPostgres) All(ctx context.Context) ([]model.InvoiceRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM invoice_records`+recordOrder)
	if err != nil {
		return nil, err
	}
	stored, err := collectRecords(rows)
	if err != nil {
		return nil, err
	}
	out := make([]model.InvoiceRecord, len(stored))
	for i, sr := range stored {
		out[i] = sr.InvoiceRecord
	}
	return out, nil
}

// DeleteByInvoiceIDs deletes in one transaction so the returned rows are
// exactly the ones removed.
func (r *RecordPostgres) DeleteByInvoiceIDs(ctx context.Context, invoiceIDs []string) ([]model.StoredRecord, error) {
	if len(invoiceIDs) == 0 {
		return []model.StoredRecord{}, nil
	}
	args := make([]any, len(invoiceIDs))
	for i, id := range invoiceIDs {
		args[i] = id
	}
	q := `DELETE FROM invoice_records WHERE invoice_id IN (` + placeholders(1, len(invoiceIDs)) + `) RETURNING ` + recordColumns

	var deleted []model.StoredRecord
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, q, args...)
		if err != nil {
			return err
		}
		deleted, err = collectRecords(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("delete records: %w", err)
	}
	return deleted, nil
}

func (r *RecordPostgres) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM invoice_records`).Scan(&n)
	return n, err
}
