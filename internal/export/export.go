// Package export writes invoice records as CSV or XLSX in the fixed column order.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"invoiceapi/internal/model"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

const sheetName = "Invoices"

// ParseFormat accepts "csv" or "xlsx" in any case; empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

func (f Format) Extension() string {
	return "." + string(f)
}

func Write(w io.Writer, f Format, recs []model.InvoiceRecord) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, recs)
	case FormatXLSX:
		return WriteXLSX(w, recs)
	default:
		return fmt.Errorf("unsupported export format %q", f)
	}
}

// WriteCSV writes a header row and one row per record. Nulls are empty fields.
func WriteCSV(w io.Writer, recs []model.InvoiceRecord) error {
	return writeCSV(w, recs, true)
}

// AppendCSVFile appends records to the CSV file at path, creating it when
// missing. The header is written only into an empty file.
func AppendCSVFile(path string, recs []model.InvoiceRecord) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	return writeCSV(f, recs, info.Size() == 0)
}

func writeCSV(w io.Writer, recs []model.InvoiceRecord, header bool) error {
	cw := csv.NewWriter(w)
	if header {
		if err := cw.Write(model.Columns); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
	}
	for _, r := range recs {
		if err := cw.Write(r.Strings()); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a single "Invoices" sheet. Amounts are numeric cells and
// nulls are left blank.
func WriteXLSX(w io.Writer, recs []model.InvoiceRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	for i, h := range model.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return fmt.Errorf("write xlsx header: %w", err)
		}
	}

	for r, rec := range recs {
		for c, v := range rec.Cells() {
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return fmt.Errorf("write xlsx row %d: %w", r+1, err)
			}
		}
	}

	_ = f.SetColWidth(sheetName, "A", "I", 16)
	_ = f.SetColWidth(sheetName, "J", "J", 32)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
