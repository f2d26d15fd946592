package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"invoiceapi/internal/document"
	"invoiceapi/internal/model"
)

// Method names the strategy that produced a document's product rows.
type Method string

const (
	MethodStructured Method = "structured"
	MethodStream     Method = "stream"
	MethodPattern    Method = "pattern"
	MethodNone       Method = "none"
)

// Strategy is one way of recovering product rows from a loaded document.
// text is the document's concatenated text.
type Strategy struct {
	Method  Method
	Extract func(doc *document.Document, text string) []model.ProductRow
}

// TableExtractor runs its strategies in order and keeps the first non-empty result.
type TableExtractor struct {
	strategies []Strategy
}

// NewTableExtractor returns the structured, stream, pattern cascade for p.
func NewTableExtractor(p Profile) *TableExtractor {
	tr := newTableReader(p)
	return NewTableExtractorWith(
		Strategy{Method: MethodStructured, Extract: tr.structured},
		Strategy{Method: MethodStream, Extract: tr.stream},
		Strategy{Method: MethodPattern, Extract: newPatternReader(p).read},
	)
}

// NewTableExtractorWith builds a cascade from explicit strategies.
func NewTableExtractorWith(strategies ...Strategy) *TableExtractor {
	return &TableExtractor{strategies: strategies}
}

// Extract returns the rows of the first strategy that finds any, with its method.
// When none does it returns no rows and MethodNone. The context is checked
// before each strategy.
func (t *TableExtractor) Extract(ctx context.Context, doc *document.Document, text string) ([]model.ProductRow, Method, error) {
	for _, s := range t.strategies {
		if err := ctx.Err(); err != nil {
			return nil, MethodNone, err
		}
		if rows := s.Extract(doc, text); len(rows) > 0 {
			return rows, s.Method, nil
		}
	}
	return nil, MethodNone, nil
}

// tableReader turns cell grids into product rows.
type tableReader struct {
	markers     []string
	rowStoplist map[string]struct{}
	terminators []string
}

func newTableReader(p Profile) *tableReader {
	tr := &tableReader{rowStoplist: make(map[string]struct{}, len(p.RowStoplist))}
	for _, m := range p.TableMarkers {
		tr.markers = append(tr.markers, strings.ToLower(m))
	}
	for _, s := range p.RowStoplist {
		tr.rowStoplist[strings.ToLower(s)] = struct{}{}
	}
	for _, s := range p.Terminators {
		tr.terminators = append(tr.terminators, strings.ToLower(s))
	}
	return tr
}

func (tr *tableReader) structured(doc *document.Document, _ string) []model.ProductRow {
	if doc == nil {
		return nil
	}
	var rows []model.ProductRow
	for _, page := range doc.Pages {
		for _, t := range page.Tables {
			rows = append(rows, tr.read(t.Rows)...)
		}
	}
	return rows
}

func (tr *tableReader) stream(doc *document.Document, _ string) []model.ProductRow {
	if doc == nil {
		return nil
	}
	opts := document.StreamOptions{
		IsHeader:      tr.isStreamHeader,
		IsDescription: func(h string) bool { return strings.Contains(strings.ToLower(h), "description") },
		IsTerminator:  tr.isTerminator,
	}
	var rows []model.ProductRow
	for _, page := range doc.Pages {
		for _, t := range page.StreamTables(opts) {
			rows = append(rows, tr.read(t.Rows)...)
		}
	}
	return rows
}

// isStreamHeader wants two marker phrases on the line, as a lone "Amount"
// is common outside product tables.
func (tr *tableReader) isStreamHeader(cells []string) bool {
	joined := strings.ToLower(strings.Join(cells, " "))
	n := 0
	for _, m := range tr.markers {
		if strings.Contains(joined, m) {
			n++
		}
	}
	return n >= 2
}

func (tr *tableReader) isTerminator(line string) bool {
	l := strings.ToLower(strings.TrimSpace(line))
	for _, t := range tr.terminators {
		if strings.HasPrefix(l, t) {
			return true
		}
	}
	return false
}

func (tr *tableReader) hasMarker(header []string) bool {
	joined := strings.ToLower(strings.Join(header, " "))
	for _, m := range tr.markers {
		if strings.Contains(joined, m) {
			return true
		}
	}
	return false
}

type columns struct {
	desc, qty, price, total int
}

// resolveColumns finds column indexes by header keywords; -1 when absent.
func resolveColumns(header []string) columns {
	cols := columns{desc: -1, qty: -1, price: -1, total: -1}
	for i, h := range header {
		h = strings.ToLower(h)
		if cols.desc < 0 && strings.Contains(h, "description") {
			cols.desc = i
		}
		if cols.qty < 0 && (strings.Contains(h, "qty") || strings.Contains(h, "quantity")) {
			cols.qty = i
		}
		if cols.price < 0 && (strings.Contains(h, "rate") || strings.Contains(h, "price")) {
			cols.price = i
		}
		if cols.total < 0 && strings.Contains(h, "amount") && strings.Contains(h, "incl") {
			cols.total = i
		}
	}
	return cols
}

func (c columns) widest() int {
	return max(c.desc, c.qty, c.price, c.total)
}

// read converts a table whose first row is the header. Tables without a marker,
// a description column or a quantity column yield nothing. Numbers that do not
// parse become null and the row is kept.
func (tr *tableReader) read(table [][]string) []model.ProductRow {
	if len(table) < 2 || !tr.hasMarker(table[0]) {
		return nil
	}
	cols := resolveColumns(table[0])
	if cols.desc < 0 || cols.qty < 0 {
		return nil
	}

	var rows []model.ProductRow
	for _, row := range table[1:] {
		if len(row) <= cols.widest() {
			continue
		}
		product := strings.Join(strings.Fields(row[cols.desc]), " ")
		if _, skip := tr.rowStoplist[strings.ToLower(product)]; skip || product == "" {
			continue
		}
		rows = append(rows, model.ProductRow{
			Product:   product,
			Qty:       cell(row, cols.qty),
			UnitPrice: cell(row, cols.price),
			Total:     cell(row, cols.total),
		})
	}
	return rows
}

func cell(row []string, i int) decimal.NullDecimal {
	if i < 0 {
		return decimal.NullDecimal{}
	}
	return ParseNumber(row[i])
}

// patternReader finds line items written as plain text:
// "<line no> <description> <unit> <qty> <unit price> <total>".
type patternReader struct {
	pattern     *regexp.Regexp
	keepPartial bool
}

func newPatternReader(p Profile) *patternReader {
	units := make([]string, len(p.UnitCodes))
	for i, u := range p.UnitCodes {
		units[i] = regexp.QuoteMeta(u)
	}
	return &patternReader{
		pattern: regexp.MustCompile(`(\d+)\s+([^\n]+?)\s+(?:` + strings.Join(units, "|") +
			`)\s+(\d+)\s+([\d,.]+)\s+([\d,.]+)`),
		keepPartial: p.KeepPartialPatternRows,
	}
}

// read drops a match whose numbers do not all parse unless partial rows are kept.
func (pr *patternReader) read(_ *document.Document, text string) []model.ProductRow {
	var rows []model.ProductRow
	for _, m := range pr.pattern.FindAllStringSubmatch(text, -1) {
		row := model.ProductRow{
			Product:   strings.TrimSpace(m[2]),
			Qty:       ParseNumber(m[3]),
			UnitPrice: ParseNumber(m[4]),
			Total:     ParseNumber(m[5]),
		}
		if !pr.keepPartial && (!row.Qty.Valid || !row.UnitPrice.Valid || !row.Total.Valid) {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}
