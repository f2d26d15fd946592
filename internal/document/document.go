// Package document loads PDF files and rebuilds their text layer as positioned
// words, lines of cells and ruled tables.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

var ErrEmptyDocument = errors.New("document is empty")

// Word is a run of glyphs without an internal gap.
type Word struct {
	Text     string
	X0, X1   float64
	Y        float64
	FontSize float64
}

// Cell is a run of words on the same line separated by ordinary spacing.
type Cell struct {
	Text   string
	X0, X1 float64
}

// Line holds the cells sharing a baseline, left to right.
type Line struct {
	Y      float64
	Height float64
	Cells  []Cell
}

// Text joins the cells of the line with a single space.
func (l Line) Text() string {
	parts := make([]string, len(l.Cells))
	for i, c := range l.Cells {
		parts[i] = c.Text
	}
	return strings.Join(parts, " ")
}

// Table is a grid of cell strings. Row 0 is the header row.
type Table struct {
	Rows [][]string
}

// Page is one page of a loaded document. Lines are ordered top to bottom.
type Page struct {
	Number int
	Words  []Word
	Lines  []Line
	Tables []Table
}

// Text emits every cell on its own line, top to bottom and left to right.
func (p Page) Text() string {
	var b strings.Builder
	for _, l := range p.Lines {
		for _, c := range l.Cells {
			b.WriteString(c.Text)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Document is an immutable, fully loaded PDF.
type Document struct {
	Pages []Page
}

// Text concatenates page texts in page order.
func (d *Document) Text() string {
	if d == nil {
		return ""
	}
	parts := make([]string, len(d.Pages))
	for i, p := range d.Pages {
		parts[i] = p.Text()
	}
	return strings.Join(parts, "\n")
}

// Load parses PDF bytes with the default layout.
func Load(data []byte) (*Document, error) {
	return DefaultLayout().Load(data)
}

// Open reads and parses the PDF at path with the default layout.
func Open(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return Load(data)
}

// Load parses PDF bytes. Panics raised by the PDF parser on malformed input
// are converted into errors.
func (lay Layout) Load(data []byte) (doc *Document, err error) {
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	doc = &Document{}
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		content := p.Content()
		page := lay.buildPage(i, content.Text)
		page.Tables = lay.latticeTables(content.Rect, page.Words)
		doc.Pages = append(doc.Pages, page)
	}
	return doc, nil
}
