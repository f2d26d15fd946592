package document

import (
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"
)

// Layout controls how glyphs are grouped into words, cells and lines.
// Spacing values are multiples of the font size.
type Layout struct {
	RowTolerance float64 // max baseline difference, in points, for glyphs on one line
	WordSpace    float64 // gap above which two glyphs belong to different words
	CellSpace    float64 // gap above which two words belong to different cells
	RuleWidth    float64 // max thickness, in points, of a rectangle drawn as a rule
	SnapDistance float64 // tolerance used when snapping and intersecting rules
}

// DefaultLayout returns settings that suit typical generated invoices.
func DefaultLayout() Layout {
	return Layout{
		RowTolerance: 3.0,
		WordSpace:    0.3,
		CellSpace:    1.5,
		RuleWidth:    2.0,
		SnapDistance: 3.0,
	}
}

const fallbackFontSize = 10.0

func (lay Layout) buildPage(number int, glyphs []pdf.Text) Page {
	page := Page{Number: number}
	for _, row := range lay.groupIntoRows(glyphs) {
		words := lay.buildWords(row)
		if len(words) == 0 {
			continue
		}
		page.Words = append(page.Words, words...)
		page.Lines = append(page.Lines, lay.buildLine(words))
	}
	return page
}

// groupIntoRows buckets glyphs by baseline and returns rows top to bottom,
// each sorted left to right.
func (lay Layout) groupIntoRows(glyphs []pdf.Text) [][]pdf.Text {
	type rowBucket struct {
		yMin, yMax float64
		glyphs     []pdf.Text
	}

	var buckets []rowBucket
	for _, g := range glyphs {
		if g.S == "" {
			continue
		}
		found := false
		for i := range buckets {
			if g.Y >= buckets[i].yMin-lay.RowTolerance && g.Y <= buckets[i].yMax+lay.RowTolerance {
				buckets[i].glyphs = append(buckets[i].glyphs, g)
				buckets[i].yMin = math.Min(buckets[i].yMin, g.Y)
				buckets[i].yMax = math.Max(buckets[i].yMax, g.Y)
				found = true
				break
			}
		}
		if !found {
			buckets = append(buckets, rowBucket{yMin: g.Y, yMax: g.Y, glyphs: []pdf.Text{g}})
		}
	}

	// PDF space grows upwards: higher Y is higher on the page.
	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].yMax > buckets[j].yMax
	})

	rows := make([][]pdf.Text, 0, len(buckets))
	for _, b := range buckets {
		sort.SliceStable(b.glyphs, func(i, j int) bool {
			return b.glyphs[i].X < b.glyphs[j].X
		})
		rows = append(rows, b.glyphs)
	}
	return rows
}

// buildWords merges the glyphs of one row into words. Whitespace glyphs
// always end the current word.
func (lay Layout) buildWords(row []pdf.Text) []Word {
	var words []Word
	var cur *Word
	var sb strings.Builder

	flush := func() {
		if cur == nil {
			return
		}
		cur.Text = strings.TrimSpace(norm.NFKC.String(sb.String()))
		if cur.Text != "" {
			words = append(words, *cur)
		}
		cur = nil
		sb.Reset()
	}

	for _, g := range row {
		if strings.TrimSpace(g.S) == "" {
			flush()
			continue
		}
		size := g.FontSize
		if size <= 0 {
			size = fallbackFontSize
		}
		if cur != nil && g.X-cur.X1 > lay.WordSpace*size {
			flush()
		}
		if cur == nil {
			cur = &Word{X0: g.X, X1: g.X + g.W, Y: g.Y, FontSize: size}
		}
		sb.WriteString(g.S)
		cur.X1 = math.Max(cur.X1, g.X+g.W)
		cur.FontSize = math.Max(cur.FontSize, size)
	}
	flush()
	return words
}

// buildLine joins words into cells wherever the gap is wider than ordinary spacing.
func (lay Layout) buildLine(words []Word) Line {
	line := Line{Y: words[0].Y}
	var cur *Cell
	prevX1 := 0.0
	for _, w := range words {
		line.Height = math.Max(line.Height, w.FontSize)
		if cur != nil && w.X0-prevX1 > lay.CellSpace*w.FontSize {
			line.Cells = append(line.Cells, *cur)
			cur = nil
		}
		if cur == nil {
			cur = &Cell{Text: w.Text, X0: w.X0, X1: w.X1}
		} else {
			cur.Text += " " + w.Text
			cur.X1 = w.X1
		}
		prevX1 = w.X1
	}
	if cur != nil {
		line.Cells = append(line.Cells, *cur)
	}
	return line
}
