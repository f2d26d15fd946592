package document

import "math"

// StreamOptions configure table detection from text positions alone, for tables
// drawn without ruling lines.
type StreamOptions struct {
	// IsHeader reports whether the cells of a line form a table header.
	IsHeader func(cells []string) bool
	// IsDescription reports whether a header cell names the free-text column.
	// Lines holding a single cell in that column continue the previous row.
	IsDescription func(header string) bool
	// IsTerminator reports whether a line closes the table (totals and the like).
	IsTerminator func(line string) bool
	// MaxGapFactor ends the table at a vertical gap larger than this multiple
	// of the table's line pitch.
	MaxGapFactor float64
}

const defaultMaxGapFactor = 2.5

// StreamTables finds tables by anchoring columns on a header line and placing
// the cells of the following lines under the nearest header column.
func (p Page) StreamTables(opts StreamOptions) []Table {
	if opts.IsHeader == nil {
		return nil
	}
	if opts.MaxGapFactor <= 0 {
		opts.MaxGapFactor = defaultMaxGapFactor
	}

	var tables []Table
	for i := 0; i < len(p.Lines); i++ {
		head := p.Lines[i]
		if len(head.Cells) < 2 || !opts.IsHeader(cellTexts(head)) {
			continue
		}
		t, next := p.readStream(i, opts)
		if len(t.Rows) > 1 {
			tables = append(tables, t)
		}
		i = next - 1
	}
	return tables
}

func (p Page) readStream(start int, opts StreamOptions) (Table, int) {
	head := p.Lines[start]
	cols := head.Cells
	desc := -1
	if opts.IsDescription != nil {
		for c, cell := range cols {
			if opts.IsDescription(cell.Text) {
				desc = c
				break
			}
		}
	}

	t := Table{Rows: [][]string{cellTexts(head)}}
	prevY := head.Y
	pitch := 0.0

	j := start + 1
	for ; j < len(p.Lines); j++ {
		line := p.Lines[j]
		gap := prevY - line.Y
		ref := pitch
		if ref == 0 {
			ref = 2 * math.Max(head.Height, line.Height)
		}
		if gap > opts.MaxGapFactor*ref {
			break
		}
		if opts.IsTerminator != nil && opts.IsTerminator(line.Text()) {
			break
		}

		if len(line.Cells) == 1 {
			c := nearestColumn(cols, line.Cells[0])
			if c == desc && len(t.Rows) > 1 {
				last := t.Rows[len(t.Rows)-1]
				last[desc] = joinText(last[desc], line.Cells[0].Text)
				prevY = line.Y
				continue
			}
			break
		}

		row := make([]string, len(cols))
		for _, cell := range line.Cells {
			c := nearestColumn(cols, cell)
			row[c] = joinText(row[c], cell.Text)
		}
		t.Rows = append(t.Rows, row)
		if gap > 0 && (pitch == 0 || gap < pitch) {
			pitch = gap
		}
		prevY = line.Y
	}
	return t, j
}

// nearestColumn picks the header column with the largest horizontal overlap,
// or the closest centre when nothing overlaps.
func nearestColumn(cols []Cell, cell Cell) int {
	best, bestOverlap := -1, 0.0
	for i, col := range cols {
		overlap := math.Min(col.X1, cell.X1) - math.Max(col.X0, cell.X0)
		if overlap > bestOverlap {
			best, bestOverlap = i, overlap
		}
	}
	if best >= 0 {
		return best
	}

	center := (cell.X0 + cell.X1) / 2
	best, bestDist := 0, math.Inf(1)
	for i, col := range cols {
		d := math.Abs((col.X0+col.X1)/2 - center)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func cellTexts(l Line) []string {
	out := make([]string, len(l.Cells))
	for i, c := range l.Cells {
		out[i] = c.Text
	}
	return out
}

func joinText(a, b string) string {
	if a == "" {
		return b
	}
	return a + " " + b
}
