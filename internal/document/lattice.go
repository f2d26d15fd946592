package document

import (
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/tidwall/rtree"
)

// segment is an axis-aligned rule. For horizontal rules pos is the y coordinate
// and start/end span x; for vertical rules pos is x and start/end span y.
type segment struct {
	pos, start, end float64
}

// latticeTables recovers tables drawn with ruling lines. Thin rectangles become
// rules, full rectangles contribute their four sides.
func (lay Layout) latticeTables(rects []pdf.Rect, words []Word) []Table {
	hs, vs := lay.rulesFromRects(rects)
	hs = mergeSegments(hs, lay.SnapDistance)
	vs = mergeSegments(vs, lay.SnapDistance)
	if len(hs) < 2 || len(vs) < 2 {
		return nil
	}

	var index rtree.RTreeG[int]
	for i, w := range words {
		c := [2]float64{(w.X0 + w.X1) / 2, w.Y + w.FontSize/3}
		index.Insert(c, c, i)
	}

	var tables []Table
	for _, grid := range lay.connectedGrids(hs, vs) {
		if t, ok := lay.fillGrid(grid, words, &index); ok {
			tables = append(tables, t)
		}
	}
	return tables
}

func (lay Layout) rulesFromRects(rects []pdf.Rect) (hs, vs []segment) {
	for _, r := range rects {
		x0, x1 := math.Min(r.Min.X, r.Max.X), math.Max(r.Min.X, r.Max.X)
		y0, y1 := math.Min(r.Min.Y, r.Max.Y), math.Max(r.Min.Y, r.Max.Y)
		w, h := x1-x0, y1-y0
		switch {
		case w <= lay.RuleWidth && h <= lay.RuleWidth:
			continue
		case h <= lay.RuleWidth:
			hs = append(hs, segment{pos: (y0 + y1) / 2, start: x0, end: x1})
		case w <= lay.RuleWidth:
			vs = append(vs, segment{pos: (x0 + x1) / 2, start: y0, end: y1})
		default:
			hs = append(hs, segment{pos: y0, start: x0, end: x1}, segment{pos: y1, start: x0, end: x1})
			vs = append(vs, segment{pos: x0, start: y0, end: y1}, segment{pos: x1, start: y0, end: y1})
		}
	}
	return hs, vs
}

// mergeSegments snaps rules lying on nearly the same line to their mean position
// and joins pieces that touch or overlap along the line.
func mergeSegments(segs []segment, snap float64) []segment {
	if len(segs) == 0 {
		return nil
	}
	sorted := append([]segment(nil), segs...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].pos != sorted[j].pos {
			return sorted[i].pos < sorted[j].pos
		}
		return sorted[i].start < sorted[j].start
	})

	var out []segment
	for i := 0; i < len(sorted); {
		sum := sorted[i].pos
		j := i + 1
		for j < len(sorted) && math.Abs(sorted[j].pos-sum/float64(j-i)) <= snap {
			sum += sorted[j].pos
			j++
		}
		pos := sum / float64(j-i)

		group := append([]segment(nil), sorted[i:j]...)
		sort.Slice(group, func(a, b int) bool { return group[a].start < group[b].start })
		cur := segment{pos: pos, start: group[0].start, end: group[0].end}
		for _, s := range group[1:] {
			if s.start <= cur.end+snap {
				cur.end = math.Max(cur.end, s.end)
				continue
			}
			out = append(out, cur)
			cur = segment{pos: pos, start: s.start, end: s.end}
		}
		out = append(out, cur)
		i = j
	}
	return out
}

type grid struct {
	xs []float64 // column boundaries, left to right
	ys []float64 // row boundaries, top to bottom
}

func crosses(h, v segment, tol float64) bool {
	return v.pos >= h.start-tol && v.pos <= h.end+tol &&
		h.pos >= v.start-tol && h.pos <= v.end+tol
}

// connectedGrids groups rules that intersect each other and returns one grid per
// group with at least two rules in each direction, ordered top to bottom.
func (lay Layout) connectedGrids(hs, vs []segment) []grid {
	parent := make([]int, len(hs)+len(vs))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	for i, h := range hs {
		for j, v := range vs {
			if crosses(h, v, lay.SnapDistance) {
				a, b := find(i), find(len(hs)+j)
				if a != b {
					parent[a] = b
				}
			}
		}
	}

	type members struct{ hs, vs []segment }
	groups := map[int]*members{}
	var order []int
	add := func(root int) *members {
		m, ok := groups[root]
		if !ok {
			m = &members{}
			groups[root] = m
			order = append(order, root)
		}
		return m
	}
	for i, h := range hs {
		m := add(find(i))
		m.hs = append(m.hs, h)
	}
	for j, v := range vs {
		m := add(find(len(hs) + j))
		m.vs = append(m.vs, v)
	}

	var grids []grid
	for _, root := range order {
		m := groups[root]
		if len(m.hs) < 2 || len(m.vs) < 2 {
			continue
		}
		g := grid{
			xs: distinct(m.vs, lay.SnapDistance),
			ys: distinct(m.hs, lay.SnapDistance),
		}
		// rows run top to bottom
		sort.Sort(sort.Reverse(sort.Float64Slice(g.ys)))
		if len(g.xs) < 2 || len(g.ys) < 2 {
			continue
		}
		grids = append(grids, g)
	}
	sort.SliceStable(grids, func(i, j int) bool { return grids[i].ys[0] > grids[j].ys[0] })
	return grids
}

func distinct(segs []segment, tol float64) []float64 {
	ps := make([]float64, 0, len(segs))
	for _, s := range segs {
		ps = append(ps, s.pos)
	}
	sort.Float64s(ps)
	var out []float64
	for _, p := range ps {
		if len(out) == 0 || p-out[len(out)-1] > tol {
			out = append(out, p)
		}
	}
	return out
}

// fillGrid places every word whose centre lies inside a grid cell into that cell.
// Rows without any text are dropped.
func (lay Layout) fillGrid(g grid, words []Word, index *rtree.RTreeG[int]) (Table, bool) {
	var t Table
	for r := 0; r+1 < len(g.ys); r++ {
		top, bottom := g.ys[r], g.ys[r+1]
		row := make([]string, len(g.xs)-1)
		filled := false
		for c := 0; c+1 < len(g.xs); c++ {
			left, right := g.xs[c], g.xs[c+1]
			var hits []int
			index.Search([2]float64{left, bottom}, [2]float64{right, top},
				func(_, _ [2]float64, i int) bool {
					hits = append(hits, i)
					return true
				})
			row[c] = lay.cellText(hits, words)
			if row[c] != "" {
				filled = true
			}
		}
		if filled {
			t.Rows = append(t.Rows, row)
		}
	}
	return t, len(t.Rows) > 0
}

func (lay Layout) cellText(hits []int, words []Word) string {
	if len(hits) == 0 {
		return ""
	}
	// Index search order is arbitrary; content-stream order breaks ties
	// between words sharing a position.
	sort.Ints(hits)
	sort.SliceStable(hits, func(a, b int) bool {
		wa, wb := words[hits[a]], words[hits[b]]
		if math.Abs(wa.Y-wb.Y) > lay.RowTolerance {
			return wa.Y > wb.Y
		}
		return wa.X0 < wb.X0
	})
	parts := make([]string, len(hits))
	for i, h := range hits {
		parts[i] = words[h].Text
	}
	return strings.Join(parts, " ")
}
