package ui

import (
	"sort"

	"github.com/vanderheijden86/cardtree/pkg/metrics"
	"github.com/vanderheijden86/cardtree/pkg/tree"
)

// boardRow is one laid-out line group: a parent row or a grid row of up to
// cardsPerRow sibling leaves.
type boardRow struct {
	first, last int // flat indices, inclusive
	top         int // content line of the first line
	height      int
	leaves      bool
}

// boardLayout positions every flat item in content lines. It is rebuilt
// whenever the flat sequence changes; rows outside the window still take
// their full height so the scroll extent matches a fully rendered board.
type boardLayout struct {
	rows   []boardRow
	rowOf  []int // flat index -> row index
	height int
}

func buildLayout(flat []tree.FlatItem, cardsPerRow, cardHeight, parentHeight int) boardLayout {
	defer metrics.Timer(metrics.Layout)()

	cardsPerRow = max(1, cardsPerRow)
	cardHeight = max(1, cardHeight)
	parentHeight = max(1, parentHeight)

	l := boardLayout{rowOf: make([]int, len(flat))}
	top := 0
	for i, it := range flat {
		if it.IsLeaf() && len(l.rows) > 0 {
			cur := &l.rows[len(l.rows)-1]
			prev := flat[cur.last]
			if cur.leaves && cur.last == i-1 && prev.ParentID == it.ParentID &&
				cur.last-cur.first+1 < cardsPerRow {
				cur.last = i
				l.rowOf[i] = len(l.rows) - 1
				continue
			}
		}
		h := parentHeight
		if it.IsLeaf() {
			h = cardHeight
		}
		l.rows = append(l.rows, boardRow{first: i, last: i, top: top, height: h, leaves: it.IsLeaf()})
		l.rowOf[i] = len(l.rows) - 1
		top += h
	}
	l.height = top
	return l
}

// bounds returns the content lines occupied by flat index i.
func (l boardLayout) bounds(i int) (top, height int, ok bool) {
	if i < 0 || i >= len(l.rowOf) {
		return 0, 0, false
	}
	r := l.rows[l.rowOf[i]]
	return r.top, r.height, true
}

// rowAt returns the index of the row covering content line y, or -1.
func (l boardLayout) rowAt(y int) int {
	if y < 0 || y >= l.height {
		return -1
	}
	i := sort.Search(len(l.rows), func(i int) bool {
		return l.rows[i].top+l.rows[i].height > y
	})
	if i >= len(l.rows) {
		return -1
	}
	return i
}

// column returns the position of flat index i within its row.
func (l boardLayout) column(i int) int {
	if i < 0 || i >= len(l.rowOf) {
		return 0
	}
	return i - l.rows[l.rowOf[i]].first
}
