package bingo

import (
	"fmt"
	"math/rand"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Cell is a (column, row) position on a card.
type Cell struct {
	Column Column `json:"column"`
	Row    int    `json:"row"`
}

// WinPatterns are the 12 cell sets that make a bingo: 2 diagonals, 5 columns, 5 rows.
// There is no free cell.
var WinPatterns = buildWinPatterns()

func buildWinPatterns() [][CountPerColumn]Cell {
	patterns := make([][CountPerColumn]Cell, 0, 2+2*columnCount)

	var diagDown, diagUp [CountPerColumn]Cell
	for i := 0; i < CountPerColumn; i++ {
		diagDown[i] = Cell{Column: Column(i), Row: i}
		diagUp[i] = Cell{Column: Column(i), Row: CountPerColumn - 1 - i}
	}
	patterns = append(patterns, diagDown, diagUp)

	for col := ColumnB; col <= ColumnO; col++ {
		var vertical [CountPerColumn]Cell
		for row := 0; row < CountPerColumn; row++ {
			vertical[row] = Cell{Column: col, Row: row}
		}
		patterns = append(patterns, vertical)
	}

	for row := 0; row < CountPerColumn; row++ {
		var horizontal [CountPerColumn]Cell
		for col := ColumnB; col <= ColumnO; col++ {
			horizontal[col] = Cell{Column: col, Row: row}
		}
		patterns = append(patterns, horizontal)
	}

	return patterns
}

// Columns holds the numbers of a card, one ascending column per letter.
type Columns [columnCount][CountPerColumn]int

// Card is a player's 5x5 grid with mark tracking.
type Card struct {
	mu sync.RWMutex

	id      string
	columns Columns
	marked  map[Cell]struct{}
	bingo   bool
}

// GenerateCard - deals a fresh card from the board range.
func GenerateCard(rng *rand.Rand) *Card {
	var cols Columns

	for i, colRange := range BoardRange.Columns() {
		sampler := NewSampler(rng, colRange)
		values := make([]int, 0, CountPerColumn)
		for len(values) < CountPerColumn {
			n, err := sampler.Sample()
			if err != nil {
				// step >= CountPerColumn, so a column pool never runs dry.
				panic(fmt.Errorf("column %s: %w", Column(i), err))
			}
			values = append(values, n)
		}
		slices.Sort(values)
		copy(cols[i][:], values)
	}

	return NewCard(uuid.NewString(), cols)
}

// NewCard - builds a card around known columns, e.g. when restoring from storage.
func NewCard(id string, columns Columns) *Card {
	return &Card{
		id:      id,
		columns: columns,
		marked:  make(map[Cell]struct{}, columnCount*CountPerColumn),
	}
}

func (that *Card) ID() string {
	return that.id
}

func (that *Card) Columns() Columns {
	that.mu.RLock()
	defer that.mu.RUnlock()
	return that.columns
}

// Column - a copy of one column's numbers.
func (that *Card) Column(col Column) []int {
	if !col.Valid() {
		return nil
	}

	that.mu.RLock()
	defer that.mu.RUnlock()

	out := make([]int, CountPerColumn)
	copy(out, that.columns[col][:])
	return out
}

// Mark - marks number in col if the card holds it. Returns false when nothing changed.
func (that *Card) Mark(col Column, number int) bool {
	if !col.Valid() {
		return false
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	row := slices.Index(that.columns[col][:], number)
	if row < 0 {
		return false
	}

	return that.markLocked(Cell{Column: col, Row: row})
}

// MarkCell - marks a position directly, used to restore persisted marks.
func (that *Card) MarkCell(cell Cell) bool {
	if !cell.Column.Valid() || cell.Row < 0 || cell.Row >= CountPerColumn {
		return false
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	return that.markLocked(cell)
}

func (that *Card) markLocked(cell Cell) bool {
	if _, ok := that.marked[cell]; ok {
		return false
	}

	that.marked[cell] = struct{}{}
	if !that.bingo {
		that.bingo = that.evaluateLocked()
	}

	return true
}

// HasBingo - once true it stays true.
func (that *Card) HasBingo() bool {
	that.mu.RLock()
	defer that.mu.RUnlock()
	return that.bingo
}

// EvaluateWin - reports whether any win pattern is fully marked.
func (that *Card) EvaluateWin() bool {
	that.mu.RLock()
	defer that.mu.RUnlock()
	return that.evaluateLocked()
}

func (that *Card) evaluateLocked() bool {
	if len(that.marked) < CountPerColumn {
		return false
	}

	for _, pattern := range WinPatterns {
		if that.coversLocked(pattern) {
			return true
		}
	}

	return false
}

func (that *Card) coversLocked(pattern [CountPerColumn]Cell) bool {
	for _, cell := range pattern {
		if _, ok := that.marked[cell]; !ok {
			return false
		}
	}
	return true
}

// Marked - marked cells ordered by column then row.
func (that *Card) Marked() []Cell {
	that.mu.RLock()
	defer that.mu.RUnlock()

	cells := make([]Cell, 0, len(that.marked))
	for cell := range that.marked {
		cells = append(cells, cell)
	}

	slices.SortFunc(cells, func(a, b Cell) int {
		if a.Column != b.Column {
			return int(a.Column) - int(b.Column)
		}
		return a.Row - b.Row
	})

	return cells
}
