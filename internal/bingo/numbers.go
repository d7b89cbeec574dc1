package bingo

import (
	"errors"
	"fmt"
)

var ErrUnknownColumn = errors.New("unknown column")

const (
	// CountPerColumn is how many numbers every card column holds.
	CountPerColumn = 5
	columnCount    = 5
)

// Column is one of the b, i, n, g, o letter groups.
type Column int

const (
	ColumnB Column = iota
	ColumnI
	ColumnN
	ColumnG
	ColumnO
)

var columnNames = [columnCount]string{"b", "i", "n", "g", "o"}

func (c Column) String() string {
	if !c.Valid() {
		return fmt.Sprintf("column(%d)", int(c))
	}
	return columnNames[c]
}

func (c Column) Valid() bool {
	return c >= ColumnB && c <= ColumnO
}

// ParseColumn - maps a letter ("b".."o") to its Column.
func ParseColumn(name string) (Column, bool) {
	for i, n := range columnNames {
		if n == name {
			return Column(i), true
		}
	}
	return 0, false
}

func (c Column) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownColumn, int(c))
	}
	return []byte(columnNames[c]), nil
}

func (c *Column) UnmarshalText(text []byte) error {
	col, ok := ParseColumn(string(text))
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownColumn, text)
	}
	*c = col
	return nil
}

// NumberRange is the half-open interval [Min, Max) split into columns of width Step.
type NumberRange struct {
	Min  int
	Max  int
	Step int
}

// BoardRange covers every number a game can draw: b:[1,21) ... o:[81,101).
var BoardRange = NumberRange{Min: 1, Max: 1 + columnCount*20, Step: 20}

func (that NumberRange) Size() int {
	if that.Max <= that.Min {
		return 0
	}
	return that.Max - that.Min
}

func (that NumberRange) Contains(n int) bool {
	return n >= that.Min && n < that.Max
}

// Columns - partitions the range into contiguous sub-ranges of width Step.
func (that NumberRange) Columns() []NumberRange {
	if that.Step <= 0 {
		return nil
	}

	cols := make([]NumberRange, 0, that.Size()/that.Step)
	for lower := that.Min; lower+that.Step <= that.Max; lower += that.Step {
		cols = append(cols, NumberRange{Min: lower, Max: lower + that.Step, Step: that.Step})
	}

	return cols
}

// ColumnOf - returns the column a number belongs to.
func (that NumberRange) ColumnOf(n int) (Column, bool) {
	if !that.Contains(n) || that.Step <= 0 {
		return 0, false
	}

	col := Column((n - that.Min) / that.Step)
	if !col.Valid() {
		return 0, false
	}

	return col, true
}
