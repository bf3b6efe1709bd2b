package daylog

import (
	"context"
	"fmt"
)

// Column is a positional column of the daily log table.
type Column byte

const (
	ColUser        Column = 'A'
	ColDate        Column = 'B'
	ColDescription Column = 'C'
	ColFolder      Column = 'D'
	ColDuration    Column = 'E'
	ColAIResponse  Column = 'F'
	ColFirstSeen   Column = 'G'
	ColLastSeen    Column = 'H'
)

// Index is the 0-based offset of the column within a row.
func (c Column) Index() int {
	return int(c - 'A')
}

// Cell addresses one cell by column and 1-based row.
type Cell struct {
	Column Column
	Row    int
}

func (c Cell) String() string {
	return fmt.Sprintf("%c%d", c.Column, c.Row)
}

// CellUpdate writes Value into Cell. UserEntered values are interpreted by the
// table (formulas, times); others are stored verbatim.
type CellUpdate struct {
	Cell        Cell
	Value       string
	UserEntered bool
}

// Table is the tabular store holding daily log rows. Implementations omit
// trailing empty cells, so rows may be shorter than requested.
type Table interface {
	// Rows returns columns from..to of every row, top to bottom.
	Rows(ctx context.Context, from, to Column) ([][]string, error)
	// Get returns the value of a cell, "" when empty or out of range.
	Get(ctx context.Context, cell Cell) (string, error)
	Update(ctx context.Context, updates []CellUpdate) error
	// Append adds a row after the last one, interpreting formulas.
	Append(ctx context.Context, row []string) error
}
