package daylog

import (
	"context"
	"fmt"
	"sync"
)

// MemoryTable keeps rows in process memory. It backs local development and
// tests; formulas are stored as written.
type MemoryTable struct {
	mu   sync.RWMutex
	rows [][]string
}

func NewMemoryTable() *MemoryTable {
	return &MemoryTable{}
}

func (m *MemoryTable) Rows(_ context.Context, from, to Column) ([][]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([][]string, len(m.rows))
	for i, row := range m.rows {
		start, end := from.Index(), to.Index()+1
		if end > len(row) {
			end = len(row)
		}
		if start < end {
			out[i] = append([]string(nil), row[start:end]...)
		}
	}
	return out, nil
}

func (m *MemoryTable) Get(_ context.Context, cell Cell) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if cell.Row < 1 || cell.Row > len(m.rows) {
		return "", nil
	}
	row := m.rows[cell.Row-1]
	if cell.Column.Index() >= len(row) {
		return "", nil
	}
	return row[cell.Column.Index()], nil
}

func (m *MemoryTable) Update(_ context.Context, updates []CellUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range updates {
		if u.Cell.Row < 1 {
			return fmt.Errorf("invalid cell %s", u.Cell)
		}
		for len(m.rows) < u.Cell.Row {
			m.rows = append(m.rows, nil)
		}
		row := m.rows[u.Cell.Row-1]
		for len(row) <= u.Cell.Column.Index() {
			row = append(row, "")
		}
		row[u.Cell.Column.Index()] = u.Value
		m.rows[u.Cell.Row-1] = row
	}
	return nil
}

func (m *MemoryTable) Append(_ context.Context, row []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rows = append(m.rows, append([]string(nil), row...))
	return nil
}

// Len returns the number of rows.
func (m *MemoryTable) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}
