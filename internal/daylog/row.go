package daylog

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the format of the date column.
	DateLayout = "02-01-2006"
	// TimeLayout is the format of the first/last seen columns.
	TimeLayout = "15:04:05"
	// NoFolderYet fills the folder column until a photo is stored.
	NoFolderYet = "No photos saved yet"
	// newRowDuration is written on creation, when the row number is not yet known.
	newRowDuration = `=INDIRECT("H"&ROW())-INDIRECT("G"&ROW())`
)

// Row is one user's log for one day.
type Row struct {
	Index       int
	UserID      string
	Date        string
	Description string
	FolderLink  string
	Duration    string
	AIResponse  string
	FirstSeen   string
	LastSeen    string
}

// Messages splits the description into its logged lines.
func (r Row) Messages() []string {
	return splitLines(r.Description)
}

// Elapsed computes last seen minus first seen, or 0 if either is unparsable.
func (r Row) Elapsed() time.Duration {
	first, err := time.Parse(TimeLayout, r.FirstSeen)
	if err != nil {
		return 0
	}
	last, err := time.Parse(TimeLayout, r.LastSeen)
	if err != nil || last.Before(first) {
		return 0
	}
	return last.Sub(first)
}

// parseRow tolerates short rows: missing trailing fields read as empty.
func parseRow(index int, values []string) Row {
	field := func(c Column) string {
		if c.Index() < len(values) {
			return values[c.Index()]
		}
		return ""
	}
	return Row{
		Index:       index,
		UserID:      field(ColUser),
		Date:        field(ColDate),
		Description: field(ColDescription),
		FolderLink:  field(ColFolder),
		Duration:    field(ColDuration),
		AIResponse:  field(ColAIResponse),
		FirstSeen:   field(ColFirstSeen),
		LastSeen:    field(ColLastSeen),
	}
}

func newRow(userID, date, description, folder, now string) []string {
	return []string{userID, date, description, folder, newRowDuration, "", now, now}
}

func durationFormula(row int) string {
	return fmt.Sprintf("=H%d-G%d", row, row)
}

func splitLines(description string) []string {
	if description == "" {
		return nil
	}
	return strings.Split(description, "\n")
}
