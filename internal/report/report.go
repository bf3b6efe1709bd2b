// Package report exports a user's daily log rows as an Excel workbook.
package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/worklog-bot/worklog/internal/daylog"
)

const (
	sheetName = "Report"
	// MimeXLSX is the content type of generated reports.
	MimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	// NoSummaryHint replaces a missing AI summary.
	NoSummaryHint = "No AI summary yet, run /send to generate one"
)

// ErrNoRows means the user has nothing logged to export.
var ErrNoRows = errors.New("no records to export")

var header = []interface{}{"Date", "Duration", "Description", "Images", "AI summary"}

// RowSource returns every row of a user.
type RowSource interface {
	UserRows(ctx context.Context, userID string) ([]daylog.Row, error)
}

// Exporter builds reports from the daily log and publishes them.
type Exporter struct {
	rows      RowSource
	publisher Publisher
	now       func() time.Time
	token     func() string
}

func NewExporter(rows RowSource, publisher Publisher) *Exporter {
	return &Exporter{rows: rows, publisher: publisher, now: time.Now, token: uuid.NewString}
}

// Export builds the report for userID and returns a link to it.
func (e *Exporter) Export(ctx context.Context, userID string) (string, error) {
	rows, err := e.rows.UserRows(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("reading rows: %w", err)
	}
	if len(rows) == 0 {
		return "", ErrNoRows
	}

	buf, err := Build(rows)
	if err != nil {
		return "", err
	}

	// Local reports are served without auth, so the name must not be guessable.
	name := fmt.Sprintf("report_%s_%s.xlsx", e.now().Format("20060102_150405"), e.token())
	link, err := e.publisher.Publish(ctx, userID, name, buf)
	if err != nil {
		return "", fmt.Errorf("publishing report: %w", err)
	}
	slog.Info("report exported", "user", userID, "rows", len(rows), "file", name)
	return link, nil
}

// Build renders rows into an xlsx workbook.
func Build(rows []daylog.Row) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		summary := r.AIResponse
		if summary == "" {
			summary = NoSummaryHint
		}
		values := []interface{}{r.Date, duration(r), r.Description, r.FolderLink, summary}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if err := style(f, len(rows)+1); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf, nil
}

func style(f *excelize.File, lastRow int) error {
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", "E1", bold); err != nil {
		return err
	}

	wrap, err := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}})
	if err != nil {
		return err
	}
	if lastRow > 1 {
		if err := f.SetCellStyle(sheetName, "A2", fmt.Sprintf("E%d", lastRow), wrap); err != nil {
			return err
		}
	}

	for col, width := range map[string]float64{"A": 12, "B": 10, "C": 60, "D": 40, "E": 60} {
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			return err
		}
	}
	return nil
}

// duration prefers the table's rendered value; formulas stored verbatim are
// recomputed from the first/last seen times.
func duration(r daylog.Row) string {
	if r.Duration != "" && !strings.HasPrefix(r.Duration, "=") {
		return r.Duration
	}
	d := r.Elapsed()
	return fmt.Sprintf("%d:%02d:%02d", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
}
