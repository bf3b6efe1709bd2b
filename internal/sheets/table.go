// Package sheets stores daily log rows in a Google Sheets spreadsheet.
package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/worklog-bot/worklog/internal/daylog"
)

const (
	inputRaw         = "RAW"
	inputUserEntered = "USER_ENTERED"
)

// Table implements daylog.Table over one sheet of a spreadsheet.
type Table struct {
	svc           *sheets.Service
	spreadsheetID string
	sheet         string
}

// New creates a Table. An empty sheet name addresses the first sheet.
func New(ctx context.Context, spreadsheetID, sheet string, opts ...option.ClientOption) (*Table, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}
	slog.Info("using Google Sheets daily log", "spreadsheet", spreadsheetID, "sheet", sheet)
	return &Table{svc: svc, spreadsheetID: spreadsheetID, sheet: sheet}, nil
}

func (t *Table) a1(ref string) string {
	if t.sheet == "" {
		return ref
	}
	return "'" + strings.ReplaceAll(t.sheet, "'", "''") + "'!" + ref
}

func (t *Table) Rows(ctx context.Context, from, to daylog.Column) ([][]string, error) {
	rng := t.a1(fmt.Sprintf("%c:%c", from, to))
	resp, err := t.svc.Spreadsheets.Values.Get(t.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rng, err)
	}
	return toStrings(resp.Values), nil
}

func (t *Table) Get(ctx context.Context, cell daylog.Cell) (string, error) {
	rng := t.a1(cell.String())
	resp, err := t.svc.Spreadsheets.Values.Get(t.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", rng, err)
	}
	values := toStrings(resp.Values)
	if len(values) == 0 || len(values[0]) == 0 {
		return "", nil
	}
	return values[0][0], nil
}

// Update writes verbatim values and user-entered values in one batch each.
func (t *Table) Update(ctx context.Context, updates []daylog.CellUpdate) error {
	var raw, entered []*sheets.ValueRange
	for _, u := range updates {
		vr := &sheets.ValueRange{
			Range:  t.a1(u.Cell.String()),
			Values: [][]interface{}{{u.Value}},
		}
		if u.UserEntered {
			entered = append(entered, vr)
		} else {
			raw = append(raw, vr)
		}
	}

	for _, batch := range []struct {
		option string
		data   []*sheets.ValueRange
	}{
		{inputRaw, raw},
		{inputUserEntered, entered},
	} {
		if len(batch.data) == 0 {
			continue
		}
		req := &sheets.BatchUpdateValuesRequest{
			ValueInputOption: batch.option,
			Data:             batch.data,
		}
		if _, err := t.svc.Spreadsheets.Values.BatchUpdate(t.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("batch updating %d cells: %w", len(batch.data), err)
		}
	}
	return nil
}

func (t *Table) Append(ctx context.Context, row []string) error {
	values := make([]interface{}, len(row))
	for i, v := range row {
		values[i] = v
	}
	_, err := t.svc.Spreadsheets.Values.
		Append(t.spreadsheetID, t.a1("A1"), &sheets.ValueRange{Values: [][]interface{}{values}}).
		ValueInputOption(inputUserEntered).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("appending row: %w", err)
	}
	return nil
}

func toStrings(values [][]interface{}) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		out[i] = make([]string, len(row))
		for j, v := range row {
			if v != nil {
				out[i][j] = fmt.Sprint(v)
			}
		}
	}
	return out
}
