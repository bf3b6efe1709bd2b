package daylog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/worklog-bot/worklog/internal/metrics"
)

// Log reads and writes daily log rows. Every call re-reads the table; nothing
// is cached between calls. Writes to one (user, date) row are serialised by
// the Locker so concurrent messages cannot create duplicate rows.
type Log struct {
	table  Table
	locker Locker
	loc    *time.Location
	now    func() time.Time
}

// NewLog creates a Log. A nil locker disables write serialisation.
func NewLog(table Table, locker Locker, loc *time.Location) *Log {
	if loc == nil {
		loc = time.UTC
	}
	return &Log{table: table, locker: locker, loc: loc, now: time.Now}
}

// WithClock replaces the time source.
func (l *Log) WithClock(now func() time.Time) *Log {
	l.now = now
	return l
}

// Today returns the current date in DateLayout.
func (l *Log) Today() string {
	return l.now().In(l.loc).Format(DateLayout)
}

func (l *Log) clock() string {
	return l.now().In(l.loc).Format(TimeLayout)
}

// FindRow locates the row of (userID, date).
func (l *Log) FindRow(ctx context.Context, userID, date string) (int, bool, error) {
	defer observe("find_row", time.Now())
	row, ok, err := FindRow(ctx, l.table, userID, date)
	if err != nil {
		return 0, false, fmt.Errorf("locating row: %w", err)
	}
	return row, ok, nil
}

// AppendText adds line to the day's description, creating the row if needed.
func (l *Log) AppendText(ctx context.Context, userID, date, line string) error {
	defer observe("append_text", time.Now())
	return l.withRowLock(ctx, userID, date, func() error {
		row, ok, err := l.FindRow(ctx, userID, date)
		if err != nil {
			return err
		}
		if !ok {
			return l.create(ctx, userID, date, line, NoFolderYet)
		}

		current, err := l.table.Get(ctx, Cell{ColDescription, row})
		if err != nil {
			return fmt.Errorf("reading description: %w", err)
		}
		desc := line
		if current != "" {
			desc = current + "\n" + line
		}

		updates := []CellUpdate{{Cell: Cell{ColDescription, row}, Value: desc}}
		timers, err := l.timerUpdates(ctx, row)
		if err != nil {
			return err
		}
		if err := l.table.Update(ctx, append(updates, timers...)); err != nil {
			return fmt.Errorf("writing description: %w", err)
		}
		return nil
	})
}

// SetLink overwrites the day's folder link, creating the row if needed.
func (l *Log) SetLink(ctx context.Context, userID, date, link string) error {
	defer observe("set_link", time.Now())
	return l.withRowLock(ctx, userID, date, func() error {
		row, ok, err := l.FindRow(ctx, userID, date)
		if err != nil {
			return err
		}
		if !ok {
			return l.create(ctx, userID, date, "", link)
		}

		updates := []CellUpdate{{Cell: Cell{ColFolder, row}, Value: link}}
		timers, err := l.timerUpdates(ctx, row)
		if err != nil {
			return err
		}
		if err := l.table.Update(ctx, append(updates, timers...)); err != nil {
			return fmt.Errorf("writing folder link: %w", err)
		}
		return nil
	})
}

// SetAIResponse stores the AI summary on an existing row. Without a row the
// write is dropped: a summary needs logged messages to belong to.
func (l *Log) SetAIResponse(ctx context.Context, userID, date, text string) error {
	defer observe("set_ai_response", time.Now())
	return l.withRowLock(ctx, userID, date, func() error {
		row, ok, err := l.FindRow(ctx, userID, date)
		if err != nil {
			return err
		}
		if !ok {
			slog.Debug("daylog: no row for AI response, dropping", "user", userID, "date", date)
			return nil
		}
		if err := l.table.Update(ctx, []CellUpdate{{Cell: Cell{ColAIResponse, row}, Value: text}}); err != nil {
			return fmt.Errorf("writing AI response: %w", err)
		}
		return nil
	})
}

// DeleteLine removes the line at 0-based index from the day's description.
// It reports false when the row is absent, the description is empty or the
// index is out of range.
func (l *Log) DeleteLine(ctx context.Context, userID, date string, index int) (bool, error) {
	defer observe("delete_line", time.Now())
	deleted := false
	err := l.withRowLock(ctx, userID, date, func() error {
		row, ok, err := l.FindRow(ctx, userID, date)
		if err != nil || !ok {
			return err
		}

		current, err := l.table.Get(ctx, Cell{ColDescription, row})
		if err != nil {
			return fmt.Errorf("reading description: %w", err)
		}
		lines := splitLines(current)
		if index < 0 || index >= len(lines) {
			return nil
		}

		removed := lines[index]
		lines = append(lines[:index], lines[index+1:]...)
		desc := strings.Join(lines, "\n")

		updates := []CellUpdate{{Cell: Cell{ColDescription, row}, Value: desc}}
		timers, err := l.timerUpdates(ctx, row)
		if err != nil {
			return err
		}
		if err := l.table.Update(ctx, append(updates, timers...)); err != nil {
			return fmt.Errorf("writing description: %w", err)
		}
		slog.Info("daylog: line deleted", "user", userID, "date", date, "index", index, "line", removed)
		deleted = true
		return nil
	})
	return deleted, err
}

// Description returns the day's description, "" when there is no row.
func (l *Log) Description(ctx context.Context, userID, date string) (string, error) {
	return l.read(ctx, userID, date, ColDescription)
}

// Messages returns the day's logged lines, nil when none.
func (l *Log) Messages(ctx context.Context, userID, date string) ([]string, error) {
	desc, err := l.Description(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	return splitLines(desc), nil
}

// AIResponse returns the stored AI summary, "" when absent.
func (l *Log) AIResponse(ctx context.Context, userID, date string) (string, error) {
	return l.read(ctx, userID, date, ColAIResponse)
}

// UserRows returns every row of userID in table order.
func (l *Log) UserRows(ctx context.Context, userID string) ([]Row, error) {
	defer observe("user_rows", time.Now())
	values, err := l.table.Rows(ctx, ColUser, ColLastSeen)
	if err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}

	var rows []Row
	for i, v := range values {
		if len(v) > 0 && v[0] == userID {
			rows = append(rows, parseRow(i+1, v))
		}
	}
	return rows, nil
}

func (l *Log) read(ctx context.Context, userID, date string, col Column) (string, error) {
	row, ok, err := l.FindRow(ctx, userID, date)
	if err != nil || !ok {
		return "", err
	}
	v, err := l.table.Get(ctx, Cell{col, row})
	if err != nil {
		return "", fmt.Errorf("reading %c%d: %w", col, row, err)
	}
	return v, nil
}

func (l *Log) create(ctx context.Context, userID, date, description, folder string) error {
	if err := l.table.Append(ctx, newRow(userID, date, description, folder, l.clock())); err != nil {
		return fmt.Errorf("appending row: %w", err)
	}
	slog.Debug("daylog: row created", "user", userID, "date", date)
	return nil
}

// timerUpdates sets first seen when empty, always bumps last seen and
// rewrites the duration formula for the row.
func (l *Log) timerUpdates(ctx context.Context, row int) ([]CellUpdate, error) {
	first, err := l.table.Get(ctx, Cell{ColFirstSeen, row})
	if err != nil {
		return nil, fmt.Errorf("reading first seen: %w", err)
	}

	now := l.clock()
	var updates []CellUpdate
	if first == "" {
		updates = append(updates, CellUpdate{Cell: Cell{ColFirstSeen, row}, Value: now, UserEntered: true})
	}
	return append(updates,
		CellUpdate{Cell: Cell{ColLastSeen, row}, Value: now, UserEntered: true},
		CellUpdate{Cell: Cell{ColDuration, row}, Value: durationFormula(row), UserEntered: true},
	), nil
}

func (l *Log) withRowLock(ctx context.Context, userID, date string, fn func() error) error {
	if l.locker == nil {
		return fn()
	}
	unlock, err := l.locker.Lock(ctx, userID+":"+date)
	if err != nil {
		if errors.Is(err, ErrLockTimeout) || ctx.Err() != nil {
			return err
		}
		slog.Warn("daylog: row lock unavailable, writing without it", "error", err, "user", userID)
		return fn()
	}
	defer unlock()
	return fn()
}

func observe(op string, start time.Time) {
	metrics.TableOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
