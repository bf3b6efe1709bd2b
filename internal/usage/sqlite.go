package usage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQLiteRepository stores usage in a local SQLite file.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLiteRepository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) GetCount(ctx context.Context, userID, command, date string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count FROM usage_limits WHERE user_id = ? AND command = ? AND date = ?`,
		userID, command, date,
	).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("getting usage count: %w", err)
	}
	return count, nil
}

func (r *SQLiteRepository) Increment(ctx context.Context, userID, command, date string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO usage_limits (user_id, command, date, count)
		 VALUES (?, ?, ?, 1)
		 ON CONFLICT (user_id, command, date)
		 DO UPDATE SET count = usage_limits.count + 1, updated_at = CURRENT_TIMESTAMP
		 RETURNING count`,
		userID, command, date,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("incrementing usage: %w", err)
	}
	return count, nil
}

func (r *SQLiteRepository) GetLimit(ctx context.Context, userID string) (int, bool, error) {
	var limit int
	err := r.db.QueryRowContext(ctx,
		`SELECT max_uses FROM user_configs WHERE user_id = ?`, userID,
	).Scan(&limit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("getting user limit: %w", err)
	}
	return limit, true, nil
}

func (r *SQLiteRepository) SetLimit(ctx context.Context, userID string, limit int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_configs (user_id, max_uses) VALUES (?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET max_uses = excluded.max_uses, updated_at = CURRENT_TIMESTAMP`,
		userID, limit)
	if err != nil {
		return fmt.Errorf("setting user limit: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CountsForDate(ctx context.Context, userID, date string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT command, count FROM usage_limits WHERE user_id = ? AND date = ?`, userID, date)
	if err != nil {
		return nil, fmt.Errorf("listing usage counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var command string
		var count int
		if err := rows.Scan(&command, &count); err != nil {
			return nil, fmt.Errorf("scanning usage count: %w", err)
		}
		counts[command] = count
	}
	return counts, rows.Err()
}

func (r *SQLiteRepository) DeleteBefore(ctx context.Context, date string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM usage_limits WHERE date < ?`, date)
	if err != nil {
		return 0, fmt.Errorf("pruning usage: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
