package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores usage in PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) GetCount(ctx context.Context, userID, command, date string) (int, error) {
	day, err := parseDate(date)
	if err != nil {
		return 0, err
	}

	var count int
	err = r.pool.QueryRow(ctx,
		`SELECT count FROM usage_limits WHERE user_id = $1 AND command = $2 AND date = $3`,
		userID, command, day,
	).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("getting usage count: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) Increment(ctx context.Context, userID, command, date string) (int, error) {
	day, err := parseDate(date)
	if err != nil {
		return 0, err
	}

	var count int
	err = r.pool.QueryRow(ctx,
		`INSERT INTO usage_limits (user_id, command, date, count)
		 VALUES ($1, $2, $3, 1)
		 ON CONFLICT (user_id, command, date)
		 DO UPDATE SET count = usage_limits.count + 1, updated_at = NOW()
		 RETURNING count`,
		userID, command, day,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("incrementing usage: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) GetLimit(ctx context.Context, userID string) (int, bool, error) {
	var limit int
	err := r.pool.QueryRow(ctx,
		`SELECT max_uses FROM user_configs WHERE user_id = $1`, userID,
	).Scan(&limit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("getting user limit: %w", err)
	}
	return limit, true, nil
}

func (r *PostgresRepository) SetLimit(ctx context.Context, userID string, limit int) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_configs (user_id, max_uses) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET max_uses = EXCLUDED.max_uses, updated_at = NOW()`,
		userID, limit)
	if err != nil {
		return fmt.Errorf("setting user limit: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CountsForDate(ctx context.Context, userID, date string) (map[string]int, error) {
	day, err := parseDate(date)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT command, count FROM usage_limits WHERE user_id = $1 AND date = $2`, userID, day)
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

func (r *PostgresRepository) DeleteBefore(ctx context.Context, date string) (int64, error) {
	day, err := parseDate(date)
	if err != nil {
		return 0, err
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM usage_limits WHERE date < $1`, day)
	if err != nil {
		return 0, fmt.Errorf("pruning usage: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func parseDate(date string) (time.Time, error) {
	day, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing usage date %q: %w", date, err)
	}
	return day, nil
}
