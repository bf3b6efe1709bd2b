package usage

import "context"

// Repository is the durable backing of the usage store. Dates are DateLayout
// strings. Missing rows are not errors: counts read as 0 and limits as absent.
type Repository interface {
	GetCount(ctx context.Context, userID, command, date string) (int, error)
	// Increment creates the row at 1 or adds one atomically, returning the new count.
	Increment(ctx context.Context, userID, command, date string) (int, error)
	GetLimit(ctx context.Context, userID string) (limit int, ok bool, err error)
	SetLimit(ctx context.Context, userID string, limit int) error
	CountsForDate(ctx context.Context, userID, date string) (map[string]int, error)
	// DeleteBefore removes usage rows dated strictly before date.
	DeleteBefore(ctx context.Context, date string) (int64, error)
	Ping(ctx context.Context) error
}
