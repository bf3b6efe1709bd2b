package usage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner periodically deletes usage rows past the retention window.
type Pruner struct {
	store         *Store
	retentionDays int
	cron          *cron.Cron
}

// NewPruner schedules pruning with a standard five-field cron spec in loc.
func NewPruner(store *Store, retentionDays int, schedule string, loc *time.Location) (*Pruner, error) {
	if loc == nil {
		loc = time.UTC
	}
	p := &Pruner{
		store:         store,
		retentionDays: retentionDays,
		cron:          cron.New(cron.WithLocation(loc)),
	}
	if _, err := p.cron.AddFunc(schedule, p.run); err != nil {
		return nil, fmt.Errorf("scheduling usage pruning %q: %w", schedule, err)
	}
	return p, nil
}

// Start runs the schedule until ctx is cancelled.
func (p *Pruner) Start(ctx context.Context) {
	p.cron.Start()
	slog.Info("usage pruner started", "retention_days", p.retentionDays)
	<-ctx.Done()
	<-p.cron.Stop().Done()
}

func (p *Pruner) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := p.store.Prune(ctx, p.retentionDays)
	if err != nil {
		slog.Error("pruning usage rows", "error", err)
		return
	}
	slog.Info("pruned usage rows", "deleted", n, "retention_days", p.retentionDays)
}
