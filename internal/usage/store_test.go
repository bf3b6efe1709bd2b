package usage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu     sync.Mutex
	counts map[string]int
	limits map[string]int
	err    error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{counts: map[string]int{}, limits: map[string]int{}}
}

func key(userID, command, date string) string { return userID + "|" + command + "|" + date }

func (f *fakeRepo) GetCount(_ context.Context, userID, command, date string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	return f.counts[key(userID, command, date)], nil
}

func (f *fakeRepo) Increment(_ context.Context, userID, command, date string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.counts[key(userID, command, date)]++
	return f.counts[key(userID, command, date)], nil
}

func (f *fakeRepo) GetLimit(_ context.Context, userID string) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, false, f.err
	}
	l, ok := f.limits[userID]
	return l, ok, nil
}

func (f *fakeRepo) SetLimit(_ context.Context, userID string, limit int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.limits[userID] = limit
	return nil
}

func (f *fakeRepo) CountsForDate(_ context.Context, userID, date string) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := map[string]int{}
	for _, cmd := range []string{"send_command", "get_command"} {
		if c, ok := f.counts[key(userID, cmd, date)]; ok {
			out[cmd] = c
		}
	}
	return out, nil
}

func (f *fakeRepo) DeleteBefore(context.Context, string) (int64, error) { return 0, f.err }
func (f *fakeRepo) Ping(context.Context) error                           { return f.err }

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestStore_GetUsageDefaultsToZero(t *testing.T) {
	s := NewStore(newFakeRepo(), time.UTC)
	assert.Equal(t, 0, s.GetUsage(context.Background(), "alice@example.org", "send_command"))
}

func TestStore_IncrementThenRead(t *testing.T) {
	s := NewStore(newFakeRepo(), time.UTC)
	ctx := context.Background()

	require.True(t, s.IncrementUsage(ctx, "alice@example.org", "send_command"))
	require.True(t, s.IncrementUsage(ctx, "alice@example.org", "send_command"))

	assert.Equal(t, 2, s.GetUsage(ctx, "alice@example.org", "send_command"))
	assert.Equal(t, 0, s.GetUsage(ctx, "alice@example.org", "get_command"))
	assert.Equal(t, 0, s.GetUsage(ctx, "bob@example.org", "send_command"))
}

func TestStore_NewDayStartsAtZero(t *testing.T) {
	day := time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)
	now := day
	s := NewStore(newFakeRepo(), time.UTC).WithClock(func() time.Time { return now })
	ctx := context.Background()

	require.True(t, s.IncrementUsage(ctx, "alice@example.org", "get_command"))
	assert.Equal(t, 1, s.GetUsage(ctx, "alice@example.org", "get_command"))

	now = day.Add(2 * time.Minute)
	assert.Equal(t, 0, s.GetUsage(ctx, "alice@example.org", "get_command"))
}

func TestStore_TodayUsesLocation(t *testing.T) {
	madrid, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)

	// 23:30 UTC is already the next day in Madrid.
	s := NewStore(newFakeRepo(), madrid).WithClock(fixedClock(time.Date(2026, 6, 1, 23, 30, 0, 0, time.UTC)))
	assert.Equal(t, "2026-06-02", s.Today())
}

func TestStore_LimitOverride(t *testing.T) {
	s := NewStore(newFakeRepo(), time.UTC)
	ctx := context.Background()

	assert.Equal(t, 1, s.GetUserLimit(ctx, "alice@example.org", 1))

	require.True(t, s.SetUserLimit(ctx, "alice@example.org", 3))
	assert.Equal(t, 3, s.GetUserLimit(ctx, "alice@example.org", 1))

	require.True(t, s.SetUserLimit(ctx, "alice@example.org", 5))
	assert.Equal(t, 5, s.GetUserLimit(ctx, "alice@example.org", 1))
}

func TestStore_RejectsNonPositiveLimit(t *testing.T) {
	repo := newFakeRepo()
	s := NewStore(repo, time.UTC)

	assert.False(t, s.SetUserLimit(context.Background(), "alice@example.org", 0))
	assert.False(t, s.SetUserLimit(context.Background(), "alice@example.org", -2))
	assert.Empty(t, repo.limits)
}

func TestStore_DegradesOnStorageErrors(t *testing.T) {
	repo := newFakeRepo()
	repo.err = errors.New("database is locked")
	s := NewStore(repo, time.UTC)
	ctx := context.Background()

	assert.Equal(t, 0, s.GetUsage(ctx, "alice@example.org", "send_command"))
	assert.Equal(t, 4, s.GetUserLimit(ctx, "alice@example.org", 4))
	assert.False(t, s.IncrementUsage(ctx, "alice@example.org", "send_command"))
	assert.False(t, s.SetUserLimit(ctx, "alice@example.org", 2))

	_, err := s.Snapshot(ctx, "alice@example.org", 1)
	assert.Error(t, err)
}

func TestStore_Snapshot(t *testing.T) {
	s := NewStore(newFakeRepo(), time.UTC).WithClock(fixedClock(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)))
	ctx := context.Background()

	require.True(t, s.IncrementUsage(ctx, "alice@example.org", "send_command"))

	snap, err := s.Snapshot(ctx, "alice@example.org", 1)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-14", snap.Date)
	assert.Equal(t, 1, snap.Limit)
	assert.False(t, snap.HasOverride)
	assert.Equal(t, map[string]int{"send_command": 1}, snap.Counts)
}
