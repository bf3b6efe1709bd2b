package daylog

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const user = "alice@example.org"

func newTestLog(t *testing.T) (*Log, *MemoryTable, *time.Time) {
	t.Helper()
	table := NewMemoryTable()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	l := NewLog(table, NewLocalLocker(), time.UTC).WithClock(func() time.Time { return now })
	return l, table, &now
}

func rowValues(t *testing.T, table *MemoryTable, row int) Row {
	t.Helper()
	rows, err := table.Rows(context.Background(), ColUser, ColLastSeen)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), row)
	return parseRow(row, rows[row-1])
}

func TestLog_Today(t *testing.T) {
	l, _, _ := newTestLog(t)
	assert.Equal(t, "14-03-2026", l.Today())
}

func TestLog_AppendTextCreatesRow(t *testing.T) {
	l, table, _ := newTestLog(t)
	ctx := context.Background()

	require.NoError(t, l.AppendText(ctx, user, l.Today(), "fix bug"))

	require.Equal(t, 1, table.Len())
	row := rowValues(t, table, 1)
	assert.Equal(t, user, row.UserID)
	assert.Equal(t, "14-03-2026", row.Date)
	assert.Equal(t, "fix bug", row.Description)
	assert.Equal(t, NoFolderYet, row.FolderLink)
	assert.Equal(t, `=INDIRECT("H"&ROW())-INDIRECT("G"&ROW())`, row.Duration)
	assert.Empty(t, row.AIResponse)
	assert.Equal(t, "09:00:00", row.FirstSeen)
	assert.Equal(t, "09:00:00", row.LastSeen)
}

func TestLog_AppendTextRoundTrip(t *testing.T) {
	l, table, now := newTestLog(t)
	ctx := context.Background()
	date := l.Today()

	require.NoError(t, l.AppendText(ctx, user, date, "a"))
	*now = now.Add(90 * time.Minute)
	require.NoError(t, l.AppendText(ctx, user, date, "b"))

	desc, err := l.Description(ctx, user, date)
	require.NoError(t, err)
	assert.Equal(t, "a\nb", desc)
	assert.Equal(t, 1, table.Len())

	row := rowValues(t, table, 1)
	assert.Equal(t, "09:00:00", row.FirstSeen)
	assert.Equal(t, "10:30:00", row.LastSeen)
	assert.Equal(t, "=H1-G1", row.Duration)
	assert.Equal(t, 90*time.Minute, row.Elapsed())

	ok, err := l.DeleteLine(ctx, user, date, 0)
	require.NoError(t, err)
	assert.True(t, ok)

	desc, err = l.Description(ctx, user, date)
	require.NoError(t, err)
	assert.Equal(t, "b", desc)
}

func TestLog_AppendTextKeepsSurroundingWhitespace(t *testing.T) {
	l, _, _ := newTestLog(t)
	ctx := context.Background()
	date := l.Today()

	require.NoError(t, l.AppendText(ctx, user, date, "  padded  "))
	require.NoError(t, l.AppendText(ctx, user, date, "second"))

	msgs, err := l.Messages(ctx, user, date)
	require.NoError(t, err)
	assert.Equal(t, []string{"  padded  ", "second"}, msgs)
}

func TestLog_MultilineBodyNumbersEachLine(t *testing.T) {
	l, _, _ := newTestLog(t)
	ctx := context.Background()
	date := l.Today()

	require.NoError(t, l.AppendText(ctx, user, date, "standup"))
	require.NoError(t, l.AppendText(ctx, user, date, "fix bug\ndeploy"))

	msgs, err := l.Messages(ctx, user, date)
	require.NoError(t, err)
	assert.Equal(t, []string{"standup", "fix bug", "deploy"}, msgs)

	// Each embedded line is its own entry for /list and /delete.
	ok, err := l.DeleteLine(ctx, user, date, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	desc, err := l.Description(ctx, user, date)
	require.NoError(t, err)
	assert.Equal(t, "standup\ndeploy", desc)
}

func TestLog_AppendTextFillsMissingFirstSeen(t *testing.T) {
	l, table, _ := newTestLog(t)
	ctx := context.Background()
	require.NoError(t, table.Append(ctx, []string{user, l.Today(), "legacy"}))

	require.NoError(t, l.AppendText(ctx, user, l.Today(), "new"))

	row := rowValues(t, table, 1)
	assert.Equal(t, "legacy\nnew", row.Description)
	assert.Equal(t, "09:00:00", row.FirstSeen)
	assert.Equal(t, "09:00:00", row.LastSeen)
	assert.Equal(t, "=H1-G1", row.Duration)
}

func TestLog_SetLink(t *testing.T) {
	l, table, now := newTestLog(t)
	ctx := context.Background()
	date := l.Today()

	require.NoError(t, l.SetLink(ctx, user, date, "https://drive.example/folder1"))
	row := rowValues(t, table, 1)
	assert.Empty(t, row.Description)
	assert.Equal(t, "https://drive.example/folder1", row.FolderLink)

	*now = now.Add(time.Hour)
	require.NoError(t, l.SetLink(ctx, user, date, "https://drive.example/folder2"))
	row = rowValues(t, table, 1)
	assert.Equal(t, "https://drive.example/folder2", row.FolderLink)
	assert.Equal(t, "10:00:00", row.LastSeen)
	assert.Equal(t, 1, table.Len())
}

func TestLog_SetAIResponseWithoutRowIsNoop(t *testing.T) {
	l, table, _ := newTestLog(t)
	ctx := context.Background()
	date := l.Today()

	require.NoError(t, l.SetAIResponse(ctx, user, date, "x"))
	assert.Zero(t, table.Len())

	resp, err := l.AIResponse(ctx, user, date)
	require.NoError(t, err)
	assert.Empty(t, resp)
}

func TestLog_SetAIResponse(t *testing.T) {
	l, table, _ := newTestLog(t)
	ctx := context.Background()
	date := l.Today()

	require.NoError(t, l.AppendText(ctx, user, date, "fix bug"))
	require.NoError(t, l.SetAIResponse(ctx, user, date, "Fixed a bug."))
	require.NoError(t, l.SetAIResponse(ctx, user, date, "Fixed a bug today."))

	resp, err := l.AIResponse(ctx, user, date)
	require.NoError(t, err)
	assert.Equal(t, "Fixed a bug today.", resp)
	assert.Equal(t, "fix bug", rowValues(t, table, 1).Description)
}

func TestLog_DeleteLineFailures(t *testing.T) {
	l, _, _ := newTestLog(t)
	ctx := context.Background()
	date := l.Today()

	ok, err := l.DeleteLine(ctx, user, date, 0)
	require.NoError(t, err)
	assert.False(t, ok, "no row")

	require.NoError(t, l.SetLink(ctx, user, date, "https://drive.example/f"))
	ok, err = l.DeleteLine(ctx, user, date, 0)
	require.NoError(t, err)
	assert.False(t, ok, "empty description")

	require.NoError(t, l.AppendText(ctx, user, date, "only"))
	for _, idx := range []int{-1, 1, 5} {
		ok, err = l.DeleteLine(ctx, user, date, idx)
		require.NoError(t, err)
		assert.False(t, ok, "index %d", idx)
	}

	desc, err := l.Description(ctx, user, date)
	require.NoError(t, err)
	assert.Equal(t, "only", desc)
}

func TestLog_DeleteMiddleLine(t *testing.T) {
	l, _, _ := newTestLog(t)
	ctx := context.Background()
	date := l.Today()
	for _, line := range []string{"one", "two", "three"} {
		require.NoError(t, l.AppendText(ctx, user, date, line))
	}

	ok, err := l.DeleteLine(ctx, user, date, 1)
	require.NoError(t, err)
	require.True(t, ok)

	msgs, err := l.Messages(ctx, user, date)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "three"}, msgs)
}

func TestLog_MessagesEmpty(t *testing.T) {
	l, _, _ := newTestLog(t)
	msgs, err := l.Messages(context.Background(), user, l.Today())
	require.NoError(t, err)
	assert.Nil(t, msgs)
}

func TestLog_UserRows(t *testing.T) {
	l, _, now := newTestLog(t)
	ctx := context.Background()

	require.NoError(t, l.AppendText(ctx, user, l.Today(), "day one"))
	require.NoError(t, l.AppendText(ctx, "bob@example.org", l.Today(), "bob"))
	*now = now.AddDate(0, 0, 1)
	require.NoError(t, l.AppendText(ctx, user, l.Today(), "day two"))

	rows, err := l.UserRows(ctx, user)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "14-03-2026", rows[0].Date)
	assert.Equal(t, "15-03-2026", rows[1].Date)
	assert.Equal(t, 3, rows[1].Index)
	assert.Equal(t, []string{"day two"}, rows[1].Messages())
}

func TestLog_ConcurrentAppendsShareOneRow(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	table := NewMemoryTable()
	l := NewLog(table, NewRedisLocker(rdb, 5*time.Second, 5*time.Second), time.UTC)
	ctx := context.Background()
	date := l.Today()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, l.AppendText(ctx, user, date, fmt.Sprintf("line %d", i)))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, table.Len())
	msgs, err := l.Messages(ctx, user, date)
	require.NoError(t, err)
	assert.Len(t, msgs, 10)
}

func TestLog_WritesWithoutLockWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	mr.Close()

	table := NewMemoryTable()
	l := NewLog(table, NewRedisLocker(rdb, time.Second, time.Second), time.UTC)

	require.NoError(t, l.AppendText(context.Background(), user, l.Today(), "still logged"))
	assert.Equal(t, 1, table.Len())
}
