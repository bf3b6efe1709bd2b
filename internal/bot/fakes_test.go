package bot

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/worklog-bot/worklog/internal/auth"
	"github.com/worklog-bot/worklog/internal/drive"
	inats "github.com/worklog-bot/worklog/internal/nats"
	"github.com/worklog-bot/worklog/internal/usage"
)

type fakeUsage struct {
	mu            sync.Mutex
	counts        map[string]int
	limits        map[string]int
	failIncrement bool
}

func newFakeUsage() *fakeUsage {
	return &fakeUsage{counts: map[string]int{}, limits: map[string]int{}}
}

func (f *fakeUsage) GetUsage(_ context.Context, userID, command string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[userID+"|"+command]
}

func (f *fakeUsage) IncrementUsage(_ context.Context, userID, command string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failIncrement {
		return false
	}
	f.counts[userID+"|"+command]++
	return true
}

func (f *fakeUsage) GetUserLimit(_ context.Context, userID string, def int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.limits[userID]; ok {
		return l
	}
	return def
}

func (f *fakeUsage) SetUserLimit(_ context.Context, userID string, limit int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limits[userID] = limit
	return true
}

func (f *fakeUsage) Snapshot(ctx context.Context, userID string, def int) (*usage.Snapshot, error) {
	f.mu.Lock()
	counts := map[string]int{}
	for _, cmd := range []string{"send_command", "get_command"} {
		if n := f.counts[userID+"|"+cmd]; n > 0 {
			counts[cmd] = n
		}
	}
	_, override := f.limits[userID]
	f.mu.Unlock()
	return &usage.Snapshot{UserID: userID, Limit: f.GetUserLimit(ctx, userID, def), HasOverride: override, Counts: counts}, nil
}

type fakeSummarizer struct {
	calls int
	got   string
	out   string
	err   error
}

func (f *fakeSummarizer) Summarize(_ context.Context, text string) (string, error) {
	f.calls++
	f.got = text
	return f.out, f.err
}

type fakeExporter struct {
	link string
	err  error
}

func (f fakeExporter) Export(context.Context, string) (string, error) { return f.link, f.err }

type fakePhotos struct {
	user, day, name, desc string
	data                  []byte
}

func (f *fakePhotos) UploadPhoto(_ context.Context, userID, day, filename, description string, r io.Reader) (*drive.File, *drive.File, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}
	f.user, f.day, f.name, f.desc, f.data = userID, day, filename, description, b
	return &drive.File{ID: "f1", Name: filename}, &drive.File{ID: "d1", Name: day, Link: "https://drive.google.com/drive/folders/d1"}, nil
}

type recordingAudit struct {
	mu     sync.Mutex
	events []inats.AuditEvent
}

func (r *recordingAudit) PublishAuditEvent(_ context.Context, e inats.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingAudit) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType
	}
	return out
}

type fakeAccess struct {
	authed   map[string]bool
	attempts map[string]int
	password string
	max      int
	err      error
}

func (f *fakeAccess) Enabled() bool { return true }

func (f *fakeAccess) Authenticated(_ context.Context, userID string) (bool, error) {
	return f.authed[userID], f.err
}

func (f *fakeAccess) Attempt(_ context.Context, userID, text string) (auth.Result, error) {
	if f.err != nil {
		return auth.Rejected, f.err
	}
	if f.attempts[userID] >= f.max {
		return auth.Blocked, nil
	}
	if text == f.password {
		f.authed[userID] = true
		return auth.Accepted, nil
	}
	f.attempts[userID]++
	if f.attempts[userID] >= f.max {
		return auth.Blocked, nil
	}
	return auth.Rejected, nil
}

func (f *fakeAccess) Remaining(_ context.Context, userID string) (int, error) {
	return f.max - f.attempts[userID], nil
}

type fakeThrottle struct{ allowed bool }

func (f fakeThrottle) CheckAndIncrement(context.Context, string, int) (bool, error) {
	return f.allowed, nil
}

var errBoom = errors.New("sheet exploded")
