package quota

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	usage  map[string]int
	limits map[string]int
}

func newMemStore() *memStore {
	return &memStore{usage: map[string]int{}, limits: map[string]int{}}
}

func (m *memStore) GetUsage(_ context.Context, userID, command string) int {
	return m.usage[userID+"|"+command]
}

func (m *memStore) IncrementUsage(_ context.Context, userID, command string) bool {
	m.usage[userID+"|"+command]++
	return true
}

func (m *memStore) GetUserLimit(_ context.Context, userID string, def int) int {
	if l, ok := m.limits[userID]; ok {
		return l
	}
	return def
}

func TestGate_AllowUsesDefaultLimit(t *testing.T) {
	store := newMemStore()
	g := NewGate(store, 1, "")
	ctx := context.Background()

	assert.True(t, g.Allow(ctx, "alice@example.org", CommandSend))
	require.True(t, g.Record(ctx, "alice@example.org", CommandSend))
	assert.False(t, g.Allow(ctx, "alice@example.org", CommandSend))

	// Other commands and users are counted separately.
	assert.True(t, g.Allow(ctx, "alice@example.org", CommandGet))
	assert.True(t, g.Allow(ctx, "bob@example.org", CommandSend))
}

func TestGate_AllowUsesOverride(t *testing.T) {
	store := newMemStore()
	store.limits["alice@example.org"] = 3
	store.usage["alice@example.org|"+CommandSend] = 2
	g := NewGate(store, 1, "")

	assert.True(t, g.Allow(context.Background(), "alice@example.org", CommandSend))
	store.usage["alice@example.org|"+CommandSend] = 3
	assert.False(t, g.Allow(context.Background(), "alice@example.org", CommandSend))
}

func TestGate_HasBypass(t *testing.T) {
	g := NewGate(newMemStore(), 1, "OpenSesame")

	tests := []struct {
		name string
		args []string
		want bool
	}{
		{"exact", []string{"OpenSesame"}, true},
		{"case insensitive", []string{"opensesame"}, true},
		{"substring of argument", []string{"please-OPENSESAME-now"}, true},
		{"second argument", []string{"hello", "xopensesamex"}, true},
		{"split across arguments", []string{"Open", "Sesame"}, false},
		{"absent", []string{"hello", "world"}, false},
		{"no args", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.HasBypass(tt.args))
		})
	}
}

func TestGate_EmptyTokenDisablesBypass(t *testing.T) {
	g := NewGate(newMemStore(), 1, "")
	assert.False(t, g.HasBypass([]string{"anything", ""}))
}

func TestGate_Decide(t *testing.T) {
	store := newMemStore()
	g := NewGate(store, 1, "letmein")
	ctx := context.Background()

	assert.Equal(t, Allowed, g.Decide(ctx, "alice@example.org", "append_text", nil))
	assert.Equal(t, Allowed, g.Decide(ctx, "alice@example.org", CommandSend, nil))

	store.usage["alice@example.org|"+CommandSend] = 1
	assert.Equal(t, Rejected, g.Decide(ctx, "alice@example.org", CommandSend, []string{"again"}))
	assert.Equal(t, Bypassed, g.Decide(ctx, "alice@example.org", CommandSend, []string{"LetMeIn"}))
}

func TestGate_IsGated(t *testing.T) {
	g := NewGate(newMemStore(), 1, "")
	assert.True(t, g.IsGated(CommandSend))
	assert.True(t, g.IsGated(CommandGet))
	assert.False(t, g.IsGated("list"))
	assert.False(t, g.IsGated("delete"))
}

func TestNewGate_ClampsDefaultLimit(t *testing.T) {
	assert.Equal(t, 1, NewGate(newMemStore(), 0, "").DefaultLimit())
}
