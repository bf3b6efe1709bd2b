package orchestrator

import "sync"

// userLanes chains work per user: each entry waits for the one enqueued
// before it under the same key.
type userLanes struct {
	mu    sync.Mutex
	tails map[string]chan struct{}
}

func newUserLanes() *userLanes {
	return &userLanes{tails: make(map[string]chan struct{})}
}

// enter registers a new tail for key. The caller waits on prev (nil when the
// lane was idle) and must call done when finished.
func (l *userLanes) enter(key string) (prev <-chan struct{}, done func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if tail, ok := l.tails[key]; ok {
		prev = tail
	}
	ch := make(chan struct{})
	l.tails[key] = ch

	return prev, func() {
		close(ch)
		l.mu.Lock()
		if l.tails[key] == ch {
			delete(l.tails, key)
		}
		l.mu.Unlock()
	}
}
