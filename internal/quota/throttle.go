package quota

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	throttleKeyPrefix = "throttle"
	throttleWindow    = time.Minute
)

// INCR then arm the expiry on the first hit so an idle slot cleans itself up.
var throttleScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// Throttle limits how many chat messages a user may send per minute,
// independent of the daily quota. Each minute is its own Redis counter.
type Throttle struct {
	rdb    redis.Scripter
	window time.Duration
	now    func() time.Time
}

// NewThrottle creates a new Redis-based throttle.
func NewThrottle(rdb redis.Scripter) *Throttle {
	return &Throttle{rdb: rdb, window: throttleWindow, now: time.Now}
}

// CheckAndIncrement counts a message for userID and reports whether it is
// within maxPerMinute. Refused messages still count toward the window.
func (t *Throttle) CheckAndIncrement(ctx context.Context, userID string, maxPerMinute int) (bool, error) {
	if maxPerMinute <= 0 {
		return true, nil
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		userID = "unknown"
	}

	windowMs := t.window.Milliseconds()
	slot := t.now().UTC().UnixMilli() / windowMs
	key := fmt.Sprintf("%s:%s:%d", throttleKeyPrefix, userID, slot)

	count, err := throttleScript.Run(ctx, t.rdb, []string{key}, windowMs).Int64()
	if err != nil {
		return false, fmt.Errorf("throttle incr: %w", err)
	}
	return count <= int64(maxPerMinute), nil
}
