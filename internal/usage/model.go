package usage

import "time"

// DateLayout is the storage format of the usage date key.
const DateLayout = "2006-01-02"

// Record is one row of usage_limits: uses of a command by a user on a date.
type Record struct {
	UserID  string `json:"user_id"`
	Command string `json:"command"`
	Date    string `json:"date"`
	Count   int    `json:"count"`
}

// Snapshot is today's usage of a user across commands, for admin display.
type Snapshot struct {
	UserID      string         `json:"user_id"`
	Date        string         `json:"date"`
	Limit       int            `json:"limit"`
	HasOverride bool           `json:"has_override"`
	Counts      map[string]int `json:"counts"`
}

func dateKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}
