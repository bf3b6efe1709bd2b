package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Log matches the audit_logs table schema.
type Log struct {
	ID        uuid.UUID       `json:"id"`
	UserID    string          `json:"user_id"`
	EventType string          `json:"event_type"`
	Severity  string          `json:"severity"`
	Command   string          `json:"command,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ListParams holds pagination and filtering parameters for audit log queries.
type ListParams struct {
	EventType string
	Severity  string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

// DefaultListParams returns sensible defaults.
func DefaultListParams() ListParams {
	return ListParams{
		Page:     1,
		PageSize: 20,
	}
}

func (p *ListParams) normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 || p.PageSize > 100 {
		p.PageSize = 20
	}
}
