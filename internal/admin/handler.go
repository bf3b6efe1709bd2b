package admin

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/worklog-bot/worklog/internal/api"
	"github.com/worklog-bot/worklog/internal/audit"
	"github.com/worklog-bot/worklog/internal/auth"
	"github.com/worklog-bot/worklog/internal/bot"
	inats "github.com/worklog-bot/worklog/internal/nats"
	"github.com/worklog-bot/worklog/internal/usage"
)

// UsageService reads and changes per-user quota state.
type UsageService interface {
	Snapshot(ctx context.Context, userID string, def int) (*usage.Snapshot, error)
	SetUserLimit(ctx context.Context, userID string, limit int) bool
}

// AuditLister pages through persisted audit events.
type AuditLister interface {
	ListByUser(ctx context.Context, userID string, params audit.ListParams) ([]audit.Log, int64, error)
}

// AccessResetter clears a user's access password state.
type AccessResetter interface {
	Reset(ctx context.Context, userID string) error
}

// AuditSink receives audit events for admin actions.
type AuditSink interface {
	PublishAuditEvent(ctx context.Context, event inats.AuditEvent) error
}

type SetLimitRequest struct {
	MaxUses int `json:"max_uses" validate:"required,gt=0,lte=10000"`
}

// Handler serves the admin API over usage and audit data.
type Handler struct {
	usage        UsageService
	audit        AuditLister
	sink         AuditSink
	access       AccessResetter
	defaultLimit int
	validate     *validator.Validate
}

// NewHandler creates a new admin Handler. lister and sink may be nil.
func NewHandler(svc UsageService, lister AuditLister, sink AuditSink, defaultLimit int) *Handler {
	return &Handler{
		usage:        svc,
		audit:        lister,
		sink:         sink,
		defaultLimit: defaultLimit,
		validate:     validator.New(),
	}
}

// WithAccess enables ResetAccess.
func (h *Handler) WithAccess(a AccessResetter) *Handler {
	h.access = a
	return h
}

// GetUsage returns today's usage counters and limit for a user.
func (h *Handler) GetUsage(w http.ResponseWriter, r *http.Request) {
	userID, ok := userParam(w, r)
	if !ok {
		return
	}

	snap, err := h.usage.Snapshot(r.Context(), userID, h.defaultLimit)
	if err != nil {
		slog.Error("reading usage snapshot", "error", err, "user", userID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, snap)
}

// SetLimit overrides a user's daily limit for gated commands.
func (h *Handler) SetLimit(w http.ResponseWriter, r *http.Request) {
	userID, ok := userParam(w, r)
	if !ok {
		return
	}

	var req SetLimitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	if !h.usage.SetUserLimit(r.Context(), userID, req.MaxUses) {
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	h.emit(r, userID, inats.EventLimitChanged, map[string]any{"limit": req.MaxUses, "via": "api"})

	api.JSON(w, http.StatusOK, map[string]any{"user_id": userID, "max_uses": req.MaxUses})
}

// ResetAccess unblocks a user locked out by failed password attempts. The
// user must enter the access password again.
func (h *Handler) ResetAccess(w http.ResponseWriter, r *http.Request) {
	if h.access == nil {
		api.HandleError(w, api.NewNotFoundError("access password gate is not enabled"))
		return
	}
	userID, ok := userParam(w, r)
	if !ok {
		return
	}

	if err := h.access.Reset(r.Context(), userID); err != nil {
		slog.Error("resetting access state", "error", err, "user", userID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	h.emit(r, userID, inats.EventAccessReset, map[string]any{"via": "api"})

	w.WriteHeader(http.StatusNoContent)
}

// ListAudit returns paginated audit events for a user.
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		api.HandleError(w, api.NewNotFoundError("audit log is not enabled"))
		return
	}
	userID, ok := userParam(w, r)
	if !ok {
		return
	}

	params := parseAuditParams(r)
	logs, total, err := h.audit.ListByUser(r.Context(), userID, params)
	if err != nil {
		slog.Error("listing audit logs", "error", err, "user", userID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONPaginated(w, http.StatusOK, logs, total, params.Page, params.PageSize)
}

// emit publishes an audit event for an admin action, recording the token
// subject as "by".
func (h *Handler) emit(r *http.Request, userID, eventType string, details map[string]any) {
	if h.sink == nil {
		return
	}
	if claims := auth.GetAdminClaims(r.Context()); claims != nil {
		details["by"] = claims.Subject
	} else {
		details["by"] = ""
	}
	event := inats.AuditEvent{
		UserID:    userID,
		EventType: eventType,
		Severity:  "info",
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
	if err := h.sink.PublishAuditEvent(r.Context(), event); err != nil {
		slog.Warn("publishing admin audit event", "error", err, "user", userID, "event", eventType)
	}
}

// userParam reads the {userID} route parameter as a bare JID.
func userParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw, err := url.PathUnescape(chi.URLParam(r, "userID"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid user id"))
		return "", false
	}
	userID := bot.BareJID(strings.TrimSpace(raw))
	if userID == "" {
		api.HandleError(w, api.NewBadRequestError("user id is required"))
		return "", false
	}
	return userID, true
}

func parseAuditParams(r *http.Request) audit.ListParams {
	params := audit.DefaultListParams()
	q := r.URL.Query()

	params.EventType = q.Get("event_type")
	params.Severity = q.Get("severity")
	if page, err := strconv.Atoi(q.Get("page")); err == nil && page > 0 {
		params.Page = page
	}
	if size, err := strconv.Atoi(q.Get("page_size")); err == nil && size > 0 && size <= 100 {
		params.PageSize = size
	}
	if from, err := time.Parse(time.RFC3339, q.Get("from")); err == nil {
		params.From = &from
	}
	if to, err := time.Parse(time.RFC3339, q.Get("to")); err == nil {
		params.To = &to
	}

	return params
}
