package auth

import (
	"log/slog"
	"net/http"

	"github.com/worklog-bot/worklog/internal/api"
)

type Handler struct {
	authSvc *Service
}

func NewHandler(authSvc *Service) *Handler {
	return &Handler{authSvc: authSvc}
}

// Revoke invalidates the token used to call it.
func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	claims := GetAdminClaims(r.Context())
	if claims == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	if err := h.authSvc.Revoke(r.Context(), claims); err != nil {
		slog.Error("revoking admin token", "error", err, "subject", claims.Subject)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONMessage(w, http.StatusOK, "token revoked")
}

// Whoami returns the claims of the calling token.
func (h *Handler) Whoami(w http.ResponseWriter, r *http.Request) {
	claims := GetAdminClaims(r.Context())
	if claims == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}
	api.JSON(w, http.StatusOK, map[string]any{
		"subject":    claims.Subject,
		"role":       claims.Role,
		"expires_at": claims.ExpiresAt.Time,
	})
}
