package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/gemforge/backend/internal/models"
)

// AccountLookup loads the caller's account.
type AccountLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

// RequireAdmin must run after BearerAuth. Unknown accounts and accounts
// without is_admin get 403.
func RequireAdmin(lookup AccountLookup, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := UserIDFromCtx(r.Context())
			if userID == uuid.Nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			acc, err := lookup.GetByID(r.Context(), userID)
			if err != nil || acc == nil || !acc.IsAdmin {
				if err != nil {
					log.Warn("admin lookup failed", "user_id", userID, "error", err)
				}
				writeError(w, http.StatusForbidden, "admin access required")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), acc)))
		})
	}
}
