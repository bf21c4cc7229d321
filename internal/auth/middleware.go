package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/OpenTramite/tramite/internal/process/apperr"
	"github.com/OpenTramite/tramite/internal/process/model"
)

// UserHeader names the header an authenticating front-end sets after
// verifying the caller's identity. Authentication mechanics (sessions,
// tokens) are a collaborator concern; this middleware only resolves the
// identity to a user record and makes it available to handlers. The engine
// itself never reads ambient identity; handlers pass the user explicitly.
const UserHeader = "X-User-ID"

// UserResolver looks up a user record by ID.
type UserResolver interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*model.User, error)
}

// Middleware resolves the identity header and injects the user into the
// request context. Requests without a valid identity proceed without a
// user; handlers decide whether that is acceptable.
func Middleware(users UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get(UserHeader)
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := uuid.Parse(header)
			if err != nil {
				slog.Debug("invalid identity header", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.GetByID(r.Context(), userID)
			if err != nil {
				if !errors.Is(err, apperr.ErrNotFound) {
					slog.Warn("failed to resolve user", "user_id", userID, "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}
			if !user.Active {
				slog.Debug("inactive user rejected", "user_id", userID)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}
