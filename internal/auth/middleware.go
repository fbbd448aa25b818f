package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/pactline/pactline/internal/authz"
	"github.com/pactline/pactline/internal/shared"
	"github.com/pactline/pactline/internal/users"
)

// UserSource loads user accounts when resolving the actor for a request.
type UserSource interface {
	GetByID(ctx context.Context, id int64) (*users.User, error)
}

// GrantSource loads the actor's explicit workspace grants.
type GrantSource interface {
	GrantedWorkspaceIDs(ctx context.Context, userID int64) ([]int64, error)
}

// ActorLoader resolves the session's user into an authz.Actor and stores it
// in the request context. Anonymous sessions, inactive accounts and store
// failures all leave the context without an actor; downstream handlers treat
// a missing actor as forbidden.
func ActorLoader(logger *slog.Logger, userSource UserSource, grantSource GrantSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			userID, ok := sess.UserID()
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			user, err := userSource.GetByID(r.Context(), userID)
			if err != nil {
				logger.Warn("resolve actor", slog.Int64("user_id", userID), slog.Any("error", err))
				next.ServeHTTP(w, r)
				return
			}
			if !user.IsActive {
				next.ServeHTTP(w, r)
				return
			}

			grants, err := grantSource.GrantedWorkspaceIDs(r.Context(), userID)
			if err != nil {
				logger.Warn("load workspace grants", slog.Int64("user_id", userID), slog.Any("error", err))
				next.ServeHTTP(w, r)
				return
			}

			actor := authz.Actor{
				ID:           user.ID,
				Role:         user.Role,
				CompanyID:    user.CompanyID,
				GroupID:      user.GroupID,
				WorkspaceIDs: grants,
			}
			actor.SelectedCompanyID, actor.SelectedWorkspaceID = sess.SelectedScope()

			ctx := shared.ContextWithActor(r.Context(), actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireActor rejects requests that carry no resolved actor.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := shared.ActorFromContext(r.Context()); !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
