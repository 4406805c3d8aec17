package middleware

import (
	"context"
	"net/http"

	"dishdash-be/internal/account"
	"dishdash-be/internal/apperr"
	"dishdash-be/internal/auth"
	"dishdash-be/internal/logger"
	"dishdash-be/internal/utils"

	"go.uber.org/zap"
)

// Authenticator resolves an access token to the calling account.
// account.Service satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (account.Principal, error)
}

// Authenticate puts the caller's Principal into the request context.
// Requests without a token pass through anonymously; a token that does not
// resolve is rejected with 401.
func Authenticate(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.ExtractAccessToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			p, err := a.Authenticate(r.Context(), token)
			if err != nil {
				code := apperr.Code(err)
				if code == "storage_unavailable" {
					utils.WriteJSONError(w, http.StatusServiceUnavailable, code, apperr.Message(err))
					return
				}
				logger.FromCtx(r.Context()).Info("token rejected",
					zap.String("layer", "middleware"),
					zap.Error(err),
				)
				utils.WriteJSONError(w, http.StatusUnauthorized, "unauthenticated", "invalid or expired token")
				return
			}

			ctx := utils.WithPrincipal(r.Context(), p)
			ctx = logger.WithAccountID(ctx, p.AccountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := utils.PrincipalFrom(r.Context()); !ok {
			utils.WriteJSONError(w, http.StatusUnauthorized, "unauthenticated", "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole admits authenticated callers holding one of roles.
func RequireRole(roles ...account.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := utils.PrincipalFrom(r.Context())
			if !ok {
				utils.WriteJSONError(w, http.StatusUnauthorized, "unauthenticated", "authentication required")
				return
			}
			if !p.HasRole(roles...) {
				utils.WriteJSONError(w, http.StatusForbidden, "forbidden", "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
