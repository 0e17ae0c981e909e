package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/crumbly-backend/api/responses"
	pkgerrors "github.com/angelmondragon/crumbly-backend/pkg/errors"
	"github.com/angelmondragon/crumbly-backend/pkg/logger"
)

// RequireRole admits only callers whose token carries role. Run after Auth.
func RequireRole(role string, logg *logger.Logger) func(http.Handler) http.Handler {
	role = strings.ToLower(strings.TrimSpace(role))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if role == "" || RoleFromContext(r.Context()) != role {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "administrator role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
