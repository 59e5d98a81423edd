package rbac

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/silaibook/silaibook/internal/platform/httpx"
	"github.com/silaibook/silaibook/internal/shared"
)

// RequireAny ensures the authenticated principal holds at least one of roles.
// It must run after the bearer middleware.
func RequireAny(roles ...string) func(http.Handler) http.Handler {
	allowed := normalizeRoles(roles)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(allowed) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			principal, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, fmt.Errorf("%w: not authenticated", shared.ErrUnauthorized))
				return
			}
			if _, ok := allowed[strings.ToLower(principal.Role)]; !ok {
				httpx.RespondError(w, fmt.Errorf("%w: role %q may not perform this action", shared.ErrForbidden, principal.Role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireManager gates destructive routes to owners and admins.
func RequireManager() func(http.Handler) http.Handler {
	return RequireAny(Managers...)
}

func normalizeRoles(roles []string) map[string]struct{} {
	set := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		role = strings.TrimSpace(strings.ToLower(role))
		if role == "" {
			continue
		}
		set[role] = struct{}{}
	}
	return set
}
