package shared

import "context"

// Principal is the authenticated caller attached to a request.
type Principal struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}

// ActorFromContext returns the username recorded on mutations, or "system"
// when the request carries no principal.
func ActorFromContext(ctx context.Context) string {
	if p, ok := PrincipalFromContext(ctx); ok && p.Username != "" {
		return p.Username
	}
	return "system"
}
