package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/silaibook/silaibook/internal/platform/httpx"
	"github.com/silaibook/silaibook/internal/shared"
)

// Middleware authenticates Authorization: Bearer requests and stores the
// principal in the request context.
func Middleware(logger *slog.Logger, service *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			scheme, token, _ := strings.Cut(header, " ")
			if !strings.EqualFold(scheme, "bearer") {
				token = ""
			}
			user, err := service.Resolve(r.Context(), strings.TrimSpace(token))
			if err != nil {
				if logger != nil {
					logger.Debug("bearer rejected", slog.String("path", r.URL.Path), slog.Any("error", err))
				}
				httpx.RespondError(w, err)
				return
			}
			ctx := shared.ContextWithPrincipal(r.Context(), shared.Principal{
				UserID:   user.ID,
				Username: user.Username,
				Role:     user.Role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
