package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/silaibook/silaibook/internal/platform/httpx"
	"github.com/silaibook/silaibook/internal/shared"
)

// Handler exposes authentication routes.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the auth handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the public auth endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/register", h.register)
	r.Post("/login", h.login)
}

// Me reports the authenticated principal. Mount it behind Middleware.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": "You are authenticated",
		"user":    principal,
	})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var creds Credentials
	if err := httpx.Bind(r, &creds); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if _, err := h.service.Register(r.Context(), creds); err != nil {
		h.logger.Warn("register failed", slog.String("username", creds.Username), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, httpx.Message{Message: "User registered successfully"})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var creds Credentials
	if err := httpx.DecodeJSON(r, &creds); err != nil {
		httpx.RespondError(w, err)
		return
	}
	token, err := h.service.Login(r.Context(), creds)
	if err != nil {
		h.logger.Warn("login failed", slog.String("username", creds.Username), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, token)
}
