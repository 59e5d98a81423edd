package owners

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/silaibook/silaibook/internal/platform/httpx"
	"github.com/silaibook/silaibook/internal/rbac"
	"github.com/silaibook/silaibook/internal/shared"
)

// Handler exposes partner endpoints. Every route requires a manager.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the owner handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches owner routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(rbac.RequireManager())
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/withdraw", h.withdraw)
	r.Post("/{id}/deposit", h.deposit)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	o, err := h.service.Create(r.Context(), in, shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"message": "Partner profile created successfully", "id": o.ID})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list owners", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	o, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in UpdateInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Update(r.Context(), id, in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, "Owner profile updated")
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Deactivate(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, "Owner profile deactivated")
}

func (h *Handler) withdraw(w http.ResponseWriter, r *http.Request) {
	h.movement(w, r, h.service.Withdraw)
}

func (h *Handler) deposit(w http.ResponseWriter, r *http.Request) {
	h.movement(w, r, h.service.Deposit)
}

func (h *Handler) movement(w http.ResponseWriter, r *http.Request, apply func(context.Context, int64, Movement, string) (MovementResult, error)) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var m Movement
	if err := httpx.Bind(r, &m); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := apply(r.Context(), id, m, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.logger.Warn("owner movement", slog.Int64("owner_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
