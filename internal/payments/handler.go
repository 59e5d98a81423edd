package payments

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/silaibook/silaibook/internal/platform/httpx"
	"github.com/silaibook/silaibook/internal/rbac"
	"github.com/silaibook/silaibook/internal/shared"
)

// Handler exposes payment endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the payment handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches payment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/customer-summary", h.summary)
	r.Get("/customer/{customerID}", h.byCustomer)
	r.With(rbac.RequireManager()).Delete("/{id}", h.delete)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.Create(r.Context(), in, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.logger.Warn("record payment", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"message": "Payment recorded successfully", "payment": p})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list payments", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.Summary(r.Context())
	if err != nil {
		h.logger.Error("payment summary", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) byCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, err := httpx.IDParam(r, "customerID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out, err := h.service.ByCustomer(r.Context(), customerID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, "Payment deleted successfully")
}
