package employees

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/silaibook/silaibook/internal/platform/httpx"
	"github.com/silaibook/silaibook/internal/rbac"
	"github.com/silaibook/silaibook/internal/shared"
)

// Handler exposes employee endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the employee handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches employee routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Put("/{id}", h.update)
	r.Put("/{id}/pay", h.pay)
	r.Get("/{id}/status", h.status)
	r.With(rbac.RequireManager()).Delete("/{id}", h.delete)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	e, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.logger.Error("add employee", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"message": "Employee added successfully", "employee": e})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list employees", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
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
	httpx.OK(w, "Employee updated successfully")
}

func (h *Handler) pay(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	amount, ok, err := httpx.QueryDecimal(r, "amount")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if !ok {
		httpx.RespondError(w, fmt.Errorf("%w: amount is required", shared.ErrInvalidInput))
		return
	}
	total, err := h.service.PayAdvance(r.Context(), id, amount)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Payment recorded", "total_advance_paid": total})
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	st, err := h.service.SalaryStatus(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, st)
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
	httpx.OK(w, "Employee removed")
}
