package expenses

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/silaibook/silaibook/internal/platform/httpx"
	"github.com/silaibook/silaibook/internal/shared"
)

// Handler exposes expense endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the expense handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches expense routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/today-total", h.todayTotal)
	r.Get("/monthly-summary", h.monthlySummary)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	e, err := h.service.Create(r.Context(), in, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.logger.Error("add expense", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"message": "Expense added successfully", "expense": e})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := h.service.List(r.Context(), ListFilters{
		ExpenseType: q.Get("expense_type"),
		Category:    q.Get("category"),
		PaymentMode: q.Get("payment_mode"),
	})
	if err != nil {
		h.logger.Error("list expenses", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) todayTotal(w http.ResponseWriter, r *http.Request) {
	total, err := h.service.TodayTotal(r.Context(), r.URL.Query().Get("expense_type"))
	if err != nil {
		h.logger.Error("today expense", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"today_expense": total})
}

func (h *Handler) monthlySummary(w http.ResponseWriter, r *http.Request) {
	year, err := httpx.QueryInt(r, "year", 0)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	month, err := httpx.QueryInt(r, "month", 0)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	summary, err := h.service.MonthlySummary(r.Context(), year, month, r.URL.Query().Get("expense_type"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}
