package dashboard

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/silaibook/silaibook/internal/platform/httpx"
)

// Handler exposes the dashboard rollups.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the dashboard handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches dashboard routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/today-income", h.todayIncome)
	r.Get("/pending-amount", h.pendingAmount)
	r.Get("/stock-summary", h.stockSummary)
	r.Get("/customer-count", h.customerCount)
	r.Get("/profit-loss", h.profitLoss)
	r.Get("/yearly-trend", h.yearlyTrend)
	r.Get("/monthly-report.xlsx", h.monthlyReport)
}

func (h *Handler) todayIncome(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.TodayIncome(r.Context())
	if err != nil {
		h.fail(w, "today income", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"today_income": v})
}

func (h *Handler) pendingAmount(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.PendingAmount(r.Context())
	if err != nil {
		h.fail(w, "pending amount", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"pending_amount": v})
}

func (h *Handler) stockSummary(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.StockSummary(r.Context())
	if err != nil {
		h.fail(w, "stock summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) customerCount(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.CustomerCount(r.Context())
	if err != nil {
		h.fail(w, "customer count", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"total_customers": v})
}

func (h *Handler) profitLoss(w http.ResponseWriter, r *http.Request) {
	year, month, err := yearMonth(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	v, err := h.service.ProfitLoss(r.Context(), year, month)
	if err != nil {
		h.fail(w, "profit loss", err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) yearlyTrend(w http.ResponseWriter, r *http.Request) {
	year, err := httpx.QueryInt(r, "year", time.Now().UTC().Year())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	v, err := h.service.YearlyTrend(r.Context(), year)
	if err != nil {
		h.fail(w, "yearly trend", err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) monthlyReport(w http.ResponseWriter, r *http.Request) {
	year, month, err := yearMonth(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	body, err := h.service.MonthlyReport(r.Context(), year, month)
	if err != nil {
		h.fail(w, "monthly report", err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=silaibook-%04d-%02d.xlsx", year, month))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func yearMonth(r *http.Request) (int, int, error) {
	now := time.Now().UTC()
	year, err := httpx.QueryInt(r, "year", now.Year())
	if err != nil {
		return 0, 0, err
	}
	month, err := httpx.QueryInt(r, "month", int(now.Month()))
	if err != nil {
		return 0, 0, err
	}
	return year, month, nil
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.Kind(err) == "Internal" {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
