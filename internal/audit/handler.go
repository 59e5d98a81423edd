package audit

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/silaibook/silaibook/internal/platform/httpx"
	"github.com/silaibook/silaibook/internal/shared"
)

// Handler exposes the audit timeline.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the audit handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.timeline)
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := parseDate(q.Get("from"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	to, err := parseDate(q.Get("to"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if !to.IsZero() {
		to = to.Add(24*time.Hour - time.Nanosecond)
	}
	page, err := httpx.QueryInt(r, "page", 1)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	pageSize, err := httpx.QueryInt(r, "page_size", 20)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Timeline(r.Context(), TimelineFilters{
		From:     from,
		To:       to,
		Actor:    q.Get("actor"),
		Entity:   q.Get("entity"),
		EntityID: q.Get("entity_id"),
		Action:   q.Get("action"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		h.logger.Error("audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", shared.ErrInvalidInput, raw)
	}
	return t, nil
}
