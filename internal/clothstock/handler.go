package clothstock

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/silaibook/silaibook/internal/platform/httpx"
	"github.com/silaibook/silaibook/internal/rbac"
	"github.com/silaibook/silaibook/internal/shared"
)

// Handler exposes the ledger over HTTP.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	reconciler *Reconciler
	errors     httpx.ErrorCounter
}

// NewHandler constructs the cloth stock handler. errors may be nil.
func NewHandler(logger *slog.Logger, service *Service, reconciler *Reconciler, errors httpx.ErrorCounter) *Handler {
	return &Handler{logger: logger, service: service, reconciler: reconciler, errors: errors}
}

// MountRoutes attaches cloth stock routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.recordDelivery)
	r.Get("/", h.list)
	r.Get("/usage-history", h.usageHistory)
	r.With(rbac.RequireManager()).Post("/reconcile", h.reconcile)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Post("/{id}/use", h.use)
	r.With(rbac.RequireManager()).Delete("/{id}", h.deactivate)
}

func (h *Handler) recordDelivery(w http.ResponseWriter, r *http.Request) {
	var in DeliveryInput
	if err := httpx.Bind(r, &in); err != nil {
		h.fail(w, "record_delivery", err)
		return
	}
	result, err := h.service.RecordDelivery(r.Context(), in, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.fail(w, "record_delivery", err)
		return
	}
	if result.Created {
		httpx.JSON(w, http.StatusCreated, map[string]any{
			"message": "New cloth stock added successfully",
			"stock":   result.Lot,
		})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message":      "Existing cloth stock restocked successfully",
		"stock_id":     result.Lot.ID,
		"added_meters": result.AddedMeters,
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	low, err := httpx.QueryBool(r, "low_stock")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	lots, err := h.service.List(r.Context(), low)
	if err != nil {
		h.fail(w, "list_stock", err)
		return
	}
	httpx.JSON(w, http.StatusOK, lots)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	lot, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get_stock", err)
		return
	}
	httpx.JSON(w, http.StatusOK, lot)
}

func (h *Handler) use(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	meters, ok, err := httpx.QueryDecimal(r, "meters_used")
	if err != nil {
		h.fail(w, "consume", err)
		return
	}
	if !ok {
		h.fail(w, "consume", fmt.Errorf("%w: meters_used is required", shared.ErrInvalidInput))
		return
	}
	rec, err := h.service.Consume(r.Context(), id, meters, Adhoc(), shared.ActorFromContext(r.Context()))
	if err != nil {
		h.fail(w, "consume", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message":          "Cloth usage updated",
		"used_meters":      rec.UsedMeters,
		"remaining_meters": rec.RemainingMeters,
	})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in UpdateInput
	if err := httpx.Bind(r, &in); err != nil {
		h.fail(w, "update_stock", err)
		return
	}
	if err := h.service.Update(r.Context(), id, in); err != nil {
		h.fail(w, "update_stock", err)
		return
	}
	httpx.OK(w, "Cloth stock updated successfully")
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Deactivate(r.Context(), id); err != nil {
		h.fail(w, "deactivate_stock", err)
		return
	}
	httpx.OK(w, "Cloth stock removed")
}

func (h *Handler) usageHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.service.UsageHistory(r.Context())
	if err != nil {
		h.fail(w, "usage_history", err)
		return
	}
	httpx.JSON(w, http.StatusOK, history)
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconciler.Run(r.Context())
	if err != nil {
		h.fail(w, "reconcile", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	kind := httpx.Kind(err)
	if h.errors != nil {
		h.errors.DomainError(op, kind)
	}
	if kind == "Internal" {
		h.logger.Error(op, slog.Any("error", err))
	} else {
		h.logger.Warn(op, slog.String("kind", kind), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
