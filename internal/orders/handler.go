package orders

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/silaibook/silaibook/internal/platform/httpx"
	"github.com/silaibook/silaibook/internal/rbac"
	"github.com/silaibook/silaibook/internal/shared"
)

// Handler exposes the order workflow.
type Handler struct {
	logger  *slog.Logger
	service *Service
	errors  httpx.ErrorCounter
}

// NewHandler constructs the order handler. errors may be nil.
func NewHandler(logger *slog.Logger, service *Service, errors httpx.ErrorCounter) *Handler {
	return &Handler{logger: logger, service: service, errors: errors}
}

// MountRoutes attaches order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Put("/{id}/status", h.advanceStatus)
	r.Post("/{id}/mark-ready", h.markReady)
	r.With(rbac.RequireManager()).Delete("/{id}", h.deactivate)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.Bind(r, &in); err != nil {
		h.fail(w, "create_order", err)
		return
	}
	result, err := h.service.CreateOrder(r.Context(), in, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.fail(w, "create_order", err)
		return
	}
	h.logger.Info("order created", slog.Int64("order_id", result.OrderID), slog.String("order_number", result.OrderNumber))
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"message":      "Order created successfully",
		"order_id":     result.OrderID,
		"order_number": result.OrderNumber,
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	customerID, err := httpx.QueryInt(r, "customer_id", 0)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	orders, err := h.service.List(r.Context(), ListFilters{
		CustomerID: int64(customerID),
		Status:     Status(strings.TrimSpace(r.URL.Query().Get("status"))),
	})
	if err != nil {
		h.fail(w, "list_orders", err)
		return
	}
	httpx.JSON(w, http.StatusOK, orders)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get_order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

type statusBody struct {
	Status string `json:"status"`
}

func (h *Handler) advanceStatus(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	status := r.URL.Query().Get("status")
	if status == "" && r.ContentLength != 0 {
		var body statusBody
		if err := httpx.DecodeJSON(r, &body); err != nil {
			h.fail(w, "advance_status", err)
			return
		}
		status = body.Status
	}
	if err := h.service.AdvanceStatus(r.Context(), id, status, shared.ActorFromContext(r.Context())); err != nil {
		h.fail(w, "advance_status", err)
		return
	}
	httpx.OK(w, "Order status updated")
}

func (h *Handler) markReady(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	confirmed, err := httpx.QueryBool(r, "confirm")
	if err != nil {
		h.fail(w, "mark_ready", err)
		return
	}
	if err := h.service.MarkReady(r.Context(), id, confirmed, shared.ActorFromContext(r.Context())); err != nil {
		h.fail(w, "mark_ready", err)
		return
	}
	httpx.OK(w, "Order marked as Ready")
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Deactivate(r.Context(), id); err != nil {
		h.fail(w, "delete_order", err)
		return
	}
	httpx.OK(w, "Order deleted successfully")
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
