package customers

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/silaibook/silaibook/internal/platform/httpx"
	"github.com/silaibook/silaibook/internal/rbac"
	"github.com/silaibook/silaibook/internal/shared"
)

const maxPhotoBytes = 5 << 20

// PhotoSaver stores an uploaded photo and returns its public URL.
type PhotoSaver interface {
	Save(originalName string, r io.Reader) (string, error)
}

// Handler exposes customer routes.
type Handler struct {
	logger  *slog.Logger
	service *Service
	photos  PhotoSaver
}

// NewHandler constructs the customer handler.
func NewHandler(logger *slog.Logger, service *Service, photos PhotoSaver) *Handler {
	return &Handler{logger: logger, service: service, photos: photos}
}

// MountRoutes attaches customer routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Post("/upload-photo", h.uploadPhoto)
	r.Get("/customer-count", h.count)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.With(rbac.RequireManager()).Delete("/{id}", h.delete)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	customer, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.fail(w, "create customer", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"message":  "Customer added successfully",
		"customer": customer,
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	customers, err := h.service.List(r.Context(), ListFilters{Search: r.URL.Query().Get("search")})
	if err != nil {
		h.fail(w, "list customers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, customers)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	customer, err := h.service.Lookup(r.Context(), id)
	if err != nil {
		h.fail(w, "get customer", err)
		return
	}
	httpx.JSON(w, http.StatusOK, customer)
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
		h.fail(w, "update customer", err)
		return
	}
	httpx.OK(w, "Customer updated successfully")
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Deactivate(r.Context(), id); err != nil {
		h.fail(w, "delete customer", err)
		return
	}
	httpx.OK(w, "Customer deleted successfully")
}

func (h *Handler) count(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.Count(r.Context(), false)
	if err != nil {
		h.fail(w, "count customers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int64{"count": n})
}

func (h *Handler) uploadPhoto(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoBytes)
	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid upload: %v", shared.ErrInvalidInput, err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: file is required", shared.ErrInvalidInput))
		return
	}
	defer file.Close()
	url, err := h.photos.Save(header.Filename, file)
	if err != nil {
		h.fail(w, "upload photo", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"url": url})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Warn(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
