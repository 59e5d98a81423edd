package customers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silaibook/silaibook/internal/platform/storage"
	"github.com/silaibook/silaibook/internal/shared"
)

type memoryRepo struct {
	mu        sync.Mutex
	nextID    int64
	customers map[int64]*Customer
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{customers: map[int64]*Customer{}}
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok {
		return Customer{}, shared.ErrNotFound
	}
	return *c, nil
}

func (m *memoryRepo) mobileTaken(mobile string, except int64) bool {
	for id, c := range m.customers {
		if id != except && c.Mobile == mobile {
			return true
		}
	}
	return false
}

func (m *memoryRepo) Create(ctx context.Context, in CreateInput) (Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mobileTaken(in.Mobile, 0) {
		return Customer{}, shared.ErrDuplicate
	}
	m.nextID++
	now := time.Now().Add(time.Duration(m.nextID) * time.Second)
	c := &Customer{ID: m.nextID, Name: in.Name, Mobile: in.Mobile, Category: in.Category, PhotoURL: in.PhotoURL,
		Measurements: nonNil(in.Measurements), IsActive: true, CreatedAt: now, UpdatedAt: now}
	m.customers[c.ID] = c
	return *c, nil
}

func (m *memoryRepo) List(ctx context.Context, filters ListFilters) ([]Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Customer{}
	for _, c := range m.customers {
		if !c.IsActive {
			continue
		}
		if filters.Search != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(filters.Search)) && !strings.Contains(c.Mobile, filters.Search) {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryRepo) Update(ctx context.Context, id int64, in UpdateInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok || !c.IsActive {
		return shared.ErrNotFound
	}
	if in.Mobile != nil && m.mobileTaken(*in.Mobile, id) {
		return shared.ErrDuplicate
	}
	if in.Name != nil {
		c.Name = *in.Name
	}
	if in.Mobile != nil {
		c.Mobile = *in.Mobile
	}
	if in.Category != nil {
		c.Category = *in.Category
	}
	if in.PhotoURL != nil {
		c.PhotoURL = *in.PhotoURL
	}
	if in.Measurements != nil {
		c.Measurements = in.Measurements
	}
	return nil
}

func (m *memoryRepo) Deactivate(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok {
		return shared.ErrNotFound
	}
	c.IsActive = false
	return nil
}

func (m *memoryRepo) Count(ctx context.Context, activeOnly bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, c := range m.customers {
		if !activeOnly || c.IsActive {
			n++
		}
	}
	return n, nil
}

func TestCreateRejectsDuplicateMobile(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Name: " Anita ", Mobile: "9876543210"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{Name: "Another", Mobile: "9876543210"})
	require.ErrorIs(t, err, shared.ErrDuplicate)
	_, err = svc.Create(ctx, CreateInput{Name: "  ", Mobile: "1234567"})
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestLookupHidesInactiveCustomers(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()
	c, err := svc.Create(ctx, CreateInput{Name: "Anita", Mobile: "9876543210", Measurements: Measurements{"chest": 36}})
	require.NoError(t, err)

	found, err := svc.Lookup(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 36, found.Measurements["chest"])

	require.NoError(t, svc.Deactivate(ctx, c.ID))
	_, err = svc.Lookup(ctx, c.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
	_, err = svc.Lookup(ctx, 999)
	require.ErrorIs(t, err, shared.ErrNotFound)

	active, err := svc.Count(ctx, true)
	require.NoError(t, err)
	total, err := svc.Count(ctx, false)
	require.NoError(t, err)
	assert.EqualValues(t, 0, active)
	assert.EqualValues(t, 1, total)
}

func TestListSearchAndPartialUpdate(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()
	a, err := svc.Create(ctx, CreateInput{Name: "Anita Sharma", Mobile: "9876500001", Category: "Ladies"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{Name: "Ravi Kumar", Mobile: "9123400002"})
	require.NoError(t, err)

	found, err := svc.List(ctx, ListFilters{Search: "SHARMA"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, a.ID, found[0].ID)

	found, err = svc.List(ctx, ListFilters{Search: "91234"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Ravi Kumar", found[0].Name)

	all, err := svc.List(ctx, ListFilters{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Ravi Kumar", all[0].Name, "newest first")

	require.ErrorIs(t, svc.Update(ctx, a.ID, UpdateInput{}), shared.ErrInvalidInput)
	name := "Anita S."
	require.NoError(t, svc.Update(ctx, a.ID, UpdateInput{Name: &name}))
	got, err := svc.Lookup(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Anita S.", got.Name)
	assert.Equal(t, "Ladies", got.Category)

	taken := "9123400002"
	require.ErrorIs(t, svc.Update(ctx, a.ID, UpdateInput{Mobile: &taken}), shared.ErrDuplicate)
	require.ErrorIs(t, svc.Update(ctx, 404, UpdateInput{Name: &name}), shared.ErrNotFound)
}

func newTestRouter(t *testing.T, role string) (http.Handler, *memoryRepo, string) {
	t.Helper()
	repo := newMemoryRepo()
	dir := t.TempDir()
	photos, err := storage.NewPhotoStore(dir, "http://localhost:8080/static/photos")
	require.NoError(t, err)
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), NewService(repo), photos)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := shared.ContextWithPrincipal(req.Context(), shared.Principal{UserID: 1, Username: "ravi", Role: role})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/customers", h.MountRoutes)
	return r, repo, dir
}

func TestHandlerCreateListDelete(t *testing.T) {
	router, repo, _ := newTestRouter(t, "owner")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/customers/", strings.NewReader(`{"name":"Anita","mobile":"9876543210","measurements":{"waist":30}}`)))
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/customers/", strings.NewReader(`{"name":"Dup","mobile":"9876543210"}`)))
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "Duplicate")

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/customers/?search=ani", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var listed []Customer
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listed))
	require.Len(t, listed, 1)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/customers/1", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, repo.customers[1].IsActive)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/customers/customer-count", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"count":1}`, rr.Body.String())
}

func TestHandlerDeleteRequiresManager(t *testing.T) {
	router, repo, _ := newTestRouter(t, "staff")
	_, err := repo.Create(context.Background(), CreateInput{Name: "Anita", Mobile: "9876543210"})
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/customers/1", nil))
	require.Equal(t, http.StatusForbidden, rr.Code)
	assert.True(t, repo.customers[1].IsActive)
}

func TestHandlerUploadPhoto(t *testing.T) {
	router, _, _ := newTestRouter(t, "owner")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "front.JPG")
	require.NoError(t, err)
	_, err = part.Write([]byte("jpeg-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/customers/upload-photo", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp["url"], "http://localhost:8080/static/photos/"))
	assert.True(t, strings.HasSuffix(resp["url"], ".jpg"))
}
