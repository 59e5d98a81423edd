package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/silaibook/silaibook/internal/audit"
	"github.com/silaibook/silaibook/internal/auth"
	"github.com/silaibook/silaibook/internal/clothstock"
	"github.com/silaibook/silaibook/internal/customers"
	"github.com/silaibook/silaibook/internal/dashboard"
	"github.com/silaibook/silaibook/internal/employees"
	"github.com/silaibook/silaibook/internal/expenses"
	"github.com/silaibook/silaibook/internal/observability"
	"github.com/silaibook/silaibook/internal/orders"
	"github.com/silaibook/silaibook/internal/owners"
	"github.com/silaibook/silaibook/internal/payments"
	"github.com/silaibook/silaibook/internal/platform/httpx"
	"github.com/silaibook/silaibook/internal/rbac"
	"github.com/silaibook/silaibook/jobs"
)

// DatabasePinger is the health probe of the database.
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger       *slog.Logger
	Config       *Config
	Metrics      *observability.Metrics
	Database     DatabasePinger
	DatabaseName string
	AuthService  *auth.Service

	AuthHandler       *auth.Handler
	CustomersHandler  *customers.Handler
	ClothStockHandler *clothstock.Handler
	OrdersHandler     *orders.Handler
	PaymentsHandler   *payments.Handler
	ExpensesHandler   *expenses.Handler
	EmployeesHandler  *employees.Handler
	OwnersHandler     *owners.Handler
	DashboardHandler  *dashboard.Handler
	AuditHandler      *audit.Handler
	JobHandler        *jobs.Handler
}

// NewRouter constructs the chi.Router with SilaiBook defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		httpx.OK(w, "SilaiBook backend is running")
	})
	r.Get("/health", healthHandler(params))

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.Config != nil && params.Config.PhotoDir != "" {
		fileServer := http.StripPrefix("/static/photos/", http.FileServer(http.Dir(params.Config.PhotoDir)))
		r.Handle("/static/photos/*", staticCacheHandler(fileServer))
	}

	if params.AuthHandler != nil {
		r.Route("/auth", params.AuthHandler.MountRoutes)
	}
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(params.Logger, params.AuthService))

		if params.AuthHandler != nil {
			r.Get("/protected/me", params.AuthHandler.Me)
		}
		if params.CustomersHandler != nil {
			r.Route("/customers", params.CustomersHandler.MountRoutes)
		}
		if params.ClothStockHandler != nil {
			r.Route("/cloth-stock", params.ClothStockHandler.MountRoutes)
		}
		if params.OrdersHandler != nil {
			r.Route("/orders", params.OrdersHandler.MountRoutes)
		}
		if params.PaymentsHandler != nil {
			r.Route("/payments", params.PaymentsHandler.MountRoutes)
		}
		if params.ExpensesHandler != nil {
			r.Route("/expenses", params.ExpensesHandler.MountRoutes)
		}
		if params.EmployeesHandler != nil {
			r.Route("/employees", params.EmployeesHandler.MountRoutes)
		}
		if params.OwnersHandler != nil {
			r.Route("/owners", params.OwnersHandler.MountRoutes)
		}
		if params.DashboardHandler != nil {
			r.Route("/dashboard", params.DashboardHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
		if params.AuditHandler != nil {
			r.Route("/audit", func(r chi.Router) {
				r.Use(rbac.RequireManager())
				params.AuditHandler.MountRoutes(r)
			})
		}
	})

	return r
}

func healthHandler(params RouterParams) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if params.Database != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := params.Database.Ping(ctx); err != nil {
				params.Logger.Warn("health: database ping", slog.Any("error", err))
				httpx.Problem(w, http.StatusServiceUnavailable, "Database Unavailable", "")
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{
			"status":   "ok",
			"database": params.DatabaseName,
		})
	}
}

// staticCacheHandler wraps a file server with Cache-Control headers.
// Photos get a random name per upload, so they can be cached for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
