package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/silaibook/silaibook/internal/app"
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
	"github.com/silaibook/silaibook/internal/platform/cache"
	"github.com/silaibook/silaibook/internal/platform/db"
	"github.com/silaibook/silaibook/internal/platform/storage"
	"github.com/silaibook/silaibook/jobs"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	if cfg.AutoMigrate && !app.InTestMode() {
		if err := db.EnsureSchema(ctx, dbpool); err != nil {
			logger.Error("ensure schema", slog.Any("error", err))
			os.Exit(1)
		}
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	photos, err := storage.NewPhotoStore(cfg.PhotoDir, cfg.PhotoBaseURL())
	if err != nil {
		logger.Error("init photo store", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	txManager := db.NewTxManager(dbpool)
	locker := cache.NewLocker(redisClient)
	dashboardCache := dashboard.NewCache(redisClient, cfg.DashboardCacheTTL)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	authService := auth.NewService(auth.NewRepository(dbpool), tokens)
	authHandler := auth.NewHandler(logger, authService)

	auditService := audit.NewService(audit.NewRepository(dbpool))
	auditHandler := audit.NewHandler(logger, auditService)

	customerService := customers.NewService(customers.NewRepository(dbpool))
	customerHandler := customers.NewHandler(logger, customerService, photos)

	stockRepo := clothstock.NewRepository(dbpool)
	stockService := clothstock.NewService(stockRepo, txManager)
	reconciler := clothstock.NewReconciler(stockRepo, txManager, locker, orders.ReservingStatuses(), logger)
	stockHandler := clothstock.NewHandler(logger, stockService, reconciler, metrics)

	orderService := orders.NewService(orders.NewRepository(dbpool), customerService, stockService, txManager)
	orderHandler := orders.NewHandler(logger, orderService, metrics)

	paymentService := payments.NewService(payments.NewRepository(dbpool), customerService, dashboardCache)
	paymentHandler := payments.NewHandler(logger, paymentService)

	expenseService := expenses.NewService(expenses.NewRepository(dbpool), dashboardCache)
	expenseHandler := expenses.NewHandler(logger, expenseService)

	employeeService := employees.NewService(employees.NewRepository(dbpool))
	employeeHandler := employees.NewHandler(logger, employeeService)

	ownerService := owners.NewService(owners.NewRepository(dbpool), expenseService, auditService, txManager, dashboardCache)
	ownerHandler := owners.NewHandler(logger, ownerService)

	dashboardService := dashboard.NewService(dashboard.NewRepository(dbpool), dashboardCache)
	dashboardHandler := dashboard.NewHandler(logger, dashboardService)

	redisOpt, err := jobs.RedisOpt(cfg.RedisAddr)
	if err != nil {
		logger.Error("parse redis address", slog.Any("error", err))
		os.Exit(1)
	}
	inspector := asynq.NewInspector(redisOpt)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Metrics:           metrics,
		Database:          dbpool,
		DatabaseName:      dbpool.Config().ConnConfig.Database,
		AuthService:       authService,
		AuthHandler:       authHandler,
		CustomersHandler:  customerHandler,
		ClothStockHandler: stockHandler,
		OrdersHandler:     orderHandler,
		PaymentsHandler:   paymentHandler,
		ExpensesHandler:   expenseHandler,
		EmployeesHandler:  employeeHandler,
		OwnersHandler:     ownerHandler,
		DashboardHandler:  dashboardHandler,
		AuditHandler:      auditHandler,
		JobHandler:        jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
