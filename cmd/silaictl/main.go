package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/silaibook/silaibook/cmd/silaibook/cli"
	"github.com/silaibook/silaibook/internal/app"
	"github.com/silaibook/silaibook/internal/clothstock"
	"github.com/silaibook/silaibook/internal/orders"
	"github.com/silaibook/silaibook/internal/platform/cache"
	"github.com/silaibook/silaibook/internal/platform/db"
	"github.com/silaibook/silaibook/jobs"
)

const usage = `usage: silaictl <command> [flags]

commands:
  reconcile           recompute used meters of every active stock lot
  clear-data --yes    delete business data, keeping users and employees
  enqueue-reconcile   queue a reconcile run for the worker
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return 1
	}
	_ = godotenv.Load()

	command := args[0]
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "print JSON output")
	confirm := fs.Bool("yes", false, "confirm destructive clear-data")
	requestedBy := fs.String("requested-by", "silaictl", "actor recorded on the enqueued task")
	if err := fs.Parse(args[1:]); err != nil {
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}
	logger := app.NewLogger(cfg)
	out := cli.Output{JSON: *jsonOut}

	switch command {
	case "reconcile":
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			logger.Error("connect database", slog.Any("error", err))
			return 1
		}
		defer pool.Close()
		redisClient, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Error("connect redis", slog.Any("error", err))
			return 1
		}
		defer redisClient.Close()
		reconciler := clothstock.NewReconciler(
			clothstock.NewRepository(pool),
			db.NewTxManager(pool),
			cache.NewLocker(redisClient),
			orders.ReservingStatuses(),
			logger,
		)
		return cli.NewMaintenanceCLI(reconciler, nil, nil).ReconcileCommand(ctx, out)

	case "clear-data":
		if !*confirm {
			return cli.NewMaintenanceCLI(nil, nil, nil).ClearDataCommand(ctx, false, out)
		}
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			logger.Error("connect database", slog.Any("error", err))
			return 1
		}
		defer pool.Close()
		return cli.NewMaintenanceCLI(nil, cli.NewPGDataStore(pool), nil).ClearDataCommand(ctx, true, out)

	case "enqueue-reconcile":
		redisOpt, err := jobs.RedisOpt(cfg.RedisAddr)
		if err != nil {
			logger.Error("parse redis address", slog.Any("error", err))
			return 1
		}
		client, err := jobs.NewClient(redisOpt)
		if err != nil {
			logger.Error("init jobs client", slog.Any("error", err))
			return 1
		}
		defer client.Close()
		return cli.NewMaintenanceCLI(nil, nil, client).EnqueueReconcileCommand(ctx, *requestedBy, out)

	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		return 1
	}
}
