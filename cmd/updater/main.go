package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/pricetrack/pricetrack/internal/alert"
	"github.com/pricetrack/pricetrack/internal/catalog"
	"github.com/pricetrack/pricetrack/internal/config"
	"github.com/pricetrack/pricetrack/internal/database"
	"github.com/pricetrack/pricetrack/internal/model"
	"github.com/pricetrack/pricetrack/internal/scheduler"
	"github.com/pricetrack/pricetrack/internal/source"
	"github.com/pricetrack/pricetrack/internal/store"
	"github.com/pricetrack/pricetrack/internal/trend"
	"github.com/pricetrack/pricetrack/internal/updater"
	"github.com/pricetrack/pricetrack/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/tracker.local.yaml", "path to config file")
	productID := flag.String("product-id", "", "update a single product by id")
	force := flag.Bool("force", false, "ignore the min update interval")
	dryRun := flag.Bool("dry-run", false, "fetch and normalize without persisting or alerting")
	maxConcurrency := flag.Int("max-concurrency", 0, "override configured update concurrency")
	schedule := flag.Bool("schedule", false, "run as a daemon on the configured cron spec")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(*logLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("starting price updater",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	opts := updater.Options{
		Force:          *force,
		DryRun:         *dryRun,
		MaxConcurrency: *maxConcurrency,
	}
	if *productID != "" {
		id, err := uuid.Parse(*productID)
		if err != nil {
			logger.Error("invalid product id", "product_id", *productID, "error", err)
			os.Exit(1)
		}
		opts.ProductID = &id
	}
	if *schedule {
		if err := scheduler.ValidateSpec(cfg.Schedule.Cron); err != nil {
			logger.Error("invalid schedule", "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	logger.Info("connecting to database",
		"host", cfg.Database.Postgres.Host,
		"port", cfg.Database.Postgres.Port,
		"database", cfg.Database.Postgres.Name,
	)
	pool, err := database.Connect(ctx, cfg.Database.Postgres)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	quotes := store.NewPostgres(pool, logger)
	products := catalog.NewPostgres(pool, logger)
	if err := quotes.Migrate(ctx); err != nil {
		logger.Error("quote schema migration failed", "error", err)
		os.Exit(1)
	}
	if err := products.Migrate(ctx); err != nil {
		logger.Error("catalog schema migration failed", "error", err)
		os.Exit(1)
	}

	client := source.NewClient(
		source.WithTimeout(cfg.Sources.Timeout),
		source.WithDelay(cfg.Sources.Delay, cfg.Sources.Burst),
		source.WithUserAgents(cfg.Sources.UserAgents),
		source.WithLogger(logger),
	)

	engine := updater.New(
		updater.Config{
			Concurrency:       cfg.Updater.Concurrency,
			MinUpdateInterval: cfg.Updater.MinUpdateInterval,
		},
		products,
		quotes,
		source.NewDefaultRegistry(client),
		trend.NewHeuristic(cfg.Trend.Window),
		alert.NewEvaluator(products,
			alert.WithDefaultCooldown(cfg.Alerts.Cooldown),
			alert.WithLogger(logger),
		),
		alert.NewLogDispatcher(logger),
		logger,
	)

	if *schedule {
		runDaemon(ctx, engine, opts, cfg.Schedule.Cron, logger)
		return
	}

	result := engine.Run(ctx, opts)
	printSummary(result)
	if result.Failed() {
		os.Exit(1)
	}
}

// runDaemon keeps the engine on the cron spec until a shutdown signal.
// Individual run failures are logged, not fatal.
func runDaemon(ctx context.Context, engine *updater.Engine, opts updater.Options, spec string, logger *slog.Logger) {
	sched := scheduler.New(spec, func(runCtx context.Context) {
		result := engine.Run(runCtx, opts)
		if result.Fatal != nil {
			logger.Error("scheduled run aborted", "error", result.Fatal)
		}
	}, logger)

	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := sched.Stop(stopCtx); err != nil {
		logger.Error("scheduler did not stop cleanly", "error", err)
	}
	logger.Info("price updater stopped")
}

// printSummary writes the per-product outcomes and the aggregate line to
// stdout.
func printSummary(result *updater.RunResult) {
	for _, out := range result.Outcomes {
		fmt.Println(formatOutcome(out))
	}
	fmt.Printf("%d updated, %d unchanged, %d skipped, %d failed in %s\n",
		result.Updated, result.Unchanged, result.Skipped, result.Failures,
		result.Duration.Round(time.Millisecond))
	if result.Fatal != nil {
		fmt.Printf("run aborted: %v\n", result.Fatal)
	}
}

func formatOutcome(out model.UpdateOutcome) string {
	line := fmt.Sprintf("%s  %-14s", out.ProductID, out.Status)
	switch {
	case out.NewQuote != nil && out.OldPrice != nil:
		line += fmt.Sprintf("  %s -> %s %s", out.OldPrice, out.NewQuote.Price, out.NewQuote.Currency)
	case out.NewQuote != nil:
		line += fmt.Sprintf("  %s %s", out.NewQuote.Price, out.NewQuote.Currency)
	}
	if len(out.FiredAlerts) > 0 {
		line += fmt.Sprintf("  alerts: %d", len(out.FiredAlerts))
	}
	if out.Reason != "" {
		line += "  (" + out.Reason + ")"
	}
	return line
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
