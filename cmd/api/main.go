package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/famboard/famboard-backend/api/routes"
	"github.com/famboard/famboard-backend/internal/captokens"
	"github.com/famboard/famboard-backend/internal/hints"
	"github.com/famboard/famboard-backend/internal/holds"
	"github.com/famboard/famboard-backend/internal/ledger"
	"github.com/famboard/famboard-backend/internal/refunds"
	"github.com/famboard/famboard-backend/internal/rewards"
	"github.com/famboard/famboard-backend/pkg/captoken"
	"github.com/famboard/famboard-backend/pkg/config"
	"github.com/famboard/famboard-backend/pkg/db"
	"github.com/famboard/famboard-backend/pkg/logger"
	"github.com/famboard/famboard-backend/pkg/metrics"
	"github.com/famboard/famboard-backend/pkg/migrate"
	"github.com/famboard/famboard-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	ledgerMetrics := metrics.NewLedgerMetrics(registry)

	ledgerRepo := ledger.NewRepository(dbClient.DB())
	ledgerSvc, err := ledger.NewService(ledger.ServiceParams{
		DB:      dbClient,
		Repo:    ledgerRepo,
		Metrics: ledgerMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	rewardSvc, err := rewards.NewService(rewards.ServiceParams{
		Repo: rewards.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create rewards service", err)
		os.Exit(1)
	}

	holdSvc, err := holds.NewService(holds.ServiceParams{
		DB:      dbClient,
		Repo:    holds.NewRepository(dbClient.DB()),
		Rewards: rewardSvc,
		Ledger:  ledgerSvc,
		Config:  cfg.Ledger,
		Metrics: ledgerMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create holds service", err)
		os.Exit(1)
	}

	refundSvc, err := refunds.NewService(refunds.ServiceParams{
		DB:      dbClient,
		Entries: ledgerRepo,
		Ledger:  ledgerSvc,
		Config:  cfg.Ledger,
		Metrics: ledgerMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create refunds service", err)
		os.Exit(1)
	}

	hintSvc, err := hints.NewService(hints.ServiceParams{
		Ledger:  ledgerSvc,
		Holds:   holdSvc,
		Refunds: refundSvc,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create hints service", err)
		os.Exit(1)
	}

	tokenSigner, err := captoken.NewService(cfg.CapToken)
	if err != nil {
		logg.Error(context.Background(), "failed to create capability token signer", err)
		os.Exit(1)
	}
	capTokenSvc, err := captokens.NewService(captokens.ServiceParams{
		DB:      dbClient,
		Repo:    captokens.NewRepository(dbClient.DB()),
		Tokens:  tokenSigner,
		Ledger:  ledgerSvc,
		Metrics: ledgerMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create scan token service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, routes.Services{
			Ledger:    ledgerSvc,
			Holds:     holdSvc,
			Refunds:   refundSvc,
			Rewards:   rewardSvc,
			Hints:     hintSvc,
			CapTokens: capTokenSvc,
		}, promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
