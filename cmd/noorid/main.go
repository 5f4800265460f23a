// Command noorid runs the custodial ledger daemon: REST API, interest
// sweeper, and bridge release poller.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	app "github.com/Altruva-Group/noori-bank/internal/app"
	"github.com/Altruva-Group/noori-bank/internal/app/events"
	"github.com/Altruva-Group/noori-bank/internal/app/httpapi"
	"github.com/Altruva-Group/noori-bank/internal/app/metrics"
	lendingsvc "github.com/Altruva-Group/noori-bank/internal/app/services/lending"
	"github.com/Altruva-Group/noori-bank/internal/app/storage/postgres"
	"github.com/Altruva-Group/noori-bank/internal/config"
	"github.com/Altruva-Group/noori-bank/pkg/logger"
)

func main() {
	log := logger.NewDefault("noorid")

	cfg, err := config.LoadOrDefault()
	if err != nil {
		log.WithError(err).Error("load configuration")
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Error("invalid configuration")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores := app.Stores{}
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Error("open database")
			os.Exit(1)
		}
		defer db.Close()
		if err := postgres.ApplyMigrations(ctx, db); err != nil {
			log.WithError(err).Error("apply migrations")
			os.Exit(1)
		}
		store := postgres.New(db)
		stores = app.Stores{
			Accounts: store,
			Balances: store,
			Loans:    store,
			Bridge:   store,
			Params:   store,
		}
		log.Info("using postgres storage")
	} else {
		log.Warn("DATABASE_URL not set; using in-memory storage")
	}

	var sink events.Sink
	if cfg.EventLogPath != "" {
		fileSink, err := events.NewFileSink(cfg.EventLogPath)
		if err != nil {
			log.WithError(err).Error("open event log")
			os.Exit(1)
		}
		defer fileSink.Close()
		sink = fileSink
	}

	opts := app.Options{
		Events:             events.NewLog(0, sink),
		AccrualSchedule:    cfg.AccrualSweepSchedule,
		BridgePollInterval: cfg.BridgePollInterval,
	}
	if cfg.Oracle.URL != "" {
		opts.Oracle = &lendingsvc.HTTPOracle{
			URL:           cfg.Oracle.URL,
			APIKey:        cfg.Oracle.APIKey,
			PricePath:     cfg.Oracle.PricePath,
			TimestampPath: cfg.Oracle.TimestampPath,
		}
	}

	application, err := app.New(stores, opts, log)
	if err != nil {
		log.WithError(err).Error("initialise application")
		os.Exit(1)
	}
	if err := application.Start(ctx); err != nil {
		log.WithError(err).Error("start application")
		os.Exit(1)
	}

	auth := httpapi.NewAuthMiddleware(cfg.JWTSecret, log, []string{"/healthz", "/metrics"})
	limiter := httpapi.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", httpapi.NewHandler(application))

	var handler http.Handler = auth.Handler(limiter.Handler(mux))
	if len(cfg.AllowedOrigins) > 0 {
		handler = httpapi.NewCORS(cfg.AllowedOrigins).Handler(handler)
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           metrics.InstrumentHandler(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http shutdown")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Error("application shutdown")
	}
}
