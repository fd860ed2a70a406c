package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/docupos/api/internal/config"
	"github.com/docupos/api/internal/database"
	"github.com/docupos/api/internal/notify"
	"github.com/docupos/api/internal/objstore"
	"github.com/docupos/api/internal/router"
	"github.com/docupos/api/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := config.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("database connection failed")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("database ping failed")
	}

	evidence, err := objstore.NewS3Store(ctx, cfg.EvidenceBucket, cfg.AWSRegion, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("object store init failed")
	}

	sms := notify.NewSMSClient(cfg.SMSGatewayURL, cfg.SMSAPIKey, 5*time.Second, logger)

	hub := ws.NewHub()
	go hub.Run()

	r := router.New(cfg, router.Deps{
		Queries:  database.New(pool),
		Pool:     pool,
		Hub:      hub,
		Evidence: evidence,
		SMS:      sms,
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown failed")
	}
}
