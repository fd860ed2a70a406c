package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/joho/godotenv"

	"github.com/docupos/api/internal/config"
)

// The sweeper runs out-of-process and triggers the API's internal sweep
// endpoint on a fixed interval. Running it against multiple API replicas is
// safe: the cancel is a conditional update, so only one replica wins per
// order.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := config.NewLogger(cfg)

	apiURL := os.Getenv("API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:" + cfg.Port
	}

	interval := 5 * time.Minute
	if raw := os.Getenv("SWEEP_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			logger.Fatal().Err(err).Str("value", raw).Msg("invalid SWEEP_INTERVAL")
		}
		interval = d
	}

	client := &http.Client{Timeout: 30 * time.Second}

	sweep := func() {
		req, err := http.NewRequest(http.MethodPost, apiURL+"/internal/sweep", nil)
		if err != nil {
			logger.Error().Err(err).Msg("build sweep request")
			return
		}
		req.Header.Set("X-Sweep-Secret", cfg.SweepSecret)

		resp, err := client.Do(req)
		if err != nil {
			logger.Error().Err(err).Msg("sweep request failed")
			return
		}
		defer resp.Body.Close() //nolint:errcheck

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if resp.StatusCode != http.StatusOK {
			logger.Error().Int("status", resp.StatusCode).Str("body", string(body)).Msg("sweep rejected")
			return
		}
		logger.Info().Str("result", string(body)).Msg("sweep completed")
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler init failed")
	}

	if _, err := scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(sweep),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	); err != nil {
		logger.Fatal().Err(err).Msg("schedule sweep job failed")
	}

	scheduler.Start()
	logger.Info().Str("interval", fmt.Sprint(interval)).Str("api", apiURL).Msg("sweeper started")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	if err := scheduler.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("scheduler shutdown failed")
	}
}
