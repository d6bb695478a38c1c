package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"qrlink/internal/engine/analytics"
	"qrlink/internal/engine/assets"
	"qrlink/internal/pkg/logger"
	"qrlink/internal/platform/config"
	"qrlink/internal/workers"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to config file")
	once := flag.Bool("once", false, "Run every job once and exit")
	flag.Parse()

	godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	logger.Init(cfg.Logging)

	loc := analytics.LoadLocation(cfg.Analytics.Timezone)
	tracker := analytics.NewService(analytics.NewRepository(cfg.Analytics.Path), loc, cfg.Analytics.Salt)
	store := assets.NewStore(cfg.Uploads.Root, cfg.Uploads.MaxMB)

	prune := workers.PruneAnalytics(tracker, cfg.Analytics.RetentionDays)
	cleanup := workers.CleanUploads(store, time.Hour)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *once {
		for _, job := range []workers.Job{prune, cleanup} {
			if err := job.Run(ctx); err != nil {
				log.Fatal().Err(err).Str("job", job.Name).Msg("Job failed")
			}
		}
		return
	}

	log.Info().Int("retention_days", cfg.Analytics.RetentionDays).Msg("Starting qrlink background workers")

	g, gCtx := errgroup.WithContext(ctx)

	// Analytics retention at 01:00 in the analytics timezone
	g.Go(func() error { return workers.RunDaily(gCtx, loc, 1, prune) })

	g.Go(func() error { return workers.RunEvery(gCtx, 30*time.Minute, cleanup) })

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Worker failed")
	}
	log.Info().Msg("Workers stopped")
}
