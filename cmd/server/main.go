package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"qrlink/internal/api"
	"qrlink/internal/api/handlers"
	"qrlink/internal/api/middleware"
	"qrlink/internal/engine/analytics"
	"qrlink/internal/engine/assets"
	"qrlink/internal/engine/links"
	"qrlink/internal/engine/qr"
	"qrlink/internal/pkg/logger"
	"qrlink/internal/platform/auth"
	"qrlink/internal/platform/config"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to config file")
	flag.Parse()

	if err := godotenv.Load(); err == nil {
		log.Debug().Msg(".env file loaded")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	logger.Init(cfg.Logging)

	if err := run(*configPath, cfg); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func run(configPath string, cfg *config.Config) error {
	if err := config.Watch(configPath, func(next *config.Config) {
		level := logger.SetLevel(next.Logging.Level)
		log.Info().Str("level", level.String()).Msg("Log level reloaded")
	}); err != nil {
		log.Warn().Err(err).Msg("Config watch disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores
	store, err := links.OpenStore(ctx, cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open %s link store: %w", cfg.Store.Driver, err)
	}
	linkSvc := links.NewService(store, cfg.Store.CodeLength)
	defer linkSvc.Close()

	assetStore := assets.NewStore(cfg.Uploads.Root, cfg.Uploads.MaxMB)
	if err := assetStore.EnsureDirs(); err != nil {
		return fmt.Errorf("create upload folders: %w", err)
	}

	tracker := analytics.NewService(
		analytics.NewRepository(cfg.Analytics.Path),
		analytics.LoadLocation(cfg.Analytics.Timezone),
		cfg.Analytics.Salt,
	)

	renderer, err := qr.NewRenderer(qr.Options{
		Version: cfg.QR.Version,
		Border:  cfg.QR.Border,
		MinSize: cfg.QR.MinSize,
		MaxSize: cfg.QR.MaxSize,
	})
	if err != nil {
		return fmt.Errorf("qr settings: %w", err)
	}

	// Middleware
	sessions := auth.NewSessionService(cfg.Security)
	adminMiddleware := middleware.NewAdminMiddleware(sessions, strings.HasPrefix(cfg.Server.BaseURL, "https://"))
	rateLimiter := middleware.NewRateLimiter()
	defer rateLimiter.Close()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Router
	deps := &api.Dependencies{
		QRHandler:        handlers.NewQRHandler(renderer, assetStore, tracker, cfg.QR),
		UploadHandler:    handlers.NewUploadHandler(assetStore, linkSvc, tracker, cfg.Server.BaseURL),
		RedirectHandler:  handlers.NewRedirectHandler(linkSvc),
		AdminHandler:     handlers.NewAdminHandler(assetStore, linkSvc, cfg.Server.BaseURL),
		LinkHandler:      handlers.NewLinkHandler(linkSvc, cfg.Server.BaseURL),
		AnalyticsHandler: handlers.NewAnalyticsHandler(tracker),
		HealthHandler:    handlers.NewHealthHandler(linkSvc, cfg.Uploads.Root),
		MetricsHandler:   handlers.NewMetricsHandler(registry, linkSvc, tracker),
		AdminMiddleware:  adminMiddleware,
		RateLimiter:      rateLimiter,
		HTTPMetrics:      middleware.NewHTTPMetrics(registry),
		RateLimits:       cfg.RateLimit,
		StaticRoot:       cfg.Uploads.Root,
		MaxBodyBytes:     cfg.Uploads.GlobalMaxMB << 20,
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      api.NewHandler(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Str("store", cfg.Store.Driver).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("Server stopped")
	return nil
}
