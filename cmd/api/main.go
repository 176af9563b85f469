package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"linkedin-scraper/internal/api"
	"linkedin-scraper/internal/browser"
	"linkedin-scraper/internal/config"
	"linkedin-scraper/internal/database"
	"linkedin-scraper/internal/monitoring"
	"linkedin-scraper/internal/scraper"
	"linkedin-scraper/internal/store"
	"linkedin-scraper/internal/utils"
)

func main() {
	var (
		configFile = flag.String("config", "configs/config.yaml", "Configuration file path")
		port       = flag.String("port", "", "API server port (overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != "" {
		cfg.API.Port = *port
	}

	logger, logCloser, err := utils.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logCloser.Close()

	sessions, err := store.New(cfg.Storage.Dir, logger)
	if err != nil {
		logger.Fatalf("Failed to prepare storage: %v", err)
	}

	monitor := monitoring.NewMonitor(logger, cfg.Monitoring.MetricsFile)
	challenges := scraper.NewChallengeBroker(cfg.Auth.ChallengeWait, logger)

	launcher := browser.NewLauncher(cfg.Browser, logger)
	auth := scraper.NewAuthenticator(cfg.LinkedIn.LoginURL, cfg.Scraper, challenges, logger)
	runner := scraper.NewRunner(cfg, launcher, auth, monitor, logger)

	opts := []api.Option{api.WithMonitor(monitor), api.WithChallenges(challenges)}

	if cfg.Database.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		db, err := database.NewConnection(ctx, &cfg.Database, logger)
		if err != nil {
			cancel()
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		if err := db.RunMigrations(ctx); err != nil {
			cancel()
			logger.Fatalf("Failed to run migrations: %v", err)
		}
		cancel()
		defer db.Close()
		opts = append(opts, api.WithArchive(db))
	}

	server := api.NewServer(cfg, runner, sessions, logger, opts...)

	logger.Infof("Starting LinkedIn Scraper API server on port %s", cfg.API.Port)
	logger.Info("Available endpoints:")
	logger.Info("  POST /scrape - Scrape posts from LinkedIn profiles")
	logger.Info("  GET  /sessions - List saved sessions")
	logger.Info("  GET  /session/{id} - Get a saved session")
	logger.Info("  GET  /media/{session}/{file} - Serve a downloaded media file")
	logger.Info("  GET  /challenges - List runs waiting on verification")
	logger.Info("  GET  /stats - Scraper metrics")
	logger.Info("  GET  /health - Health check")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	case sig := <-stop:
		logger.Infof("Received %s, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Errorf("Shutdown error: %v", err)
		}
	}
}
