package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"linkedin-scraper/internal/browser"
	"linkedin-scraper/internal/config"
	"linkedin-scraper/internal/credentials"
	"linkedin-scraper/internal/database"
	"linkedin-scraper/internal/monitoring"
	"linkedin-scraper/internal/scraper"
	"linkedin-scraper/internal/store"
	"linkedin-scraper/internal/utils"
	"linkedin-scraper/pkg/types"
)

func main() {
	var (
		configFile = flag.String("config", "configs/config.yaml", "Configuration file path")
		remember   = flag.Bool("remember", false, "Read and store credentials in the OS keyring")
		headless   = flag.Bool("headless", false, "Run the browser without a window")
	)
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, logCloser, err := utils.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logCloser.Close()

	in := bufio.NewReader(os.Stdin)
	console := newConsole(in, os.Stdout)

	var keys *credentials.Store
	if *remember {
		keys = credentials.NewStore()
	}

	fmt.Println("🚀 LinkedIn Posts Scraper")
	input, err := console.collect(cfg, keys)
	if err != nil {
		log.Fatalf("Failed to read input: %v", err)
	}

	sessions, err := store.New(cfg.Storage.Dir, logger)
	if err != nil {
		logger.Fatalf("Failed to prepare storage: %v", err)
	}

	monitor := monitoring.NewMonitor(logger, cfg.Monitoring.MetricsFile)
	launcher := browser.NewLauncher(cfg.Browser, logger)
	auth := scraper.NewAuthenticator(cfg.LinkedIn.LoginURL, cfg.Scraper, scraper.NewConsolePrompt(in, os.Stdout), logger)
	runner := scraper.NewRunner(cfg, launcher, auth, monitor, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runID := store.NewSessionID(time.Now())
	result, err := runner.Run(ctx, scraper.RunRequest{
		RunID:         runID,
		Email:         input.email,
		Password:      input.password,
		ProfileURLs:   []string{input.profileURL},
		Scrolls:       input.scrolls,
		MaxPosts:      input.maxPosts,
		Headless:      *headless,
		DownloadMedia: cfg.Media.Download,
	})
	if err != nil {
		state := scraper.LoginStateLoggedOut
		if result != nil {
			state = result.LoginState
		}
		fmt.Printf("❌ Scrape failed (%s): %v\n", state, err)
		fmt.Println("\n👋 Done!")
		os.Exit(1)
	}

	if keys != nil {
		if err := keys.Save(input.email, input.password); err != nil {
			logger.Warnf("Failed to remember credentials: %v", err)
		}
	}

	session := result.Session
	if len(session.Posts) == 0 {
		fmt.Println("❌ No posts extracted.")
		fmt.Println("\n👋 Done!")
		return
	}

	displayPosts(os.Stdout, session.Posts)

	path, err := sessions.Save(session)
	if err != nil {
		logger.Fatalf("Failed to save session: %v", err)
	}
	fmt.Printf("💾 Saved %d posts to %s\n", session.TotalPosts, path)

	if cfg.Database.Enabled {
		if err := archive(ctx, cfg, session, logger); err != nil {
			logger.Errorf("Failed to archive session: %v", err)
		}
	}

	printSummary(os.Stdout, session.Posts, cfg.Media.Download)
	fmt.Println("\n👋 Done!")
}

// archive mirrors the saved session into Postgres.
func archive(ctx context.Context, cfg *config.Config, session *types.ScrapeSession, logger *logrus.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db, err := database.NewConnection(ctx, &cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.RunMigrations(ctx); err != nil {
		return err
	}
	return db.SaveSession(ctx, session)
}
