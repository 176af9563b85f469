package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"linkedin-scraper/internal/browser"
	"linkedin-scraper/internal/config"
	"linkedin-scraper/internal/scraper"
	"linkedin-scraper/internal/utils"
)

func main() {
	var (
		configFile = flag.String("config", "configs/config.yaml", "Configuration file path")
		headless   = flag.Bool("headless", false, "Run the browser without a window")
	)
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.Logging.Level = "debug"

	logger, logCloser, err := utils.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logCloser.Close()

	if cfg.LinkedIn.Email == "" || cfg.LinkedIn.Password == "" {
		log.Fatal("LINKEDIN_EMAIL and LINKEDIN_PASSWORD must be set")
	}

	ctx := context.Background()
	launcher := browser.NewLauncher(cfg.Browser, logger)

	fmt.Println("Opening browser...")
	session, err := launcher.Open(ctx, browser.Options{Headless: *headless})
	if err != nil {
		log.Fatalf("Failed to open browser: %v", err)
	}
	defer session.Close()

	auth := scraper.NewAuthenticator(cfg.LinkedIn.LoginURL, cfg.Scraper, scraper.NewConsolePrompt(os.Stdin, os.Stdout), logger)

	fmt.Println("Testing login...")
	state, err := auth.Login(ctx, session, "test-login", cfg.LinkedIn.Email, cfg.LinkedIn.Password)
	if err != nil {
		fmt.Printf("❌ Login failed (%s): %v\n", state, err)
		return
	}

	cookies, err := session.Cookies(ctx)
	if err != nil {
		logger.Warnf("Failed to read cookies: %v", err)
	}
	fmt.Printf("✅ Login successful! State: %s, cookies: %d\n", state, len(cookies))
}
