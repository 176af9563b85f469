package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"linkedin-scraper/internal/config"
	"linkedin-scraper/internal/database"
	"linkedin-scraper/internal/monitoring"
	"linkedin-scraper/internal/utils"
)

func main() {
	var (
		configFile  = flag.String("config", "configs/config.yaml", "Configuration file path")
		metricsFile = flag.String("metrics", "", "Metrics file path (overrides config)")
		report      = flag.Bool("report", false, "Generate and display monitoring report")
		alerts      = flag.Bool("alerts", false, "Check and display alerts")
	)
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *metricsFile != "" {
		cfg.Monitoring.MetricsFile = *metricsFile
	}

	logger, logCloser, err := utils.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logCloser.Close()

	monitor := monitoring.NewMonitor(logger, cfg.Monitoring.MetricsFile)

	if *report {
		fmt.Println(monitor.GenerateReport())

		if !cfg.Database.Enabled {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		db, err := database.NewConnection(ctx, &cfg.Database, logger)
		if err != nil {
			logger.Errorf("Failed to connect to database: %v", err)
			return
		}
		defer db.Close()

		stats, err := db.GetArchiveStats(ctx)
		if err != nil {
			logger.Errorf("Failed to get archive stats: %v", err)
			return
		}
		fmt.Println("\nArchive Statistics:")
		fmt.Printf("- Sessions: %v\n", stats["total_sessions"])
		fmt.Printf("- Posts: %v\n", stats["total_posts"])
		fmt.Printf("- Profiles: %v\n", stats["profiles_scraped"])
		fmt.Printf("- Average Reactions: %.2f\n", stats["average_reactions"])
		fmt.Printf("- Last Archived: %v\n", stats["last_archived_at"])
		if byType, ok := stats["posts_by_type"].(map[string]int); ok {
			for postType, count := range byType {
				fmt.Printf("  - %s: %d\n", postType, count)
			}
		}
		return
	}

	if *alerts {
		alertManager := monitoring.NewAlertManager(monitor, logger)
		active := alertManager.CheckAlerts()

		if len(active) == 0 {
			fmt.Println("✅ No alerts - system is healthy")
		} else {
			fmt.Println("⚠️  Active Alerts:")
			for _, alert := range active {
				fmt.Printf("  - %s\n", alert)
			}
			alertManager.SendAlerts(active)
		}
		return
	}

	health := monitor.GetHealthStatus()
	fmt.Println("LinkedIn Scraper Status:")
	fmt.Printf("- Status: %s\n", health["status"])
	fmt.Printf("- Last Run: %s\n", health["last_run"])
	fmt.Printf("- Total Runs: %v\n", health["total_runs"])
	fmt.Printf("- Error Rate: %s\n", health["error_rate"])
	fmt.Printf("- Average Runtime: %s\n", health["average_runtime"])

	if warning, exists := health["warning"]; exists {
		fmt.Printf("- Warning: %s\n", warning)
	}
}
