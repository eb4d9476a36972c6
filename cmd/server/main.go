package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/bohenriksen2020/insolvency-scraper/internal/cache"
	"github.com/bohenriksen2020/insolvency-scraper/internal/config"
	"github.com/bohenriksen2020/insolvency-scraper/internal/database"
	"github.com/bohenriksen2020/insolvency-scraper/internal/server"
	"github.com/bohenriksen2020/insolvency-scraper/pkg/logger"
)

func main() {
	var migrate bool
	flag.BoolVar(&migrate, "migrate", false, "Run database migrations")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := database.Initialize(cfg.DatabasePath)
	if err != nil {
		log.Fatal("Failed to initialize database", "error", err)
	}

	if migrate {
		if err := database.Migrate(db); err != nil {
			log.Fatal("Failed to run migrations", "error", err)
		}
		log.Info("Database migrations completed successfully")
		return
	}

	lookupCache := cache.NewCache(cfg.CacheSize, cfg.CacheTTL)

	srv, err := server.New(cfg, db, lookupCache, log)
	if err != nil {
		log.Fatal("Failed to initialize server", "error", err)
	}

	log.Info("Starting insolvency scraper",
		"host", cfg.Host,
		"port", cfg.Port,
		"gazette", cfg.GazetteBaseURL,
	)

	if err := srv.Run(); err != nil {
		log.Fatal("Server failed to start", "error", err)
	}
}
