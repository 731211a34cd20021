package main

import (
	"net/http"

	"mercari-scraper/api"
	"mercari-scraper/config"
	"mercari-scraper/scraper/mercari"
	"mercari-scraper/services"
	"mercari-scraper/storage"
	"mercari-scraper/utils"
)

func main() {
	logger := utils.NewLogger()
	cfg := config.Load()

	logger.Info("=== Mercari Scraper API starting ===")
	logger.Info("Config — port: %s | max sessions: %d | retention: %v",
		cfg.ServerPort, cfg.MaxSessions, cfg.RetentionWindow)

	files, err := storage.NewFileStore(cfg.ResultsDir, cfg.RetentionWindow, cfg.MaxDownloadBytes, logger)
	if err != nil {
		logger.Fatal("Failed to set up results directory: %v", err)
	}

	sink, err := storage.NewCSVWriter(cfg.ResultsDir, logger)
	if err != nil {
		logger.Fatal("Failed to create CSV writer: %v", err)
	}

	var archive storage.SessionArchive
	if cfg.ArchiveEnabled {
		pg, err := storage.NewPostgresArchive(cfg.DSN(), logger)
		if err != nil {
			logger.Error("PostgreSQL archive unavailable: %v — continuing without it", err)
		} else {
			archive = pg
			defer pg.Close()
		}
	}

	collector := mercari.NewCollector(cfg, logger)
	svc := services.NewScrapeService(cfg, logger, collector, sink, files, archive)
	server := api.NewServer(cfg, logger, svc, files)

	logger.Info("Listening on :%s", cfg.ServerPort)
	if err := http.ListenAndServe(":"+cfg.ServerPort, server.Handler()); err != nil {
		logger.Fatal("Server stopped: %v", err)
	}
}
