package main

import (
	"context"
	"fmt"
	"os"

	"mercari-scraper/config"
	"mercari-scraper/scraper/mercari"
	"mercari-scraper/services"
	"mercari-scraper/storage"
	"mercari-scraper/utils"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: mercari-scraper <keyword>")
		os.Exit(2)
	}
	keyword := os.Args[1]

	logger := utils.NewLogger()
	cfg := config.Load()

	logger.Info("=== Mercari Scraping System starting ===")
	logger.Info("Config — max pages: %d | page timeout: %v | results dir: %s",
		cfg.MaxPages, cfg.PageLoadTimeout, cfg.ResultsDir)

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

	result, err := svc.Run(context.Background(), keyword)
	if err != nil {
		logger.Fatal("Scrape failed: %v", err)
	}

	a := result.Analysis
	fmt.Println()
	fmt.Println("=== 価格分析 ===")
	fmt.Printf("最低金額商品 : ¥%s (%s)\n", a.Lowest.Price, a.Lowest.Name)
	fmt.Printf("最高金額商品 : ¥%s (%s)\n", a.Highest.Price, a.Highest.Name)
	fmt.Printf("平均価格     : ¥%d\n", int(a.Average))
	fmt.Printf("中央値       : ¥%d\n", int(a.Median))
	fmt.Printf("取得商品数   : %d件\n", a.Total)
	fmt.Printf("\n  Done. Results → %s\n\n", result.Filename)
}
