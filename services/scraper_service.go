package services

import (
	"context"
	"errors"
	"strings"

	"mercari-scraper/config"
	"mercari-scraper/models"
	"mercari-scraper/storage"
	"mercari-scraper/utils"
)

var (
	// ErrEmptyKeyword is returned when the search keyword is blank.
	ErrEmptyKeyword = errors.New("keyword must not be empty")
	// ErrNoListings is returned when the crawl finishes with zero listings.
	ErrNoListings = errors.New("no listings found")
)

// BatchCollector is the crawl dependency of the scrape service.
type BatchCollector interface {
	Collect(ctx context.Context, keyword string, emit func(models.PageBatch) error) ([]models.Listing, error)
}

// ScrapeService wires one search request end to end: purge stale files,
// crawl with incremental persistence, analyze prices, append the
// statistics zone, and optionally archive the session to PostgreSQL.
type ScrapeService struct {
	cfg       *config.Config
	logger    *utils.Logger
	collector BatchCollector
	analyzer  *Analyzer
	sink      storage.BatchSink
	files     *storage.FileStore
	archive   storage.SessionArchive
}

// NewScrapeService creates a ScrapeService. archive may be nil when the
// PostgreSQL archive is disabled.
func NewScrapeService(
	cfg *config.Config,
	logger *utils.Logger,
	collector BatchCollector,
	sink storage.BatchSink,
	files *storage.FileStore,
	archive storage.SessionArchive,
) *ScrapeService {
	return &ScrapeService{
		cfg:       cfg,
		logger:    logger,
		collector: collector,
		analyzer:  NewAnalyzer(logger),
		sink:      sink,
		files:     files,
		archive:   archive,
	}
}

// Run executes a full scrape session for the keyword. Each page batch goes
// straight to the sink as it is collected, so partial results survive a
// crawl that dies on a later page. The statistics zone is appended as a
// synthetic zero-listing last batch once the crawl ends.
//
// Error mapping: ErrEmptyKeyword for a blank keyword, ErrNoListings when
// the crawl yields nothing, ErrNoValidData when no price is analyzable,
// and a wrapped crawl error when the first page never loads.
func (s *ScrapeService) Run(ctx context.Context, keyword string) (*models.SearchResult, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, ErrEmptyKeyword
	}

	s.files.CleanupStale()
	filename := s.files.NewSessionFilename()
	s.logger.Info("[service] Session started — keyword %q, file %s", keyword, filename)

	pages := 0
	listings, err := s.collector.Collect(ctx, keyword, func(batch models.PageBatch) error {
		pages++
		return s.sink.Append(filename, keyword, batch, nil)
	})
	if err != nil {
		return nil, err
	}
	if len(listings) == 0 {
		return nil, ErrNoListings
	}

	analysis, analysisErr := s.analyzer.Analyze(listings)

	finalBatch := models.PageBatch{
		Number:      pages + 1,
		IsFirstPage: pages == 0,
		IsLastPage:  true,
	}
	if err := s.sink.Append(filename, keyword, finalBatch, analysis); err != nil {
		s.logger.Error("[service] Writing statistics zone failed: %v", err)
	}

	if analysisErr != nil {
		return nil, analysisErr
	}

	if s.archive != nil {
		if err := s.archive.Archive(keyword, filename, listings); err != nil {
			s.logger.Error("[service] Session archive failed: %v", err)
		}
	}

	s.logger.Info("[service] Session complete — %d listings, %d analyzable", len(listings), analysis.Total)
	return &models.SearchResult{
		Analysis: analysis,
		Filename: filename,
		Listings: listings,
	}, nil
}
