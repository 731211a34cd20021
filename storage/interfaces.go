package storage

import "mercari-scraper/models"

// BatchSink is the interface the crawl appends page batches through.
type BatchSink interface {
	Append(filename, keyword string, batch models.PageBatch, analysis *models.PriceAnalysis) error
}

// SessionArchive persists a completed session's listings to a database.
type SessionArchive interface {
	Archive(keyword, filename string, listings []models.Listing) error
	Close() error
}
