package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mercari-scraper/config"
	"mercari-scraper/models"
	"mercari-scraper/storage"
	"mercari-scraper/utils"
)

// fakeCollector emits the configured batches without touching a browser.
type fakeCollector struct {
	batches []models.PageBatch
	err     error
}

func (f *fakeCollector) Collect(ctx context.Context, keyword string, emit func(models.PageBatch) error) ([]models.Listing, error) {
	if f.err != nil {
		return nil, f.err
	}
	var all []models.Listing
	for _, b := range f.batches {
		all = append(all, b.Listings...)
		if err := emit(b); err != nil {
			return all, nil
		}
	}
	return all, nil
}

func newTestService(t *testing.T, collector BatchCollector) (*ScrapeService, string) {
	t.Helper()
	dir := t.TempDir()
	logger := utils.NewLogger()
	cfg := &config.Config{ResultsDir: dir}

	files, err := storage.NewFileStore(dir, time.Hour, 10*1024*1024, logger)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	sink, err := storage.NewCSVWriter(dir, logger)
	if err != nil {
		t.Fatalf("NewCSVWriter: %v", err)
	}
	return NewScrapeService(cfg, logger, collector, sink, files, nil), dir
}

func readResult(t *testing.T, dir, filename string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		t.Fatalf("read result file: %v", err)
	}
	return string(data)
}

func TestRunHappyPath(t *testing.T) {
	collector := &fakeCollector{batches: []models.PageBatch{
		{Number: 1, IsFirstPage: true, Listings: []models.Listing{
			{Name: "iPhone 13", Price: "100,000"},
			{Name: "iPhone 12", Price: "80,000"},
		}},
		{Number: 2, Listings: []models.Listing{
			{Name: "iPhone 11", Price: "60,000"},
		}},
	}}
	svc, dir := newTestService(t, collector)

	result, err := svc.Run(context.Background(), "iphone")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Analysis.Total != 3 {
		t.Errorf("Total: got %d, want 3", result.Analysis.Total)
	}
	if result.Analysis.Median != 80000 {
		t.Errorf("Median: got %v, want 80000", result.Analysis.Median)
	}
	if !storage.ValidFilename(result.Filename) {
		t.Errorf("Filename %q should validate", result.Filename)
	}

	content := readResult(t, dir, result.Filename)
	if strings.Count(content, "検索キーワード") != 1 {
		t.Error("header should appear exactly once")
	}
	for _, want := range []string{"iPhone 13", "iPhone 11", "=== 価格分析 ===", "取得商品数,3件"} {
		if !strings.Contains(content, want) {
			t.Errorf("result file missing %q:\n%s", want, content)
		}
	}
}

func TestRunEmptyKeyword(t *testing.T) {
	svc, _ := newTestService(t, &fakeCollector{})
	_, err := svc.Run(context.Background(), "   ")
	if !errors.Is(err, ErrEmptyKeyword) {
		t.Errorf("expected ErrEmptyKeyword, got %v", err)
	}
}

func TestRunNoListings(t *testing.T) {
	svc, _ := newTestService(t, &fakeCollector{})
	_, err := svc.Run(context.Background(), "iphone")
	if !errors.Is(err, ErrNoListings) {
		t.Errorf("expected ErrNoListings, got %v", err)
	}
}

func TestRunNoValidDataStillWritesFile(t *testing.T) {
	collector := &fakeCollector{batches: []models.PageBatch{
		{Number: 1, IsFirstPage: true, Listings: []models.Listing{
			{Name: "商品1", Price: "1,000円"},
		}},
	}}
	svc, dir := newTestService(t, collector)

	_, err := svc.Run(context.Background(), "iphone")
	if !errors.Is(err, ErrNoValidData) {
		t.Fatalf("expected ErrNoValidData, got %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected exactly one result file, got %d (err %v)", len(entries), err)
	}
	content := readResult(t, dir, entries[0].Name())
	if !strings.Contains(content, "分析対象の商品がありません") {
		t.Errorf("result file should carry the no-data row:\n%s", content)
	}
	if !strings.Contains(content, "1,000円") {
		t.Error("raw listing with invalid price should still be persisted")
	}
}

func TestRunFirstPageFailurePropagates(t *testing.T) {
	fatal := errors.New("first page never loaded")
	svc, dir := newTestService(t, &fakeCollector{err: fatal})

	_, err := svc.Run(context.Background(), "iphone")
	if !errors.Is(err, fatal) {
		t.Errorf("expected wrapped collector error, got %v", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("no result file should exist after a fatal first page, found %d", len(entries))
	}
}
