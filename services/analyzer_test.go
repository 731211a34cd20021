package services

import (
	"errors"
	"testing"

	"mercari-scraper/models"
	"mercari-scraper/utils"
)

func newTestAnalyzer() *Analyzer { return NewAnalyzer(utils.NewLogger()) }

func TestAnalyzeBasic(t *testing.T) {
	a := newTestAnalyzer()
	listings := []models.Listing{
		{Name: "商品1", Price: "1,000"},
		{Name: "商品2", Price: "2,000"},
		{Name: "商品3", Price: "3,000"},
	}

	got, err := a.Analyze(listings)
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if got.Lowest.Price != "1,000" || got.Lowest.Name != "商品1" {
		t.Errorf("Lowest: got %+v, want 商品1/1,000", got.Lowest)
	}
	if got.Highest.Price != "3,000" || got.Highest.Name != "商品3" {
		t.Errorf("Highest: got %+v, want 商品3/3,000", got.Highest)
	}
	if got.Average != 2000 {
		t.Errorf("Average: got %v, want 2000", got.Average)
	}
	if got.Median != 2000 {
		t.Errorf("Median: got %v, want 2000", got.Median)
	}
	if got.Total != 3 {
		t.Errorf("Total: got %d, want 3", got.Total)
	}
}

func TestAnalyzeTwoListings(t *testing.T) {
	a := newTestAnalyzer()
	got, err := a.Analyze([]models.Listing{
		{Name: "商品1", Price: "1,000"},
		{Name: "商品2", Price: "2,000"},
	})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if got.Total != 2 {
		t.Errorf("Total: got %d, want 2", got.Total)
	}
	if got.Average != 1500 {
		t.Errorf("Average: got %v, want 1500", got.Average)
	}
	if got.Median != 1500 {
		t.Errorf("Median: got %v, want 1500", got.Median)
	}
	if got.Lowest.Price != "1,000" {
		t.Errorf("Lowest.Price: got %q, want %q", got.Lowest.Price, "1,000")
	}
	if got.Highest.Price != "2,000" {
		t.Errorf("Highest.Price: got %q, want %q", got.Highest.Price, "2,000")
	}
}

func TestAnalyzeMedianEvenCount(t *testing.T) {
	a := newTestAnalyzer()
	got, err := a.Analyze([]models.Listing{
		{Name: "商品1", Price: "1,000"},
		{Name: "商品2", Price: "2,000"},
		{Name: "商品3", Price: "3,000"},
		{Name: "商品4", Price: "4,000"},
	})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if got.Median != 2500 {
		t.Errorf("Median: got %v, want 2500", got.Median)
	}
}

func TestAnalyzeAverageKeepsFraction(t *testing.T) {
	a := newTestAnalyzer()
	got, err := a.Analyze([]models.Listing{
		{Name: "商品1", Price: "1,000"},
		{Name: "商品2", Price: "2,001"},
	})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if got.Average != 1500.5 {
		t.Errorf("Average: got %v, want 1500.5", got.Average)
	}
}

func TestAnalyzeExcludesInvalidPrices(t *testing.T) {
	a := newTestAnalyzer()
	got, err := a.Analyze([]models.Listing{
		{Name: "商品1", Price: "1,000"},
		{Name: "商品2", Price: "1,000円"},
		{Name: "商品3", Price: "¥2,000"},
		{Name: "商品4", Price: "3,000"},
	})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if got.Total != 2 {
		t.Errorf("Total: got %d, want 2 (invalid prices excluded)", got.Total)
	}
	if got.Average != 2000 {
		t.Errorf("Average: got %v, want 2000", got.Average)
	}
}

func TestAnalyzeOnlyInvalidPrices(t *testing.T) {
	a := newTestAnalyzer()
	_, err := a.Analyze([]models.Listing{
		{Name: "商品1", Price: "1,000円"},
	})
	if !errors.Is(err, ErrNoValidData) {
		t.Errorf("expected ErrNoValidData, got %v", err)
	}
}

func TestAnalyzeEmptyInput(t *testing.T) {
	a := newTestAnalyzer()
	_, err := a.Analyze(nil)
	if !errors.Is(err, ErrNoValidData) {
		t.Errorf("expected ErrNoValidData, got %v", err)
	}
}

func TestAnalyzeTieBreakKeepsCrawlOrder(t *testing.T) {
	a := newTestAnalyzer()
	got, err := a.Analyze([]models.Listing{
		{Name: "先に見つかった商品", Price: "500"},
		{Name: "後で見つかった商品", Price: "500"},
		{Name: "商品3", Price: "900"},
	})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if got.Lowest.Name != "先に見つかった商品" {
		t.Errorf("Lowest tie-break: got %q, want first listing in crawl order", got.Lowest.Name)
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		raw   string
		want  int
		valid bool
	}{
		{"1,000", 1000, true},
		{"300", 300, true},
		{"12,345,678", 12345678, true},
		{"1,000円", 0, false},
		{"¥1,000", 0, false},
		{"", 0, false},
		{"  ", 0, false},
		{"free", 0, false},
		{"1 000", 0, false},
	}

	for _, tt := range tests {
		got, ok := parsePrice(tt.raw)
		if ok != tt.valid || got != tt.want {
			t.Errorf("parsePrice(%q) = (%d, %v); want (%d, %v)", tt.raw, got, ok, tt.want, tt.valid)
		}
	}
}
