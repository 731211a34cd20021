package services

import (
	"errors"
	"sort"
	"strconv"
	"strings"

	"mercari-scraper/models"
	"mercari-scraper/utils"
)

// ErrNoValidData is returned when no listing carries an analyzable price.
var ErrNoValidData = errors.New("no listings with analyzable prices")

// Analyzer computes price statistics over a session's accumulated listings.
type Analyzer struct {
	logger *utils.Logger
}

// NewAnalyzer creates an Analyzer with the given logger.
func NewAnalyzer(logger *utils.Logger) *Analyzer {
	return &Analyzer{logger: logger}
}

type pricedListing struct {
	value   int
	listing models.Listing
}

// Analyze filters the listings to those whose price is digits and commas
// only, then computes lowest, highest, average, median and count.
// Listings with currency symbols or suffixed units are excluded here but
// remain in the persisted file. Average and median stay unrounded; integer
// truncation happens at render time.
func (a *Analyzer) Analyze(listings []models.Listing) (*models.PriceAnalysis, error) {
	valid := make([]pricedListing, 0, len(listings))
	for _, l := range listings {
		value, ok := parsePrice(l.Price)
		if !ok {
			a.logger.Debug("[analyzer] Skipping unparseable price %q (%s)", l.Price, l.Name)
			continue
		}
		valid = append(valid, pricedListing{value: value, listing: l})
	}

	if len(valid) == 0 {
		return nil, ErrNoValidData
	}

	// Stable sort keeps crawl order among equal prices, so ties for the
	// extremes resolve to the earliest-seen listing.
	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].value < valid[j].value
	})

	var sum int
	for _, p := range valid {
		sum += p.value
	}

	n := len(valid)
	var median float64
	if n%2 == 0 {
		median = float64(valid[n/2-1].value+valid[n/2].value) / 2
	} else {
		median = float64(valid[n/2].value)
	}

	analysis := &models.PriceAnalysis{
		Lowest:  valid[0].listing,
		Highest: valid[n-1].listing,
		Average: float64(sum) / float64(n),
		Median:  median,
		Total:   n,
	}

	a.logger.Info("[analyzer] %d of %d listings analyzable — avg ¥%.0f, median ¥%.0f",
		n, len(listings), analysis.Average, analysis.Median)
	return analysis, nil
}

// parsePrice converts a raw price string to yen. Only digits with optional
// comma separators qualify; anything else disqualifies the listing.
func parsePrice(raw string) (int, bool) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	value, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return value, true
}
