package models

// Listing holds one scraped product record exactly as it appeared on the
// page: a trimmed name and the raw price string (digits and commas on a
// healthy page, but currency symbols or unit suffixes can leak in).
type Listing struct {
	Name  string `json:"name"`
	Price string `json:"price"`
}

// PageBatch is the set of listings extracted from a single search-results
// page, in on-page order. It is created once by the collector, appended
// once by the sink, then discarded.
type PageBatch struct {
	Number      int
	Listings    []Listing
	IsFirstPage bool
	IsLastPage  bool
}

// PriceAnalysis holds the statistics computed over the valid listings of a
// whole session. It is either fully populated or absent; the analyzer
// never returns a partial object. Lowest and Highest carry the raw price
// strings; yen formatting happens only at render time.
type PriceAnalysis struct {
	Lowest  Listing
	Highest Listing
	Average float64
	Median  float64
	Total   int
}

// AnalysisPayload is the JSON shape of a PriceAnalysis in API responses.
// Average and median are truncated to whole yen.
type AnalysisPayload struct {
	LowestPrice  Listing `json:"lowest_price"`
	HighestPrice Listing `json:"highest_price"`
	AveragePrice int     `json:"average_price"`
	MedianPrice  int     `json:"median_price"`
	TotalItems   int     `json:"total_items"`
}

// Payload converts the analysis to its API representation.
func (a *PriceAnalysis) Payload() *AnalysisPayload {
	if a == nil {
		return nil
	}
	return &AnalysisPayload{
		LowestPrice:  a.Lowest,
		HighestPrice: a.Highest,
		AveragePrice: int(a.Average),
		MedianPrice:  int(a.Median),
		TotalItems:   a.Total,
	}
}

// SearchRequest is the body of POST /api/v1/search.
type SearchRequest struct {
	Keyword string `json:"keyword"`
}

// SearchResponse is the body returned by the search endpoint. Exactly one
// of Analysis or Error is set.
type SearchResponse struct {
	Analysis *AnalysisPayload `json:"analysis"`
	Error    *string          `json:"error"`
	Filename *string          `json:"filename"`
}

// SearchResult is the internal outcome of a completed scrape session.
type SearchResult struct {
	Analysis *PriceAnalysis
	Filename string
	Listings []Listing
}
