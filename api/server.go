package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"mercari-scraper/config"
	"mercari-scraper/models"
	"mercari-scraper/services"
	"mercari-scraper/storage"
	"mercari-scraper/utils"
)

const (
	msgNoResults      = "商品が見つかりませんでした"
	msgAnalysisFailed = "価格分析に失敗しました"
)

// Searcher runs one scrape-and-analyze session for a keyword.
type Searcher interface {
	Run(ctx context.Context, keyword string) (*models.SearchResult, error)
}

// Server exposes the search and download operations over HTTP.
type Server struct {
	cfg      *config.Config
	logger   *utils.Logger
	searcher Searcher
	files    *storage.FileStore
	limiter  *utils.SessionLimiter
}

// NewServer creates a Server.
func NewServer(cfg *config.Config, logger *utils.Logger, searcher Searcher, files *storage.FileStore) *Server {
	return &Server{
		cfg:      cfg,
		logger:   logger,
		searcher: searcher,
		files:    files,
		limiter:  utils.NewSessionLimiter(cfg.MaxSessions),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/api/v1/search", s.handleSearch)
	mux.HandleFunc("/api/v1/download/", s.handleDownload)
	return mux
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Mercari Scraper API is running"})
}

// handleSearch runs a full scrape session for the posted keyword. Each
// request gets its own browser; the limiter caps how many run at once.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSearchError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Keyword) == "" {
		writeSearchError(w, http.StatusBadRequest, "keyword is required")
		return
	}

	if err := s.limiter.Acquire(r.Context()); err != nil {
		// Client gave up while queued for a browser slot.
		return
	}
	defer s.limiter.Release()

	result, err := s.searcher.Run(r.Context(), req.Keyword)
	switch {
	case errors.Is(err, services.ErrNoListings):
		writeSearchError(w, http.StatusOK, msgNoResults)
	case errors.Is(err, services.ErrNoValidData):
		writeSearchError(w, http.StatusOK, msgAnalysisFailed)
	case err != nil:
		s.logger.Error("[api] Search %q failed: %v", req.Keyword, err)
		writeSearchError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, models.SearchResponse{
			Analysis: result.Analysis.Payload(),
			Filename: &result.Filename,
		})
	}
}

// handleDownload serves a result file as an attachment. The filename must
// match the safe pattern and the file must exist and fit the size cap.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/api/v1/download/")
	path, err := s.files.Resolve(name)
	switch {
	case errors.Is(err, storage.ErrInvalidFilename):
		http.Error(w, "invalid filename", http.StatusBadRequest)
		return
	case errors.Is(err, storage.ErrFileNotFound):
		http.Error(w, "file not found", http.StatusNotFound)
		return
	case errors.Is(err, storage.ErrFileTooLarge):
		http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
		return
	case err != nil:
		s.logger.Error("[api] Download %q failed: %v", name, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(name))
	http.ServeFile(w, r, path)
}

func writeSearchError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.SearchResponse{Error: &msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
