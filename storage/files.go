package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"mercari-scraper/utils"
)

var (
	// ErrInvalidFilename means the requested name failed validation.
	ErrInvalidFilename = errors.New("invalid filename")
	// ErrFileNotFound means no such result file exists.
	ErrFileNotFound = errors.New("file not found")
	// ErrFileTooLarge means the file exceeds the download size cap.
	ErrFileTooLarge = errors.New("file too large")
)

// filenamePattern accepts word characters, dashes and dots ending in .csv.
// Path separators never match, so traversal names are rejected outright.
var filenamePattern = regexp.MustCompile(`^[\w.-]+\.csv$`)

// FileStore manages the results directory: session filenames, stale-file
// retention and download resolution.
type FileStore struct {
	dir       string
	retention time.Duration
	maxBytes  int64
	logger    *utils.Logger
}

// NewFileStore creates the results directory if needed.
func NewFileStore(dir string, retention time.Duration, maxBytes int64, logger *utils.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("files: create results dir: %w", err)
	}
	return &FileStore{dir: dir, retention: retention, maxBytes: maxBytes, logger: logger}, nil
}

// Dir returns the results directory path.
func (s *FileStore) Dir() string {
	return s.dir
}

// NewSessionFilename derives a per-request unique result filename from the
// session start time. Concurrent searches never share an output file.
func (s *FileStore) NewSessionFilename() string {
	now := time.Now()
	return fmt.Sprintf("%s_%09d.csv", now.Format("20060102_150405"), now.Nanosecond())
}

// CleanupStale deletes result files older than the retention window.
// Runs before each session; deletion failures are logged, not fatal.
func (s *FileStore) CleanupStale() {
	cutoff := time.Now().Add(-s.retention)
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Warn("[files] Cleanup: read dir: %v", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			s.logger.Warn("[files] Cleanup: remove %s: %v", entry.Name(), err)
			continue
		}
		s.logger.Info("[files] Removed stale result file: %s", entry.Name())
	}
}

// ValidFilename reports whether name is a safe result filename.
func ValidFilename(name string) bool {
	return filenamePattern.MatchString(name) && filepath.Base(name) == name
}

// Resolve validates a download request and returns the absolute path of the
// result file. It returns ErrInvalidFilename, ErrFileNotFound or
// ErrFileTooLarge for the client-facing failure cases.
func (s *FileStore) Resolve(name string) (string, error) {
	if !ValidFilename(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	path := filepath.Join(s.dir, name)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %q", ErrFileNotFound, name)
		}
		return "", fmt.Errorf("files: stat %q: %w", name, err)
	}
	if info.Size() > s.maxBytes {
		return "", fmt.Errorf("%w: %q is %d bytes", ErrFileTooLarge, name, info.Size())
	}
	return path, nil
}
