package config

import (
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Search target
	SearchURLTemplate  string
	ItemCellSelector   string
	ItemNameSelector   string
	ItemPriceSelector  string
	NextButtonSelector string

	// Browser
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	Locale         string
	TimezoneID     string
	Headless       bool
	ChromeBin      string

	// Consent cookie installed before the first navigation
	CookieName   string
	CookieValue  string
	CookieDomain string
	CookiePath   string

	// Crawl timing
	PageLoadTimeout time.Duration
	MinPageWait     time.Duration
	MaxPageWait     time.Duration
	ScrollFractions []float64
	ScrollWait      time.Duration
	MaxPages        int

	// Results
	ResultsDir       string
	RetentionWindow  time.Duration
	MaxDownloadBytes int64

	// Server
	ServerPort  string
	MaxSessions int

	// PostgreSQL session archive (optional)
	ArchiveEnabled   bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		SearchURLTemplate:  getEnv("SEARCH_URL_TEMPLATE", "https://jp.mercari.com/search?keyword={keyword}"),
		ItemCellSelector:   getEnv("ITEM_CELL_SELECTOR", `li[data-testid="item-cell"]`),
		ItemNameSelector:   getEnv("ITEM_NAME_SELECTOR", `span[data-testid="thumbnail-item-name"]`),
		ItemPriceSelector:  getEnv("ITEM_PRICE_SELECTOR", `span[class*="number__"]`),
		NextButtonSelector: getEnv("NEXT_BUTTON_SELECTOR", `div[data-testid="pagination-next-button"]`),

		UserAgent: getEnv("USER_AGENT", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) "+
			"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
		ViewportWidth:  getEnvInt("VIEWPORT_WIDTH", 1920),
		ViewportHeight: getEnvInt("VIEWPORT_HEIGHT", 1080),
		Locale:         getEnv("LOCALE", "ja-JP"),
		TimezoneID:     getEnv("TIMEZONE_ID", "Asia/Tokyo"),
		Headless:       getEnvBool("HEADLESS", true),
		ChromeBin:      getEnv("CHROME_BIN", ""),

		CookieName:   getEnv("COOKIE_NAME", "mercari_accept_cookie"),
		CookieValue:  getEnv("COOKIE_VALUE", "1"),
		CookieDomain: getEnv("COOKIE_DOMAIN", ".mercari.com"),
		CookiePath:   getEnv("COOKIE_PATH", "/"),

		PageLoadTimeout: getEnvDuration("PAGE_LOAD_TIMEOUT_MS", 10000),
		MinPageWait:     getEnvDuration("MIN_PAGE_WAIT_MS", 2000),
		MaxPageWait:     getEnvDuration("MAX_PAGE_WAIT_MS", 5000),
		ScrollFractions: getEnvFractions("SCROLL_FRACTIONS", defaultScrollFractions()),
		ScrollWait:      getEnvDuration("SCROLL_WAIT_MS", 2000),
		MaxPages:        getEnvInt("MAX_PAGES", 0),

		ResultsDir:       getEnv("RESULTS_DIR", "./results"),
		RetentionWindow:  getEnvDuration("RETENTION_WINDOW_MS", int(time.Hour/time.Millisecond)),
		MaxDownloadBytes: int64(getEnvInt("MAX_DOWNLOAD_BYTES", 10*1024*1024)),

		ServerPort:  getEnv("PORT", "8080"),
		MaxSessions: getEnvInt("MAX_SESSIONS", 2),

		ArchiveEnabled:   getEnvBool("ARCHIVE_ENABLED", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "mercari_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
	}
}

// SearchURL substitutes the URL-encoded keyword into the search URL template.
func (c *Config) SearchURL(keyword string) string {
	return strings.ReplaceAll(c.SearchURLTemplate, "{keyword}", url.QueryEscape(keyword))
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func defaultScrollFractions() []float64 {
	return []float64{0.125, 0.25, 0.375, 0.5, 0.625, 0.75, 0.875, 1}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallbackMs int) time.Duration {
	return time.Duration(getEnvInt(key, fallbackMs)) * time.Millisecond
}

func getEnvFractions(key string, fallback []float64) []float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var fractions []float64
	for _, part := range strings.Split(val, ",") {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || f <= 0 || f > 1 {
			return fallback
		}
		fractions = append(fractions, f)
	}
	return fractions
}
