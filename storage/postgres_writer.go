package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"mercari-scraper/models"
	"mercari-scraper/utils"
)

// PostgresArchive stores each completed search session and its listings in
// PostgreSQL so past searches can be inspected after the CSV files expire.
type PostgresArchive struct {
	db *sql.DB
}

// NewPostgresArchive opens a connection to PostgreSQL, runs schema
// migrations, and returns a ready-to-use PostgresArchive.
func NewPostgresArchive(dsn string, logger *utils.Logger) (*PostgresArchive, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	retry := &utils.RetryConfig{MaxAttempts: 10, BaseDelay: 2 * time.Second, Logger: logger}
	if err := retry.Do("postgres-ping", db.Ping); err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	pa := &PostgresArchive{db: db}
	if err := pa.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pa, nil
}

func (pa *PostgresArchive) migrate() error {
	_, err := pa.db.Exec(`
		CREATE TABLE IF NOT EXISTS search_sessions (
			id         SERIAL PRIMARY KEY,
			keyword    TEXT        NOT NULL,
			filename   TEXT        NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS search_listings (
			id         SERIAL PRIMARY KEY,
			session_id INT  NOT NULL REFERENCES search_sessions(id) ON DELETE CASCADE,
			name       TEXT NOT NULL,
			price      TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_keyword  ON search_sessions(keyword);
		CREATE INDEX IF NOT EXISTS idx_listings_session  ON search_listings(session_id);
	`)
	return err
}

// Archive inserts the session row and batch-inserts its listings.
func (pa *PostgresArchive) Archive(keyword, filename string, listings []models.Listing) error {
	var sessionID int
	err := pa.db.QueryRow(`
		INSERT INTO search_sessions (keyword, filename)
		VALUES ($1, $2)
		RETURNING id
	`, keyword, filename).Scan(&sessionID)
	if err != nil {
		return fmt.Errorf("postgres: insert session: %w", err)
	}

	const batchSize = 50
	for i := 0; i < len(listings); i += batchSize {
		end := i + batchSize
		if end > len(listings) {
			end = len(listings)
		}
		if err := pa.insertBatch(sessionID, listings[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (pa *PostgresArchive) insertBatch(sessionID int, batch []models.Listing) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*3)

	for idx, l := range batch {
		base := idx * 3
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d,$%d,$%d)", base+1, base+2, base+3))
		valueArgs = append(valueArgs, sessionID, l.Name, l.Price)
	}

	query := fmt.Sprintf(`
		INSERT INTO search_listings (session_id, name, price)
		VALUES %s
	`, strings.Join(valueStrings, ","))

	_, err := pa.db.Exec(query, valueArgs...)
	if err != nil {
		return fmt.Errorf("postgres: insert listings: %w", err)
	}
	return nil
}

func (pa *PostgresArchive) Close() error {
	return pa.db.Close()
}
