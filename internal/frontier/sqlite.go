package frontier

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/topiccrawl/internal/model"
)

// SQLiteFileName is the name of the database file created inside the data directory.
const SQLiteFileName = "topiccrawl.db"

// SQLiteStore is the default Store. It keeps the frontier in a single local
// SQLite file so that an interrupted crawl can be resumed by the next process.
//
// Design decision: one database file holds every crawl root. Rows are keyed
// by (base_url, url), which lets status and results queries stay simple.
type SQLiteStore struct {
	// db is the underlying SQL database connection.
	db *sql.DB
}

// SQLiteOptions configures SQLiteStore behavior.
type SQLiteOptions struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultSQLiteOptions returns the default database options.
func DefaultSQLiteOptions() SQLiteOptions {
	return SQLiteOptions{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// OpenSQLite opens or creates the frontier database inside dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func OpenSQLite(ctx context.Context, dbDir string, opts SQLiteOptions) (*SQLiteStore, error) {
	dbPath := filepath.Join(dbDir, SQLiteFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a new file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer. A single connection also serializes
	// the concurrent crawler's writes without SQLITE_BUSY retries.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		db: db,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := store.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (s *SQLiteStore) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS scraped_urls (
		base_url TEXT NOT NULL,
		url TEXT NOT NULL,
		source_url TEXT,
		depth INTEGER NOT NULL,
		title TEXT,
		links_to_texts TEXT NOT NULL DEFAULT '{}',
		topic TEXT NOT NULL DEFAULT 'other',
		status TEXT NOT NULL DEFAULT 'queued',
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (base_url, url)
	);

	CREATE INDEX IF NOT EXISTS idx_scraped_urls_pending ON scraped_urls(base_url, status, depth);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Enqueue records url as queued unless (baseURL, url) already exists.
func (s *SQLiteStore) Enqueue(ctx context.Context, baseURL, url string, sourceURL *string, depth int) error {
	query := `
	INSERT INTO scraped_urls (base_url, url, source_url, depth, status)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(base_url, url) DO NOTHING
	`

	if _, err := s.db.ExecContext(ctx, query, baseURL, url, nullString(sourceURL), depth, model.StatusQueued.String()); err != nil {
		return fmt.Errorf("failed to enqueue url: %w", err)
	}
	return nil
}

// CompleteWithContent stores the content of a fetched page and marks it completed.
func (s *SQLiteStore) CompleteWithContent(ctx context.Context, baseURL string, page model.CompletedPage) error {
	linksJSON, err := json.Marshal(normalizeLinks(page.LinksToTexts))
	if err != nil {
		return fmt.Errorf("failed to serialize links: %w", err)
	}

	query := `
	INSERT INTO scraped_urls (base_url, url, source_url, depth, title, links_to_texts, topic, status)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(base_url, url) DO UPDATE SET
		title = excluded.title,
		links_to_texts = excluded.links_to_texts,
		topic = excluded.topic,
		status = excluded.status,
		updated_at = CURRENT_TIMESTAMP
	`

	_, err = s.db.ExecContext(ctx, query,
		baseURL,
		page.URL,
		nullString(page.SourceURL),
		page.Depth,
		page.Title,
		string(linksJSON),
		normalizeTopic(page.Topic),
		model.StatusCompleted.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to complete url: %w", err)
	}
	return nil
}

// MarkCompletedEmpty marks an existing row completed without content.
func (s *SQLiteStore) MarkCompletedEmpty(ctx context.Context, baseURL, url string) error {
	query := `
	UPDATE scraped_urls SET status = ?, updated_at = CURRENT_TIMESTAMP
	WHERE base_url = ? AND url = ?
	`

	if _, err := s.db.ExecContext(ctx, query, model.StatusCompleted.String(), baseURL, url); err != nil {
		return fmt.Errorf("failed to mark url completed: %w", err)
	}
	return nil
}

// RecoverPending returns every queued row of baseURL.
func (s *SQLiteStore) RecoverPending(ctx context.Context, baseURL string) ([]model.PendingURL, error) {
	query := `
	SELECT url, source_url, depth FROM scraped_urls
	WHERE base_url = ? AND status = ?
	ORDER BY depth, url
	`

	rows, err := s.db.QueryContext(ctx, query, baseURL, model.StatusQueued.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query pending urls: %w", err)
	}
	defer rows.Close()

	var pending []model.PendingURL
	for rows.Next() {
		var (
			item   model.PendingURL
			source sql.NullString
		)
		if err := rows.Scan(&item.URL, &source, &item.Depth); err != nil {
			return nil, fmt.Errorf("failed to scan pending url: %w", err)
		}
		item.SourceURL = stringPtr(source)
		pending = append(pending, item)
	}

	return pending, rows.Err()
}

// AllRecords returns every row of baseURL.
func (s *SQLiteStore) AllRecords(ctx context.Context, baseURL string) ([]model.URLRecord, error) {
	query := `
	SELECT base_url, url, source_url, depth, title, links_to_texts, topic, status
	FROM scraped_urls
	WHERE base_url = ?
	ORDER BY depth, url
	`

	rows, err := s.db.QueryContext(ctx, query, baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []model.URLRecord
	for rows.Next() {
		var (
			record    model.URLRecord
			source    sql.NullString
			title     sql.NullString
			linksJSON string
			status    string
		)
		err := rows.Scan(
			&record.BaseURL,
			&record.URL,
			&source,
			&record.Depth,
			&title,
			&linksJSON,
			&record.Topic,
			&status,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		record.SourceURL = stringPtr(source)
		record.Title = stringPtr(title)
		if record.Status, err = parseStatus(status); err != nil {
			return nil, err
		}
		record.LinksToTexts = map[string]string{}
		if linksJSON != "" {
			if err := json.Unmarshal([]byte(linksJSON), &record.LinksToTexts); err != nil {
				return nil, fmt.Errorf("failed to parse links: %w", err)
			}
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// Purge deletes every row of baseURL.
func (s *SQLiteStore) Purge(ctx context.Context, baseURL string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM scraped_urls WHERE base_url = ?", baseURL); err != nil {
		return fmt.Errorf("failed to purge records: %w", err)
	}
	return nil
}

// BaseURLs returns every crawl root stored in the database.
func (s *SQLiteStore) BaseURLs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT base_url FROM scraped_urls ORDER BY base_url")
	if err != nil {
		return nil, fmt.Errorf("failed to list base urls: %w", err)
	}
	defer rows.Close()

	var roots []string
	for rows.Next() {
		var root string
		if err := rows.Scan(&root); err != nil {
			return nil, fmt.Errorf("failed to scan base url: %w", err)
		}
		roots = append(roots, root)
	}
	return roots, rows.Err()
}

// nullString converts an optional string to a SQL parameter.
func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// stringPtr converts a nullable column to an optional string.
func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

var _ Store = (*SQLiteStore)(nil)
