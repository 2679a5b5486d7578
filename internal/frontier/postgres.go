package frontier

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nao1215/topiccrawl/internal/model"
)

// PostgresStore keeps the frontier in a PostgreSQL table. Several crawler
// processes may share it, each working on its own crawl roots.
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string
}

// DefaultTable is the table or collection name used when none is configured.
const DefaultTable = "scraped_urls"

// OpenPostgres connects to dsn and creates the frontier table if needed.
// An empty table name selects DefaultTable; maxConns <= 0 keeps the pgxpool default.
func OpenPostgres(ctx context.Context, dsn, table string, maxConns int32) (*PostgresStore, error) {
	if table == "" {
		table = DefaultTable
	}

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	if maxConns > 0 {
		poolConfig.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	store := &PostgresStore{
		pool:  pool,
		table: pgx.Identifier{table}.Sanitize(),
	}
	if err := store.createTables(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return store, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) createTables(ctx context.Context) error {
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		base_url TEXT NOT NULL,
		url TEXT NOT NULL,
		source_url TEXT,
		depth INTEGER NOT NULL,
		title TEXT,
		links_to_texts JSONB NOT NULL DEFAULT '{}'::jsonb,
		topic TEXT NOT NULL DEFAULT 'other',
		status TEXT NOT NULL DEFAULT 'queued',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (base_url, url)
	)`, s.table)
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return err
	}

	index := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (base_url, status, depth)",
		pgx.Identifier{"idx_" + trimQuotes(s.table) + "_pending"}.Sanitize(), s.table)
	_, err := s.pool.Exec(ctx, index)
	return err
}

// Enqueue records url as queued unless (baseURL, url) already exists.
func (s *PostgresStore) Enqueue(ctx context.Context, baseURL, url string, sourceURL *string, depth int) error {
	query := fmt.Sprintf(`
	INSERT INTO %s (base_url, url, source_url, depth, status)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (base_url, url) DO NOTHING
	`, s.table)

	if _, err := s.pool.Exec(ctx, query, baseURL, url, sourceURL, depth, model.StatusQueued.String()); err != nil {
		return fmt.Errorf("failed to enqueue url: %w", err)
	}
	return nil
}

// CompleteWithContent stores the content of a fetched page and marks it completed.
func (s *PostgresStore) CompleteWithContent(ctx context.Context, baseURL string, page model.CompletedPage) error {
	query := fmt.Sprintf(`
	INSERT INTO %s (base_url, url, source_url, depth, title, links_to_texts, topic, status)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (base_url, url) DO UPDATE SET
		title = EXCLUDED.title,
		links_to_texts = EXCLUDED.links_to_texts,
		topic = EXCLUDED.topic,
		status = EXCLUDED.status,
		updated_at = now()
	`, s.table)

	_, err := s.pool.Exec(ctx, query,
		baseURL,
		page.URL,
		page.SourceURL,
		page.Depth,
		page.Title,
		normalizeLinks(page.LinksToTexts),
		normalizeTopic(page.Topic),
		model.StatusCompleted.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to complete url: %w", err)
	}
	return nil
}

// MarkCompletedEmpty marks an existing row completed without content.
func (s *PostgresStore) MarkCompletedEmpty(ctx context.Context, baseURL, url string) error {
	query := fmt.Sprintf(`
	UPDATE %s SET status = $1, updated_at = now()
	WHERE base_url = $2 AND url = $3
	`, s.table)

	if _, err := s.pool.Exec(ctx, query, model.StatusCompleted.String(), baseURL, url); err != nil {
		return fmt.Errorf("failed to mark url completed: %w", err)
	}
	return nil
}

// RecoverPending returns every queued row of baseURL.
func (s *PostgresStore) RecoverPending(ctx context.Context, baseURL string) ([]model.PendingURL, error) {
	query := fmt.Sprintf(`
	SELECT url, source_url, depth FROM %s
	WHERE base_url = $1 AND status = $2
	ORDER BY depth, url
	`, s.table)

	rows, err := s.pool.Query(ctx, query, baseURL, model.StatusQueued.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query pending urls: %w", err)
	}

	pending, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.PendingURL, error) {
		var item model.PendingURL
		err := row.Scan(&item.URL, &item.SourceURL, &item.Depth)
		return item, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan pending urls: %w", err)
	}
	return pending, nil
}

// AllRecords returns every row of baseURL.
func (s *PostgresStore) AllRecords(ctx context.Context, baseURL string) ([]model.URLRecord, error) {
	query := fmt.Sprintf(`
	SELECT base_url, url, source_url, depth, title, links_to_texts, topic, status
	FROM %s
	WHERE base_url = $1
	ORDER BY depth, url
	`, s.table)

	rows, err := s.pool.Query(ctx, query, baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.URLRecord, error) {
		var (
			record model.URLRecord
			status string
		)
		err := row.Scan(
			&record.BaseURL,
			&record.URL,
			&record.SourceURL,
			&record.Depth,
			&record.Title,
			&record.LinksToTexts,
			&record.Topic,
			&status,
		)
		if err != nil {
			return record, err
		}
		record.LinksToTexts = normalizeLinks(record.LinksToTexts)
		record.Status, err = parseStatus(status)
		return record, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan records: %w", err)
	}
	return records, nil
}

// BaseURLs returns every crawl root stored in the table.
func (s *PostgresStore) BaseURLs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf("SELECT DISTINCT base_url FROM %s ORDER BY base_url", s.table))
	if err != nil {
		return nil, fmt.Errorf("failed to list base urls: %w", err)
	}
	roots, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan base urls: %w", err)
	}
	return roots, nil
}

// Purge deletes every row of baseURL.
func (s *PostgresStore) Purge(ctx context.Context, baseURL string) error {
	if _, err := s.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE base_url = $1", s.table), baseURL); err != nil {
		return fmt.Errorf("failed to purge records: %w", err)
	}
	return nil
}

// trimQuotes strips the quotes added by pgx.Identifier.Sanitize.
func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

var _ Store = (*PostgresStore)(nil)
