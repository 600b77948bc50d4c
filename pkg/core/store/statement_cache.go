// Package store persists canonical statements in Postgres with a
// file-system fallback for local runs.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/phuslu/log"

	"fincanon/pkg/core/canonical"
	"fincanon/pkg/core/edgar"
)

// StatementCache stores canonical statements keyed by accession number and
// statement type. With a pool it uses Postgres; without one it falls back
// to JSON files under dir.
type StatementCache struct {
	pool    *pgxpool.Pool
	fileDir string
}

// NewStatementCache creates a cache. A nil pool with an empty dir defaults
// to a local .cache directory.
func NewStatementCache(pool *pgxpool.Pool, dir string) *StatementCache {
	if pool == nil && dir == "" {
		dir = filepath.Join(".cache", "edgar", "statements")
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("statement cache dir unavailable")
		}
	}
	return &StatementCache{pool: pool, fileDir: dir}
}

// NewStatementCacheFromEnv dials the pool from the DATABASE_URL environment
// variable. When the variable is absent or the pool cannot be opened, the
// cache degrades to the local file directory instead of failing the run.
func NewStatementCacheFromEnv(ctx context.Context) *StatementCache {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Info().Msg("DATABASE_URL not set, statement cache using files")
		return NewStatementCache(nil, "")
	}

	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Warn().Err(err).Msg("invalid DATABASE_URL, statement cache using files")
		return NewStatementCache(nil, "")
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		log.Warn().Err(err).Msg("database unavailable, statement cache using files")
		return NewStatementCache(nil, "")
	}
	return NewStatementCache(pool, "")
}

// Close releases the database pool, if any. File-backed caches need no cleanup.
func (c *StatementCache) Close() {
	if c.pool != nil {
		c.pool.Close()
	}
}

// statementEntry is the file-cache envelope.
type statementEntry struct {
	AccessionNumber string                         `json:"accession_number"`
	CIK             string                         `json:"cik"`
	Ticker          string                         `json:"ticker"`
	StatementType   edgar.StatementType            `json:"statement_type"`
	Statement       *canonical.CanonicalStatement  `json:"statement"`
	StoredAt        time.Time                      `json:"stored_at"`
}

// Get retrieves a cached statement. A miss returns (nil, nil).
func (c *StatementCache) Get(ctx context.Context, accessionNumber string, st edgar.StatementType) (*canonical.CanonicalStatement, error) {
	if c.pool != nil {
		query := `
			SELECT data
			FROM canonical_statements
			WHERE accession_number = $1 AND statement_type = $2
			LIMIT 1
		`
		var dataJSON []byte
		err := c.pool.QueryRow(ctx, query, accessionNumber, string(st)).Scan(&dataJSON)
		if err != nil {
			return nil, nil
		}
		var stmt canonical.CanonicalStatement
		if err := json.Unmarshal(dataJSON, &stmt); err != nil {
			return nil, fmt.Errorf("failed to unmarshal cached statement: %w", err)
		}
		return &stmt, nil
	}

	if c.fileDir != "" {
		return c.loadFromFile(c.entryPath(accessionNumber, st))
	}
	return nil, nil
}

// Save stores a statement under its accession number and statement type.
func (c *StatementCache) Save(ctx context.Context, stmt *canonical.CanonicalStatement) error {
	dataJSON, err := json.MarshalIndent(stmt, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal statement: %w", err)
	}

	if c.pool != nil {
		query := `
			INSERT INTO canonical_statements (
				accession_number, statement_type, cik, ticker, form_type,
				filing_date, data
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (accession_number, statement_type)
			DO UPDATE SET
				data = EXCLUDED.data,
				updated_at = NOW()
		`
		_, err = c.pool.Exec(ctx, query,
			stmt.Filing.AccessionNumber, string(stmt.StatementType),
			stmt.Filing.CIK, stmt.Filing.Ticker, stmt.Filing.Form,
			stmt.Filing.FilingDate, dataJSON,
		)
		if err != nil {
			return fmt.Errorf("failed to save statement to db: %w", err)
		}
	}

	if c.fileDir != "" {
		entry := statementEntry{
			AccessionNumber: stmt.Filing.AccessionNumber,
			CIK:             stmt.Filing.CIK,
			Ticker:          stmt.Filing.Ticker,
			StatementType:   stmt.StatementType,
			Statement:       stmt,
			StoredAt:        time.Now(),
		}
		fileBytes, _ := json.MarshalIndent(entry, "", "  ")
		path := c.entryPath(stmt.Filing.AccessionNumber, stmt.StatementType)
		if err := os.WriteFile(path, fileBytes, 0644); err != nil {
			return fmt.Errorf("failed to save statement to file cache: %w", err)
		}
	}

	return nil
}

// Exists reports whether a statement is already cached.
func (c *StatementCache) Exists(ctx context.Context, accessionNumber string, st edgar.StatementType) bool {
	if c.pool != nil {
		query := `SELECT 1 FROM canonical_statements WHERE accession_number = $1 AND statement_type = $2 LIMIT 1`
		var exists int
		if err := c.pool.QueryRow(ctx, query, accessionNumber, string(st)).Scan(&exists); err == nil {
			return true
		}
	}

	if c.fileDir != "" {
		if _, err := os.Stat(c.entryPath(accessionNumber, st)); err == nil {
			return true
		}
	}
	return false
}

func (c *StatementCache) entryPath(accession string, st edgar.StatementType) string {
	safeAcc := strings.ReplaceAll(accession, "-", "")
	return filepath.Join(c.fileDir, fmt.Sprintf("%s_%s.json", safeAcc, st))
}

func (c *StatementCache) loadFromFile(path string) (*canonical.CanonicalStatement, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, nil
	}
	var entry statementEntry
	if err := json.Unmarshal(bytes, &entry); err != nil {
		return nil, err
	}
	return entry.Statement, nil
}
