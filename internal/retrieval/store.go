package retrieval

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/openrisk-labs/kestrel/internal/domain"
)

// store persists the pattern library with its embeddings using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type store struct {
	db     *sql.DB
	driver string
}

const patternSchema = `
CREATE TABLE IF NOT EXISTS patterns (
    id TEXT PRIMARY KEY,
    sector TEXT NOT NULL,
    description TEXT NOT NULL,
    risk_level TEXT NOT NULL,
    score REAL NOT NULL DEFAULT 0,
    embedding {{BLOB}} NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_patterns_sector ON patterns(sector);
`

func openStore(cfg domain.RetrievalConfig) (*store, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open pattern store: %w", err)
	}

	s := &store{
		db:     db,
		driver: cfg.Driver,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// openSQLite opens a SQLite pattern store.
// Uses modernc.org/sqlite for pure Go implementation (no CGO required).
func openSQLite(cfg domain.RetrievalConfig) (*sql.DB, error) {
	path := cfg.SQLitePath
	if path == "" {
		path = "./kestrel.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Build connection string with pragmas for performance
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	return db, nil
}

// openPostgres opens a PostgreSQL pattern store.
func openPostgres(cfg domain.RetrievalConfig) (*sql.DB, error) {
	dsn := cfg.PostgresDSN
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}

	return db, nil
}

func (s *store) migrate() error {
	blobType := "BLOB"
	if s.driver == "postgres" {
		blobType = "BYTEA"
	}
	schema := strings.ReplaceAll(patternSchema, "{{BLOB}}", blobType)

	_, err := s.db.Exec(schema)
	return err
}

type storedPattern struct {
	domain.Pattern
	embedding []float32
}

func (s *store) insert(ctx context.Context, p *domain.Pattern, embedding []float32) error {
	query := `
		INSERT INTO patterns (id, sector, description, risk_level, score, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, s.rebind(query),
		p.ID, string(p.Sector), p.Description, string(p.RiskLevel), p.Score,
		encodeVector(embedding), time.Now().UTC(),
	)
	return err
}

// bySector loads all patterns for a sector with their embeddings.
func (s *store) bySector(ctx context.Context, sector domain.Sector) ([]storedPattern, error) {
	query := `
		SELECT id, sector, description, risk_level, score, embedding
		FROM patterns
		WHERE sector = ?
	`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), string(sector))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patterns []storedPattern
	for rows.Next() {
		var p storedPattern
		var sectorStr, riskStr string
		var blob []byte

		if err := rows.Scan(&p.ID, &sectorStr, &p.Description, &riskStr, &p.Score, &blob); err != nil {
			return nil, err
		}

		p.Sector = domain.Sector(sectorStr)
		p.RiskLevel = domain.RiskLevel(riskStr)
		p.embedding = decodeVector(blob)
		patterns = append(patterns, p)
	}

	return patterns, rows.Err()
}

func (s *store) count(ctx context.Context, sector domain.Sector) (int, error) {
	var n int
	var err error

	if sector == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM patterns`).Scan(&n)
	} else {
		query := s.rebind(`SELECT COUNT(*) FROM patterns WHERE sector = ?`)
		err = s.db.QueryRowContext(ctx, query, string(sector)).Scan(&n)
	}

	return n, err
}

func (s *store) ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *store) close() error {
	return s.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (s *store) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
