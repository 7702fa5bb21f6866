package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jonny/askuser-bot/internal/adapter/outbound/persistence/sqlite/migration"
)

const memoryPath = ":memory:"

var validJournalModes = map[string]bool{
	"wal": true, "delete": true, "truncate": true,
	"persist": true, "memory": true, "off": true,
}

// Config holds SQLite connection configuration for the history store.
type Config struct {
	Path              string
	MaxOpenConns      int
	PragmaJournalMode string
	PragmaBusyTimeout int
}

// Store owns the history database handle.
type Store struct {
	DB   *sql.DB
	path string
}

// NewStore opens the database at cfg.Path, creating its directory when
// needed, and brings the schema up to date. An empty journal mode means WAL.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	mode := strings.ToLower(cfg.PragmaJournalMode)
	if mode == "" {
		mode = "wal"
	}
	if !validJournalModes[mode] {
		return nil, fmt.Errorf("invalid pragma journal mode: %q", cfg.PragmaJournalMode)
	}

	if cfg.Path != memoryPath {
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
	}

	dsn := fmt.Sprintf("%s?_journal_mode=%s&_busy_timeout=%d", cfg.Path, mode, cfg.PragmaBusyTimeout)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// Every connection to :memory: is its own database, so pin it to one.
	if cfg.Path == memoryPath {
		db.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if err := migration.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &Store{DB: db, path: cfg.Path}, nil
}

// Path reports where the database lives.
func (s *Store) Path() string { return s.path }

// HealthCheck pings the database; it satisfies health.CheckFunc.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite ping %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) Close() error { return s.DB.Close() }
