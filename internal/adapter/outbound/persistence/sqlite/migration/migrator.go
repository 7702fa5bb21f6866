package migration

import (
	"database/sql"
	"embed"
	"fmt"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const createVersionTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	name       TEXT PRIMARY KEY,
	applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// Run executes the embedded SQL migration files that have not been applied
// yet, in lexicographic order. Each file runs in its own transaction.
func Run(db *sql.DB) error {
	if _, err := db.Exec(createVersionTable); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations: %w", err)
	}
	for _, entry := range entries {
		applied, err := isApplied(db, entry.Name())
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading %s: %w", entry.Name(), err)
		}
		if err := apply(db, entry.Name(), string(data)); err != nil {
			return err
		}
	}
	return nil
}

func isApplied(db *sql.DB, name string) (bool, error) {
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM schema_migrations WHERE name = ?`, name).Scan(&n); err != nil {
		return false, fmt.Errorf("checking %s: %w", name, err)
	}
	return n > 0, nil
}

func apply(db *sql.DB, name, script string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning %s: %w", name, err)
	}
	if _, err := tx.Exec(script); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("executing %s: %w", name, err)
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations (name) VALUES (?)`, name); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("recording %s: %w", name, err)
	}
	return tx.Commit()
}
