package index

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"mailfeed/internal/model"
)

// FileName is the index database's name inside the output directory.
const FileName = "index.sqlite"

// Index is a queryable sqlite view over the archive. Like the feed it is
// derived from the state document and rebuilt from scratch on every run;
// it is never a source of truth.
type Index struct {
	db *sqlx.DB
}

func Open(dir string) (*Index, error) {
	db, err := sqlx.Open("sqlite", filepath.Join(dir, FileName))
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping index: %w", err)
	}

	return &Index{db: db}, nil
}

func (ix *Index) Close() error {
	return ix.db.Close()
}

// Rebuild drops and recreates the entries table from the given history in
// a single transaction.
func (ix *Index) Rebuild(entries []model.Entry) error {
	tx, err := ix.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DROP TABLE IF EXISTS entries`); err != nil {
		return fmt.Errorf("failed to drop entries table: %w", err)
	}

	createQuery := `
		CREATE TABLE entries (
			title TEXT NOT NULL,
			link TEXT NOT NULL,
			date TEXT NOT NULL,
			description TEXT NOT NULL
		)
	`
	if _, err := tx.Exec(createQuery); err != nil {
		return fmt.Errorf("failed to create entries table: %w", err)
	}

	insertQuery := `INSERT INTO entries (title, link, date, description) VALUES (?, ?, ?, ?)`
	for _, e := range entries {
		if _, err := tx.Exec(insertQuery, e.Title, e.Link, e.Date.Format(time.RFC3339), e.Description); err != nil {
			return fmt.Errorf("failed to insert entry %s: %w", e.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index rebuild: %w", err)
	}

	return nil
}
