// Package sqlitesink appends written records as rows in a SQLite
// database opened via the pure-Go github.com/glebarez/sqlite driver. The
// database is opened in WAL mode for concurrent readers, and database
// IDs are validated against path traversal before being used to build a
// file path.
package sqlitesink

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/glebarez/sqlite"

	"github.com/flowlane/wstream"
)

// Record is one row to append: Values are bound positionally against
// the column list passed to Sink, in that order.
type Record struct {
	Values []any
}

// ValidateDatabaseID rejects database IDs that contain path traversal
// characters, null bytes, or are empty/too long.
func ValidateDatabaseID(id string) error {
	if id == "" {
		return fmt.Errorf("sqlitesink: database ID must not be empty")
	}
	if len(id) > 128 {
		return fmt.Errorf("sqlitesink: database ID too long")
	}
	if strings.Contains(id, "..") {
		return fmt.Errorf("sqlitesink: database ID contains path traversal")
	}
	if strings.ContainsAny(id, "/\\") {
		return fmt.Errorf("sqlitesink: database ID contains path separator")
	}
	if strings.ContainsRune(id, 0) {
		return fmt.Errorf("sqlitesink: database ID contains null byte")
	}
	return nil
}

// Open opens (or creates) an isolated SQLite database for databaseID at
// {dataDir}/sinks/{databaseID}.sqlite3 in WAL mode, creating table if it
// does not already exist with one column per name in columns (all TEXT).
func Open(dataDir, databaseID string, table string, columns []string) (*sql.DB, error) {
	if err := ValidateDatabaseID(databaseID); err != nil {
		return nil, err
	}
	dir := filepath.Join(dataDir, "sinks")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("sqlitesink: creating directory: %w", err)
	}
	dbPath := filepath.Join(dir, databaseID+".sqlite3")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlitesink: opening database %q: %w", databaseID, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Printf("sqlitesink: closing database after WAL failure: %v", closeErr)
		}
		return nil, fmt.Errorf("sqlitesink: enabling WAL: %w", err)
	}
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = fmt.Sprintf("%q TEXT", col)
	}
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %q (%s)", table, strings.Join(quoted, ", "))
	if _, err := db.Exec(ddl); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Printf("sqlitesink: closing database after table creation failure: %v", closeErr)
		}
		return nil, fmt.Errorf("sqlitesink: creating table %q: %w", table, err)
	}
	return db, nil
}

// Sink builds an UnderlyingSink[Record] that inserts each written record
// into table via db, one row per write inside its own transaction so a
// failed write does not leave a partial row or corrupt prior ones.
func Sink(db *sql.DB, table string, columns []string) wstream.Sink[Record] {
	placeholders := strings.TrimRight(strings.Repeat("?,", len(columns)), ",")
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = fmt.Sprintf("%q", col)
	}
	insertSQL := fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s)", table, strings.Join(quoted, ", "), placeholders)

	return wstream.Sink[Record]{
		Write: func(ctx context.Context, rec Record, c *wstream.Controller[Record]) error {
			if len(rec.Values) != len(columns) {
				return fmt.Errorf("sqlitesink: record has %d values, table has %d columns", len(rec.Values), len(columns))
			}
			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				return fmt.Errorf("sqlitesink: begin: %w", err)
			}
			if _, err := tx.ExecContext(ctx, insertSQL, rec.Values...); err != nil {
				tx.Rollback()
				return fmt.Errorf("sqlitesink: insert: %w", err)
			}
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("sqlitesink: commit: %w", err)
			}
			return nil
		},
		Close: func(ctx context.Context) error {
			return nil
		},
		Abort: func(ctx context.Context, reason error) error {
			return nil
		},
	}
}
