package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures the
// samples table exists.
func NewSQLiteStore(dbPath string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	s, err := newSQLStore(db, sqliteDialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// sqliteDuplicateDigest matches on the message since id collisions share the
// UNIQUE constraint result code.
func sqliteDuplicateDigest(err error) bool {
	var sqlErr *sqlite.Error
	return errors.As(err, &sqlErr) && strings.Contains(sqlErr.Error(), "UNIQUE constraint failed: samples.digest")
}
