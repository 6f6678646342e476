package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// NewPostgresStore connects to PostgreSQL using dsn.
func NewPostgresStore(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := connect(ctx, "postgres", dsn)
	if err != nil {
		return nil, err
	}
	s, err := newSQLStore(db, postgresDialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewMySQLStore connects to MySQL using dsn.
func NewMySQLStore(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := connect(ctx, "mysql", dsn)
	if err != nil {
		return nil, err
	}
	s, err := newSQLStore(db, mysqlDialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func connect(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s db: %w", driver, err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging %s db: %w", driver, err)
	}
	return db, nil
}

// Open returns a store for the configured driver: sqlite, postgres or mysql.
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	switch driver {
	case "", "sqlite":
		return NewSQLiteStore(dsn)
	case "postgres":
		return NewPostgresStore(ctx, dsn)
	case "mysql":
		return NewMySQLStore(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
}

func postgresDuplicateDigest(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == digestIndex
}

// mysqlDuplicateDigest matches ER_DUP_ENTRY on the digest key. The key name
// only appears in the message.
func mysqlDuplicateDigest(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == 1062 && strings.Contains(myErr.Message, digestIndex)
}
