package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/geolens/internal/model"
)

// ErrSampleNotFound is returned by Get and Delete for unknown IDs.
var ErrSampleNotFound = errors.New("sample not found")

// Ensure SQLStore implements model.SampleStore.
var _ model.SampleStore = (*SQLStore)(nil)

// digestIndex names the unique index on samples.digest in every dialect.
const digestIndex = "samples_digest_key"

// dialect captures the per-driver differences in DDL, placeholders and
// constraint errors.
type dialect struct {
	name        string
	createTable string
	createIndex string // empty when createTable declares the index
	numbered    bool   // $1, $2 ... instead of ?

	// duplicateDigest reports whether err is a unique violation on digest.
	duplicateDigest func(err error) bool
}

var (
	sqliteDialect = dialect{
		name: "sqlite",
		createTable: `CREATE TABLE IF NOT EXISTS samples (
		id         TEXT PRIMARY KEY,
		file_name  TEXT NOT NULL,
		mime_type  TEXT NOT NULL,
		digest     TEXT NOT NULL,
		analysis   TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`,
		createIndex:     "CREATE UNIQUE INDEX IF NOT EXISTS " + digestIndex + " ON samples (digest)",
		duplicateDigest: sqliteDuplicateDigest,
	}

	postgresDialect = dialect{
		name: "postgres",
		createTable: `CREATE TABLE IF NOT EXISTS samples (
		id         TEXT PRIMARY KEY,
		file_name  TEXT NOT NULL,
		mime_type  TEXT NOT NULL,
		digest     TEXT NOT NULL,
		analysis   TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
		createIndex:     "CREATE UNIQUE INDEX IF NOT EXISTS " + digestIndex + " ON samples (digest)",
		numbered:        true,
		duplicateDigest: postgresDuplicateDigest,
	}

	mysqlDialect = dialect{
		name: "mysql",
		createTable: `CREATE TABLE IF NOT EXISTS samples (
		id         VARCHAR(36) PRIMARY KEY,
		file_name  VARCHAR(512) NOT NULL,
		mime_type  VARCHAR(64) NOT NULL,
		digest     CHAR(64) NOT NULL,
		analysis   LONGTEXT NOT NULL,
		created_at BIGINT NOT NULL,
		UNIQUE KEY ` + digestIndex + ` (digest)
	)`,
		duplicateDigest: mysqlDuplicateDigest,
	}
)

// rebind rewrites ? placeholders for dialects that number them.
func (d dialect) rebind(q string) string {
	if !d.numbered {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQLStore keeps analyzed samples in a SQL database. created_at is stored as
// unix nanoseconds so ordering is identical across drivers.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// newSQLStore ensures the samples table and its digest index exist on db.
func newSQLStore(db *sql.DB, d dialect) (*SQLStore, error) {
	if _, err := db.Exec(d.createTable); err != nil {
		return nil, fmt.Errorf("creating samples table: %w", err)
	}
	if d.createIndex != "" {
		if _, err := db.Exec(d.createIndex); err != nil {
			return nil, fmt.Errorf("creating digest index: %w", err)
		}
	}
	return &SQLStore{db: db, dialect: d}, nil
}

const sampleColumns = "id, file_name, mime_type, digest, analysis, created_at"

// Save inserts s. Saving an existing ID is an error; saving an existing
// digest returns an error wrapping model.ErrDuplicateDigest.
func (s *SQLStore) Save(ctx context.Context, sample model.Sample) error {
	analysis, err := json.Marshal(sample.Analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis for %s: %w", sample.ID, err)
	}
	createdAt := sample.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	q := s.dialect.rebind("INSERT INTO samples (" + sampleColumns + ") VALUES (?, ?, ?, ?, ?, ?)")
	_, err = s.db.ExecContext(ctx, q,
		sample.ID, sample.FileName, sample.MIMEType, sample.Digest, string(analysis), createdAt.UnixNano())
	if err != nil && s.dialect.duplicateDigest != nil && s.dialect.duplicateDigest(err) {
		return fmt.Errorf("saving sample %s: %w: %s", sample.ID, model.ErrDuplicateDigest, sample.Digest)
	}
	if err != nil {
		return fmt.Errorf("saving sample %s: %w", sample.ID, err)
	}
	return nil
}

// Get returns the sample with the given ID.
func (s *SQLStore) Get(ctx context.Context, id string) (model.Sample, error) {
	q := s.dialect.rebind("SELECT " + sampleColumns + " FROM samples WHERE id = ?")
	sample, err := scanSample(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Sample{}, fmt.Errorf("%w: %s", ErrSampleNotFound, id)
	}
	if err != nil {
		return model.Sample{}, fmt.Errorf("loading sample %s: %w", id, err)
	}
	return sample, nil
}

// List returns every sample, oldest first.
func (s *SQLStore) List(ctx context.Context) ([]model.Sample, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+sampleColumns+" FROM samples ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("listing samples: %w", err)
	}
	defer rows.Close()

	samples := []model.Sample{}
	for rows.Next() {
		sample, err := scanSample(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning sample: %w", err)
		}
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing samples: %w", err)
	}
	return samples, nil
}

// FindByDigest returns the earliest sample whose image had the given digest.
func (s *SQLStore) FindByDigest(ctx context.Context, digest string) (model.Sample, bool, error) {
	q := s.dialect.rebind("SELECT " + sampleColumns + " FROM samples WHERE digest = ? ORDER BY created_at LIMIT 1")
	sample, err := scanSample(s.db.QueryRowContext(ctx, q, digest))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Sample{}, false, nil
	}
	if err != nil {
		return model.Sample{}, false, fmt.Errorf("checking digest %s: %w", digest, err)
	}
	return sample, true, nil
}

// Delete removes the sample with the given ID.
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.dialect.rebind("DELETE FROM samples WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("deleting sample %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting sample %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSampleNotFound, id)
	}
	return nil
}

// Ping verifies the database is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSample(row rowScanner) (model.Sample, error) {
	var (
		sample    model.Sample
		analysis  string
		createdAt int64
	)
	if err := row.Scan(&sample.ID, &sample.FileName, &sample.MIMEType, &sample.Digest, &analysis, &createdAt); err != nil {
		return model.Sample{}, err
	}
	if err := json.Unmarshal([]byte(analysis), &sample.Analysis); err != nil {
		return model.Sample{}, fmt.Errorf("decoding analysis of %s: %w", sample.ID, err)
	}
	sample.CreatedAt = time.Unix(0, createdAt)
	return sample, nil
}
