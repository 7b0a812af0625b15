// Package catalog stores the technician, client, vehicle and product
// records served by the development search backend.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/runger/taller/internal/typeahead"
)

// Kinds of records held by the catalog.
const (
	KindTechnician = "technician"
	KindClient     = "client"
	KindVehicle    = "vehicle"
	KindProduct    = "product"
)

// Kinds lists every kind in page order.
var Kinds = []string{KindTechnician, KindClient, KindVehicle, KindProduct}

// ErrUnknownKind is returned for a kind outside Kinds.
var ErrUnknownKind = errors.New("unknown catalog kind")

// ValidKind reports whether kind is one of Kinds.
func ValidKind(kind string) bool {
	for _, k := range Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Store is a SQLite-backed catalog.
type Store struct {
	db        *sql.DB
	logger    *slog.Logger
	closeOnce sync.Once
	closeErr  error
}

// Open opens (creating if needed) the catalog at path. The database is
// opened in WAL mode with a single connection.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create catalog directory: %w", err)
	}

	// modernc.org/sqlite uses _pragma=name(value) syntax
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to catalog: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// Close closes the database. It is safe to call Close multiple times.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

// Replace swaps every record of kind for records, keeping their order.
func (s *Store) Replace(ctx context.Context, kind string, records []typeahead.Candidate) (int, error) {
	if !ValidKind(kind) {
		return 0, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE kind = ?`, kind); err != nil {
		return 0, fmt.Errorf("failed to clear %s records: %w", kind, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (kind, position, record_id, body_json, search_text, updated_at_unix_ms)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UnixMilli()
	for i, rec := range records {
		body, err := json.Marshal(rec)
		if err != nil {
			return 0, fmt.Errorf("failed to encode %s record %d: %w", kind, i, err)
		}
		if _, err := stmt.ExecContext(ctx, kind, i, rec.Text("id"), string(body), searchText(rec), now); err != nil {
			return 0, fmt.Errorf("failed to insert %s record %d: %w", kind, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	s.logger.Info("catalog replaced", "kind", kind, "records", len(records))
	return len(records), nil
}

// Seed replaces each kind present in datasets.
func (s *Store) Seed(ctx context.Context, datasets map[string][]typeahead.Candidate) error {
	for _, kind := range Kinds {
		records, ok := datasets[kind]
		if !ok {
			continue
		}
		if _, err := s.Replace(ctx, kind, records); err != nil {
			return err
		}
	}
	return nil
}

// Import replaces kind with the records of a JSON document: an array of
// objects or a single object.
func (s *Store) Import(ctx context.Context, kind string, r io.Reader) (int, error) {
	var data any
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return 0, fmt.Errorf("failed to decode %s records: %w", kind, err)
	}
	records, skipped := typeahead.Normalize(data)
	if skipped > 0 {
		s.logger.Warn("skipping non-object catalog entries", "kind", kind, "skipped", skipped)
	}
	return s.Replace(ctx, kind, records)
}

// List returns every record of kind in insertion order.
func (s *Store) List(ctx context.Context, kind string) ([]typeahead.Candidate, error) {
	if !ValidKind(kind) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT body_json FROM records WHERE kind = ? ORDER BY position
	`, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s records: %w", kind, err)
	}
	return scanRecords(rows)
}

// Search returns the records of kind matching query with the same rules as
// typeahead.Filter.
func (s *Store) Search(ctx context.Context, kind, query string) ([]typeahead.Candidate, error) {
	if !ValidKind(kind) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	q := strings.ToLower(query)
	rows, err := s.db.QueryContext(ctx, `
		SELECT body_json FROM records
		WHERE kind = ? AND instr(search_text, ?) > 0
		ORDER BY position
	`, kind, q)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s records: %w", kind, err)
	}
	candidates, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	// search_text joins every field; re-check so a match never spans two.
	return typeahead.Filter(candidates, q), nil
}

// Counts returns the number of records per kind.
func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, len(Kinds))
	for _, k := range Kinds {
		counts[k] = 0
	}
	rows, err := s.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM records GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}

func scanRecords(rows *sql.Rows) ([]typeahead.Candidate, error) {
	defer rows.Close()
	var out []typeahead.Candidate
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		var c typeahead.Candidate
		if err := json.Unmarshal([]byte(body), &c); err != nil {
			return nil, fmt.Errorf("failed to decode record: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// searchText is the lowercased text of every non-null field, separated by
// a unit separator.
func searchText(c typeahead.Candidate) string {
	parts := make([]string, 0, len(c))
	for k := range c {
		if c[k] == nil {
			continue
		}
		parts = append(parts, strings.ToLower(c.Text(k)))
	}
	return strings.Join(parts, "\x1f")
}
