package importer

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrUnknownSource is returned when no catalog_sources row has the given id.
var ErrUnknownSource = errors.New("unknown catalog source")

// Source is a row of the catalog_sources table: where a catalog is fetched
// from, how its table is laid out, and the last availability check.
type Source struct {
	CatalogID  string  `mapstructure:"catalog_id" json:"catalog_id"`
	Format     string  `mapstructure:"format" json:"format"`
	Title      string  `mapstructure:"title" json:"title"`
	Language   string  `mapstructure:"language" json:"language,omitempty"`
	SourceURL  string  `mapstructure:"source_url" json:"source_url"`
	License    string  `mapstructure:"license" json:"license,omitempty"`
	Delimiter  string  `mapstructure:"delimiter" json:"delimiter,omitempty"`
	Encoding   string  `mapstructure:"encoding" json:"encoding,omitempty"`
	LastCheck  *int64  `mapstructure:"-" json:"last_check,omitempty"`
	LastStatus *int    `mapstructure:"-" json:"last_status,omitempty"`
	LastError  *string `mapstructure:"-" json:"last_error,omitempty"`
	UpdatedAt  int64   `mapstructure:"-" json:"updated_at"`
}

// SourceDB manages the catalog_sources SQLite table.
type SourceDB struct {
	db *sql.DB
}

// OpenSourceDB opens (or creates) the SQLite database at path and ensures the
// catalog_sources table exists.
func OpenSourceDB(path string) (*SourceDB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open source db: %w", err)
	}

	const ddl = `CREATE TABLE IF NOT EXISTS catalog_sources (
		catalog_id   TEXT PRIMARY KEY,
		format       TEXT NOT NULL,
		title        TEXT NOT NULL DEFAULT '',
		language     TEXT NOT NULL DEFAULT '',
		source_url   TEXT NOT NULL,
		license      TEXT NOT NULL DEFAULT '',
		delimiter    TEXT NOT NULL DEFAULT '',
		encoding     TEXT NOT NULL DEFAULT '',
		last_check   INTEGER,
		last_status  INTEGER,
		last_error   TEXT,
		updated_at   INTEGER NOT NULL
	)`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("create catalog_sources table: %w", err)
	}

	return &SourceDB{db: db}, nil
}

// Close closes the SQLite connection.
func (s *SourceDB) Close() error {
	return s.db.Close()
}

// Seed inserts the given sources with INSERT OR IGNORE, so that URLs changed
// with SetURL survive restarts.
func (s *SourceDB) Seed(sources []Source) error {
	const q = `INSERT OR IGNORE INTO catalog_sources
		(catalog_id, format, title, language, source_url, license, delimiter, encoding, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	now := time.Now().Unix()
	for _, src := range sources {
		if src.CatalogID == "" || src.SourceURL == "" {
			return fmt.Errorf("seed: source needs catalog_id and source_url (got %q, %q)", src.CatalogID, src.SourceURL)
		}
		if _, err := s.db.Exec(q, src.CatalogID, formatOrDefault(src.Format), src.Title, src.Language,
			src.SourceURL, src.License, src.Delimiter, src.Encoding, now); err != nil {
			return fmt.Errorf("seed %s: %w", src.CatalogID, err)
		}
	}
	return nil
}

// Upsert inserts src or replaces its descriptive fields, keeping check history.
func (s *SourceDB) Upsert(src Source) error {
	const q = `INSERT INTO catalog_sources
		(catalog_id, format, title, language, source_url, license, delimiter, encoding, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(catalog_id) DO UPDATE SET
			format = excluded.format, title = excluded.title, language = excluded.language,
			source_url = excluded.source_url, license = excluded.license,
			delimiter = excluded.delimiter, encoding = excluded.encoding,
			updated_at = excluded.updated_at`
	if _, err := s.db.Exec(q, src.CatalogID, formatOrDefault(src.Format), src.Title, src.Language,
		src.SourceURL, src.License, src.Delimiter, src.Encoding, time.Now().Unix()); err != nil {
		return fmt.Errorf("upsert %s: %w", src.CatalogID, err)
	}
	return nil
}

// Get returns the source registered for catalogID.
func (s *SourceDB) Get(catalogID string) (Source, error) {
	row := s.db.QueryRow(`SELECT `+sourceColumns+` FROM catalog_sources WHERE catalog_id = ?`, catalogID)
	src, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Source{}, fmt.Errorf("%w: %s", ErrUnknownSource, catalogID)
	}
	if err != nil {
		return Source{}, fmt.Errorf("get source %s: %w", catalogID, err)
	}
	return src, nil
}

// SetURL updates the source URL of a catalog and records the change timestamp.
func (s *SourceDB) SetURL(catalogID, url string) error {
	res, err := s.db.Exec(
		`UPDATE catalog_sources SET source_url = ?, updated_at = ? WHERE catalog_id = ?`,
		url, time.Now().Unix(), catalogID,
	)
	if err != nil {
		return fmt.Errorf("set url for %s: %w", catalogID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownSource, catalogID)
	}
	return nil
}

// Remove deletes the source row of a catalog.
func (s *SourceDB) Remove(catalogID string) error {
	res, err := s.db.Exec(`DELETE FROM catalog_sources WHERE catalog_id = ?`, catalogID)
	if err != nil {
		return fmt.Errorf("remove %s: %w", catalogID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownSource, catalogID)
	}
	return nil
}

// UpdateCheck persists the result of an availability check.
func (s *SourceDB) UpdateCheck(catalogID string, status int, checkErr string) error {
	var errPtr *string
	if checkErr != "" {
		errPtr = &checkErr
	}
	_, err := s.db.Exec(
		`UPDATE catalog_sources SET last_check = ?, last_status = ?, last_error = ? WHERE catalog_id = ?`,
		time.Now().Unix(), status, errPtr, catalogID,
	)
	if err != nil {
		return fmt.Errorf("update check for %s: %w", catalogID, err)
	}
	return nil
}

// ListSources returns all rows ordered by catalog_id.
func (s *SourceDB) ListSources() ([]Source, error) {
	rows, err := s.db.Query(`SELECT ` + sourceColumns + ` FROM catalog_sources ORDER BY catalog_id`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

const sourceColumns = `catalog_id, format, title, language, source_url, license, delimiter, encoding,
	last_check, last_status, last_error, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSource(row scanner) (Source, error) {
	var src Source
	err := row.Scan(&src.CatalogID, &src.Format, &src.Title, &src.Language, &src.SourceURL,
		&src.License, &src.Delimiter, &src.Encoding,
		&src.LastCheck, &src.LastStatus, &src.LastError, &src.UpdatedAt)
	return src, err
}

func formatOrDefault(f string) string {
	if f == "" {
		return "csv"
	}
	return f
}
