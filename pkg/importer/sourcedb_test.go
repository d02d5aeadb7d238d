package importer

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func tempSourceDB(t *testing.T) *SourceDB {
	t.Helper()
	sdb, err := OpenSourceDB(filepath.Join(t.TempDir(), "sources.db"))
	if err != nil {
		t.Fatalf("OpenSourceDB: %v", err)
	}
	t.Cleanup(func() { sdb.Close() })
	return sdb
}

func src(id, url string) Source {
	return Source{CatalogID: id, Format: "csv", Title: "title " + id, SourceURL: url, License: "CC0"}
}

func TestOpenSourceDB_CreatesTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	sdb, err := OpenSourceDB(path)
	if err != nil {
		t.Fatalf("OpenSourceDB: %v", err)
	}
	defer sdb.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("db file not created: %v", err)
	}
	sources, err := sdb.ListSources()
	if err != nil {
		t.Fatalf("ListSources on empty db: %v", err)
	}
	if len(sources) != 0 {
		t.Fatalf("expected 0 sources, got %d", len(sources))
	}
}

func TestSeedAndGet(t *testing.T) {
	sdb := tempSourceDB(t)

	if err := sdb.Seed([]Source{
		src("principios-br", "https://example.com/br.csv"),
		{CatalogID: "moot-en", SourceURL: "https://example.com/en.zip", Delimiter: ";"},
	}); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	got, err := sdb.Get("principios-br")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.SourceURL != "https://example.com/br.csv" || got.Title != "title principios-br" {
		t.Fatalf("unexpected source %+v", got)
	}

	en, err := sdb.Get("moot-en")
	if err != nil {
		t.Fatalf("Get moot-en: %v", err)
	}
	if en.Format != "csv" {
		t.Errorf("Format = %q, want default csv", en.Format)
	}
	if en.Delimiter != ";" {
		t.Errorf("Delimiter = %q, want ;", en.Delimiter)
	}

	// Seeding again must not overwrite.
	if err := sdb.Seed([]Source{src("principios-br", "https://changed.com/br.csv")}); err != nil {
		t.Fatalf("Seed again: %v", err)
	}
	got, _ = sdb.Get("principios-br")
	if got.SourceURL != "https://example.com/br.csv" {
		t.Fatalf("re-seed should not overwrite, got %s", got.SourceURL)
	}
}

func TestSeed_Invalid(t *testing.T) {
	sdb := tempSourceDB(t)
	if err := sdb.Seed([]Source{{CatalogID: "x"}}); err == nil {
		t.Fatal("expected error for source without url")
	}
}

func TestGet_Unknown(t *testing.T) {
	sdb := tempSourceDB(t)
	_, err := sdb.Get("nope")
	if !errors.Is(err, ErrUnknownSource) {
		t.Fatalf("err = %v, want ErrUnknownSource", err)
	}
}

func TestUpsert(t *testing.T) {
	sdb := tempSourceDB(t)

	if err := sdb.Upsert(src("a1", "https://example.com/v1.csv")); err != nil {
		t.Fatalf("Upsert insert: %v", err)
	}
	if err := sdb.UpdateCheck("a1", 200, ""); err != nil {
		t.Fatalf("UpdateCheck: %v", err)
	}
	updated := src("a1", "https://example.com/v2.zip")
	updated.Format = "zip"
	if err := sdb.Upsert(updated); err != nil {
		t.Fatalf("Upsert update: %v", err)
	}

	got, err := sdb.Get("a1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.SourceURL != "https://example.com/v2.zip" || got.Format != "zip" {
		t.Errorf("upsert did not replace fields: %+v", got)
	}
	if got.LastStatus == nil || *got.LastStatus != 200 {
		t.Errorf("upsert lost check history: %v", got.LastStatus)
	}
}

func TestSetURL(t *testing.T) {
	sdb := tempSourceDB(t)
	if err := sdb.Seed([]Source{src("a1", "https://example.com/original")}); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	if err := sdb.SetURL("a1", "https://example.com/updated"); err != nil {
		t.Fatalf("SetURL: %v", err)
	}
	got, err := sdb.Get("a1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.SourceURL != "https://example.com/updated" {
		t.Fatalf("expected updated URL, got %s", got.SourceURL)
	}
}

func TestSetURL_NotFound(t *testing.T) {
	sdb := tempSourceDB(t)
	if err := sdb.SetURL("nonexistent", "https://example.com"); !errors.Is(err, ErrUnknownSource) {
		t.Fatalf("err = %v, want ErrUnknownSource", err)
	}
}

func TestRemove(t *testing.T) {
	sdb := tempSourceDB(t)
	if err := sdb.Seed([]Source{src("a1", "https://example.com/a1")}); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if err := sdb.Remove("a1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := sdb.Remove("a1"); !errors.Is(err, ErrUnknownSource) {
		t.Fatalf("second Remove err = %v, want ErrUnknownSource", err)
	}
}

func TestUpdateCheck(t *testing.T) {
	sdb := tempSourceDB(t)
	if err := sdb.Seed([]Source{src("a1", "https://example.com/a1")}); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	if err := sdb.UpdateCheck("a1", 200, ""); err != nil {
		t.Fatalf("UpdateCheck: %v", err)
	}
	got, _ := sdb.Get("a1")
	if got.LastStatus == nil || *got.LastStatus != 200 {
		t.Fatalf("expected last_status=200, got %v", got.LastStatus)
	}
	if got.LastCheck == nil || *got.LastCheck == 0 {
		t.Fatal("expected last_check to be set")
	}
	if got.LastError != nil {
		t.Fatalf("expected nil last_error, got %v", *got.LastError)
	}

	if err := sdb.UpdateCheck("a1", 404, "not found"); err != nil {
		t.Fatalf("UpdateCheck with error: %v", err)
	}
	got, _ = sdb.Get("a1")
	if got.LastStatus == nil || *got.LastStatus != 404 {
		t.Fatalf("expected last_status=404, got %v", got.LastStatus)
	}
	if got.LastError == nil || *got.LastError != "not found" {
		t.Fatalf("expected last_error='not found', got %v", got.LastError)
	}
}

func TestListSources_Order(t *testing.T) {
	sdb := tempSourceDB(t)
	if err := sdb.Seed([]Source{
		src("z-last", "https://example.com/z"),
		src("a-first", "https://example.com/a"),
	}); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	sources, err := sdb.ListSources()
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	if sources[0].CatalogID != "a-first" {
		t.Fatalf("expected first source to be 'a-first', got %s", sources[0].CatalogID)
	}
}
