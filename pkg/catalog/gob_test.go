package catalog

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSaveGobLoadGobRoundTrip(t *testing.T) {
	entries := []Entry{
		NewEntry("1", "defesa", "Dignidade", "CF art. 1", 3, "dignidade;pessoa humana"),
		NewEntry("1", "acusacao", "Ordem Pública", "CPP art. 312", 1.5, "ordem publica"),
	}

	path := filepath.Join(t.TempDir(), GobFile)
	if err := SaveGob(entries, path); err != nil {
		t.Fatalf("SaveGob: %v", err)
	}

	got, err := loadGob(path)
	if err != nil {
		t.Fatalf("loadGob: %v", err)
	}
	if !reflect.DeepEqual(got, entries) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, entries)
	}
}

func TestLoad_GobPriority(t *testing.T) {
	// The CSV would fail the schema check; the gob snapshot must win.
	dir := writeTestCatalog(t, "snap", "", "not,a,catalog\n")
	entries := []Entry{NewEntry("9", "defesa", "Ampla Defesa", "CF art. 5 LV", 2, "ampla defesa")}
	if err := SaveGob(entries, filepath.Join(dir, GobFile)); err != nil {
		t.Fatalf("SaveGob: %v", err)
	}

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c.Entries) != 1 || c.Entries[0].CaseID != "9" {
		t.Errorf("entries = %+v, want gob content", c.Entries)
	}
}

func TestLoadGob_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), GobFile)
	os.WriteFile(path, []byte("definitely not gob"), 0o644)

	if _, err := loadGob(path); err == nil {
		t.Error("expected error decoding corrupt gob")
	}
}

func TestLoadGob_Missing(t *testing.T) {
	if _, err := loadGob(filepath.Join(t.TempDir(), "missing.gob")); err == nil {
		t.Error("expected error for missing file")
	}
}
