// CLAUDE:SUMMARY Gob snapshot of a catalog's prepared entries, written by the importer and preferred over CSV at load.
package catalog

import (
	"encoding/gob"
	"fmt"
	"os"
)

// GobFile is the snapshot file name inside a catalog directory.
const GobFile = "data.gob"

// loadGob deserializes entries, normalized keywords included, from path.
func loadGob(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gob file: %w", err)
	}
	defer f.Close()

	var entries []Entry
	if err := gob.NewDecoder(f).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode gob: %w", err)
	}
	return entries, nil
}

// SaveGob serializes entries to a gob-encoded file at path.
func SaveGob(entries []Entry, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create gob file: %w", err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(entries); err != nil {
		return fmt.Errorf("encode gob: %w", err)
	}
	return nil
}
