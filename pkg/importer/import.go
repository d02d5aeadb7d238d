// CLAUDE:SUMMARY Import pipeline: fetch a catalog source, validate the table, write data.csv, data.gob and catalog.yaml under the catalogs dir.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hazyhaar/lexcheck/pkg/catalog"
)

// importVersionLayout is the manifest version of an imported catalog: the
// import day.
const importVersionLayout = "2006-01-02"

// Import fetches src, validates its table and installs it as a catalog
// directory named after src.CatalogID under catalogsDir. An existing
// catalog with the same id is replaced only once the new table parsed.
func Import(ctx context.Context, src Source, catalogsDir string, logger *slog.Logger) (*catalog.Catalog, error) {
	if src.CatalogID == "" {
		return nil, fmt.Errorf("import: empty catalog id")
	}
	adapter, err := Get(formatOrDefault(src.Format))
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(catalogsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create catalogs dir: %w", err)
	}
	staging, err := os.MkdirTemp(catalogsDir, ".import-"+src.CatalogID+"-")
	if err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	dlDir := filepath.Join(staging, "_download")
	if err := os.Mkdir(dlDir, 0o755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}

	logger.Info("catalog import: fetching", "catalog", src.CatalogID, "format", adapter.Format(), "url", src.SourceURL)
	csvPath, err := adapter.Fetch(ctx, src.SourceURL, dlDir)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", src.CatalogID, err)
	}

	format := catalog.FormatSpec{Delimiter: src.Delimiter, Encoding: src.Encoding}
	entries, err := catalog.ReadCSVFile(csvPath, format)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", src.CatalogID, err)
	}

	stageDir := filepath.Join(staging, "catalog")
	if err := os.Mkdir(stageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create stage dir: %w", err)
	}
	m := &catalog.Manifest{
		ID:        src.CatalogID,
		Version:   time.Now().UTC().Format(importVersionLayout),
		Title:     src.Title,
		Language:  src.Language,
		Source:    "import",
		SourceURL: src.SourceURL,
		License:   src.License,
		DataFile:  "data.csv",
		Format:    format,
	}
	if err := copyFile(csvPath, filepath.Join(stageDir, m.DataFile)); err != nil {
		return nil, fmt.Errorf("copy table: %w", err)
	}
	if err := catalog.SaveGob(entries, filepath.Join(stageDir, catalog.GobFile)); err != nil {
		return nil, err
	}
	if err := writeManifest(stageDir, m); err != nil {
		return nil, err
	}

	dest := filepath.Join(catalogsDir, src.CatalogID)
	if err := os.RemoveAll(dest); err != nil {
		return nil, fmt.Errorf("remove previous %s: %w", dest, err)
	}
	if err := os.Rename(stageDir, dest); err != nil {
		return nil, fmt.Errorf("install %s: %w", dest, err)
	}

	logger.Info("catalog import: done", "catalog", src.CatalogID, "entries", len(entries), "dir", dest)
	return catalog.New(m, entries), nil
}
