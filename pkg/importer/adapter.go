// CLAUDE:SUMMARY Fetch adapters keyed by source format (plain CSV, zipped CSV) and their registry.
package importer

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Adapter fetches a catalog table from a remote source and leaves a local
// CSV file behind for the import pipeline.
type Adapter interface {
	// Format returns the source format handled (e.g. "csv", "zip").
	Format() string
	// Description returns a human-readable description.
	Description() string
	// Fetch downloads sourceURL into dlDir and returns the path of the CSV
	// table to parse.
	Fetch(ctx context.Context, sourceURL, dlDir string) (string, error)
}

var (
	registryMu sync.RWMutex
	adapters   = make(map[string]Adapter)
)

func init() {
	Register(csvAdapter{})
	Register(zipAdapter{})
}

// Register adds an adapter to the global registry.
func Register(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	adapters[a.Format()] = a
}

// Get returns the adapter for a source format.
func Get(format string) (Adapter, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := adapters[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("unknown source format: %q", format)
	}
	return a, nil
}

// All returns all registered adapters sorted by format.
func All() []Adapter {
	registryMu.RLock()
	defer registryMu.RUnlock()
	result := make([]Adapter, 0, len(adapters))
	for _, a := range adapters {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Format() < result[j].Format() })
	return result
}

type csvAdapter struct{}

func (csvAdapter) Format() string      { return "csv" }
func (csvAdapter) Description() string { return "CSV table served as is" }

func (csvAdapter) Fetch(ctx context.Context, sourceURL, dlDir string) (string, error) {
	dest := filepath.Join(dlDir, "source.csv")
	if err := downloadFile(ctx, sourceURL, dest); err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	return dest, nil
}

type zipAdapter struct{}

func (zipAdapter) Format() string      { return "zip" }
func (zipAdapter) Description() string { return "ZIP archive holding one CSV table" }

func (zipAdapter) Fetch(ctx context.Context, sourceURL, dlDir string) (string, error) {
	zipPath := filepath.Join(dlDir, "source.zip")
	if err := downloadFile(ctx, sourceURL, zipPath); err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	files, err := unzipFile(zipPath, dlDir)
	if err != nil {
		return "", fmt.Errorf("unzip: %w", err)
	}
	// Archives sometimes ship a README next to the table; the first CSV wins.
	sort.Strings(files)
	for _, f := range files {
		if strings.EqualFold(filepath.Ext(f), ".csv") {
			return f, nil
		}
	}
	return "", fmt.Errorf("no .csv file in archive %s", sourceURL)
}
