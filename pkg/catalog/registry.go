package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Registry holds every loaded catalog. Catalogs are immutable; Reload swaps
// the whole set so in-flight evaluations keep the snapshot they started with.
type Registry struct {
	mu          sync.RWMutex
	catalogs    map[string]*Catalog
	catalogsDir string
}

// NewRegistry creates a new empty registry for the given directory.
func NewRegistry(catalogsDir string) *Registry {
	return &Registry{
		catalogs:    make(map[string]*Catalog),
		catalogsDir: catalogsDir,
	}
}

// Load scans the catalogs directory and loads every subdirectory holding a
// catalog.yaml.
func (r *Registry) Load() error {
	entries, err := os.ReadDir(r.catalogsDir)
	if err != nil {
		return fmt.Errorf("read catalogs dir %s: %w", r.catalogsDir, err)
	}

	loaded := make(map[string]*Catalog)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(r.catalogsDir, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, ManifestFile)); err != nil {
			continue
		}
		c, err := Load(dir)
		if err != nil {
			return fmt.Errorf("load catalog %s: %w", entry.Name(), err)
		}
		if _, dup := loaded[c.Manifest.ID]; dup {
			return fmt.Errorf("load catalog %s: duplicate id %q", entry.Name(), c.Manifest.ID)
		}
		loaded[c.Manifest.ID] = c
	}

	r.mu.Lock()
	r.catalogs = loaded
	r.mu.Unlock()
	return nil
}

// Reload reloads all catalogs from disk (hot reload).
func (r *Registry) Reload() error {
	return r.Load()
}

// Add registers an in-memory catalog, replacing any catalog with the same id.
func (r *Registry) Add(c *Catalog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.catalogs[c.Manifest.ID] = c
}

// Get returns the catalog with the given id. An empty id resolves to the
// only loaded catalog when exactly one is loaded.
func (r *Registry) Get(id string) (*Catalog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if id == "" && len(r.catalogs) == 1 {
		for _, c := range r.catalogs {
			return c, nil
		}
	}
	c, ok := r.catalogs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCatalog, id)
	}
	return c, nil
}

// Info is the public metadata for a loaded catalog.
type Info struct {
	ID        string `json:"id"`
	Version   string `json:"version"`
	Title     string `json:"title,omitempty"`
	Language  string `json:"language,omitempty"`
	Source    string `json:"source,omitempty"`
	SourceURL string `json:"source_url,omitempty"`
	License   string `json:"license,omitempty"`
	Cases     int    `json:"cases"`
	Entries   int    `json:"entries"`
}

// List returns metadata for all loaded catalogs, sorted by id.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.catalogs))
	for _, c := range r.catalogs {
		infos = append(infos, Info{
			ID:        c.Manifest.ID,
			Version:   c.Manifest.Version,
			Title:     c.Manifest.Title,
			Language:  c.Manifest.Language,
			Source:    c.Manifest.Source,
			SourceURL: c.Manifest.SourceURL,
			License:   c.Manifest.License,
			Cases:     len(c.Cases()),
			Entries:   len(c.Entries),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Count returns the number of loaded catalogs.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.catalogs)
}

// TotalEntries returns the total number of entries across all catalogs.
func (r *Registry) TotalEntries() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, c := range r.catalogs {
		total += len(c.Entries)
	}
	return total
}
