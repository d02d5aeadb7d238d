// CLAUDE:SUMMARY Catalog manifest YAML schema: identity, source, CSV format and column mapping.
package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ManifestFile is the file name looked up in every catalog directory.
const ManifestFile = "catalog.yaml"

// Manifest describes a catalog: where it comes from and how its table is laid out.
type Manifest struct {
	ID        string     `yaml:"id" json:"id"`
	Version   string     `yaml:"version" json:"version"`
	Title     string     `yaml:"title" json:"title,omitempty"`
	Language  string     `yaml:"language" json:"language,omitempty"`
	Source    string     `yaml:"source" json:"source,omitempty"`
	SourceURL string     `yaml:"source_url" json:"source_url,omitempty"`
	License   string     `yaml:"license" json:"license,omitempty"`
	DataFile  string     `yaml:"data_file" json:"data_file"`
	Format    FormatSpec `yaml:"format" json:"-"`
}

// FormatSpec describes the CSV layout of a catalog table.
type FormatSpec struct {
	Delimiter        string `yaml:"delimiter"`
	Encoding         string `yaml:"encoding"`
	KeywordDelimiter string `yaml:"keyword_delimiter"`
	// Columns maps a required column name to the header used in the file,
	// for tables whose headers are localized (e.g. case_id: caso).
	Columns map[string]string `yaml:"columns,omitempty"`
}

// LoadManifest reads and parses a catalog.yaml file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if m.ID == "" {
		return nil, fmt.Errorf("manifest %s: missing id", path)
	}
	if m.DataFile == "" {
		m.DataFile = "data.csv"
	}
	return &m, nil
}
