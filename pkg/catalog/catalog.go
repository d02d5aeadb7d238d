package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/hazyhaar/lexcheck/pkg/textnorm"
)

// Column names of a catalog table.
const (
	ColCaseID          = "case_id"
	ColCaseTitle       = "case_title"
	ColCaseDescription = "case_description"
	ColSide            = "side"
	ColPrinciple       = "principle"
	ColArticle         = "article"
	ColWeight          = "weight"
	ColKeywords        = "keywords"
)

// RequiredColumns must all be present in a catalog header. The weight column
// may be absent, in which case every entry weighs DefaultWeight.
var RequiredColumns = []string{
	ColCaseID, ColCaseTitle, ColCaseDescription, ColSide,
	ColPrinciple, ColArticle, ColKeywords,
}

// Catalog is one loaded, immutable reference table.
type Catalog struct {
	Manifest *Manifest `json:"manifest"`
	Entries  []Entry   `json:"-"`
}

// Case is a distinct case of a catalog, for pickers and listings.
type Case struct {
	ID          string   `json:"case_id"`
	Title       string   `json:"case_title"`
	Description string   `json:"case_description"`
	Sides       []string `json:"sides"`
	Entries     int      `json:"entries"`
}

// Load reads catalog.yaml in dir and loads the table from data.gob when
// present, otherwise from the manifest's CSV data file.
func Load(dir string) (*Catalog, error) {
	manifest, err := LoadManifest(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}

	c := &Catalog{Manifest: manifest}

	gobPath := filepath.Join(dir, GobFile)
	if _, err := os.Stat(gobPath); err == nil {
		entries, err := loadGob(gobPath)
		if err != nil {
			return nil, fmt.Errorf("catalog %s: %w", manifest.ID, err)
		}
		c.Entries = entries
		return c, nil
	}

	entries, err := ReadCSVFile(filepath.Join(dir, manifest.DataFile), manifest.Format)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", manifest.ID, err)
	}
	c.Entries = entries
	return c, nil
}

// New wraps already-built entries in a Catalog.
func New(m *Manifest, entries []Entry) *Catalog {
	return &Catalog{Manifest: m, Entries: entries}
}

// ReadCSVFile opens path and parses it with ReadCSV.
func ReadCSVFile(path string, format FormatSpec) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	defer f.Close()
	return ReadCSV(f, format)
}

// ReadCSV parses a catalog table. The first record is the header; columns are
// resolved by name so their order is free and extra columns are ignored.
func ReadCSV(r io.Reader, format FormatSpec) ([]Entry, error) {
	var reader io.Reader = r
	if enc := format.Encoding; enc != "" && !isUTF8(enc) {
		e, err := htmlindex.Get(enc)
		if err != nil {
			return nil, fmt.Errorf("unsupported encoding %q: %w", enc, err)
		}
		reader = transform.NewReader(r, e.NewDecoder())
	}

	cr := csv.NewReader(reader)
	if delim := format.Delimiter; delim != "" {
		cr.Comma = []rune(delim)[0]
	}
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &SchemaError{Missing: RequiredColumns}
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx, err := resolveColumns(header, format.Columns)
	if err != nil {
		return nil, err
	}

	cell := func(record []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var entries []Entry
	var defaulted int
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if isBlank(record) {
			continue
		}

		weight, ok := parseWeight(cell(record, ColWeight))
		if !ok {
			defaulted++
		}

		e := Entry{
			CaseID:          cell(record, ColCaseID),
			CaseTitle:       cell(record, ColCaseTitle),
			CaseDescription: cell(record, ColCaseDescription),
			Side:            cell(record, ColSide),
			Principle:       cell(record, ColPrinciple),
			Article:         cell(record, ColArticle),
			Weight:          weight,
			Keywords:        cell(record, ColKeywords),
		}
		e.NormalizedKeywords = keywordListDelim(e.Keywords, e.Principle, e.Article, format.KeywordDelimiter)
		entries = append(entries, e)
	}

	if defaulted > 0 {
		slog.Debug("weights defaulted", "rows", defaulted, "default", DefaultWeight)
	}
	return entries, nil
}

// resolveColumns maps every known column to its header index.
func resolveColumns(header []string, aliases map[string]string) (map[string]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		pos[strings.ToLower(strings.TrimSpace(h))] = i
	}

	idx := make(map[string]int)
	var missing []string
	columns := append(append([]string{}, RequiredColumns...), ColWeight)
	for _, col := range columns {
		name := col
		if alias, ok := aliases[col]; ok && alias != "" {
			name = strings.ToLower(strings.TrimSpace(alias))
		}
		if i, ok := pos[name]; ok {
			idx[col] = i
			continue
		}
		if col != ColWeight {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing, Header: header}
	}
	return idx, nil
}

// Cases returns the distinct cases of the catalog sorted by case id, each
// with the sides that have entries, in first-seen order.
func (c *Catalog) Cases() []Case {
	byID := make(map[string]*Case)
	sideSeen := make(map[string]map[string]bool)
	var order []string
	for _, e := range c.Entries {
		cs, ok := byID[e.CaseID]
		if !ok {
			cs = &Case{ID: e.CaseID, Title: e.CaseTitle, Description: e.CaseDescription, Sides: []string{}}
			byID[e.CaseID] = cs
			sideSeen[e.CaseID] = make(map[string]bool)
			order = append(order, e.CaseID)
		}
		cs.Entries++
		side := textnorm.Normalize(e.Side)
		if side != "" && !sideSeen[e.CaseID][side] {
			sideSeen[e.CaseID][side] = true
			cs.Sides = append(cs.Sides, side)
		}
	}

	sort.Strings(order)
	cases := make([]Case, 0, len(order))
	for _, id := range order {
		cases = append(cases, *byID[id])
	}
	return cases
}

// Case looks up a single case by id.
func (c *Catalog) Case(id string) (Case, bool) {
	for _, cs := range c.Cases() {
		if textnorm.Equal(cs.ID, id) {
			return cs, true
		}
	}
	return Case{}, false
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func isUTF8(enc string) bool {
	e := strings.ToLower(strings.ReplaceAll(enc, "-", ""))
	return e == "utf8" || e == ""
}
