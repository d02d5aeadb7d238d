package importer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/hazyhaar/lexcheck/pkg/catalog"
)

// Status is the outcome of checking one catalog source.
type Status struct {
	CatalogID string
	Code      int   // HTTP status, 0 when the request failed
	Err       error // transport error
	// Modified is the source's Last-Modified, zero when not sent.
	Modified time.Time
	// Stale is set when the source changed after the installed catalog
	// was imported, so a re-import would pick up new principles.
	Stale bool
}

// OK reports whether the source answered with 2xx or 3xx.
func (s Status) OK() bool { return s.Err == nil && s.Code >= 200 && s.Code < 400 }

// Checker verifies catalog sources: it records whether each URL answers and
// compares its Last-Modified with the import date of the installed catalog.
type Checker struct {
	sources     *SourceDB
	catalogsDir string
	logger      *slog.Logger
	client      *http.Client
}

// NewChecker checks the sources in sources against the catalogs installed
// under catalogsDir.
func NewChecker(sources *SourceDB, catalogsDir string, logger *slog.Logger) *Checker {
	return &Checker{
		sources:     sources,
		catalogsDir: catalogsDir,
		logger:      logger,
		client: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Run checks every source now and then every interval until ctx is done.
func (c *Checker) Run(ctx context.Context, interval time.Duration) {
	c.CheckAll(ctx)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.CheckAll(ctx)
		}
	}
}

// CheckAll checks every registered source, persists each result and
// returns them in catalog order.
func (c *Checker) CheckAll(ctx context.Context) []Status {
	sources, err := c.sources.ListSources()
	if err != nil {
		c.logger.Error("source check: list sources", "error", err)
		return nil
	}

	out := make([]Status, 0, len(sources))
	var failed, stale int
	for _, src := range sources {
		if ctx.Err() != nil {
			break
		}
		st := c.Check(ctx, src)
		out = append(out, st)

		errMsg := ""
		if st.Err != nil {
			errMsg = st.Err.Error()
		}
		if err := c.sources.UpdateCheck(src.CatalogID, st.Code, errMsg); err != nil {
			c.logger.Error("source check: record", "catalog", src.CatalogID, "error", err)
		}
		switch {
		case !st.OK():
			failed++
			c.logger.Warn("catalog source unreachable", "catalog", src.CatalogID, "url", src.SourceURL, "status", st.Code, "error", errMsg)
		case st.Stale:
			stale++
			c.logger.Info("catalog source updated since import", "catalog", src.CatalogID, "modified", st.Modified)
		}
	}
	if len(out) > 0 {
		c.logger.Info("source check complete", "total", len(out), "failed", failed, "stale", stale)
	}
	return out
}

// Check queries one source without recording the result.
func (c *Checker) Check(ctx context.Context, src Source) Status {
	st := Status{CatalogID: src.CatalogID}
	resp, err := c.request(ctx, src.SourceURL)
	if err != nil {
		st.Err = err
		return st
	}
	st.Code = resp.StatusCode
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			st.Modified = t
		}
	}
	if imported, ok := c.importedOn(src.CatalogID); ok && !st.Modified.IsZero() {
		// The manifest only keeps the import day.
		st.Stale = st.Modified.After(imported.AddDate(0, 0, 1))
	}
	return st
}

// request sends HEAD, falling back to GET for servers that refuse HEAD.
func (c *Checker) request(ctx context.Context, url string) (*http.Response, error) {
	var resp *http.Response
	for _, method := range []string{http.MethodHead, http.MethodGet} {
		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		resp, err = c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, url, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed && resp.StatusCode != http.StatusNotImplemented {
			break
		}
	}
	return resp, nil
}

// importedOn returns the import day of the installed catalog, read from the
// version Import writes into its manifest.
func (c *Checker) importedOn(catalogID string) (time.Time, bool) {
	m, err := catalog.LoadManifest(filepath.Join(c.catalogsDir, catalogID, catalog.ManifestFile))
	if err != nil {
		return time.Time{}, false
	}
	day, err := time.Parse(importVersionLayout, m.Version)
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}
