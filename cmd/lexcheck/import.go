package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/lexcheck/pkg/importer"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Download a catalog from its source and install it",
	Long: `Import fetches a catalog table (CSV, or a ZIP holding one CSV), validates its
columns and installs it under catalogs_dir as <catalog>/catalog.yaml, data.csv
and data.gob. With --url the source is recorded (or updated) in the source
registry first; without it the registered URL is used. --all imports every
registered source. A running server picks new catalogs up on SIGHUP.`,
	Example: `  lexcheck import --catalog principios-br --url https://example.org/principios.csv --delimiter ";"
  lexcheck import --all`,
	RunE: runImport,
}

func init() {
	f := importCmd.Flags()
	f.String("catalog", "", "catalog id to import")
	f.Bool("all", false, "import every registered source")
	f.String("url", "", "source URL (registers or updates the source)")
	f.String("format", "csv", "source format: "+formatList())
	f.String("title", "", "catalog title")
	f.String("language", "", "catalog language (e.g. pt, en)")
	f.String("license", "", "license of the source")
	f.String("delimiter", "", "CSV field delimiter (default ,)")
	f.String("encoding", "", "CSV encoding (default utf-8)")
	f.Duration("timeout", 10*time.Minute, "overall import timeout")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, _ []string) error {
	f := cmd.Flags()
	id, _ := f.GetString("catalog")
	all, _ := f.GetBool("all")
	url, _ := f.GetString("url")
	timeout, _ := f.GetDuration("timeout")
	if all == (id != "") {
		return errors.New("use exactly one of --catalog or --all")
	}

	sdb, err := openSources()
	if err != nil {
		return err
	}
	defer sdb.Close()

	if url != "" {
		if all {
			return errors.New("--url needs --catalog")
		}
		src := importer.Source{CatalogID: id, SourceURL: url}
		src.Format, _ = f.GetString("format")
		src.Title, _ = f.GetString("title")
		src.Language, _ = f.GetString("language")
		src.License, _ = f.GetString("license")
		src.Delimiter, _ = f.GetString("delimiter")
		src.Encoding, _ = f.GetString("encoding")
		if _, err := importer.Get(src.Format); err != nil {
			return err
		}
		if err := sdb.Upsert(src); err != nil {
			return err
		}
	}

	var sources []importer.Source
	if all {
		if sources, err = sdb.ListSources(); err != nil {
			return err
		}
	} else {
		src, err := sdb.Get(id)
		if err != nil {
			return fmt.Errorf("%w (register it with --url)", err)
		}
		sources = []importer.Source{src}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	var failed int
	for _, src := range sources {
		c, err := importer.Import(ctx, src, cfg.CatalogsDir, logger)
		if err != nil {
			failed++
			logger.Error("import failed", "catalog", src.CatalogID, "error", err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d entries, %d cases\n", src.CatalogID, len(c.Entries), len(c.Cases()))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d imports failed", failed, len(sources))
	}
	return nil
}

func formatList() string {
	var names []string
	for _, a := range importer.All() {
		names = append(names, a.Format()+" ("+a.Description()+")")
	}
	return strings.Join(names, ", ")
}
