package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/lexcheck/pkg/evaluate"
	"github.com/hazyhaar/lexcheck/pkg/report"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate an argument for one side of a case",
	Long: `Evaluate scores an argument text against the catalog entries of a case and
side. The text comes from --text, from --file, or from stdin with --file -.

Formats: text (default, human summary), json, csv, md, html. csv, md and html
are the downloadable report; --out writes it to a file.`,
	Example: `  lexcheck evaluate --case 1 --side defesa --text "invoco o direito à saúde"
  lexcheck evaluate --catalog moot-en --case 3 --side defense --file brief.txt --format md`,
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().String("catalog", "", "catalog id (optional when one catalog is loaded)")
	evaluateCmd.Flags().String("case", "", "case id")
	evaluateCmd.Flags().String("side", "", "side argued")
	evaluateCmd.Flags().String("text", "", "argument text")
	evaluateCmd.Flags().String("file", "", "read the argument from a file (- for stdin)")
	evaluateCmd.Flags().Float64("threshold", -1, "fuzzy similarity cutoff in [0, 1] (default from config)")
	evaluateCmd.Flags().String("format", "text", "output format: text, json, csv, md, html")
	evaluateCmd.Flags().String("out", "", "write output to this file instead of stdout")
	_ = evaluateCmd.MarkFlagRequired("case")
	_ = evaluateCmd.MarkFlagRequired("side")
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	catalogID, _ := flags.GetString("catalog")
	caseID, _ := flags.GetString("case")
	side, _ := flags.GetString("side")
	format, _ := flags.GetString("format")
	outPath, _ := flags.GetString("out")

	text, err := argumentText(cmd)
	if err != nil {
		return err
	}
	threshold := cfg.Threshold
	if t, _ := flags.GetFloat64("threshold"); flags.Changed("threshold") {
		if t < 0 || t > 1 {
			return fmt.Errorf("--threshold %v outside [0, 1]", t)
		}
		threshold = t
	}

	reg, err := openRegistry()
	if err != nil {
		return err
	}
	c, err := reg.Get(catalogID)
	if err != nil {
		return err
	}
	res := evaluate.Evaluate(caseID, side, text, c.Entries, evaluate.WithThreshold(threshold))

	meta := report.Meta{CaseID: res.CaseID, Side: res.Side, Generated: time.Now().UTC()}
	if cs, ok := c.Case(caseID); ok {
		meta.CaseTitle = cs.Title
	} else {
		logger.Warn("case not found in catalog", "catalog", c.Manifest.ID, "case", caseID)
	}

	out := cmd.OutOrStdout()
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", outPath, err)
		}
		defer f.Close()
		out = f
	}
	return writeResult(out, format, res, meta)
}

func argumentText(cmd *cobra.Command) (string, error) {
	text, _ := cmd.Flags().GetString("text")
	file, _ := cmd.Flags().GetString("file")
	switch {
	case file == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		return string(data), err
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read argument: %w", err)
		}
		return string(data), nil
	}
	return text, nil
}

func writeResult(w io.Writer, format string, res evaluate.Result, meta report.Meta) error {
	switch strings.ToLower(format) {
	case "text", "":
		printSummary(w, res, meta)
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case "csv":
		return report.WriteCSV(w, report.Rows(res, meta))
	case "md", "markdown":
		_, err := io.WriteString(w, report.Markdown(res, meta))
		return err
	case "html":
		html, err := report.HTML(res, meta)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, html)
		return err
	}
	return fmt.Errorf("unknown format %q (want text, json, csv, md or html)", format)
}

func printSummary(w io.Writer, res evaluate.Result, meta report.Meta) {
	title := meta.CaseID
	if meta.CaseTitle != "" {
		title += " - " + meta.CaseTitle
	}
	fmt.Fprintf(w, "Case %s, side %s\n", title, meta.Side)
	fmt.Fprintf(w, "Score: %g / %g (%.0f%%)\n\n", res.Score, res.MaxScore, res.Coverage()*100)

	fmt.Fprintln(w, "Identified:")
	if len(res.Matched) == 0 {
		fmt.Fprintln(w, "  (none) Try more direct keywords, such as the article number or the principle's name.")
	}
	for _, m := range res.Matched {
		fmt.Fprintf(w, "  + %s (%s) weight %g, found %q\n", m.Principle, m.Article, m.Weight, m.Hit.Span)
	}

	fmt.Fprintln(w, "\nCould have used:")
	if len(res.Recommended) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, s := range res.Recommended {
		fmt.Fprintf(w, "  - %s (%s) weight %g: %s\n", s.Principle, s.Article, s.Weight, strings.Join(s.Keywords, ", "))
	}

	fmt.Fprintln(w, "\nOpposing side may argue:")
	if len(res.Counterarguments) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, s := range res.Counterarguments {
		fmt.Fprintf(w, "  ! [%s] %s (%s)\n", s.Side, s.Principle, s.Article)
	}
}
