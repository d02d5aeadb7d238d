// CLAUDE:SUMMARY Evaluation report export: flat rows, CSV, Markdown and goldmark-rendered HTML. The only place a timestamp enters.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/hazyhaar/lexcheck/pkg/evaluate"
	"github.com/hazyhaar/lexcheck/pkg/textnorm"
)

// Row kinds.
const (
	KindMatched   = "matched"
	KindSuggested = "suggested"
)

// Meta identifies the evaluation a report was produced from.
type Meta struct {
	CaseID    string
	CaseTitle string
	Side      string
	Generated time.Time
}

// Row is one line of the exported report.
type Row struct {
	Timestamp string
	CaseID    string
	CaseTitle string
	Side      string
	Kind      string
	Principle string
	Article   string
	Weight    float64
}

var header = []string{"timestamp", "case_id", "case_title", "side", "kind", "principle", "article", "weight"}

// Rows flattens matched then recommended entries of res into report rows.
// Counterarguments are not part of the export.
func Rows(res evaluate.Result, meta Meta) []Row {
	ts := meta.Generated.Format(time.RFC3339)
	rows := make([]Row, 0, len(res.Matched)+len(res.Recommended))
	for _, m := range res.Matched {
		rows = append(rows, Row{ts, meta.CaseID, meta.CaseTitle, meta.Side, KindMatched, m.Principle, m.Article, m.Weight})
	}
	for _, r := range res.Recommended {
		rows = append(rows, Row{ts, meta.CaseID, meta.CaseTitle, meta.Side, KindSuggested, r.Principle, r.Article, r.Weight})
	}
	return rows
}

// WriteCSV writes rows with a header line.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		rec := []string{r.Timestamp, r.CaseID, r.CaseTitle, r.Side, r.Kind, r.Principle, r.Article, formatWeight(r.Weight)}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Markdown renders the full evaluation, counterarguments included.
func Markdown(res evaluate.Result, meta Meta) string {
	var b strings.Builder
	title := meta.CaseID
	if meta.CaseTitle != "" {
		title += ": " + meta.CaseTitle
	}
	fmt.Fprintf(&b, "# Case %s\n\n", title)
	fmt.Fprintf(&b, "Side: **%s**  \nScore: **%s** of %s (%.0f%%)  \nGenerated: %s\n\n",
		escape(meta.Side), formatWeight(res.Score), formatWeight(res.MaxScore), res.Coverage()*100,
		meta.Generated.Format(time.RFC3339))

	b.WriteString("## Arguments identified\n\n")
	if len(res.Matched) == 0 {
		b.WriteString("No principle was identified in the text. Try more direct keywords, such as an article number or the principle's name.\n\n")
	} else {
		b.WriteString("| Principle | Article | Weight | Found |\n|---|---|---|---|\n")
		for _, m := range res.Matched {
			fmt.Fprintf(&b, "| %s | %s | %s | %s (%s) |\n",
				escape(m.Principle), escape(m.Article), formatWeight(m.Weight), escape(m.Hit.Span), m.Hit.Method)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Principles you could have used\n\n")
	if len(res.Recommended) == 0 {
		b.WriteString("All expected principles for this side were cited.\n\n")
	} else {
		writeSuggestions(&b, res.Recommended)
	}

	b.WriteString("## What the opposing side may argue\n\n")
	if len(res.Counterarguments) == 0 {
		b.WriteString("No arguments are cataloged for the other side of this case.\n")
	} else {
		writeSuggestions(&b, res.Counterarguments)
	}
	return b.String()
}

// HTML renders Markdown(res, meta) as an HTML fragment.
func HTML(res evaluate.Result, meta Meta) (string, error) {
	var buf bytes.Buffer
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(Markdown(res, meta)), &buf); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	return buf.String(), nil
}

// FileName returns the download name of a report, e.g. report_1_defesa.csv.
func FileName(caseID, side, ext string) string {
	part := func(s string) string {
		s = strings.ReplaceAll(textnorm.Normalize(s), " ", "-")
		if s == "" {
			return "x"
		}
		return s
	}
	return fmt.Sprintf("report_%s_%s.%s", part(caseID), part(side), ext)
}

func writeSuggestions(b *strings.Builder, ss []evaluate.Suggestion) {
	for _, s := range ss {
		fmt.Fprintf(b, "- **%s**", escape(s.Principle))
		if s.Article != "" {
			fmt.Fprintf(b, " (%s)", escape(s.Article))
		}
		fmt.Fprintf(b, ", weight %s", formatWeight(s.Weight))
		if len(s.Keywords) > 0 {
			fmt.Fprintf(b, ", keywords: %s", escape(strings.Join(s.Keywords, ", ")))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func formatWeight(w float64) string {
	return strconv.FormatFloat(w, 'f', -1, 64)
}

var mdEscaper = strings.NewReplacer("|", `\|`, "*", `\*`, "_", `\_`, "<", "&lt;", ">", "&gt;")

func escape(s string) string {
	return mdEscaper.Replace(s)
}
