package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/lexcheck/pkg/importer"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List registered catalog sources and their last availability check",
	RunE: func(cmd *cobra.Command, _ []string) error {
		sdb, err := openSources()
		if err != nil {
			return err
		}
		defer sdb.Close()

		sources, err := sdb.ListSources()
		if err != nil {
			return err
		}
		if len(sources) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no catalog source registered; add one with lexcheck import --catalog <id> --url <url>")
			return nil
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CATALOG\tFORMAT\tURL\tLAST CHECK\tSTATUS")
		for _, src := range sources {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", src.CatalogID, src.Format, src.SourceURL, lastCheck(src), checkStatus(src))
		}
		return tw.Flush()
	},
}

var sourcesSetURLCmd = &cobra.Command{
	Use:   "set-url <catalog> <url>",
	Short: "Change the URL of a registered source",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sdb, err := openSources()
		if err != nil {
			return err
		}
		defer sdb.Close()
		return sdb.SetURL(args[0], args[1])
	},
}

var sourcesRemoveCmd = &cobra.Command{
	Use:   "remove <catalog>",
	Short: "Forget a registered source (the installed catalog stays)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sdb, err := openSources()
		if err != nil {
			return err
		}
		defer sdb.Close()
		return sdb.Remove(args[0])
	},
}

var sourcesCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check every source URL once, record the result and flag stale catalogs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		sdb, err := openSources()
		if err != nil {
			return err
		}
		defer sdb.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()
		statuses := importer.NewChecker(sdb, cfg.CatalogsDir, logger).CheckAll(ctx)
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CATALOG\tSTATUS\tNOTE")
		for _, st := range statuses {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", st.CatalogID, statusText(st), staleNote(st))
		}
		return tw.Flush()
	},
}

func init() {
	sourcesCmd.AddCommand(sourcesSetURLCmd, sourcesRemoveCmd, sourcesCheckCmd)
	rootCmd.AddCommand(sourcesCmd)
}

func lastCheck(src importer.Source) string {
	if src.LastCheck == nil {
		return "never"
	}
	return time.Unix(*src.LastCheck, 0).UTC().Format(time.RFC3339)
}

func checkStatus(src importer.Source) string {
	switch {
	case src.LastStatus == nil:
		return "-"
	case src.LastError != nil && *src.LastError != "":
		return fmt.Sprintf("%d %s", *src.LastStatus, *src.LastError)
	}
	return fmt.Sprintf("%d", *src.LastStatus)
}

func statusText(st importer.Status) string {
	if st.Err != nil {
		return "unreachable: " + st.Err.Error()
	}
	return fmt.Sprintf("%d", st.Code)
}

func staleNote(st importer.Status) string {
	if !st.Stale {
		return ""
	}
	return "source changed " + st.Modified.UTC().Format("2006-01-02") + "; run lexcheck import --catalog " + st.CatalogID
}
