package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/lexcheck/pkg/textnorm"
)

var casesCmd = &cobra.Command{
	Use:   "cases [catalog]",
	Short: "List loaded catalogs and their cases",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry()
		if err != nil {
			return err
		}
		infos := reg.List()
		if len(args) == 1 {
			c, err := reg.Get(args[0])
			if err != nil {
				return err
			}
			infos = infos[:0]
			for _, info := range reg.List() {
				if info.ID == c.Manifest.ID {
					infos = append(infos, info)
				}
			}
		}
		if len(infos) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "no catalog under %s\n", cfg.CatalogsDir)
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, info := range infos {
			c, err := reg.Get(info.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(tw, "%s\t%s\t%d cases, %d entries\n", info.ID, info.Title, info.Cases, info.Entries)
			for _, cs := range c.Cases() {
				fmt.Fprintf(tw, "  %s\t%s\t%s\n", cs.ID, cs.Title, strings.Join(cs.Sides, ", "))
			}
		}
		return tw.Flush()
	},
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize <text>...",
	Short: "Show the normalized form and tokens of a text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		fmt.Fprintln(cmd.OutOrStdout(), textnorm.Normalize(text))
		fmt.Fprintf(cmd.OutOrStdout(), "%q\n", textnorm.Tokenize(text))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(casesCmd)
	rootCmd.AddCommand(normalizeCmd)
}
