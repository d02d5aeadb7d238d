// Package main is the lexcheck command: an HTTP/MCP server and a CLI for
// evaluating written legal arguments against case catalogs.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	cfg    config
	logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
)

var rootCmd = &cobra.Command{
	Use:   "lexcheck",
	Short: "Self-assessment of written legal arguments against case catalogs",
	Long: `lexcheck scores a written argument for one side of a moot-court case. Each
case catalog lists, per side, the legal principles worth citing with their
article, weight and keywords. The text is normalized (case and accents
ignored) and matched exactly or fuzzily against those keywords; the result
lists what was identified, what was missed, and what the other side may argue.

Catalogs live in one directory per catalog (catalog.yaml + data.csv) under
the configured catalogs_dir.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfgFile, _ := cmd.Flags().GetString("config")
		dir, _ := cmd.Flags().GetString("catalogs-dir")
		loaded, err := loadConfig(cfgFile, dir)
		if err != nil {
			return err
		}
		cfg = loaded
		logger = newLogger(cfg.LogLevel, os.Stderr)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./lexcheck.yaml or ~/.config/lexcheck/lexcheck.yaml)")
	rootCmd.PersistentFlags().String("catalogs-dir", "", "catalogs directory (overrides catalogs_dir)")
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
