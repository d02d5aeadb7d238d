package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/lexcheck/pkg/mcpquic"
)

var remoteCmd = &cobra.Command{
	Use:   "remote <tool> [key=value]...",
	Short: "Call an MCP tool on a running lexcheck over QUIC",
	Long: `Remote connects to a chassis (or lexcheck mcp --quic) and calls one MCP
tool, printing its JSON result. The special tool name "tools" lists the
tools the server offers. Certificates are not verified unless --verify.`,
	Example: `  lexcheck remote --addr localhost:8443 list_catalogs
  lexcheck remote --addr localhost:8443 evaluate_argument case_id=1 side=defesa "text=direito a saude"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		verify, _ := cmd.Flags().GetBool("verify")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		toolArgs, err := parseToolArgs(args[1:])
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		client := mcpquic.NewClient(addr, mcpquic.ClientTLS(verify))
		if err := client.Connect(ctx); err != nil {
			return err
		}
		defer client.Close()

		out := cmd.OutOrStdout()
		if args[0] == "tools" {
			res, err := client.ListTools(ctx)
			if err != nil {
				return err
			}
			for _, t := range res.Tools {
				fmt.Fprintf(out, "%s\t%s\n", t.Name, t.Description)
			}
			return nil
		}

		text, err := client.CallToolText(ctx, args[0], toolArgs)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, text)
		return nil
	},
}

func init() {
	remoteCmd.Flags().String("addr", "localhost:8443", "chassis QUIC address")
	remoteCmd.Flags().Bool("verify", false, "verify the server certificate")
	remoteCmd.Flags().Duration("timeout", 30*time.Second, "call timeout")
	rootCmd.AddCommand(remoteCmd)
}

// parseToolArgs turns key=value pairs into tool arguments.
func parseToolArgs(pairs []string) (map[string]any, error) {
	args := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("argument %q is not key=value", p)
		}
		args[k] = v
	}
	return args, nil
}
