package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/smrt/cmd/smrt/commands"
	"github.com/teranos/smrt/logger"
)

var rootCmd = &cobra.Command{
	Use:   "smrt",
	Short: "SMRT - inventory assistant over customers, orders and products",
	Long: `SMRT - natural-language inventory assistant.

SMRT loads customer, order, order-detail and product tables into an indexed
in-memory store and answers questions about them over HTTP, WebSocket, MCP
or the command line.

Available commands:
  am      - Manage smrt configuration ("I am")
  ask     - Answer one question against the configured data
  db      - Import CSV tables into a SQLite database
  mcp     - Serve the assistant as MCP tools on stdio
  refresh - Load the configured data and print a summary
  report  - Render a plain-text business report
  server  - Start the HTTP and WebSocket server
  stats   - Print record counts and revenue

Examples:
  smrt am show                          # Show current configuration
  smrt ask "how many orders are pending"
  smrt report sales_report
  smrt server -v                        # Start the server with info logging`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("log-json")
		if err := logger.Initialize(jsonLogs, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.AskCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.McpCmd)
	rootCmd.AddCommand(commands.RefreshCmd)
	rootCmd.AddCommand(commands.ReportCmd)
	rootCmd.AddCommand(commands.ServerCmd)
	rootCmd.AddCommand(commands.StatsCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
