package commands

import (
	"github.com/spf13/cobra"

	"github.com/teranos/smrt/assistant"
)

// McpCmd serves the assistant over MCP on stdio
var McpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve smrt_ask, smrt_search, smrt_stats and smrt_report as MCP tools on stdio",
	Long: `Run a Model Context Protocol server on stdin/stdout. Logs go to stderr,
so stdout stays reserved for the protocol.`,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	a, err := loadedApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	if ctx != nil {
		stop := a.startTriggers(ctx)
		defer stop()
	}
	return assistant.NewMCPServer(a.assistant).Serve()
}
