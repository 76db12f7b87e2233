package cmd

import (
	"github.com/spf13/cobra"
	mcpserver "github.com/wesm/chatvault/internal/mcp"
	"github.com/wesm/chatvault/internal/query"
	"github.com/wesm/chatvault/internal/workpool"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run MCP server for Claude Desktop integration",
	Long: `Start an MCP (Model Context Protocol) server over stdio.

This allows Claude Desktop (or any MCP client) to browse your chat archive
using the tools list_channels, get_page, go_to_message, search_messages
and get_stats. With --remote the tools query a running chatvault server.

Add to Claude Desktop config:
  {
    "mcpServers": {
      "chatvault": {
        "command": "chatvault",
        "args": ["mcp"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := OpenEngine()
		if err != nil {
			return err
		}
		if !IsRemoteMode() {
			engine = query.NewPooledEngine(engine, workpool.New(cfg.Store.Workers, logger))
		}
		defer engine.Close()

		return mcpserver.Serve(cmd.Context(), engine)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
