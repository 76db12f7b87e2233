// Package mcp exposes the archive to MCP clients as read-only tools.
package mcp

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wesm/chatvault/internal/query"
)

// Tool name constants.
const (
	ToolListChannels   = "list_channels"
	ToolGetPage        = "get_page"
	ToolGoToMessage    = "go_to_message"
	ToolSearchMessages = "search_messages"
	ToolGetStats       = "get_stats"
)

// Version is reported to MCP clients during initialization.
var Version = "dev"

// NewServer creates an MCP server with the archive tools registered.
func NewServer(engine query.Engine) *server.MCPServer {
	s := server.NewMCPServer(
		"chatvault",
		Version,
		server.WithToolCapabilities(false),
	)

	h := &handlers{engine: engine}

	s.AddTool(listChannelsTool(), h.listChannels)
	s.AddTool(getPageTool(), h.getPage)
	s.AddTool(goToMessageTool(), h.goToMessage)
	s.AddTool(searchMessagesTool(), h.searchMessages)
	s.AddTool(getStatsTool(), h.getStats)

	return s
}

// Serve creates an MCP server with the archive tools and serves over stdio.
// It blocks until stdin is closed or the context is cancelled.
func Serve(ctx context.Context, engine query.Engine) error {
	stdio := server.NewStdioServer(NewServer(engine))
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

func listChannelsTool() mcp.Tool {
	return mcp.NewTool(ToolListChannels,
		mcp.WithDescription("List the archived text channels grouped by category."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func getPageTool() mcp.Tool {
	return mcp.NewTool(ToolGetPage,
		mcp.WithDescription("Get one page of a channel's messages, newest first. Page 0 holds the newest messages; a page past the end is empty."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithNumber("channel_id",
			mcp.Required(),
			mcp.Description("Channel ID (from list_channels)"),
		),
		mcp.WithNumber("page",
			mcp.Description("Page number (default 0)"),
		),
	)
}

func goToMessageTool() mcp.Tool {
	return mcp.NewTool(ToolGoToMessage,
		mcp.WithDescription("Find the channel and page holding a message, and return that page."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithNumber("message_id",
			mcp.Required(),
			mcp.Description("Message ID (from get_page or search_messages)"),
		),
	)
}

func searchMessagesTool() mcp.Tool {
	return mcp.NewTool(ToolSearchMessages,
		mcp.WithDescription("Full-text search. Every content word must appear in the message; username words match the start of author names. A message matching either side is returned, newest first."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("content",
			mcp.Description("Words to find in message text"),
		),
		mcp.WithString("username",
			mcp.Description("Author name prefix"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results to return (default 20)"),
		),
	)
}

func getStatsTool() mcp.Tool {
	return mcp.NewTool(ToolGetStats,
		mcp.WithDescription("Get archive overview: categories, channels, messages, pages and database size."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}
