package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/wesm/chatvault/internal/query"
	"github.com/wesm/chatvault/internal/search"
)

const (
	defaultSearchLimit = 20
	maxLimit           = 500
)

type handlers struct {
	engine query.Engine
}

// getIDArg extracts a required positive integer ID from the arguments map.
func getIDArg(args map[string]any, key string) (int64, error) {
	v, ok := args[key].(float64)
	if !ok {
		return 0, fmt.Errorf("%s parameter is required", key)
	}
	if v != math.Trunc(v) || v < 1 || v > math.MaxInt64 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return int64(v), nil
}

// getPageArg extracts an optional non-negative page number, defaulting to 0.
func getPageArg(args map[string]any) (int, error) {
	raw, present := args["page"]
	if !present || raw == nil {
		return 0, nil
	}
	v, ok := raw.(float64)
	if !ok || v != math.Trunc(v) || v < 0 || v > math.MaxInt32 {
		return 0, errors.New("page must be a non-negative integer")
	}
	return int(v), nil
}

func (h *handlers) listChannels(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cats, err := h.engine.ListChannels(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list channels failed: %v", err)), nil
	}
	if cats == nil {
		cats = []query.CategoryChannels{}
	}
	return jsonResult(cats)
}

// pageResult is returned by get_page and go_to_message.
type pageResult struct {
	Channel  *query.Channel         `json:"channel"`
	Page     int                    `json:"page"`
	Location *query.MessageLocation `json:"location,omitempty"`
	Messages []query.Message        `json:"messages"`
}

func (h *handlers) getPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	channelID, err := getIDArg(args, "channel_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := getPageArg(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ch, err := h.engine.GetChannel(ctx, channelID)
	if err != nil {
		return engineError("channel", err), nil
	}
	msgs, err := h.engine.GetPage(ctx, channelID, page)
	if err != nil {
		return engineError("page", err), nil
	}

	return jsonResult(pageResult{Channel: ch, Page: page, Messages: msgs})
}

func (h *handlers) goToMessage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := getIDArg(req.GetArguments(), "message_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	loc, err := h.engine.GoToMessage(ctx, id)
	if err != nil {
		return engineError("message", err), nil
	}
	ch, err := h.engine.GetChannel(ctx, loc.ChannelID)
	if err != nil {
		return engineError("channel", err), nil
	}
	msgs, err := h.engine.GetPage(ctx, loc.ChannelID, loc.Page)
	if err != nil {
		return engineError("page", err), nil
	}

	return jsonResult(pageResult{Channel: ch, Page: loc.Page, Location: loc, Messages: msgs})
}

func (h *handlers) searchMessages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	filter := search.Filter{Limit: limitArg(args, "limit", defaultSearchLimit)}
	filter.Content, _ = args["content"].(string)
	if v, ok := args["username"].(string); ok && v != "" {
		filter.Username = &v
	}
	if filter.Content == "" && filter.Username == nil {
		return mcp.NewToolResultError("content or username parameter is required"), nil
	}

	hits, err := h.engine.Search(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if hits == nil {
		hits = []query.SearchHit{}
	}
	return jsonResult(hits)
}

func (h *handlers) getStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := h.engine.GetStats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("stats failed: %v", err)), nil
	}
	return jsonResult(stats)
}

func engineError(what string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, query.ErrNotFound):
		return mcp.NewToolResultError(what + " not found")
	case errors.Is(err, query.ErrInvalidPage):
		return mcp.NewToolResultError("invalid page number")
	}
	return mcp.NewToolResultError(fmt.Sprintf("get %s failed: %v", what, err))
}

// limitArg extracts a positive integer limit from a map, with a default.
// JSON numbers arrive as float64. Clamps to maxLimit to prevent excessive
// result sets.
func limitArg(args map[string]any, key string, def int) int {
	v, ok := args[key].(float64)
	if !ok || math.IsNaN(v) || v < 1 {
		return def
	}
	if math.IsInf(v, 1) || v > float64(maxLimit) {
		return maxLimit
	}
	return int(v)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal error: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
