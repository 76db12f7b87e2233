package remote

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/wesm/chatvault/internal/query"
	"github.com/wesm/chatvault/internal/search"
	"github.com/wesm/chatvault/internal/store"
)

// Engine implements query.Engine by making HTTP calls to a remote chatvault server.
type Engine struct {
	client *Client
}

// Compile-time check that Engine implements query.Engine.
var _ query.Engine = (*Engine)(nil)

// NewEngine creates a new remote query engine.
func NewEngine(cfg Config) (*Engine, error) {
	c, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return &Engine{client: c}, nil
}

// NewEngineFromClient creates a new remote query engine from an existing client.
func NewEngineFromClient(c *Client) *Engine {
	return &Engine{client: c}
}

// Close releases resources held by the engine.
func (e *Engine) Close() error {
	return e.client.Close()
}

// ============================================================================
// API Response Types
// ============================================================================

type statsResponse struct {
	Categories   int64 `json:"categories"`
	Channels     int64 `json:"channels"`
	Messages     int64 `json:"messages"`
	Pages        int64 `json:"pages"`
	DatabaseSize int64 `json:"database_size_bytes"`
}

type channelJSON struct {
	ID           int64  `json:"id"`
	Kind         int    `json:"kind"`
	Name         string `json:"name"`
	CategoryID   int64  `json:"category_id"`
	CategoryName string `json:"category_name"`
}

type channelsResponse struct {
	Categories []struct {
		ID       int64         `json:"id"`
		Name     string        `json:"name"`
		Channels []channelJSON `json:"channels"`
	} `json:"categories"`
}

type messageJSON struct {
	ID        int64  `json:"id"`
	ChannelID int64  `json:"channel_id"`
	Content   string `json:"content"`
	Username  string `json:"username"`
	Avatar    string `json:"avatar"`
	SentAt    string `json:"sent_at"`
}

type pageResponse struct {
	Messages []messageJSON `json:"messages"`
}

type goToResponse struct {
	Location struct {
		MessageID   int64  `json:"message_id"`
		ChannelID   int64  `json:"channel_id"`
		ChannelName string `json:"channel_name"`
		Page        int    `json:"page"`
	} `json:"location"`
}

type searchResponse struct {
	Hits []struct {
		messageJSON
		ChannelName string `json:"channel_name"`
	} `json:"hits"`
}

// ============================================================================
// Helper Functions
// ============================================================================

func (c channelJSON) toChannel() query.Channel {
	return query.Channel{
		ID:           c.ID,
		Kind:         store.ChannelKind(c.Kind),
		Name:         c.Name,
		CategoryID:   c.CategoryID,
		CategoryName: c.CategoryName,
	}
}

func (m messageJSON) toMessage() (query.Message, error) {
	sentAt, err := time.Parse(time.RFC3339Nano, m.SentAt)
	if err != nil {
		return query.Message{}, fmt.Errorf("message %d: parse sent_at: %w", m.ID, err)
	}
	return query.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
		Username:  m.Username,
		Avatar:    m.Avatar,
		SentAt:    sentAt,
	}, nil
}

// ============================================================================
// Engine methods
// ============================================================================

func (e *Engine) ListChannels(ctx context.Context) ([]query.CategoryChannels, error) {
	var resp channelsResponse
	if err := e.client.getJSON(ctx, "/api/v1/channels", nil, &resp); err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}

	result := make([]query.CategoryChannels, len(resp.Categories))
	for i, cat := range resp.Categories {
		result[i] = query.CategoryChannels{CategoryID: cat.ID, CategoryName: cat.Name}
		for _, ch := range cat.Channels {
			result[i].Channels = append(result[i].Channels, ch.toChannel())
		}
	}
	return result, nil
}

func (e *Engine) GetChannel(ctx context.Context, id int64) (*query.Channel, error) {
	var resp channelJSON
	if err := e.client.getJSON(ctx, "/api/v1/channels/"+strconv.FormatInt(id, 10), nil, &resp); err != nil {
		return nil, fmt.Errorf("get channel %d: %w", id, err)
	}
	ch := resp.toChannel()
	return &ch, nil
}

func (e *Engine) GetPage(ctx context.Context, channelID int64, page int) ([]query.Message, error) {
	if page < 0 {
		return nil, fmt.Errorf("get page %d: %w", page, query.ErrInvalidPage)
	}
	var resp pageResponse
	path := fmt.Sprintf("/api/v1/channels/%d/pages/%d", channelID, page)
	if err := e.client.getJSON(ctx, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("get page: %w", err)
	}

	msgs := make([]query.Message, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		msg, err := m.toMessage()
		if err != nil {
			return nil, fmt.Errorf("get page: %w", err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (e *Engine) GoToMessage(ctx context.Context, messageID int64) (*query.MessageLocation, error) {
	var resp goToResponse
	if err := e.client.getJSON(ctx, "/api/v1/messages/"+strconv.FormatInt(messageID, 10), nil, &resp); err != nil {
		return nil, fmt.Errorf("go to message %d: %w", messageID, err)
	}
	return &query.MessageLocation{
		MessageID:   resp.Location.MessageID,
		ChannelID:   resp.Location.ChannelID,
		ChannelName: resp.Location.ChannelName,
		Page:        resp.Location.Page,
	}, nil
}

// Search sends the raw filter; the server tokenizes it. Filters without
// usable words are answered locally.
func (e *Engine) Search(ctx context.Context, filter search.Filter) ([]query.SearchHit, error) {
	if search.NewQuery(filter).IsEmpty() {
		return []query.SearchHit{}, nil
	}

	params := url.Values{}
	params.Set("content", filter.Content)
	if filter.Username != nil {
		params.Set("username", *filter.Username)
	}
	if filter.Limit > 0 {
		params.Set("limit", strconv.Itoa(filter.Limit))
	}

	var resp searchResponse
	if err := e.client.getJSON(ctx, "/api/v1/search", params, &resp); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	hits := make([]query.SearchHit, 0, len(resp.Hits))
	for _, h := range resp.Hits {
		msg, err := h.toMessage()
		if err != nil {
			return nil, fmt.Errorf("search: %w", err)
		}
		hits = append(hits, query.SearchHit{Message: msg, ChannelName: h.ChannelName})
	}
	return hits, nil
}

func (e *Engine) GetStats(ctx context.Context) (*query.Stats, error) {
	var resp statsResponse
	if err := e.client.getJSON(ctx, "/api/v1/stats", nil, &resp); err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return &query.Stats{
		CategoryCount: resp.Categories,
		ChannelCount:  resp.Channels,
		MessageCount:  resp.Messages,
		PageCount:     resp.Pages,
		DatabaseSize:  resp.DatabaseSize,
	}, nil
}
