package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wesm/chatvault/internal/query"
	"github.com/wesm/chatvault/internal/search"
	"github.com/wesm/chatvault/internal/store"
)

// TimeFormat is the layout of every timestamp in responses.
const TimeFormat = time.RFC3339Nano

// StatsResponse represents the archive statistics.
type StatsResponse struct {
	Categories   int64 `json:"categories"`
	Channels     int64 `json:"channels"`
	Messages     int64 `json:"messages"`
	Pages        int64 `json:"pages"`
	DatabaseSize int64 `json:"database_size_bytes"`
}

// ChannelResponse is a channel summary.
type ChannelResponse struct {
	ID           int64  `json:"id"`
	Kind         int    `json:"kind"`
	Name         string `json:"name"`
	CategoryID   int64  `json:"category_id"`
	CategoryName string `json:"category_name"`
}

// CategoryResponse is a category with its channels.
type CategoryResponse struct {
	ID       int64             `json:"id"`
	Name     string            `json:"name"`
	Channels []ChannelResponse `json:"channels"`
}

// MessageResponse is a stored message. Content is HTML.
type MessageResponse struct {
	ID        int64  `json:"id"`
	ChannelID int64  `json:"channel_id"`
	Content   string `json:"content"`
	Username  string `json:"username"`
	Avatar    string `json:"avatar"`
	SentAt    string `json:"sent_at"`
}

// PageResponse is one page of a channel.
type PageResponse struct {
	Channel  ChannelResponse   `json:"channel"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Messages []MessageResponse `json:"messages"`
}

// LocationResponse tells where a message lives.
type LocationResponse struct {
	MessageID   int64  `json:"message_id"`
	ChannelID   int64  `json:"channel_id"`
	ChannelName string `json:"channel_name"`
	Page        int    `json:"page"`
}

// GoToMessageResponse is a message location together with the page
// containing the message.
type GoToMessageResponse struct {
	Location LocationResponse  `json:"location"`
	Messages []MessageResponse `json:"messages"`
}

// SearchHitResponse is a search hit.
type SearchHitResponse struct {
	MessageResponse
	ChannelName string `json:"channel_name"`
}

// SearchResponse represents search results.
type SearchResponse struct {
	Content  string              `json:"content"`
	Username *string             `json:"username,omitempty"`
	Limit    int                 `json:"limit"`
	Hits     []SearchHitResponse `json:"hits"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, err string, message string) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: message})
}

// writeEngineError maps a query error to a response. Only unexpected
// errors are logged.
func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, query.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, query.ErrInvalidPage):
		writeError(w, http.StatusBadRequest, "invalid_page", err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		s.logger.Warn(op+" timed out", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusServiceUnavailable, "timeout", "The archive is busy, try again")
	case errors.Is(err, search.ErrMalformedTerm):
		s.logger.Error("search query builder produced a malformed term", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Search failed")
	default:
		s.logger.Error(op+" failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to "+op)
	}
}

func toChannelResponse(ch query.Channel) ChannelResponse {
	return ChannelResponse{
		ID:           ch.ID,
		Kind:         int(ch.Kind),
		Name:         ch.Name,
		CategoryID:   ch.CategoryID,
		CategoryName: ch.CategoryName,
	}
}

func toMessageResponse(m query.Message) MessageResponse {
	return MessageResponse{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
		Username:  m.Username,
		Avatar:    m.Avatar,
		SentAt:    m.SentAt.UTC().Format(TimeFormat),
	}
}

func toMessageResponses(msgs []query.Message) []MessageResponse {
	out := make([]MessageResponse, len(msgs))
	for i, m := range msgs {
		out[i] = toMessageResponse(m)
	}
	return out
}

// pathInt64 parses a numeric URL parameter, writing a 400 on failure.
func pathInt64(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, "Parameter '"+name+"' must be a number")
		return 0, false
	}
	return v, true
}

func setCurrentChannel(w http.ResponseWriter, channelID int64) {
	w.Header().Set(CurrentChannelHeader, strconv.FormatInt(channelID, 10))
}

// handleStats returns archive statistics.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.GetStats(r.Context())
	if err != nil {
		s.writeEngineError(w, r, "get stats", err)
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{
		Categories:   stats.CategoryCount,
		Channels:     stats.ChannelCount,
		Messages:     stats.MessageCount,
		Pages:        stats.PageCount,
		DatabaseSize: stats.DatabaseSize,
	})
}

// handleListChannels returns every category with its channels.
func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	cats, err := s.engine.ListChannels(r.Context())
	if err != nil {
		s.writeEngineError(w, r, "list channels", err)
		return
	}

	resp := make([]CategoryResponse, len(cats))
	for i, cat := range cats {
		channels := make([]ChannelResponse, len(cat.Channels))
		for j, ch := range cat.Channels {
			channels[j] = toChannelResponse(ch)
		}
		resp[i] = CategoryResponse{ID: cat.CategoryID, Name: cat.CategoryName, Channels: channels}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"categories": resp,
	})
}

// handleGetChannel returns a single channel.
func (s *Server) handleGetChannel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	ch, err := s.engine.GetChannel(r.Context(), id)
	if err != nil {
		s.writeEngineError(w, r, "get channel", err)
		return
	}
	writeJSON(w, http.StatusOK, toChannelResponse(*ch))
}

// handleGetPage returns one page of a channel. Unknown channels are 404;
// pages past the end are empty.
func (s *Server) handleGetPage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	page, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_page", "Page must be a number")
		return
	}

	ch, err := s.engine.GetChannel(r.Context(), id)
	if err != nil {
		s.writeEngineError(w, r, "get channel", err)
		return
	}
	msgs, err := s.engine.GetPage(r.Context(), id, page)
	if err != nil {
		s.writeEngineError(w, r, "get page", err)
		return
	}

	setCurrentChannel(w, id)
	writeJSON(w, http.StatusOK, PageResponse{
		Channel:  toChannelResponse(*ch),
		Page:     page,
		PageSize: store.PageSize,
		Messages: toMessageResponses(msgs),
	})
}

// handleGoToMessage resolves a permalink and returns the page holding it.
func (s *Server) handleGoToMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}

	loc, err := s.engine.GoToMessage(r.Context(), id)
	if err != nil {
		s.writeEngineError(w, r, "go to message", err)
		return
	}
	msgs, err := s.engine.GetPage(r.Context(), loc.ChannelID, loc.Page)
	if err != nil {
		s.writeEngineError(w, r, "get page", err)
		return
	}

	setCurrentChannel(w, loc.ChannelID)
	writeJSON(w, http.StatusOK, GoToMessageResponse{
		Location: LocationResponse{
			MessageID:   loc.MessageID,
			ChannelID:   loc.ChannelID,
			ChannelName: loc.ChannelName,
			Page:        loc.Page,
		},
		Messages: toMessageResponses(msgs),
	})
}

// handleSearch runs a full-text search. A request without usable words
// returns no hits rather than an error.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	filter := search.Filter{Content: params.Get("content")}
	if params.Has("username") {
		u := params.Get("username")
		filter.Username = &u
	}

	if v := params.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "Limit must be a non-negative number")
			return
		}
		filter.Limit = limit
	}
	if maxResults := s.cfg.Search.MaxResults; maxResults > 0 && (filter.Limit == 0 || filter.Limit > maxResults) {
		filter.Limit = maxResults
	}

	hits, err := s.engine.Search(r.Context(), filter)
	if err != nil {
		s.writeEngineError(w, r, "search", err)
		return
	}

	resp := SearchResponse{
		Content:  filter.Content,
		Username: filter.Username,
		Limit:    filter.Limit,
		Hits:     make([]SearchHitResponse, len(hits)),
	}
	for i, h := range hits {
		resp.Hits[i] = SearchHitResponse{MessageResponse: toMessageResponse(h.Message), ChannelName: h.ChannelName}
	}
	writeJSON(w, http.StatusOK, resp)
}
