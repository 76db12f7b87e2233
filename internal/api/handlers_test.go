package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/wesm/chatvault/internal/query"
	"github.com/wesm/chatvault/internal/query/querytest"
	"github.com/wesm/chatvault/internal/search"
	"github.com/wesm/chatvault/internal/store"
	"github.com/wesm/chatvault/internal/testutil/ptr"
	"github.com/wesm/chatvault/internal/testutil/storetest"
)

var sentAt = time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)

func newMockEngine() *querytest.MockEngine {
	general := &query.Channel{ID: 1, Kind: store.KindText, Name: "general", CategoryID: 1, CategoryName: "General"}
	msg := query.Message{ID: 42, ChannelID: 1, Content: "hello &amp; welcome", Username: "alice", Avatar: "a.png", SentAt: sentAt}
	return &querytest.MockEngine{
		Categories: []query.CategoryChannels{{CategoryID: 1, CategoryName: "General", Channels: []query.Channel{*general}}},
		Channels:   map[int64]*query.Channel{1: general},
		Pages:      map[int64][][]query.Message{1: {{msg}}},
		Locations:  map[int64]*query.MessageLocation{42: {MessageID: 42, ChannelID: 1, ChannelName: "general", Page: 0}},
		Hits:       []query.SearchHit{{Message: msg, ChannelName: "general"}},
		Stats:      &query.Stats{CategoryCount: 1, ChannelCount: 1, MessageCount: 1, PageCount: 1, DatabaseSize: 4096},
	}
}

func TestHandleStats(t *testing.T) {
	srv := newTestServer(t, testConfig(), newMockEngine())

	w := get(t, srv, "/api/v1/stats")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp StatsResponse
	decode(t, w, &resp)
	want := StatsResponse{Categories: 1, Channels: 1, Messages: 1, Pages: 1, DatabaseSize: 4096}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestHandleListChannels(t *testing.T) {
	srv := newTestServer(t, testConfig(), newMockEngine())

	w := get(t, srv, "/api/v1/channels")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Categories []CategoryResponse `json:"categories"`
	}
	decode(t, w, &resp)
	want := []CategoryResponse{{
		ID:       1,
		Name:     "General",
		Channels: []ChannelResponse{{ID: 1, Kind: 0, Name: "general", CategoryID: 1, CategoryName: "General"}},
	}}
	if diff := cmp.Diff(want, resp.Categories); diff != "" {
		t.Errorf("channels mismatch (-want +got):\n%s", diff)
	}
}

func TestHandleListChannelsEmptyIsArray(t *testing.T) {
	srv := newTestServer(t, testConfig(), &querytest.MockEngine{})
	w := get(t, srv, "/api/v1/channels")
	if body := strings.TrimSpace(w.Body.String()); body != `{"categories":[]}` {
		t.Errorf("body = %s, want an empty array", body)
	}
}

func TestHandleGetChannel(t *testing.T) {
	srv := newTestServer(t, testConfig(), newMockEngine())

	w := get(t, srv, "/api/v1/channels/1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp ChannelResponse
	decode(t, w, &resp)
	if resp.Name != "general" || resp.CategoryName != "General" {
		t.Errorf("channel = %+v", resp)
	}
}

func TestHandleGetPage(t *testing.T) {
	srv := newTestServer(t, testConfig(), newMockEngine())

	w := get(t, srv, "/api/v1/channels/1/pages/0")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Header().Get(CurrentChannelHeader); got != "1" {
		t.Errorf("%s = %q, want 1", CurrentChannelHeader, got)
	}
	var resp PageResponse
	decode(t, w, &resp)
	want := PageResponse{
		Channel:  ChannelResponse{ID: 1, Name: "general", CategoryID: 1, CategoryName: "General"},
		Page:     0,
		PageSize: store.PageSize,
		Messages: []MessageResponse{{
			ID: 42, ChannelID: 1, Content: "hello &amp; welcome", Username: "alice", Avatar: "a.png",
			SentAt: "2021-06-01T12:00:00Z",
		}},
	}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Errorf("page mismatch (-want +got):\n%s", diff)
	}
}

func TestHandleGetPageBeyondEnd(t *testing.T) {
	srv := newTestServer(t, testConfig(), newMockEngine())

	w := get(t, srv, "/api/v1/channels/1/pages/7")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp PageResponse
	decode(t, w, &resp)
	if resp.Messages == nil || len(resp.Messages) != 0 {
		t.Errorf("messages = %v, want an empty array", resp.Messages)
	}
}

func TestHandleErrors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantError  string
	}{
		{"unknown channel", "/api/v1/channels/99", http.StatusNotFound, "not_found"},
		{"page of unknown channel", "/api/v1/channels/99/pages/0", http.StatusNotFound, "not_found"},
		{"negative page", "/api/v1/channels/1/pages/-1", http.StatusBadRequest, "invalid_page"},
		{"non-numeric page", "/api/v1/channels/1/pages/last", http.StatusBadRequest, "invalid_page"},
		{"non-numeric channel", "/api/v1/channels/general", http.StatusBadRequest, "invalid_id"},
		{"unknown message", "/api/v1/messages/7", http.StatusNotFound, "not_found"},
		{"non-numeric message", "/api/v1/messages/abc", http.StatusBadRequest, "invalid_id"},
		{"bad limit", "/api/v1/search?content=x&limit=-3", http.StatusBadRequest, "invalid_limit"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t, testConfig(), newMockEngine())
			w := get(t, srv, tc.path)
			if w.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tc.wantStatus)
			}
			var resp ErrorResponse
			decode(t, w, &resp)
			if resp.Error != tc.wantError {
				t.Errorf("error = %q, want %q", resp.Error, tc.wantError)
			}
		})
	}
}

func TestHandleEngineFailures(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"driver error", errors.New("disk I/O error"), http.StatusInternalServerError, "internal_error"},
		{"malformed term", fmt.Errorf("search: %w", search.ErrMalformedTerm), http.StatusInternalServerError, "internal_error"},
		{"worker wait timed out", fmt.Errorf("acquire worker: %w", context.DeadlineExceeded), http.StatusServiceUnavailable, "timeout"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			engine := newMockEngine()
			engine.GetPageFunc = func(context.Context, int64, int) ([]query.Message, error) { return nil, tc.err }
			engine.SearchFunc = func(context.Context, search.Filter) ([]query.SearchHit, error) { return nil, tc.err }
			srv := newTestServer(t, testConfig(), engine)

			for _, path := range []string{"/api/v1/channels/1/pages/0", "/api/v1/search?content=x"} {
				w := get(t, srv, path)
				if w.Code != tc.wantStatus {
					t.Errorf("%s: status = %d, want %d", path, w.Code, tc.wantStatus)
				}
				var resp ErrorResponse
				decode(t, w, &resp)
				if resp.Error != tc.wantError {
					t.Errorf("%s: error = %q, want %q", path, resp.Error, tc.wantError)
				}
				if strings.Contains(resp.Message, "disk I/O") {
					t.Errorf("%s: internal error leaked to the client: %q", path, resp.Message)
				}
				if w.Header().Get(CurrentChannelHeader) != "" {
					t.Errorf("%s: %s set on an error response", path, CurrentChannelHeader)
				}
			}
		})
	}
}

func TestHandleGoToMessage(t *testing.T) {
	srv := newTestServer(t, testConfig(), newMockEngine())

	w := get(t, srv, "/api/v1/messages/42")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Header().Get(CurrentChannelHeader); got != "1" {
		t.Errorf("%s = %q, want 1", CurrentChannelHeader, got)
	}
	var resp GoToMessageResponse
	decode(t, w, &resp)
	wantLoc := LocationResponse{MessageID: 42, ChannelID: 1, ChannelName: "general", Page: 0}
	if diff := cmp.Diff(wantLoc, resp.Location); diff != "" {
		t.Errorf("location mismatch (-want +got):\n%s", diff)
	}
	if len(resp.Messages) != 1 || resp.Messages[0].ID != 42 {
		t.Errorf("messages = %+v, want the page holding message 42", resp.Messages)
	}
}

func TestHandleSearch(t *testing.T) {
	engine := newMockEngine()
	var got search.Filter
	engine.SearchFunc = func(_ context.Context, f search.Filter) ([]query.SearchHit, error) {
		got = f
		return engine.Hits, nil
	}
	srv := newTestServer(t, testConfig(), engine)

	w := get(t, srv, "/api/v1/search?content=hello+world&username=ali&limit=5")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if diff := cmp.Diff(search.Filter{Content: "hello world", Username: ptr.String("ali"), Limit: 5}, got); diff != "" {
		t.Errorf("filter mismatch (-want +got):\n%s", diff)
	}

	var resp SearchResponse
	decode(t, w, &resp)
	if len(resp.Hits) != 1 || resp.Hits[0].ChannelName != "general" || resp.Hits[0].ChannelID != 1 || resp.Hits[0].ID != 42 {
		t.Errorf("hits = %+v", resp.Hits)
	}
}

func TestHandleSearchLimitCappedByConfig(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"content=x", 100},
		{"content=x&limit=0", 100},
		{"content=x&limit=20", 20},
		{"content=x&limit=5000", 100},
	}
	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			engine := newMockEngine()
			var got search.Filter
			engine.SearchFunc = func(_ context.Context, f search.Filter) ([]query.SearchHit, error) {
				got = f
				return nil, nil
			}
			srv := newTestServer(t, testConfig(), engine)
			if w := get(t, srv, "/api/v1/search?"+tc.query); w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			if got.Limit != tc.want {
				t.Errorf("limit = %d, want %d", got.Limit, tc.want)
			}
		})
	}
}

func TestHandleSearchNoUsername(t *testing.T) {
	engine := newMockEngine()
	var got search.Filter
	engine.SearchFunc = func(_ context.Context, f search.Filter) ([]query.SearchHit, error) {
		got = f
		return nil, nil
	}
	srv := newTestServer(t, testConfig(), engine)

	w := get(t, srv, "/api/v1/search?content=x")
	if got.Username != nil {
		t.Errorf("Username = %q, want nil when the parameter is absent", *got.Username)
	}
	var resp SearchResponse
	decode(t, w, &resp)
	if resp.Hits == nil {
		t.Error("hits = null, want an empty array")
	}
}

// TestArchiveEndToEnd serves a real archive and checks that the permalink
// of every search hit leads to a page containing it.
func TestArchiveEndToEnd(t *testing.T) {
	f := storetest.New(t)
	general := f.AddChannel("general", f.Messages(150, "alice")...)
	f.AddChannel("random", f.Messages(5, "bob")...)
	f.Build()
	srv := newTestServer(t, testConfig(), query.NewSQLiteEngine(f.Store.DB()))

	w := get(t, srv, "/api/v1/search?content=alice+message+3")
	var found SearchResponse
	decode(t, w, &found)
	if len(found.Hits) != 1 || found.Hits[0].Content != "alice message 3" {
		t.Fatalf("hits = %+v", found.Hits)
	}
	hit := found.Hits[0]

	w = get(t, srv, fmt.Sprintf("/api/v1/messages/%d", hit.ID))
	if w.Code != http.StatusOK {
		t.Fatalf("go to message status = %d", w.Code)
	}
	var loc GoToMessageResponse
	decode(t, w, &loc)
	if loc.Location.ChannelID != general || loc.Location.Page != 1 {
		t.Errorf("location = %+v, want channel %d page 1", loc.Location, general)
	}
	var ids []int64
	for _, m := range loc.Messages {
		ids = append(ids, m.ID)
	}
	if !slices.Contains(ids, hit.ID) {
		t.Errorf("page %d does not contain message %d", loc.Location.Page, hit.ID)
	}

	w = get(t, srv, fmt.Sprintf("/api/v1/channels/%d/pages/1", general))
	var page PageResponse
	decode(t, w, &page)
	if len(page.Messages) != 50 {
		t.Errorf("page 1 has %d messages, want 50", len(page.Messages))
	}
}
