// Package querytest provides shared test doubles for the query.Engine interface.
package querytest

import (
	"context"
	"fmt"

	"github.com/wesm/chatvault/internal/query"
	"github.com/wesm/chatvault/internal/search"
)

// MockEngine implements query.Engine for testing. Lookups are served from
// the data fields; the optional function fields override a method entirely.
type MockEngine struct {
	Categories []query.CategoryChannels
	Channels   map[int64]*query.Channel
	Pages      map[int64][][]query.Message // channel ID -> pages
	Locations  map[int64]*query.MessageLocation
	Hits       []query.SearchHit
	Stats      *query.Stats

	GetPageFunc func(context.Context, int64, int) ([]query.Message, error)
	SearchFunc  func(context.Context, search.Filter) ([]query.SearchHit, error)

	// Calls counts method invocations by method name.
	Calls map[string]int
	// Closed is set by Close.
	Closed bool
}

// Compile-time check.
var _ query.Engine = (*MockEngine)(nil)

func (m *MockEngine) record(name string) {
	if m.Calls == nil {
		m.Calls = make(map[string]int)
	}
	m.Calls[name]++
}

func (m *MockEngine) ListChannels(_ context.Context) ([]query.CategoryChannels, error) {
	m.record("ListChannels")
	return m.Categories, nil
}

func (m *MockEngine) GetChannel(_ context.Context, id int64) (*query.Channel, error) {
	m.record("GetChannel")
	if ch, ok := m.Channels[id]; ok {
		return ch, nil
	}
	return nil, fmt.Errorf("get channel %d: %w", id, query.ErrNotFound)
}

func (m *MockEngine) GetPage(ctx context.Context, channelID int64, page int) ([]query.Message, error) {
	m.record("GetPage")
	if m.GetPageFunc != nil {
		return m.GetPageFunc(ctx, channelID, page)
	}
	if page < 0 {
		return nil, fmt.Errorf("get page %d: %w", page, query.ErrInvalidPage)
	}
	pages := m.Pages[channelID]
	if page >= len(pages) {
		return []query.Message{}, nil
	}
	return pages[page], nil
}

func (m *MockEngine) GoToMessage(_ context.Context, messageID int64) (*query.MessageLocation, error) {
	m.record("GoToMessage")
	if loc, ok := m.Locations[messageID]; ok {
		return loc, nil
	}
	return nil, fmt.Errorf("go to message %d: %w", messageID, query.ErrNotFound)
}

func (m *MockEngine) Search(ctx context.Context, filter search.Filter) ([]query.SearchHit, error) {
	m.record("Search")
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, filter)
	}
	return m.Hits, nil
}

func (m *MockEngine) GetStats(_ context.Context) (*query.Stats, error) {
	m.record("GetStats")
	if m.Stats != nil {
		return m.Stats, nil
	}
	return &query.Stats{}, nil
}

func (m *MockEngine) Close() error {
	m.Closed = true
	return nil
}
