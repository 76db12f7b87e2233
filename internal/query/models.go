// Package query provides the read-only query layer over a built archive:
// channel listing, paginated message retrieval, permalink resolution and
// full-text search. The Engine interface lets the API, the MCP server and
// the CLI work against a local archive or a remote server alike.
package query

import (
	"time"

	"github.com/wesm/chatvault/internal/store"
)

// Channel is a channel summary.
type Channel struct {
	ID           int64
	Kind         store.ChannelKind
	Name         string
	CategoryID   int64
	CategoryName string
}

// CategoryChannels is one category with its channels, in insertion order.
type CategoryChannels struct {
	CategoryID   int64
	CategoryName string
	Channels     []Channel
}

// Message is a stored message. ID is the permalink target.
type Message struct {
	ID        int64
	ChannelID int64
	Content   string // HTML-escaped, emotes rendered
	Username  string
	Avatar    string
	SentAt    time.Time
}

// MessageLocation is where a message lives: its channel and the zero-based
// page of that channel containing it.
type MessageLocation struct {
	MessageID   int64
	ChannelID   int64
	ChannelName string
	Page        int
}

// SearchHit is a search result with the owning channel resolved, enough to
// link to the message.
type SearchHit struct {
	Message
	ChannelName string
}

// Stats provides overall archive statistics.
type Stats struct {
	CategoryCount int64
	ChannelCount  int64
	MessageCount  int64
	PageCount     int64
	DatabaseSize  int64
}
