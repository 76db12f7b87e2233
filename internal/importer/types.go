// Package importer loads a chat export from disk and builds an archive
// from it.
package importer

import (
	"time"

	"github.com/wesm/chatvault/internal/store"
)

// OtherChannelsCategory names the synthetic category that holds channels
// exported outside any category.
const OtherChannelsCategory = "Other channels"

// Message is a message ready for insertion. Content is already
// HTML-escaped and has emote tags replaced with image elements.
type Message struct {
	Content  string
	Username string
	Avatar   string
	SentAt   time.Time
}

// Channel is an exported channel. Messages are ordered newest first and are
// nil when the channel has no exportable history.
type Channel struct {
	Kind     store.ChannelKind
	Name     string
	Messages []Message
}

// Category is an exported category. Ordinal is the number of the file it
// was read from; the synthetic other-channels category sorts last.
type Category struct {
	Name     string
	Ordinal  int
	Channels []Channel
}

// Export is a fully loaded export.
type Export struct {
	Root       string
	Categories []Category
}

// MessageCount returns the number of messages in text channels.
func (e *Export) MessageCount() int {
	n := 0
	for _, cat := range e.Categories {
		for _, ch := range cat.Channels {
			if ch.Kind.IsText() {
				n += len(ch.Messages)
			}
		}
	}
	return n
}

// ChannelCount returns the number of channels of any kind.
func (e *Export) ChannelCount() int {
	n := 0
	for _, cat := range e.Categories {
		n += len(cat.Channels)
	}
	return n
}

// Wire format of export files.

type exportMessage struct {
	Content  string     `json:"content"`
	Username string     `json:"username"`
	Avatar   string     `json:"avatar"`
	SentAt   *time.Time `json:"sentAt"`
}

type exportChannel struct {
	Type     *int            `json:"type"`
	Name     string          `json:"name"`
	Messages []exportMessage `json:"messages"`
}

type exportCategory struct {
	Name     string          `json:"name"`
	Children []exportChannel `json:"children"`
}
