package testutil

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

// ExportMessage is a message record as it appears in an export file.
type ExportMessage struct {
	Content  string    `json:"content"`
	Username string    `json:"username"`
	Avatar   string    `json:"avatar"`
	SentAt   time.Time `json:"sentAt"`
}

// ExportChannel is a channel record as it appears in an export file.
// Messages is omitted from the JSON when nil.
type ExportChannel struct {
	Type     int             `json:"type"`
	Name     string          `json:"name"`
	Messages []ExportMessage `json:"messages,omitempty"`
}

// ExportCategory is a category record as it appears in an export file.
type ExportCategory struct {
	Name     string          `json:"name"`
	Children []ExportChannel `json:"children"`
}

// Export writes an export directory tree under a temporary root.
type Export struct {
	T    *testing.T
	Root string
}

// NewExport returns an empty export rooted in t.TempDir(). The categories
// directory is not created until a category is added.
func NewExport(t *testing.T) *Export {
	t.Helper()
	return &Export{T: t, Root: t.TempDir()}
}

// AddCategory writes categories/<ordinal>.json holding a single category
// object, the layout produced by the channel splitter.
func (e *Export) AddCategory(ordinal int, cat ExportCategory) string {
	e.T.Helper()
	return WriteJSON(e.T, e.Root, filepath.Join("categories", fmt.Sprintf("%d.json", ordinal)), cat)
}

// AddCategories writes categories/<ordinal>.json holding an array of
// categories.
func (e *Export) AddCategories(ordinal int, cats ...ExportCategory) string {
	e.T.Helper()
	return WriteJSON(e.T, e.Root, filepath.Join("categories", fmt.Sprintf("%d.json", ordinal)), cats)
}

// AddOtherChannel writes other_channels/<name>.json.
func (e *Export) AddOtherChannel(name string, ch ExportChannel) string {
	e.T.Helper()
	return WriteJSON(e.T, e.Root, filepath.Join("other_channels", name+".json"), ch)
}

// WriteRaw writes arbitrary bytes at rel, for malformed-input tests.
func (e *Export) WriteRaw(rel string, data []byte) string {
	e.T.Helper()
	return WriteFile(e.T, e.Root, rel, data)
}

// TextChannel returns a text channel (type 0) with the given messages.
func TextChannel(name string, msgs ...ExportMessage) ExportChannel {
	return ExportChannel{Type: 0, Name: name, Messages: msgs}
}

// Messages returns n messages by username, oldest first, starting at start
// and spaced step apart. Content is "<username> message <i>".
func Messages(n int, username string, start time.Time, step time.Duration) []ExportMessage {
	msgs := make([]ExportMessage, n)
	for i := range msgs {
		msgs[i] = ExportMessage{
			Content:  fmt.Sprintf("%s message %d", username, i),
			Username: username,
			Avatar:   "https://cdn.discordapp.com/avatars/" + username + ".png",
			SentAt:   start.Add(time.Duration(i) * step).UTC(),
		}
	}
	return msgs
}
