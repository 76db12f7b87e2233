// Package storetest provides a Fixture for tests that populate an archive
// through the Store's public API.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/wesm/chatvault/internal/store"
	"github.com/wesm/chatvault/internal/testutil"
)

// BaseTime is the timestamp of the first fixture message.
var BaseTime = time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)

// Fixture holds a fresh archive with one default category.
type Fixture struct {
	T          *testing.T
	Store      *store.Store
	CategoryID int64

	msgCounter int
}

// New creates a Fixture with an empty archive and a "General" category.
func New(t *testing.T) *Fixture {
	t.Helper()
	st := testutil.NewTestStore(t)
	catID, err := st.InsertCategory(context.Background(), "General")
	testutil.MustNoErr(t, err, "setup: InsertCategory")
	return &Fixture{T: t, Store: st, CategoryID: catID}
}

// AddCategory inserts another category and returns its ID.
func (f *Fixture) AddCategory(name string) int64 {
	f.T.Helper()
	id, err := f.Store.InsertCategory(context.Background(), name)
	testutil.MustNoErr(f.T, err, "AddCategory "+name)
	return id
}

// AddChannel inserts a text channel with msgs under the default category.
func (f *Fixture) AddChannel(name string, msgs ...store.MessageRecord) int64 {
	f.T.Helper()
	return f.AddChannelTo(f.CategoryID, name, msgs...)
}

// AddChannelTo inserts a text channel with msgs under categoryID.
func (f *Fixture) AddChannelTo(categoryID int64, name string, msgs ...store.MessageRecord) int64 {
	f.T.Helper()
	id, err := f.Store.InsertChannel(context.Background(), categoryID,
		store.ChannelRecord{Kind: store.KindText, Name: name}, msgs)
	testutil.MustNoErr(f.T, err, "AddChannel "+name)
	return id
}

// Build populates the full-text index and the page cache, as the last step
// of a real build does.
func (f *Fixture) Build() {
	f.T.Helper()
	ctx := context.Background()
	_, err := f.Store.PopulateFTS(ctx)
	testutil.MustNoErr(f.T, err, "PopulateFTS")
	_, err = f.Store.BuildPageCache(ctx, store.PageSize)
	testutil.MustNoErr(f.T, err, "BuildPageCache")
}

// Messages returns n messages by username, newest first, which is the order
// the importer hands them to the store. The oldest is sent at BaseTime and
// each later one a minute after the previous.
func (f *Fixture) Messages(n int, username string) []store.MessageRecord {
	msgs := make([]store.MessageRecord, n)
	for i := range msgs {
		age := n - 1 - i
		msgs[i] = f.NewMessage().
			From(username).
			At(BaseTime.Add(time.Duration(age) * time.Minute)).
			WithContent(fmt.Sprintf("%s message %d", username, age)).
			Build()
	}
	return msgs
}

// ChannelMessageIDs returns the row identifiers of a channel in insertion
// order.
func (f *Fixture) ChannelMessageIDs(channelID int64) []int64 {
	f.T.Helper()
	rows, err := f.Store.DB().Query(`SELECT message_id FROM messages WHERE channel_id = ? ORDER BY message_id`, channelID)
	testutil.MustNoErr(f.T, err, "query message ids")
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		testutil.MustNoErr(f.T, rows.Scan(&id), "scan message id")
		ids = append(ids, id)
	}
	testutil.MustNoErr(f.T, rows.Err(), "iterate message ids")
	return ids
}

// MessageBuilder builds a store.MessageRecord with sensible defaults.
type MessageBuilder struct {
	rec store.MessageRecord
}

// NewMessage returns a builder whose defaults are unique within the fixture.
func (f *Fixture) NewMessage() *MessageBuilder {
	f.msgCounter++
	return &MessageBuilder{rec: store.MessageRecord{
		Content:  fmt.Sprintf("test message %d", f.msgCounter),
		Username: "tester",
		Avatar:   "https://cdn.discordapp.com/embed/avatars/0.png",
		SentAt:   BaseTime.Add(time.Duration(f.msgCounter) * time.Second),
	}}
}

// WithContent sets the rendered content.
func (b *MessageBuilder) WithContent(content string) *MessageBuilder {
	b.rec.Content = content
	return b
}

// From sets the author.
func (b *MessageBuilder) From(username string) *MessageBuilder {
	b.rec.Username = username
	return b
}

// At sets the send time.
func (b *MessageBuilder) At(t time.Time) *MessageBuilder {
	b.rec.SentAt = t
	return b
}

// Build returns the record.
func (b *MessageBuilder) Build() store.MessageRecord {
	return b.rec
}
