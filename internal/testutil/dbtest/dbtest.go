// Package dbtest seeds archives with raw SQL, for states the Store API does
// not produce on its own: explicit row identifiers, equal timestamps and
// non-text channels.
package dbtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/wesm/chatvault/internal/store"
)

// TestDB wraps an archive with counters and seeding helpers.
type TestDB struct {
	Store *store.Store
	DB    *sql.DB
	T     testing.TB

	nextMessageID int64
}

// NewTestDB creates an archive with the production schema in a temporary
// directory. Automatically assigned message IDs start at 1000 so tests can
// place explicit IDs below that without collisions.
func NewTestDB(t testing.TB) *TestDB {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "chatvault.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	if err := st.InitSchema(); err != nil {
		t.Fatalf("init schema: %v", err)
	}

	return &TestDB{
		Store:         st,
		DB:            st.DB(),
		T:             t,
		nextMessageID: 1000,
	}
}

// AddCategory inserts a category and returns its ID.
func (tdb *TestDB) AddCategory(name string) int64 {
	tdb.T.Helper()
	res, err := tdb.DB.Exec(`INSERT INTO categories (name) VALUES (?)`, name)
	if err != nil {
		tdb.T.Fatalf("AddCategory: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

// ChannelOpts configures a channel to insert.
type ChannelOpts struct {
	CategoryID int64             // required
	Name       string            // defaults to "general"
	Kind       store.ChannelKind // defaults to store.KindText
}

// AddChannel inserts a channel row directly, bypassing the text-only check
// of the Store.
func (tdb *TestDB) AddChannel(opts ChannelOpts) int64 {
	tdb.T.Helper()
	if opts.CategoryID == 0 {
		tdb.T.Fatalf("AddChannel: CategoryID is required")
	}
	if opts.Name == "" {
		opts.Name = "general"
	}
	res, err := tdb.DB.Exec(
		`INSERT INTO channels (channel_type, name, category_id) VALUES (?, ?, ?)`,
		int(opts.Kind), opts.Name, opts.CategoryID,
	)
	if err != nil {
		tdb.T.Fatalf("AddChannel: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

// MessageOpts configures a message to insert.
type MessageOpts struct {
	ID        int64 // 0 = next automatic ID
	ChannelID int64 // required
	Content   string
	Username  string // defaults to "tester"
	Avatar    string
	SentAt    time.Time // required
}

// AddMessage inserts a message and returns its ID.
func (tdb *TestDB) AddMessage(opts MessageOpts) int64 {
	tdb.T.Helper()
	if opts.SentAt.IsZero() {
		tdb.T.Fatalf("AddMessage: SentAt is required")
	}
	var exists bool
	if err := tdb.DB.QueryRow(`SELECT EXISTS(SELECT 1 FROM channels WHERE channel_id = ?)`, opts.ChannelID).Scan(&exists); err != nil {
		tdb.T.Fatalf("AddMessage: look up channel: %v", err)
	}
	if !exists {
		tdb.T.Fatalf("AddMessage: channel %d does not exist", opts.ChannelID)
	}

	id := opts.ID
	if id == 0 {
		id = tdb.nextMessageID
		tdb.nextMessageID++
	}
	if opts.Username == "" {
		opts.Username = "tester"
	}
	_, err := tdb.DB.Exec(
		`INSERT INTO messages (message_id, content, username, avatar, sent_at, channel_id) VALUES (?, ?, ?, ?, ?, ?)`,
		id, opts.Content, opts.Username, opts.Avatar, store.FormatTime(opts.SentAt), opts.ChannelID,
	)
	if err != nil {
		tdb.T.Fatalf("AddMessage: %v", err)
	}
	return id
}

// Finish populates the full-text index and the page cache.
func (tdb *TestDB) Finish() {
	tdb.T.Helper()
	if _, err := tdb.Store.PopulateFTS(context.Background()); err != nil {
		tdb.T.Fatalf("PopulateFTS: %v", err)
	}
	if _, err := tdb.Store.BuildPageCache(context.Background(), store.PageSize); err != nil {
		tdb.T.Fatalf("BuildPageCache: %v", err)
	}
}
