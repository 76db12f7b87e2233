package query

import (
	"context"
	"errors"
	"testing"

	"github.com/wesm/chatvault/internal/search"
	"github.com/wesm/chatvault/internal/testutil/storetest"
)

// testEnv encapsulates the fixture, Engine, and Context setup for tests.
type testEnv struct {
	*storetest.Fixture
	Engine *SQLiteEngine
	Ctx    context.Context

	General int64 // 250 messages by alice
	Random  int64 // 3 messages by bob, in "Off-topic"
}

// newTestEnv creates a built archive with the standard data set:
//
//	General   -> general (alice x250)
//	Off-topic -> random  (bob x3)
//	Empty     -> (no channels)
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	f := storetest.New(t)
	env := &testEnv{Fixture: f, Ctx: context.Background()}
	env.General = f.AddChannel("general", f.Messages(250, "alice")...)
	offTopic := f.AddCategory("Off-topic")
	env.Random = f.AddChannelTo(offTopic, "random", f.Messages(3, "bob")...)
	f.AddCategory("Empty")
	f.Build()
	env.Engine = NewSQLiteEngine(f.Store.DB())
	return env
}

// MustGetPage calls GetPage and fails the test on error.
func (e *testEnv) MustGetPage(channelID int64, page int) []Message {
	e.T.Helper()
	msgs, err := e.Engine.GetPage(e.Ctx, channelID, page)
	if err != nil {
		e.T.Fatalf("GetPage(%d, %d): %v", channelID, page, err)
	}
	return msgs
}

// MustSearch calls Search and fails the test on error.
func (e *testEnv) MustSearch(f search.Filter) []SearchHit {
	e.T.Helper()
	hits, err := e.Engine.Search(e.Ctx, f)
	if err != nil {
		e.T.Fatalf("Search(%+v): %v", f, err)
	}
	return hits
}

// messageIDs returns the IDs of msgs in order.
func messageIDs(msgs []Message) []int64 {
	ids := make([]int64, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	return ids
}

// hitContents returns the content of each hit in order.
func hitContents(hits []SearchHit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Content
	}
	return out
}

// assertPageOrdered checks that msgs are newest first, with equal
// timestamps in ascending ID order.
func assertPageOrdered(t *testing.T, msgs []Message) {
	t.Helper()
	for i := 1; i < len(msgs); i++ {
		prev, cur := msgs[i-1], msgs[i]
		if cur.SentAt.After(prev.SentAt) {
			t.Errorf("message %d (%v) is newer than message %d (%v)", i, cur.SentAt, i-1, prev.SentAt)
		}
		if cur.SentAt.Equal(prev.SentAt) && cur.ID < prev.ID {
			t.Errorf("equal timestamps out of ID order at %d: %d after %d", i, cur.ID, prev.ID)
		}
	}
}

// assertGoToConsistent checks, for every message of channelID, that the
// page GoToMessage names contains the message.
func assertGoToConsistent(t *testing.T, engine Engine, ids []int64) {
	t.Helper()
	ctx := context.Background()
	pages := make(map[[2]int64]map[int64]bool)
	for _, id := range ids {
		loc, err := engine.GoToMessage(ctx, id)
		if err != nil {
			t.Fatalf("GoToMessage(%d): %v", id, err)
		}
		key := [2]int64{loc.ChannelID, int64(loc.Page)}
		if pages[key] == nil {
			msgs, err := engine.GetPage(ctx, loc.ChannelID, loc.Page)
			if err != nil {
				t.Fatalf("GetPage(%d, %d): %v", loc.ChannelID, loc.Page, err)
			}
			pages[key] = make(map[int64]bool, len(msgs))
			for _, m := range msgs {
				pages[key][m.ID] = true
			}
		}
		if !pages[key][id] {
			t.Errorf("message %d: GoToMessage says channel %d page %d, but the page does not contain it",
				id, loc.ChannelID, loc.Page)
		}
	}
}

func assertNotFound(t *testing.T, err error) {
	t.Helper()
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
