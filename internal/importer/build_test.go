package importer

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/wesm/chatvault/internal/store"
	"github.com/wesm/chatvault/internal/testutil"
)

type recordingProgress struct {
	NullProgress
	started  int
	inserted []string
	skipped  []string
	summary  *BuildSummary
}

func (p *recordingProgress) OnStart(channels, messages int) { p.started = channels }
func (p *recordingProgress) OnChannel(category string, ch Channel, skipped bool) {
	if skipped {
		p.skipped = append(p.skipped, category+"/"+ch.Name)
	} else {
		p.inserted = append(p.inserted, category+"/"+ch.Name)
	}
}
func (p *recordingProgress) OnComplete(s *BuildSummary) { p.summary = s }

// sampleExport writes an export with a 250-message text channel, a voice
// channel that carries messages anyway, and one uncategorized channel.
func sampleExport(t *testing.T) *testutil.Export {
	t.Helper()
	e := testutil.NewExport(t)
	voice := testutil.ExportChannel{Type: 2, Name: "voice", Messages: testutil.Messages(3, "ghost", t0, time.Second)}
	e.AddCategory(0, testutil.ExportCategory{
		Name:     "General",
		Children: []testutil.ExportChannel{testutil.TextChannel("chat", testutil.Messages(250, "alice", t0, time.Minute)...), voice},
	})
	e.AddCategory(2, testutil.ExportCategory{
		Name:     "Games",
		Children: []testutil.ExportChannel{testutil.TextChannel("lfg", testutil.Messages(12, "bob", t0, time.Hour)...)},
	})
	e.AddOtherChannel("0", testutil.TextChannel("loose", testutil.Messages(5, "carol", t0, time.Second)...))
	return e
}

func buildArchive(t *testing.T, exportDir, dbPath string, opts BuildOptions) *BuildSummary {
	t.Helper()
	summary, err := Build(context.Background(), exportDir, dbPath, opts)
	testutil.MustNoErr(t, err, "Build")
	return summary
}

func openArchive(t *testing.T, dbPath string) *store.Store {
	t.Helper()
	st, err := store.Open(dbPath)
	testutil.MustNoErr(t, err, "open archive")
	t.Cleanup(func() { st.Close() })
	return st
}

func TestBuild_Summary(t *testing.T) {
	e := sampleExport(t)
	dbPath := filepath.Join(t.TempDir(), "chatvault.db")
	progress := &recordingProgress{}

	summary := buildArchive(t, e.Root, dbPath, BuildOptions{Progress: progress})

	if summary.Categories != 3 {
		t.Errorf("Categories = %d, want 3", summary.Categories)
	}
	if summary.Channels != 3 || summary.ChannelsSkipped != 1 {
		t.Errorf("Channels = %d, skipped = %d, want 3 and 1", summary.Channels, summary.ChannelsSkipped)
	}
	if summary.Messages != 267 || summary.IndexedMessages != 267 || summary.CachedMessages != 267 {
		t.Errorf("messages = %d indexed = %d cached = %d, want 267", summary.Messages, summary.IndexedMessages, summary.CachedMessages)
	}

	if progress.started != 4 {
		t.Errorf("OnStart channels = %d, want 4", progress.started)
	}
	testutil.AssertStrings(t, progress.inserted, "General/chat", "Games/lfg", OtherChannelsCategory+"/loose")
	testutil.AssertStrings(t, progress.skipped, "General/voice")
	if progress.summary != summary {
		t.Error("OnComplete did not receive the returned summary")
	}
}

func TestBuild_SkipsNonTextChannels(t *testing.T) {
	e := sampleExport(t)
	dbPath := filepath.Join(t.TempDir(), "chatvault.db")
	buildArchive(t, e.Root, dbPath, BuildOptions{})

	st := openArchive(t, dbPath)
	var n int
	testutil.MustNoErr(t, st.DB().QueryRow(`SELECT COUNT(*) FROM channels WHERE name = 'voice'`).Scan(&n), "count")
	if n != 0 {
		t.Errorf("voice channel stored %d times", n)
	}
	testutil.MustNoErr(t, st.DB().QueryRow(`SELECT COUNT(*) FROM messages WHERE username = 'ghost'`).Scan(&n), "count")
	if n != 0 {
		t.Errorf("%d voice channel messages stored", n)
	}
}

func TestBuild_PageCacheConsistent(t *testing.T) {
	e := sampleExport(t)
	dbPath := filepath.Join(t.TempDir(), "chatvault.db")
	buildArchive(t, e.Root, dbPath, BuildOptions{})

	st := openArchive(t, dbPath)
	check, err := st.CheckPageCache(context.Background(), store.PageSize)
	testutil.MustNoErr(t, err, "CheckPageCache")
	if !check.OK() {
		t.Errorf("page cache check = %+v", check)
	}
}

func TestBuild_OtherChannelsStoredNewestFirst(t *testing.T) {
	e := sampleExport(t)
	dbPath := filepath.Join(t.TempDir(), "chatvault.db")
	buildArchive(t, e.Root, dbPath, BuildOptions{})

	st := openArchive(t, dbPath)
	var content string
	err := st.DB().QueryRow(`
		SELECT m.content FROM messages m
		JOIN channels c ON c.channel_id = m.channel_id
		JOIN messages_pages p ON p.messages_rowid = m.message_id
		WHERE c.name = 'loose'
		ORDER BY m.message_id LIMIT 1
	`).Scan(&content)
	testutil.MustNoErr(t, err, "first inserted message")
	if content != "carol message 4" {
		t.Errorf("first inserted message = %q, want the newest (carol message 4)", content)
	}
}

// dumpArchive returns every row the query layer reads, keyed by table.
func dumpArchive(t *testing.T, db *sql.DB) map[string][]string {
	t.Helper()
	queries := map[string]string{
		"categories": `SELECT category_id || '|' || name FROM categories ORDER BY category_id`,
		"channels":   `SELECT channel_id || '|' || channel_type || '|' || name || '|' || category_id FROM channels ORDER BY channel_id`,
		"messages":   `SELECT message_id || '|' || channel_id || '|' || sent_at || '|' || username || '|' || content FROM messages ORDER BY message_id`,
		"pages":      `SELECT messages_rowid || '|' || channel_id || '|' || page FROM messages_pages ORDER BY messages_rowid`,
	}
	out := make(map[string][]string)
	for table, q := range queries {
		rows, err := db.Query(q)
		testutil.MustNoErr(t, err, "dump "+table)
		for rows.Next() {
			var s string
			testutil.MustNoErr(t, rows.Scan(&s), "scan "+table)
			out[table] = append(out[table], s)
		}
		testutil.MustNoErr(t, rows.Err(), "rows "+table)
		rows.Close()
	}
	return out
}

func TestBuild_Deterministic(t *testing.T) {
	e := sampleExport(t)
	dir := t.TempDir()
	first := filepath.Join(dir, "first.db")
	second := filepath.Join(dir, "second.db")

	buildArchive(t, e.Root, first, BuildOptions{LoadConcurrency: 1})
	buildArchive(t, e.Root, second, BuildOptions{LoadConcurrency: 8})

	a := dumpArchive(t, openArchive(t, first).DB())
	b := dumpArchive(t, openArchive(t, second).DB())
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("rebuild differs (-first +second):\n%s", diff)
	}
}

func TestBuild_ReplacesExistingArchive(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "chatvault.db")
	buildArchive(t, sampleExport(t).Root, dbPath, BuildOptions{})

	small := testutil.NewExport(t)
	small.AddCategory(0, testutil.ExportCategory{
		Name:     "Only",
		Children: []testutil.ExportChannel{testutil.TextChannel("one", testutil.Messages(1, "dave", t0, time.Second)...)},
	})
	buildArchive(t, small.Root, dbPath, BuildOptions{})

	stats, err := openArchive(t, dbPath).GetStats(context.Background())
	testutil.MustNoErr(t, err, "GetStats")
	if stats.CategoryCount != 1 || stats.ChannelCount != 1 || stats.MessageCount != 1 {
		t.Errorf("stats after rebuild = %+v, want a single message", stats)
	}
}

func TestBuild_MalformedExportKeepsOldArchive(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "chatvault.db")
	buildArchive(t, sampleExport(t).Root, dbPath, BuildOptions{})

	bad := testutil.NewExport(t)
	bad.WriteRaw("categories/0.json", []byte("{"))
	_, err := Build(context.Background(), bad.Root, dbPath, BuildOptions{})
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want *ParseError", err)
	}

	stats, err := openArchive(t, dbPath).GetStats(context.Background())
	testutil.MustNoErr(t, err, "GetStats")
	if stats.MessageCount != 267 {
		t.Errorf("old archive has %d messages, want 267", stats.MessageCount)
	}
}

func TestBuild_ExportNotFound(t *testing.T) {
	_, err := Build(context.Background(), t.TempDir(), filepath.Join(t.TempDir(), "x.db"), BuildOptions{})
	if !errors.Is(err, ErrExportNotFound) {
		t.Errorf("err = %v, want ErrExportNotFound", err)
	}
}

func TestBuild_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Build(ctx, sampleExport(t).Root, filepath.Join(t.TempDir(), "x.db"), BuildOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestMessageRecords(t *testing.T) {
	msgs := []Message{{Content: "a", Username: "u", Avatar: "v", SentAt: t0}}
	got := messageRecords(msgs)
	want := []store.MessageRecord{{Content: "a", Username: "u", Avatar: "v", SentAt: t0}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if n := len(messageRecords(nil)); n != 0 {
		t.Errorf("len = %d, want 0", n)
	}
}
