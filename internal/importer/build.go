package importer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wesm/chatvault/internal/store"
)

// BuildOptions configures Build.
type BuildOptions struct {
	// MaxConnections caps the store's connection pool. Zero uses the store default.
	MaxConnections int

	// LoadConcurrency bounds parallel file decoding. Zero uses the number of CPUs.
	LoadConcurrency int

	// Progress receives per-channel callbacks; defaults to NullProgress.
	Progress BuildProgress

	// Logger is optional; defaults to slog.Default().
	Logger *slog.Logger
}

// BuildSummary holds statistics from a completed build.
type BuildSummary struct {
	Duration        time.Duration
	Root            string
	Categories      int64
	Channels        int64
	ChannelsSkipped int64
	Messages        int64
	IndexedMessages int64
	CachedMessages  int64
}

// BuildProgress receives build progress callbacks.
type BuildProgress interface {
	OnStart(channels, messages int)
	OnChannel(category string, ch Channel, skipped bool)
	OnComplete(summary *BuildSummary)
}

// NullProgress is a no-op BuildProgress.
type NullProgress struct{}

func (NullProgress) OnStart(int, int)                {}
func (NullProgress) OnChannel(string, Channel, bool) {}
func (NullProgress) OnComplete(*BuildSummary)        {}

// Build loads the export found at exportDir and writes a fresh archive to
// dbPath: any existing archive is deleted, then the schema is created, every
// text channel is inserted, and the full-text index and page cache are
// populated. The export is fully loaded before the old archive is removed,
// so a malformed export leaves it in place.
func Build(ctx context.Context, exportDir, dbPath string, opts BuildOptions) (*BuildSummary, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	progress := opts.Progress
	if progress == nil {
		progress = NullProgress{}
	}
	start := time.Now()

	root, err := ResolveExportRoot(exportDir)
	if err != nil {
		return nil, err
	}
	log.Info("loading export", "root", root)
	exp, err := LoadExport(ctx, root, LoadOptions{Concurrency: opts.LoadConcurrency, Logger: log})
	if err != nil {
		return nil, fmt.Errorf("load export: %w", err)
	}

	if err := store.Reset(dbPath); err != nil {
		return nil, fmt.Errorf("remove old archive: %w", err)
	}
	st, err := store.Open(dbPath, store.WithMaxConnections(opts.MaxConnections), store.WithLogger(log))
	if err != nil {
		return nil, err
	}
	defer st.Close()

	if err := st.InitSchema(); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}

	summary := &BuildSummary{Root: root}
	progress.OnStart(exp.ChannelCount(), exp.MessageCount())

	if err := Insert(ctx, st, exp, summary, progress, log); err != nil {
		return nil, err
	}

	log.Info("populating full-text index")
	if summary.IndexedMessages, err = st.PopulateFTS(ctx); err != nil {
		return nil, err
	}
	log.Info("building page cache", "page_size", store.PageSize)
	if summary.CachedMessages, err = st.BuildPageCache(ctx, store.PageSize); err != nil {
		return nil, err
	}

	summary.Duration = time.Since(start)
	progress.OnComplete(summary)
	log.Info("build complete",
		"channels", summary.Channels,
		"skipped", summary.ChannelsSkipped,
		"messages", summary.Messages,
		"duration", summary.Duration.Round(time.Millisecond))
	return summary, nil
}

// Insert writes the categories and text channels of exp into st, in export
// order, one transaction per channel. Channels of any other kind are counted
// as skipped and never written. The first failure aborts; channels already
// committed stay.
func Insert(ctx context.Context, st *store.Store, exp *Export, summary *BuildSummary, progress BuildProgress, log *slog.Logger) error {
	for _, cat := range exp.Categories {
		if err := ctx.Err(); err != nil {
			return err
		}

		log.Info("inserting category", "name", cat.Name)
		catID, err := st.InsertCategory(ctx, cat.Name)
		if err != nil {
			return err
		}
		summary.Categories++

		for _, ch := range cat.Channels {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !ch.Kind.IsText() {
				log.Info("skipping channel", "name", ch.Name, "kind", ch.Kind)
				summary.ChannelsSkipped++
				progress.OnChannel(cat.Name, ch, true)
				continue
			}

			log.Debug("inserting channel", "name", ch.Name, "messages", len(ch.Messages))
			if _, err := st.InsertChannel(ctx, catID, channelRecord(ch), messageRecords(ch.Messages)); err != nil {
				return fmt.Errorf("category %q: %w", cat.Name, err)
			}
			summary.Channels++
			summary.Messages += int64(len(ch.Messages))
			progress.OnChannel(cat.Name, ch, false)
		}
	}
	return nil
}

func channelRecord(ch Channel) store.ChannelRecord {
	return store.ChannelRecord{Kind: ch.Kind, Name: ch.Name}
}

func messageRecords(msgs []Message) []store.MessageRecord {
	recs := make([]store.MessageRecord, len(msgs))
	for i, m := range msgs {
		recs[i] = store.MessageRecord{
			Content:  m.Content,
			Username: m.Username,
			Avatar:   m.Avatar,
			SentAt:   m.SentAt,
		}
	}
	return recs
}
