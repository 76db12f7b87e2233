package query

import (
	"context"
	"errors"

	"github.com/wesm/chatvault/internal/search"
)

var (
	// ErrNotFound is returned for an unknown channel or message ID. A stale
	// permalink after a rebuild looks the same as any other unknown ID.
	ErrNotFound = errors.New("not found")
	// ErrInvalidPage is returned for a negative page number.
	ErrInvalidPage = errors.New("invalid page number")
)

// Engine provides read-only query operations over an archive.
// Implementations:
//   - SQLiteEngine: direct SQLite queries
//   - PooledEngine: any Engine behind a bounded worker pool
//   - remote.Engine: a running chatvault server over HTTP
type Engine interface {
	// ListChannels returns every category with its channels, both in
	// insertion order.
	ListChannels(ctx context.Context) ([]CategoryChannels, error)

	// GetChannel returns a single channel, or ErrNotFound.
	GetChannel(ctx context.Context, id int64) (*Channel, error)

	// GetPage returns up to store.PageSize messages of a channel, newest
	// first. Page 0 holds the newest messages; a page past the end is
	// empty, not an error.
	GetPage(ctx context.Context, channelID int64, page int) ([]Message, error)

	// GoToMessage resolves a message ID to its channel and page, or
	// ErrNotFound.
	GoToMessage(ctx context.Context, messageID int64) (*MessageLocation, error)

	// Search runs a full-text search and returns hits newest first. A
	// filter without usable words returns no hits and does not touch the
	// archive.
	Search(ctx context.Context, filter search.Filter) ([]SearchHit, error)

	// GetStats returns archive statistics.
	GetStats(ctx context.Context) (*Stats, error)

	// Close releases any resources held by the engine.
	Close() error
}
