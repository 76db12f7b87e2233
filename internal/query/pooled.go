package query

import (
	"context"

	"github.com/wesm/chatvault/internal/search"
	"github.com/wesm/chatvault/internal/workpool"
)

// PooledEngine runs every call of an inner Engine on a worker pool, so the
// number of concurrent blocking queries never exceeds the pool size.
type PooledEngine struct {
	inner Engine
	pool  *workpool.Pool
}

// NewPooledEngine wraps inner. The PooledEngine owns both arguments and
// closes them on Close.
func NewPooledEngine(inner Engine, pool *workpool.Pool) *PooledEngine {
	return &PooledEngine{inner: inner, pool: pool}
}

// Compile-time check.
var _ Engine = (*PooledEngine)(nil)

func (p *PooledEngine) ListChannels(ctx context.Context) ([]CategoryChannels, error) {
	return workpool.Submit(ctx, p.pool, p.inner.ListChannels)
}

func (p *PooledEngine) GetChannel(ctx context.Context, id int64) (*Channel, error) {
	return workpool.Submit(ctx, p.pool, func(ctx context.Context) (*Channel, error) {
		return p.inner.GetChannel(ctx, id)
	})
}

func (p *PooledEngine) GetPage(ctx context.Context, channelID int64, page int) ([]Message, error) {
	return workpool.Submit(ctx, p.pool, func(ctx context.Context) ([]Message, error) {
		return p.inner.GetPage(ctx, channelID, page)
	})
}

func (p *PooledEngine) GoToMessage(ctx context.Context, messageID int64) (*MessageLocation, error) {
	return workpool.Submit(ctx, p.pool, func(ctx context.Context) (*MessageLocation, error) {
		return p.inner.GoToMessage(ctx, messageID)
	})
}

func (p *PooledEngine) Search(ctx context.Context, filter search.Filter) ([]SearchHit, error) {
	return workpool.Submit(ctx, p.pool, func(ctx context.Context) ([]SearchHit, error) {
		return p.inner.Search(ctx, filter)
	})
}

func (p *PooledEngine) GetStats(ctx context.Context) (*Stats, error) {
	return workpool.Submit(ctx, p.pool, p.inner.GetStats)
}

// Close waits for running calls and closes the inner engine.
func (p *PooledEngine) Close() error {
	p.pool.Close()
	return p.inner.Close()
}
