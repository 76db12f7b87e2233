package store

import (
	"context"
	"database/sql"
	"fmt"
)

// rankedMessages ranks every message within its channel, newest first.
// Ties on sent_at fall back to insertion order so the ranking is total.
const rankedMessages = `
	SELECT
		message_id,
		channel_id,
		(ROW_NUMBER() OVER (
			PARTITION BY channel_id
			ORDER BY sent_at DESC, message_id ASC
		) - 1) / ? AS page
	FROM messages
`

// PopulateFTS copies every message into the full-text index.
func (s *Store) PopulateFTS(ctx context.Context) (int64, error) {
	var n int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM messages_fts`); err != nil {
			return fmt.Errorf("clear fts: %w", err)
		}
		result, err := tx.ExecContext(ctx, `
			INSERT INTO messages_fts (content, username, avatar, messages_rowid)
			SELECT content, username, avatar, message_id FROM messages
		`)
		if err != nil {
			return fmt.Errorf("populate fts: %w", err)
		}
		n, err = result.RowsAffected()
		return err
	})
	return n, err
}

// BuildPageCache recomputes the message -> page mapping for every message.
// The cache is replaced as a whole; it is never patched.
func (s *Store) BuildPageCache(ctx context.Context, pageSize int) (int64, error) {
	if pageSize <= 0 {
		return 0, fmt.Errorf("build page cache: invalid page size %d", pageSize)
	}

	var n int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM messages_pages`); err != nil {
			return fmt.Errorf("clear page cache: %w", err)
		}
		result, err := tx.ExecContext(ctx, `
			INSERT INTO messages_pages (messages_rowid, channel_id, page)
			SELECT message_id, channel_id, page FROM (`+rankedMessages+`)
		`, pageSize)
		if err != nil {
			return fmt.Errorf("populate page cache: %w", err)
		}
		n, err = result.RowsAffected()
		return err
	})
	return n, err
}

// CacheCheck reports how the page cache differs from a fresh ranking.
type CacheCheck struct {
	Messages int64 // messages in the archive
	Missing  int64 // messages without a cache row
	Stale    int64 // cache rows whose page or channel disagree with the ranking
	Orphaned int64 // cache rows for messages that do not exist
}

// OK reports whether the cache matches the messages table exactly.
func (c *CacheCheck) OK() bool {
	return c.Missing == 0 && c.Stale == 0 && c.Orphaned == 0
}

// CheckPageCache recomputes the ranking and compares it to the stored cache.
func (s *Store) CheckPageCache(ctx context.Context, pageSize int) (*CacheCheck, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("check page cache: invalid page size %d", pageSize)
	}

	check := &CacheCheck{}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&check.Messages); err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN mp.messages_rowid IS NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN mp.messages_rowid IS NOT NULL
				AND (mp.page != r.page OR mp.channel_id != r.channel_id) THEN 1 ELSE 0 END), 0)
		FROM (`+rankedMessages+`) r
		LEFT JOIN messages_pages mp ON mp.messages_rowid = r.message_id
	`, pageSize).Scan(&check.Missing, &check.Stale)
	if err != nil {
		return nil, fmt.Errorf("compare page cache: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages_pages mp
		LEFT JOIN messages m ON m.message_id = mp.messages_rowid
		WHERE m.message_id IS NULL
	`).Scan(&check.Orphaned)
	if err != nil {
		return nil, fmt.Errorf("count orphaned cache rows: %w", err)
	}

	return check, nil
}
