package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/wesm/chatvault/internal/search"
	"github.com/wesm/chatvault/internal/store"
)

// SQLiteEngine implements Engine using direct SQLite queries.
type SQLiteEngine struct {
	db       *sql.DB
	pageSize int
}

// NewSQLiteEngine creates a new SQLite-backed query engine. It paginates
// with store.PageSize, the size the page cache was built with.
func NewSQLiteEngine(db *sql.DB) *SQLiteEngine {
	return &SQLiteEngine{db: db, pageSize: store.PageSize}
}

// Close is a no-op for SQLiteEngine since it doesn't own the connection.
func (e *SQLiteEngine) Close() error {
	return nil
}

// ListChannels returns the text channels of every category. Categories
// without text channels are omitted.
func (e *SQLiteEngine) ListChannels(ctx context.Context) ([]CategoryChannels, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT cat.category_id, cat.name, c.channel_id, c.channel_type, c.name
		FROM categories cat
		JOIN channels c ON c.category_id = cat.category_id
		WHERE c.channel_type = ?
		ORDER BY cat.category_id, c.channel_id
	`, int(store.KindText))
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	var result []CategoryChannels
	for rows.Next() {
		var ch Channel
		var kind int
		if err := rows.Scan(&ch.CategoryID, &ch.CategoryName, &ch.ID, &kind, &ch.Name); err != nil {
			return nil, fmt.Errorf("list channels: scan: %w", err)
		}
		ch.Kind = store.ChannelKind(kind)

		if n := len(result); n == 0 || result[n-1].CategoryID != ch.CategoryID {
			result = append(result, CategoryChannels{
				CategoryID:   ch.CategoryID,
				CategoryName: ch.CategoryName,
			})
		}
		last := &result[len(result)-1]
		last.Channels = append(last.Channels, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	return result, nil
}

// GetChannel returns a single channel by ID.
func (e *SQLiteEngine) GetChannel(ctx context.Context, id int64) (*Channel, error) {
	ch := &Channel{ID: id}
	var kind int
	err := e.db.QueryRowContext(ctx, `
		SELECT c.channel_type, c.name, c.category_id, cat.name
		FROM channels c
		JOIN categories cat ON cat.category_id = c.category_id
		WHERE c.channel_id = ?
	`, id).Scan(&kind, &ch.Name, &ch.CategoryID, &ch.CategoryName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get channel %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get channel %d: %w", id, err)
	}
	ch.Kind = store.ChannelKind(kind)
	return ch, nil
}

// GetPage returns one page of a channel. The ordering matches the ranking
// the page cache was built with, so GoToMessage and GetPage always agree.
func (e *SQLiteEngine) GetPage(ctx context.Context, channelID int64, page int) ([]Message, error) {
	if page < 0 {
		return nil, fmt.Errorf("get page %d: %w", page, ErrInvalidPage)
	}
	// An offset that overflows int is necessarily past the end of any channel.
	if page > math.MaxInt/e.pageSize {
		return []Message{}, nil
	}

	rows, err := e.db.QueryContext(ctx, `
		SELECT message_id, channel_id, content, username, avatar, sent_at
		FROM messages
		WHERE channel_id = ?
		ORDER BY sent_at DESC, message_id ASC
		LIMIT ? OFFSET ?
	`, channelID, e.pageSize, page*e.pageSize)
	if err != nil {
		return nil, fmt.Errorf("get page: %w", err)
	}
	defer rows.Close()

	msgs := make([]Message, 0, e.pageSize)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("get page: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get page: %w", err)
	}
	return msgs, nil
}

// GoToMessage looks the message up in the page cache.
func (e *SQLiteEngine) GoToMessage(ctx context.Context, messageID int64) (*MessageLocation, error) {
	loc := &MessageLocation{MessageID: messageID}
	err := e.db.QueryRowContext(ctx, `
		SELECT mp.channel_id, c.name, mp.page
		FROM messages_pages mp
		JOIN channels c ON c.channel_id = mp.channel_id
		WHERE mp.messages_rowid = ?
	`, messageID).Scan(&loc.ChannelID, &loc.ChannelName, &loc.Page)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("go to message %d: %w", messageID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("go to message %d: %w", messageID, err)
	}
	return loc, nil
}

// Search runs a full-text search. Filters without usable words return an
// empty result without a query being issued.
func (e *SQLiteEngine) Search(ctx context.Context, filter search.Filter) ([]SearchHit, error) {
	stmt, err := search.Build(filter)
	if errors.Is(err, search.ErrEmptyQuery) {
		return []SearchHit{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	rows, err := e.db.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	hits := []SearchHit{}
	for rows.Next() {
		var h SearchHit
		var sentAt string
		if err := rows.Scan(&h.ID, &h.ChannelID, &h.ChannelName, &h.Content, &h.Username, &h.Avatar, &sentAt); err != nil {
			return nil, fmt.Errorf("search: scan: %w", err)
		}
		if h.SentAt, err = store.ParseTime(sentAt); err != nil {
			return nil, fmt.Errorf("search: %w", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return hits, nil
}

// GetStats returns archive statistics. The database size is derived from
// the page count, so it needs no file path.
func (e *SQLiteEngine) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	queries := []struct {
		query string
		dest  *int64
	}{
		{"SELECT COUNT(*) FROM categories", &stats.CategoryCount},
		{"SELECT COUNT(*) FROM channels", &stats.ChannelCount},
		{"SELECT COUNT(*) FROM messages", &stats.MessageCount},
		{"SELECT COUNT(*) FROM (SELECT DISTINCT channel_id, page FROM messages_pages)", &stats.PageCount},
		{"SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()", &stats.DatabaseSize},
	}
	for _, q := range queries {
		if err := e.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("get stats: %w", err)
		}
	}
	return stats, nil
}

func scanMessage(rows *sql.Rows) (Message, error) {
	var m Message
	var sentAt string
	if err := rows.Scan(&m.ID, &m.ChannelID, &m.Content, &m.Username, &m.Avatar, &sentAt); err != nil {
		return m, fmt.Errorf("scan message: %w", err)
	}
	t, err := store.ParseTime(sentAt)
	if err != nil {
		return m, err
	}
	m.SentAt = t
	return m, nil
}
