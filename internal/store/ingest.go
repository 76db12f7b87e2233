package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNonTextChannel is returned when a channel whose kind is not text is
// offered for insertion.
var ErrNonTextChannel = errors.New("channel is not a text channel")

// ChannelRecord is a channel row to insert.
type ChannelRecord struct {
	Kind ChannelKind
	Name string
}

// MessageRecord is a message row to insert. Content is stored verbatim; any
// escaping happens before it reaches the store.
type MessageRecord struct {
	Content  string
	Username string
	Avatar   string
	SentAt   time.Time
}

// InsertCategory inserts a category and returns its assigned ID.
func (s *Store) InsertCategory(ctx context.Context, name string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `INSERT INTO categories (name) VALUES (?)`, name)
	if err != nil {
		return 0, fmt.Errorf("insert category %q: %w", name, err)
	}
	return result.LastInsertId()
}

// InsertChannel inserts a channel under categoryID together with all of its
// messages, in one transaction. Messages are inserted in slice order, which
// is the order the page cache later ranks against. On error nothing of this
// channel is committed; channels committed earlier are unaffected.
func (s *Store) InsertChannel(ctx context.Context, categoryID int64, ch ChannelRecord, msgs []MessageRecord) (int64, error) {
	if !ch.Kind.IsText() {
		return 0, fmt.Errorf("insert channel %q (%s): %w", ch.Name, ch.Kind, ErrNonTextChannel)
	}

	var channelID int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO channels (channel_type, name, category_id)
			VALUES (?, ?, ?)
		`, int(ch.Kind), ch.Name, categoryID)
		if err != nil {
			return fmt.Errorf("insert channel %q: %w", ch.Name, err)
		}
		channelID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("channel id: %w", err)
		}
		return insertMessages(ctx, tx, channelID, msgs)
	})
	if err != nil {
		return 0, err
	}
	return channelID, nil
}

func insertMessages(ctx context.Context, tx *sql.Tx, channelID int64, msgs []MessageRecord) error {
	if len(msgs) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (content, username, avatar, sent_at, channel_id)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare message insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range msgs {
		if _, err := stmt.ExecContext(ctx, m.Content, m.Username, m.Avatar, FormatTime(m.SentAt), channelID); err != nil {
			return fmt.Errorf("insert message %d of channel %d: %w", i, channelID, err)
		}
	}
	return nil
}
